package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripePaymentIntentPayloadDecode(t *testing.T) {
	raw := json.RawMessage(`{"id":"pi_123","latest_charge":"ch_456","amount":500}`)

	var pi stripePaymentIntentPayload
	require.NoError(t, json.Unmarshal(raw, &pi))
	require.Equal(t, "pi_123", pi.ID)
	require.Equal(t, "ch_456", pi.LatestCharge)
}

func TestStripePaymentIntentPayloadDecodeMissingCharge(t *testing.T) {
	raw := json.RawMessage(`{"id":"pi_789"}`)

	var pi stripePaymentIntentPayload
	require.NoError(t, json.Unmarshal(raw, &pi))
	require.Equal(t, "pi_789", pi.ID)
	require.Empty(t, pi.LatestCharge)
}
