package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountSuperUnitRoundTrip(t *testing.T) {
	cases := []struct {
		currency Currency
		minor    string
	}{
		{STQ, "1000000000000000000"},
		{ETH, "1"},
		{BTC, "12345678"},
		{USD, "500"},
		{EUR, "0"},
	}

	for _, c := range cases {
		amt, err := NewFromString(c.minor)
		require.NoError(t, err)

		super, err := amt.ToSuperUnit(c.currency)
		require.NoError(t, err)

		back, err := FromSuperUnit(c.currency, super)
		require.NoError(t, err)

		assert.Equal(t, c.minor, back.String(), "round trip for %s", c.currency)
	}
}

func TestAmountCheckedAddOverflow(t *testing.T) {
	a, err := NewFromString(max128.Dec())
	require.NoError(t, err)
	one := NewFromUint64(1)

	_, ok := a.CheckedAdd(one)
	assert.False(t, ok)

	sum, ok := NewFromUint64(2).CheckedAdd(NewFromUint64(3))
	require.True(t, ok)
	assert.Equal(t, "5", sum.String())
}

func TestAmountCheckedSubUnderflow(t *testing.T) {
	_, ok := NewFromUint64(1).CheckedSub(NewFromUint64(2))
	assert.False(t, ok)

	diff, ok := NewFromUint64(5).CheckedSub(NewFromUint64(2))
	require.True(t, ok)
	assert.Equal(t, "3", diff.String())
}

func TestAmountMulDivBasisPoints(t *testing.T) {
	amt, err := NewFromString("1000000000000000000")
	require.NoError(t, err)

	fee, ok := amt.MulDivBasisPoints(250) // 2.5%
	require.True(t, ok)
	assert.Equal(t, "25000000000000000", fee.String())
}

func TestNumericRoundTrip(t *testing.T) {
	amt, err := NewFromString("123456789012345678")
	require.NoError(t, err)

	n := amt.ToNumeric()
	back, err := AmountFromNumeric(n)
	require.NoError(t, err)
	assert.Equal(t, amt.String(), back.String())
}

func TestValidateWalletAddress(t *testing.T) {
	addr, err := ValidateWalletAddress(ETH, "0x5aeda56215b167893e80b4fe645ba6d5bab767de")
	require.NoError(t, err)
	assert.Equal(t, "0x5aeDA56215b167893e80B4fE645BA6d5Bab767DE", addr)

	_, err = ValidateWalletAddress(ETH, "not-an-address")
	assert.Error(t, err)
}
