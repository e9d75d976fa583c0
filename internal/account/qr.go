package account

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"

	"github.com/cyphera/billing-core/internal/svcerr"
)

// WalletQRPNGBase64 renders a pooled or system account's wallet address as a
// PNG QR code, base64-encoded for inline display — the buyer-facing
// "wallet_qr_png_base64" field SPEC_FULL.md's account reads supplement
// §4.7's allocation/drain surface with.
func WalletQRPNGBase64(walletAddress string) (string, error) {
	if walletAddress == "" {
		return "", nil
	}
	png, err := qrcode.Encode(walletAddress, qrcode.Medium, 256)
	if err != nil {
		return "", svcerr.Internal(err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
