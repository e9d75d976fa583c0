package money

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateWalletAddress checks a crypto wallet address for a currency that
// uses Ethereum-style addresses (ETH, STQ — an ERC-20 style token in this
// platform) and returns it EIP-55 checksummed. BTC addresses are only
// checked for being non-empty and are returned as given, since this platform never mints a go-ethereum client for
// Bitcoin — callers only validate the address syntax the crypto-payments
// collaborator already enforces server-side.
func ValidateWalletAddress(c Currency, address string) (string, error) {
	switch c {
	case ETH, STQ:
		if !common.IsHexAddress(address) {
			return "", fmt.Errorf("money: %q is not a valid %s address", address, c)
		}
		return common.HexToAddress(address).Hex(), nil
	case BTC:
		if address == "" {
			return "", fmt.Errorf("money: empty BTC address")
		}
		return address, nil
	default:
		return "", fmt.Errorf("money: %s is not a crypto currency", c)
	}
}
