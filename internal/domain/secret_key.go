package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const passphraseKeyPrefix = "landchain/keystore/"

var ErrInvalidSecretKey = errors.New("invalid secret key")

// PassphraseSecretKey names the stored passphrase of a keystore account.
func PassphraseSecretKey(account common.Address) string {
	return passphraseKeyPrefix + strings.ToLower(account.Hex())
}

// ParsePassphraseSecretKey returns the account a passphrase key belongs to.
// Address case is ignored so checksummed and lowercase keys name the same secret.
func ParsePassphraseSecretKey(key string) (common.Address, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("secret key is empty: %w", ErrInvalidSecretKey)
	}

	hex, ok := strings.CutPrefix(trimmed, passphraseKeyPrefix)
	if !ok || !common.IsHexAddress(hex) || !strings.HasPrefix(strings.ToLower(hex), "0x") {
		return common.Address{}, fmt.Errorf("%q: %w", key, ErrInvalidSecretKey)
	}

	return common.HexToAddress(hex), nil
}
