package domain

import (
	"fmt"
	"strings"
)

type NativeCurrency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// NetworkParams describes the single chain every ledger interaction must happen on.
type NetworkParams struct {
	ChainID      uint64
	Name         string
	Currency     NativeCurrency
	RPCURLs      []string
	ExplorerURLs []string
}

func (n NetworkParams) Validate() error {
	if n.ChainID == 0 {
		return fmt.Errorf("%w: chain id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: network name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(n.Currency.Symbol) == "" {
		return fmt.Errorf("%w: native currency symbol is required", ErrInvalidInput)
	}
	if len(n.RPCURLs) == 0 {
		return fmt.Errorf("%w: at least one rpc url is required", ErrInvalidInput)
	}

	return nil
}
