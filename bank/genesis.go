package bank

import (
	"context"
	"fmt"

	"github.com/rollkit/fastlane/types"
)

// GenesisBalance is an initial balance credited when the ledger is first created.
type GenesisBalance struct {
	Address string
	Coin    types.Coin
}

// InitGenesis credits every genesis balance.
func (l *Ledger) InitGenesis(ctx context.Context, balances []GenesisBalance) error {
	for _, b := range balances {
		if b.Address == "" || b.Coin.Denom == "" {
			return fmt.Errorf("%w: genesis balance needs an address and a denom", types.ErrMalformedInput)
		}
		if err := l.Credit(ctx, b.Address, b.Coin); err != nil {
			return fmt.Errorf("genesis balance of %s: %w", b.Address, err)
		}
	}
	l.logger.Info("initialized genesis balances", "accounts", len(balances))
	return nil
}
