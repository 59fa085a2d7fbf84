package bank

import (
	"context"
	"errors"
	"fmt"

	ds "github.com/ipfs/go-datastore"

	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/store"
	"github.com/rollkit/fastlane/types"
)

// Keeper moves funds between accounts.
type Keeper interface {
	Send(ctx context.Context, from, to string, coins []types.Coin) error
	Balance(ctx context.Context, address, denom string) (types.Coin, error)
}

var _ Keeper = (*Ledger)(nil)

// Ledger keeps account balances in the KV of the enclosing call.
type Ledger struct {
	kv     store.KV
	logger log.Logger
}

// New returns a ledger over kv.
func New(kv store.KV, logger log.Logger) *Ledger {
	return &Ledger{
		kv:     store.NewPrefixKV(kv, store.BalancesPrefix),
		logger: logger.With("component", "bank"),
	}
}

// Balance returns the balance of denom held by address.
func (l *Ledger) Balance(ctx context.Context, address, denom string) (types.Coin, error) {
	bz, err := l.kv.Get(ctx, store.AccountKey(address, denom))
	if errors.Is(err, ds.ErrNotFound) {
		return types.Coin{Denom: denom}, nil
	}
	if err != nil {
		return types.Coin{}, fmt.Errorf("failed to load balance of %s: %w", address, err)
	}
	amount, err := types.AmountFromBytes(bz)
	if err != nil {
		return types.Coin{}, err
	}
	return types.Coin{Denom: denom, Amount: amount}, nil
}

// Credit adds coin to the balance of address.
func (l *Ledger) Credit(ctx context.Context, address string, coin types.Coin) error {
	bal, err := l.Balance(ctx, address, coin.Denom)
	if err != nil {
		return err
	}
	sum, err := bal.Amount.Add(coin.Amount)
	if err != nil {
		return fmt.Errorf("credit %s to %s: %w", coin, address, err)
	}
	return l.set(ctx, address, coin.Denom, sum)
}

// Debit removes coin from the balance of address.
func (l *Ledger) Debit(ctx context.Context, address string, coin types.Coin) error {
	bal, err := l.Balance(ctx, address, coin.Denom)
	if err != nil {
		return err
	}
	diff, err := bal.Amount.Sub(coin.Amount)
	if err != nil {
		return fmt.Errorf("debit %s from %s: %w", coin, address, err)
	}
	return l.set(ctx, address, coin.Denom, diff)
}

// Send moves coins from one account to another.
func (l *Ledger) Send(ctx context.Context, from, to string, coins []types.Coin) error {
	if to == "" {
		return fmt.Errorf("%w: empty recipient", types.ErrMalformedInput)
	}
	for _, coin := range coins {
		if coin.Denom == "" {
			return fmt.Errorf("%w: coin without denom", types.ErrMalformedInput)
		}
		if err := l.Debit(ctx, from, coin); err != nil {
			return err
		}
		if err := l.Credit(ctx, to, coin); err != nil {
			return err
		}
		l.logger.Debug("sent coins", "from", from, "to", to, "coin", coin.String())
	}
	return nil
}

func (l *Ledger) set(ctx context.Context, address, denom string, amount types.Amount) error {
	key := store.AccountKey(address, denom)
	if amount.IsZero() {
		if err := l.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear balance of %s: %w", address, err)
		}
		return nil
	}
	if err := l.kv.Put(ctx, key, amount.Bytes()); err != nil {
		return fmt.Errorf("failed to save balance of %s: %w", address, err)
	}
	return nil
}
