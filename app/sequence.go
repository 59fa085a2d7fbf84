package app

import (
	"context"
	"errors"
	"fmt"

	ds "github.com/ipfs/go-datastore"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rollkit/fastlane/pkg/store"
	"github.com/rollkit/fastlane/types"
)

// sequences tracks the next sequence each signer must use.
type sequences struct {
	kv store.KV
}

func newSequences(kv store.KV) *sequences {
	return &sequences{kv: store.NewPrefixKV(kv, store.SequencesPrefix)}
}

func (s *sequences) next(ctx context.Context, address string) (uint64, error) {
	bz, err := s.kv.Get(ctx, store.AddressKey(address))
	if errors.Is(err, ds.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load sequence of %s: %w", address, err)
	}
	seq, n := protowire.ConsumeVarint(bz)
	if n < 0 || n != len(bz) {
		return 0, fmt.Errorf("corrupt sequence of %s", address)
	}
	return seq, nil
}

// consume checks that seq is the next sequence of address and advances it.
func (s *sequences) consume(ctx context.Context, address string, seq uint64) error {
	expected, err := s.next(ctx, address)
	if err != nil {
		return err
	}
	if seq != expected {
		return fmt.Errorf("%w: %s sent %d, expected %d", types.ErrInvalidSequence, address, seq, expected)
	}
	if expected+1 == 0 {
		return fmt.Errorf("%w: sequence of %s", types.ErrArithmeticOverflow, address)
	}
	return s.kv.Put(ctx, store.AddressKey(address), protowire.AppendVarint(nil, expected+1))
}
