package store

import (
	"context"
	"encoding/hex"
	"strconv"

	ds "github.com/ipfs/go-datastore"
)

const (
	// RootsPrefix namespaces the per-chain root histories.
	RootsPrefix = "roots"
	// ProcessedPrefix namespaces the processed transfer markers.
	ProcessedPrefix = "processed"
	// BalancesPrefix namespaces bank balances.
	BalancesPrefix = "balances"
	// SequencesPrefix namespaces the next sequence of each signer.
	SequencesPrefix = "sequences"
)

// GenesisKey marks that the genesis balances have been credited.
var GenesisKey = ds.NewKey("/genesis")

// ChainKey encodes an external chain id as a single key segment.
// Chain ids are hex encoded so separators inside them cannot alter the key layout.
func ChainKey(chainID string) ds.Key {
	return ds.NewKey(hex.EncodeToString([]byte(chainID)))
}

// AccountKey encodes the balance key of denom held by address.
func AccountKey(address, denom string) ds.Key {
	return ds.KeyWithNamespaces([]string{
		hex.EncodeToString([]byte(address)),
		hex.EncodeToString([]byte(denom)),
	})
}

// AddressKey encodes an account address as a single key segment.
func AddressKey(address string) ds.Key {
	return ds.NewKey(hex.EncodeToString([]byte(address)))
}

// UintKey encodes an unsigned id as a single key segment.
func UintKey(id uint64) ds.Key {
	return ds.NewKey(strconv.FormatUint(id, 10))
}

var _ KV = (*PrefixKV)(nil)

// PrefixKV is a KV view that prepends all keys with a given prefix.
type PrefixKV struct {
	kv     KV
	prefix ds.Key
}

// NewPrefixKV creates a PrefixKV on top of another KV.
func NewPrefixKV(kv KV, prefix string) *PrefixKV {
	return &PrefixKV{
		kv:     kv,
		prefix: ds.NewKey(prefix),
	}
}

// Get returns value for given key.
func (p *PrefixKV) Get(ctx context.Context, key ds.Key) ([]byte, error) {
	return p.kv.Get(ctx, p.prefix.Child(key))
}

// Has reports whether key exists.
func (p *PrefixKV) Has(ctx context.Context, key ds.Key) (bool, error) {
	return p.kv.Has(ctx, p.prefix.Child(key))
}

// Put updates the value for given key.
func (p *PrefixKV) Put(ctx context.Context, key ds.Key, value []byte) error {
	return p.kv.Put(ctx, p.prefix.Child(key), value)
}

// Delete deletes key-value pair for given key.
func (p *PrefixKV) Delete(ctx context.Context, key ds.Key) error {
	return p.kv.Delete(ctx, p.prefix.Child(key))
}
