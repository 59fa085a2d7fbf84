package rootcache

import (
	"context"
	"errors"
	"fmt"

	ds "github.com/ipfs/go-datastore"

	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/store"
	"github.com/rollkit/fastlane/types"
)

// DefaultCapacity is the number of roots kept per chain unless configured otherwise.
const DefaultCapacity = 6

// Cache is the per-chain bounded history of agreed roots. It reads and writes
// through the KV of the enclosing call, so nothing it writes is visible before
// that call commits.
type Cache struct {
	kv       store.KV
	capacity uint64
	logger   log.Logger
}

// New returns a cache over kv creating new histories with the given capacity.
func New(kv store.KV, capacity uint64, logger log.Logger) *Cache {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		kv:       store.NewPrefixKV(kv, store.RootsPrefix),
		capacity: capacity,
		logger:   logger.With("component", "rootcache"),
	}
}

// Write records root as agreed for chainID. Writing a root that is already
// present leaves the history untouched.
func (c *Cache) Write(ctx context.Context, chainID string, root []byte) error {
	if chainID == "" {
		return fmt.Errorf("%w: empty chain id", types.ErrMalformedInput)
	}
	if len(root) == 0 {
		return fmt.Errorf("%w: empty root for chain %s", types.ErrMalformedInput, chainID)
	}

	h, found, err := c.load(ctx, chainID)
	if err != nil {
		return err
	}
	if !found {
		h = History{ChainID: chainID, Capacity: c.capacity}
	}
	if !h.push(root) {
		c.logger.Debug("root already cached", "chain_id", chainID, "root", fmt.Sprintf("%X", root))
		return nil
	}

	if err := c.kv.Put(ctx, store.ChainKey(chainID), h.marshal()); err != nil {
		return fmt.Errorf("failed to save root history for %s: %w", chainID, err)
	}
	c.logger.Info("cached agreed root", "chain_id", chainID, "root", fmt.Sprintf("%X", root), "size", len(h.Roots))
	return nil
}

// Lookup returns the age of root in the history of chainID, 1 being the most
// recent root. Unknown chains and roots yield types.ErrNotFound.
func (c *Cache) Lookup(ctx context.Context, chainID string, root []byte) (uint64, error) {
	h, found, err := c.load(ctx, chainID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: no roots for chain %s", types.ErrNotFound, chainID)
	}
	age, ok := h.age(root)
	if !ok {
		return 0, fmt.Errorf("%w: root %X for chain %s", types.ErrNotFound, root, chainID)
	}
	return age, nil
}

// History returns the stored history of chainID.
func (c *Cache) History(ctx context.Context, chainID string) (History, error) {
	h, found, err := c.load(ctx, chainID)
	if err != nil {
		return History{}, err
	}
	if !found {
		return History{}, fmt.Errorf("%w: no roots for chain %s", types.ErrNotFound, chainID)
	}
	return h, nil
}

func (c *Cache) load(ctx context.Context, chainID string) (History, bool, error) {
	bz, err := c.kv.Get(ctx, store.ChainKey(chainID))
	if errors.Is(err, ds.ErrNotFound) {
		return History{}, false, nil
	}
	if err != nil {
		return History{}, false, fmt.Errorf("failed to load root history for %s: %w", chainID, err)
	}
	var h History
	if err := h.unmarshal(bz); err != nil {
		return History{}, false, err
	}
	return h, true, nil
}
