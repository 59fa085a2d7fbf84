package store

import (
	"context"
	"fmt"
	"sort"

	ds "github.com/ipfs/go-datastore"
)

var _ Txn = (*bufferedTxn)(nil)

// bufferedTxn keeps writes in memory until Commit, then applies them through
// a single datastore batch. A nil value in pending marks a deletion.
type bufferedTxn struct {
	db       ds.Batching
	pending  map[ds.Key][]byte
	readOnly bool
	closed   bool
}

func newBufferedTxn(db ds.Batching, readOnly bool) *bufferedTxn {
	return &bufferedTxn{
		db:       db,
		pending:  make(map[ds.Key][]byte),
		readOnly: readOnly,
	}
}

// Get returns the pending value for key if any, otherwise the stored one.
func (t *bufferedTxn) Get(ctx context.Context, key ds.Key) ([]byte, error) {
	if t.closed {
		return nil, ErrTxnClosed
	}
	if value, ok := t.pending[key]; ok {
		if value == nil {
			return nil, ds.ErrNotFound
		}
		return append([]byte(nil), value...), nil
	}
	return t.db.Get(ctx, key)
}

// Has reports whether key exists, taking pending writes into account.
func (t *bufferedTxn) Has(ctx context.Context, key ds.Key) (bool, error) {
	if t.closed {
		return false, ErrTxnClosed
	}
	if value, ok := t.pending[key]; ok {
		return value != nil, nil
	}
	return t.db.Has(ctx, key)
}

// Put records a write.
func (t *bufferedTxn) Put(ctx context.Context, key ds.Key, value []byte) error {
	if err := t.writable(); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	t.pending[key] = append([]byte(nil), value...)
	return nil
}

// Delete records a deletion.
func (t *bufferedTxn) Delete(ctx context.Context, key ds.Key) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.pending[key] = nil
	return nil
}

// Commit applies all pending writes atomically, in key order.
func (t *bufferedTxn) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxnClosed
	}
	t.closed = true
	if len(t.pending) == 0 {
		return nil
	}

	keys := make([]ds.Key, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	batch, err := t.db.Batch(ctx)
	if err != nil {
		return fmt.Errorf("failed to create a new batch: %w", err)
	}
	for _, k := range keys {
		value := t.pending[k]
		if value == nil {
			if err := batch.Delete(ctx, k); err != nil {
				return fmt.Errorf("failed to delete %s in batch: %w", k, err)
			}
			continue
		}
		if err := batch.Put(ctx, k, value); err != nil {
			return fmt.Errorf("failed to put %s in batch: %w", k, err)
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	t.pending = nil
	return nil
}

// Discard drops all pending writes.
func (t *bufferedTxn) Discard(context.Context) {
	t.closed = true
	t.pending = nil
}

func (t *bufferedTxn) writable() error {
	if t.closed {
		return ErrTxnClosed
	}
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}
