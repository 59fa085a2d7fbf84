package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v3"
	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	badger3 "github.com/ipfs/go-ds-badger3"
)

var (
	// ErrTxnClosed is returned when a transaction is used after Commit or Discard.
	ErrTxnClosed = errors.New("transaction already closed")
	// ErrReadOnly is returned when writing through a read-only transaction.
	ErrReadOnly = errors.New("transaction is read-only")
)

// KV is the key-value view handed to every state-owning component.
// All reads observe writes made earlier through the same view.
type KV interface {
	Get(ctx context.Context, key ds.Key) ([]byte, error)
	Has(ctx context.Context, key ds.Key) (bool, error)
	Put(ctx context.Context, key ds.Key, value []byte) error
	Delete(ctx context.Context, key ds.Key) error
}

// Txn is a KV scoped to one external call. Either every write is applied by
// Commit or none is, after Discard.
type Txn interface {
	KV
	Commit(ctx context.Context) error
	Discard(ctx context.Context)
}

// Store opens transactions over a datastore.
type Store struct {
	db ds.Batching
}

// New returns a Store backed by the given datastore.
func New(db ds.Batching) *Store {
	return &Store{db: db}
}

// NewTransaction opens a transaction. Datastores with native transactions
// (badger) are used directly, others get a write buffer flushed as one batch.
func (s *Store) NewTransaction(ctx context.Context, readOnly bool) (Txn, error) {
	if tds, ok := s.db.(ds.TxnDatastore); ok {
		txn, err := tds.NewTransaction(ctx, readOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to open transaction: %w", err)
		}
		return txn, nil
	}
	return newBufferedTxn(s.db, readOnly), nil
}

// Close safely closes underlying data storage, to ensure that data is actually saved.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewDefaultInMemoryKVStore builds a thread safe in-memory datastore.
func NewDefaultInMemoryKVStore() (ds.Batching, error) {
	return dssync.MutexWrap(ds.NewMapDatastore()), nil
}

// NewDefaultKVStore opens a badger datastore at rootDir/dbPath/dbName.
func NewDefaultKVStore(rootDir, dbPath, dbName string) (ds.Batching, error) {
	path := filepath.Join(rootify(rootDir, dbPath), dbName)
	opts := badger3.DefaultOptions
	opts.Options = opts.Options.WithSyncWrites(true).WithLoggingLevel(badger.WARNING)
	db, err := badger3.NewDatastore(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger datastore at %s: %w", path, err)
	}
	return db, nil
}

func rootify(rootDir, dbPath string) string {
	if filepath.IsAbs(dbPath) {
		return dbPath
	}
	return filepath.Join(rootDir, dbPath)
}
