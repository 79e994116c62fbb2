// Package ledger defines the world-state collaborator the trade store
// persists through, together with an in-process and a Postgres-backed
// implementation. The interface mirrors the key-value surface a
// hosting ledger platform provides: point get/put/delete plus an
// ordered range scan.
package ledger

import "context"

// Ledger is the externally owned key-value state store.
type Ledger interface {
	// Get returns the bytes stored under key, or (nil, nil) when the
	// key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Range returns a one-shot iterator over [startKey, endKey) in
	// ascending key order. Empty startKey and endKey denote an
	// unbounded full scan.
	Range(ctx context.Context, startKey, endKey string) (Iterator, error)
}

// Iterator is a one-shot cursor over a key range, in the style of
// sql.Rows: Next advances, Key/Value read the current entry, Err
// reports a scan failure after Next returns false.
type Iterator interface {
	Next() bool
	Key() string
	Value() []byte
	Err() error
	Close() error
}
