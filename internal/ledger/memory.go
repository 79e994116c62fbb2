package ledger

import (
	"context"
	"sync"

	"github.com/google/btree"
)

type kvEntry struct {
	key   string
	value []byte
}

func kvLess(a, b kvEntry) bool {
	return a.key < b.key
}

// MemoryLedger is an in-process world state backed by a B-tree so
// range scans come back in ascending key order. Safe for concurrent
// use.
type MemoryLedger struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[kvEntry]
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	const degree = 32
	return &MemoryLedger{
		tree: btree.NewG[kvEntry](degree, kvLess),
	}
}

// Get returns the bytes stored under key, or (nil, nil) when absent.
func (l *MemoryLedger) Get(_ context.Context, key string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.tree.Get(kvEntry{key: key})
	if !ok {
		return nil, nil
	}
	// Copy so callers can't mutate stored bytes.
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Put stores a copy of value under key.
func (l *MemoryLedger) Put(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tree.ReplaceOrInsert(kvEntry{key: key, value: stored})
	return nil
}

// Delete removes key. A no-op when the key is absent.
func (l *MemoryLedger) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tree.Delete(kvEntry{key: key})
	return nil
}

// Range snapshots [startKey, endKey) under the read lock, so the
// returned iterator is stable against concurrent writes. Empty bounds
// scan everything.
func (l *MemoryLedger) Range(_ context.Context, startKey, endKey string) (Iterator, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var entries []kvEntry
	collect := func(entry kvEntry) bool {
		entries = append(entries, entry)
		return true
	}

	switch {
	case startKey == "" && endKey == "":
		l.tree.Ascend(collect)
	case endKey == "":
		l.tree.AscendGreaterOrEqual(kvEntry{key: startKey}, collect)
	case startKey == "":
		l.tree.AscendLessThan(kvEntry{key: endKey}, collect)
	default:
		l.tree.AscendRange(kvEntry{key: startKey}, kvEntry{key: endKey}, collect)
	}

	return &memoryIterator{entries: entries, idx: -1}, nil
}

// Len returns the number of stored keys.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.Len()
}

type memoryIterator struct {
	entries []kvEntry
	idx     int
}

func (it *memoryIterator) Next() bool {
	if it.idx >= len(it.entries) {
		return false
	}
	it.idx++
	return it.idx < len(it.entries)
}

func (it *memoryIterator) Key() string {
	return it.entries[it.idx].key
}

func (it *memoryIterator) Value() []byte {
	return it.entries[it.idx].value
}

func (it *memoryIterator) Err() error {
	return nil
}

func (it *memoryIterator) Close() error {
	it.idx = len(it.entries)
	return nil
}
