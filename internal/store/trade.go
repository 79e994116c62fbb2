package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/ledger"
)

// TradeStore persists TradeRecords through the world-state ledger.
// It owns no state of its own; the ledger is the source of truth.
type TradeStore struct {
	ledger ledger.Ledger
}

// NewTradeStore creates a TradeStore over the given ledger.
func NewTradeStore(l ledger.Ledger) *TradeStore {
	return &TradeStore{ledger: l}
}

// Exists reports whether a record is currently stored under id.
// It does not decode the stored bytes.
func (s *TradeStore) Exists(ctx context.Context, id string) (bool, error) {
	value, err := s.ledger.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return len(value) > 0, nil
}

// Read returns the record stored under id. It returns
// domain.ErrTradeNotFound when the key is absent and a
// domain.CorruptRecordError when the stored bytes fail to decode.
func (s *TradeStore) Read(ctx context.Context, id string) (*domain.TradeRecord, error) {
	value, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, domain.ErrTradeNotFound
	}

	var rec domain.TradeRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, &domain.CorruptRecordError{Key: id, Err: err}
	}
	return &rec, nil
}

// Create writes rec under rec.ID unconditionally, overwriting any
// existing value. Collision checks belong to the caller.
func (s *TradeStore) Create(ctx context.Context, rec *domain.TradeRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.ledger.Put(ctx, rec.ID, value)
}

// Update overwrites the owner, type, value and price of the record
// stored under id and stamps updatedDate. CreationDate is preserved.
// Returns domain.ErrTradeNotFound when id is absent.
func (s *TradeStore) Update(ctx context.Context, id, owner string, tradeType domain.TradeType, value, price float64, updatedDate time.Time) error {
	rec, err := s.Read(ctx, id)
	if err != nil {
		return err
	}

	rec.Owner = owner
	rec.TradeType = tradeType
	rec.Value = value
	rec.Price = price
	rec.UpdatedDate = &updatedDate

	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.ledger.Put(ctx, id, encoded)
}

// Delete removes the record stored under id. Returns
// domain.ErrTradeNotFound when id is absent.
func (s *TradeStore) Delete(ctx context.Context, id string) error {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrTradeNotFound
	}
	return s.ledger.Delete(ctx, id)
}

// ListEntry pairs a ledger key with its decoded record, or with the
// raw stored string when the bytes do not decode as a TradeRecord.
type ListEntry struct {
	Key    string `json:"Key"`
	Record any    `json:"Record"`
}

// ListAll enumerates every key in the ledger, in the key order the
// ledger supplies. One undecodable entry does not abort the listing:
// its value is passed through as a raw string instead.
func (s *TradeStore) ListAll(ctx context.Context) ([]ListEntry, error) {
	it, err := s.ledger.Range(ctx, "", "")
	if err != nil {
		return nil, err
	}
	defer it.Close()

	entries := []ListEntry{}
	for it.Next() {
		var rec domain.TradeRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			entries = append(entries, ListEntry{Key: it.Key(), Record: string(it.Value())})
			continue
		}
		entries = append(entries, ListEntry{Key: it.Key(), Record: rec})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
