// Package engine implements the trade matching policy: netting one
// sell order against one buy order at an agreed execution price.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/store"
)

// MatchResult describes the record set produced by a match. Exactly
// one Executed record is always created. Survivor is the partially
// filled side with its value reduced, nil when both sides filled
// completely. Deleted lists the ids removed from the ledger.
type MatchResult struct {
	Executed domain.TradeRecord  `json:"executed"`
	Survivor *domain.TradeRecord `json:"survivor"`
	Deleted  []string            `json:"deleted"`
}

// settle computes the next record set for netting sell against buy at
// price. Pure: no ledger access, no clock, no randomness.
//
// The side that is not fully consumed keeps its own identity (id,
// owner, type, price) and only its value shrinks; the consumed side
// is deleted. The Executed record always carries the buy side's owner
// and quantity as read, at the execution price.
func settle(sell, buy domain.TradeRecord, price float64, executedID string, now time.Time) MatchResult {
	executed := domain.TradeRecord{
		ID:           executedID,
		Owner:        buy.Owner,
		TradeType:    domain.TradeTypeExecuted,
		Value:        buy.Value,
		Price:        price,
		CreationDate: now,
	}

	switch {
	case sell.Value > buy.Value:
		sell.Value -= buy.Value
		sell.UpdatedDate = &now
		return MatchResult{Executed: executed, Survivor: &sell, Deleted: []string{buy.ID}}
	case sell.Value == buy.Value:
		return MatchResult{Executed: executed, Deleted: []string{sell.ID, buy.ID}}
	default:
		buy.Value -= sell.Value
		buy.UpdatedDate = &now
		return MatchResult{Executed: executed, Survivor: &buy, Deleted: []string{sell.ID}}
	}
}

// Matcher applies the matching policy through the trade store.
type Matcher struct {
	store *store.TradeStore
}

// NewMatcher creates a Matcher over the given store.
func NewMatcher(s *store.TradeStore) *Matcher {
	return &Matcher{store: s}
}

// ExecuteTrade reads both sides, checks the matching preconditions,
// and persists the settlement: deletes the consumed side(s), reduces
// the surviving side in place, and creates the Executed record under
// a fresh id. Either input being absent surfaces as
// domain.ErrTradeNotFound.
func (m *Matcher) ExecuteTrade(ctx context.Context, sellID, buyID string, price float64) (*MatchResult, error) {
	sell, err := m.store.Read(ctx, sellID)
	if err != nil {
		return nil, err
	}
	buy, err := m.store.Read(ctx, buyID)
	if err != nil {
		return nil, err
	}

	if sell.TradeType != domain.TradeTypeSell {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("trade %s is not a sell order (type %s)", sellID, sell.TradeType),
		}
	}
	if buy.TradeType != domain.TradeTypeAsk {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("trade %s is not a buy order (type %s)", buyID, buy.TradeType),
		}
	}

	result := settle(*sell, *buy, price, uuid.New().String(), time.Now().UTC())

	for _, id := range result.Deleted {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, err
		}
	}
	if sv := result.Survivor; sv != nil {
		if err := m.store.Update(ctx, sv.ID, sv.Owner, sv.TradeType, sv.Value, sv.Price, *sv.UpdatedDate); err != nil {
			return nil, err
		}
	}
	if err := m.store.Create(ctx, &result.Executed); err != nil {
		return nil, err
	}

	return &result, nil
}
