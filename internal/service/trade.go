package service

import (
	"context"
	"time"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/engine"
	"github.com/efreitasn/tradeledger/internal/store"
	"github.com/efreitasn/tradeledger/internal/stream"
)

// EventPublisher publishes trade lifecycle events. Satisfied by
// *stream.Producer. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, ev stream.Event)
}

// TradeService implements the invocable operation surface: ledger
// seeding, trade CRUD and trade execution. All argument validation
// happens here; the store and matcher stay permissive.
type TradeService struct {
	store   *store.TradeStore
	matcher *engine.Matcher
	events  EventPublisher
}

// NewTradeService creates a TradeService. events may be nil.
func NewTradeService(s *store.TradeStore, m *engine.Matcher, events EventPublisher) *TradeService {
	return &TradeService{store: s, matcher: m, events: events}
}

var seedCreation = time.Date(2021, time.April, 3, 19, 32, 39, 0, time.UTC)

// seedTrades are the six demonstration records written by InitLedger.
var seedTrades = []domain.TradeRecord{
	{ID: "2d2e1c76-7263-4f99-b46a-df2429f7fb35", Owner: "Miguel Salinas", TradeType: domain.TradeTypeSell, Value: 5, Price: 55, CreationDate: seedCreation},
	{ID: "26278c76-68ef-464d-b05f-734199bbf062", Owner: "Jorge Carro", TradeType: domain.TradeTypeAsk, Value: 2, Price: 50, CreationDate: seedCreation},
	{ID: "4213c71e-e158-47a6-a466-65a9938089d1", Owner: "Raul Sanchez", TradeType: domain.TradeTypeSell, Value: 4, Price: 56, CreationDate: seedCreation},
	{ID: "f038f3cb-9998-4c28-a7a6-a485aaf38801", Owner: "Laura Montes", TradeType: domain.TradeTypeAsk, Value: 1, Price: 49, CreationDate: seedCreation},
	{ID: "8f09911e-d090-4efe-aaee-8e224ff317ef", Owner: "Maria Ley", TradeType: domain.TradeTypeAsk, Value: 6, Price: 51, CreationDate: seedCreation},
	{ID: "f365eebc-9161-4a8e-b318-6b5d086e60fb", Owner: "Eddie Man", TradeType: domain.TradeTypeAsk, Value: 3, Price: 50, CreationDate: seedCreation},
}

// InitLedger seeds the six demonstration records. Existing records
// under the seed ids are overwritten. Returns the seeded records.
func (s *TradeService) InitLedger(ctx context.Context) ([]domain.TradeRecord, error) {
	for i := range seedTrades {
		rec := seedTrades[i]
		if err := s.store.Create(ctx, &rec); err != nil {
			return nil, err
		}
	}
	return seedTrades, nil
}

// TradeExists reports whether a record is stored under id.
func (s *TradeService) TradeExists(ctx context.Context, id string) (bool, error) {
	return s.store.Exists(ctx, id)
}

// GetAllTrades returns every (key, record) pair in the world state.
func (s *TradeService) GetAllTrades(ctx context.Context) ([]store.ListEntry, error) {
	return s.store.ListAll(ctx)
}

// ReadTrade returns the record stored under id.
func (s *TradeService) ReadTrade(ctx context.Context, id string) (*domain.TradeRecord, error) {
	return s.store.Read(ctx, id)
}

// CreateTrade validates the fields and writes a new record. A fresh
// trade must be a Sell or an Ask; colliding ids are rejected with
// domain.ErrTradeAlreadyExists.
func (s *TradeService) CreateTrade(ctx context.Context, id, owner string, tradeType domain.TradeType, value, price float64, creationDate time.Time) (*domain.TradeRecord, error) {
	if err := validateTradeFields(id, owner, value, price); err != nil {
		return nil, err
	}
	if tradeType != domain.TradeTypeSell && tradeType != domain.TradeTypeAsk {
		return nil, &domain.ValidationError{
			Message: "trade_type must be 'Sell' or 'Ask'",
		}
	}

	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrTradeAlreadyExists
	}

	rec := &domain.TradeRecord{
		ID:           id,
		Owner:        owner,
		TradeType:    tradeType,
		Value:        value,
		Price:        price,
		CreationDate: creationDate,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.publish(ctx, stream.EventTradeCreated, *rec)
	return rec, nil
}

// UpdateTrade validates the fields and rewrites the record stored
// under id, preserving its CreationDate and stamping updatedDate.
func (s *TradeService) UpdateTrade(ctx context.Context, id, owner string, tradeType domain.TradeType, value, price float64, updatedDate time.Time) error {
	if err := validateTradeFields(id, owner, value, price); err != nil {
		return err
	}
	switch tradeType {
	case domain.TradeTypeSell, domain.TradeTypeAsk, domain.TradeTypeExecuted:
	default:
		return &domain.ValidationError{
			Message: "trade_type must be one of: Sell, Ask, Executed",
		}
	}

	if err := s.store.Update(ctx, id, owner, tradeType, value, price, updatedDate); err != nil {
		return err
	}

	s.publish(ctx, stream.EventTradeUpdated, domain.TradeRecord{
		ID:          id,
		Owner:       owner,
		TradeType:   tradeType,
		Value:       value,
		Price:       price,
		UpdatedDate: &updatedDate,
	})
	return nil
}

// DeleteTrade removes the record stored under id.
func (s *TradeService) DeleteTrade(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, stream.EventTradeDeleted, domain.TradeRecord{ID: id})
	return nil
}

// ExecutedTrade nets the sell order against the buy order at the
// given execution price.
func (s *TradeService) ExecutedTrade(ctx context.Context, sellID, buyID string, price float64) (*engine.MatchResult, error) {
	if sellID == "" || buyID == "" {
		return nil, &domain.ValidationError{Message: "sell_id and buy_id are required"}
	}
	if sellID == buyID {
		return nil, &domain.ValidationError{Message: "sell_id and buy_id must differ"}
	}
	if price < 0 {
		return nil, &domain.ValidationError{Message: "price must not be negative"}
	}

	result, err := s.matcher.ExecuteTrade(ctx, sellID, buyID, price)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, stream.EventTradeExecuted, result.Executed)
	return result, nil
}

// publish dispatches a lifecycle event. Fire-and-forget: detached
// from the request's cancellation, skipped when no publisher is
// configured.
func (s *TradeService) publish(ctx context.Context, event string, trade domain.TradeRecord) {
	if s.events == nil {
		return
	}
	s.events.Publish(context.WithoutCancel(ctx), stream.Event{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Trade:     trade,
	})
}

func validateTradeFields(id, owner string, value, price float64) error {
	if id == "" {
		return &domain.ValidationError{Message: "id is required"}
	}
	if owner == "" {
		return &domain.ValidationError{Message: "owner is required"}
	}
	if value <= 0 {
		return &domain.ValidationError{Message: "value must be greater than 0"}
	}
	if price < 0 {
		return &domain.ValidationError{Message: "price must not be negative"}
	}
	return nil
}
