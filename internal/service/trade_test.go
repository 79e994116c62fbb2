package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/engine"
	"github.com/efreitasn/tradeledger/internal/ledger"
	"github.com/efreitasn/tradeledger/internal/store"
	"github.com/efreitasn/tradeledger/internal/stream"
)

// fakePublisher records published events in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []stream.Event
}

func (f *fakePublisher) Publish(_ context.Context, ev stream.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakePublisher) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.events))
	for i, ev := range f.events {
		names[i] = ev.Event
	}
	return names
}

func newTestService(events EventPublisher) (*TradeService, *store.TradeStore) {
	s := store.NewTradeStore(ledger.NewMemoryLedger())
	return NewTradeService(s, engine.NewMatcher(s), events), s
}

func TestTradeService_InitLedgerSeedsSixRecords(t *testing.T) {
	svc, s := newTestService(nil)
	ctx := context.Background()

	seeded, err := svc.InitLedger(ctx)
	if err != nil {
		t.Fatalf("init ledger: %v", err)
	}
	if len(seeded) != 6 {
		t.Fatalf("expected 6 seeded records, got %d", len(seeded))
	}

	entries, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 records in world state, got %d", len(entries))
	}

	rec, err := svc.ReadTrade(ctx, "2d2e1c76-7263-4f99-b46a-df2429f7fb35")
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	if rec.Owner != "Miguel Salinas" || rec.TradeType != domain.TradeTypeSell || rec.Value != 5 || rec.Price != 55 {
		t.Fatalf("unexpected seed record: %+v", rec)
	}
}

func TestTradeService_CreateAndRead(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Second)

	rec, err := svc.CreateTrade(ctx, "trade-1", "Miguel Salinas", domain.TradeTypeSell, 5, 55, created)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID != "trade-1" || !rec.CreationDate.Equal(created) {
		t.Fatalf("unexpected created record: %+v", rec)
	}

	got, err := svc.ReadTrade(ctx, "trade-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Owner != "Miguel Salinas" || got.Value != 5 {
		t.Fatalf("unexpected read record: %+v", got)
	}
}

func TestTradeService_CreateRejectsCollision(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := svc.CreateTrade(ctx, "trade-1", "A", domain.TradeTypeSell, 5, 55, now); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.CreateTrade(ctx, "trade-1", "B", domain.TradeTypeAsk, 2, 50, now)
	if !errors.Is(err, domain.ErrTradeAlreadyExists) {
		t.Fatalf("expected ErrTradeAlreadyExists, got %v", err)
	}

	// Original record untouched.
	got, _ := svc.ReadTrade(ctx, "trade-1")
	if got.Owner != "A" {
		t.Fatalf("collision must not overwrite, got %+v", got)
	}
}

func TestTradeService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	tests := []struct {
		name      string
		id, owner string
		tradeType domain.TradeType
		value     float64
		price     float64
	}{
		{"empty id", "", "A", domain.TradeTypeSell, 5, 55},
		{"empty owner", "t1", "", domain.TradeTypeSell, 5, 55},
		{"zero value", "t1", "A", domain.TradeTypeSell, 0, 55},
		{"negative value", "t1", "A", domain.TradeTypeSell, -1, 55},
		{"negative price", "t1", "A", domain.TradeTypeSell, 5, -1},
		{"executed type on create", "t1", "A", domain.TradeTypeExecuted, 5, 55},
		{"unknown type", "t1", "A", domain.TradeType("Bogus"), 5, 55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTrade(ctx, tt.id, tt.owner, tt.tradeType, tt.value, tt.price, now)
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestTradeService_UpdateTrade(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, _ = svc.CreateTrade(ctx, "trade-1", "A", domain.TradeTypeSell, 5, 55, now)

	updatedAt := now.Add(time.Minute)
	if err := svc.UpdateTrade(ctx, "trade-1", "B", domain.TradeTypeAsk, 4, 52, updatedAt); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := svc.ReadTrade(ctx, "trade-1")
	if got.Owner != "B" || got.TradeType != domain.TradeTypeAsk || got.Value != 4 || got.Price != 52 {
		t.Fatalf("unexpected record after update: %+v", got)
	}
	if !got.CreationDate.Equal(now) {
		t.Fatalf("update must preserve CreationDate, got %v", got.CreationDate)
	}
	if got.UpdatedDate == nil || !got.UpdatedDate.Equal(updatedAt) {
		t.Fatalf("update must stamp UpdatedDate, got %v", got.UpdatedDate)
	}
}

func TestTradeService_UpdateMissing(t *testing.T) {
	svc, _ := newTestService(nil)

	err := svc.UpdateTrade(context.Background(), "missing", "A", domain.TradeTypeSell, 5, 55, time.Now())
	if !errors.Is(err, domain.ErrTradeNotFound) {
		t.Fatalf("expected ErrTradeNotFound, got %v", err)
	}
}

func TestTradeService_DeleteTrade(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, _ = svc.CreateTrade(ctx, "trade-1", "A", domain.TradeTypeSell, 5, 55, time.Now().UTC())

	if err := svc.DeleteTrade(ctx, "trade-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	exists, _ := svc.TradeExists(ctx, "trade-1")
	if exists {
		t.Fatal("expected trade gone after delete")
	}

	if err := svc.DeleteTrade(ctx, "trade-1"); !errors.Is(err, domain.ErrTradeNotFound) {
		t.Fatalf("expected ErrTradeNotFound on double delete, got %v", err)
	}
}

func TestTradeService_ExecutedTradeValidation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	tests := []struct {
		name          string
		sellID, buyID string
		price         float64
	}{
		{"empty sell id", "", "buy-1", 50},
		{"empty buy id", "sell-1", "", 50},
		{"same id on both sides", "trade-1", "trade-1", 50},
		{"negative price", "sell-1", "buy-1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExecutedTrade(ctx, tt.sellID, tt.buyID, tt.price)
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestTradeService_ExecutedTradeFlow(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _ = svc.CreateTrade(ctx, "sell-1", "seller", domain.TradeTypeSell, 5, 55, now)
	_, _ = svc.CreateTrade(ctx, "buy-1", "buyer", domain.TradeTypeAsk, 2, 50, now)

	result, err := svc.ExecutedTrade(ctx, "sell-1", "buy-1", 52)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Executed.Value != 2 || result.Executed.Price != 52 {
		t.Fatalf("unexpected executed record: %+v", result.Executed)
	}

	names := pub.names()
	want := []string{stream.EventTradeCreated, stream.EventTradeCreated, stream.EventTradeExecuted}
	if len(names) != len(want) {
		t.Fatalf("expected events %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, names)
		}
	}

	last := pub.events[len(pub.events)-1]
	if last.Trade.ID != result.Executed.ID || last.Trade.TradeType != domain.TradeTypeExecuted {
		t.Fatalf("executed event should carry the executed record, got %+v", last.Trade)
	}
}

func TestTradeService_EventsOptional(t *testing.T) {
	// A nil publisher must not panic anywhere on the write path.
	svc, _ := newTestService(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := svc.CreateTrade(ctx, "sell-1", "seller", domain.TradeTypeSell, 3, 55, now); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateTrade(ctx, "buy-1", "buyer", domain.TradeTypeAsk, 3, 50, now); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ExecutedTrade(ctx, "sell-1", "buy-1", 51); err != nil {
		t.Fatalf("execute: %v", err)
	}
}
