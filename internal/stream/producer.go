// Package stream publishes trade lifecycle events to Kafka.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/efreitasn/tradeledger/internal/domain"
)

// Event names published on the trade topic.
const (
	EventTradeCreated  = "trade.created"
	EventTradeUpdated  = "trade.updated"
	EventTradeDeleted  = "trade.deleted"
	EventTradeExecuted = "trade.executed"
)

// Event is the envelope published for every trade lifecycle change.
type Event struct {
	Event     string             `json:"event"`
	Timestamp time.Time          `json:"timestamp"`
	Trade     domain.TradeRecord `json:"trade"`
}

// Option configures the producer.
type Option func(*config)

type config struct {
	brokers  []string
	clientID string
	topic    string
	franzOpt []kgo.Opt
}

// WithBrokers sets the Kafka seed brokers.
func WithBrokers(brokers ...string) Option {
	return func(c *config) {
		c.brokers = brokers
	}
}

// WithClientID sets the Kafka client ID.
func WithClientID(clientID string) Option {
	return func(c *config) {
		c.clientID = clientID
	}
}

// WithTopic sets the topic events are published to.
func WithTopic(topic string) Option {
	return func(c *config) {
		c.topic = topic
	}
}

// WithFranzOpt appends a raw franz-go client option.
func WithFranzOpt(opt kgo.Opt) Option {
	return func(c *config) {
		c.franzOpt = append(c.franzOpt, opt)
	}
}

// kafkaClient is the slice of the franz-go client the producer uses.
type kafkaClient interface {
	Produce(ctx context.Context, record *kgo.Record, callback func(*kgo.Record, error))
	Close()
}

// Producer publishes trade events, keyed by trade ID. A nil Producer
// is valid and publishes nothing.
type Producer struct {
	client kafkaClient
	topic  string
	logger *slog.Logger
}

// NewProducer creates a Kafka-backed producer.
func NewProducer(logger *slog.Logger, opts ...Option) (*Producer, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	franzOpts := []kgo.Opt{
		kgo.SeedBrokers(cfg.brokers...),
		kgo.ClientID(cfg.clientID),
	}
	franzOpts = append(franzOpts, cfg.franzOpt...)

	franz, err := kgo.NewClient(franzOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{client: franz, topic: cfg.topic, logger: logger}, nil
}

// Publish produces the event asynchronously. Fire-and-forget:
// delivery failures are logged, never returned to the caller.
func (p *Producer) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}

	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal trade event",
			slog.String("event", ev.Event),
			slog.String("error", err.Error()),
		)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.Trade.ID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("publish trade event",
				slog.String("event", ev.Event),
				slog.String("trade_id", ev.Trade.ID),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
