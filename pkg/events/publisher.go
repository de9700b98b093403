// Package events publishes batch classification events to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/agriclassify/pkg/logging"
)

// Redis channels for classification events
const (
	ChannelItemResolved   = "events.agriclassify.item_resolved"
	ChannelBatchCompleted = "events.agriclassify.batch_completed"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with sensible defaults.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "agriclassify",
		Version:   "1.0",
	}
}

// ItemResolvedEvent is published each time one image reaches its terminal state.
type ItemResolvedEvent struct {
	BaseEvent

	BatchID string `json:"batch_id"`
	ItemID  string `json:"item_id"`
	Name    string `json:"name,omitempty"`

	Outcome    string   `json:"outcome"`
	Label      string   `json:"label,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Code       string   `json:"code,omitempty"`

	ResolvedCount int `json:"resolved_count"`
	TotalCount    int `json:"total_count"`
}

// BatchCompletedEvent is published once a run has resolved every item and
// settled its summary state.
type BatchCompletedEvent struct {
	BaseEvent

	BatchID string `json:"batch_id"`

	TotalCount      int `json:"total_count"`
	SucceededCount  int `json:"succeeded_count"`
	NotProduceCount int `json:"not_produce_count"`
	FailedCount     int `json:"failed_count"`
	QualifyingCount int `json:"qualifying_count"`

	SummaryState  string `json:"summary_state"`
	Summary       string `json:"summary,omitempty"`
	SummaryReason string `json:"summary_reason,omitempty"`

	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// redisClient is the subset of *redis.Client the publisher needs.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Publisher publishes classification events to Redis.
type Publisher struct {
	client redisClient
	logger logging.Logger
}

// PublisherConfig holds Redis connection configuration.
type PublisherConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *redis.Client, logger logging.Logger) *Publisher {
	return newPublisher(client, logger)
}

func newPublisher(client redisClient, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Publisher{
		client: client,
		logger: logger.With(logging.F("component", "event_publisher")),
	}
}

// NewPublisherFromConfig creates a publisher with a new Redis connection.
func NewPublisherFromConfig(cfg PublisherConfig, logger logging.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPublisher(client, logger), nil
}

// PublishItemResolved publishes an event for one resolved item.
func (p *Publisher) PublishItemResolved(ctx context.Context, event ItemResolvedEvent) error {
	event.BaseEvent = NewBaseEvent("batch.item_resolved")
	return p.publish(ctx, ChannelItemResolved, event)
}

// PublishBatchCompleted publishes a completion event for a run.
func (p *Publisher) PublishBatchCompleted(ctx context.Context, event BatchCompletedEvent) error {
	event.BaseEvent = NewBaseEvent("batch.completed")
	if !event.CompletedAt.IsZero() && !event.StartedAt.IsZero() {
		event.DurationSeconds = event.CompletedAt.Sub(event.StartedAt).Seconds()
	}
	return p.publish(ctx, ChannelBatchCompleted, event)
}

// publish serializes and publishes an event to Redis.
func (p *Publisher) publish(ctx context.Context, channel string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", channel))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		logging.F("channel", channel),
		logging.F("payload_size", len(data)))

	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
