package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/toppicks/bestseller-scraper/internal/ingest"
)

// Stream carrying bestseller ranking transitions for downstream consumers
// (site cache invalidation, newsletter digests).
const SubmissionStream = "stream:bestseller_submissions"

// EventType identifies what happened to a category's ranking.
type EventType string

const (
	// EventTypeBestsellerSubmitted is published after the ingestion API
	// accepts a product as a category's new current bestseller.
	EventTypeBestsellerSubmitted EventType = "BESTSELLER_SUBMITTED"
)

// SubmittedPayload is the event body for EventTypeBestsellerSubmitted.
type SubmittedPayload struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	Payload   ingest.Payload `json:"payload"`
	Source    string         `json:"source"`
}

// RedisClient is the subset of go-redis used by the publisher, split out so
// tests can fake it.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher mirrors submissions onto a Redis stream. Optional: a nil
// Publisher is a no-op, and publish failures never fail the batch.
type Publisher struct {
	client RedisClient
	logger *slog.Logger
}

func NewPublisher(client RedisClient, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.With("component", "events"),
	}
}

// PublishSubmitted emits a BESTSELLER_SUBMITTED event for an accepted
// submission.
func (p *Publisher) PublishSubmitted(ctx context.Context, runID string, payload ingest.Payload) error {
	if p == nil || p.client == nil {
		return nil
	}

	event := SubmittedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeBestsellerSubmitted),
		Timestamp: time.Now(),
		RunID:     runID,
		Payload:   payload,
		Source:    "bestseller-scraper",
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: SubmissionStream,
		Values: map[string]interface{}{
			"data":         string(data),
			"event_type":   event.EventType,
			"aggregate_id": payload.Product.ASIN,
			"timestamp":    fmt.Sprintf("%d", event.Timestamp.UnixNano()),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"type", event.EventType,
		"event_id", event.EventID,
		"asin", payload.Product.ASIN,
	)
	return nil
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
