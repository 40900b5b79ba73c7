package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/falabella-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductScraped is published once per accepted record.
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"

	DefaultStream = "stream:scraped_products"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Event is the envelope written to the data field of each stream entry.
type Event struct {
	ID        string                `json:"id"`
	Type      EventType             `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
	RunID     string                `json:"run_id"`
	Payload   *models.ProductRecord `json:"payload"`
}

// StreamPublisher appends accepted records to a Redis stream.
type StreamPublisher struct {
	redis  RedisClient
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewStreamPublisher(client RedisClient, stream string, maxLen int64, logger *slog.Logger) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPublisher{
		redis:  client,
		stream: stream,
		maxLen: maxLen,
		logger: logger.With("component", "event_publisher"),
	}
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (p *StreamPublisher) Name() string {
	return "redis"
}

// Publish writes one PRODUCT_SCRAPED entry for rec.
func (p *StreamPublisher) Publish(ctx context.Context, rec *models.ProductRecord) error {
	event := Event{
		ID:        uuid.New().String(),
		Type:      EventTypeProductScraped,
		Timestamp: time.Now().UTC(),
		RunID:     rec.RunID,
		Payload:   rec,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"event_id":   event.ID,
			"event_type": string(event.Type),
			"timestamp":  fmt.Sprintf("%d", event.Timestamp.UnixNano()),
			"run_id":     rec.RunID,
			"link":       rec.Link,
			"category":   rec.Category,
			"status":     rec.Status,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published", "stream", p.stream, "entry_id", id, "event_id", event.ID, "link", rec.Link)
	return nil
}

func (p *StreamPublisher) Close() error {
	return p.redis.Close()
}
