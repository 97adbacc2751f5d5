// internal/history/redis.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for finished-match records.
var DefaultQueueName = "fight_results"

// MatchRecord holds the minimal info an out-of-process consumer needs about
// one finished match. The server fires these off and forgets them; lobby
// state itself is never persisted.
type MatchRecord struct {
	Code    string                 `json:"code"`
	Winner  string                 `json:"winner"`
	Scores  map[string]int         `json:"scores"`
	Stats   map[string]interface{} `json:"stats,omitempty"`
	EndedAt int64                  `json:"ended_at"`
}

// Publisher pushes match records onto a Redis queue. A nil Publisher is
// valid and drops everything, so Redis stays optional at runtime.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// Connect dials Redis at addr and verifies the connection with a short ping.
// The queue name can be overridden with HISTORY_QUEUE_NAME.
func Connect(addr string) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	queue := DefaultQueueName
	if q := os.Getenv("HISTORY_QUEUE_NAME"); q != "" {
		queue = q
	}
	return &Publisher{rdb: rdb, queue: queue}, nil
}

// PublishMatchResult serializes the record to JSON and pushes it onto the
// queue. Does not block the caller beyond a quick network send.
func (p *Publisher) PublishMatchResult(ctx context.Context, rec MatchRecord) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list %q: %w", p.queue, err)
	}
	return nil
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
