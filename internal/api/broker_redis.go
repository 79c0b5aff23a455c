package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type EventBroker interface {
	Subscribe(groupID string) chan SSEEvent
	Unsubscribe(groupID string, ch chan SSEEvent)
	Publish(groupID string, evt SSEEvent)
}

var (
	_ EventBroker = (*Broker)(nil)
	_ EventBroker = (*RedisBroker)(nil)
)

// RedisBroker implements EventBroker over Redis Pub/Sub so every API
// replica sees tours generated on any other.
type RedisBroker struct {
	rdb    *redis.Client
	logger zerolog.Logger

	mu  sync.Mutex
	pss map[chan SSEEvent]*redis.PubSub
}

func NewRedisBroker(url string, logger zerolog.Logger) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisBroker{rdb: rdb, logger: logger, pss: map[chan SSEEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(groupID string) chan SSEEvent {
	ch := make(chan SSEEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(groupID))
	// initial consume to ensure subscription
	if _, err := ps.Receive(ctx); err != nil {
		b.logger.Warn().Err(err).Str("group", groupID).Msg("redis subscribe")
	}
	b.mu.Lock()
	b.pss[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt SSEEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}()
	return ch
}

// Unsubscribe closes the PubSub; the forwarding goroutine then closes ch.
func (b *RedisBroker) Unsubscribe(groupID string, ch chan SSEEvent) {
	b.mu.Lock()
	ps := b.pss[ch]
	delete(b.pss, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(groupID string, evt SSEEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	if err := b.rdb.Publish(ctx, b.chanName(groupID), data).Err(); err != nil {
		b.logger.Warn().Err(err).Str("group", groupID).Msg("redis publish")
	}
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) chanName(groupID string) string { return "tours:" + groupID }
