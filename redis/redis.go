package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/roomsync/roomsync/chat"
	"github.com/rs/xid"
)

// channel is the pub/sub channel carrying message table changes.
const channel = "messages:events"

// Broker fans message table changes out over Redis Pub/Sub. It is both
// the Publisher used by the store wrapper and the Feed consumed by the
// engine.
type Broker struct {
	cli    *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	active *Subscription
}

var (
	_ chat.Feed      = (*Broker)(nil)
	_ chat.Publisher = (*Broker)(nil)
)

// Connect connects to the Redis server and pings it to ensure the
// connection is working.
func Connect(ctx context.Context, addr string, logger *slog.Logger) (*Broker, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Broker{
		cli:    cli,
		logger: logger,
	}, nil
}

// Publish sends one row-change event to every live subscriber.
func (b *Broker) Publish(ctx context.Context, ev chat.Event) error {
	payload, err := json.Marshal(fromChatEvent(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.cli.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Subscribe opens a realtime subscription. Any prior subscription held
// by this broker is torn down first so events are never delivered
// twice to the same client.
func (b *Broker) Subscribe(ctx context.Context) (chat.Subscription, error) {
	b.mu.Lock()
	prev := b.active
	b.active = nil
	b.mu.Unlock()
	if prev != nil {
		if err := prev.Close(); err != nil {
			b.logger.Warn("Could not close previous subscription", "id", prev.id, "error", err.Error())
		}
	}

	ps := b.cli.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no event published
	// after Subscribe returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: %v", chat.ErrSubscription, err)
	}

	sub := &Subscription{
		id:     xid.New().String(),
		pubsub: ps,
		events: make(chan chat.Event),
		quit:   make(chan struct{}),
	}
	go sub.run(b.logger)

	b.mu.Lock()
	b.active = sub
	b.mu.Unlock()
	b.logger.Info("Realtime subscription established", "id", sub.id)
	return sub, nil
}

// Close releases the active subscription, if any, and the underlying
// client.
func (b *Broker) Close() error {
	b.mu.Lock()
	active := b.active
	b.active = nil
	b.mu.Unlock()
	if active != nil {
		_ = active.Close()
	}
	return b.cli.Close()
}

// A Subscription is one live pub/sub channel of decoded events.
type Subscription struct {
	id     string
	pubsub *redis.PubSub
	events chan chat.Event
	quit   chan struct{}
	once   sync.Once
}

var _ chat.Subscription = (*Subscription)(nil)

// Events returns the decoded event stream. The channel is closed when
// the subscription is released.
func (s *Subscription) Events() <-chan chat.Event {
	return s.events
}

// Close releases the subscription. Close is idempotent.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.quit)
		err = s.pubsub.Close()
	})
	return err
}

func (s *Subscription) run(logger *slog.Logger) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var ev event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Error("Could not decode event payload", "id", s.id, "error", err.Error())
			continue
		}
		// Don't block on a consumer that went away mid-teardown.
		select {
		case s.events <- ev.chatEvent():
		case <-s.quit:
			return
		}
	}
}
