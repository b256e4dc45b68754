package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBus is a Bus backed by Redis Pub/Sub, so events published by the
// Worker process reach edge-layer processes subscribing from elsewhere.
// Each topic maps to one Redis channel ("snapthumb:" + topic); messages are
// JSON-encoded Events.
type RedisBus struct {
	client *redis.Client
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	topics map[Topic]*redisTopic
}

type redisTopic struct {
	pubsub      *redis.PubSub
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan Event
}

// NewRedisBus connects to addr and returns a ready-to-use bus. The returned
// bus owns a background context for its Redis subscriptions; call Close to
// tear them down.
func NewRedisBus(addr string) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ctx:    ctx,
		cancel: cancel,
		topics: make(map[Topic]*redisTopic),
	}
}

// NewRedisBusFromClient wraps an existing client, letting callers (and
// tests, against a miniredis instance) share a connection with the Queue.
func NewRedisBusFromClient(client *redis.Client) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		client: client,
		ctx:    ctx,
		cancel: cancel,
		topics: make(map[Topic]*redisTopic),
	}
}

func channelName(topic Topic) string {
	return fmt.Sprintf("snapthumb:%s", topic)
}

func (b *RedisBus) Publish(topic Topic, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(b.ctx, channelName(topic), payload).Err(); err != nil {
		log.Printf("eventbus: publish to %s failed: %v", topic, err)
		return nil
	}
	return nil
}

func (b *RedisBus) Subscribe(topic Topic) (<-chan Event, func()) {
	b.mu.Lock()
	rt, ok := b.topics[topic]
	if !ok {
		rt = &redisTopic{
			pubsub:      b.client.Subscribe(b.ctx, channelName(topic)),
			subscribers: make(map[uuid.UUID]chan Event),
		}
		b.topics[topic] = rt
		go b.pump(topic, rt)
	}
	b.mu.Unlock()

	id := uuid.New()
	ch := make(chan Event, 64)
	rt.mu.Lock()
	rt.subscribers[id] = ch
	rt.mu.Unlock()

	unsubscribe := func() {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		if c, ok := rt.subscribers[id]; ok {
			close(c)
			delete(rt.subscribers, id)
		}
	}

	return ch, unsubscribe
}

func (b *RedisBus) pump(topic Topic, rt *redisTopic) {
	ch := rt.pubsub.Channel()
	for msg := range ch {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("eventbus: malformed message on %s: %v", topic, err)
			continue
		}

		rt.mu.RLock()
		for _, sub := range rt.subscribers {
			select {
			case sub <- event:
			default:
				log.Printf("eventbus: subscriber channel full on topic %s, dropping event for job %s", topic, event.JobID)
			}
		}
		rt.mu.RUnlock()
	}
}

func (b *RedisBus) Close() error {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rt := range b.topics {
		rt.pubsub.Close()
		rt.mu.Lock()
		for id, ch := range rt.subscribers {
			close(ch)
			delete(rt.subscribers, id)
		}
		rt.mu.Unlock()
	}
	return b.client.Close()
}
