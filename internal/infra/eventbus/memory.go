package eventbus

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// MemoryBus is an in-process Bus, a per-topic generalization of the
// workspace-scoped broadcaster this core's teacher uses for its SSE
// connections: instead of fanning out per-workspace, it fans out per-topic,
// and instead of one fixed client registry it accepts any number of
// subscribers per topic.
//
// Suitable for single-process deployments and tests; it cannot carry events
// across processes, unlike RedisBus.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[Topic]map[uuid.UUID]chan Event
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subscribers: make(map[Topic]map[uuid.UUID]chan Event),
	}
}

func (b *MemoryBus) Publish(topic Topic, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- event:
		default:
			log.Printf("eventbus: subscriber channel full on topic %s, dropping event for job %s", topic, event.JobID)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(topic Topic) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	ch := make(chan Event, 64)
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[uuid.UUID]chan Event)
	}
	b.subscribers[topic][id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[topic]; ok {
			if c, ok := subs[id]; ok {
				close(c)
				delete(subs, id)
			}
			if len(subs) == 0 {
				delete(b.subscribers, topic)
			}
		}
	}

	return ch, unsubscribe
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, subs := range b.subscribers {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subscribers, topic)
	}
	return nil
}
