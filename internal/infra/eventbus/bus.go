package eventbus

// Bus is the topic-keyed publish/subscribe contract used by the Queue (for
// job-active and job-progress) and directly by the Worker (for
// job-completed and job-failed) to inform edge listeners without coupling
// them to a transport.
//
// Delivery is at-least-once, best-effort: Publish never blocks the caller
// and never returns an error the caller must act on beyond logging.
// Subscribers must be idempotent with respect to jobId+status.
type Bus interface {
	// Publish sends event on topic. It does not block; a slow or absent
	// subscriber never backs up the publisher.
	Publish(topic Topic, event Event) error

	// Subscribe returns a channel of events published on topic from this
	// point forward, and an unsubscribe function the caller must invoke
	// when done listening.
	Subscribe(topic Topic) (<-chan Event, func())

	// Close releases the bus's underlying connections.
	Close() error
}
