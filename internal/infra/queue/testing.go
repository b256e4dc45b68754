package queue

// NewTestEntry constructs an Entry outside of the asynq dispatch path, for
// tests in other packages (internal/worker) that need to drive a
// QueueConsumer fake without a live Redis/asynq server. Not used by
// production code.
func NewTestEntry(env Envelope, attempt int) *Entry {
	return &Entry{
		dispatch: &dispatchEntry{
			envelope:   env,
			attempt:    attempt,
			doneCh:     make(chan error, 1),
			progressCh: make(chan int, 8),
		},
	}
}
