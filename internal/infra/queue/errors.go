package queue

import "errors"

var (
	// ErrDuplicateJob is returned by Enqueue when jobId already has a live
	// queue entry.
	ErrDuplicateJob = errors.New("queue: duplicate job id")
	// ErrStalled is returned internally by the dispatch loop when a reserved
	// entry receives no Ack, Nack, or progress refresh within the stall
	// window; asynq counts the returned error as a failed attempt.
	ErrStalled = errors.New("queue: entry stalled")
	// ErrAlreadyAcked is returned by a second Ack or Nack call against an
	// entry that has already been resolved.
	ErrAlreadyAcked = errors.New("queue: entry already acked")
	// ErrClosed is returned by Reserve once the queue has been shut down.
	ErrClosed = errors.New("queue: closed")
)
