package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/snapthumb/snapthumb/internal/infra/eventbus"
)

// Config controls the asynq engine behind Queue.
type Config struct {
	RedisAddr     string
	MaxAttempts   int           // default 3
	BackoffBase   time.Duration // default 2s
	StallWindow   time.Duration // default = jobTimeout, see worker config
	Concurrency   int           // asynq server-side concurrency; the worker layer also bounds reservation loops
}

// Entry is the handle Reserve returns; the caller must resolve it with
// exactly one Ack or Nack call.
type Entry struct {
	dispatch *dispatchEntry
}

// JobID returns the job identifier carried by this entry's envelope.
func (e *Entry) JobID() uuid.UUID    { return e.dispatch.envelope.JobID }
func (e *Entry) Envelope() Envelope  { return e.dispatch.envelope }
func (e *Entry) Attempt() int        { return e.dispatch.attempt }

// dispatchEntry bridges asynq's push-style handler invocation into the
// pull-style Reserve/Ack/Nack/UpdateProgress contract this package exposes,
// per the channel/goroutine reimplementation the source's cooperative
// control flow calls for.
type dispatchEntry struct {
	envelope   Envelope
	attempt    int
	doneCh     chan error
	progressCh chan int
	resolved   int32 // atomic: 0 = open, 1 = Ack/Nack already called
}

// Queue is the durable FIFO described by the Job Store's companion
// component: identifier-keyed dedup, retry with exponential backoff, and
// lifecycle-event emission on the Event Bus.
type Queue struct {
	cfg       Config
	client    *asynq.Client
	server    *asynq.Server
	inspector *asynq.Inspector
	bus       eventbus.Bus

	reserveCh chan *dispatchEntry
	closed    chan struct{}
}

// New constructs a Queue. Start must be called to begin processing
// reservations; Enqueue can be called beforehand.
func New(cfg Config, bus eventbus.Bus) *Queue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.StallWindow <= 0 {
		cfg.StallWindow = 5 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := asynq.NewClient(redisOpt)
	inspector := asynq.NewInspector(redisOpt)

	q := &Queue{
		cfg:       cfg,
		client:    client,
		inspector: inspector,
		bus:       bus,
		reserveCh: make(chan *dispatchEntry),
		closed:    make(chan struct{}),
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:      map[string]int{QueueName: 1},
		Concurrency: cfg.Concurrency,
		RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
			if n < 1 {
				n = 1
			}
			return cfg.BackoffBase * time.Duration(1<<uint(n-1))
		},
	})
	q.server = server

	return q
}

// Start begins dispatching reserved tasks; it must run in its own goroutine
// as it blocks until Shutdown is called.
func (q *Queue) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProcessThumbnail, q.handle)
	return q.server.Run(mux)
}

// Shutdown stops accepting new reservations and waits for in-flight
// dispatch goroutines to return, per asynq's own drain semantics.
func (q *Queue) Shutdown() {
	close(q.closed)
	q.server.Shutdown()
	q.client.Close()
	q.inspector.Close()
}

// handle is the asynq.HandlerFunc bridging a pushed task into the
// reserve/ack/nack channel protocol.
func (q *Queue) handle(ctx context.Context, task *asynq.Task) error {
	var env Envelope
	if err := json.Unmarshal(task.Payload(), &env); err != nil {
		return fmt.Errorf("queue: malformed envelope: %w", err)
	}

	retried, _ := asynq.GetRetryCount(ctx)

	entry := &dispatchEntry{
		envelope:   env,
		attempt:    retried + 1,
		doneCh:     make(chan error, 1),
		progressCh: make(chan int, 8),
	}

	if err := q.bus.Publish(eventbus.TopicActive, eventbus.Event{JobID: env.JobID}); err != nil {
		log.Printf("queue: publish active failed for job %s: %v", env.JobID, err)
	}

	select {
	case q.reserveCh <- entry:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closed:
		return ErrClosed
	}

	timer := time.NewTimer(q.cfg.StallWindow)
	defer timer.Stop()

	for {
		select {
		case err := <-entry.doneCh:
			return err

		case percent := <-entry.progressCh:
			if pubErr := q.bus.Publish(eventbus.TopicProgress, eventbus.Event{JobID: env.JobID, Progress: &percent}); pubErr != nil {
				log.Printf("queue: publish progress failed for job %s: %v", env.JobID, pubErr)
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(q.cfg.StallWindow)

		case <-timer.C:
			return ErrStalled

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Enqueue schedules a job for processing. Duplicate jobId attempts while a
// live entry exists return ErrDuplicateJob.
func (q *Queue) Enqueue(ctx context.Context, env Envelope, opts EnqueueOptions) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	taskOpts := []asynq.Option{
		asynq.TaskID(env.JobID.String()),
		asynq.Queue(QueueName),
		asynq.MaxRetry(q.cfg.MaxAttempts - 1),
		asynq.Retention(24 * time.Hour),
	}
	if opts.DelayMs > 0 {
		taskOpts = append(taskOpts, asynq.ProcessIn(time.Duration(opts.DelayMs)*time.Millisecond))
	}

	task := asynq.NewTask(TypeProcessThumbnail, payload, taskOpts...)
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return ErrDuplicateJob
		}
		return err
	}
	return nil
}

// Reserve blocks until a job is available or ctx is done.
func (q *Queue) Reserve(ctx context.Context) (*Entry, error) {
	select {
	case e := <-q.reserveCh:
		return &Entry{dispatch: e}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closed:
		return nil, ErrClosed
	}
}

// Ack marks entry completed. The caller must not use entry afterwards.
func (q *Queue) Ack(entry *Entry, _ AckResult) error {
	if !atomic.CompareAndSwapInt32(&entry.dispatch.resolved, 0, 1) {
		return ErrAlreadyAcked
	}
	entry.dispatch.doneCh <- nil
	return nil
}

// Nack marks entry failed for this attempt; asynq retries it with
// exponential backoff until maxAttempts is exhausted, at which point the
// task is archived terminally.
func (q *Queue) Nack(entry *Entry, cause error) error {
	if !atomic.CompareAndSwapInt32(&entry.dispatch.resolved, 0, 1) {
		return ErrAlreadyAcked
	}
	entry.dispatch.doneCh <- cause
	return nil
}

// UpdateProgress forwards a progress percentage, which the dispatch loop
// publishes on the Event Bus and uses to refresh the stall timer.
func (q *Queue) UpdateProgress(entry *Entry, percent int) error {
	if atomic.LoadInt32(&entry.dispatch.resolved) == 1 {
		return ErrAlreadyAcked
	}
	select {
	case entry.dispatch.progressCh <- percent:
		return nil
	default:
		return nil // best-effort; a dropped tick just means a slightly stale stall timer
	}
}

// Remove best-effort removes a waiting entry from the queue.
func (q *Queue) Remove(jobID uuid.UUID) error {
	return q.inspector.DeleteTask(QueueName, jobID.String())
}

// Pause stops the queue from dispatching new reservations.
func (q *Queue) Pause() error {
	return q.inspector.PauseQueue(QueueName)
}

// Resume resumes dispatching after Pause.
func (q *Queue) Resume() error {
	return q.inspector.UnpauseQueue(QueueName)
}

// CleanKind selects which terminal task class Clean sweeps.
type CleanKind int

const (
	CleanCompleted CleanKind = iota
	CleanArchived
)

// Clean deletes terminal tasks older than olderThan, returning the count
// removed.
func (q *Queue) Clean(olderThan time.Duration, kind CleanKind) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	var infos []*asynq.TaskInfo
	var err error
	switch kind {
	case CleanCompleted:
		infos, err = q.inspector.ListCompletedTasks(QueueName)
	case CleanArchived:
		infos, err = q.inspector.ListArchivedTasks(QueueName)
	}
	if err != nil {
		return 0, err
	}

	for _, info := range infos {
		finishedAt := info.CompletedAt
		if kind == CleanArchived {
			finishedAt = info.LastFailedAt
		}
		if finishedAt.Before(cutoff) {
			if err := q.inspector.DeleteTask(QueueName, info.ID); err != nil {
				log.Printf("queue: clean failed to delete task %s: %v", info.ID, err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
