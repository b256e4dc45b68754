package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snapthumb/snapthumb/internal/domain/thumbnail"
	"github.com/snapthumb/snapthumb/internal/infra/eventbus"
	"github.com/snapthumb/snapthumb/internal/infra/queue"
	"github.com/snapthumb/snapthumb/internal/media"
)

// JobStore is the subset of the Job Store the Worker drives.
type JobStore interface {
	SetStatus(ctx context.Context, jobID uuid.UUID, status thumbnail.Status, patch thumbnail.StatusPatch) error
	AppendThumbnail(ctx context.Context, jobID uuid.UUID, t *thumbnail.Thumbnail) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*thumbnail.Job, error)
	ResetForRetry(ctx context.Context, jobID uuid.UUID) error
}

// QueueConsumer is the subset of the Queue the Worker drives.
type QueueConsumer interface {
	Reserve(ctx context.Context) (*queue.Entry, error)
	Ack(entry *queue.Entry, result queue.AckResult) error
	Nack(entry *queue.Entry, cause error) error
	UpdateProgress(entry *queue.Entry, percent int) error
}

// Processor is the Media Processor contract the Worker drives.
type Processor interface {
	Process(kind thumbnail.Kind, sourcePath, outputDir string, progress media.ProgressFunc) (*media.Result, error)
}

// Config controls the Worker's concurrency and timeouts.
type Config struct {
	Concurrency   int           // default 1: strict FIFO
	JobTimeout    time.Duration // default 5m
	ShutdownDrain time.Duration // default 30s
}

// Worker is the long-running consumer (C4): reserves jobs from the Queue,
// drives the Media Processor, updates the Job Store, publishes on the
// Event Bus.
type Worker struct {
	cfg       Config
	store     JobStore
	queue     QueueConsumer
	bus       eventbus.Bus
	processor Processor

	wg       sync.WaitGroup
	inFlight sync.Map // uuid.UUID -> *queue.Entry
}

// New constructs a Worker.
func New(cfg Config, store JobStore, q QueueConsumer, bus eventbus.Bus, processor Processor) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.ShutdownDrain <= 0 {
		cfg.ShutdownDrain = 30 * time.Second
	}
	return &Worker{cfg: cfg, store: store, queue: q, bus: bus, processor: processor}
}

// Run starts cfg.Concurrency reservation loops and blocks until ctx is
// cancelled, then drains in-flight jobs up to ShutdownDrain before
// returning.
func (w *Worker) Run(ctx context.Context) {
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.reservationLoop(ctx)
	}

	<-ctx.Done()
	log.Println("worker: shutdown signal received, draining in-flight jobs")

	drained := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		log.Println("worker: all jobs drained cleanly")
	case <-time.After(w.cfg.ShutdownDrain):
		log.Println("worker: drain deadline exceeded, nacking in-flight jobs")
		w.inFlight.Range(func(key, value any) bool {
			entry := value.(*queue.Entry)
			if err := w.queue.Nack(entry, errors.New("worker: shutdown drain deadline exceeded")); err != nil {
				log.Printf("worker: nack on shutdown failed for job %s: %v", entry.JobID(), err)
			}
			return true
		})
		<-drained
	}
}

func (w *Worker) reservationLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		entry, err := w.queue.Reserve(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker: reserve failed: %v", err)
			continue
		}

		w.inFlight.Store(entry.JobID(), entry)
		// Once reserved, an entry runs to its own JobTimeout clock rather
		// than the shutdown ctx's: Run's drain/force-nack logic is what
		// bounds how long shutdown waits for it, not ctx cancellation.
		w.processEntry(context.Background(), entry)
		w.inFlight.Delete(entry.JobID())
	}
}

func (w *Worker) processEntry(ctx context.Context, entry *queue.Entry) {
	env := entry.Envelope()
	jobID := env.JobID

	if entry.Attempt() > 1 {
		if err := w.store.ResetForRetry(ctx, jobID); err != nil {
			log.Printf("worker: retry reset failed for job %s: %v", jobID, err)
		}
	}

	progressTen := 10
	if err := w.store.SetStatus(ctx, jobID, thumbnail.StatusProcessing, thumbnail.StatusPatch{
		Progress:     &progressTen,
		SetStartedAt: true,
	}); err != nil {
		w.fail(ctx, entry, fmt.Errorf("worker: set processing failed: %w", err))
		return
	}
	if err := w.queue.UpdateProgress(entry, progressTen); err != nil {
		log.Printf("worker: update progress failed for job %s: %v", jobID, err)
	}

	if err := os.MkdirAll(env.OutputDir, 0o755); err != nil {
		w.fail(ctx, entry, fmt.Errorf("worker: create output dir: %w", err))
		return
	}

	result, err := w.runWithTimeout(ctx, entry)
	if err != nil {
		w.fail(ctx, entry, err)
		return
	}

	w.succeed(ctx, entry, result)
}

func (w *Worker) runWithTimeout(ctx context.Context, entry *queue.Entry) (*media.Result, error) {
	env := entry.Envelope()

	timeoutCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	type outcome struct {
		result *media.Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := w.processor.Process(env.Kind, env.FilePath, env.OutputDir, func(percent int) {
			if err := w.queue.UpdateProgress(entry, percent); err != nil {
				log.Printf("worker: update progress failed for job %s: %v", env.JobID, err)
			}
		})
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-timeoutCtx.Done():
		return nil, fmt.Errorf("worker: job timeout after %s", w.cfg.JobTimeout)
	}
}

func (w *Worker) succeed(ctx context.Context, entry *queue.Entry, result *media.Result) {
	env := entry.Envelope()
	jobID := env.JobID

	t, err := thumbnail.NewThumbnail(jobID, env.FileID, result.Width, result.Height,
		thumbnailStoredName(result.ThumbnailPath), result.ThumbnailPath, thumbnailURLPath(result.ThumbnailPath))
	if err != nil {
		w.fail(ctx, entry, fmt.Errorf("worker: build thumbnail record: %w", err))
		return
	}

	if err := w.store.AppendThumbnail(ctx, jobID, t); err != nil {
		w.fail(ctx, entry, fmt.Errorf("worker: append thumbnail: %w", err))
		return
	}

	progressDone := 100
	if err := w.store.SetStatus(ctx, jobID, thumbnail.StatusCompleted, thumbnail.StatusPatch{
		Progress:       &progressDone,
		SetCompletedAt: true,
	}); err != nil {
		log.Printf("worker: set completed failed for job %s: %v", jobID, err)
	}

	if err := w.bus.Publish(eventbus.TopicCompleted, eventbus.Event{
		JobID:       jobID,
		Status:      string(thumbnail.StatusCompleted),
		Progress:    &progressDone,
		ReturnValue: &eventbus.ReturnValue{Thumbnails: []string{t.URLPath()}},
	}); err != nil {
		log.Printf("worker: publish completed failed for job %s: %v", jobID, err)
	}

	if err := w.queue.Ack(entry, queue.AckResult{Thumbnails: []string{t.URLPath()}}); err != nil {
		log.Printf("worker: ack failed for job %s: %v", jobID, err)
	}
}

func (w *Worker) fail(ctx context.Context, entry *queue.Entry, cause error) {
	env := entry.Envelope()
	jobID := env.JobID
	msg := cause.Error()

	if err := w.store.SetStatus(ctx, jobID, thumbnail.StatusFailed, thumbnail.StatusPatch{
		Error:          &msg,
		SetCompletedAt: true,
	}); err != nil {
		log.Printf("worker: set failed failed for job %s: %v", jobID, err)
	}

	progressZero := 0
	if err := w.bus.Publish(eventbus.TopicFailed, eventbus.Event{
		JobID:    jobID,
		Status:   string(thumbnail.StatusFailed),
		Progress: &progressZero,
		Error:    msg,
	}); err != nil {
		log.Printf("worker: publish failed-event failed for job %s: %v", jobID, err)
	}

	if err := w.queue.Nack(entry, cause); err != nil {
		log.Printf("worker: nack failed for job %s: %v", jobID, err)
	}
}
