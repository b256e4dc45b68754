// Package pipeline wires the Job Store, Queue, Event Bus, Media Processor,
// and Worker into the single entry point cmd/worker drives.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/snapthumb/snapthumb/internal/config"
	"github.com/snapthumb/snapthumb/internal/domain/thumbnail"
	"github.com/snapthumb/snapthumb/internal/infra/eventbus"
	"github.com/snapthumb/snapthumb/internal/infra/queue"
	"github.com/snapthumb/snapthumb/internal/media"
	"github.com/snapthumb/snapthumb/internal/worker"
)

// defaultThumbnailSizes is used until a caller of EnqueueJob supplies its own.
var defaultThumbnailSizes = []string{"128x128"}

// JobStore is the subset of the Job Store the Pipeline drives directly
// (the Worker drives the rest through its own narrower interface).
type JobStore interface {
	CreateJob(ctx context.Context, userID, fileID uuid.UUID, thumbnailSizes []string) (*thumbnail.Job, error)
	SetStatus(ctx context.Context, jobID uuid.UUID, to thumbnail.Status, patch thumbnail.StatusPatch) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*thumbnail.Job, error)
	ListJobsByUser(ctx context.Context, userID uuid.UUID) ([]*thumbnail.Job, error)
}

// FileStore is the subset of the File Store the Pipeline reads from to
// validate ownership before enqueuing.
type FileStore interface {
	GetFile(ctx context.Context, fileID uuid.UUID) (*thumbnail.File, error)
}

// QueueEnqueuer is the subset of the Queue the Pipeline drives directly
// (the Worker drives the rest through its own QueueConsumer interface).
type QueueEnqueuer interface {
	Enqueue(ctx context.Context, env queue.Envelope, opts queue.EnqueueOptions) error
	Remove(jobID uuid.UUID) error
	Start() error
	Shutdown()
}

// Pipeline wires the durable Job Store, Queue, Event Bus, Media Processor,
// and Worker behind one construction and a small public surface: enqueue a
// job, run the worker loop, shut everything down.
type Pipeline struct {
	cfg   *config.Config
	jobs  JobStore
	files FileStore
	queue QueueEnqueuer
	bus   eventbus.Bus
	work  *worker.Worker
}

// Deps carries the already-constructed infrastructure handles a Pipeline is
// built from; cmd/worker owns their lifecycles (pool.Close, bus.Close, etc).
// *postgres.JobStore, *postgres.FileStore, and *queue.Queue satisfy the
// narrower interfaces below, so production wiring passes them through
// unchanged; tests substitute fakes.
type Deps struct {
	JobStore interface {
		JobStore
		worker.JobStore
	}
	FileStore FileStore
	Queue     interface {
		QueueEnqueuer
		worker.QueueConsumer
	}
	Bus eventbus.Bus
}

// New builds a Pipeline from cfg and already-constructed infrastructure.
func New(cfg *config.Config, deps Deps) *Pipeline {
	processor := media.New(media.Config{
		ThumbnailSize:          cfg.ThumbnailSize,
		JPEGQuality:            cfg.ThumbnailQuality,
		VideoCaptureTime:       cfg.VideoCaptureTime,
		FFmpegPath:             cfg.FFmpegPath,
		VideoExtractionTimeout: cfg.VideoExtractionTimeout(),
	})

	w := worker.New(worker.Config{
		Concurrency:   cfg.WorkerConcurrency,
		JobTimeout:    cfg.JobTimeout(),
		ShutdownDrain: cfg.ShutdownDrain(),
	}, deps.JobStore, deps.Queue, deps.Bus, processor)

	return &Pipeline{
		cfg:   cfg,
		jobs:  deps.JobStore,
		files: deps.FileStore,
		queue: deps.Queue,
		bus:   deps.Bus,
		work:  w,
	}
}

// EnqueueJob validates that file exists, creates a Job in the Job Store, and
// schedules it on the Queue, transitioning the job to queued once scheduling
// succeeds. A duplicate enqueue attempt for an in-flight job is rejected by
// the Queue's own dedup key and surfaces as queue.ErrDuplicateJob.
func (p *Pipeline) EnqueueJob(ctx context.Context, userID, fileID uuid.UUID, thumbnailSizes []string) (*thumbnail.Job, error) {
	file, err := p.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: lookup file: %w", err)
	}
	if file.UserID() != userID {
		return nil, fmt.Errorf("pipeline: file does not belong to user")
	}

	if len(thumbnailSizes) == 0 {
		thumbnailSizes = defaultThumbnailSizes
	}

	job, err := p.jobs.CreateJob(ctx, userID, fileID, thumbnailSizes)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create job: %w", err)
	}

	outputDir := p.cfg.OutputDir

	env := queue.Envelope{
		JobID:          job.ID(),
		FileID:         file.ID(),
		UserID:         userID,
		FilePath:       file.Path(),
		Kind:           file.Kind(),
		ThumbnailSizes: thumbnailSizes,
		OutputDir:      outputDir,
	}

	if err := p.queue.Enqueue(ctx, env, queue.EnqueueOptions{}); err != nil {
		return nil, fmt.Errorf("pipeline: enqueue job %s: %w", job.ID(), err)
	}

	if err := p.jobs.SetStatus(ctx, job.ID(), thumbnail.StatusQueued, thumbnail.StatusPatch{}); err != nil {
		return nil, fmt.Errorf("pipeline: mark job %s queued: %w", job.ID(), err)
	}

	return p.jobs.GetJob(ctx, job.ID())
}

// GetJob fetches a job's current state, including progress and any
// completed thumbnails.
func (p *Pipeline) GetJob(ctx context.Context, jobID uuid.UUID) (*thumbnail.Job, error) {
	return p.jobs.GetJob(ctx, jobID)
}

// ListJobs returns a user's jobs, most recent first.
func (p *Pipeline) ListJobs(ctx context.Context, userID uuid.UUID) ([]*thumbnail.Job, error) {
	return p.jobs.ListJobsByUser(ctx, userID)
}

// CancelJob removes a job's queue entry, best-effort, and marks it failed.
// A job already reserved by a worker cannot be pulled back; Nack's own retry
// path is the only way to stop it once processing has begun.
func (p *Pipeline) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	if err := p.queue.Remove(jobID); err != nil {
		return fmt.Errorf("pipeline: remove job %s from queue: %w", jobID, err)
	}
	msg := "cancelled"
	return p.jobs.SetStatus(ctx, jobID, thumbnail.StatusFailed, thumbnail.StatusPatch{
		Error:          &msg,
		SetCompletedAt: true,
	})
}

// Subscribe exposes the Event Bus directly to an edge fanout layer.
func (p *Pipeline) Subscribe(topic eventbus.Topic) (<-chan eventbus.Event, func()) {
	return p.bus.Subscribe(topic)
}

// Run starts the Queue's dispatch server and the Worker's reservation loops,
// blocking until ctx is cancelled. The Queue server is stopped only after
// the Worker has finished draining, so in-flight reservations are not lost
// out from under it.
func (p *Pipeline) Run(ctx context.Context) error {
	queueErrCh := make(chan error, 1)
	go func() {
		queueErrCh <- p.queue.Start()
	}()

	p.work.Run(ctx)
	p.queue.Shutdown()

	if err := <-queueErrCh; err != nil {
		return fmt.Errorf("pipeline: queue server: %w", err)
	}
	return nil
}
