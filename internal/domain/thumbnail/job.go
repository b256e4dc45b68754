package thumbnail

import (
	"time"

	"github.com/google/uuid"

	"github.com/snapthumb/snapthumb/internal/shared"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// validTransitions is the DAG of legal Job.status transitions. Both
// completed and failed are closed terminal states here; ResetForRetry is
// the only way back to pending from failed, and it applies that edge
// directly rather than consulting this map.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusQueued, StatusProcessing, StatusFailed},
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the lifecycle entity tracked by the Job Store.
type Job struct {
	id             uuid.UUID
	userID         uuid.UUID
	fileID         uuid.UUID
	status         Status
	progress       int
	thumbnailSizes []string
	thumbnailIDs   []uuid.UUID
	errMsg         string
	startedAt      *time.Time
	completedAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewJob constructs a Job in status pending, progress 0, as CreateJob does.
func NewJob(userID, fileID uuid.UUID, thumbnailSizes []string) (*Job, error) {
	if userID == uuid.Nil {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "user_id", "user id is required")
	}
	if fileID == uuid.Nil {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "file_id", "file id is required")
	}
	if len(thumbnailSizes) == 0 {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "thumbnail_sizes", "at least one thumbnail size is required")
	}

	now := time.Now()
	sizes := make([]string, len(thumbnailSizes))
	copy(sizes, thumbnailSizes)

	return &Job{
		id:             uuid.New(),
		userID:         userID,
		fileID:         fileID,
		status:         StatusPending,
		progress:       0,
		thumbnailSizes: sizes,
		thumbnailIDs:   nil,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructJob rehydrates a Job from storage without re-validating.
func ReconstructJob(
	id, userID, fileID uuid.UUID,
	status Status,
	progress int,
	thumbnailSizes []string,
	thumbnailIDs []uuid.UUID,
	errMsg string,
	startedAt, completedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Job {
	return &Job{
		id:             id,
		userID:         userID,
		fileID:         fileID,
		status:         status,
		progress:       progress,
		thumbnailSizes: thumbnailSizes,
		thumbnailIDs:   thumbnailIDs,
		errMsg:         errMsg,
		startedAt:      startedAt,
		completedAt:    completedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (j *Job) ID() uuid.UUID                { return j.id }
func (j *Job) UserID() uuid.UUID            { return j.userID }
func (j *Job) FileID() uuid.UUID            { return j.fileID }
func (j *Job) Status() Status               { return j.status }
func (j *Job) Progress() int                { return j.progress }
func (j *Job) ThumbnailSizes() []string     { return j.thumbnailSizes }
func (j *Job) ThumbnailIDs() []uuid.UUID    { return j.thumbnailIDs }
func (j *Job) Error() string                { return j.errMsg }
func (j *Job) StartedAt() *time.Time        { return j.startedAt }
func (j *Job) CompletedAt() *time.Time      { return j.completedAt }
func (j *Job) CreatedAt() time.Time         { return j.createdAt }
func (j *Job) UpdatedAt() time.Time         { return j.updatedAt }

// StatusPatch carries the optional fields SetStatus may update alongside
// status, per Job Store invariant 1.
type StatusPatch struct {
	Progress       *int
	Error          *string
	SetStartedAt   bool
	SetCompletedAt bool
	ThumbnailID    *uuid.UUID
}

// ApplyTransition validates and applies a status transition in-memory,
// mirroring the DAG the store enforces at the SQL level.
func (j *Job) ApplyTransition(to Status, patch StatusPatch) error {
	if !canTransition(j.status, to) {
		return InvalidTransition(j.status, to)
	}

	now := time.Now()
	j.status = to
	j.updatedAt = now

	if patch.Progress != nil {
		j.progress = *patch.Progress
	}
	if patch.Error != nil {
		j.errMsg = *patch.Error
	}
	if patch.SetStartedAt && j.startedAt == nil {
		j.startedAt = &now
	}
	if patch.SetCompletedAt {
		j.completedAt = &now
	}
	if patch.ThumbnailID != nil {
		j.thumbnailIDs = append(j.thumbnailIDs, *patch.ThumbnailID)
	}

	return nil
}

// ResetForRetry resets a failed job back to pending, clearing error and
// timestamps, as only valid from status failed.
func (j *Job) ResetForRetry() error {
	if j.status != StatusFailed {
		return InvalidTransition(j.status, StatusPending)
	}

	j.status = StatusPending
	j.progress = 0
	j.errMsg = ""
	j.startedAt = nil
	j.completedAt = nil
	j.updatedAt = time.Now()
	return nil
}
