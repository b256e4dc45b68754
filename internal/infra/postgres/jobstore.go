package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snapthumb/snapthumb/internal/domain/thumbnail"
	"github.com/snapthumb/snapthumb/internal/shared"
)

// JobStore is the durable Job Store (C1): CRUD over Job and Thumbnail
// records with the invariants of the domain layer. File records are read
// and written through FileStore.
type JobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore constructs a JobStore backed by pool.
func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

// CreateJob persists a new Job in status pending, progress 0.
func (s *JobStore) CreateJob(ctx context.Context, userID, fileID uuid.UUID, thumbnailSizes []string) (*thumbnail.Job, error) {
	job, err := thumbnail.NewJob(userID, fileID, thumbnailSizes)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO thumbnails.jobs (
			id, user_id, file_id, status, progress, thumbnail_sizes,
			thumbnail_ids, error_message, started_at, completed_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.pool.Exec(ctx, query,
		job.ID(), job.UserID(), job.FileID(), job.Status(), job.Progress(),
		job.ThumbnailSizes(), job.ThumbnailIDs(), nullString(job.Error()),
		job.StartedAt(), job.CompletedAt(), job.CreatedAt(), job.UpdatedAt(),
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// SetStatus loads the job, validates and applies the transition via the
// domain entity, then persists the result in one transaction. Illegal
// transitions surface thumbnail.ErrInvalidTransition without touching the row.
func (s *JobStore) SetStatus(ctx context.Context, jobID uuid.UUID, to thumbnail.Status, patch thumbnail.StatusPatch) error {
	return withTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		job, err := getJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}

		if err := job.ApplyTransition(to, patch); err != nil {
			return err
		}

		return updateJob(ctx, tx, job)
	})
}

// AppendThumbnail inserts a Thumbnail record and appends its id to the
// owning job's thumbnail list.
func (s *JobStore) AppendThumbnail(ctx context.Context, jobID uuid.UUID, t *thumbnail.Thumbnail) error {
	return withTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		insert := `
			INSERT INTO thumbnails.thumbnails (
				id, job_id, file_id, size, width, height, stored_name, path, url_path
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		if _, err := tx.Exec(ctx, insert,
			t.ID(), t.JobID(), t.FileID(), t.Size(), t.Width(), t.Height(),
			t.StoredName(), t.Path(), t.URLPath(),
		); err != nil {
			return err
		}

		update := `
			UPDATE thumbnails.jobs
			SET thumbnail_ids = array_append(thumbnail_ids, $2), updated_at = $3
			WHERE id = $1
		`
		_, err := tx.Exec(ctx, update, jobID, t.ID(), time.Now())
		return err
	})
}

// GetJob fetches a job by id.
func (s *JobStore) GetJob(ctx context.Context, jobID uuid.UUID) (*thumbnail.Job, error) {
	row := s.pool.QueryRow(ctx, selectJobQuery+` WHERE id = $1`, jobID)
	return scanJob(row)
}

// ListJobsByUser returns a user's jobs ordered by createdAt desc.
func (s *JobStore) ListJobsByUser(ctx context.Context, userID uuid.UUID) ([]*thumbnail.Job, error) {
	rows, err := s.pool.Query(ctx, selectJobQuery+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*thumbnail.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ResetForRetry resets a failed job back to pending via the domain entity's
// own guard, failing with InvalidTransition if the job is not failed.
func (s *JobStore) ResetForRetry(ctx context.Context, jobID uuid.UUID) error {
	return withTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		job, err := getJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if err := job.ResetForRetry(); err != nil {
			return err
		}
		return updateJob(ctx, tx, job)
	})
}

// DeleteJob deletes a job and cascades to its owned thumbnails.
func (s *JobStore) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	return withTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM thumbnails.thumbnails WHERE job_id = $1`, jobID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM thumbnails.jobs WHERE id = $1`, jobID)
		return err
	})
}

const selectJobQuery = `
	SELECT id, user_id, file_id, status, progress, thumbnail_sizes,
		thumbnail_ids, error_message, started_at, completed_at, created_at, updated_at
	FROM thumbnails.jobs
`

// rowScanner abstracts pgx.Row and pgx.Rows, both of which expose Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*thumbnail.Job, error) {
	var (
		id, userID, fileID uuid.UUID
		status             string
		progress           int
		thumbnailSizes     []string
		thumbnailIDs       []uuid.UUID
		errMsg             *string
		startedAt          *time.Time
		completedAt        *time.Time
		createdAt          time.Time
		updatedAt          time.Time
	)

	if err := row.Scan(
		&id, &userID, &fileID, &status, &progress, &thumbnailSizes,
		&thumbnailIDs, &errMsg, &startedAt, &completedAt, &createdAt, &updatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, thumbnail.NotFound("job")
		}
		return nil, shared.NewDomainError(shared.ErrInternal, "scan job row: "+err.Error())
	}

	msg := ""
	if errMsg != nil {
		msg = *errMsg
	}

	return thumbnail.ReconstructJob(
		id, userID, fileID, thumbnail.Status(status), progress,
		thumbnailSizes, thumbnailIDs, msg, startedAt, completedAt, createdAt, updatedAt,
	), nil
}

func getJobForUpdate(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (*thumbnail.Job, error) {
	row := tx.QueryRow(ctx, selectJobQuery+` WHERE id = $1 FOR UPDATE`, jobID)
	return scanJob(row)
}

func updateJob(ctx context.Context, tx pgx.Tx, job *thumbnail.Job) error {
	query := `
		UPDATE thumbnails.jobs
		SET status = $2, progress = $3, thumbnail_ids = $4, error_message = $5,
			started_at = $6, completed_at = $7, updated_at = $8
		WHERE id = $1
	`
	_, err := tx.Exec(ctx, query,
		job.ID(), job.Status(), job.Progress(), job.ThumbnailIDs(), nullString(job.Error()),
		job.StartedAt(), job.CompletedAt(), job.UpdatedAt(),
	)
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
