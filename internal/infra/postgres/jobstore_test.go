//go:build integration
// +build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapthumb/snapthumb/internal/domain/thumbnail"
)

func TestJobStore_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)
	ctx := context.Background()

	userID, fileID := uuid.New(), uuid.New()
	created, err := store.CreateJob(ctx, userID, fileID, []string{"128x128"})
	require.NoError(t, err)
	assert.Equal(t, thumbnail.StatusPending, created.Status())

	fetched, err := store.GetJob(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, created.ID(), fetched.ID())
	assert.Equal(t, userID, fetched.UserID())
	assert.Equal(t, fileID, fetched.FileID())
	assert.Equal(t, []string{"128x128"}, fetched.ThumbnailSizes())
}

func TestJobStore_GetJob_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)

	_, err := store.GetJob(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, thumbnail.ErrNotFound))
}

func TestJobStore_SetStatus_LegalTransition(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)
	ctx := context.Background()

	job, err := store.CreateJob(ctx, uuid.New(), uuid.New(), []string{"256x256"})
	require.NoError(t, err)

	progress := 10
	err = store.SetStatus(ctx, job.ID(), thumbnail.StatusProcessing, thumbnail.StatusPatch{
		Progress:     &progress,
		SetStartedAt: true,
	})
	require.NoError(t, err)

	fetched, err := store.GetJob(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, thumbnail.StatusProcessing, fetched.Status())
	assert.Equal(t, 10, fetched.Progress())
	assert.NotNil(t, fetched.StartedAt())
}

func TestJobStore_SetStatus_IllegalTransitionRejected(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)
	ctx := context.Background()

	job, err := store.CreateJob(ctx, uuid.New(), uuid.New(), []string{"256x256"})
	require.NoError(t, err)

	err = store.SetStatus(ctx, job.ID(), thumbnail.StatusCompleted, thumbnail.StatusPatch{})
	assert.ErrorIs(t, err, thumbnail.ErrInvalidTransition)

	fetched, err := store.GetJob(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, thumbnail.StatusPending, fetched.Status(), "rejected transition must not touch the row")
}

func TestJobStore_AppendThumbnail(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)
	ctx := context.Background()

	job, err := store.CreateJob(ctx, uuid.New(), uuid.New(), []string{"128x128"})
	require.NoError(t, err)

	thumb, err := thumbnail.NewThumbnail(job.ID(), job.FileID(), 128, 128, "thumb_128.jpg", "/out/thumb_128.jpg", "/files/thumb_128.jpg")
	require.NoError(t, err)

	require.NoError(t, store.AppendThumbnail(ctx, job.ID(), thumb))

	fetched, err := store.GetJob(ctx, job.ID())
	require.NoError(t, err)
	assert.Contains(t, fetched.ThumbnailIDs(), thumb.ID())
}

func TestJobStore_ResetForRetry_OnlyFromFailed(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)
	ctx := context.Background()

	job, err := store.CreateJob(ctx, uuid.New(), uuid.New(), []string{"128x128"})
	require.NoError(t, err)

	err = store.ResetForRetry(ctx, job.ID())
	assert.ErrorIs(t, err, thumbnail.ErrInvalidTransition)

	errMsg := "decode failed"
	require.NoError(t, store.SetStatus(ctx, job.ID(), thumbnail.StatusProcessing, thumbnail.StatusPatch{SetStartedAt: true}))
	require.NoError(t, store.SetStatus(ctx, job.ID(), thumbnail.StatusFailed, thumbnail.StatusPatch{Error: &errMsg, SetCompletedAt: true}))

	require.NoError(t, store.ResetForRetry(ctx, job.ID()))

	fetched, err := store.GetJob(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, thumbnail.StatusPending, fetched.Status())
	assert.Equal(t, "", fetched.Error())
}

func TestJobStore_ListJobsByUser(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)
	ctx := context.Background()

	userID := uuid.New()
	_, err := store.CreateJob(ctx, userID, uuid.New(), []string{"64x64"})
	require.NoError(t, err)
	_, err = store.CreateJob(ctx, userID, uuid.New(), []string{"64x64"})
	require.NoError(t, err)
	_, err = store.CreateJob(ctx, uuid.New(), uuid.New(), []string{"64x64"})
	require.NoError(t, err)

	jobs, err := store.ListJobsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, userID, j.UserID())
	}
}

func TestJobStore_DeleteJob_CascadesThumbnails(t *testing.T) {
	pool := setupTestDB(t)
	store := NewJobStore(pool)
	ctx := context.Background()

	job, err := store.CreateJob(ctx, uuid.New(), uuid.New(), []string{"128x128"})
	require.NoError(t, err)

	thumb, err := thumbnail.NewThumbnail(job.ID(), job.FileID(), 128, 128, "thumb.jpg", "/out/thumb.jpg", "/files/thumb.jpg")
	require.NoError(t, err)
	require.NoError(t, store.AppendThumbnail(ctx, job.ID(), thumb))

	require.NoError(t, store.DeleteJob(ctx, job.ID()))

	_, err = store.GetJob(ctx, job.ID())
	assert.True(t, errors.Is(err, thumbnail.ErrNotFound))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM thumbnails.thumbnails WHERE job_id = $1`, job.ID()).Scan(&count))
	assert.Equal(t, 0, count)
}
