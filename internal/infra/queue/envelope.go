package queue

import (
	"github.com/google/uuid"

	"github.com/snapthumb/snapthumb/internal/domain/thumbnail"
)

// Envelope is the processing payload carried through the queue for one job,
// per the Worker's per-job execution contract.
type Envelope struct {
	JobID          uuid.UUID      `json:"jobId"`
	FileID         uuid.UUID      `json:"fileId"`
	UserID         uuid.UUID      `json:"userId"`
	FilePath       string         `json:"filePath"`
	Kind           thumbnail.Kind `json:"kind"`
	ThumbnailSizes []string       `json:"thumbnailSizes"`
	OutputDir      string         `json:"outputDir"`
}

// EnqueueOptions controls the scheduling of a newly enqueued job.
type EnqueueOptions struct {
	// DelayMs delays the job becoming eligible for reservation.
	DelayMs int64
}

// AckResult is the return value Ack records against the queue entry.
type AckResult struct {
	Thumbnails []string
}
