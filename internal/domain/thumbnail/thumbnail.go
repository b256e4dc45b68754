package thumbnail

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/snapthumb/snapthumb/internal/shared"
)

// Thumbnail is an immutable artifact record produced by the Media Processor
// and attached to exactly one Job.
type Thumbnail struct {
	id           uuid.UUID
	jobID        uuid.UUID
	fileID       uuid.UUID
	size         string
	width        int
	height       int
	storedName   string
	path         string
	urlPath      string
}

// NewThumbnail validates and constructs a Thumbnail once the Media Processor
// has produced an artifact on disk.
func NewThumbnail(jobID, fileID uuid.UUID, width, height int, storedName, path, urlPath string) (*Thumbnail, error) {
	if jobID == uuid.Nil {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "job_id", "job id is required")
	}
	if width <= 0 || height <= 0 {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "size", "width and height must be positive")
	}
	if storedName == "" {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "stored_name", "stored name is required")
	}
	if path == "" {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "path", "path is required")
	}

	return &Thumbnail{
		id:         uuid.New(),
		jobID:      jobID,
		fileID:     fileID,
		size:       fmt.Sprintf("%dx%d", width, height),
		width:      width,
		height:     height,
		storedName: storedName,
		path:       path,
		urlPath:    urlPath,
	}, nil
}

// ReconstructThumbnail rehydrates a Thumbnail from storage without re-validating.
func ReconstructThumbnail(id, jobID, fileID uuid.UUID, size string, width, height int, storedName, path, urlPath string) *Thumbnail {
	return &Thumbnail{
		id:         id,
		jobID:      jobID,
		fileID:     fileID,
		size:       size,
		width:      width,
		height:     height,
		storedName: storedName,
		path:       path,
		urlPath:    urlPath,
	}
}

func (t *Thumbnail) ID() uuid.UUID       { return t.id }
func (t *Thumbnail) JobID() uuid.UUID    { return t.jobID }
func (t *Thumbnail) FileID() uuid.UUID   { return t.fileID }
func (t *Thumbnail) Size() string        { return t.size }
func (t *Thumbnail) Width() int          { return t.width }
func (t *Thumbnail) Height() int         { return t.height }
func (t *Thumbnail) StoredName() string  { return t.storedName }
func (t *Thumbnail) Path() string        { return t.path }
func (t *Thumbnail) URLPath() string     { return t.urlPath }
