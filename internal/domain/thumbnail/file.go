package thumbnail

import (
	"time"

	"github.com/google/uuid"

	"github.com/snapthumb/snapthumb/internal/shared"
)

// Kind is the media kind of an uploaded File, as recognized by the Media
// Processor.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// File is an immutable record of an uploaded asset. Created by the upload
// boundary (out of scope); the pipeline core only ever reads it.
type File struct {
	id           uuid.UUID
	userID       uuid.UUID
	originalName string
	storedName   string
	mimeType     string
	sizeBytes    int64
	path         string
	kind         Kind
	createdAt    time.Time
}

// NewFile validates and constructs a File at upload time.
func NewFile(userID uuid.UUID, originalName, storedName, mimeType string, sizeBytes int64, path string, kind Kind) (*File, error) {
	if userID == uuid.Nil {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "user_id", "user id is required")
	}
	if originalName == "" {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "original_name", "original name is required")
	}
	if storedName == "" {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "stored_name", "stored name is required")
	}
	if sizeBytes <= 0 {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "size_bytes", "size must be greater than 0")
	}
	if path == "" {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "path", "path is required")
	}
	if kind != KindImage && kind != KindVideo {
		return nil, shared.NewFieldError(shared.ErrInvalidInput, "kind", "kind must be image or video")
	}

	return &File{
		id:           uuid.New(),
		userID:       userID,
		originalName: originalName,
		storedName:   storedName,
		mimeType:     mimeType,
		sizeBytes:    sizeBytes,
		path:         path,
		kind:         kind,
		createdAt:    time.Now(),
	}, nil
}

// ReconstructFile rehydrates a File from storage without re-validating.
func ReconstructFile(id, userID uuid.UUID, originalName, storedName, mimeType string, sizeBytes int64, path string, kind Kind, createdAt time.Time) *File {
	return &File{
		id:           id,
		userID:       userID,
		originalName: originalName,
		storedName:   storedName,
		mimeType:     mimeType,
		sizeBytes:    sizeBytes,
		path:         path,
		kind:         kind,
		createdAt:    createdAt,
	}
}

func (f *File) ID() uuid.UUID          { return f.id }
func (f *File) UserID() uuid.UUID      { return f.userID }
func (f *File) OriginalName() string   { return f.originalName }
func (f *File) StoredName() string     { return f.storedName }
func (f *File) MimeType() string       { return f.mimeType }
func (f *File) SizeBytes() int64       { return f.sizeBytes }
func (f *File) Path() string           { return f.path }
func (f *File) Kind() Kind             { return f.kind }
func (f *File) CreatedAt() time.Time   { return f.createdAt }
