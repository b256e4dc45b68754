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

// FileStore is the minimal companion store the core reads from to validate
// ownership before enqueuing; creation is the upload boundary's job, out of
// scope here.
type FileStore struct {
	pool *pgxpool.Pool
}

// NewFileStore constructs a FileStore backed by pool.
func NewFileStore(pool *pgxpool.Pool) *FileStore {
	return &FileStore{pool: pool}
}

// CreateFile persists a File record. Provided for the upload boundary to
// call; the pipeline core itself never calls this.
func (s *FileStore) CreateFile(ctx context.Context, f *thumbnail.File) error {
	query := `
		INSERT INTO thumbnails.files (
			id, user_id, original_name, stored_name, mime_type, size_bytes, path, kind, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		f.ID(), f.UserID(), f.OriginalName(), f.StoredName(), f.MimeType(),
		f.SizeBytes(), f.Path(), f.Kind(), f.CreatedAt(),
	)
	return err
}

// GetFile fetches a file by id.
func (s *FileStore) GetFile(ctx context.Context, fileID uuid.UUID) (*thumbnail.File, error) {
	query := `
		SELECT id, user_id, original_name, stored_name, mime_type, size_bytes, path, kind, created_at
		FROM thumbnails.files
		WHERE id = $1
	`

	var (
		id, userID                                     uuid.UUID
		originalName, storedName, mimeType, path, kind string
		sizeBytes                                      int64
		createdAt                                      time.Time
	)

	err := s.pool.QueryRow(ctx, query, fileID).Scan(
		&id, &userID, &originalName, &storedName, &mimeType, &sizeBytes, &path, &kind, &createdAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, thumbnail.NotFound("file")
		}
		return nil, shared.NewDomainError(shared.ErrInternal, "scan file row: "+err.Error())
	}

	return thumbnail.ReconstructFile(id, userID, originalName, storedName, mimeType, sizeBytes, path, thumbnail.Kind(kind), createdAt), nil
}
