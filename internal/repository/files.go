package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caldew/workdesk/internal/domain"
)

// FileRepository is the metadata index of the object store: original
// display names keyed by owner and object path.
type FileRepository struct {
	db *pgxpool.Pool
}

func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

// Upsert inserts the row, or refreshes an existing row at the same
// object path (uploads overwrite by path).
func (r *FileRepository) Upsert(ctx context.Context, userID string, file *domain.UserFile) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO user_files (id, user_id, name, path, size, mime_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, path) DO UPDATE
		SET name = EXCLUDED.name, size = EXCLUDED.size,
		    mime_type = EXCLUDED.mime_type, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		file.ID, userID, file.Name, file.Path, file.Size, file.MimeType,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, userID, fileID string) (*domain.UserFile, error) {
	var f domain.UserFile
	err := r.db.QueryRow(ctx, `
		SELECT id, name, path, size, mime_type, created_at, updated_at
		FROM user_files WHERE user_id = $1 AND id = $2`, userID, fileID,
	).Scan(&f.ID, &f.Name, &f.Path, &f.Size, &f.MimeType, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

func (r *FileRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.UserFile, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, path, size, mime_type, created_at, updated_at
		FROM user_files WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []domain.UserFile
	for rows.Next() {
		var f domain.UserFile
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.Size, &f.MimeType, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *FileRepository) UpdateName(ctx context.Context, userID, fileID, name, path string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_files SET name = $3, path = $4, updated_at = NOW()
		WHERE user_id = $1 AND id = $2`,
		userID, fileID, name, path)
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, userID, fileID string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM user_files WHERE user_id = $1 AND id = $2`, userID, fileID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}
