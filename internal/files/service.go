package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/domain"
	"github.com/caldew/workdesk/internal/store"
)

// TransformThumbnail marks a signed link as serving the small preview
// rendition instead of the original bytes.
const TransformThumbnail = "thumbnail"

// MetadataRepository persists the file index: original display names
// and object paths per user.
type MetadataRepository interface {
	Upsert(ctx context.Context, userID string, file *domain.UserFile) error
	GetByID(ctx context.Context, userID, fileID string) (*domain.UserFile, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.UserFile, error)
	UpdateName(ctx context.Context, userID, fileID, name, path string) error
	Delete(ctx context.Context, userID, fileID string) error
}

// Service owns the per-user file area. Every object lives under the
// owner's id prefix and every operation verifies that prefix before
// touching the store.
type Service struct {
	objects store.Store
	meta    MetadataRepository
	signer  *store.Signer
}

func NewService(objects store.Store, meta MetadataRepository, signer *store.Signer) *Service {
	return &Service{objects: objects, meta: meta, signer: signer}
}

// Upload stores the file under {userID}/{sanitized name}, overwriting
// any previous object at that path, and records the original name in
// the metadata row.
func (s *Service) Upload(ctx context.Context, userID, name, mimeType string, r io.Reader) (*domain.UserFile, error) {
	if name == "" {
		return nil, domain.ErrNoFile
	}
	path := userID + "/" + store.SanitizeFileName(name)

	size, err := s.objects.Put(ctx, path, r)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	file := &domain.UserFile{
		ID:       uuid.NewString(),
		Name:     name,
		Path:     path,
		Size:     size,
		MimeType: mimeType,
	}
	if err := s.meta.Upsert(ctx, userID, file); err != nil {
		return nil, fmt.Errorf("index upload: %w", err)
	}
	s.attachURL(file)
	return file, nil
}

// List returns the caller's files, newest first, with preview URLs
// attached.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]domain.UserFile, error) {
	if limit <= 0 || limit > config.FileListLimit {
		limit = config.FileListLimit
	}
	list, err := s.meta.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	for i := range list {
		s.attachURL(&list[i])
	}
	return list, nil
}

// Rename moves the object to the path derived from the new name. The
// copy is verified at the destination before the source is removed, so
// an interrupted rename leaves the original intact.
func (s *Service) Rename(ctx context.Context, userID, fileID, newName string) (*domain.UserFile, error) {
	if newName == "" {
		return nil, domain.ErrNoFile
	}
	file, err := s.owned(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	newPath := userID + "/" + store.SanitizeFileName(newName)
	if newPath != file.Path {
		if err := s.copyVerified(ctx, file.Path, newPath); err != nil {
			return nil, err
		}
	}
	if err := s.meta.UpdateName(ctx, userID, fileID, newName, newPath); err != nil {
		if newPath != file.Path {
			s.cleanup(ctx, newPath)
		}
		return nil, fmt.Errorf("index rename: %w", err)
	}
	if newPath != file.Path {
		s.cleanup(ctx, file.Path)
	}

	file.Name = newName
	file.Path = newPath
	s.attachURL(file)
	return file, nil
}

// Delete removes the object and its metadata row. A missing object is
// logged, not fatal: the index row is the source of truth.
func (s *Service) Delete(ctx context.Context, userID, fileID string) error {
	file, err := s.owned(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, file.Path); err != nil && !errors.Is(err, store.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := s.meta.Delete(ctx, userID, fileID); err != nil {
		return fmt.Errorf("delete index row: %w", err)
	}
	return nil
}

// Download opens the object for reading along with its metadata.
func (s *Service) Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *domain.UserFile, error) {
	file, err := s.owned(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.objects.Get(ctx, file.Path)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open object: %w", err)
	}
	return rc, file, nil
}

// ThumbnailURL returns a short-lived signed link serving the 128px
// rendition of an image file.
func (s *Service) ThumbnailURL(ctx context.Context, userID, fileID string) (string, error) {
	file, err := s.owned(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(file.MimeType, "image/") {
		return "", fmt.Errorf("thumbnail of %s: %w", file.MimeType, domain.ErrNoFile)
	}
	return s.signedURL(file.Path, TransformThumbnail, config.ThumbnailURLTTL)
}

// PreviewURL returns a short-lived signed link serving the original
// bytes.
func (s *Service) PreviewURL(ctx context.Context, userID, fileID string) (string, error) {
	file, err := s.owned(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return s.signedURL(file.Path, "", config.PreviewURLTTL)
}

// ServeSigned redeems a link token and returns the object bytes, with
// the thumbnail transform applied when the token asks for it. The
// token is the authorization; no session is consulted.
func (s *Service) ServeSigned(ctx context.Context, token string) (io.ReadCloser, string, error) {
	link, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", err
	}
	rc, err := s.objects.Get(ctx, link.Path)
	if errors.Is(err, store.ErrNotExist) {
		return nil, "", domain.ErrFileNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("open object: %w", err)
	}
	if link.Transform != TransformThumbnail {
		return rc, "", nil
	}
	defer rc.Close()
	thumb, err := Thumbnail(rc, config.ThumbnailSize)
	if err != nil {
		return nil, "", fmt.Errorf("render thumbnail: %w", err)
	}
	return io.NopCloser(bytes.NewReader(thumb)), "image/png", nil
}

func (s *Service) owned(ctx context.Context, userID, fileID string) (*domain.UserFile, error) {
	file, err := s.meta.GetByID(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	if !domain.OwnedBy(file.Path, userID) {
		return nil, domain.ErrNotOwner
	}
	return file, nil
}

func (s *Service) copyVerified(ctx context.Context, from, to string) error {
	src, err := s.objects.Get(ctx, from)
	if errors.Is(err, store.ErrNotExist) {
		return domain.ErrFileNotFound
	}
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	written, err := s.objects.Put(ctx, to, src)
	if err != nil {
		return fmt.Errorf("copy object: %w", err)
	}
	info, err := s.objects.Stat(ctx, to)
	if err != nil {
		s.cleanup(ctx, to)
		return fmt.Errorf("verify copy of %s: %w", from, err)
	}
	if info.Size != written {
		s.cleanup(ctx, to)
		return fmt.Errorf("verify copy of %s: size mismatch %d != %d", from, info.Size, written)
	}
	return nil
}

// cleanup removes an object best-effort; an already-absent object is
// fine, anything else is logged.
func (s *Service) cleanup(ctx context.Context, path string) {
	if err := s.objects.Delete(ctx, path); err != nil && !errors.Is(err, store.ErrNotExist) {
		slog.Warn("object cleanup failed", "path", path, "error", err)
	}
}

func (s *Service) signedURL(path, transform string, ttl time.Duration) (string, error) {
	token, err := s.signer.Sign(path, transform, ttl)
	if err != nil {
		return "", err
	}
	return "/api/files/signed?token=" + url.QueryEscape(token), nil
}

func (s *Service) attachURL(file *domain.UserFile) {
	u, err := s.signedURL(file.Path, "", config.PreviewURLTTL)
	if err != nil {
		slog.Warn("signing preview url failed", "path", file.Path, "error", err)
		return
	}
	file.URL = u
}
