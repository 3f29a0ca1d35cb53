package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/pkg/id"
)

const maxUploadSize = 10 << 20 // 10 MiB

// Service stores profile photos and project attachments in S3 and records
// their metadata rows.
type Service interface {
	UploadPhoto(ctx context.Context, userID, filename string, r io.Reader) (*domain.File, error)
	UploadAttachment(ctx context.Context, userID, projectID, filename string, r io.Reader) (*domain.File, error)
	Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *domain.File, error)
	PresignedURL(ctx context.Context, userID, fileID string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, userID, fileID string) error
}

type fileStore interface {
	Put(ctx context.Context, f *domain.File) error
	Get(ctx context.Context, fileID string) (*domain.File, error)
	SoftDelete(ctx context.Context, fileID string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type participantChecker interface {
	IsParticipant(ctx context.Context, userID, projectID string) (bool, error)
}

type ServiceDeps struct {
	FileRepo     fileStore
	ObjectStore  objectStore
	Participants participantChecker
}

type service struct {
	files        fileStore
	objects      objectStore
	participants participantChecker
}

func NewService(deps ServiceDeps) Service {
	return &service{files: deps.FileRepo, objects: deps.ObjectStore, participants: deps.Participants}
}

func (s *service) UploadPhoto(ctx context.Context, userID, filename string, r io.Reader) (*domain.File, error) {
	key := fmt.Sprintf("photos/%s/%s", userID, id.New())
	return s.upload(ctx, userID, filename, key, "photo", nil, r)
}

// UploadAttachment stores a project file; only participants may attach.
func (s *service) UploadAttachment(ctx context.Context, userID, projectID, filename string, r io.Reader) (*domain.File, error) {
	ok, err := s.participants.IsParticipant(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("not a project participant: %w", domain.ErrForbidden)
	}
	key := fmt.Sprintf("attachments/%s/%s", projectID, id.New())
	return s.upload(ctx, userID, filename, key, "attachment", &projectID, r)
}

func (s *service) upload(ctx context.Context, userID, filename, key, kind string, projectID *string, r io.Reader) (*domain.File, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", maxUploadSize, domain.ErrBadRequest)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload: %w", domain.ErrBadRequest)
	}

	contentType := detectContentType(filename)
	if _, err := s.objects.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	now := time.Now().UTC()
	f := &domain.File{
		FileID:           id.New(),
		Object:           key,
		Size:             int64(len(data)),
		Type:             contentType,
		Name:             filename,
		Hash:             hex.EncodeToString(sum[:]),
		Kind:             kind,
		ProjectID:        projectID,
		UploadedByUserID: userID,
		Enable:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.files.Put(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *domain.File, error) {
	f, err := s.authorize(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.objects.Download(ctx, f.Object)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

func (s *service) PresignedURL(ctx context.Context, userID, fileID string, ttl time.Duration) (string, error) {
	f, err := s.authorize(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return s.objects.PresignedURL(ctx, f.Object, ttl)
}

// Delete soft-deletes the metadata row and removes the object. Only the
// uploader may delete.
func (s *service) Delete(ctx context.Context, userID, fileID string) error {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return err
	}
	if f.UploadedByUserID != userID {
		return fmt.Errorf("only the uploader may delete a file: %w", domain.ErrForbidden)
	}
	if err := s.files.SoftDelete(ctx, fileID); err != nil {
		return err
	}
	return s.objects.Delete(ctx, f.Object)
}

// authorize loads an active file row and checks the caller may read it:
// photos are public to signed-in users, attachments are participant-only.
func (s *service) authorize(ctx context.Context, userID, fileID string) (*domain.File, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !f.Enable {
		return nil, fmt.Errorf("file deleted: %w", domain.ErrNotFound)
	}
	if f.Kind == "attachment" && f.ProjectID != nil {
		ok, err := s.participants.IsParticipant(ctx, userID, *f.ProjectID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("not a project participant: %w", domain.ErrForbidden)
		}
	}
	return f, nil
}

func detectContentType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
