// This file implements photo uploads to blob storage with thumbnail
// generation.
package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/storage"
)

// MaxPhotoSize caps a single uploaded photo at 10 MB.
const MaxPhotoSize = 10 << 20

// FileUpload is one photo received from a multipart submission.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadedPhoto describes a photo persisted to blob storage but not yet
// recorded in the database. ObjectKey and ThumbnailKey allow cleanup when
// the surrounding transaction fails.
type UploadedPhoto struct {
	URL          string
	ThumbnailURL string
	ObjectKey    string
	ThumbnailKey string
	Role         domain.PhotoRole
	Position     int
}

// PhotoService stores inspection photos and their thumbnails.
type PhotoService interface {
	// Upload validates and stores one photo plus its thumbnail.
	// Returns domain.EINVALID for unsupported content types and
	// domain.ETOOLARGE for oversized files.
	Upload(ctx context.Context, towerID int64, kind domain.InspectionKind, role domain.PhotoRole, position int, file FileUpload) (*UploadedPhoto, error)

	// Cleanup removes previously uploaded photos from blob storage. Used to
	// roll back uploads when the database transaction fails; errors are
	// logged, never returned.
	Cleanup(ctx context.Context, photos []*UploadedPhoto)
}

type photoService struct {
	storage    storage.Storage
	thumbnails ThumbnailProcessor
	logger     *slog.Logger
}

// NewPhotoService creates a new PhotoService.
func NewPhotoService(store storage.Storage, thumbnails ThumbnailProcessor, logger *slog.Logger) PhotoService {
	return &photoService{
		storage:    store,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

// Upload validates and stores one photo plus its thumbnail.
func (s *photoService) Upload(ctx context.Context, towerID int64, kind domain.InspectionKind, role domain.PhotoRole, position int, file FileUpload) (*UploadedPhoto, error) {
	const op = "PhotoService.Upload"

	if len(file.Data) == 0 {
		return nil, domain.Invalid(op, "photo is empty")
	}
	if len(file.Data) > MaxPhotoSize {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "photo exceeds the 10 MB limit")
	}

	contentType := storage.DetectContentType(file.ContentType, file.Filename, bytes.NewReader(file.Data))
	if !storage.IsAllowedImageType(contentType) {
		return nil, domain.Invalid(op, "unsupported image type; use JPEG, PNG, WebP or HEIC")
	}

	key := storage.PhotoKey(towerID, kind.String(), file.Filename)
	err := s.storage.Put(ctx, key, bytes.NewReader(file.Data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     MaxPhotoSize,
		Public:      true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, domain.Errorf(domain.ETOOLARGE, op, "photo exceeds the 10 MB limit")
		}
		return nil, domain.Internal(err, op, "failed to store photo")
	}

	uploaded := &UploadedPhoto{
		ObjectKey: key,
		Role:      role,
		Position:  position,
	}

	// Thumbnails are best-effort: an undecodable but valid image should not
	// block the submission.
	thumbKey := storage.ThumbnailKey(key)
	thumbData, _, _, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(file.Data), ThumbnailMaxWidth, ThumbnailMaxHeight)
	if err != nil {
		s.logger.Warn("thumbnail generation failed", "key", key, "error", err)
	} else {
		err = s.storage.Put(ctx, thumbKey, bytes.NewReader(thumbData), storage.PutOptions{
			ContentType: "image/jpeg",
			Public:      true,
		})
		if err != nil {
			s.logger.Warn("thumbnail upload failed", "key", thumbKey, "error", err)
		} else {
			uploaded.ThumbnailKey = thumbKey
		}
	}

	uploaded.URL, err = s.storage.URL(ctx, key, 0)
	if err != nil {
		s.cleanupKeys(ctx, key, thumbKey)
		return nil, domain.Internal(err, op, "failed to resolve photo URL")
	}
	if uploaded.ThumbnailKey != "" {
		uploaded.ThumbnailURL, err = s.storage.URL(ctx, thumbKey, 0)
		if err != nil {
			s.logger.Warn("thumbnail URL resolution failed", "key", thumbKey, "error", err)
			uploaded.ThumbnailURL = ""
		}
	}

	s.logger.Debug("photo uploaded", "key", key, "size", len(file.Data), "role", role)
	return uploaded, nil
}

// Cleanup removes previously uploaded photos from blob storage.
func (s *photoService) Cleanup(ctx context.Context, photos []*UploadedPhoto) {
	// Submission failed after the blobs were written; detach the cleanup
	// from the request context so it still runs when the caller gave up.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, p := range photos {
		s.cleanupKeys(cleanupCtx, p.ObjectKey, p.ThumbnailKey)
	}
}

func (s *photoService) cleanupKeys(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error("failed to delete orphaned blob", "key", key, "error", err)
		}
	}
}
