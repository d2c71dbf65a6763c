// Package pipeline composes codec, transforms, thumbnailing, disk
// storage and the catalog into the user-facing asset operations. Each
// operation is a linear pass with no intermediate persisted state: file
// writes happen before the catalog insert, so a record never points at
// bytes that were not written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bloorange/piCtureX/internal/catalog"
	"github.com/bloorange/piCtureX/internal/codec"
	"github.com/bloorange/piCtureX/internal/models"
	"github.com/bloorange/piCtureX/internal/storage"
	"github.com/bloorange/piCtureX/internal/thumbnail"
	"github.com/bloorange/piCtureX/internal/transform"
)

var (
	// ErrInvalidInput reports a missing upload or a malformed display name.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSourceFileMissing reports a catalog record whose backing file is
	// gone from disk. This is a server-side failure, not a NotFound.
	ErrSourceFileMissing = errors.New("source image file missing")
)

type Service struct {
	store       *storage.DiskStore
	catalog     catalog.Catalog
	log         *zap.Logger
	thumbWidth  int
	thumbHeight int
}

func NewService(store *storage.DiskStore, cat catalog.Catalog, log *zap.Logger, thumbWidth, thumbHeight int) *Service {
	return &Service{
		store:       store,
		catalog:     cat,
		log:         log,
		thumbWidth:  thumbWidth,
		thumbHeight: thumbHeight,
	}
}

// Ingest stores an uploaded byte stream as a new asset. The original
// bytes are written first, then verified by a real decode; undecodable
// uploads are removed from disk before the error is returned so no
// non-image file is ever left behind.
func (s *Service) Ingest(ctx context.Context, ownerID uuid.UUID, filename string, data []byte, description string) (*models.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is empty", ErrInvalidInput)
	}
	if idx := strings.LastIndex(filename, "."); idx < 0 || idx == len(filename)-1 {
		return nil, fmt.Errorf("%w: filename has no extension", ErrInvalidInput)
	}

	ext := codec.NormalizeExt(filename)
	storageName, path, size, err := s.store.SaveOriginal(data, ext)
	if err != nil {
		return nil, err
	}

	img, err := codec.Decode(data)
	if err != nil {
		if rmErr := s.store.Remove(path); rmErr != nil {
			s.log.Warn("failed to remove undecodable upload", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, err
	}

	record := &models.Image{
		ID:               uuid.New(),
		StorageName:      storageName,
		OriginalFilename: filename,
		FilePath:         path,
		Width:            img.Rect.Dx(),
		Height:           img.Rect.Dy(),
		FileSize:         size,
		Description:      description,
		OwnerID:          ownerID,
		UploadedAt:       time.Now(),
		Tags:             []models.Tag{},
	}
	record.ThumbnailPath = s.makeThumbnail(img, storageName, ext)

	if err := s.catalog.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("ingested image",
		zap.String("image_id", record.ID.String()),
		zap.String("storage_name", storageName),
		zap.Int("width", record.Width),
		zap.Int("height", record.Height))
	return record, nil
}

// Crop produces a new asset holding the w×h sub-rectangle of the source
// at (x, y). The source asset and its files are untouched.
func (s *Service) Crop(ctx context.Context, ownerID, id uuid.UUID, x, y, w, h int) (*models.Image, error) {
	return s.edit(ctx, ownerID, id, "cropped", "Cropped from", func(src *image.NRGBA) (*image.NRGBA, error) {
		return transform.Crop(src, x, y, w, h)
	})
}

// AdjustBrightness produces a new asset with every channel scaled by
// factor. The factor is not validated; zero or negative values legally
// crush the image to black.
func (s *Service) AdjustBrightness(ctx context.Context, ownerID, id uuid.UUID, factor float64) (*models.Image, error) {
	return s.edit(ctx, ownerID, id, "brightness", "Brightness adjusted from", func(src *image.NRGBA) (*image.NRGBA, error) {
		return transform.Brightness(src, factor), nil
	})
}

// AdjustContrast produces a new asset remapped with the 50–150 contrast
// control value. Out-of-range levels extrapolate rather than fail.
func (s *Service) AdjustContrast(ctx context.Context, ownerID, id uuid.UUID, level float64) (*models.Image, error) {
	return s.edit(ctx, ownerID, id, "contrast", "Contrast adjusted from", func(src *image.NRGBA) (*image.NRGBA, error) {
		return transform.Contrast(src, level), nil
	})
}

func (s *Service) edit(ctx context.Context, ownerID, id uuid.UUID, label, descVerb string, fn func(*image.NRGBA) (*image.NRGBA, error)) (*models.Image, error) {
	src, err := s.catalog.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Read(src.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileMissing) {
			return nil, fmt.Errorf("%w: %s", ErrSourceFileMissing, src.FilePath)
		}
		return nil, err
	}

	srcImg, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}

	out, err := fn(srcImg)
	if err != nil {
		return nil, err
	}

	// Extension normalization runs on every edit, so repeated edits of a
	// non-whitelisted-extension asset converge to jpg.
	ext := codec.NormalizeExt(src.StorageName)
	encoded, err := codec.Encode(out, ext)
	if err != nil {
		return nil, err
	}

	storageName, path, size, err := s.store.SaveOriginal(encoded, ext)
	if err != nil {
		return nil, err
	}

	record := &models.Image{
		ID:               uuid.New(),
		StorageName:      storageName,
		OriginalFilename: label + "_" + src.OriginalFilename,
		FilePath:         path,
		Width:            out.Rect.Dx(),
		Height:           out.Rect.Dy(),
		FileSize:         size,
		Description:      fmt.Sprintf("%s: %s", descVerb, src.OriginalFilename),
		OwnerID:          ownerID,
		UploadedAt:       time.Now(),
		Tags:             []models.Tag{},
	}
	record.ThumbnailPath = s.makeThumbnail(out, storageName, ext)

	if err := s.catalog.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("created derived image",
		zap.String("source_id", id.String()),
		zap.String("image_id", record.ID.String()),
		zap.String("operation", label))
	return record, nil
}

// Delete removes the asset's files best-effort, then its catalog
// record. An already-absent file is fine; the record goes last so a
// failure part-way never leaves a record without an attempted cleanup.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	img, err := s.catalog.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.store.Remove(img.FilePath); err != nil {
		s.log.Warn("failed to remove image file", zap.String("path", img.FilePath), zap.Error(err))
	}
	if img.ThumbnailPath != "" {
		if err := s.store.Remove(img.ThumbnailPath); err != nil {
			s.log.Warn("failed to remove thumbnail file", zap.String("path", img.ThumbnailPath), zap.Error(err))
		}
	}

	if err := s.catalog.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.log.Info("deleted image", zap.String("image_id", id.String()))
	return nil
}

// makeThumbnail derives, encodes and stores the thumbnail. Failure here
// is never fatal: the asset stays valid with an empty thumbnail path
// and readers fall back to the full image.
func (s *Service) makeThumbnail(img image.Image, storageName, ext string) string {
	thumb := thumbnail.Fit(img, s.thumbWidth, s.thumbHeight)
	encoded, err := codec.Encode(thumb, ext)
	if err != nil {
		s.log.Warn("failed to encode thumbnail", zap.String("storage_name", storageName), zap.Error(err))
		return ""
	}
	path, err := s.store.SaveThumbnail(encoded, storageName)
	if err != nil {
		s.log.Warn("failed to store thumbnail", zap.String("storage_name", storageName), zap.Error(err))
		return ""
	}
	return path
}
