// Package catalog is the persisted record set for assets, tags and
// users, backed by PostgreSQL. Every operation that targets an existing
// asset verifies ownership and keeps "no such asset" distinct from
// "asset belongs to someone else".
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloorange/piCtureX/internal/models"
)

var (
	// ErrNotFound reports an asset or user id with no record.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden reports an ownership mismatch on an existing asset.
	ErrForbidden = errors.New("not the owner of this image")
	// ErrTagNotFound reports a tag name that exists nowhere in the catalog.
	ErrTagNotFound = errors.New("tag not found")
	// ErrTagNotAssociated reports detaching a tag that exists but is not
	// on the asset.
	ErrTagNotAssociated = errors.New("tag not associated with image")
	// ErrUsernameTaken reports a registration against an existing username.
	ErrUsernameTaken = errors.New("username already taken")
)

// Catalog is the record-set contract the pipeline and handlers depend on.
type Catalog interface {
	Create(ctx context.Context, img *models.Image) error
	Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Image, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Image, error)
	Search(ctx context.Context, ownerID uuid.UUID, keyword string, start, end *time.Time) ([]*models.Image, error)
	ListByOwnerAndTag(ctx context.Context, ownerID uuid.UUID, tagName string) ([]*models.Image, error)
	AttachTag(ctx context.Context, id, ownerID uuid.UUID, tagName string) (*models.Image, error)
	DetachTag(ctx context.Context, id, ownerID uuid.UUID, tagName string) (*models.Image, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

type PostgresCatalog struct {
	pool *pgxpool.Pool
}

func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

const imageColumns = `id, storage_name, original_filename, file_path, thumbnail_path,
	width, height, file_size, description, capture_time, capture_location,
	capture_camera, owner_id, uploaded_at`

func (c *PostgresCatalog) Create(ctx context.Context, img *models.Image) error {
	query := `
		INSERT INTO images (` + imageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := c.pool.Exec(ctx, query,
		img.ID, img.StorageName, img.OriginalFilename, img.FilePath, img.ThumbnailPath,
		img.Width, img.Height, img.FileSize, img.Description, img.CaptureTime,
		img.CaptureLocation, img.CaptureCamera, img.OwnerID, img.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert image record: %w", err)
	}
	return nil
}

// Get fetches one asset and enforces ownership. An unknown id yields
// ErrNotFound; an id owned by someone else yields ErrForbidden.
func (c *PostgresCatalog) Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	img, err := scanImage(c.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query image: %w", err)
	}
	if img.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if err := c.loadTags(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (c *PostgresCatalog) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE owner_id = $1 ORDER BY uploaded_at DESC`
	return c.queryImages(ctx, query, ownerID)
}

// Search filters the owner's assets by an optional keyword and optional
// inclusive upload-time bounds. Keyword matching is case-insensitive
// (ILIKE) over the original filename and the description.
func (c *PostgresCatalog) Search(ctx context.Context, ownerID uuid.UUID, keyword string, start, end *time.Time) ([]*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE owner_id = $1`
	args := []any{ownerID}
	if keyword != "" {
		args = append(args, "%"+keyword+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (original_filename ILIKE $%d OR description ILIKE $%d)", n, n)
	}
	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND uploaded_at >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND uploaded_at <= $%d", len(args))
	}
	query += " ORDER BY uploaded_at DESC"
	return c.queryImages(ctx, query, args...)
}

func (c *PostgresCatalog) ListByOwnerAndTag(ctx context.Context, ownerID uuid.UUID, tagName string) ([]*models.Image, error) {
	query := `
		SELECT ` + qualifiedImageColumns("i") + `
		FROM images i
		JOIN image_tags it ON it.image_id = i.id
		JOIN tags t ON t.id = it.tag_id
		WHERE i.owner_id = $1 AND t.name = $2
		ORDER BY i.uploaded_at DESC
	`
	return c.queryImages(ctx, query, ownerID, tagName)
}

// AttachTag looks the tag up by exact name, creating it if absent, and
// associates it with the asset. Attaching an already-present tag is a
// no-op.
func (c *PostgresCatalog) AttachTag(ctx context.Context, id, ownerID uuid.UUID, tagName string) (*models.Image, error) {
	if _, err := c.Get(ctx, id, ownerID); err != nil {
		return nil, err
	}

	_, err := c.pool.Exec(ctx,
		`INSERT INTO tags (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		uuid.New(), tagName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tag: %w", err)
	}

	var tagID uuid.UUID
	if err := c.pool.QueryRow(ctx, `SELECT id FROM tags WHERE name = $1`, tagName).Scan(&tagID); err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	_, err = c.pool.Exec(ctx,
		`INSERT INTO image_tags (image_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		id, tagID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to attach tag: %w", err)
	}

	return c.Get(ctx, id, ownerID)
}

// DetachTag removes the association between the asset and the named
// tag. A tag name unknown to the whole catalog yields ErrTagNotFound; a
// known tag that is simply not on this asset yields ErrTagNotAssociated.
// The tag record itself is never deleted.
func (c *PostgresCatalog) DetachTag(ctx context.Context, id, ownerID uuid.UUID, tagName string) (*models.Image, error) {
	if _, err := c.Get(ctx, id, ownerID); err != nil {
		return nil, err
	}

	var tagID uuid.UUID
	err := c.pool.QueryRow(ctx, `SELECT id FROM tags WHERE name = $1`, tagName).Scan(&tagID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	res, err := c.pool.Exec(ctx,
		`DELETE FROM image_tags WHERE image_id = $1 AND tag_id = $2`,
		id, tagID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to detach tag: %w", err)
	}
	if res.RowsAffected() == 0 {
		return nil, ErrTagNotAssociated
	}

	return c.Get(ctx, id, ownerID)
}

// Delete removes the catalog record. Associations go with it via
// cascade; the caller is responsible for file cleanup first.
func (c *PostgresCatalog) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := c.Get(ctx, id, ownerID); err != nil {
		return err
	}
	_, err := c.pool.Exec(ctx, `DELETE FROM images WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	return nil
}

func (c *PostgresCatalog) queryImages(ctx context.Context, query string, args ...any) ([]*models.Image, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := make([]*models.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read image rows: %w", err)
	}
	for _, img := range images {
		if err := c.loadTags(ctx, img); err != nil {
			return nil, err
		}
	}
	return images, nil
}

func (c *PostgresCatalog) loadTags(ctx context.Context, img *models.Image) error {
	rows, err := c.pool.Query(ctx, `
		SELECT t.id, t.name
		FROM tags t
		JOIN image_tags it ON it.tag_id = t.id
		WHERE it.image_id = $1
		ORDER BY t.name
	`, img.ID)
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	img.Tags = make([]models.Tag, 0)
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("failed to scan tag row: %w", err)
		}
		img.Tags = append(img.Tags, tag)
	}
	return rows.Err()
}

func scanImage(row pgx.Row) (*models.Image, error) {
	var img models.Image
	err := row.Scan(
		&img.ID, &img.StorageName, &img.OriginalFilename, &img.FilePath, &img.ThumbnailPath,
		&img.Width, &img.Height, &img.FileSize, &img.Description, &img.CaptureTime,
		&img.CaptureLocation, &img.CaptureCamera, &img.OwnerID, &img.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func qualifiedImageColumns(alias string) string {
	return alias + `.id, ` + alias + `.storage_name, ` + alias + `.original_filename, ` +
		alias + `.file_path, ` + alias + `.thumbnail_path, ` + alias + `.width, ` +
		alias + `.height, ` + alias + `.file_size, ` + alias + `.description, ` +
		alias + `.capture_time, ` + alias + `.capture_location, ` + alias + `.capture_camera, ` +
		alias + `.owner_id, ` + alias + `.uploaded_at`
}
