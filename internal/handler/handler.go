package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bloorange/piCtureX/internal/catalog"
	"github.com/bloorange/piCtureX/internal/codec"
	"github.com/bloorange/piCtureX/internal/models"
	"github.com/bloorange/piCtureX/internal/pipeline"
	"github.com/bloorange/piCtureX/internal/storage"
	"github.com/bloorange/piCtureX/internal/transform"
	redisclient "github.com/bloorange/piCtureX/pkg/database/redis"
	"github.com/bloorange/piCtureX/pkg/security"
)

// UserStore is the slice of the catalog the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type Handler struct {
	pipeline      *pipeline.Service
	catalog       catalog.Catalog
	users         UserStore
	store         *storage.DiskStore
	redisClient   *redisclient.Client
	log           *zap.Logger
	jwtSecret     string
	jwtTTL        time.Duration
	maxUploadSize int64
}

func NewHandler(
	pipe *pipeline.Service,
	cat catalog.Catalog,
	users UserStore,
	store *storage.DiskStore,
	redis *redisclient.Client,
	log *zap.Logger,
	jwtSecret string,
	jwtTTL time.Duration,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		pipeline:      pipe,
		catalog:       cat,
		users:         users,
		store:         store,
		redisClient:   redis,
		log:           log,
		jwtSecret:     jwtSecret,
		jwtTTL:        jwtTTL,
		maxUploadSize: maxUploadSize,
	}
}

// ImageResponse is the wire shape for an asset. It deliberately carries
// no owner relationship and no filesystem paths; clients address bytes
// through the file and thumbnail endpoints.
type ImageResponse struct {
	ID               string    `json:"id"`
	StorageName      string    `json:"storage_name"`
	OriginalFilename string    `json:"original_filename"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	FileSize         int64     `json:"file_size"`
	Description      string    `json:"description"`
	UploadedAt       time.Time `json:"uploaded_at"`
	Tags             []string  `json:"tags"`
	FileURL          string    `json:"file_url"`
	ThumbnailURL     string    `json:"thumbnail_url,omitempty"`
}

func toImageResponse(img *models.Image) ImageResponse {
	tags := make([]string, 0, len(img.Tags))
	for _, t := range img.Tags {
		tags = append(tags, t.Name)
	}
	resp := ImageResponse{
		ID:               img.ID.String(),
		StorageName:      img.StorageName,
		OriginalFilename: img.OriginalFilename,
		Width:            img.Width,
		Height:           img.Height,
		FileSize:         img.FileSize,
		Description:      img.Description,
		UploadedAt:       img.UploadedAt,
		Tags:             tags,
		FileURL:          "/api/images/file/" + img.StorageName,
	}
	if img.ThumbnailPath != "" {
		resp.ThumbnailURL = "/api/images/thumbnail/" + img.StorageName
	}
	return resp
}

func toImageResponses(images []*models.Image) []ImageResponse {
	out := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, toImageResponse(img))
	}
	return out
}

// bindError folds a body-binding failure into the invalid-input kind.
func bindError(err error) error {
	return fmt.Errorf("%w: %v", pipeline.ErrInvalidInput, err)
}

// authedUser extracts the owner id set by the auth middleware, writing
// the 401 itself when absent.
func authedUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := security.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return id, ok
}

// renderError maps the closed set of error kinds to transport statuses.
// NotFound and Forbidden share one 404 body so asset existence does not
// leak across owners.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput),
		errors.Is(err, transform.ErrInvalidParameters),
		errors.Is(err, codec.ErrInvalidImage),
		errors.Is(err, catalog.ErrTagNotAssociated):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
	case errors.Is(err, catalog.ErrTagNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
	default:
		h.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed"})
	}
}
