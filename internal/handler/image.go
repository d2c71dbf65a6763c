package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const imageCacheTTL = 10 * time.Minute

// cacheKey is scoped by owner so a cache hit can never serve another
// owner's record.
func cacheKey(ownerID, imageID uuid.UUID) string {
	return fmt.Sprintf("image:%s:%s", ownerID, imageID)
}

func (h *Handler) GetImage(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	key := cacheKey(ownerID, imageID)

	// Check Redis cache first
	if cached, err := h.redisClient.Get(ctx, key); err == nil {
		var resp ImageResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	img, err := h.catalog.Get(ctx, imageID, ownerID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := toImageResponse(img)

	if data, err := json.Marshal(resp); err == nil {
		if err := h.redisClient.Set(ctx, key, string(data), imageCacheTTL); err != nil {
			h.log.Warn("failed to cache image response", zap.String("key", key), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListImages(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	images, err := h.catalog.ListByOwner(ctx, ownerID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toImageResponses(images))
}

func (h *Handler) SearchImages(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	keyword := c.Query("keyword")

	var start, end *time.Time
	if s := c.Query("startDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startDate, expected RFC 3339"})
			return
		}
		start = &t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate, expected RFC 3339"})
			return
		}
		end = &t
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	images, err := h.catalog.Search(ctx, ownerID, keyword, start, end)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toImageResponses(images))
}

// validStorageName rejects anything that is not a bare file name, so a
// crafted path segment can never reach the filesystem.
func validStorageName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// GetImageFile serves the stored full-resolution bytes by storage name.
func (h *Handler) GetImageFile(c *gin.Context) {
	name := c.Param("filename")
	if !validStorageName(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	path := h.store.FilePath(name)
	if !h.store.Exists(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.File(path)
}

// GetThumbnail serves the thumbnail for a storage name. Assets without
// a thumbnail fall back to the full-resolution file.
func (h *Handler) GetThumbnail(c *gin.Context) {
	name := c.Param("filename")
	if !validStorageName(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	path := h.store.ThumbnailPath(name)
	if !h.store.Exists(path) {
		path = h.store.FilePath(name)
		if !h.store.Exists(path) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
	}
	c.File(path)
}

func (h *Handler) DeleteImage(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.pipeline.Delete(ctx, ownerID, imageID); err != nil {
		h.renderError(c, err)
		return
	}

	h.invalidateCache(ctx, ownerID, imageID)
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

func (h *Handler) invalidateCache(ctx context.Context, ownerID, imageID uuid.UUID) {
	key := cacheKey(ownerID, imageID)
	if err := h.redisClient.Delete(ctx, key); err != nil {
		h.log.Warn("failed to invalidate cache", zap.String("key", key), zap.Error(err))
	}
}
