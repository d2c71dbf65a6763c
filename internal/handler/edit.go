package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bloorange/piCtureX/internal/models"
)

type CropRequest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type BrightnessRequest struct {
	Brightness *float64 `json:"brightness" binding:"required"`
}

type ContrastRequest struct {
	Contrast *float64 `json:"contrast" binding:"required"`
}

func (h *Handler) CropImage(c *gin.Context) {
	h.editImage(c, func(ctx context.Context, ownerID, id uuid.UUID) (*models.Image, error) {
		var req CropRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError(err)
		}
		return h.pipeline.Crop(ctx, ownerID, id, req.X, req.Y, req.Width, req.Height)
	})
}

func (h *Handler) AdjustBrightness(c *gin.Context) {
	h.editImage(c, func(ctx context.Context, ownerID, id uuid.UUID) (*models.Image, error) {
		var req BrightnessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError(err)
		}
		return h.pipeline.AdjustBrightness(ctx, ownerID, id, *req.Brightness)
	})
}

func (h *Handler) AdjustContrast(c *gin.Context) {
	h.editImage(c, func(ctx context.Context, ownerID, id uuid.UUID) (*models.Image, error) {
		var req ContrastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError(err)
		}
		return h.pipeline.AdjustContrast(ctx, ownerID, id, *req.Contrast)
	})
}

func (h *Handler) editImage(c *gin.Context, op func(ctx context.Context, ownerID, id uuid.UUID) (*models.Image, error)) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	img, err := op(ctx, ownerID, imageID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toImageResponse(img))
}
