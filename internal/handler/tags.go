package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TagRequest struct {
	TagName string `json:"tagName" binding:"required"`
}

func (h *Handler) AddTag(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	img, err := h.catalog.AttachTag(ctx, imageID, ownerID, req.TagName)
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.invalidateCache(ctx, ownerID, imageID)
	c.JSON(http.StatusOK, toImageResponse(img))
}

func (h *Handler) RemoveTag(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	tagName := c.Param("tagName")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	img, err := h.catalog.DetachTag(ctx, imageID, ownerID, tagName)
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.invalidateCache(ctx, ownerID, imageID)
	c.JSON(http.StatusOK, toImageResponse(img))
}

func (h *Handler) ListImagesByTag(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	images, err := h.catalog.ListByOwnerAndTag(ctx, ownerID, c.Param("tagName"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toImageResponses(images))
}
