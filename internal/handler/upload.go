package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) UploadImage(c *gin.Context) {
	ownerID, ok := authedUser(c)
	if !ok {
		return
	}

	// Set max upload size
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	description := c.PostForm("description")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	img, err := h.pipeline.Ingest(ctx, ownerID, header.Filename, data, description)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toImageResponse(img))
}
