package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bloorange/piCtureX/pkg/security"
)

// RegisterRoutes mounts the auth endpoints and the authenticated image
// API on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	images := r.Group("/api/images")
	images.Use(security.AuthMiddleware(h.jwtSecret))
	{
		images.POST("/upload", h.UploadImage)
		images.GET("", h.ListImages)
		images.GET("/search", h.SearchImages)
		images.GET("/file/:filename", h.GetImageFile)
		images.GET("/thumbnail/:filename", h.GetThumbnail)
		images.GET("/tags/:tagName", h.ListImagesByTag)
		images.GET("/:id", h.GetImage)
		images.DELETE("/:id", h.DeleteImage)
		images.POST("/:id/crop", h.CropImage)
		images.POST("/:id/adjust-brightness", h.AdjustBrightness)
		images.POST("/:id/adjust-contrast", h.AdjustContrast)
		images.POST("/:id/tags", h.AddTag)
		images.DELETE("/:id/tags/:tagName", h.RemoveTag)
	}
}
