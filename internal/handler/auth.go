package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bloorange/piCtureX/internal/catalog"
	"github.com/bloorange/piCtureX/internal/models"
	"github.com/bloorange/piCtureX/pkg/security"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, catalog.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		h.renderError(c, err)
		return
	}

	token, err := security.MintToken(h.jwtSecret, user.ID, user.Username, h.jwtTTL)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, Username: user.Username})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	user, err := h.users.GetUserByUsername(ctx, req.Username)
	if err != nil || !security.CheckPassword(user.PasswordHash, req.Password) {
		// One message for both unknown user and bad password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := security.MintToken(h.jwtSecret, user.ID, user.Username, h.jwtTTL)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, Username: user.Username})
}
