package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/campus-api/internal/middleware"
	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
	"github.com/campusdesk/campus-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Profile(ctx context.Context, userID string) (*models.UserInfo, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.UserInfo, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
}

// AuthHandler exposes registration, login and profile management.
type AuthHandler struct {
	auth authService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, "user registered successfully", result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "login successful", result)
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		respondError(c, appErrors.ErrUnauthorized)
		return
	}
	info, err := h.auth.Profile(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "", info)
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		respondError(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	info, err := h.auth.UpdateProfile(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "profile updated successfully", info)
}

// ChangePassword handles PUT /auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		respondError(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), user.ID, req); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, "password changed successfully", nil)
}

// Logout handles POST /auth/logout. Tokens are stateless, so logout is a
// client-side discard; the endpoint exists for API symmetry.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.OK(c, "logged out successfully", nil)
}
