package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/nadhifr/eventra/internal/models"
	"github.com/nadhifr/eventra/internal/services"
	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

// AuthService defines the interface for admin authentication
type AuthService interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	service AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "invalid credentials")
			return
		}
		pkghttp.WriteInternalError(w, "login failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: result.AccessToken,
		Email:       result.User.Email,
		Role:        result.User.Role,
	})
}
