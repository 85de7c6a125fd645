package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/feedthegoat/content-service/internal/api/dto"
	"github.com/feedthegoat/content-service/internal/domain"
	"github.com/feedthegoat/content-service/internal/service"
	apperrors "github.com/feedthegoat/content-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login, refresh and logout endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, password required")
	}

	user, pair, err := h.auth.Register(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	return c.Status(http.StatusCreated).JSON(authResponse(user, []string{domain.RoleMember}, pair))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, roles, pair, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(authResponse(user, roles, pair))
}

// Refresh handles POST /auth/refresh-token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return fiber.NewError(http.StatusBadRequest, "refreshToken required")
	}

	user, roles, pair, err := h.auth.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(authResponse(user, roles, pair))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.auth.Logout(c.Context(), req.RefreshToken); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func authResponse(user *domain.User, roles []string, pair *service.TokenPair) dto.AuthResponse {
	return dto.AuthResponse{
		Success:                true,
		Token:                  pair.AccessToken,
		TokenExpiration:        pair.AccessExpiresAt,
		RefreshToken:           pair.RefreshToken,
		RefreshTokenExpiration: pair.RefreshExpiresAt,
		User: &dto.UserResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
		Roles: roles,
	}
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidRefreshToken):
		return apperrors.NewUnauthorized(err.Error())
	case errors.Is(err, service.ErrUserSuspended):
		return apperrors.NewForbidden(err.Error())
	default:
		return apperrors.MapError(err)
	}
}
