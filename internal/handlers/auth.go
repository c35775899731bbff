package handlers

import (
	"context"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/config"
	"github.com/dkrstic/sitegrid-api/internal/middleware"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/dkrstic/sitegrid-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type AuthHandler struct {
	cfg          *config.Config
	userService  UserServiceInterface
	tokenService TokenServiceInterface
	jwtService   JWTServiceInterface
}

func NewAuthHandler(cfg *config.Config, userService UserServiceInterface, tokenService TokenServiceInterface, jwtService JWTServiceInterface) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		userService:  userService,
		tokenService: tokenService,
		jwtService:   jwtService,
	}
}

// DevLogin issues a token pair by email. Development convenience only; the
// route is not registered in production.
func (h *AuthHandler) DevLogin(c *drift.Context) {
	var req dto.LoginRequest
	if err := c.BindJSON(&req); err != nil || req.Email == "" {
		c.BadRequest("email is required")
		return
	}

	user, err := h.userService.GetByEmail(context.Background(), req.Email)
	if err != nil {
		c.Unauthorized("unknown user")
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(user.ID, user.TenantID, user.Email)
	if err != nil {
		c.InternalServerError("failed to issue tokens")
		return
	}

	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	if err := h.tokenService.StoreRefreshToken(context.Background(), user.ID, services.HashToken(pair.RefreshToken), expiresAt); err != nil {
		c.InternalServerError("failed to store refresh token")
		return
	}

	_ = c.JSON(200, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshRequest
	if err := c.BindJSON(&req); err != nil || req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	if _, err := h.jwtService.ValidateRefreshToken(req.RefreshToken); err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	tokenHash := services.HashToken(req.RefreshToken)
	userID, err := h.tokenService.ValidateRefreshToken(context.Background(), tokenHash)
	if err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	user, err := h.userService.GetByID(context.Background(), userID)
	if err != nil {
		c.Unauthorized("unknown user")
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(user.ID, user.TenantID, user.Email)
	if err != nil {
		c.InternalServerError("failed to issue tokens")
		return
	}

	// Rotate the stored refresh token.
	_ = h.tokenService.RevokeRefreshToken(context.Background(), tokenHash)
	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	if err := h.tokenService.StoreRefreshToken(context.Background(), user.ID, services.HashToken(pair.RefreshToken), expiresAt); err != nil {
		c.InternalServerError("failed to store refresh token")
		return
	}

	_ = c.JSON(200, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshRequest
	if err := c.BindJSON(&req); err != nil || req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	_ = h.tokenService.RevokeRefreshToken(context.Background(), services.HashToken(req.RefreshToken))
	_ = c.JSON(200, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	if err := h.tokenService.RevokeAllUserTokens(context.Background(), userID); err != nil {
		c.InternalServerError("failed to revoke tokens")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "logged out everywhere"})
}
