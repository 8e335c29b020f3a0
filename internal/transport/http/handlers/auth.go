package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/logger"
	"github.com/jnalv414/letip-lead-system-sub002/internal/transport/http/middleware"
	"github.com/jnalv414/letip-lead-system-sub002/internal/usecase"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth           *usecase.AuthService
	tokens         *usecase.TokenService
	accessTokenTTL time.Duration
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, tokens *usecase.TokenService, accessTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		auth:           auth,
		tokens:         tokens,
		accessTokenTTL: accessTokenTTL,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the credential endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginLimiter, refreshLimiter gin.HandlerFunc) {
	if loginLimiter != nil {
		r.POST("/login", loginLimiter, h.login)
	} else {
		r.POST("/login", h.login)
	}

	if refreshLimiter != nil {
		r.POST("/refresh", refreshLimiter, h.refresh)
	} else {
		r.POST("/refresh", h.refresh)
	}

	authed := r.Group("", middleware.RequireAuth(h.tokens))
	authed.POST("/logout", h.logout)
	authed.POST("/logout-all", h.logoutAll)
	authed.GET("/sessions", h.listSessions)
}

func (h *AuthHandler) tokenPairResponse(pair *domain.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.accessTokenTTL.Seconds()),
		SessionID:    pair.SessionID,
	}
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, requestMetadata(c))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
		case errors.Is(err, usecase.ErrInactiveAccount):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is not active"))
		default:
			logger.WithContext(c.Request.Context()).Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		}
		return
	}

	c.JSON(http.StatusOK, h.tokenPairResponse(pair))
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
		return
	}

	pair, err := h.tokens.Rotate(c.Request.Context(), req.RefreshToken, requestMetadata(c))
	if err != nil {
		if errors.Is(err, usecase.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
			return
		}
		logger.WithContext(c.Request.Context()).Error("refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "refresh failed"))
		return
	}

	c.JSON(http.StatusOK, h.tokenPairResponse(pair))
}

func (h *AuthHandler) logout(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid logout payload"))
		return
	}

	if err := h.tokens.Logout(c.Request.Context(), req.SessionID, userID); err != nil {
		if errors.Is(err, usecase.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
			return
		}
		logger.WithContext(c.Request.Context()).Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session revoked"})
}

func (h *AuthHandler) logoutAll(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	count, err := h.tokens.LogoutAll(c.Request.Context(), userID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("logout all failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, LogoutAllResponse{Revoked: count})
}

func (h *AuthHandler) listSessions(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	infos, err := h.tokens.ListSessions(c.Request.Context(), userID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to list sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	summaries := make([]SessionSummary, 0, len(infos))
	for _, info := range infos {
		summaries = append(summaries, newSessionSummary(info))
	}

	c.JSON(http.StatusOK, SessionListResponse{
		Sessions: summaries,
		Total:    len(summaries),
	})
}
