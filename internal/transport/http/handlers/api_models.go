package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/logger"
)

// ErrorResponse represents a generic error payload with a correlation id.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request id.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: logger.RequestIDFrom(c.Request.Context()),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenPairResponse carries the tokens issued by login and refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

// RefreshRequest represents the payload to exchange a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest names the session to revoke. An empty body revokes the
// session the refresh token in the payload belongs to.
type LogoutRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// LogoutAllResponse reports how many sessions a bulk revocation removed.
type LogoutAllResponse struct {
	Revoked int `json:"revoked"`
}

// SessionSummary is one entry in the active session listing.
type SessionSummary struct {
	ID        string    `json:"id"`
	UserAgent *string   `json:"user_agent,omitempty"`
	IPAddress *string   `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionListResponse wraps the active session listing.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}

// HealthResponse reports liveness and dependency status.
type HealthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func newSessionSummary(info domain.SessionInfo) SessionSummary {
	return SessionSummary{
		ID:        info.ID,
		UserAgent: info.UserAgent,
		IPAddress: info.IPAddress,
		CreatedAt: info.CreatedAt,
		ExpiresAt: info.ExpiresAt,
	}
}

// requestMetadata captures the device attributes of the current request.
func requestMetadata(c *gin.Context) domain.SessionMetadata {
	meta := domain.SessionMetadata{}
	if ua := c.Request.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	if ip := c.ClientIP(); ip != "" {
		meta.IPAddress = &ip
	}
	return meta
}
