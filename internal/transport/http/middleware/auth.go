package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jnalv414/letip-lead-system-sub002/internal/usecase"
)

const (
	// UserIDKey is the gin context key holding the authenticated user id.
	UserIDKey = "user_id"
	// ClaimsKey is the gin context key holding the verified access claims.
	ClaimsKey = "claims"

	bearerPrefix = "Bearer "
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

// ExtractBearerToken pulls the token out of an Authorization header value.
// The scheme match is strict: the literal prefix "Bearer " with exactly one
// space, case sensitive. Anything else is rejected.
func ExtractBearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}

	token := header[len(bearerPrefix):]
	if token == "" || strings.HasPrefix(token, " ") {
		return "", false
	}

	return token, true
}

// RequireAuth validates the Authorization header and stores the verified
// claims in the request context. Every failure mode gets the same 401.
func RequireAuth(tokens *usecase.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		token, ok := ExtractBearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "unauthorized"))
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}

// AuthenticatedUserID returns the user id stored by RequireAuth.
func AuthenticatedUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
