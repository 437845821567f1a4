package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"launchpad/api/internal/models"
	"launchpad/api/internal/security"
	"launchpad/api/internal/service"
)

const (
	// TokenCookie carries the session token for browser clients.
	TokenCookie = "token"

	currentUserKey  = "current_user"
	accessClaimsKey = "access_claims"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, *security.Claims, error)
}

// Auth resolves the session token from the Authorization header (with or
// without the Bearer scheme) or the token cookie.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "missing_token", "You are not authorized")
			return
		}

		user, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) || errors.Is(err, service.ErrNotFound) {
				abort(c, http.StatusUnauthorized, "invalid_token", "You are not authorized")
				return
			}
			abort(c, http.StatusInternalServerError, "internal_server_error", "Something went wrong")
			return
		}

		if user.Status == models.UserStatusBlocked {
			abort(c, http.StatusForbidden, "user_blocked", "Your account is blocked")
			return
		}

		c.Set(accessClaimsKey, *claims)
		c.Set(currentUserKey, user)

		c.Next()
	}
}

// TokenFromRequest returns the raw token or "".
func TokenFromRequest(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	// a bare scheme carries no token
	if header != "" && !strings.EqualFold(header, "Bearer") {
		return header
	}

	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

func AccessClaims(c *gin.Context) (security.Claims, bool) {
	val, exists := c.Get(accessClaimsKey)
	if !exists {
		return security.Claims{}, false
	}
	claims, ok := val.(security.Claims)
	return claims, ok
}
