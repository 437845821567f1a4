package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/api/internal/models"
)

// RequireRoles must run after Auth.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "You are not authorized")
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			abort(c, http.StatusForbidden, "forbidden", "You don't have permission to access this resource")
			return
		}

		c.Next()
	}
}
