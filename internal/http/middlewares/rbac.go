package middlewares

import (
	"net/http"
	"slices"

	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the authenticated role is one of
// allowed. It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortUnauthenticated(c, "Missing identity context")
			return
		}
		if !slices.Contains(allowed, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":      "forbidden",
					"message":   "Insufficient role for this operation",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}
		c.Next()
	}
}
