package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/prefabstore/internal/actorctx"
	"github.com/geocoder89/prefabstore/internal/auth"
	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenAuthenticator
	log    *slog.Logger
}

func NewAuthMiddleware(tokens TokenAuthenticator, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{tokens: tokens, log: log}
}

const (
	msgTokenNotProvided = "Token not provided"
	msgNotAuthorized    = "Request is not authorized"
)

// RequireAuth rejects the request unless it carries a valid bearer token.
// Failure reasons go to the log only; callers see one of two messages.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.TrimSpace(authHeader) == "" {
			abortUnauthenticated(c, msgTokenNotProvided)
			return
		}

		scheme, raw, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
		raw = strings.TrimSpace(raw)
		if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			m.log.WarnContext(c.Request.Context(), "auth.rejected",
				"reason", "malformed_authorization_header",
				"request_id", c.GetString(CtxRequestID),
			)
			abortUnauthenticated(c, msgNotAuthorized)
			return
		}

		claims, err := m.tokens.Authenticate(c.Request.Context(), raw)
		if err != nil {
			m.log.WarnContext(c.Request.Context(), "auth.rejected",
				"reason", err.Error(),
				"expired", auth.IsExpired(err),
				"request_id", c.GetString(CtxRequestID),
			)
			abortUnauthenticated(c, msgNotAuthorized)
			return
		}

		// Stash useful bits of identity on the context
		c.Set(ctxUserIDKey, claims.UserID())
		c.Set(ctxRoleKey, claims.Role)
		c.Set(ctxClaimsKey, claims)

		ctx := actorctx.WithActor(c.Request.Context(), actorctx.Actor{
			UserID: claims.UserID(),
			Role:   claims.Role,
			JTI:    claims.JTI(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthenticated",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

// Optional helpers so handlers don’t need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(user.Role)
	return role, ok
}

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
