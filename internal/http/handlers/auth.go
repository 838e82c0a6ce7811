package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/prefabstore/internal/auth"
	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/geocoder89/prefabstore/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	Register(ctx context.Context, req user.RegisterRequest) (auth.Session, error)
	Login(ctx context.Context, req user.LoginRequest) (auth.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Identity(ctx context.Context, id string) (user.Public, error)
}

type AuthHandler struct {
	svc AuthService
	log *slog.Logger
}

func NewAuthHandler(svc AuthService, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{svc: svc, log: log}
}

// SessionResponse is the identity's public fields with the token alongside.
type SessionResponse struct {
	user.Public
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newSessionResponse(s auth.Session) SessionResponse {
	return SessionResponse{Public: s.User, Token: s.Token, ExpiresAt: s.ExpiresAt}
}

const msgInvalidCredentials = "Email or password is incorrect."

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	sess, err := h.svc.Register(cctx, req)
	if err != nil {
		h.respondAuthError(ctx, "register", err)
		return
	}

	ctx.JSON(http.StatusCreated, newSessionResponse(sess))
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	sess, err := h.svc.Login(cctx, req)
	if err != nil {
		h.respondAuthError(ctx, "login", err)
		return
	}

	ctx.JSON(http.StatusOK, newSessionResponse(sess))
}

// Me returns the caller's own identity.
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthenticated", "Request is not authorized")
		return
	}

	pub, err := h.svc.Identity(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// token outlived its identity
			RespondUnauthorized(ctx, "unauthenticated", "Request is not authorized")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "auth.me_failed", "err", err)
		RespondInternal(ctx, "Could not load identity")
		return
	}

	ctx.JSON(http.StatusOK, pub)
}

// Logout revokes the presented token until it would have expired.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthenticated", "Request is not authorized")
		return
	}

	err := h.svc.Logout(ctx.Request.Context(), claims)
	if err != nil {
		if errors.Is(err, auth.ErrDenylistDisabled) {
			RespondError(ctx, http.StatusNotImplemented, "not_implemented", "Logout is not enabled; discard the token client-side", nil)
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "auth.logout_failed", "err", err)
		RespondInternal(ctx, "Could not end session")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) respondAuthError(ctx *gin.Context, op string, err error) {
	var verr *auth.ValidationError

	switch {
	case errors.As(err, &verr):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": verr.Fields})
	case errors.Is(err, auth.ErrConflict):
		RespondConflict(ctx, "email_taken", "Email is already in use.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "invalid_credentials", msgInvalidCredentials)
	default:
		h.log.ErrorContext(ctx.Request.Context(), "auth."+op+"_failed",
			"err", err,
			"request_id", requestIDFrom(ctx),
		)
		RespondInternal(ctx, "Could not complete "+op)
	}
}
