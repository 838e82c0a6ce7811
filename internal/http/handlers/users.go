package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IdentityReader interface {
	Identity(ctx context.Context, id string) (user.Public, error)
}

// UsersHandler serves identity lookups for the admin/personnel console.
type UsersHandler struct {
	users IdentityReader
	log   *slog.Logger
}

func NewUsersHandler(users IdentityReader, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{users: users, log: log}
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "user id must be a valid UUID", nil)
		return
	}

	pub, err := h.users.Identity(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "users.get_failed", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, pub)
}
