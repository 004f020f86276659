package users

import (
	"errors"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/shared/server/middleware"
	"docinsight-backend/internal/shared/server/respond"
	"docinsight-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// Track makes sure every identified principal has a user record. A failure is
// logged and the request continues.
func (h *Handler) Track() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if userID != "" && h.Svc != nil {
			if err := h.Svc.Ensure(c.Request.Context(), userID, middleware.UserNameFromContext(c)); err != nil {
				telemetry.Warn("users.ensure_failed", map[string]any{
					"request_id": middleware.RequestIDFromContext(c),
					"user_id":    userID,
					"error":      err.Error(),
				})
			}
		}
		c.Next()
	}
}

func (h *Handler) me(c *gin.Context) {
	if h.Svc == nil {
		respond.Internal(c, "service unavailable")
		return
	}
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "user")
			return
		}
		respond.Internal(c, "failed to load user")
		return
	}
	respond.OK(c, user)
}
