package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/shared/server/middleware"
	"docinsight-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/chat", h.send)
	rg.GET("/documents/:id/chat", h.history)
	rg.DELETE("/documents/:id/chat", h.clear)
}

type sendRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) send(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "message is required", nil)
		return
	}

	ex, err := h.Svc.Send(c.Request.Context(), userID, documentID, req.Message)
	if err != nil {
		writeError(c, err, "failed to answer question")
		return
	}
	respond.Created(c, "/api/v1/documents/"+documentID+"/chat", ex)
}

func (h *Handler) history(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	msgs, err := h.Svc.History(c.Request.Context(), userID, documentID)
	if err != nil {
		writeError(c, err, "failed to load chat history")
		return
	}
	respond.OK(c, gin.H{"documentId": documentID, "messages": msgs})
}

func (h *Handler) clear(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	if err := h.Svc.Clear(c.Request.Context(), userID, documentID); err != nil {
		writeError(c, err, "failed to clear chat history")
		return
	}
	respond.NoContent(c)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		respond.NotFound(c, "document")
	case errors.Is(err, ErrNotReady):
		respond.Error(c, http.StatusConflict, "document_not_ready", "document has not finished processing", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Internal(c, fallback)
	}
}
