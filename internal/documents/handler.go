package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/shared/server/middleware"
	"docinsight-backend/internal/shared/server/respond"
)

// multipartOverhead leaves room for form boundaries around the file part.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/pages", h.pages)
	rg.DELETE("/documents/:id", h.delete)
	rg.POST("/documents/:id/reprocess", h.reprocess)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	maxBytes := h.Svc.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"maxBytes": maxBytes})
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}
	if fileHeader.Size > maxBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"maxBytes": maxBytes})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"maxBytes": maxBytes})
		case errors.Is(err, ErrNotPDF):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "only valid PDF files are accepted", gin.H{"reason": err.Error()})
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		default:
			respond.Internal(c, "failed to upload document")
		}
		return
	}

	c.Set("documentId", doc.ID)
	c.Set("statusTransition", "->"+StatusPending)
	respond.Created(c, documentPath(doc.ID), ToResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 0
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	filter := ListFilter{Limit: limit, Offset: offset, Status: c.Query("status")}
	docs, err := h.Svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		default:
			respond.Internal(c, "failed to list documents")
		}
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, ToResponse(doc))
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"documents": resp,
		"limit":     ClampLimit(limit),
		"offset":    max(offset, 0),
	})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	detail, err := h.Svc.Get(c.Request.Context(), userID, documentID)
	if err != nil {
		writeLookupError(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, toDetailResponse(detail))
}

func (h *Handler) pages(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	doc, list, err := h.Svc.ListPages(c.Request.Context(), userID, documentID)
	if err != nil {
		writeLookupError(c, err, "failed to fetch pages")
		return
	}
	respond.OK(c, PagesResponse{DocumentID: doc.ID, PageCount: len(list), Pages: list})
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	if err := h.Svc.Delete(c.Request.Context(), userID, documentID); err != nil {
		writeLookupError(c, err, "failed to delete document")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) reprocess(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	doc, err := h.Svc.Reprocess(c.Request.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			respond.Error(c, http.StatusConflict, respond.CodeConflict, "document is already being processed", nil)
			return
		}
		writeLookupError(c, err, "failed to reprocess document")
		return
	}
	c.Set("statusTransition", "->"+StatusPending)
	respond.Accepted(c, documentPath(doc.ID), ToResponse(doc))
}

func documentPath(id string) string {
	return "/api/v1/documents/" + id
}

func writeLookupError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.NotFound(c, "document")
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Internal(c, fallback)
	}
}
