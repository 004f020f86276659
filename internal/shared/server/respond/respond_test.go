package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("requestId", "req-42")
		c.Next()
	})
	router.GET("/api/v1/documents/:id", handler)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil))
	return resp
}

func TestCreatedSetsLocationAndNoStore(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		Created(c, "/api/v1/documents/doc-1", gin.H{"id": "doc-1"})
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "/api/v1/documents/doc-1" {
		t.Fatalf("unexpected Location %q", got)
	}
	if got := resp.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
}

func TestAcceptedWithoutLocation(t *testing.T) {
	resp := serve(t, func(c *gin.Context) { Accepted(c, "", gin.H{"status": "pending"}) })
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "" {
		t.Fatalf("expected no Location, got %q", got)
	}
}

func TestNoContent(t *testing.T) {
	resp := serve(t, NoContent)
	if resp.Code != http.StatusNoContent || resp.Body.Len() != 0 {
		t.Fatalf("expected empty 204, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestAttachmentQuotesFileName(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		Attachment(c, "Q3 report.xlsx", "application/octet-stream", []byte("data"))
	})
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename="Q3 report.xlsx"` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if resp.Body.String() != "data" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		c.Set("documentId", c.Param("id"))
		NotFound(c, "document")
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := ErrorBody{Code: CodeNotFound, Message: "document not found", RequestID: "req-42"}
	if body.Error != want {
		t.Fatalf("unexpected body %+v", body.Error)
	}
}

func TestInternalHidesCause(t *testing.T) {
	resp := serve(t, func(c *gin.Context) { Internal(c, "failed to fetch document") })
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != CodeInternal || body.Error.Message != "failed to fetch document" || body.Error.Details != nil {
		t.Fatalf("unexpected body %+v", body.Error)
	}
}
