package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/bootstrap"
	"docinsight-backend/internal/extract"
	"docinsight-backend/internal/shared/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
		LLMProvider:     "none",
		MaxUploadBytes:  1 << 20,
	}
	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func TestDocumentsUploadProcessChatDelete(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	pdf := extract.BuildPDF(
		"Quarterly revenue grew at Acme Corp in Berlin.",
		"Revenue forecasts for the next quarter remain strong.",
	)
	resp := upload(t, router, "report.pdf", pdf)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		DocumentID string `json:"documentId"`
		Status     string `json:"status"`
	}
	decode(t, resp, &created)
	if created.DocumentID == "" {
		t.Fatalf("expected documentId, got empty")
	}
	if created.Status != "pending" {
		t.Fatalf("expected pending on upload, got %q", created.Status)
	}

	app.Processor.Wait()

	resp = do(router, http.MethodGet, "/api/v1/documents/"+created.DocumentID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var detail struct {
		Status      string                     `json:"status"`
		Progress    int                        `json:"progress"`
		PageCount   int                        `json:"pageCount"`
		Extractions map[string]json.RawMessage `json:"extractions"`
	}
	decode(t, resp, &detail)
	if detail.Status != "completed" || detail.Progress != 100 {
		t.Fatalf("expected completed/100, got %s/%d", detail.Status, detail.Progress)
	}
	if detail.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", detail.PageCount)
	}
	for _, typ := range []string{"entities", "keywords", "tables", "summary"} {
		if _, ok := detail.Extractions[typ]; !ok {
			t.Fatalf("missing %s extraction", typ)
		}
	}

	resp = do(router, http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/pages", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pages 200, got %d", resp.Code)
	}

	resp = do(router, http.MethodPost, "/api/v1/documents/"+created.DocumentID+"/chat", strings.NewReader(`{"message":"what about revenue forecasts?"}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected chat 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var exchange struct {
		Source string `json:"source"`
		Answer struct {
			Citations []struct {
				Page int `json:"page"`
			} `json:"citations"`
		} `json:"answer"`
	}
	decode(t, resp, &exchange)
	if exchange.Source != "citations" {
		t.Fatalf("expected citation answer without llm, got %q", exchange.Source)
	}
	if len(exchange.Answer.Citations) == 0 || exchange.Answer.Citations[0].Page != 2 {
		t.Fatalf("expected page 2 cited first, got %+v", exchange.Answer.Citations)
	}

	resp = do(router, http.MethodDelete, "/api/v1/documents/"+created.DocumentID, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected delete 204, got %d", resp.Code)
	}

	ctx := context.Background()
	if list, _ := app.PagesRepo.ListByDocument(ctx, created.DocumentID); len(list) != 0 {
		t.Fatalf("expected pages removed, got %d", len(list))
	}
	if list, _ := app.ExtractionsRepo.ListByDocument(ctx, created.DocumentID); len(list) != 0 {
		t.Fatalf("expected extractions removed, got %d", len(list))
	}
	if msgs, _ := app.ChatRepo.ListByDocument(ctx, created.DocumentID, 0); len(msgs) != 0 {
		t.Fatalf("expected chat removed, got %d", len(msgs))
	}

	resp = do(router, http.MethodGet, "/api/v1/documents/"+created.DocumentID, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}

func TestDocumentsUploadRejectsNonPDF(t *testing.T) {
	router := newTestApp(t).Router

	resp := upload(t, router, "hello.txt", []byte("hello world"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	resp = upload(t, router, "fake.pdf", []byte("hello world"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for renamed text, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, resp, &body)
	if body.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %q", body.Error.Code)
	}
}

func TestDocumentsListFiltersByStatusAndOwner(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	if resp := upload(t, router, "a.pdf", extract.BuildPDF("alpha")); resp.Code != http.StatusCreated {
		t.Fatalf("upload: %d", resp.Code)
	}
	app.Processor.Wait()

	resp := do(router, http.MethodGet, "/api/v1/documents?status=completed", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var list struct {
		Documents []struct {
			Status string `json:"status"`
		} `json:"documents"`
	}
	decode(t, resp, &list)
	if len(list.Documents) != 1 || list.Documents[0].Status != "completed" {
		t.Fatalf("unexpected list: %+v", list.Documents)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-Guest-Id", "someone-else")
	other := httptest.NewRecorder()
	router.ServeHTTP(other, req)
	decode(t, other, &list)
	if len(list.Documents) != 0 {
		t.Fatalf("expected other principal to see nothing, got %d", len(list.Documents))
	}

	resp = do(router, http.MethodGet, "/api/v1/documents?status=bogus", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.Code)
	}
}

func TestDocumentsRequireIdentity(t *testing.T) {
	router := newTestApp(t).Router

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected health without identity, got %d", resp.Code)
	}
}

func upload(t *testing.T, router http.Handler, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func do(router http.Handler, method, path string, body *strings.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func addGuestHeader(req *http.Request) {
	req.Header.Set("X-Guest-Id", "test-guest")
}
