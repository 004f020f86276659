package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docinsight-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	prev := apiURL
	apiURL = srv.URL
	t.Cleanup(func() { apiURL = prev })

	c, err := NewClient("sk-test", "gpt-4o-mini", 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCompleteSendsMessages(t *testing.T) {
	var got chatRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" hello "}}],"usage":{"total_tokens":7}}`))
	})

	out, err := c.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected trimmed content, got %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected request messages: %+v", got.Messages)
	}
	if got.Temperature == nil {
		t.Fatalf("expected temperature for gpt-4o-mini")
	}
}

func TestCompleteReportsHTTPStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := c.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "http status 429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
	if !llm.ShouldRetry(err) {
		t.Fatalf("expected 429 to be retryable")
	}
}

func TestCompleteRetriesWithoutTemperature(t *testing.T) {
	calls := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Temperature != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported value: temperature","type":"invalid_request_error","param":"temperature"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	out, err := c.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "ok" || calls != 2 {
		t.Fatalf("expected retry without temperature, out=%q calls=%d", out, calls)
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  "}}]}`))
	})

	_, err := c.Complete(context.Background(), nil)
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestSupportsTemperatureDenylist(t *testing.T) {
	t.Setenv("LLM_NO_TEMP0_MODELS", "o1, o3")
	if supportsTemperature("o3-mini") {
		t.Fatalf("expected o3-mini to skip temperature")
	}
	if !supportsTemperature("gpt-4o") {
		t.Fatalf("expected gpt-4o to keep temperature")
	}
}
