package summarize

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenRouter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	o := NewOpenRouter(OpenRouterConfig{
		APIKey:  "test-key",
		APIBase: srv.URL,
		Model:   "test/model",
		Logger:  testLogger(),
	})
	return o, srv
}

func completionResponse(text string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + jsonString(text) + `}}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestSummarize_Success(t *testing.T) {
	var gotReq orRequest
	o, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(completionResponse("the digest")))
	})

	got, err := o.Summarize(context.Background(), "Summarize this.", "[general] alice: gm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "the digest" {
		t.Fatalf("expected 'the digest', got %q", got)
	}
	if gotReq.Model != "test/model" {
		t.Fatalf("expected model override, got %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("expected system+user messages, got %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "alice: gm") {
		t.Fatal("transcript missing from user message")
	}
	if !strings.HasPrefix(gotReq.Messages[1].Content, "Summarize this.") {
		t.Fatal("prompt must precede the transcript")
	}
}

func TestSummarize_NonSuccessStatusIsError(t *testing.T) {
	o, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payment required", http.StatusPaymentRequired)
	})

	if _, err := o.Summarize(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestSummarize_EmptyCompletionIsError(t *testing.T) {
	o, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("   \n")))
	})

	if _, err := o.Summarize(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error on blank completion")
	}
}

func TestSummarize_NoChoicesIsError(t *testing.T) {
	o, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := o.Summarize(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error when no choices are returned")
	}
}

func TestSummarize_RetriesServerErrors(t *testing.T) {
	attempts := 0
	o, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "overloaded", http.StatusBadGateway)
			return
		}
		w.Write([]byte(completionResponse("recovered")))
	})

	got, err := o.Summarize(context.Background(), "p", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Fatalf("expected 'recovered', got %q", got)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestHealthy(t *testing.T) {
	o, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	})
	if err := o.Healthy(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthy_Unauthorized(t *testing.T) {
	o, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := o.Healthy(context.Background()); err == nil {
		t.Fatal("expected error on 401")
	}
}
