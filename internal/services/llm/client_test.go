package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"bookforge/internal/services"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientHealthCheck(t *testing.T) {
	server := completionServer(t, `{"ok":true}`)
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestCompleteIntoCodeFence(t *testing.T) {
	server := completionServer(t, "```json\n{\"title\":\"Maya and the Moon\"}\n```")
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	var parsed struct {
		Title string `json:"title"`
	}
	if err := client.CompleteInto(context.Background(), "system", "user", &parsed); err != nil {
		t.Fatalf("CompleteInto: %v", err)
	}
	if parsed.Title != "Maya and the Moon" {
		t.Fatalf("title = %q", parsed.Title)
	}
}

func TestCompleteIntoMalformedIsPermanent(t *testing.T) {
	server := completionServer(t, "not json at all")
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	var parsed map[string]any
	err := client.CompleteInto(context.Background(), "system", "user", &parsed)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))
		client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
		_, err := client.CompleteJSON(context.Background(), "system", "user")
		server.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if services.IsTransient(err) != tc.transient {
			t.Fatalf("status %d: transient=%v, err=%v", tc.status, services.IsTransient(err), err)
		}
		if calls.Load() != 1 {
			t.Fatalf("status %d: expected a single request, got %d", tc.status, calls.Load())
		}
	}
}

func TestToolCallArgumentsAreContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"type":     "function",
								"function": map[string]any{"name": "plan", "arguments": `{"ok":true}`},
							},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
}

func TestRefusalIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": "", "refusal": "cannot help"}},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrPermanent) || !strings.Contains(err.Error(), "cannot help") {
		t.Fatalf("expected permanent refusal, got %v", err)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDecodeLLMJSONExtractsObject(t *testing.T) {
	var parsed struct {
		N int `json:"n"`
	}
	if err := DecodeLLMJSON("Sure! Here you go: {\"n\": 4} hope that helps", &parsed); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if parsed.N != 4 {
		t.Fatalf("n = %d", parsed.N)
	}
	if err := DecodeLLMJSON("   ", &parsed); err == nil {
		t.Fatal("expected empty payload error")
	}
}
