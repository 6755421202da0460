package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIClient_Send_PassesMessagesThroughUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("Expected bearer token")
		}

		var body openAIRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) != 3 {
			t.Fatalf("expected 3 messages on the wire, got %d", len(body.Messages))
		}
		if body.Messages[0].Role != "system" {
			t.Errorf("openai wire format keeps the system role inline, got %q", body.Messages[0].Role)
		}
		if body.Temperature != 0.8 {
			t.Errorf("expected temperature 0.8, got %v", body.Temperature)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hallo!"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	c := newOpenAIClient("test-key", server.URL, time.Second, nil)
	got, err := c.send(context.Background(), request{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: RoleSystem, Content: "persona"},
			{Role: RoleUser, Content: "hoi"},
			{Role: RoleAssistant, Content: "hallo"},
		},
		Temperature: 0.8,
		MaxTokens:   2000,
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got != "Hallo!" {
		t.Errorf("expected completion text, got %q", got)
	}
}

func TestOpenAIClient_Send_EmptyChoicesRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "chatcmpl-1", "choices": []}`))
	}))
	defer server.Close()

	c := newOpenAIClient("test-key", server.URL, time.Second, nil)
	_, err := c.send(context.Background(), request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Reason != ReasonRejected {
		t.Errorf("expected rejected reason, got %s", pe.Reason)
	}
}

func TestOpenAIClient_Send_ModelNotFoundBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "The model does not exist", "type": "invalid_request_error", "code": "model_not_found"}}`))
	}))
	defer server.Close()

	c := newOpenAIClient("test-key", server.URL, time.Second, nil)
	_, err := c.send(context.Background(), request{Model: "nope", Messages: []Message{{Role: RoleUser, Content: "hi"}}})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Reason != ReasonModelNotFound {
		t.Errorf("expected model_not_found reason, got %s", pe.Reason)
	}
}
