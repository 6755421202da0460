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

func TestTranslateAnthropic_SystemExtractedOutOfBand(t *testing.T) {
	system, messages := translateAnthropic([]Message{
		{Role: RoleSystem, Content: "S"},
		{Role: RoleUser, Content: "A"},
		{Role: RoleAssistant, Content: "B"},
		{Role: RoleUser, Content: "C"},
	})

	if system != "S" {
		t.Errorf("expected system %q, got %q", "S", system)
	}
	want := []anthropicMessage{
		{Role: "user", Content: "A"},
		{Role: "assistant", Content: "B"},
		{Role: "user", Content: "C"},
	}
	if len(messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(messages))
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], messages[i])
		}
		if messages[i].Role == "system" {
			t.Error("system role must never appear in the translated list")
		}
	}
}

func TestTranslateAnthropic_FirstSystemWins(t *testing.T) {
	system, messages := translateAnthropic([]Message{
		{Role: RoleSystem, Content: "first"},
		{Role: RoleUser, Content: "hoi"},
		{Role: RoleSystem, Content: "second"},
	})

	if system != "first" {
		t.Errorf("expected first system occurrence to win, got %q", system)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
}

func TestAnthropicClient_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Expected test-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Expected anthropic-version header")
		}

		var body anthropicRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.System != "persona" {
			t.Errorf("expected system field %q, got %q", "persona", body.System)
		}
		if body.Model != "claude-3-7-sonnet-20250219" {
			t.Errorf("unexpected wire model %q", body.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "msg_1",
			"content": [{"type": "text", "text": "Goed gedaan!"}],
			"stop_reason": "end_turn"
		}`))
	}))
	defer server.Close()

	c := newAnthropicClient("test-key", server.URL, time.Second, nil)
	got, err := c.send(context.Background(), request{
		Model: "claude-3-7-sonnet-20250219",
		Messages: []Message{
			{Role: RoleSystem, Content: "persona"},
			{Role: RoleUser, Content: "Hoe gaat het?"},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got != "Goed gedaan!" {
		t.Errorf("expected completion text, got %q", got)
	}
}

func TestAnthropicClient_Send_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	c := newAnthropicClient("bad-key", server.URL, time.Second, nil)
	_, err := c.send(context.Background(), request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Reason != ReasonAuth {
		t.Errorf("expected auth reason, got %s", pe.Reason)
	}
}

func TestAnthropicClient_Send_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"error","error":{"type":"not_found_error","message":"model not found"}}`))
	}))
	defer server.Close()

	c := newAnthropicClient("test-key", server.URL, time.Second, nil)
	_, err := c.send(context.Background(), request{Model: "nope", Messages: []Message{{Role: RoleUser, Content: "hi"}}})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Reason != ReasonModelNotFound {
		t.Errorf("expected model_not_found reason, got %s", pe.Reason)
	}
}

func TestAnthropicClient_Send_TimeoutIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := newAnthropicClient("test-key", server.URL, 20*time.Millisecond, nil)
	_, err := c.send(context.Background(), request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Reason != ReasonUnavailable {
		t.Errorf("expected unavailable reason, got %s", pe.Reason)
	}
}
