package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScriptedProvider(t *testing.T) {
	p := NewScriptedProvider("first", "second")

	for i, want := range []string{"first", "second", ""} {
		resp, err := p.Complete(context.Background(), CompletionRequest{
			Messages: []Message{UserMessage("hi")},
		})
		if err != nil {
			t.Fatalf("Complete() #%d error: %v", i, err)
		}
		if resp.Content != want {
			t.Errorf("Complete() #%d = %q, want %q", i, resp.Content, want)
		}
	}

	if p.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", p.Calls())
	}
}

func TestScriptedProvider_FailWith(t *testing.T) {
	wantErr := &ModelError{Provider: "scripted", Message: "down"}
	p := NewScriptedProvider("unused").FailWith(wantErr)

	_, err := p.Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, wantErr) {
		t.Errorf("Complete() error = %v, want %v", err, wantErr)
	}
}

func TestScriptedProvider_RecordsRequests(t *testing.T) {
	p := NewScriptedProvider("ok")
	_, _ = p.Complete(context.Background(), CompletionRequest{
		Temperature: 0,
		Messages:    []Message{SystemMessage("sys"), UserMessage("usr")},
	})

	reqs := p.Requests()
	if len(reqs) != 1 {
		t.Fatalf("Requests() len = %d, want 1", len(reqs))
	}
	if reqs[0].Messages[0].Role != "system" || reqs[0].Messages[1].Role != "user" {
		t.Errorf("recorded messages = %+v", reqs[0].Messages)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "SELECT 1"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"})

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("count contacts")},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Content != "SELECT 1" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 13 {
		t.Errorf("TotalTokens = %d, want 13", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL})

	_, err := p.Complete(context.Background(), CompletionRequest{})
	var me *ModelError
	if !errors.As(err, &me) {
		t.Fatalf("Complete() error = %v, want ModelError", err)
	}
	if me.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", me.StatusCode)
	}
}

func TestOllamaProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "llama3.2", "message": {"role": "assistant", "content": "SELECT COUNT(*) FROM contacts"}, "done": true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Model: "llama3.2"})

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("count contacts")},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Content != "SELECT COUNT(*) FROM contacts" {
		t.Errorf("Content = %q", resp.Content)
	}
}
