package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewSelectsProvider(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("New(default): %v", err)
	}
	o, ok := c.(*OllamaClient)
	if !ok {
		t.Fatalf("expected *OllamaClient, got %T", c)
	}
	if o.Model() != DefaultOllamaModel || o.baseURL != DefaultOllamaURL {
		t.Errorf("unexpected defaults: model=%q url=%q", o.Model(), o.baseURL)
	}

	c, err = New(Config{Provider: "OpenAI", BaseURL: "http://x", APIKey: "k"})
	if err != nil {
		t.Fatalf("New(openai): %v", err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Fatalf("expected *OpenAIClient, got %T", c)
	}

	if _, err := New(Config{Provider: "bard"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := New(Config{Provider: "openai", BaseURL: "http://x"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestOllamaComplete(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"llama3.1","response":"SELECT 1;","done":true}`))
	}))
	defer srv.Close()

	c := NewOllama(Config{BaseURL: srv.URL + "/"})
	out, err := c.Complete(context.Background(), Request{Prompt: "hi", Temperature: 0.1, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "SELECT 1;" {
		t.Errorf("Complete = %q", out)
	}
	if got.Model != DefaultOllamaModel || got.Prompt != "hi" || got.Stream {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.Options.Temperature != 0.1 || got.Options.NumPredict != 100 {
		t.Errorf("unexpected options: %+v", got.Options)
	}
}

func TestOllamaErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
		empty   bool
	}{
		{name: "http error", status: 500, body: "boom", wantErr: "generate failed status=500 body=boom"},
		{name: "model error", status: 200, body: `{"error":"model not found"}`, wantErr: "model not found"},
		{name: "bad json", status: 200, body: `{`, wantErr: "decode generate response"},
		{name: "empty", status: 200, body: `{"response":"  "}`, empty: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllama(Config{BaseURL: srv.URL}).Complete(context.Background(), Request{Prompt: "q"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.empty {
				if !errors.Is(err, ErrEmptyCompletion) {
					t.Errorf("expected ErrEmptyCompletion, got %v", err)
				}
				return
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestOllamaTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOllama(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Complete(context.Background(), Request{Prompt: "q"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout not applied, took %s", time.Since(start))
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload["max_tokens"] != float64(100) {
			t.Errorf("max_tokens = %v", payload["max_tokens"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 2;"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{BaseURL: srv.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	out, err := c.Complete(context.Background(), Request{Prompt: "q", MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "SELECT 2;" {
		t.Errorf("Complete = %q", out)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAI(Config{BaseURL: srv.URL, APIKey: "k"})
	if _, err := c.Complete(context.Background(), Request{Prompt: "q"}); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}
