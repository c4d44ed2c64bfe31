package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ModelConfig
		missing []string
	}{
		{"azure complete", ModelConfig{APIKey: "k", Endpoint: "https://x", APIVersion: "2024-02-01", Deployment: "gpt-4"}, nil},
		{"azure empty", ModelConfig{}, []string{"api_key", "endpoint", "api_version", "deployment"}},
		{"azure no deployment", ModelConfig{Provider: "azure", APIKey: "k", Endpoint: "https://x", APIVersion: "v"}, []string{"deployment"}},
		{"gemini complete", ModelConfig{Provider: "gemini", APIKey: "k", Model: "gemini-2.0-flash"}, nil},
		{"gemini no model", ModelConfig{Provider: "gemini", APIKey: "k"}, []string{"model"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate("m")
			if tt.missing == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want ConfigurationError", err)
			}
			if diff := cmp.Diff(tt.missing, ce.Missing); diff != "" {
				t.Errorf("missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	cfg := Config{Models: map[string]ModelConfig{
		"gpt4":  {APIKey: "k"},
		"weird": {Provider: "mistral", APIKey: "k"},
	}}

	_, err := New(context.Background(), cfg, "", testLogger())
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.Model != "gpt4" || len(ce.Missing) != 3 {
		t.Errorf("default model error = %v", err)
	}
	if !strings.Contains(err.Error(), "missing endpoint, api_version, deployment") {
		t.Errorf("message = %q", err.Error())
	}

	if _, err := New(context.Background(), cfg, "gpt4o", testLogger()); !errors.As(err, &ce) || ce.Reason != "model not configured (configured: gpt4, weird)" {
		t.Errorf("unknown model error = %v", err)
	}
	if _, err := New(context.Background(), cfg, "weird", testLogger()); !errors.As(err, &ce) || !strings.Contains(ce.Reason, "mistral") {
		t.Errorf("unknown provider error = %v", err)
	}
}

func TestNew_Azure(t *testing.T) {
	cfg := Config{Default: "gpt35", Models: map[string]ModelConfig{
		"gpt35": {APIKey: "k", Endpoint: "https://x", APIVersion: "v", Deployment: "d"},
	}}
	c, err := New(context.Background(), cfg, "", testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*Azure); !ok {
		t.Errorf("client = %T, want *Azure", c)
	}
	if diff := cmp.Diff([]string{"gpt35"}, cfg.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func newTestAzure(t *testing.T, handler http.HandlerFunc) *Azure {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewAzure(ModelConfig{
		APIKey:     "secret",
		Endpoint:   srv.URL + "/",
		APIVersion: "2024-02-01",
		Deployment: "gpt-4",
		Retries:    2,
	}, testLogger())
	c.wait = time.Millisecond
	return c
}

func TestAzure_ToolCall(t *testing.T) {
	var got azureRequest
	c := newTestAzure(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/gpt-4/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if v := r.URL.Query().Get("api-version"); v != "2024-02-01" {
			t.Errorf("api-version = %s", v)
		}
		if k := r.Header.Get("api-key"); k != "secret" {
			t.Errorf("api-key = %s", k)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"temperature":0`) {
			t.Errorf("temperature not sent: %s", body)
		}
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"fetch","arguments":"{\"location_ids\":\"ITD55\"}"}}]},
			"finish_reason":"tool_calls"}],"usage":{"total_tokens":412}}`))
	})

	params := json.RawMessage(`{"type":"object","properties":{"location_ids":{"type":"string"}}}`)
	resp, err := c.Complete(context.Background(),
		[]Message{{Role: RoleUser, Content: "population of Bologna"}, {Role: RoleSystem, Content: "pick"}},
		Options{Tools: []ToolDefinition{{Name: "fetch", Description: "d", Parameters: params}}, ToolChoice: ToolChoiceAuto})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if got.MaxTokens != DefaultMaxTokens || got.ToolChoice != "auto" || len(got.Tools) != 1 || got.Tools[0].Type != "function" {
		t.Errorf("request = %+v", got)
	}
	if diff := cmp.Diff([]Message{{RoleUser, "population of Bologna"}, {RoleSystem, "pick"}}, got.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	want := &Response{
		ToolCalls:   []ToolCall{{ID: "call_1", Name: "fetch", Arguments: json.RawMessage(`{"location_ids":"ITD55"}`)}},
		TotalTokens: 412,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestAzure_Text(t *testing.T) {
	c := newTestAzure(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "tool_choice") {
			t.Errorf("tool_choice sent without tools: %s", body)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":" ITD55+ITD57\n"}}],"usage":{"total_tokens":30}}`))
	})
	resp, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{ToolChoice: ToolChoiceAuto})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ITD55+ITD57" || resp.TotalTokens != 30 || len(resp.ToolCalls) != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestAzure_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestAzure(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"429","message":"slow down"}}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})
	resp, err := c.Complete(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ok" || calls.Load() != 3 {
		t.Errorf("text %q after %d calls", resp.Text, calls.Load())
	}
}

func TestAzure_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestAzure(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`))
	})
	_, err := c.Complete(context.Background(), nil, Options{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || !strings.Contains(apiErr.Message, "invalid subscription key") {
		t.Errorf("APIError = %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestAzure_BadArguments(t *testing.T) {
	c := newTestAzure(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"tool_calls":[{"id":"c","type":"function","function":{"name":"f","arguments":"{oops"}}]}}]}`))
	})
	if _, err := c.Complete(context.Background(), nil, Options{}); err == nil {
		t.Error("expected error for invalid tool arguments")
	}
}
