package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatReply(w http.ResponseWriter, content string) {
	resp := ChatResponse{
		ID:     "test-id",
		Object: "chat.completion",
		Choices: []ChatChoice{
			{
				Index:        0,
				Message:      ChatChoiceMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.openai.com", "test-key", "gpt-3.5-turbo")
	if client.BaseURL != "https://api.openai.com" {
		t.Errorf("NewClient() BaseURL = %v", client.BaseURL)
	}
	if client.APIKey != "test-key" {
		t.Errorf("NewClient() APIKey = %v, want test-key", client.APIKey)
	}
	if client.Model != "gpt-3.5-turbo" {
		t.Errorf("NewClient() Model = %v, want gpt-3.5-turbo", client.Model)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name       string
		params     ChatParams
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    bool
		wantStatus int
	}{
		{
			name:   "sends prompt, max tokens and zero temperature",
			params: ChatParams{MaxTokens: 700, Temperature: 0},
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}

				var raw map[string]any
				_ = json.NewDecoder(r.Body).Decode(&raw)
				if raw["model"] != "gpt-3.5-turbo" {
					t.Errorf("model = %v, want gpt-3.5-turbo", raw["model"])
				}
				if raw["max_tokens"] != float64(700) {
					t.Errorf("max_tokens = %v, want 700", raw["max_tokens"])
				}
				if temp, ok := raw["temperature"]; !ok || temp != float64(0) {
					t.Errorf("temperature = %v (present %v), want explicit 0", temp, ok)
				}
				msgs, _ := raw["messages"].([]any)
				if len(msgs) != 1 {
					t.Fatalf("expected 1 message, got %d", len(msgs))
				}
				msg, _ := msgs[0].(map[string]any)
				if msg["role"] != "user" || msg["content"] != "find me a condo" {
					t.Errorf("message = %v", msg)
				}

				chatReply(w, "1. Address: 1 Main St")
			},
			wantReply: "1. Address: 1 Main St",
		},
		{
			name:   "no choices returned",
			params: ChatParams{},
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{Choices: []ChatChoice{}})
			},
			wantErr: true,
		},
		{
			name:   "server error",
			params: ChatParams{},
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("Internal Server Error"))
			},
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "invalid JSON response",
			params: ChatParams{},
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("invalid json"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "gpt-3.5-turbo")
			reply, err := client.Complete(context.Background(), "find me a condo", tt.params)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantStatus != 0 {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.wantStatus {
					t.Errorf("Complete() error = %v, want APIError %d", err, tt.wantStatus)
				}
			}
			if !tt.wantErr && reply != tt.wantReply {
				t.Errorf("Complete() reply = %v, want %v", reply, tt.wantReply)
			}
		})
	}
}

func TestClient_ChatWithMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Model != "custom-model" {
			t.Errorf("expected model custom-model, got %s", req.Model)
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Errorf("temperature = %v, want 0.7", req.Temperature)
		}

		chatReply(w, "Response")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	messages := []Message{
		{Role: "system", Content: "You are a rental assistant"},
		{Role: "user", Content: "Hello"},
	}

	reply, err := client.ChatWithMessages(context.Background(), messages, ChatParams{
		Model:       "custom-model",
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
	if reply != "Response" {
		t.Errorf("ChatWithMessages() reply = %v, want Response", reply)
	}
}

func TestClient_ChatWithMessages_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", req.Model)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization header should be omitted without an API key")
		}
		chatReply(w, "Response")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "test-model")

	reply, err := client.ChatWithMessages(context.Background(), []Message{{Role: "user", Content: "Hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
	if reply != "Response" {
		t.Errorf("ChatWithMessages() reply = %v, want Response", reply)
	}
}

func TestClient_Complete_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "test-key", "test-model")
	if _, err := client.Complete(ctx, "hello", ChatParams{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
}
