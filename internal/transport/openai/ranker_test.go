package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Name   string          `json:"name"`
			Schema json.RawMessage `json:"schema"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

func chatServer(t *testing.T, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-chat",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRanker(url string) *Ranker {
	return NewRanker(&RankerConfig{APIKey: "k", BaseURL: url, Model: "test-chat", Logger: zap.NewNop()})
}

func TestRanker_Rank(t *testing.T) {
	var req chatRequest
	srv := chatServer(t, `{"titles":["Trigun","Cowboy Bebop"]}`, &req)

	titles, err := newTestRanker(srv.URL).Rank(context.Background(), "Rank these anime:\n1. Cowboy Bebop\n2. Trigun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(titles, []string{"Trigun", "Cowboy Bebop"}) {
		t.Errorf("titles = %v", titles)
	}

	if req.Model != "test-chat" || len(req.Messages) != 2 || req.Messages[1].Role != "user" {
		t.Errorf("request = %+v", req)
	}
	if req.ResponseFormat.Type != "json_schema" || req.ResponseFormat.JSONSchema.Name != "ranked_titles" {
		t.Errorf("response format = %+v", req.ResponseFormat)
	}
}

func TestRanker_FencedOutput(t *testing.T) {
	srv := chatServer(t, "```json\n{\"titles\":[\"Akira\"]}\n```", nil)

	titles, err := newTestRanker(srv.URL).Rank(context.Background(), "p")
	if err != nil || len(titles) != 1 || titles[0] != "Akira" {
		t.Errorf("titles=%v err=%v", titles, err)
	}
}

func TestRanker_GarbageOutput(t *testing.T) {
	srv := chatServer(t, "I think Akira is best.", nil)

	_, err := newTestRanker(srv.URL).Rank(context.Background(), "p")
	if !errors.Is(err, domain.ErrRankerUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestRanker_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestRanker(srv.URL).Rank(context.Background(), "p")
	if !errors.Is(err, domain.ErrRankerUnavailable) {
		t.Fatalf("err = %v", err)
	}
}
