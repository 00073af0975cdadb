package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openptc/ptcd/pkg/protocol"
)

func TestOpenAIChat(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "the answer"}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 2},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test",
		WithOpenAIModel("test-model"),
		WithOpenAIBaseURL(srv.URL))

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
		},
		MaxTokens: 128,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Content != "the answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TokensIn != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}

	// system turns stay inline for the OpenAI wire shape
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("messages = %v", msgs)
	}
	if gotBody["max_tokens"] != float64(128) {
		t.Errorf("max_tokens = %v", gotBody["max_tokens"])
	}
}

func TestOpenAIChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", WithOpenAIBaseURL(srv.URL))
	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})

	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Kind != protocol.KindLLM {
		t.Errorf("err = %v, want llm kind", err)
	}
}

func TestOpenAIDefaultModelUsed(t *testing.T) {
	var gotModel any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body["model"]
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "x"}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", WithOpenAIModel("configured"), WithOpenAIBaseURL(srv.URL))
	if _, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}); err != nil {
		t.Fatal(err)
	}
	if gotModel != "configured" {
		t.Errorf("model = %v, want configured default", gotModel)
	}
}
