package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatResponse writes an OpenAI-compatible chat completion body.
func chatResponse(w http.ResponseWriter, content string, prompt, completion int) {
	resp := openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  "test-model",
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// newTestAdvisor starts a server and returns an advisor pointed at it.
// Every decoded request is appended to *seen.
func newTestAdvisor(t *testing.T, handler http.HandlerFunc, seen *[]openai.ChatCompletionRequest) *Advisor {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.URL.Path == "/chat/completions" && seen != nil {
			var req openai.ChatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			*seen = append(*seen, req)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return NewAdvisor(&Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		PlannerModel: "planner-model",
		Logger:       zap.NewNop(),
	})
}
