package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/learnproof/learnproof-api/shared"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateQuestionGenerator(t *testing.T) {
	questions, err := TemplateQuestionGenerator{}.Generate(context.Background(), "Goroutines", "Lightweight threads. They are cheap.")
	require.NoError(t, err)
	require.Len(t, questions, 3)

	for _, q := range questions {
		assert.NotEmpty(t, q.Question)
		assert.Len(t, q.Options, 4)
		assert.Contains(t, q.Options, q.Answer)
	}
	assert.Equal(t, "Goroutines", questions[0].Answer)
	assert.Equal(t, "Lightweight threads.", questions[1].Answer)

	again, err := TemplateQuestionGenerator{}.Generate(context.Background(), "Goroutines", "Lightweight threads. They are cheap.")
	require.NoError(t, err)
	assert.Equal(t, questions, again)

	bare, err := TemplateQuestionGenerator{}.Generate(context.Background(), "  ", "")
	require.NoError(t, err)
	require.Len(t, bare, 2)
	assert.Equal(t, "this lesson", bare[0].Answer)
}

func TestParseGeneratedQuiz(t *testing.T) {
	questions, err := parseGeneratedQuiz([]byte(`{"questions": [{"question": "2+2?", "options": ["3", "4", "5", "22"], "answer": "4"}]}`))
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "4", questions[0].Answer)

	invalid := []string{
		`not json`,
		`{"questions": []}`,
		`{"questions": [{"question": "2+2?", "options": ["3", "4"], "answer": "4"}]}`,
		`{"questions": [{"question": "2+2?", "options": ["1", "3", "4", "5", "6"], "answer": "4"}]}`,
		`{"questions": [{"question": "2+2?", "options": ["1", "3", "5", "6"], "answer": "4"}]}`,
		`{"questions": [{"question": "2+2?", "options": ["1", "3", "4", "5"]}]}`,
		`{"questions": [{"question": "2+2?", "options": ["1", "3", "4", "5"], "answer": "4", "hint": "even"}]}`,
	}
	for _, raw := range invalid {
		_, err := parseGeneratedQuiz([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func newOpenAITestClient(t *testing.T, content string, status int) *openai.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
			return
		}
		body := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		raw, _ := shared.JSONMarshal(body)
		_, _ = w.Write(raw)
	}))
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return openai.NewClientWithConfig(config)
}

func TestOpenAIQuestionGenerator(t *testing.T) {
	content := `{"questions": [{"question": "What runs concurrently?", "options": ["goroutines", "structs", "maps", "slices"], "answer": "goroutines"}]}`
	gen := NewOpenAIQuestionGenerator(newOpenAITestClient(t, content, http.StatusOK), "", 0, TemplateQuestionGenerator{})
	assert.Equal(t, defaultQuizModel, gen.model)
	assert.Equal(t, defaultLLMTimeout, gen.timeout)

	questions, err := gen.Generate(context.Background(), "Goroutines", "")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "goroutines", questions[0].Answer)
}

func TestOpenAIQuestionGeneratorFallsBack(t *testing.T) {
	ctx := context.Background()

	unusable := NewOpenAIQuestionGenerator(newOpenAITestClient(t, `{"questions": "nope"}`, http.StatusOK), "gpt-test", 0, TemplateQuestionGenerator{})
	questions, err := unusable.Generate(ctx, "Goroutines", "")
	require.NoError(t, err)
	assert.Equal(t, "Goroutines", questions[0].Answer)

	down := NewOpenAIQuestionGenerator(newOpenAITestClient(t, "", http.StatusBadRequest), "gpt-test", 0, TemplateQuestionGenerator{})
	questions, err = down.Generate(ctx, "Channels", "")
	require.NoError(t, err)
	assert.Equal(t, "Channels", questions[0].Answer)

	noFallback := NewOpenAIQuestionGenerator(newOpenAITestClient(t, "", http.StatusBadRequest), "gpt-test", 0, nil)
	_, err = noFallback.Generate(ctx, "Channels", "")
	assert.Error(t, err)
}

func TestOpenAIQuestionGeneratorTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	client := openai.NewClientWithConfig(config)
	ctx := context.Background()

	stalled := NewOpenAIQuestionGenerator(client, "gpt-test", 100*time.Millisecond, nil)
	began := time.Now()
	_, err := stalled.Generate(ctx, "Goroutines", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(began), 2*time.Second)

	withFallback := NewOpenAIQuestionGenerator(client, "gpt-test", 100*time.Millisecond, TemplateQuestionGenerator{})
	questions, err := withFallback.Generate(ctx, "Goroutines", "")
	require.NoError(t, err)
	assert.Equal(t, "Goroutines", questions[0].Answer)
}
