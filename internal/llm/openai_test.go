package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient(config.LLMConfig{
		APIKey:             "sk-test",
		BaseURL:            srv.URL,
		Model:              "gpt-test",
		TranscriptionModel: "whisper-1",
		Timeout:            5 * time.Second,
		MaxRetries:         2,
	}, logger.NewNop())
	require.NoError(t, err)
	c.backoff = time.Millisecond
	return c
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": content}, "finish_reason": "stop"}},
	})
	return string(b)
}

func TestOpenAIClient_CompleteJSON(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, completion(`{"exercises":[{"name":"squat"}]}`))
	})

	var out struct {
		Exercises []struct {
			Name string `json:"name"`
		} `json:"exercises"`
	}
	err := c.CompleteJSON(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "log it"}}}, &out)
	require.NoError(t, err)
	require.Len(t, out.Exercises, 1)
	assert.Equal(t, "squat", out.Exercises[0].Name)
	assert.Equal(t, "gpt-test", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, completion("ok"))
	})

	text, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	})

	_, err := c.Complete(context.Background(), Request{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIClient_StreamJSON(t *testing.T) {
	deltas := []string{`{"resp`, `onse": "Nice`, ` work"`, `, "complete": true}`}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{{"delta": map[string]any{"content": d}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, ": keep-alive\n\ndata: [DONE]\n\n")
	})

	var snaps []string
	for snap, err := range c.StreamJSON(context.Background(), Request{}) {
		require.NoError(t, err)
		snaps = append(snaps, string(snap))
	}
	require.NotEmpty(t, snaps)
	assert.JSONEq(t, `{"response": "Nice work", "complete": true}`, snaps[len(snaps)-1])
	assert.Contains(t, snaps, `{"response": "Nice"}`)
}

func TestOpenAIClient_StreamJSON_StopsEarly(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 20; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", strings.Repeat(" ", i)+"{")
		}
	})

	n := 0
	for range c.StreamJSON(context.Background(), Request{}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestOpenAIClient_StreamJSON_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	for _, err := range c.StreamJSON(context.Background(), Request{}) {
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	}
}

func TestOpenAIClient_Transcribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/translations", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "clip.m4a", hdr.Filename)
		assert.Equal(t, "RIFF", string(body))
		_, _ = io.WriteString(w, `{"text":"I did three sets of squats"}`)
	})

	text, err := c.Transcribe(context.Background(), "uploads/clip.m4a", strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "I did three sets of squats", text)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(config.LLMConfig{}, logger.NewNop())
	assert.Error(t, err)
}
