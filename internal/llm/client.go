// Package llm talks to an OpenAI-compatible chat completions API: one-shot
// text, one-shot JSON, streamed JSON snapshots, and audio translation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
)

// Chat roles understood by the API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrEmptyResponse is returned when the API answers without any choice content.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrMalformedJSON is returned when a JSON completion cannot be parsed.
	ErrMalformedJSON = errors.New("llm: malformed JSON output")
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema describes a structured output contract (response_format json_schema).
// A nil schema on a JSON call falls back to json_object mode.
type Schema struct {
	Name   string
	Schema map[string]any
	Strict bool
}

// Request is a single chat completion call.
type Request struct {
	Messages    []Message
	Temperature *float64
	Schema      *Schema
}

// Client is the chat completion capability consumed by the assistants and services.
type Client interface {
	// Complete returns the free-text answer.
	Complete(ctx context.Context, req Request) (string, error)
	// CompleteJSON decodes the structured answer into out.
	CompleteJSON(ctx context.Context, req Request, out any) error
	// StreamJSON yields successively more complete JSON documents while the
	// answer streams. Every yielded document is valid JSON; the last one is the final answer.
	StreamJSON(ctx context.Context, req Request) iter.Seq2[[]byte, error]
	// Transcribe translates spoken audio into English text.
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error)
}

// Temperature is a helper for the optional Request field.
func Temperature(t float64) *float64 {
	return &t
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: api http %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
