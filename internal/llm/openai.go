package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/logger"
)

// OpenAIClient implements Client over the OpenAI HTTP API.
type OpenAIClient struct {
	log                *logger.Logger
	apiKey             string
	baseURL            string
	model              string
	transcriptionModel string
	httpClient         *http.Client
	maxRetries         int
	backoff            time.Duration
}

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.LLMConfig, log *logger.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: api key is required (LLM_API_KEY)")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OpenAIClient{
		log:                log,
		apiKey:             cfg.APIKey,
		baseURL:            baseURL,
		model:              cfg.Model,
		transcriptionModel: cfg.TranscriptionModel,
		httpClient:         &http.Client{Timeout: timeout},
		maxRetries:         max(cfg.MaxRetries, 0),
		backoff:            time.Second,
	}, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

func (c *OpenAIClient) buildChatRequest(req Request, asJSON, stream bool) chatRequest {
	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if asJSON {
		if req.Schema != nil {
			body.ResponseFormat = &responseFormat{Type: "json_schema", JSONSchema: &jsonSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema.Schema,
				Strict: req.Schema.Strict,
			}}
		} else {
			body.ResponseFormat = &responseFormat{Type: "json_object"}
		}
	}
	return body
}

// Complete returns the free-text answer.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	return c.complete(ctx, c.buildChatRequest(req, false, false))
}

// CompleteJSON decodes the structured answer into out.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, req Request, out any) error {
	content, err := c.complete(ctx, c.buildChatRequest(req, true, false))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

func (c *OpenAIClient) complete(ctx context.Context, body chatRequest) (string, error) {
	var resp chatResponse
	if err := c.do(ctx, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("llm: model refused: %s", msg.Refusal)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyResponse
	}
	return msg.Content, nil
}

// errStopStream ends SSE reading when the consumer stops iterating.
var errStopStream = errors.New("llm: stream consumer stopped")

// StreamJSON streams a JSON completion and yields repaired snapshots as they grow.
func (c *OpenAIClient) StreamJSON(ctx context.Context, req Request) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		resp, err := c.openStream(ctx, c.buildChatRequest(req, true, true))
		if err != nil {
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		var acc partialJSON
		err = streamSSE(resp.Body, func(_ string, data string) error {
			data = strings.TrimSpace(data)
			if data == "" || data == "[DONE]" {
				return nil
			}
			var chunk chatChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return nil // keep-alives and unknown frames
			}
			if len(chunk.Error) > 0 && string(chunk.Error) != "null" {
				return fmt.Errorf("llm: stream error: %s", string(chunk.Error))
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Refusal != "" {
					return fmt.Errorf("llm: model refused: %s", choice.Delta.Refusal)
				}
				if choice.Delta.Content == "" {
					continue
				}
				if snap, ok := acc.Append(choice.Delta.Content); ok {
					if !yield(snap, nil) {
						return errStopStream
					}
				}
			}
			return nil
		})
		if errors.Is(err, errStopStream) {
			return
		}
		if err != nil {
			yield(nil, err)
			return
		}
		doc, changed, err := acc.Final()
		if err != nil {
			yield(nil, err)
			return
		}
		if changed {
			yield(doc, nil)
		}
	}
}

func (c *OpenAIClient) openStream(ctx context.Context, body chatRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

// Transcribe uploads the clip to the translations endpoint, which always answers in English.
func (c *OpenAIClient) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", c.transcriptionModel); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/translations", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("llm: decode transcription: %w", err)
	}
	return out.Text, nil
}

func (c *OpenAIClient) doOnce(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// do posts body and decodes the answer into out, retrying throttling, 5xx and network errors.
func (c *OpenAIClient) do(ctx context.Context, path string, body any, out any) error {
	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("llm: decode response: %w", uErr)
			}
			return nil
		}
		if !isRetryable(err) || attempt >= c.maxRetries {
			return err
		}
		c.log.Warn("LLM request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
