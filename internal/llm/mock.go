package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"sync"
)

// MockClient implements Client for tests. Replies are consumed in order by
// Complete, CompleteJSON and StreamJSON; Respond, when set, takes precedence.
type MockClient struct {
	mu sync.Mutex

	Respond        func(req Request) (string, error)
	Replies        []string
	Default        string
	Err            error
	TranscribeText string
	TranscribeErr  error
	// ChunkSize controls how StreamJSON splits the reply into deltas (default 5 bytes).
	ChunkSize int

	Requests []Request
}

// NewMockClient creates a mock that answers with replies in order.
func NewMockClient(replies ...string) *MockClient {
	return &MockClient{Replies: replies}
}

func (m *MockClient) next(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Respond != nil {
		return m.Respond(req)
	}
	if len(m.Replies) > 0 {
		reply := m.Replies[0]
		m.Replies = m.Replies[1:]
		return reply, nil
	}
	if m.Default != "" {
		return m.Default, nil
	}
	return "", fmt.Errorf("llm mock: no reply scripted")
}

// Calls returns a copy of the requests received so far.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.Requests...)
}

func (m *MockClient) Complete(_ context.Context, req Request) (string, error) {
	return m.next(req)
}

func (m *MockClient) CompleteJSON(_ context.Context, req Request, out any) error {
	reply, err := m.next(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(reply), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// StreamJSON replays the reply in small deltas through the same snapshot
// logic as the HTTP client.
func (m *MockClient) StreamJSON(_ context.Context, req Request) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		reply, err := m.next(req)
		if err != nil {
			yield(nil, err)
			return
		}
		size := m.ChunkSize
		if size <= 0 {
			size = 5
		}
		var acc partialJSON
		for i := 0; i < len(reply); i += size {
			end := min(i+size, len(reply))
			if snap, ok := acc.Append(reply[i:end]); ok {
				if !yield(snap, nil) {
					return
				}
			}
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

func (m *MockClient) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return "", err
	}
	if m.TranscribeErr != nil {
		return "", m.TranscribeErr
	}
	return m.TranscribeText, nil
}
