// Package assistant holds the purpose-specific coaching assistants. Each one
// owns a prompt template, seeds a new conversation with purpose context and
// drives a streamed structured completion.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/prompts"
)

// Question is a constrained follow-up the assistant wants answered,
// e.g. a multiple-choice or a numeric range.
type Question struct {
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Unit    string   `json:"unit,omitempty"`
}

// Extraction is one snapshot of the streamed reply. Fields fill in
// progressively; only the last snapshot of a stream is final.
type Extraction struct {
	Response *string   `json:"response"`
	Question *Question `json:"question"`
	Complete *bool     `json:"complete"`
}

// Text returns the response text, or "" while it has not started streaming.
func (e Extraction) Text() string {
	if e.Response == nil {
		return ""
	}
	return *e.Response
}

// Done reports whether the assistant flagged its workflow as finished.
func (e Extraction) Done() bool {
	return e.Complete != nil && *e.Complete
}

// Turn is one user turn of a session.
type Turn struct {
	UserID string
	// Seed is the system message captured when the session started. Empty on the first turn.
	Seed string
	// History is the cleaned transcript, oldest first, without bootstrap messages.
	History     []domain.Message
	UserMessage string
	Memories    []string
	// Profile is the client's stored details without memories. Nil before onboarding.
	Profile map[string]any
}

// Reply is the result of a chat turn.
type Reply struct {
	// Extractions is lazy: nothing is requested from the model until it is ranged over.
	Extractions iter.Seq2[Extraction, error]
	// SeedSystemMessage is set only when the turn started a new conversation.
	SeedSystemMessage string
}

// ChatFunc runs one turn for an already selected purpose.
type ChatFunc func(ctx context.Context, turn Turn) (*Reply, error)

// PlanLookup resolves the weekly plan covering a date. It returns nil, nil when
// no plan covers the date yet.
type PlanLookup interface {
	WeeklyPlanCovering(ctx context.Context, userID string, date time.Time) (*domain.WeeklyTrainingPlan, error)
}

// replySchema is the structured output contract shared by every chat assistant.
var replySchema = &llm.Schema{
	Name:   "coach_reply",
	Strict: true,
	Schema: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"response", "question", "complete"},
		"properties": map[string]any{
			"response": map[string]any{"type": []string{"string", "null"}},
			"question": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "null"},
					map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []string{"type", "options", "min", "max", "unit"},
						"properties": map[string]any{
							"type":    map[string]any{"type": "string", "enum": []string{"choice", "number", "text"}},
							"options": map[string]any{"type": []string{"array", "null"}, "items": map[string]any{"type": "string"}},
							"min":     map[string]any{"type": []string{"number", "null"}},
							"max":     map[string]any{"type": []string{"number", "null"}},
							"unit":    map[string]any{"type": []string{"string", "null"}},
						},
					},
				},
			},
			"complete": map[string]any{"type": []string{"boolean", "null"}},
		},
	},
}

// base carries what every assistant needs.
type base struct {
	llm     llm.Client
	prompts *prompts.Store
	log     *logger.Logger
}

// seedOr returns turn.Seed for a continuing conversation, otherwise renders
// a new seed with build and reports it as fresh.
func (b *base) seedOr(turn Turn, build func() (string, error)) (seed string, fresh bool, err error) {
	if turn.Seed != "" {
		return turn.Seed, false, nil
	}
	seed, err = build()
	if err != nil {
		return "", false, err
	}
	return seed, true, nil
}

// converse streams the structured reply for turn under the given system message.
func (b *base) converse(ctx context.Context, seed string, fresh bool, turn Turn) *Reply {
	msgs := make([]llm.Message, 0, len(turn.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: seed})
	msgs = append(msgs, toLLM(turn.History)...)
	if msg := strings.TrimSpace(turn.UserMessage); msg != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: msg})
	}
	req := llm.Request{Messages: msgs, Schema: replySchema, Temperature: llm.Temperature(0.7)}

	reply := &Reply{Extractions: decodeStream(b.llm.StreamJSON(ctx, req))}
	if fresh {
		reply.SeedSystemMessage = seed
	}
	return reply
}

// decodeStream turns raw JSON snapshots into Extraction values. Each snapshot
// decodes into a fresh value so consumers can hold on to earlier ones.
func decodeStream(raw iter.Seq2[[]byte, error]) iter.Seq2[Extraction, error] {
	return func(yield func(Extraction, error) bool) {
		for doc, err := range raw {
			if err != nil {
				yield(Extraction{}, err)
				return
			}
			var ex Extraction
			if err := json.Unmarshal(doc, &ex); err != nil {
				// Snapshots are valid JSON but may briefly carry the wrong shape,
				// e.g. a half-written number. Skip them.
				continue
			}
			if !yield(ex, nil) {
				return
			}
		}
	}
}

func toLLM(history []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := m.Role
		if role != domain.MsgUser && role != domain.MsgAssistant && role != domain.MsgSystem {
			continue
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

// memoriesText renders memory notes as a bullet list.
func memoriesText(memories []string) string {
	if len(memories) == 0 {
		return "None."
	}
	var sb strings.Builder
	for _, m := range memories {
		if m = strings.TrimSpace(m); m != "" {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return "None."
	}
	return strings.TrimRight(sb.String(), "\n")
}

// transcriptText flattens a conversation into "role: content" lines.
func transcriptText(history []domain.Message) string {
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func toJSON(v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("assistant: encode context: %w", err)
	}
	return string(raw), nil
}
