package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"alcyxob/fitness-coach/internal/assistant"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/repository"
)

const (
	defaultHistoryWindow = 30 * 24 * time.Hour
	maxPageSize          = 100
)

// --- Request/Result Types ---

// ChatRequest is one user turn. An empty ChatID starts a new session.
type ChatRequest struct {
	ChatID      string
	Message     string
	Purpose     domain.Purpose
	PurposeData domain.PurposeParams
}

// ChatChunk is one streamed extraction as sent to the caller.
type ChatChunk struct {
	Message  string              `json:"message"`
	ChatID   string              `json:"chat_id"`
	Question *assistant.Question `json:"question"`
	Complete bool                `json:"complete"`
}

// ChatHistory is a session as returned to its owner, bootstrap messages removed.
type ChatHistory struct {
	ChatID      string               `json:"chat_id"`
	Purpose     domain.Purpose       `json:"purpose"`
	PurposeData domain.PurposeParams `json:"purpose_data"`
	Messages    []domain.Message     `json:"messages"`
	Time        time.Time            `json:"time"`
}

// ChatSummary is one row of a session listing.
type ChatSummary struct {
	ChatID       string               `json:"chat_id"`
	Purpose      domain.Purpose       `json:"purpose"`
	PurposeData  domain.PurposeParams `json:"purpose_data"`
	Time         time.Time            `json:"time"`
	MessageCount int                  `json:"message_count"`
}

type SessionPage struct {
	Sessions []ChatSummary `json:"sessions"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// --- Service Interface ---
type ChatService interface {
	// Chat runs one turn and calls emit for every extraction as soon as it is
	// produced. Errors returned before the first emit mean nothing was streamed.
	Chat(ctx context.Context, caller domain.Identity, req ChatRequest, emit func(ChatChunk) error) (chatID string, err error)
	GetChatHistory(ctx context.Context, caller domain.Identity, chatID string) (*ChatHistory, error)
	ListChatSessions(ctx context.Context, caller domain.Identity, from, to time.Time, page, pageSize int) (*SessionPage, error)
}

// --- Service Implementation ---

type chatService struct {
	repos  Repositories
	router *assistant.Router
	log    *logger.Logger
	opts   options
}

func NewChatService(repos Repositories, router *assistant.Router, log *logger.Logger, opts ...Option) ChatService {
	return &chatService{repos: repos, router: router, log: log.With("service", "chat"), opts: applyOptions(opts)}
}

func (s *chatService) Chat(ctx context.Context, caller domain.Identity, req ChatRequest, emit func(ChatChunk) error) (chatID string, err error) {
	// 1. Purpose and caller
	purpose, err := domain.ParsePurpose(req.Purpose, req.PurposeData)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if caller.Anonymous() && purpose.Purpose() != domain.PurposeOnboarding {
		return "", fmt.Errorf("%w: sign in to use the %s chat", ErrUnauthorized, purpose.Purpose())
	}

	// 2. Session id
	chatID = strings.TrimSpace(req.ChatID)
	if chatID == "" {
		chatID = uuid.NewString()
	}
	ctx, end := startSpan(ctx, "ChatService.Chat",
		attribute.String("chat_id", chatID), attribute.String("purpose", string(purpose.Purpose())))
	defer func() { end(err) }()
	log := s.log.With("chat_id", chatID, "user_id", caller.UserID, "purpose", purpose.Purpose())

	// 3. Existing transcript
	session, err := s.loadOrNew(ctx, caller, chatID, purpose)
	if err != nil {
		return chatID, err
	}

	// 4. Memories and profile for the seed
	turn := assistant.Turn{UserID: session.UserID, UserMessage: req.Message, History: session.Conversation()}
	if session.State == domain.SessionActive {
		turn.Seed, _ = session.Seed()
	}
	if session.UserID != "" {
		details, err := s.repos.Details.GetByUserID(ctx, session.UserID)
		switch {
		case err == nil:
			turn.Memories = details.Memories
			turn.Profile = details.WithoutMemories()
		case !errors.Is(err, repository.ErrNotFound):
			return chatID, upstream(log, "load user details", err)
		}
	}

	// 5. Dispatch
	reply, err := s.router.Select(purpose)(ctx, turn)
	if err != nil {
		return chatID, upstream(log, "start assistant turn", err)
	}

	// 6. Push every extraction as it arrives; only the last one is kept
	var last assistant.Extraction
	produced := false
	for ex, streamErr := range reply.Extractions {
		if streamErr != nil {
			return chatID, upstream(log, "stream assistant reply", streamErr)
		}
		last, produced = ex, true
		chunk := ChatChunk{Message: ex.Text(), ChatID: chatID, Question: ex.Question, Complete: ex.Done()}
		if err := emit(chunk); err != nil {
			// The caller went away; the turn is not persisted.
			log.Warn("Chat stream aborted by client", "error", err)
			return chatID, err
		}
	}
	if !produced {
		log.Warn("Assistant produced no output, nothing persisted")
		return chatID, nil
	}

	// 7. Persist the turn
	now := s.opts.now().UTC()
	if reply.SeedSystemMessage != "" {
		msgs := []domain.Message{{Role: domain.MsgSystem, Content: reply.SeedSystemMessage, Timestamp: now}}
		for _, m := range session.Messages {
			if m.Role != domain.MsgSystem {
				msgs = append(msgs, m)
			}
		}
		session.Messages = msgs
	}
	if msg := strings.TrimSpace(req.Message); msg != "" {
		session.Messages = append(session.Messages, domain.Message{Role: domain.MsgUser, Content: msg, Timestamp: now})
	}
	session.Messages = append(session.Messages, domain.Message{Role: domain.MsgAssistant, Content: last.Text(), Timestamp: now})
	session.State = domain.SessionActive
	session.Purpose = purpose.Purpose()
	session.PurposeData = purpose.Params()
	session.Time = now

	if err := s.repos.Chats.Save(ctx, session); err != nil {
		return chatID, upstream(log, "save chat session", err)
	}
	log.Debug("Chat turn persisted", "messages", len(session.Messages), "complete", last.Done())
	return chatID, nil
}

// loadOrNew returns the stored session or a fresh unstarted one. An
// authenticated caller continuing a walk-in session claims it.
func (s *chatService) loadOrNew(ctx context.Context, caller domain.Identity, chatID string, purpose domain.PurposeData) (*domain.ChatSession, error) {
	session, err := s.repos.Chats.Get(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.ChatSession{
			ChatID:      chatID,
			UserID:      caller.UserID,
			State:       domain.SessionUnstarted,
			Purpose:     purpose.Purpose(),
			PurposeData: purpose.Params(),
			Messages:    []domain.Message{},
		}, nil
	}
	if err != nil {
		return nil, upstream(s.log, "load chat session", err, "chat_id", chatID)
	}

	switch {
	case session.UserID == "" && !caller.Anonymous():
		s.log.Info("Walk-in chat claimed", "chat_id", chatID, "user_id", caller.UserID)
		session.UserID = caller.UserID
	case session.UserID != "" && caller.Anonymous():
		return nil, fmt.Errorf("%w: sign in to continue chat %s", ErrUnauthorized, chatID)
	case session.UserID != "" && !caller.CanAccess(session.UserID):
		return nil, fmt.Errorf("%w: chat %s belongs to another user", ErrForbidden, chatID)
	}
	if session.Purpose != "" && session.Purpose != purpose.Purpose() {
		return nil, validationf("chat %s is a %s conversation, not %s", chatID, session.Purpose, purpose.Purpose())
	}
	return session, nil
}

func (s *chatService) GetChatHistory(ctx context.Context, caller domain.Identity, chatID string) (*ChatHistory, error) {
	session, err := loadSession(ctx, s.repos.Chats, s.log, caller, chatID)
	if err != nil {
		return nil, err
	}
	return &ChatHistory{
		ChatID:      session.ChatID,
		Purpose:     session.Purpose,
		PurposeData: session.PurposeData,
		Messages:    session.Conversation(),
		Time:        session.Time,
	}, nil
}

func (s *chatService) ListChatSessions(ctx context.Context, caller domain.Identity, from, to time.Time, page, pageSize int) (*SessionPage, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	if page < 1 {
		return nil, validationf("page must be at least 1")
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return nil, validationf("page_size must be between 1 and %d", maxPageSize)
	}
	if to.IsZero() {
		to = s.opts.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultHistoryWindow)
	}
	if from.After(to) {
		return nil, validationf("from must not be after to")
	}

	sessions, total, err := s.repos.Chats.ListByUser(ctx, caller.UserID, from, to, page, pageSize)
	if err != nil {
		return nil, upstream(s.log, "list chat sessions", err, "user_id", caller.UserID)
	}
	out := &SessionPage{Sessions: make([]ChatSummary, 0, len(sessions)), Total: total, Page: page, PageSize: pageSize}
	for i := range sessions {
		out.Sessions = append(out.Sessions, ChatSummary{
			ChatID:       sessions[i].ChatID,
			Purpose:      sessions[i].Purpose,
			PurposeData:  sessions[i].PurposeData,
			Time:         sessions[i].Time,
			MessageCount: len(sessions[i].Conversation()),
		})
	}
	return out, nil
}
