package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type chatHistoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ChatSession
}

func NewChatHistoryRepository() repository.ChatHistoryRepository {
	return &chatHistoryRepository{sessions: map[string]*domain.ChatSession{}}
}

func (r *chatHistoryRepository) Get(_ context.Context, chatID string) (*domain.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(s)
}

func (r *chatHistoryRepository) Save(_ context.Context, session *domain.ChatSession) error {
	if session.ChatID == "" {
		return errors.New("chat session requires a chat_id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[session.ChatID]; ok {
		session.ID = existing.ID
	} else if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	if session.Messages == nil {
		session.Messages = []domain.Message{}
	}
	r.sessions[session.ChatID] = mustClone(session)
	return nil
}

func (r *chatHistoryRepository) ListByUser(_ context.Context, userID string, from, to time.Time, page, pageSize int) ([]domain.ChatSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	r.mu.RLock()
	matches := []domain.ChatSession{}
	for _, s := range r.sessions {
		if s.UserID == userID && !s.Time.Before(from) && !s.Time.After(to) {
			matches = append(matches, *mustClone(s))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].Time.After(matches[j].Time) })
	total := int64(len(matches))
	start := (page - 1) * pageSize
	if start >= len(matches) {
		return []domain.ChatSession{}, total, nil
	}
	end := min(start+pageSize, len(matches))
	return matches[start:end], total, nil
}

func (r *chatHistoryRepository) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type audioUploadRepository struct {
	mu      sync.RWMutex
	uploads []*domain.AudioUpload
}

func NewAudioUploadRepository() repository.AudioUploadRepository {
	return &audioUploadRepository{}
}

func (r *audioUploadRepository) Create(_ context.Context, upload *domain.AudioUpload) error {
	if upload.UserID == "" {
		return errors.New("audio upload requires a user id")
	}
	upload.ID = primitive.NewObjectID()
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = append(r.uploads, mustClone(upload))
	return nil
}

func (r *audioUploadRepository) ListByUser(_ context.Context, userID string) ([]domain.AudioUpload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.AudioUpload{}
	for i := len(r.uploads) - 1; i >= 0; i-- {
		if r.uploads[i].UserID == userID {
			out = append(out, *mustClone(r.uploads[i]))
		}
	}
	return out, nil
}

func (r *audioUploadRepository) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.uploads[:0]
	var n int64
	for _, u := range r.uploads {
		if u.UserID == userID {
			n++
			continue
		}
		kept = append(kept, u)
	}
	r.uploads = kept
	return n, nil
}
