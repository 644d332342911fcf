package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userProfileRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.UserProfile // keyed by user_id
}

func NewUserProfileRepository() repository.UserProfileRepository {
	return &userProfileRepository{users: map[string]*domain.UserProfile{}}
}

func (r *userProfileRepository) Create(_ context.Context, user *domain.UserProfile) error {
	if user.UserID == "" || user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return errors.New("user id, email, password hash, and role are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UserID == user.UserID || u.Email == user.Email || (user.Username != "" && u.Username == user.Username) {
			return repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.UserID] = mustClone(user)
	return nil
}

func (r *userProfileRepository) GetByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	return r.find(func(u *domain.UserProfile) bool { return u.Email == email })
}

func (r *userProfileRepository) GetByUsername(_ context.Context, username string) (*domain.UserProfile, error) {
	return r.find(func(u *domain.UserProfile) bool { return u.Username == username })
}

func (r *userProfileRepository) GetByUserID(_ context.Context, userID string) (*domain.UserProfile, error) {
	return r.find(func(u *domain.UserProfile) bool { return u.UserID == userID })
}

func (r *userProfileRepository) find(match func(*domain.UserProfile) bool) (*domain.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return clone(u)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userProfileRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

type userDetailsRepository struct {
	mu      sync.RWMutex
	details map[string]*domain.UserDetails
}

func NewUserDetailsRepository() repository.UserDetailsRepository {
	return &userDetailsRepository{details: map[string]*domain.UserDetails{}}
}

func (r *userDetailsRepository) Create(_ context.Context, details *domain.UserDetails) error {
	if details.UserID == "" {
		return errors.New("user details require a user id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.details[details.UserID]; ok {
		return repository.ErrDuplicate
	}
	details.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	details.CreatedAt = now
	details.UpdatedAt = now
	r.details[details.UserID] = mustClone(details)
	return nil
}

func (r *userDetailsRepository) GetByUserID(_ context.Context, userID string) (*domain.UserDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.details[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(d)
}

// UpdateField walks the dotted path through the section maps, creating
// intermediate maps the way a MongoDB $set would.
func (r *userDetailsRepository) UpdateField(_ context.Context, userID, path string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.details[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := setPath(d, path, value); err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userDetailsRepository) AddMemory(_ context.Context, userID, memory string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.details[userID]
	if !ok {
		return repository.ErrNotFound
	}
	d.Memories = append(d.Memories, memory)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userDetailsRepository) RemoveMemory(_ context.Context, userID string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.details[userID]
	if !ok || index < 0 || index >= len(d.Memories) {
		return repository.ErrNotFound
	}
	d.Memories = append(d.Memories[:index:index], d.Memories[index+1:]...)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userDetailsRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.details[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.details, userID)
	return nil
}
