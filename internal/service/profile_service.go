package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/storage"
)

// FieldKind is the value type accepted for an updatable details field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindBool
	KindStringList
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStringList:
		return "list of strings"
	}
	return "unknown"
}

// UpdatableFields is the whitelist of dotted paths accepted by UpdateUserDetailsField.
var UpdatableFields = map[string]FieldKind{
	"personal_info.name":              KindString,
	"personal_info.age":               KindNumber,
	"personal_info.sex":               KindString,
	"personal_info.height":            KindNumber,
	"personal_info.weight":            KindNumber,
	"fitness_profile.fitness_level":   KindString,
	"fitness_profile.goals":           KindStringList,
	"fitness_profile.available_days":  KindNumber,
	"fitness_profile.preferred_days":  KindStringList,
	"fitness_profile.equipment":       KindStringList,
	"fitness_profile.session_length":  KindNumber,
	"fitness_profile.has_gym_access":  KindBool,
	"health_info.injuries":            KindStringList,
	"health_info.conditions":          KindStringList,
	"health_info.medications":         KindStringList,
	"health_info.pain_during_workout": KindBool,
	"lifestyle.activity_level":        KindString,
	"lifestyle.sleep_hours":           KindNumber,
	"lifestyle.stress_level":          KindString,
	"lifestyle.nutrition":             KindString,
	"memories":                        KindStringList,
}

// --- Service Interface ---
type ProfileService interface {
	// CreateUserDetails stores onboarding details and the empty training plan skeleton.
	CreateUserDetails(ctx context.Context, caller domain.Identity, details *domain.UserDetails) (*domain.UserDetails, error)
	GetUserDetails(ctx context.Context, caller domain.Identity) (*domain.UserDetails, error)
	UpdateUserDetailsField(ctx context.Context, caller domain.Identity, path string, value any) (*domain.UserDetails, error)
	AddMemory(ctx context.Context, caller domain.Identity, memory string) (*domain.UserDetails, error)
	RemoveMemory(ctx context.Context, caller domain.Identity, index int) (*domain.UserDetails, error)
	// DeleteUserProfile removes everything owned by userID. Admins may delete anyone.
	DeleteUserProfile(ctx context.Context, caller domain.Identity, userID string) error
}

// Repositories groups every store a service may need.
type Repositories struct {
	Users   repository.UserProfileRepository
	Details repository.UserDetailsRepository
	Plans   repository.TrainingPlanRepository
	Weeks   repository.WeeklyPlanRepository
	Chats   repository.ChatHistoryRepository
	Uploads repository.AudioUploadRepository
}

// --- Service Implementation ---

type profileService struct {
	repos   Repositories
	storage storage.FileStorage // nil when archiving is disabled
	log     *logger.Logger
	opts    options
}

func NewProfileService(repos Repositories, fileStorage storage.FileStorage, log *logger.Logger, opts ...Option) ProfileService {
	return &profileService{repos: repos, storage: fileStorage, log: log.With("service", "profile"), opts: applyOptions(opts)}
}

func (s *profileService) CreateUserDetails(ctx context.Context, caller domain.Identity, details *domain.UserDetails) (*domain.UserDetails, error) {
	if caller.Anonymous() {
		return nil, fmt.Errorf("%w: user details require a registered user", ErrUnauthorized)
	}
	details.UserID = caller.UserID
	if err := createDetailsWithSkeleton(ctx, s.repos, details, s.opts.now().UTC().Year(), s.log); err != nil {
		return nil, err
	}
	return details, nil
}

// createDetailsWithSkeleton writes details and the OverallTrainingPlan skeleton
// for the current year. An existing skeleton is left untouched.
func createDetailsWithSkeleton(ctx context.Context, repos Repositories, details *domain.UserDetails, year int, log *logger.Logger) error {
	if _, err := repos.Details.GetByUserID(ctx, details.UserID); err == nil {
		return ErrDetailsExist
	} else if !errors.Is(err, repository.ErrNotFound) {
		return upstream(log, "load user details", err, "user_id", details.UserID)
	}

	if err := repos.Details.Create(ctx, details); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDetailsExist
		}
		return upstream(log, "create user details", err, "user_id", details.UserID)
	}

	err := repos.Plans.Create(ctx, domain.NewOverallTrainingPlan(details.UserID, year))
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return upstream(log, "create training plan skeleton", err, "user_id", details.UserID)
	}
	log.Info("User details stored with training plan skeleton", "user_id", details.UserID, "year", year)
	return nil
}

func (s *profileService) GetUserDetails(ctx context.Context, caller domain.Identity) (*domain.UserDetails, error) {
	details, err := s.repos.Details.GetByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("no user details for user %s", caller.UserID)
		}
		return nil, upstream(s.log, "load user details", err, "user_id", caller.UserID)
	}
	return details, nil
}

func (s *profileService) UpdateUserDetailsField(ctx context.Context, caller domain.Identity, path string, value any) (*domain.UserDetails, error) {
	path = strings.TrimSpace(path)
	kind, ok := UpdatableFields[path]
	if !ok {
		return nil, validationf("field %q cannot be updated", path)
	}
	normalized, err := coerce(kind, value)
	if err != nil {
		return nil, validationf("field %q must be a %s: %v", path, kind, err)
	}

	if err := s.repos.Details.UpdateField(ctx, caller.UserID, path, normalized); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("no user details for user %s", caller.UserID)
		}
		return nil, upstream(s.log, "update user details field", err, "user_id", caller.UserID, "path", path)
	}
	return s.GetUserDetails(ctx, caller)
}

// coerce checks a JSON-decoded value against kind and returns its stored form.
func coerce(kind FieldKind, value any) (any, error) {
	switch kind {
	case KindString:
		if v, ok := value.(string); ok {
			return strings.TrimSpace(v), nil
		}
	case KindNumber:
		switch v := value.(type) {
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.New("not a finite number")
			}
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case KindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case KindStringList:
		switch v := value.(type) {
		case []string:
			return v, nil
		case []any:
			out := make([]string, 0, len(v))
			for i, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("item %d is %T", i, item)
				}
				out = append(out, str)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("got %T", value)
}

func (s *profileService) AddMemory(ctx context.Context, caller domain.Identity, memory string) (*domain.UserDetails, error) {
	memory = strings.TrimSpace(memory)
	if memory == "" {
		return nil, validationf("memory cannot be empty")
	}
	if err := s.repos.Details.AddMemory(ctx, caller.UserID, memory); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("no user details for user %s", caller.UserID)
		}
		return nil, upstream(s.log, "add memory", err, "user_id", caller.UserID)
	}
	return s.GetUserDetails(ctx, caller)
}

func (s *profileService) RemoveMemory(ctx context.Context, caller domain.Identity, index int) (*domain.UserDetails, error) {
	if index < 0 {
		return nil, validationf("memory index must not be negative")
	}
	if err := s.repos.Details.RemoveMemory(ctx, caller.UserID, index); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("no memory at index %d", index)
		}
		return nil, upstream(s.log, "remove memory", err, "user_id", caller.UserID)
	}
	return s.GetUserDetails(ctx, caller)
}

func (s *profileService) DeleteUserProfile(ctx context.Context, caller domain.Identity, userID string) error {
	// 1. Authorization: admin or self
	if !caller.CanAccess(userID) {
		return fmt.Errorf("%w: you don't have permission to delete this user profile", ErrForbidden)
	}

	// 2. The profile must exist
	if _, err := s.repos.Users.GetByUserID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundf("user with id %s not found", userID)
		}
		return upstream(s.log, "load user profile", err, "user_id", userID)
	}

	// 3. Archived audio objects go first, while their keys are still known
	uploads, err := s.repos.Uploads.ListByUser(ctx, userID)
	if err != nil {
		return upstream(s.log, "list audio uploads", err, "user_id", userID)
	}
	if s.storage != nil {
		for _, u := range uploads {
			if err := s.storage.DeleteObject(ctx, u.ObjectKey); err != nil {
				return upstream(s.log, "delete audio object", err, "user_id", userID, "key", u.ObjectKey)
			}
		}
	}

	// 4. Documents, profile last so a failed run can be retried
	weeks, err := s.repos.Weeks.DeleteByUser(ctx, userID)
	if err != nil {
		return upstream(s.log, "delete weekly plans", err, "user_id", userID)
	}
	steps := []struct {
		op  string
		run func() error
	}{
		{"delete training plan", func() error { return s.repos.Plans.Delete(ctx, userID) }},
		{"delete user details", func() error { return s.repos.Details.Delete(ctx, userID) }},
		{"delete chat history", func() error { _, err := s.repos.Chats.DeleteByUser(ctx, userID); return err }},
		{"delete audio uploads", func() error { _, err := s.repos.Uploads.DeleteByUser(ctx, userID); return err }},
		{"delete user profile", func() error { return s.repos.Users.Delete(ctx, userID) }},
	}
	for _, step := range steps {
		// Users that never onboarded have no details or plan.
		if err := step.run(); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return upstream(s.log, step.op, err, "user_id", userID)
		}
	}
	s.log.Info("User profile deleted", "user_id", userID, "by", caller.UserID, "weekly_plans", weeks, "audio_objects", len(uploads))
	return nil
}
