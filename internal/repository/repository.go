package repository

import (
	"alcyxob/fitness-coach/internal/domain" // Import our defined domain models
	"context"
	"time"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserProfileRepository defines the interface for interacting with login identities.
type UserProfileRepository interface {
	Create(ctx context.Context, user *domain.UserProfile) error
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	GetByUsername(ctx context.Context, username string) (*domain.UserProfile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}

// UserDetailsRepository defines the interface for the onboarding profile document.
type UserDetailsRepository interface {
	Create(ctx context.Context, details *domain.UserDetails) error
	GetByUserID(ctx context.Context, userID string) (*domain.UserDetails, error)
	// UpdateField sets a single dotted field path (already whitelisted by the caller).
	UpdateField(ctx context.Context, userID, path string, value any) error
	AddMemory(ctx context.Context, userID, memory string) error
	// RemoveMemory drops the memory at index; ErrNotFound if the index is out of range.
	RemoveMemory(ctx context.Context, userID string, index int) error
	Delete(ctx context.Context, userID string) error
}

// TrainingPlanRepository stores the per-user OverallTrainingPlan index.
type TrainingPlanRepository interface {
	Create(ctx context.Context, plan *domain.OverallTrainingPlan) error
	GetByUserID(ctx context.Context, userID string) (*domain.OverallTrainingPlan, error)
	// SetWeekEntry writes training_plan.<year>.<label> with a field-path set.
	SetWeekEntry(ctx context.Context, userID, year, label string, entry domain.WeekEntry) error
	SetWeekSummary(ctx context.Context, userID, year, label, summary string) error
	ListUserIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, userID string) error
}

// WeeklyPlanRepository stores WeeklyTrainingPlan documents and their day sub-arrays.
type WeeklyPlanRepository interface {
	Create(ctx context.Context, plan *domain.WeeklyTrainingPlan) error
	GetByWeekID(ctx context.Context, weekID string) (*domain.WeeklyTrainingPlan, error)
	// GetDailyWorkout returns only the matching day (positional projection).
	GetDailyWorkout(ctx context.Context, weekID, date string) (*domain.DailyWorkout, error)
	HasWorkoutForDate(ctx context.Context, weekID, date string) (bool, error)
	ReplaceWorkoutForDate(ctx context.Context, weekID string, workout domain.DailyWorkout) error
	AppendExercisesForDate(ctx context.Context, weekID, date string, exercises []domain.Exercise) error
	AppendWorkout(ctx context.Context, weekID string, workout domain.DailyWorkout) error
	// SetExerciseStatuses sets exercises.<i>.status for every index of statuses.
	SetExerciseStatuses(ctx context.Context, weekID, date string, statuses []string) error
	SetDailySummary(ctx context.Context, weekID, date, summary string) error
	// SetDailyExercises replaces the exercises and reasoning of an existing day.
	SetDailyExercises(ctx context.Context, weekID, date string, exercises []domain.Exercise, reasoning string) error
	ListByUser(ctx context.Context, userID string) ([]domain.WeeklyTrainingPlan, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// ChatHistoryRepository persists chat transcripts keyed by chat_id.
type ChatHistoryRepository interface {
	Get(ctx context.Context, chatID string) (*domain.ChatSession, error)
	// Save upserts the whole session document.
	Save(ctx context.Context, session *domain.ChatSession) error
	// ListByUser returns sessions touched within [from, to], newest first, plus the total match count.
	ListByUser(ctx context.Context, userID string, from, to time.Time, page, pageSize int) ([]domain.ChatSession, int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// AudioUploadRepository stores metadata about archived voice notes.
type AudioUploadRepository interface {
	Create(ctx context.Context, upload *domain.AudioUpload) error
	ListByUser(ctx context.Context, userID string) ([]domain.AudioUpload, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
