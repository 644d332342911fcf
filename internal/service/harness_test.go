package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/assistant"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/lock"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/prompts"
	"alcyxob/fitness-coach/internal/repository/memory"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type harness struct {
	repos   Repositories
	llm     *llm.MockClient
	locker  *lock.LocalLocker
	clock   *testClock
	plans   PlanService
	chats   ChatService
	profile ProfileService
}

var (
	alice = domain.Identity{UserID: "u-alice", Email: "alice@example.com", Role: domain.RoleUser}
	bob   = domain.Identity{UserID: "u-bob", Email: "bob@example.com", Role: domain.RoleUser}
	admin = domain.Identity{UserID: "u-admin", Email: "admin@example.com", Role: domain.RoleAdmin}
)

// Monday 2024-06-03.
var monday = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repos: Repositories{
			Users:   memory.NewUserProfileRepository(),
			Details: memory.NewUserDetailsRepository(),
			Plans:   memory.NewTrainingPlanRepository(),
			Weeks:   memory.NewWeeklyPlanRepository(),
			Chats:   memory.NewChatHistoryRepository(),
			Uploads: memory.NewAudioUploadRepository(),
		},
		llm:    llm.NewMockClient(),
		locker: lock.NewLocalLocker(),
		clock:  &testClock{t: monday},
	}
	log := logger.NewNop()
	store := prompts.NewStore("")
	opts := []Option{WithClock(h.clock.Now)}

	journal := assistant.NewWorkoutJournal(h.llm, store, nil, log)
	workoutLog := assistant.NewWorkoutLog(h.llm, store, log)
	onboarding := assistant.NewOnboarding(h.llm, store, log)
	h.plans = NewPlanService(h.repos, PlanAssistants{
		Planner:    assistant.NewPlanner(h.llm, store, log),
		Onboarding: onboarding,
		Journal:    journal,
		Log:        workoutLog,
	}, h.locker, log, opts...)

	router := &assistant.Router{
		Onboard: onboarding,
		Guide:   assistant.NewWorkoutGuide(h.llm, store, h.plans, log),
		Journal: assistant.NewWorkoutJournal(h.llm, store, h.plans, log),
		Log:     workoutLog,
		Chat:    assistant.NewGeneral(h.llm, store, log),
	}
	h.chats = NewChatService(h.repos, router, log, opts...)
	h.profile = NewProfileService(h.repos, nil, log, opts...)
	return h
}

// onboard stores details and the plan skeleton for who.
func (h *harness) onboard(t *testing.T, who domain.Identity) {
	t.Helper()
	_, err := h.profile.CreateUserDetails(context.Background(), who, &domain.UserDetails{
		PersonalInfo:   map[string]any{"age": 31},
		FitnessProfile: map[string]any{"goal": "strength"},
		Memories:       []string{"prefers mornings"},
	})
	require.NoError(t, err)
}

// seedWeek saves a weekly plan and registers it under label number n.
func (h *harness) seedWeek(t *testing.T, who domain.Identity, start string, n int, workouts ...domain.DailyWorkout) string {
	t.Helper()
	ctx := context.Background()
	weekID, err := h.plans.SaveNewWeeklyPlan(ctx, who.UserID, &domain.WeeklyTrainingPlan{Workouts: workouts}, start)
	require.NoError(t, err)
	require.NoError(t, h.plans.UpdateOverallPlan(ctx, who.UserID, weekID, n, start, start[:4]))
	return weekID
}

func exercises(names ...string) []domain.Exercise {
	out := make([]domain.Exercise, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Exercise{Name: n, Sets: "3", Reps: "10", Status: domain.StatusPending})
	}
	return out
}

func exerciseNames(day *domain.DailyWorkout) []string {
	out := make([]string, 0, len(day.Exercises))
	for _, e := range day.Exercises {
		out = append(out, e.Name)
	}
	return out
}

const weekReply = `{"workouts":[{"date":"2024-06-03","theme":"Full body","exercises":[{"name":"Squat","sets":3,"reps":"8"},{"name":"Row","sets":3,"reps":"10"}]},{"date":"2024-06-04","theme":"Rest","exercises":[]}],"reasoning":"intro week"}`

const secondWeekReply = `{"workouts":[{"date":"2024-06-10","theme":"Upper body","exercises":[{"name":"Bench","sets":3,"reps":"8"}]},{"date":"2024-06-12","theme":"Lower body","exercises":[{"name":"Deadlift","sets":3,"reps":"5"}]}],"reasoning":"build on week one"}`
