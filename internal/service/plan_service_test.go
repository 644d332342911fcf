package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/domain"
)

func TestValidateGenerateWeeklyPlan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.plans.ValidateGenerateWeeklyPlan(ctx, alice.UserID, "2024-06-03", "2024")
	assert.ErrorIs(t, err, ErrNotFound, "users without a plan skeleton are not onboarded")

	h.onboard(t, alice)
	ok, err := h.plans.ValidateGenerateWeeklyPlan(ctx, alice.UserID, "2024-06-03", "2024")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, h.plans.UpdateOverallPlan(ctx, alice.UserID, "w-1", 1, "2024-06-03", "2024"))
	ok, err = h.plans.ValidateGenerateWeeklyPlan(ctx, alice.UserID, "2024-06-03", "2024")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other weeks and other years are unaffected.
	ok, _ = h.plans.ValidateGenerateWeeklyPlan(ctx, alice.UserID, "2024-06-10", "2024")
	assert.True(t, ok)
	ok, _ = h.plans.ValidateGenerateWeeklyPlan(ctx, alice.UserID, "2024-06-03", "2025")
	assert.True(t, ok)
}

func TestSaveNewWeeklyPlan_RoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	workouts := []domain.DailyWorkout{
		{Date: "2024-06-03", Theme: "Legs", Exercises: exercises("Squat", "Lunge"), Running: &domain.RunningSegment{Distance: "5km"}},
		{Date: "2024-06-05", Theme: "Push", Exercises: exercises("Bench")},
	}

	weekID, err := h.plans.SaveNewWeeklyPlan(ctx, alice.UserID, &domain.WeeklyTrainingPlan{Workouts: workouts}, "2024-06-03")
	require.NoError(t, err)
	require.NotEmpty(t, weekID)

	stored, err := h.repos.Weeks.GetByWeekID(ctx, weekID)
	require.NoError(t, err)
	assert.Equal(t, workouts, stored.Workouts)
	assert.Equal(t, alice.UserID, stored.UserID)
	assert.Equal(t, "2024-06-03", stored.StartDate)

	_, err = h.plans.SaveNewWeeklyPlan(ctx, alice.UserID, &domain.WeeklyTrainingPlan{}, "2024-06-03")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateOrInsertWorkoutForDate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	weekID := h.seedWeek(t, alice, "2024-06-10", 1,
		domain.DailyWorkout{Date: "2024-06-10", Exercises: exercises("Squat", "Deadlift")})

	t.Run("additive merge keeps order and duplicates", func(t *testing.T) {
		err := h.plans.UpdateOrInsertWorkoutForDate(ctx, weekID, "2024-06-10",
			domain.DailyWorkout{Exercises: exercises("Plank")}, false)
		require.NoError(t, err)
		day, err := h.repos.Weeks.GetDailyWorkout(ctx, weekID, "2024-06-10")
		require.NoError(t, err)
		assert.Equal(t, []string{"Squat", "Deadlift", "Plank"}, exerciseNames(day))
	})

	t.Run("replace is idempotent", func(t *testing.T) {
		workout := domain.DailyWorkout{Theme: "Core", Exercises: exercises("Crunch", "Side plank")}
		require.NoError(t, h.plans.UpdateOrInsertWorkoutForDate(ctx, weekID, "2024-06-10", workout, true))
		first, err := h.repos.Weeks.GetDailyWorkout(ctx, weekID, "2024-06-10")
		require.NoError(t, err)

		require.NoError(t, h.plans.UpdateOrInsertWorkoutForDate(ctx, weekID, "2024-06-10", workout, true))
		second, err := h.repos.Weeks.GetDailyWorkout(ctx, weekID, "2024-06-10")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, "2024-06-10", second.Date)
		assert.Equal(t, []string{"Crunch", "Side plank"}, exerciseNames(second))
	})

	t.Run("missing day is appended", func(t *testing.T) {
		require.NoError(t, h.plans.UpdateOrInsertWorkoutForDate(ctx, weekID, "2024-06-12",
			domain.DailyWorkout{Exercises: exercises("Run")}, false))
		week, err := h.repos.Weeks.GetByWeekID(ctx, weekID)
		require.NoError(t, err)
		require.Len(t, week.Workouts, 2)
		assert.Equal(t, "2024-06-12", week.Workouts[1].Date)
	})

	t.Run("unknown week", func(t *testing.T) {
		err := h.plans.UpdateOrInsertWorkoutForDate(ctx, "nope", "2024-06-12", domain.DailyWorkout{}, false)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetWeeklyTrainingPlanForDate_Boundaries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	first := h.seedWeek(t, alice, "2024-06-03", 1)

	day := func(s string) time.Time {
		d, err := domain.ParseDate(s)
		require.NoError(t, err)
		return d
	}

	week, err := h.plans.GetWeeklyTrainingPlanForDate(ctx, day("2024-06-03"), alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, first, week.WeekID)

	week, err = h.plans.GetWeeklyTrainingPlanForDate(ctx, day("2024-06-09"), alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, first, week.WeekID)

	_, err = h.plans.GetWeeklyTrainingPlanForDate(ctx, day("2024-06-10"), alice.UserID)
	assert.ErrorIs(t, err, ErrNoPlanForDate)
	assert.ErrorIs(t, err, ErrNotFound)

	second := h.seedWeek(t, alice, "2024-06-10", 2)
	week, err = h.plans.GetWeeklyTrainingPlanForDate(ctx, day("2024-06-10"), alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, second, week.WeekID)

	// WeeklyPlanCovering turns "nothing yet" into nil.
	week, err = h.plans.WeeklyPlanCovering(ctx, alice.UserID, day("2024-07-01"))
	require.NoError(t, err)
	assert.Nil(t, week)
	week, err = h.plans.WeeklyPlanCovering(ctx, bob.UserID, day("2024-07-01"))
	require.NoError(t, err)
	assert.Nil(t, week)
}

func TestGetAllOldWeeklyPlans(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)

	var ids []string
	start := domain.StartOfWeek(monday)
	for i := 1; i <= 11; i++ {
		ids = append(ids, h.seedWeek(t, alice, domain.FormatDate(start.AddDate(0, 0, 7*(i-1))), i))
	}

	plans, err := h.plans.GetAllOldWeeklyPlans(ctx, alice.UserID, "2024")
	require.NoError(t, err)
	require.Len(t, plans, 11)
	for i, p := range plans {
		assert.Equal(t, ids[i], p.WeekID, "week %d out of order", i+1)
	}

	// A dangling reference fails the whole call.
	require.NoError(t, h.plans.UpdateOverallPlan(ctx, alice.UserID, "ghost", 12, "2024-08-19", "2024"))
	_, err = h.plans.GetAllOldWeeklyPlans(ctx, alice.UserID, "2024")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateWeeklySummary_UsesNumericallyLatestWeek(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)

	start := domain.StartOfWeek(monday)
	var last string
	for i := 1; i <= 10; i++ {
		last = h.seedWeek(t, alice, domain.FormatDate(start.AddDate(0, 0, 7*(i-1))), i)
	}
	h.llm.Replies = []string{"Tenth week summary."}

	require.NoError(t, h.plans.UpdateWeeklySummary(ctx, alice.UserID))

	overall, err := h.repos.Plans.GetByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Tenth week summary.", overall.Weeks("2024")["week 10"].Summary)
	assert.Empty(t, overall.Weeks("2024")["week 9"].Summary)
	assert.Contains(t, h.llm.Calls()[0].Messages[0].Content, last)
}

func TestUpdateWeeklySummary_NothingToSummarize(t *testing.T) {
	h := newHarness(t)
	h.onboard(t, alice)
	require.NoError(t, h.plans.UpdateWeeklySummary(context.Background(), alice.UserID))
	assert.Empty(t, h.llm.Calls())
}

func TestGenerateWeeklyPlan_TwiceSameWeek(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	h.llm.Replies = []string{weekReply}

	got, err := h.plans.GenerateWeeklyPlan(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, 1, got.WeekNumber)
	assert.Equal(t, "week 1", got.WeekLabel)
	assert.Equal(t, "2024", got.Year)
	assert.Equal(t, "2024-06-03", got.Plan.StartDate)
	assert.Equal(t, "intro week", got.Plan.Reasoning)
	require.Len(t, got.Plan.Workouts, 2)
	assert.Equal(t, domain.StatusPending, got.Plan.Workouts[0].Exercises[0].Status)

	// The prompt sees the profile but not the memories.
	system := h.llm.Calls()[0].Messages[0].Content
	assert.Contains(t, system, `"goal": "strength"`)
	assert.NotContains(t, system, "prefers mornings")

	// Later the same week.
	h.clock.Advance(3 * 24 * time.Hour)
	_, err = h.plans.GenerateWeeklyPlan(ctx, alice, "")
	assert.ErrorIs(t, err, ErrAlreadyGenerated)
	assert.ErrorIs(t, err, ErrConflict)

	overall, err := h.repos.Plans.GetByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Len(t, overall.Weeks("2024"), 1)
	assert.Len(t, h.llm.Calls(), 1, "the conflict is detected before calling the model")

	weeks, err := h.repos.Weeks.ListByUser(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Len(t, weeks, 1)
}

func TestGenerateWeeklyPlan_SecondWeekSummarizesFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	h.llm.Replies = []string{weekReply}
	first, err := h.plans.GenerateWeeklyPlan(ctx, alice, "")
	require.NoError(t, err)

	h.clock.Advance(7 * 24 * time.Hour)
	h.llm.Replies = []string{"Good first week.", secondWeekReply}
	second, err := h.plans.GenerateWeeklyPlan(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.WeekNumber)
	assert.Equal(t, "2024-06-10", second.Plan.StartDate)

	overall, err := h.repos.Plans.GetByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Good first week.", overall.Weeks("2024")["week 1"].Summary)
	assert.Equal(t, second.Plan.WeekID, overall.Weeks("2024")["week 2"].WeekID)

	// The previous week is part of the generation context.
	calls := h.llm.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[2].Messages[0].Content, first.Plan.WeekID)
}

func TestGenerateWeeklyPlan_FromOnboardingChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repos.Chats.Save(ctx, &domain.ChatSession{
		ChatID:  "onb-1",
		State:   domain.SessionActive,
		Purpose: domain.PurposeOnboarding,
		Messages: []domain.Message{
			{Role: domain.MsgSystem, Content: "seed"},
			{Role: domain.MsgAssistant, Content: "How old are you?"},
			{Role: domain.MsgUser, Content: "40"},
		},
	}))
	h.llm.Replies = []string{
		`{"personal_info":{"age":40},"fitness_profile":{"goal":"endurance"},"health_info":{},"lifestyle":{}}`,
		weekReply,
	}

	got, err := h.plans.GenerateWeeklyPlan(ctx, alice, "onb-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.WeekNumber)

	details, err := h.repos.Details.GetByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "endurance", details.FitnessProfile["goal"])
	assert.NotContains(t, h.llm.Calls()[0].Messages[1].Content, "seed")
}

func TestGenerateWeeklyPlan_NotOnboarded(t *testing.T) {
	h := newHarness(t)
	_, err := h.plans.GenerateWeeklyPlan(context.Background(), alice, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateWeeklyPlan_SkeletonWithoutDetails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repos.Plans.Create(ctx, domain.NewOverallTrainingPlan(alice.UserID, 2024)))

	_, err := h.plans.GenerateWeeklyPlan(ctx, alice, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, h.llm.Calls())

	weeks, err := h.repos.Weeks.ListByUser(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, weeks)
}

func TestGenerateWeeklyPlan_RejectsRepeatedDates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	h.llm.Replies = []string{`{"workouts":[{"date":"2024-06-03","theme":"Legs","exercises":[]},{"date":"2024-06-03","theme":"Arms","exercises":[]}],"reasoning":"oops"}`}

	_, err := h.plans.GenerateWeeklyPlan(ctx, alice, "")
	assert.ErrorIs(t, err, ErrUpstream)

	overall, err := h.repos.Plans.GetByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, overall.Weeks("2024"))
	weeks, err := h.repos.Weeks.ListByUser(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, weeks)
}

func TestGenerateWeeklyPlan_YearBoundaryUsesUTC(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	h.seedWeek(t, alice, "2024-12-23", 1, domain.DailyWorkout{Date: "2024-12-23", Exercises: exercises("Squat")})

	// New Year's Day at UTC+2 is still 2024-12-31 in UTC.
	h.clock.Set(time.Date(2025, 1, 1, 0, 30, 0, 0, time.FixedZone("EET", 2*60*60)))
	h.llm.Replies = []string{
		"Summary of week 1.",
		`{"workouts":[{"date":"2024-12-30","theme":"Full body","exercises":[]},{"date":"2024-12-31","theme":"Mobility","exercises":[]}],"reasoning":"holiday week"}`,
	}

	got, err := h.plans.GenerateWeeklyPlan(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, "2024", got.Year)
	assert.Equal(t, "week 2", got.WeekLabel)
	assert.Equal(t, "2024-12-30", got.Plan.StartDate)

	overall, err := h.repos.Plans.GetByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Summary of week 1.", overall.Weeks("2024")["week 1"].Summary)
	assert.Len(t, h.llm.Calls(), 2)
}

func TestGenerateWeeklyPlan_SerializedPerUser(t *testing.T) {
	h := newHarness(t)
	h.onboard(t, alice)

	unlock, err := h.locker.TryLock(context.Background(), "plan:"+alice.UserID, time.Minute)
	require.NoError(t, err)
	defer unlock()

	_, err = h.plans.GenerateWeeklyPlan(context.Background(), alice, "")
	assert.ErrorIs(t, err, ErrGenerationInProgress)
	assert.Empty(t, h.llm.Calls())
}

func TestGenerateWeeklyPlan_UpstreamFailure(t *testing.T) {
	h := newHarness(t)
	h.onboard(t, alice)
	h.llm.Err = fmt.Errorf("api http 500")

	_, err := h.plans.GenerateWeeklyPlan(context.Background(), alice, "")
	assert.ErrorIs(t, err, ErrUpstream)

	overall, err := h.repos.Plans.GetByUserID(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, overall.Weeks("2024"))
}

func TestUpdateExerciseStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	weekID := h.seedWeek(t, alice, "2024-06-03", 1,
		domain.DailyWorkout{Date: "2024-06-03", Exercises: exercises("Squat", "Bench", "Row")})
	h.llm.Replies = []string{"Two of three done; rows skipped."}

	day, err := h.plans.UpdateExerciseStatus(ctx, alice, weekID, StatusUpdate{
		Date: "2024-06-03", Status: []string{"done", "done", "skipped"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Two of three done; rows skipped.", day.Summary)

	stored, err := h.repos.Weeks.GetDailyWorkout(ctx, weekID, "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, "done", stored.Exercises[0].Status)
	assert.Equal(t, "done", stored.Exercises[1].Status)
	assert.Equal(t, "skipped", stored.Exercises[2].Status)
	assert.NotEmpty(t, stored.Summary)

	// The summary prompt sees the new statuses.
	assert.Contains(t, h.llm.Calls()[0].Messages[0].Content, `"skipped"`)
}

func TestUpdateExerciseStatus_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	h.onboard(t, bob)
	weekID := h.seedWeek(t, alice, "2024-06-03", 1,
		domain.DailyWorkout{Date: "2024-06-03", Exercises: exercises("Squat", "Bench")})

	cases := []struct {
		name   string
		caller domain.Identity
		update StatusUpdate
		want   error
	}{
		{"bad date", alice, StatusUpdate{Date: "06/03/2024", Status: []string{"done", "done"}}, ErrValidation},
		{"unknown status", alice, StatusUpdate{Date: "2024-06-03", Status: []string{"done", "finished"}}, ErrValidation},
		{"length mismatch", alice, StatusUpdate{Date: "2024-06-03", Status: []string{"done"}}, ErrValidation},
		{"no workout that day", alice, StatusUpdate{Date: "2024-06-04", Status: []string{}}, ErrNotFound},
		{"someone else's week", bob, StatusUpdate{Date: "2024-06-03", Status: []string{"done", "done"}}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.plans.UpdateExerciseStatus(ctx, tc.caller, weekID, tc.update)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, h.llm.Calls())
}

func TestGetDailyWorkout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	weekID := h.seedWeek(t, alice, "2024-06-03", 1,
		domain.DailyWorkout{Date: "2024-06-03", Exercises: exercises("Squat")},
		domain.DailyWorkout{Date: "2024-06-05", Exercises: exercises("Bench")})

	day, err := h.plans.GetDailyWorkout(ctx, alice, weekID, "2024-06-05")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bench"}, exerciseNames(day))

	// Admins may read any week.
	_, err = h.plans.GetDailyWorkout(ctx, admin, weekID, "2024-06-03")
	require.NoError(t, err)

	_, err = h.plans.GetDailyWorkout(ctx, alice, weekID, "2024-06-06")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogWorkout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)

	_, err := h.plans.LogWorkout(ctx, alice, LogWorkoutRequest{Date: "2024-06-10", ChatID: "log-1"})
	assert.ErrorIs(t, err, ErrValidation, "logging needs a generated week")

	weekID := h.seedWeek(t, alice, "2024-06-10", 1,
		domain.DailyWorkout{Date: "2024-06-10", Exercises: exercises("Squat", "Bench")})
	require.NoError(t, h.repos.Chats.Save(ctx, &domain.ChatSession{
		ChatID: "log-1", UserID: alice.UserID, State: domain.SessionActive, Purpose: domain.PurposeWorkoutLog,
		Messages: []domain.Message{
			{Role: domain.MsgSystem, Content: "seed"},
			{Role: domain.MsgUser, Content: "I also did 3x12 pull-ups"},
			{Role: domain.MsgAssistant, Content: "Logged."},
		},
	}))
	h.llm.Replies = []string{`{"exercises":[{"name":"Pull-up","sets":3,"reps":12}]}`}

	day, err := h.plans.LogWorkout(ctx, alice, LogWorkoutRequest{Date: "2024-06-10", ChatID: "log-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Squat", "Bench", "Pull-up"}, exerciseNames(day))
	logged := day.Exercises[2]
	assert.Equal(t, domain.ManualLogCoachNote, logged.CoachNote)
	assert.Equal(t, domain.StatusDone, logged.Status)
	assert.Equal(t, domain.FlexString("12"), logged.Reps)

	prompt := h.llm.Calls()[0].Messages[1].Content
	assert.Contains(t, prompt, "user: I also did 3x12 pull-ups")
	assert.NotContains(t, prompt, "seed")

	// Replace mode swaps the whole day.
	h.llm.Replies = []string{`{"exercises":[{"name":"Swim"}]}`}
	day, err = h.plans.LogWorkout(ctx, alice, LogWorkoutRequest{Date: "2024-06-10", ChatID: "log-1", ShouldReplace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Swim"}, exerciseNames(day))

	// Bob cannot log from Alice's chat.
	h.onboard(t, bob)
	h.seedWeek(t, bob, "2024-06-10", 1)
	_, err = h.plans.LogWorkout(ctx, bob, LogWorkoutRequest{Date: "2024-06-10", ChatID: "log-1"})
	assert.ErrorIs(t, err, ErrForbidden)

	week, err := h.repos.Weeks.GetByWeekID(ctx, weekID)
	require.NoError(t, err)
	require.Len(t, week.Workouts, 1)
	assert.Equal(t, []string{"Swim"}, exerciseNames(&week.Workouts[0]))
}

func TestQuickWorkout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	weekID := h.seedWeek(t, alice, "2024-06-03", 1,
		domain.DailyWorkout{Date: "2024-06-04", Exercises: exercises("Squat")})
	h.llm.Replies = []string{`{"theme":"Hotel room","exercises":[{"name":"Burpee"},{"name":"Push-up"}],"reasoning":"no equipment"}`}

	day, err := h.plans.QuickWorkout(ctx, alice, "2024-06-04", "15 minutes in a hotel room")
	require.NoError(t, err)
	assert.Equal(t, "Hotel room", day.Theme)
	assert.Equal(t, []string{"Burpee", "Push-up"}, exerciseNames(day))

	week, err := h.repos.Weeks.GetByWeekID(ctx, weekID)
	require.NoError(t, err)
	assert.Len(t, week.Workouts, 1, "quick workout replaces the day")

	_, err = h.plans.QuickWorkout(ctx, alice, "2024-07-01", "anything")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.plans.QuickWorkout(ctx, alice, "2024-06-04", "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegenerateWorkout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	weekID := h.seedWeek(t, alice, "2024-06-03", 1,
		domain.DailyWorkout{Date: "2024-06-05", Theme: "Legs", Exercises: exercises("Squat", "Lunge")})
	h.llm.Replies = []string{`{"exercises":[{"name":"Leg press"},{"name":"Hamstring curl"}],"reasoning":"knee friendly"}`}

	day, err := h.plans.RegenerateWorkout(ctx, alice, "2024-06-05", "my knee hurts")
	require.NoError(t, err)
	assert.Equal(t, []string{"Leg press", "Hamstring curl"}, exerciseNames(day))
	assert.Equal(t, "knee friendly", day.Reasoning)
	assert.Equal(t, "Legs", day.Theme)

	stored, err := h.repos.Weeks.GetDailyWorkout(ctx, weekID, "2024-06-05")
	require.NoError(t, err)
	assert.Equal(t, day, stored)

	_, err = h.plans.RegenerateWorkout(ctx, alice, "2024-06-06", "harder")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummarizeJournal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	weekID := h.seedWeek(t, alice, "2024-06-03", 1,
		domain.DailyWorkout{Date: "2024-06-04", Exercises: exercises("Squat")})
	require.NoError(t, h.repos.Chats.Save(ctx, &domain.ChatSession{
		ChatID: "j-1", UserID: alice.UserID, State: domain.SessionActive, Purpose: domain.PurposeWorkoutJournal,
		PurposeData: domain.PurposeParams{WorkoutDate: "2024-06-04"},
		Messages: []domain.Message{
			{Role: domain.MsgSystem, Content: "seed"},
			{Role: domain.MsgUser, Content: "start check-in"},
			{Role: domain.MsgAssistant, Content: "How did squats go?"},
			{Role: domain.MsgUser, Content: "Heavy but fine"},
		},
	}))
	h.llm.Replies = []string{"Squats felt heavy but were completed."}

	summary, err := h.plans.SummarizeJournal(ctx, alice, "2024-06-04", "j-1")
	require.NoError(t, err)
	assert.Equal(t, "Squats felt heavy but were completed.", summary)

	day, err := h.repos.Weeks.GetDailyWorkout(ctx, weekID, "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, summary, day.Summary)

	// Bootstrap messages are not part of the summarized conversation.
	msgs := h.llm.Calls()[0].Messages
	for _, m := range msgs {
		assert.NotEqual(t, "start check-in", m.Content)
		assert.NotEqual(t, "seed", m.Content)
	}

	_, err = h.plans.SummarizeJournal(ctx, alice, "2024-06-05", "j-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileWeekIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.onboard(t, alice)
	indexed := h.seedWeek(t, alice, "2024-06-03", 1)

	// An orphan from a crash between the two writes.
	orphan, err := h.plans.SaveNewWeeklyPlan(ctx, alice.UserID, &domain.WeeklyTrainingPlan{}, "2024-06-10")
	require.NoError(t, err)
	// And an index entry whose document vanished.
	require.NoError(t, h.plans.UpdateOverallPlan(ctx, alice.UserID, "ghost", 5, "2024-07-01", "2024"))

	report, err := h.plans.ReconcileWeekIndex(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, report.Registered, 1)
	assert.Equal(t, IndexedWeek{Year: "2024", Label: "week 3", WeekID: orphan, StartDate: "2024-06-10"}, report.Registered[0])
	require.Len(t, report.Dangling, 1)
	assert.Equal(t, "ghost", report.Dangling[0].WeekID)

	overall, err := h.repos.Plans.GetByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, indexed, overall.Weeks("2024")["week 1"].WeekID)
	assert.Equal(t, orphan, overall.Weeks("2024")["week 3"].WeekID)
	assert.Equal(t, "ghost", overall.Weeks("2024")["week 5"].WeekID, "dangling entries are not deleted")

	// A second run finds nothing new.
	report, err = h.plans.ReconcileWeekIndex(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, report.Registered)
	assert.Len(t, report.Dangling, 1)
}
