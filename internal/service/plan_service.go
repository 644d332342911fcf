package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"alcyxob/fitness-coach/internal/assistant"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/lock"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/repository"
)

// oldPlanFetchLimit bounds concurrent weekly plan reads when assembling history.
const oldPlanFetchLimit = 4

// --- Request/Result Types ---

// GeneratedPlan is the outcome of a successful weekly generation.
type GeneratedPlan struct {
	WeekNumber int                        `json:"week_number"`
	WeekLabel  string                     `json:"week_label"`
	Year       string                     `json:"year"`
	Plan       *domain.WeeklyTrainingPlan `json:"plan"`
}

// StatusUpdate sets the status of every exercise of one day, by position.
type StatusUpdate struct {
	Date   string
	Status []string
}

// LogWorkoutRequest records a workout described in a workout_log chat.
type LogWorkoutRequest struct {
	Date          string
	ChatID        string
	ShouldReplace bool
}

// IndexedWeek names one week entry of the overall plan index.
type IndexedWeek struct {
	Year      string `json:"year"`
	Label     string `json:"label"`
	WeekID    string `json:"week_id"`
	StartDate string `json:"start_date"`
}

// ReconcileReport lists what a week index repair found.
type ReconcileReport struct {
	UserID     string        `json:"user_id"`
	Registered []IndexedWeek `json:"registered"`
	Dangling   []IndexedWeek `json:"dangling"`
}

// PlanAssistants are the LLM-backed helpers used by the plan lifecycle.
type PlanAssistants struct {
	Planner    *assistant.Planner
	Onboarding *assistant.Onboarding
	Journal    *assistant.WorkoutJournal
	Log        *assistant.WorkoutLog
}

// --- Service Interface ---
type PlanService interface {
	// ValidateGenerateWeeklyPlan reports false when a week starting on startDate is already registered for year.
	ValidateGenerateWeeklyPlan(ctx context.Context, userID, startDate, year string) (bool, error)
	// GetAllOldWeeklyPlans returns every weekly plan registered for year, in week order.
	GetAllOldWeeklyPlans(ctx context.Context, userID, year string) ([]domain.WeeklyTrainingPlan, error)
	SaveNewWeeklyPlan(ctx context.Context, userID string, plan *domain.WeeklyTrainingPlan, startDate string) (string, error)
	UpdateOverallPlan(ctx context.Context, userID, weekID string, weekNumber int, startDate, year string) error
	// UpdateWeeklySummary summarizes the latest week of the current year into the index.
	UpdateWeeklySummary(ctx context.Context, userID string) error
	UpdateOrInsertWorkoutForDate(ctx context.Context, weekID, date string, workout domain.DailyWorkout, shouldReplace bool) error
	GetWeeklyTrainingPlanForDate(ctx context.Context, date time.Time, userID string) (*domain.WeeklyTrainingPlan, error)
	// WeeklyPlanCovering is GetWeeklyTrainingPlanForDate returning nil, nil when nothing covers date.
	WeeklyPlanCovering(ctx context.Context, userID string, date time.Time) (*domain.WeeklyTrainingPlan, error)

	GenerateWeeklyPlan(ctx context.Context, caller domain.Identity, chatID string) (*GeneratedPlan, error)
	GetWeeklyPlanForDate(ctx context.Context, caller domain.Identity, date string) (*domain.WeeklyTrainingPlan, error)
	GetDailyWorkout(ctx context.Context, caller domain.Identity, weekID, date string) (*domain.DailyWorkout, error)
	UpdateExerciseStatus(ctx context.Context, caller domain.Identity, weekID string, update StatusUpdate) (*domain.DailyWorkout, error)
	SummarizeJournal(ctx context.Context, caller domain.Identity, date, chatID string) (string, error)
	LogWorkout(ctx context.Context, caller domain.Identity, req LogWorkoutRequest) (*domain.DailyWorkout, error)
	QuickWorkout(ctx context.Context, caller domain.Identity, date, request string) (*domain.DailyWorkout, error)
	RegenerateWorkout(ctx context.Context, caller domain.Identity, date, feedback string) (*domain.DailyWorkout, error)
	ReconcileWeekIndex(ctx context.Context, userID string) (*ReconcileReport, error)
}

// --- Service Implementation ---

type planService struct {
	repos  Repositories
	ai     PlanAssistants
	locker lock.Locker
	log    *logger.Logger
	opts   options
}

func NewPlanService(repos Repositories, ai PlanAssistants, locker lock.Locker, log *logger.Logger, opts ...Option) PlanService {
	return &planService{
		repos:  repos,
		ai:     ai,
		locker: locker,
		log:    log.With("service", "plan"),
		opts:   applyOptions(opts),
	}
}

// --- Plan Store primitives ---

func (s *planService) loadOverall(ctx context.Context, userID string) (*domain.OverallTrainingPlan, error) {
	plan, err := s.repos.Plans.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotOnboarded
		}
		return nil, upstream(s.log, "load training plan", err, "user_id", userID)
	}
	return plan, nil
}

func (s *planService) ValidateGenerateWeeklyPlan(ctx context.Context, userID, startDate, year string) (bool, error) {
	overall, err := s.loadOverall(ctx, userID)
	if err != nil {
		return false, err
	}
	return !overall.HasStartDate(year, startDate), nil
}

func (s *planService) GetAllOldWeeklyPlans(ctx context.Context, userID, year string) ([]domain.WeeklyTrainingPlan, error) {
	overall, err := s.loadOverall(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.oldWeeklyPlans(ctx, overall, year)
}

// oldWeeklyPlans fetches every referenced week concurrently, keeping week order.
// A dangling reference fails the whole call.
func (s *planService) oldWeeklyPlans(ctx context.Context, overall *domain.OverallTrainingPlan, year string) ([]domain.WeeklyTrainingPlan, error) {
	labels := overall.SortedWeekLabels(year)
	weeks := overall.Weeks(year)
	plans := make([]domain.WeeklyTrainingPlan, len(labels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(oldPlanFetchLimit)
	for i, label := range labels {
		weekID := weeks[label].WeekID
		g.Go(func() error {
			plan, err := s.repos.Weeks.GetByWeekID(gctx, weekID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					s.log.Error("Week index references a missing weekly plan", "user_id", overall.UserID, "week_id", weekID, "label", label)
					return notFoundf("weekly plan %s (%s %s) not found", weekID, year, label)
				}
				return upstream(s.log, "load weekly plan", err, "week_id", weekID)
			}
			plans[i] = *plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *planService) SaveNewWeeklyPlan(ctx context.Context, userID string, plan *domain.WeeklyTrainingPlan, startDate string) (string, error) {
	plan.WeekID = uuid.NewString()
	plan.UserID = userID
	plan.StartDate = startDate
	if err := s.repos.Weeks.Create(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrAlreadyGenerated
		}
		return "", upstream(s.log, "save weekly plan", err, "user_id", userID, "start_date", startDate)
	}
	return plan.WeekID, nil
}

func (s *planService) UpdateOverallPlan(ctx context.Context, userID, weekID string, weekNumber int, startDate, year string) error {
	entry := domain.WeekEntry{WeekID: weekID, StartDate: startDate, Summary: ""}
	if err := s.repos.Plans.SetWeekEntry(ctx, userID, year, domain.WeekLabel(weekNumber), entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotOnboarded
		}
		return upstream(s.log, "update training plan index", err, "user_id", userID, "week_id", weekID)
	}
	return nil
}

func (s *planService) UpdateWeeklySummary(ctx context.Context, userID string) (err error) {
	ctx, end := startSpan(ctx, "PlanService.UpdateWeeklySummary", attribute.String("user_id", userID))
	defer func() { end(err) }()

	return s.updateWeeklySummary(ctx, userID, domain.YearKey(s.opts.now().UTC().Year()))
}

// updateWeeklySummary summarizes the latest week registered under year.
func (s *planService) updateWeeklySummary(ctx context.Context, userID, year string) error {
	overall, err := s.loadOverall(ctx, userID)
	if err != nil {
		return err
	}
	label, entry, ok := overall.LatestWeek(year)
	if !ok {
		s.log.Debug("No week to summarize yet", "user_id", userID, "year", year)
		return nil
	}
	week, err := s.repos.Weeks.GetByWeekID(ctx, entry.WeekID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundf("weekly plan %s (%s %s) not found", entry.WeekID, year, label)
		}
		return upstream(s.log, "load weekly plan", err, "week_id", entry.WeekID)
	}
	summary, err := s.ai.Planner.SummarizeWeek(ctx, week)
	if err != nil {
		return upstream(s.log, "summarize week", err, "user_id", userID, "week_id", entry.WeekID)
	}
	if err := s.repos.Plans.SetWeekSummary(ctx, userID, year, label, summary); err != nil {
		return upstream(s.log, "store week summary", err, "user_id", userID, "week_id", entry.WeekID)
	}
	s.log.Info("Week summary updated", "user_id", userID, "year", year, "label", label)
	return nil
}

func (s *planService) UpdateOrInsertWorkoutForDate(ctx context.Context, weekID, date string, workout domain.DailyWorkout, shouldReplace bool) error {
	workout.Date = date
	if workout.Exercises == nil {
		workout.Exercises = []domain.Exercise{}
	}
	exists, err := s.repos.Weeks.HasWorkoutForDate(ctx, weekID, date)
	if err != nil {
		return upstream(s.log, "check workout for date", err, "week_id", weekID, "date", date)
	}

	switch {
	case exists && shouldReplace:
		err = s.repos.Weeks.ReplaceWorkoutForDate(ctx, weekID, workout)
	case exists:
		// Additive merge; duplicates are kept.
		err = s.repos.Weeks.AppendExercisesForDate(ctx, weekID, date, workout.Exercises)
	default:
		err = s.repos.Weeks.AppendWorkout(ctx, weekID, workout)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundf("weekly plan %s not found", weekID)
		}
		return upstream(s.log, "write workout for date", err, "week_id", weekID, "date", date)
	}
	return nil
}

func (s *planService) GetWeeklyTrainingPlanForDate(ctx context.Context, date time.Time, userID string) (*domain.WeeklyTrainingPlan, error) {
	overall, err := s.loadOverall(ctx, userID)
	if err != nil {
		return nil, err
	}
	entry, ok := overall.FindWeekContaining(date)
	if !ok {
		return nil, ErrNoPlanForDate
	}
	week, err := s.repos.Weeks.GetByWeekID(ctx, entry.WeekID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Error("Week index references a missing weekly plan", "user_id", userID, "week_id", entry.WeekID)
			return nil, notFoundf("weekly plan %s not found", entry.WeekID)
		}
		return nil, upstream(s.log, "load weekly plan", err, "week_id", entry.WeekID)
	}
	return week, nil
}

func (s *planService) WeeklyPlanCovering(ctx context.Context, userID string, date time.Time) (*domain.WeeklyTrainingPlan, error) {
	week, err := s.GetWeeklyTrainingPlanForDate(ctx, date, userID)
	if errors.Is(err, ErrNoPlanForDate) || errors.Is(err, ErrNotOnboarded) {
		return nil, nil
	}
	return week, err
}

// --- Lifecycle operations ---

func (s *planService) withUserLock(ctx context.Context, userID string, fn func() error) error {
	unlock, err := s.locker.TryLock(ctx, "plan:"+userID, s.opts.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return ErrGenerationInProgress
		}
		return upstream(s.log, "acquire user lock", err, "user_id", userID)
	}
	defer unlock()
	return fn()
}

func (s *planService) GenerateWeeklyPlan(ctx context.Context, caller domain.Identity, chatID string) (result *GeneratedPlan, err error) {
	ctx, end := startSpan(ctx, "PlanService.GenerateWeeklyPlan", attribute.String("user_id", caller.UserID))
	defer func() { end(err) }()

	err = s.withUserLock(ctx, caller.UserID, func() error {
		result, err = s.generateLocked(ctx, caller, strings.TrimSpace(chatID))
		return err
	})
	return result, err
}

func (s *planService) generateLocked(ctx context.Context, caller domain.Identity, chatID string) (*GeneratedPlan, error) {
	userID := caller.UserID
	now := s.opts.now().UTC()
	start := domain.StartOfWeek(now)
	startDate := domain.FormatDate(start)
	year := domain.YearKey(now.Year())
	log := s.log.With("user_id", userID, "start_date", startDate)

	// 1. New users arrive with an onboarding chat instead of stored details
	details, err := s.repos.Details.GetByUserID(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound) && chatID != "":
		if details, err = s.onboardFromChat(ctx, caller, chatID, now.Year()); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFoundf("no user details for user %s", userID)
	default:
		return nil, upstream(s.log, "load user details", err, "user_id", userID)
	}

	// 2. One plan per calendar week
	ok, err := s.ValidateGenerateWeeklyPlan(ctx, userID, startDate, year)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyGenerated
	}

	// 3. Close out the previous week before it becomes context
	if err := s.updateWeeklySummary(ctx, userID, year); err != nil {
		return nil, err
	}

	// 4. History, re-read after the summary write
	overall, err := s.loadOverall(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.oldWeeklyPlans(ctx, overall, year)
	if err != nil {
		return nil, err
	}
	weekNumber := nextWeekNumber(overall, year)

	// 5. Ask the model
	generated, err := s.ai.Planner.GenerateWeek(ctx, details.WithoutMemories(), start, now, history)
	if err != nil {
		return nil, upstream(s.log, "generate weekly plan", err, "user_id", userID)
	}

	// 6. Two-step write: document, then index. A crash in between leaves an
	// orphan that ReconcileWeekIndex registers later.
	plan := &domain.WeeklyTrainingPlan{Workouts: generated.Workouts, Reasoning: generated.Reasoning}
	weekID, err := s.SaveNewWeeklyPlan(ctx, userID, plan, startDate)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateOverallPlan(ctx, userID, weekID, weekNumber, startDate, year); err != nil {
		log.Error("Weekly plan saved but not indexed", "week_id", weekID, "error", err)
		return nil, err
	}
	log.Info("Weekly plan generated", "week_id", weekID, "week_number", weekNumber)

	return &GeneratedPlan{WeekNumber: weekNumber, WeekLabel: domain.WeekLabel(weekNumber), Year: year, Plan: plan}, nil
}

// nextWeekNumber is 1 + the number of weeks in year, bumped past any label
// already taken so an irregular index is never overwritten.
func nextWeekNumber(overall *domain.OverallTrainingPlan, year string) int {
	weeks := overall.Weeks(year)
	n := len(weeks) + 1
	for {
		if _, taken := weeks[domain.WeekLabel(n)]; !taken {
			return n
		}
		n++
	}
}

// onboardFromChat turns a finished onboarding conversation into stored details.
func (s *planService) onboardFromChat(ctx context.Context, caller domain.Identity, chatID string, year int) (*domain.UserDetails, error) {
	session, err := loadSession(ctx, s.repos.Chats, s.log, caller, chatID)
	if err != nil {
		return nil, err
	}
	if session.Purpose != domain.PurposeOnboarding {
		return nil, validationf("chat %s is not an onboarding conversation", chatID)
	}
	details, err := s.ai.Onboarding.Summarize(ctx, caller.UserID, session.Conversation())
	if err != nil {
		return nil, upstream(s.log, "summarize onboarding", err, "user_id", caller.UserID, "chat_id", chatID)
	}
	if err := createDetailsWithSkeleton(ctx, s.repos, details, year, s.log); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *planService) GetWeeklyPlanForDate(ctx context.Context, caller domain.Identity, date string) (*domain.WeeklyTrainingPlan, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	return s.GetWeeklyTrainingPlanForDate(ctx, day, caller.UserID)
}

// authorizeWeek checks that weekID is registered in the caller's own index.
func (s *planService) authorizeWeek(ctx context.Context, caller domain.Identity, weekID string) error {
	if caller.Role == domain.RoleAdmin {
		return nil
	}
	overall, err := s.loadOverall(ctx, caller.UserID)
	if err != nil {
		return err
	}
	for _, weeks := range overall.TrainingPlan {
		for _, entry := range weeks {
			if entry.WeekID == weekID {
				return nil
			}
		}
	}
	return notFoundf("weekly plan %s not found", weekID)
}

func (s *planService) GetDailyWorkout(ctx context.Context, caller domain.Identity, weekID, date string) (*domain.DailyWorkout, error) {
	if _, err := parseDate(date); err != nil {
		return nil, err
	}
	if err := s.authorizeWeek(ctx, caller, weekID); err != nil {
		return nil, err
	}
	return s.dailyWorkout(ctx, weekID, date)
}

func (s *planService) dailyWorkout(ctx context.Context, weekID, date string) (*domain.DailyWorkout, error) {
	day, err := s.repos.Weeks.GetDailyWorkout(ctx, weekID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("no workout on %s in weekly plan %s", date, weekID)
		}
		return nil, upstream(s.log, "load daily workout", err, "week_id", weekID, "date", date)
	}
	return day, nil
}

func (s *planService) UpdateExerciseStatus(ctx context.Context, caller domain.Identity, weekID string, update StatusUpdate) (day *domain.DailyWorkout, err error) {
	ctx, end := startSpan(ctx, "PlanService.UpdateExerciseStatus", attribute.String("week_id", weekID))
	defer func() { end(err) }()

	if _, err := parseDate(update.Date); err != nil {
		return nil, err
	}
	for i, status := range update.Status {
		if !domain.IsValidStatus(status) {
			return nil, validationf("status[%d] %q must be one of pending, done, skipped, partial", i, status)
		}
	}
	if err := s.authorizeWeek(ctx, caller, weekID); err != nil {
		return nil, err
	}
	day, err = s.dailyWorkout(ctx, weekID, update.Date)
	if err != nil {
		return nil, err
	}
	if len(update.Status) != len(day.Exercises) {
		return nil, validationf("got %d statuses for %d exercises", len(update.Status), len(day.Exercises))
	}

	if err := s.repos.Weeks.SetExerciseStatuses(ctx, weekID, update.Date, update.Status); err != nil {
		return nil, upstream(s.log, "set exercise statuses", err, "week_id", weekID, "date", update.Date)
	}
	for i := range day.Exercises {
		day.Exercises[i].Status = update.Status[i]
	}

	summary, err := s.ai.Planner.SummarizeDay(ctx, *day)
	if err != nil {
		return nil, upstream(s.log, "summarize day", err, "week_id", weekID, "date", update.Date)
	}
	if err := s.repos.Weeks.SetDailySummary(ctx, weekID, update.Date, summary); err != nil {
		return nil, upstream(s.log, "store daily summary", err, "week_id", weekID, "date", update.Date)
	}
	day.Summary = summary
	return day, nil
}

// planForDate resolves the caller's week covering date and reports a missing
// week as a validation failure naming action.
func (s *planService) planForDate(ctx context.Context, userID string, date time.Time, action string) (*domain.WeeklyTrainingPlan, error) {
	week, err := s.GetWeeklyTrainingPlanForDate(ctx, date, userID)
	if errors.Is(err, ErrNoPlanForDate) || errors.Is(err, ErrNotOnboarded) {
		return nil, validationf("cannot %s before generating a weekly plan covering %s", action, domain.FormatDate(date))
	}
	return week, err
}

func (s *planService) SummarizeJournal(ctx context.Context, caller domain.Identity, date, chatID string) (string, error) {
	day, err := parseDate(date)
	if err != nil {
		return "", err
	}
	session, err := loadSession(ctx, s.repos.Chats, s.log, caller, chatID)
	if err != nil {
		return "", err
	}
	if session.Purpose != domain.PurposeWorkoutJournal {
		return "", validationf("chat %s is not a workout journal conversation", chatID)
	}
	week, err := s.GetWeeklyTrainingPlanForDate(ctx, day, caller.UserID)
	if err != nil {
		return "", err
	}
	if _, ok := week.WorkoutForDate(date); !ok {
		return "", notFoundf("no workout on %s in weekly plan %s", date, week.WeekID)
	}

	summary, err := s.ai.Journal.Summarize(ctx, week, day, session.Conversation())
	if err != nil {
		return "", upstream(s.log, "summarize journal", err, "user_id", caller.UserID, "chat_id", chatID)
	}
	if err := s.repos.Weeks.SetDailySummary(ctx, week.WeekID, date, summary); err != nil {
		return "", upstream(s.log, "store journal summary", err, "week_id", week.WeekID, "date", date)
	}
	return summary, nil
}

func (s *planService) LogWorkout(ctx context.Context, caller domain.Identity, req LogWorkoutRequest) (result *domain.DailyWorkout, err error) {
	ctx, end := startSpan(ctx, "PlanService.LogWorkout", attribute.String("user_id", caller.UserID))
	defer func() { end(err) }()

	day, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	err = s.withUserLock(ctx, caller.UserID, func() error {
		week, err := s.planForDate(ctx, caller.UserID, day, "log a workout")
		if err != nil {
			return err
		}
		session, err := loadSession(ctx, s.repos.Chats, s.log, caller, req.ChatID)
		if err != nil {
			return err
		}

		exercises, err := s.ai.Log.ExtractWorkout(ctx, day, session.Conversation())
		if err != nil {
			return upstream(s.log, "extract logged workout", err, "user_id", caller.UserID, "chat_id", req.ChatID)
		}
		if len(exercises) == 0 {
			return validationf("no exercises found in chat %s", req.ChatID)
		}
		for i := range exercises {
			exercises[i].CoachNote = domain.ManualLogCoachNote
			if !domain.IsValidStatus(exercises[i].Status) || exercises[i].Status == domain.StatusPending {
				exercises[i].Status = domain.StatusDone
			}
		}

		workout := domain.DailyWorkout{Date: req.Date, Theme: "Logged workout", Exercises: exercises}
		if err := s.UpdateOrInsertWorkoutForDate(ctx, week.WeekID, req.Date, workout, req.ShouldReplace); err != nil {
			return err
		}
		result, err = s.dailyWorkout(ctx, week.WeekID, req.Date)
		return err
	})
	return result, err
}

func (s *planService) profile(ctx context.Context, userID string) (map[string]any, error) {
	details, err := s.repos.Details.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return map[string]any{}, nil
		}
		return nil, upstream(s.log, "load user details", err, "user_id", userID)
	}
	return details.WithoutMemories(), nil
}

func (s *planService) QuickWorkout(ctx context.Context, caller domain.Identity, date, request string) (result *domain.DailyWorkout, err error) {
	ctx, end := startSpan(ctx, "PlanService.QuickWorkout", attribute.String("user_id", caller.UserID))
	defer func() { end(err) }()

	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if request = strings.TrimSpace(request); request == "" {
		return nil, validationf("request cannot be empty")
	}
	err = s.withUserLock(ctx, caller.UserID, func() error {
		week, err := s.planForDate(ctx, caller.UserID, day, "create a quick workout")
		if err != nil {
			return err
		}
		profile, err := s.profile(ctx, caller.UserID)
		if err != nil {
			return err
		}
		workout, err := s.ai.Planner.QuickWorkout(ctx, profile, day, request)
		if err != nil {
			return upstream(s.log, "quick workout", err, "user_id", caller.UserID)
		}
		if err := s.UpdateOrInsertWorkoutForDate(ctx, week.WeekID, date, *workout, true); err != nil {
			return err
		}
		result, err = s.dailyWorkout(ctx, week.WeekID, date)
		return err
	})
	return result, err
}

func (s *planService) RegenerateWorkout(ctx context.Context, caller domain.Identity, date, feedback string) (result *domain.DailyWorkout, err error) {
	ctx, end := startSpan(ctx, "PlanService.RegenerateWorkout", attribute.String("user_id", caller.UserID))
	defer func() { end(err) }()

	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if feedback = strings.TrimSpace(feedback); feedback == "" {
		return nil, validationf("feedback cannot be empty")
	}
	err = s.withUserLock(ctx, caller.UserID, func() error {
		week, err := s.GetWeeklyTrainingPlanForDate(ctx, day, caller.UserID)
		if err != nil {
			return err
		}
		current, err := s.dailyWorkout(ctx, week.WeekID, date)
		if err != nil {
			return err
		}
		profile, err := s.profile(ctx, caller.UserID)
		if err != nil {
			return err
		}
		exercises, reasoning, err := s.ai.Planner.RegenerateWorkout(ctx, profile, *current, feedback)
		if err != nil {
			return upstream(s.log, "regenerate workout", err, "user_id", caller.UserID)
		}
		if err := s.repos.Weeks.SetDailyExercises(ctx, week.WeekID, date, exercises, reasoning); err != nil {
			return upstream(s.log, "store regenerated workout", err, "week_id", week.WeekID, "date", date)
		}
		result, err = s.dailyWorkout(ctx, week.WeekID, date)
		return err
	})
	return result, err
}

func (s *planService) ReconcileWeekIndex(ctx context.Context, userID string) (report *ReconcileReport, err error) {
	ctx, end := startSpan(ctx, "PlanService.ReconcileWeekIndex", attribute.String("user_id", userID))
	defer func() { end(err) }()

	overall, err := s.loadOverall(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.repos.Weeks.ListByUser(ctx, userID)
	if err != nil {
		return nil, upstream(s.log, "list weekly plans", err, "user_id", userID)
	}

	report = &ReconcileReport{UserID: userID, Registered: []IndexedWeek{}, Dangling: []IndexedWeek{}}
	exists := make(map[string]bool, len(owned))
	for _, w := range owned {
		exists[w.WeekID] = true
	}

	// Index entries pointing at nothing are reported, not deleted.
	indexed := map[string]bool{}
	years := make([]string, 0, len(overall.TrainingPlan))
	for year := range overall.TrainingPlan {
		years = append(years, year)
	}
	sort.Strings(years)
	for _, year := range years {
		for _, label := range overall.SortedWeekLabels(year) {
			entry := overall.Weeks(year)[label]
			indexed[entry.WeekID] = true
			if !exists[entry.WeekID] {
				report.Dangling = append(report.Dangling, IndexedWeek{Year: year, Label: label, WeekID: entry.WeekID, StartDate: entry.StartDate})
			}
		}
	}

	// Orphans are registered in start date order under the next free label of their year.
	for _, w := range owned {
		if indexed[w.WeekID] {
			continue
		}
		start, err := domain.ParseDate(w.StartDate)
		if err != nil {
			s.log.Warn("Skipping weekly plan with unparseable start date", "user_id", userID, "week_id", w.WeekID, "start_date", w.StartDate)
			continue
		}
		year := domain.YearKey(start.Year())
		if overall.HasStartDate(year, w.StartDate) {
			s.log.Warn("Orphan weekly plan duplicates an indexed week, leaving it unregistered", "user_id", userID, "week_id", w.WeekID, "start_date", w.StartDate)
			continue
		}
		number := nextWeekNumber(overall, year)
		entry := domain.WeekEntry{WeekID: w.WeekID, StartDate: w.StartDate}
		if err := s.repos.Plans.SetWeekEntry(ctx, userID, year, domain.WeekLabel(number), entry); err != nil {
			return nil, upstream(s.log, "register orphan week", err, "user_id", userID, "week_id", w.WeekID)
		}
		if overall.TrainingPlan == nil {
			overall.TrainingPlan = map[string]map[string]domain.WeekEntry{}
		}
		if overall.TrainingPlan[year] == nil {
			overall.TrainingPlan[year] = map[string]domain.WeekEntry{}
		}
		overall.TrainingPlan[year][domain.WeekLabel(number)] = entry
		report.Registered = append(report.Registered, IndexedWeek{Year: year, Label: domain.WeekLabel(number), WeekID: w.WeekID, StartDate: w.StartDate})
	}

	if len(report.Registered) > 0 || len(report.Dangling) > 0 {
		s.log.Warn("Week index reconciled", "user_id", userID, "registered", len(report.Registered), "dangling", len(report.Dangling))
	}
	return report, nil
}

func parseDate(date string) (time.Time, error) {
	t, err := domain.ParseDate(date)
	if err != nil {
		return time.Time{}, validationf("date %q must be formatted as YYYY-MM-DD", date)
	}
	return t, nil
}

// loadSession returns chatID if caller may read it.
func loadSession(ctx context.Context, chats repository.ChatHistoryRepository, log *logger.Logger, caller domain.Identity, chatID string) (*domain.ChatSession, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, validationf("chat_id is required")
	}
	session, err := chats.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("chat %s not found", chatID)
		}
		return nil, upstream(log, "load chat session", err, "chat_id", chatID)
	}
	if session.UserID != "" && !caller.CanAccess(session.UserID) {
		return nil, fmt.Errorf("%w: chat %s belongs to another user", ErrForbidden, chatID)
	}
	return session, nil
}
