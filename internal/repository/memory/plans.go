package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type trainingPlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*domain.OverallTrainingPlan
}

func NewTrainingPlanRepository() repository.TrainingPlanRepository {
	return &trainingPlanRepository{plans: map[string]*domain.OverallTrainingPlan{}}
}

func (r *trainingPlanRepository) Create(_ context.Context, plan *domain.OverallTrainingPlan) error {
	if plan.UserID == "" {
		return errors.New("training plan requires a user id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[plan.UserID]; ok {
		return repository.ErrDuplicate
	}
	if plan.TrainingPlan == nil {
		plan.TrainingPlan = map[string]map[string]domain.WeekEntry{}
	}
	plan.ID = primitive.NewObjectID()
	r.plans[plan.UserID] = mustClone(plan)
	return nil
}

func (r *trainingPlanRepository) GetByUserID(_ context.Context, userID string) (*domain.OverallTrainingPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(p)
}

func (r *trainingPlanRepository) SetWeekEntry(_ context.Context, userID, year, label string, entry domain.WeekEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.TrainingPlan == nil {
		p.TrainingPlan = map[string]map[string]domain.WeekEntry{}
	}
	if p.TrainingPlan[year] == nil {
		p.TrainingPlan[year] = map[string]domain.WeekEntry{}
	}
	p.TrainingPlan[year][label] = entry
	return nil
}

// SetWeekSummary creates the entry if absent, mirroring a field-path $set.
func (r *trainingPlanRepository) SetWeekSummary(_ context.Context, userID, year, label, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.TrainingPlan == nil {
		p.TrainingPlan = map[string]map[string]domain.WeekEntry{}
	}
	if p.TrainingPlan[year] == nil {
		p.TrainingPlan[year] = map[string]domain.WeekEntry{}
	}
	entry := p.TrainingPlan[year][label]
	entry.Summary = summary
	p.TrainingPlan[year][label] = entry
	return nil
}

func (r *trainingPlanRepository) ListUserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.plans))
	for id := range r.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *trainingPlanRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.plans, userID)
	return nil
}

type weeklyPlanRepository struct {
	mu    sync.RWMutex
	weeks map[string]*domain.WeeklyTrainingPlan // keyed by week_id
}

func NewWeeklyPlanRepository() repository.WeeklyPlanRepository {
	return &weeklyPlanRepository{weeks: map[string]*domain.WeeklyTrainingPlan{}}
}

func (r *weeklyPlanRepository) Create(_ context.Context, plan *domain.WeeklyTrainingPlan) error {
	if plan.WeekID == "" || plan.UserID == "" || plan.StartDate == "" {
		return errors.New("weekly plan requires week_id, user_id, and start_date")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.weeks {
		if w.WeekID == plan.WeekID || (w.UserID == plan.UserID && w.StartDate == plan.StartDate) {
			return repository.ErrDuplicate
		}
	}
	if plan.Workouts == nil {
		plan.Workouts = []domain.DailyWorkout{}
	}
	plan.ID = primitive.NewObjectID()
	r.weeks[plan.WeekID] = mustClone(plan)
	return nil
}

func (r *weeklyPlanRepository) GetByWeekID(_ context.Context, weekID string) (*domain.WeeklyTrainingPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.weeks[weekID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(w)
}

func (r *weeklyPlanRepository) GetDailyWorkout(_ context.Context, weekID, date string) (*domain.DailyWorkout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	day, err := r.day(weekID, date)
	if err != nil {
		return nil, err
	}
	return clone(day)
}

func (r *weeklyPlanRepository) HasWorkoutForDate(_ context.Context, weekID, date string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.day(weekID, date)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *weeklyPlanRepository) ReplaceWorkoutForDate(_ context.Context, weekID string, workout domain.DailyWorkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, err := r.day(weekID, workout.Date)
	if err != nil {
		return err
	}
	*day = *mustClone(&workout)
	return nil
}

func (r *weeklyPlanRepository) AppendExercisesForDate(_ context.Context, weekID, date string, exercises []domain.Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, err := r.day(weekID, date)
	if err != nil {
		return err
	}
	for i := range exercises {
		day.Exercises = append(day.Exercises, *mustClone(&exercises[i]))
	}
	return nil
}

func (r *weeklyPlanRepository) AppendWorkout(_ context.Context, weekID string, workout domain.DailyWorkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.weeks[weekID]
	if !ok {
		return repository.ErrNotFound
	}
	if workout.Exercises == nil {
		workout.Exercises = []domain.Exercise{}
	}
	w.Workouts = append(w.Workouts, *mustClone(&workout))
	return nil
}

func (r *weeklyPlanRepository) SetExerciseStatuses(_ context.Context, weekID, date string, statuses []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, err := r.day(weekID, date)
	if err != nil {
		return err
	}
	for i, status := range statuses {
		if i < len(day.Exercises) {
			day.Exercises[i].Status = status
		}
	}
	return nil
}

func (r *weeklyPlanRepository) SetDailySummary(_ context.Context, weekID, date, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, err := r.day(weekID, date)
	if err != nil {
		return err
	}
	day.Summary = summary
	return nil
}

func (r *weeklyPlanRepository) SetDailyExercises(_ context.Context, weekID, date string, exercises []domain.Exercise, reasoning string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, err := r.day(weekID, date)
	if err != nil {
		return err
	}
	day.Exercises = make([]domain.Exercise, 0, len(exercises))
	for i := range exercises {
		day.Exercises = append(day.Exercises, *mustClone(&exercises[i]))
	}
	day.Reasoning = reasoning
	return nil
}

func (r *weeklyPlanRepository) ListByUser(_ context.Context, userID string) ([]domain.WeeklyTrainingPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plans := []domain.WeeklyTrainingPlan{}
	for _, w := range r.weeks {
		if w.UserID == userID {
			plans = append(plans, *mustClone(w))
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].StartDate < plans[j].StartDate })
	return plans, nil
}

func (r *weeklyPlanRepository) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, w := range r.weeks {
		if w.UserID == userID {
			delete(r.weeks, id)
			n++
		}
	}
	return n, nil
}

// day returns the live element for date; callers hold the lock.
func (r *weeklyPlanRepository) day(weekID, date string) (*domain.DailyWorkout, error) {
	w, ok := r.weeks[weekID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d, ok := w.WorkoutForDate(date)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}
