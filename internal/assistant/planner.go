package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/prompts"
)

// Planner runs the one-shot plan tasks: weekly generation, summaries and
// single-day rewrites.
type Planner struct {
	base
}

func NewPlanner(client llm.Client, store *prompts.Store, log *logger.Logger) *Planner {
	return &Planner{base{llm: client, prompts: store, log: log.With("assistant", "planner")}}
}

// GeneratedWeek is the model's answer to a weekly plan request.
type GeneratedWeek struct {
	Workouts  []domain.DailyWorkout `json:"workouts"`
	Reasoning string                `json:"reasoning"`
}

// GenerateWeek designs the week starting at start. history holds the previous
// weekly plans, oldest first.
func (p *Planner) GenerateWeek(ctx context.Context, profile map[string]any, start, today time.Time, history []domain.WeeklyTrainingPlan) (*GeneratedWeek, error) {
	userData, err := toJSON(profile)
	if err != nil {
		return nil, err
	}
	old := "None."
	if len(history) > 0 {
		if old, err = toJSON(history); err != nil {
			return nil, err
		}
	}
	system, err := p.prompts.Render(prompts.GenerateFitnessPlan, map[string]string{
		"user_data":          userData,
		"start_of_week":      domain.FormatDate(start),
		"current_day":        domain.FormatDate(today),
		"old_training_plans": old,
	})
	if err != nil {
		return nil, err
	}
	var week GeneratedWeek
	err = p.llm.CompleteJSON(ctx, llm.Request{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: "Generate the training plan for the week starting " + domain.FormatDate(start) + "."},
	}}, &week)
	if err != nil {
		return nil, fmt.Errorf("generate weekly plan: %w", err)
	}
	if len(week.Workouts) == 0 {
		return nil, fmt.Errorf("generate weekly plan: %w: no workouts", llm.ErrMalformedJSON)
	}
	if err := checkWeekDates(week.Workouts, start); err != nil {
		return nil, fmt.Errorf("generate weekly plan: %w: %v", llm.ErrMalformedJSON, err)
	}
	for i := range week.Workouts {
		normalizeExercises(week.Workouts[i].Exercises)
	}
	return &week, nil
}

// checkWeekDates requires one workout per distinct day of the week containing
// start. Dates are rewritten to their canonical form.
func checkWeekDates(workouts []domain.DailyWorkout, start time.Time) error {
	first := domain.StartOfWeek(start)
	last := first.AddDate(0, 0, 6)
	seen := make(map[string]bool, len(workouts))
	for i := range workouts {
		day, err := domain.ParseDate(workouts[i].Date)
		if err != nil {
			return fmt.Errorf("workout %d has invalid date %q", i, workouts[i].Date)
		}
		if day.Before(first) || day.After(last) {
			return fmt.Errorf("workout %d date %s is outside %s..%s", i, domain.FormatDate(day), domain.FormatDate(first), domain.FormatDate(last))
		}
		date := domain.FormatDate(day)
		if seen[date] {
			return fmt.Errorf("workout %d repeats date %s", i, date)
		}
		seen[date] = true
		workouts[i].Date = date
	}
	return nil
}

// SummarizeDay writes the short summary of one day including exercise statuses.
func (p *Planner) SummarizeDay(ctx context.Context, day domain.DailyWorkout) (string, error) {
	text, err := toJSON(day)
	if err != nil {
		return "", err
	}
	return p.summarize(ctx, prompts.DailyPlanSummary, map[string]string{"daily_plan": text},
		"Create the short summary of the given day training plan.")
}

// SummarizeWeek writes the prose summary of a completed week.
func (p *Planner) SummarizeWeek(ctx context.Context, plan *domain.WeeklyTrainingPlan) (string, error) {
	text, err := toJSON(plan)
	if err != nil {
		return "", err
	}
	return p.summarize(ctx, prompts.WeeklyPlanSummary, map[string]string{"most_recent_week_plan": text},
		"Create the summary of the last week training plan.")
}

func (p *Planner) summarize(ctx context.Context, name string, values map[string]string, ask string) (string, error) {
	system, err := p.prompts.Render(name, values)
	if err != nil {
		return "", err
	}
	out, err := p.llm.Complete(ctx, llm.Request{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: ask},
	}})
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

// QuickWorkout builds a single workout for date from a free-form request.
func (p *Planner) QuickWorkout(ctx context.Context, profile map[string]any, date time.Time, request string) (*domain.DailyWorkout, error) {
	userData, err := toJSON(profile)
	if err != nil {
		return nil, err
	}
	system, err := p.prompts.Render(prompts.QuickWorkout, map[string]string{
		"user_data":    userData,
		"workout_date": domain.FormatDate(date),
		"request":      request,
	})
	if err != nil {
		return nil, err
	}
	var day domain.DailyWorkout
	err = p.llm.CompleteJSON(ctx, llm.Request{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: request},
	}}, &day)
	if err != nil {
		return nil, fmt.Errorf("quick workout: %w", err)
	}
	// The date is ours, not the model's.
	day.Date = domain.FormatDate(date)
	normalizeExercises(day.Exercises)
	return &day, nil
}

type regeneratedDay struct {
	Exercises []domain.Exercise `json:"exercises"`
	Reasoning string            `json:"reasoning"`
}

// RegenerateWorkout rewrites the exercises of day according to feedback.
func (p *Planner) RegenerateWorkout(ctx context.Context, profile map[string]any, day domain.DailyWorkout, feedback string) ([]domain.Exercise, string, error) {
	userData, err := toJSON(profile)
	if err != nil {
		return nil, "", err
	}
	current, err := toJSON(day)
	if err != nil {
		return nil, "", err
	}
	system, err := p.prompts.Render(prompts.RegenerateWorkout, map[string]string{
		"user_data":     userData,
		"daily_workout": current,
		"feedback":      feedback,
	})
	if err != nil {
		return nil, "", err
	}
	var out regeneratedDay
	err = p.llm.CompleteJSON(ctx, llm.Request{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: feedback},
	}}, &out)
	if err != nil {
		return nil, "", fmt.Errorf("regenerate workout: %w", err)
	}
	if len(out.Exercises) == 0 {
		return nil, "", fmt.Errorf("regenerate workout: %w: no exercises", llm.ErrMalformedJSON)
	}
	normalizeExercises(out.Exercises)
	return out.Exercises, out.Reasoning, nil
}

// normalizeExercises defaults missing or unknown statuses to pending.
func normalizeExercises(exercises []domain.Exercise) {
	for i := range exercises {
		if !domain.IsValidStatus(exercises[i].Status) {
			exercises[i].Status = domain.StatusPending
		}
	}
}

// Transcriber turns voice notes into text and fixes domain spelling mistakes.
type Transcriber struct {
	base
}

func NewTranscriber(client llm.Client, store *prompts.Store, log *logger.Logger) *Transcriber {
	return &Transcriber{base{llm: client, prompts: store, log: log.With("assistant", "transcriber")}}
}

func (t *Transcriber) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	raw, err := t.llm.Transcribe(ctx, fileName, audio)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	system, err := t.prompts.Render(prompts.CorrectTranscript, map[string]string{"translated_text": raw})
	if err != nil {
		return "", err
	}
	fixed, err := t.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: "Please correct any spelling errors in the given text."},
		},
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		// The raw transcript is still usable.
		t.log.Warn("Transcript correction failed, returning raw text", "error", err)
		return raw, nil
	}
	return strings.TrimSpace(fixed), nil
}
