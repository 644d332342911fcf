package assistant

import (
	"context"
	"fmt"
	"time"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/prompts"
)

const noPlanText = "No training plan has been generated for this week yet."

// planContext renders the weekly plan covering date, or a placeholder text.
func planContext(ctx context.Context, plans PlanLookup, userID string, date time.Time) (*domain.WeeklyTrainingPlan, string, error) {
	if userID == "" {
		return nil, noPlanText, nil
	}
	plan, err := plans.WeeklyPlanCovering(ctx, userID, date)
	if err != nil {
		return nil, "", fmt.Errorf("load weekly plan for %s: %w", domain.FormatDate(date), err)
	}
	if plan == nil {
		return nil, noPlanText, nil
	}
	text, err := toJSON(plan)
	if err != nil {
		return nil, "", err
	}
	return plan, text, nil
}

// WorkoutGuide coaches the client live through a planned workout.
type WorkoutGuide struct {
	base
	plans PlanLookup
}

func NewWorkoutGuide(client llm.Client, store *prompts.Store, plans PlanLookup, log *logger.Logger) *WorkoutGuide {
	return &WorkoutGuide{base: base{llm: client, prompts: store, log: log.With("assistant", "workout_guide")}, plans: plans}
}

func (a *WorkoutGuide) Chat(ctx context.Context, turn Turn, data domain.WorkoutGuideData) (*Reply, error) {
	seed, fresh, err := a.seedOr(turn, func() (string, error) {
		_, plan, err := planContext(ctx, a.plans, turn.UserID, data.WorkoutDate)
		if err != nil {
			return "", err
		}
		return a.prompts.Render(prompts.WorkoutGuideChat, map[string]string{
			"weekly_workout_plan": plan,
			"workout_date":        domain.FormatDate(data.WorkoutDate),
			"instructions":        memoriesText(turn.Memories),
		})
	})
	if err != nil {
		return nil, err
	}
	return a.converse(ctx, seed, fresh, turn), nil
}

// WorkoutJournal runs the end-of-day check-in.
type WorkoutJournal struct {
	base
	plans PlanLookup
}

func NewWorkoutJournal(client llm.Client, store *prompts.Store, plans PlanLookup, log *logger.Logger) *WorkoutJournal {
	return &WorkoutJournal{base: base{llm: client, prompts: store, log: log.With("assistant", "workout_journal")}, plans: plans}
}

func (a *WorkoutJournal) Chat(ctx context.Context, turn Turn, data domain.WorkoutJournalData) (*Reply, error) {
	seed, fresh, err := a.seedOr(turn, func() (string, error) {
		_, plan, err := planContext(ctx, a.plans, turn.UserID, data.WorkoutDate)
		if err != nil {
			return "", err
		}
		return a.prompts.Render(prompts.WorkoutJournalChat, map[string]string{
			"weekly_workout_plan": plan,
			"current_date":        domain.FormatDate(data.WorkoutDate),
			"instructions":        memoriesText(turn.Memories),
		})
	})
	if err != nil {
		return nil, err
	}
	return a.converse(ctx, seed, fresh, turn), nil
}

// Summarize writes the journal entry for date from a check-in conversation.
func (a *WorkoutJournal) Summarize(ctx context.Context, plan *domain.WeeklyTrainingPlan, date time.Time, transcript []domain.Message) (string, error) {
	planText, err := toJSON(plan)
	if err != nil {
		return "", err
	}
	system, err := a.prompts.Render(prompts.WorkoutJournalSummarize, map[string]string{
		"workout_journal_data": planText,
		"current_date":         domain.FormatDate(date),
	})
	if err != nil {
		return "", err
	}
	msgs := append([]llm.Message{{Role: llm.RoleSystem, Content: system}}, toLLM(transcript)...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Summarize the content as instructed."})
	summary, err := a.llm.Complete(ctx, llm.Request{Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("summarize journal: %w", err)
	}
	return summary, nil
}

// WorkoutLog helps the client record a workout done outside the plan. It does
// not consult plan data.
type WorkoutLog struct {
	base
}

func NewWorkoutLog(client llm.Client, store *prompts.Store, log *logger.Logger) *WorkoutLog {
	return &WorkoutLog{base{llm: client, prompts: store, log: log.With("assistant", "workout_log")}}
}

func (a *WorkoutLog) Chat(ctx context.Context, turn Turn, data domain.WorkoutLogData) (*Reply, error) {
	seed, fresh, err := a.seedOr(turn, func() (string, error) {
		on := ""
		if !data.WorkoutDate.IsZero() {
			on = " on " + domain.FormatDate(data.WorkoutDate)
		}
		return a.prompts.Render(prompts.WorkoutLogChat, map[string]string{
			"workout_date": on,
			"instructions": memoriesText(turn.Memories),
		})
	})
	if err != nil {
		return nil, err
	}
	return a.converse(ctx, seed, fresh, turn), nil
}

type loggedWorkout struct {
	Exercises []domain.Exercise `json:"exercises"`
}

// ExtractWorkout turns a logging conversation into exercises. Exercises come
// back without a coach note.
func (a *WorkoutLog) ExtractWorkout(ctx context.Context, date time.Time, transcript []domain.Message) ([]domain.Exercise, error) {
	system, err := a.prompts.Render(prompts.LogUserSpecifiedWorkoutSystem, nil)
	if err != nil {
		return nil, err
	}
	user, err := a.prompts.Render(prompts.LogUserSpecifiedWorkoutUser, map[string]string{
		"workout_date": domain.FormatDate(date),
		"chat_history": transcriptText(transcript),
	})
	if err != nil {
		return nil, err
	}
	var out loggedWorkout
	err = a.llm.CompleteJSON(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: llm.Temperature(0),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("extract logged workout: %w", err)
	}
	return out.Exercises, nil
}

// General answers open questions using the client's profile.
type General struct {
	base
}

func NewGeneral(client llm.Client, store *prompts.Store, log *logger.Logger) *General {
	return &General{base{llm: client, prompts: store, log: log.With("assistant", "general")}}
}

func (a *General) Chat(ctx context.Context, turn Turn) (*Reply, error) {
	seed, fresh, err := a.seedOr(turn, func() (string, error) {
		userData := "Nothing yet."
		if len(turn.Profile) > 0 {
			text, err := toJSON(turn.Profile)
			if err != nil {
				return "", err
			}
			userData = text
		}
		return a.prompts.Render(prompts.GeneralChat, map[string]string{
			"user_data":    userData,
			"instructions": memoriesText(turn.Memories),
		})
	})
	if err != nil {
		return nil, err
	}
	return a.converse(ctx, seed, fresh, turn), nil
}
