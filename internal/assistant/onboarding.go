package assistant

import (
	"context"
	"fmt"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/prompts"
)

// Onboarding runs the intake assessment for new clients.
type Onboarding struct {
	base
}

func NewOnboarding(client llm.Client, store *prompts.Store, log *logger.Logger) *Onboarding {
	return &Onboarding{base{llm: client, prompts: store, log: log.With("assistant", "onboarding")}}
}

func (a *Onboarding) Chat(ctx context.Context, turn Turn) (*Reply, error) {
	seed, fresh, err := a.seedOr(turn, func() (string, error) {
		return a.prompts.Render(prompts.OnboardingAssessment, nil)
	})
	if err != nil {
		return nil, err
	}
	return a.converse(ctx, seed, fresh, turn), nil
}

// profileSections is the structured payload produced from an onboarding conversation.
type profileSections struct {
	PersonalInfo   map[string]any `json:"personal_info"`
	FitnessProfile map[string]any `json:"fitness_profile"`
	HealthInfo     map[string]any `json:"health_info"`
	Lifestyle      map[string]any `json:"lifestyle"`
}

// Summarize converts an onboarding conversation into profile details for userID.
// The result is not persisted.
func (a *Onboarding) Summarize(ctx context.Context, userID string, transcript []domain.Message) (*domain.UserDetails, error) {
	system, err := a.prompts.Render(prompts.SummarizeOnboarding, nil)
	if err != nil {
		return nil, err
	}
	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: transcriptText(transcript)},
		},
		Temperature: llm.Temperature(0),
	}
	var out profileSections
	if err := a.llm.CompleteJSON(ctx, req, &out); err != nil {
		a.log.Error("Onboarding summary failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("summarize onboarding: %w", err)
	}
	return &domain.UserDetails{
		UserID:         userID,
		PersonalInfo:   out.PersonalInfo,
		FitnessProfile: out.FitnessProfile,
		HealthInfo:     out.HealthInfo,
		Lifestyle:      out.Lifestyle,
	}, nil
}
