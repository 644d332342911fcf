package assistant

import (
	"context"

	"alcyxob/fitness-coach/internal/domain"
)

// Router selects the assistant for a purpose. It implements
// domain.PurposeVisitor, so every purpose must have a handler.
type Router struct {
	Onboard *Onboarding
	Guide   *WorkoutGuide
	Journal *WorkoutJournal
	Log     *WorkoutLog
	Chat    *General
}

var _ domain.PurposeVisitor[ChatFunc] = (*Router)(nil)

// Select returns the chat function bound to data.
func (r *Router) Select(data domain.PurposeData) ChatFunc {
	return domain.VisitPurpose[ChatFunc](data, r)
}

func (r *Router) Onboarding(domain.OnboardingData) ChatFunc {
	return r.Onboard.Chat
}

func (r *Router) WorkoutGuide(d domain.WorkoutGuideData) ChatFunc {
	return func(ctx context.Context, turn Turn) (*Reply, error) {
		return r.Guide.Chat(ctx, turn, d)
	}
}

func (r *Router) WorkoutJournal(d domain.WorkoutJournalData) ChatFunc {
	return func(ctx context.Context, turn Turn) (*Reply, error) {
		return r.Journal.Chat(ctx, turn, d)
	}
}

func (r *Router) WorkoutLog(d domain.WorkoutLogData) ChatFunc {
	return func(ctx context.Context, turn Turn) (*Reply, error) {
		return r.Log.Chat(ctx, turn, d)
	}
}

func (r *Router) General(domain.GeneralData) ChatFunc {
	return r.Chat.Chat
}
