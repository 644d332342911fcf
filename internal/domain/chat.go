package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message roles
const (
	MsgSystem    = "system"
	MsgUser      = "user"
	MsgAssistant = "assistant"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SessionState tracks whether a chat session has been seeded.
type SessionState string

const (
	SessionUnstarted SessionState = "unstarted"
	SessionActive    SessionState = "active"
)

// ChatSession is a persisted transcript with its purpose metadata.
// The first message of an active session is the system message that seeded it.
type ChatSession struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ChatID      string             `bson:"chat_id" json:"chat_id"`
	UserID      string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	State       SessionState       `bson:"state" json:"state"`
	Purpose     Purpose            `bson:"purpose" json:"purpose"`
	PurposeData PurposeParams      `bson:"purpose_data" json:"purpose_data"`
	Messages    []Message          `bson:"messages" json:"messages"`
	Time        time.Time          `bson:"time" json:"time"`
}

// Seed returns the system message captured when the session started, if any.
func (s *ChatSession) Seed() (string, bool) {
	if s == nil || len(s.Messages) == 0 || s.Messages[0].Role != MsgSystem {
		return "", false
	}
	return s.Messages[0].Content, true
}

// Conversation returns the transcript without its internal bootstrap messages:
// the leading system message always, and for workout journal sessions the first
// user message as well. Relative order of everything else is preserved.
func (s *ChatSession) Conversation() []Message {
	if s == nil {
		return []Message{}
	}
	msgs := make([]Message, 0, len(s.Messages))
	msgs = append(msgs, s.Messages...)
	if len(msgs) > 0 && msgs[0].Role == MsgSystem {
		msgs = msgs[1:]
	}
	if s.Purpose == PurposeWorkoutJournal {
		for i, m := range msgs {
			if m.Role == MsgUser {
				msgs = append(msgs[:i:i], msgs[i+1:]...)
				break
			}
		}
	}
	return msgs
}

// Purpose selects which assistant and prompt template govern a session.
type Purpose string

const (
	PurposeOnboarding     Purpose = "onboarding"
	PurposeWorkoutGuide   Purpose = "workout_guide"
	PurposeWorkoutJournal Purpose = "workout_journal"
	PurposeWorkoutLog     Purpose = "workout_log"
	PurposeGeneral        Purpose = "general"
)

// ErrInvalidPurpose is returned for an unknown purpose tag.
var ErrInvalidPurpose = errors.New("invalid chat purpose")

// PurposeParams is the stored form of purpose-specific parameters.
type PurposeParams struct {
	WorkoutDate string `bson:"workout_date,omitempty" json:"workout_date,omitempty"`
}

// PurposeData is the closed set of purpose variants, each with its own payload.
// Implementations live only in this package.
type PurposeData interface {
	Purpose() Purpose
	Params() PurposeParams
	isPurposeData()
}

type OnboardingData struct{}

type WorkoutGuideData struct {
	WorkoutDate time.Time
}

type WorkoutJournalData struct {
	WorkoutDate time.Time
}

// WorkoutLogData carries an optional date; zero means "not given".
type WorkoutLogData struct {
	WorkoutDate time.Time
}

type GeneralData struct{}

func (OnboardingData) Purpose() Purpose     { return PurposeOnboarding }
func (WorkoutGuideData) Purpose() Purpose   { return PurposeWorkoutGuide }
func (WorkoutJournalData) Purpose() Purpose { return PurposeWorkoutJournal }
func (WorkoutLogData) Purpose() Purpose     { return PurposeWorkoutLog }
func (GeneralData) Purpose() Purpose        { return PurposeGeneral }

func (OnboardingData) Params() PurposeParams { return PurposeParams{} }
func (d WorkoutGuideData) Params() PurposeParams {
	return PurposeParams{WorkoutDate: FormatDate(d.WorkoutDate)}
}
func (d WorkoutJournalData) Params() PurposeParams {
	return PurposeParams{WorkoutDate: FormatDate(d.WorkoutDate)}
}
func (d WorkoutLogData) Params() PurposeParams {
	if d.WorkoutDate.IsZero() {
		return PurposeParams{}
	}
	return PurposeParams{WorkoutDate: FormatDate(d.WorkoutDate)}
}
func (GeneralData) Params() PurposeParams { return PurposeParams{} }

func (OnboardingData) isPurposeData()     {}
func (WorkoutGuideData) isPurposeData()   {}
func (WorkoutJournalData) isPurposeData() {}
func (WorkoutLogData) isPurposeData()     {}
func (GeneralData) isPurposeData()        {}

// ParsePurpose builds the variant for tag from its stored parameters.
func ParsePurpose(tag Purpose, params PurposeParams) (PurposeData, error) {
	switch tag {
	case PurposeOnboarding:
		return OnboardingData{}, nil
	case PurposeGeneral:
		return GeneralData{}, nil
	case PurposeWorkoutGuide, PurposeWorkoutJournal:
		date, err := ParseDate(params.WorkoutDate)
		if err != nil {
			return nil, fmt.Errorf("%s requires purpose_data.workout_date as YYYY-MM-DD", tag)
		}
		if tag == PurposeWorkoutGuide {
			return WorkoutGuideData{WorkoutDate: date}, nil
		}
		return WorkoutJournalData{WorkoutDate: date}, nil
	case PurposeWorkoutLog:
		if params.WorkoutDate == "" {
			return WorkoutLogData{}, nil
		}
		date, err := ParseDate(params.WorkoutDate)
		if err != nil {
			return nil, fmt.Errorf("workout_log purpose_data.workout_date must be YYYY-MM-DD")
		}
		return WorkoutLogData{WorkoutDate: date}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPurpose, tag)
	}
}

// PurposeVisitor has one method per purpose variant. Anything dispatching on
// purpose implements it, so adding a variant breaks every dispatcher at compile time.
type PurposeVisitor[T any] interface {
	Onboarding(OnboardingData) T
	WorkoutGuide(WorkoutGuideData) T
	WorkoutJournal(WorkoutJournalData) T
	WorkoutLog(WorkoutLogData) T
	General(GeneralData) T
}

// VisitPurpose dispatches data to the matching visitor method.
func VisitPurpose[T any](data PurposeData, v PurposeVisitor[T]) T {
	switch d := data.(type) {
	case OnboardingData:
		return v.Onboarding(d)
	case WorkoutGuideData:
		return v.WorkoutGuide(d)
	case WorkoutJournalData:
		return v.WorkoutJournal(d)
	case WorkoutLogData:
		return v.WorkoutLog(d)
	case GeneralData:
		return v.General(d)
	}
	// PurposeData is sealed; reaching here means a variant was added without a case.
	panic(fmt.Sprintf("domain: unhandled purpose variant %T", data))
}
