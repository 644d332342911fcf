package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise statuses a client may report for a planned exercise.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusSkipped = "skipped"
	StatusPartial = "partial"
)

// ManualLogCoachNote marks exercises that were logged by the user rather than planned.
const ManualLogCoachNote = "Manually logged by user. Not part of the coach's workout plan."

// IsValidStatus reports whether s is an accepted exercise status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusDone, StatusSkipped, StatusPartial:
		return true
	}
	return false
}

// FlexString accepts either a JSON string or a JSON number and stores it as text.
// Generated plans are inconsistent about "reps": 10 versus "reps": "8-10".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(strings.TrimSpace(string(data)))
	return nil
}

// Exercise is one entry of a daily workout. Order within the workout is significant.
type Exercise struct {
	Name      string     `bson:"name" json:"name"`
	Sets      FlexString `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps      FlexString `bson:"reps,omitempty" json:"reps,omitempty"`
	Weight    FlexString `bson:"weight,omitempty" json:"weight,omitempty"`
	Rest      FlexString `bson:"rest,omitempty" json:"rest,omitempty"`
	Status    string     `bson:"status,omitempty" json:"status,omitempty"`
	CoachNote string     `bson:"coach_note,omitempty" json:"coach_note,omitempty"`
}

// RunningSegment is the optional cardio part of a daily workout.
type RunningSegment struct {
	Distance FlexString `bson:"distance,omitempty" json:"distance,omitempty"`
	Duration FlexString `bson:"duration,omitempty" json:"duration,omitempty"`
	Pace     FlexString `bson:"pace,omitempty" json:"pace,omitempty"`
	Notes    string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// DailyWorkout is the plan for one date. At most one exists per date string within a week.
type DailyWorkout struct {
	Date      string          `bson:"date" json:"date"`
	Theme     string          `bson:"theme,omitempty" json:"theme,omitempty"`
	Exercises []Exercise      `bson:"exercises" json:"exercises"`
	Running   *RunningSegment `bson:"running,omitempty" json:"running,omitempty"`
	Reasoning string          `bson:"reasoning,omitempty" json:"reasoning,omitempty"`
	Summary   string          `bson:"summary,omitempty" json:"summary,omitempty"`
}

// WeeklyTrainingPlan is the day-by-day workout document for one week, keyed by WeekID.
type WeeklyTrainingPlan struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	WeekID    string             `bson:"week_id" json:"week_id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	StartDate string             `bson:"start_date" json:"start_date"`
	Workouts  []DailyWorkout     `bson:"workouts" json:"workouts"`
	Reasoning string             `bson:"reasoning,omitempty" json:"reasoning,omitempty"`
}

// WorkoutForDate returns the daily workout for date, if present.
func (p *WeeklyTrainingPlan) WorkoutForDate(date string) (*DailyWorkout, bool) {
	for i := range p.Workouts {
		if p.Workouts[i].Date == date {
			return &p.Workouts[i], true
		}
	}
	return nil, false
}
