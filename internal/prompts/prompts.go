// Package prompts loads the plain-text prompt templates and fills their
// {placeholder} slots by string replacement.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed templates/*.txt
var embedded embed.FS

// Template names.
const (
	OnboardingAssessment          = "onboarding_assessment"
	SummarizeOnboarding           = "summarize_onboarding_assessment"
	WorkoutGuideChat              = "workout_guide_chat"
	WorkoutJournalChat            = "workout_journal_checkin_chat"
	WorkoutJournalSummarize       = "workout_journal_checkin_summarize"
	WorkoutLogChat                = "workout_log_chat"
	GeneralChat                   = "general_chat"
	GenerateFitnessPlan           = "generate_fitness_plan_system_message"
	DailyPlanSummary              = "daily_plan_summary"
	WeeklyPlanSummary             = "weekly_plan_summary"
	LogUserSpecifiedWorkoutSystem = "log_user_specified_workout_system_message"
	LogUserSpecifiedWorkoutUser   = "log_user_specified_workout_user_message"
	QuickWorkout                  = "quick_workout_system_message"
	RegenerateWorkout             = "regenerate_workout_system_message"
	CorrectTranscript             = "correct_translation_misspelling_system_message"
)

// ErrUnknownTemplate is returned for a name with no embedded or override file.
var ErrUnknownTemplate = errors.New("prompts: unknown template")

// Store resolves templates from an optional override directory, falling back to the embedded set.
type Store struct {
	overrideDir string
}

// NewStore returns a store. An empty dir uses only the embedded templates.
func NewStore(overrideDir string) *Store {
	return &Store{overrideDir: strings.TrimSpace(overrideDir)}
}

// Load returns the raw template text.
func (s *Store) Load(name string) (string, error) {
	file := name + ".txt"
	if s.overrideDir != "" {
		raw, err := os.ReadFile(filepath.Join(s.overrideDir, file))
		if err == nil {
			return string(raw), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("prompts: read override %s: %w", file, err)
		}
	}
	raw, err := embedded.ReadFile("templates/" + file)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return string(raw), nil
}

// Render loads name and replaces every {key} with its value. Placeholders
// without a value are left as they are.
func (s *Store) Render(name string, values map[string]string) (string, error) {
	text, err := s.Load(name)
	if err != nil {
		return "", err
	}
	return Fill(text, values), nil
}

// Fill replaces {key} placeholders in text.
func Fill(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
