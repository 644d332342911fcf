package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the calendar date format used for every date string in plans and requests.
const DateLayout = "2006-01-02"

// DaysPerWeek is the length of a training week; a week covers start_date through start_date+6.
const DaysPerWeek = 7

const weekLabelPrefix = "week "

// WeekEntry is the small index record referencing a full WeeklyTrainingPlan.
type WeekEntry struct {
	WeekID    string `bson:"week_id" json:"week_id"`
	StartDate string `bson:"start_date" json:"start_date"`
	Summary   string `bson:"summary" json:"summary"`
}

// OverallTrainingPlan is the per-user index: year -> week label -> entry.
type OverallTrainingPlan struct {
	ID           primitive.ObjectID              `bson:"_id,omitempty" json:"-"`
	UserID       string                          `bson:"user_id" json:"user_id"`
	TrainingPlan map[string]map[string]WeekEntry `bson:"training_plan" json:"training_plan"`
}

// NewOverallTrainingPlan builds the empty skeleton written at onboarding.
func NewOverallTrainingPlan(userID string, year int) *OverallTrainingPlan {
	return &OverallTrainingPlan{
		UserID:       userID,
		TrainingPlan: map[string]map[string]WeekEntry{YearKey(year): {}},
	}
}

// Weeks returns the entries registered for year, keyed by label. Never nil.
func (p *OverallTrainingPlan) Weeks(year string) map[string]WeekEntry {
	if p == nil || p.TrainingPlan == nil || p.TrainingPlan[year] == nil {
		return map[string]WeekEntry{}
	}
	return p.TrainingPlan[year]
}

// HasStartDate reports whether a week starting on startDate is already registered for year.
func (p *OverallTrainingPlan) HasStartDate(year, startDate string) bool {
	for _, entry := range p.Weeks(year) {
		if entry.StartDate == startDate {
			return true
		}
	}
	return false
}

// SortedWeekLabels returns the week labels of year in numeric order ("week 2" before "week 10").
func (p *OverallTrainingPlan) SortedWeekLabels(year string) []string {
	weeks := p.Weeks(year)
	labels := make([]string, 0, len(weeks))
	for label := range weeks {
		labels = append(labels, label)
	}
	SortWeekLabels(labels)
	return labels
}

// LatestWeek returns the label and entry with the highest week number in year.
func (p *OverallTrainingPlan) LatestWeek(year string) (string, WeekEntry, bool) {
	labels := p.SortedWeekLabels(year)
	if len(labels) == 0 {
		return "", WeekEntry{}, false
	}
	last := labels[len(labels)-1]
	return last, p.Weeks(year)[last], true
}

// FindWeekContaining returns the entry whose 7-day window [start, start+6] contains date.
func (p *OverallTrainingPlan) FindWeekContaining(date time.Time) (WeekEntry, bool) {
	year := YearKey(date.Year())
	target := truncateDay(date)
	for _, label := range p.SortedWeekLabels(year) {
		entry := p.Weeks(year)[label]
		start, err := ParseDate(entry.StartDate)
		if err != nil {
			continue
		}
		end := start.AddDate(0, 0, DaysPerWeek-1)
		if !target.Before(start) && !target.After(end) {
			return entry, true
		}
	}
	return WeekEntry{}, false
}

// WeekLabel formats the index key for a week number.
func WeekLabel(number int) string {
	return fmt.Sprintf("%s%d", weekLabelPrefix, number)
}

// WeekNumber parses the number out of a week label. Unparseable labels yield 0.
func WeekNumber(label string) int {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(label, weekLabelPrefix)))
	if err != nil {
		return 0
	}
	return n
}

// SortWeekLabels orders labels by week number, falling back to string order on ties.
func SortWeekLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		ni, nj := WeekNumber(labels[i]), WeekNumber(labels[j])
		if ni != nj {
			return ni < nj
		}
		return labels[i] < labels[j]
	})
}

// YearKey formats a year as the index map key.
func YearKey(year int) string {
	return strconv.Itoa(year)
}

// ParseDate parses a YYYY-MM-DD date string in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfWeek returns the Monday of the week containing t, at midnight.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return truncateDay(t).AddDate(0, 0, -offset)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
