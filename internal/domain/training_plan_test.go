package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestSortWeekLabels_Numeric(t *testing.T) {
	labels := []string{"week 10", "week 2", "week 1", "week 9"}
	SortWeekLabels(labels)
	assert.Equal(t, []string{"week 1", "week 2", "week 9", "week 10"}, labels)
}

func TestLatestWeek_PastNine(t *testing.T) {
	plan := NewOverallTrainingPlan("u1", 2024)
	for i := 1; i <= 10; i++ {
		plan.TrainingPlan["2024"][WeekLabel(i)] = WeekEntry{WeekID: WeekLabel(i)}
	}
	label, entry, ok := plan.LatestWeek("2024")
	require.True(t, ok)
	assert.Equal(t, "week 10", label)
	assert.Equal(t, "week 10", entry.WeekID)
}

func TestLatestWeek_Empty(t *testing.T) {
	plan := NewOverallTrainingPlan("u1", 2024)
	_, _, ok := plan.LatestWeek("2024")
	assert.False(t, ok)
	_, _, ok = plan.LatestWeek("1999")
	assert.False(t, ok)
}

func TestFindWeekContaining_Boundaries(t *testing.T) {
	plan := NewOverallTrainingPlan("u1", 2024)
	plan.TrainingPlan["2024"]["week 1"] = WeekEntry{WeekID: "w1", StartDate: "2024-06-03"}

	entry, ok := plan.FindWeekContaining(mustDate(t, "2024-06-03"))
	require.True(t, ok)
	assert.Equal(t, "w1", entry.WeekID)

	entry, ok = plan.FindWeekContaining(mustDate(t, "2024-06-09"))
	require.True(t, ok)
	assert.Equal(t, "w1", entry.WeekID)

	_, ok = plan.FindWeekContaining(mustDate(t, "2024-06-10"))
	assert.False(t, ok)

	plan.TrainingPlan["2024"]["week 2"] = WeekEntry{WeekID: "w2", StartDate: "2024-06-10"}
	entry, ok = plan.FindWeekContaining(mustDate(t, "2024-06-10"))
	require.True(t, ok)
	assert.Equal(t, "w2", entry.WeekID)
}

func TestHasStartDate(t *testing.T) {
	plan := NewOverallTrainingPlan("u1", 2024)
	assert.False(t, plan.HasStartDate("2024", "2024-06-03"))
	plan.TrainingPlan["2024"]["week 1"] = WeekEntry{WeekID: "w1", StartDate: "2024-06-03"}
	assert.True(t, plan.HasStartDate("2024", "2024-06-03"))
	assert.False(t, plan.HasStartDate("2025", "2024-06-03"))
}

func TestStartOfWeek(t *testing.T) {
	cases := map[string]string{
		"2024-06-03": "2024-06-03", // Monday
		"2024-06-05": "2024-06-03",
		"2024-06-09": "2024-06-03", // Sunday
		"2024-06-10": "2024-06-10",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDate(StartOfWeek(mustDate(t, in))), in)
	}
}

func TestWeekNumber(t *testing.T) {
	assert.Equal(t, 3, WeekNumber("week 3"))
	assert.Equal(t, 0, WeekNumber("summary"))
	assert.Equal(t, "week 12", WeekLabel(12))
}
