package health

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/myassistant/internal/domain"
)

var est = time.FixedZone("EST", -5*60*60)

// wednesday is 2025-03-05 09:00 local.
var wednesday = time.Date(2025, 3, 5, 9, 0, 0, 0, est)

func entry(t domain.EntryType, v float64) domain.Entry {
	return domain.Entry{Type: t, Value: domain.Number(v), Unit: t.DefaultUnit()}
}

func meal(text string) domain.Entry {
	return domain.Entry{Type: domain.EntryMeal, Value: domain.Text(text), Unit: "meal"}
}

func TestLocalDateKey_UsesLocalCalendarDay(t *testing.T) {
	utc := time.Date(2025, 3, 5, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-05", LocalDateKey(utc))
	assert.Equal(t, "2025-03-04", LocalDateKey(utc.In(est)))
}

func TestTotals_SumsAndLastSleep(t *testing.T) {
	logs := domain.DailyLogs{
		"2025-03-05": {
			entry(domain.EntryWater, 2),
			entry(domain.EntrySleep, 6),
			entry(domain.EntryWater, 3),
			entry(domain.EntryExercise, 20),
			meal("toast"),
			entry(domain.EntrySleep, 7.5),
			meal("salad"),
		},
	}

	got := Totals(logs, "2025-03-05")
	assert.Equal(t, 5.0, got.Water)
	assert.Equal(t, 7.5, got.Sleep)
	assert.Equal(t, 20.0, got.Exercise)
	assert.Equal(t, 2, got.Meals)
	assert.Equal(t, 7, got.Entries)
	assert.Nil(t, got.Weight)
}

func TestTotals_WeightCarriedForward(t *testing.T) {
	logs := domain.DailyLogs{
		"2025-03-01": {entry(domain.EntryWeight, 160)},
		"2025-03-03": {entry(domain.EntryWeight, 158), entry(domain.EntryWeight, 157)},
		"2025-03-05": {entry(domain.EntryWater, 1)},
		"2025-03-09": {entry(domain.EntryWeight, 150)},
	}

	got := Totals(logs, "2025-03-05")
	require.NotNil(t, got.Weight)
	assert.Equal(t, WeightSample{Date: "2025-03-03", Value: 157}, *got.Weight)

	last := LastWeight(logs)
	require.NotNil(t, last)
	assert.Equal(t, "2025-03-09", last.Date)
}

func TestStreak_EndingToday(t *testing.T) {
	logs := domain.DailyLogs{
		"2025-03-05": {entry(domain.EntryWater, 1)},
		"2025-03-04": {entry(domain.EntryWater, 1)},
		"2025-03-03": {entry(domain.EntryWater, 1)},
		"2025-03-01": {entry(domain.EntryWater, 1)},
	}
	assert.Equal(t, 3, Streak(logs, wednesday))
}

func TestStreak_TodayNotYetLogged(t *testing.T) {
	logs := domain.DailyLogs{
		"2025-03-04": {entry(domain.EntryWater, 1)},
		"2025-03-03": {entry(domain.EntryWater, 1)},
	}
	assert.Equal(t, 2, Streak(logs, wednesday))
}

func TestStreak_EmptyDaysDoNotCount(t *testing.T) {
	logs := domain.DailyLogs{
		"2025-03-05": {},
		"2025-03-03": {entry(domain.EntryWater, 1)},
	}
	assert.Equal(t, 0, Streak(logs, wednesday))
	assert.Equal(t, 0, Streak(domain.DailyLogs{}, wednesday))
}

func TestStreak_Capped(t *testing.T) {
	logs := domain.DailyLogs{}
	day := wednesday
	for i := 0; i < 400; i++ {
		logs[LocalDateKey(day)] = []domain.Entry{entry(domain.EntryWater, 1)}
		day = day.AddDate(0, 0, -1)
	}
	assert.Equal(t, 365, Streak(logs, wednesday))
}

func TestWeekRange_SundayToSaturday(t *testing.T) {
	r := WeekRange(wednesday)
	assert.Equal(t, "2025-03-02", LocalDateKey(r.Start))
	assert.Equal(t, time.Sunday, r.Start.Weekday())
	assert.Equal(t, "2025-03-08", LocalDateKey(r.End))
	assert.Equal(t, time.Saturday, r.End.Weekday())
}

func TestMonthRange(t *testing.T) {
	r := MonthRange(time.Date(2024, 2, 10, 12, 0, 0, 0, est))
	assert.Equal(t, "2024-02-01", LocalDateKey(r.Start))
	assert.Equal(t, "2024-02-29", LocalDateKey(r.End))
}

func TestStats_MonthIncludesOnlyThatMonth(t *testing.T) {
	logs := domain.DailyLogs{
		"2025-02-28": {entry(domain.EntryWater, 100)},
		"2025-03-01": {entry(domain.EntryWater, 2), entry(domain.EntrySleep, 7)},
		"2025-03-20": {entry(domain.EntryWater, 3), entry(domain.EntrySleep, 8), meal("rice")},
		"2025-04-01": {entry(domain.EntryWater, 100)},
	}

	s := Stats(logs, MonthRange(wednesday))
	assert.Equal(t, 5.0, s.Water)
	assert.Equal(t, 15.0, s.Sleep)
	assert.Equal(t, 1, s.Meals)
	assert.Equal(t, 2, s.DaysLogged)
}

func TestStats_FirstWeightPerDay(t *testing.T) {
	logs := domain.DailyLogs{
		"2025-03-03": {entry(domain.EntryWeight, 160), entry(domain.EntryWeight, 159)},
		"2025-03-04": {entry(domain.EntryWater, 1)},
		"2025-03-05": {entry(domain.EntryWeight, 158)},
	}

	s := Stats(logs, WeekRange(wednesday))
	assert.Equal(t, []WeightSample{{Date: "2025-03-03", Value: 160}, {Date: "2025-03-05", Value: 158}}, s.Weights)
	assert.Equal(t, 3, s.DaysLogged)
}

func waterGoal() domain.Goal {
	return domain.Goal{ID: 2, Title: "Drink water", AutoTracked: true, TrackingType: domain.EntryWater, Target: domain.NumericTarget(8)}
}

func TestApplyGoalProgress_Water(t *testing.T) {
	cases := []struct {
		glasses   float64
		progress  int
		completed bool
	}{
		{4, 50, false},
		{8, 100, true},
		{10, 100, true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v glasses", tc.glasses), func(t *testing.T) {
			totals := DayTotals{Water: tc.glasses}
			got := ApplyGoalProgress([]domain.Goal{waterGoal()}, totals, domain.DefaultTargets())
			assert.Equal(t, tc.progress, got[0].Progress)
			assert.Equal(t, tc.completed, got[0].Completed)
		})
	}
}

func TestApplyGoalProgress_DescriptionAndFallbackTarget(t *testing.T) {
	g := domain.Goal{ID: 9, Title: "Exercise", AutoTracked: true, TrackingType: domain.EntryExercise}
	got := ApplyGoalProgress([]domain.Goal{g}, DayTotals{Exercise: 15}, domain.DefaultTargets())

	assert.Equal(t, 50, got[0].Progress)
	assert.Equal(t, "15/30 minutes", got[0].Description)
}

func TestApplyGoalProgress_ZeroTargetNeverDivides(t *testing.T) {
	g := domain.Goal{ID: 9, Title: "Meals", AutoTracked: true, TrackingType: domain.EntryMeal, Target: domain.NumericTarget(0)}
	got := ApplyGoalProgress([]domain.Goal{g}, DayTotals{Meals: 2}, domain.Targets{})

	assert.Equal(t, 0, got[0].Progress)
	assert.False(t, got[0].Completed)
}

func TestApplyGoalProgress_LeavesManualGoalsAndInputAlone(t *testing.T) {
	manual := domain.Goal{ID: 1, Title: "Read", Progress: 40, Description: "Module 2"}
	goals := []domain.Goal{manual, waterGoal()}

	got := ApplyGoalProgress(goals, DayTotals{Water: 8}, domain.DefaultTargets())
	assert.Equal(t, manual, got[0])
	assert.Equal(t, 0, goals[1].Progress, "input must not be modified")
}

func TestHealthScore(t *testing.T) {
	totals := DayTotals{Water: 4, Sleep: 8, Exercise: 60, Meals: 0}
	assert.Equal(t, 63, HealthScore(totals, domain.DefaultTargets(), domain.DefaultMetrics()))

	onlyWater := domain.Metrics{Water: true}
	assert.Equal(t, 50, HealthScore(totals, domain.DefaultTargets(), onlyWater))
	assert.Equal(t, 0, HealthScore(totals, domain.DefaultTargets(), domain.Metrics{}))
}

func TestProductivityInsight(t *testing.T) {
	targets := domain.DefaultTargets()

	assert.Equal(t, "positive", ProductivityInsight(DayTotals{Sleep: 8}, targets).Kind)
	assert.Equal(t, "neutral", ProductivityInsight(DayTotals{Sleep: 7}, targets).Kind)
	assert.Equal(t, "warning", ProductivityInsight(DayTotals{Sleep: 5}, targets).Kind)
	assert.Contains(t, ProductivityInsight(DayTotals{Water: 8}, targets).Text, "Hydration")
	assert.Nil(t, ProductivityInsight(DayTotals{}, targets))
}

func TestMigrateGoals(t *testing.T) {
	goals := []domain.Goal{
		{ID: 1, Title: "Drink more Water"},
		{ID: 2, Title: "Log all meals"},
		{ID: 3, Title: "Meditate"},
		{ID: 4, Title: "Sleep early", AutoTracked: true, TrackingType: domain.EntrySleep, Target: domain.NumericTarget(9)},
	}

	got, changed := MigrateGoals(goals)
	require.True(t, changed)
	assert.Equal(t, domain.EntryWater, got[0].TrackingType)
	assert.Equal(t, 8.0, got[0].Target.Value)
	assert.Equal(t, domain.EntryMeal, got[1].TrackingType)
	assert.False(t, got[2].AutoTracked)
	assert.Equal(t, 9.0, got[3].Target.Value)

	_, changed = MigrateGoals(got)
	assert.False(t, changed)
}

func TestWeightTrend_LastN(t *testing.T) {
	logs := domain.DailyLogs{}
	day := wednesday
	for i := 0; i < 20; i++ {
		logs[LocalDateKey(day)] = []domain.Entry{entry(domain.EntryWeight, float64(150+i))}
		day = day.AddDate(0, 0, -1)
	}

	points := WeightTrend(logs, 145, 14)
	require.Len(t, points, 14)
	assert.Equal(t, "2025-03-05", points[13].Date)
	assert.Equal(t, 150.0, points[13].Weight)
	assert.Equal(t, 145.0, points[0].Goal)
}

func TestWeeklyChart_SevenDaysEndingToday(t *testing.T) {
	logs := domain.DailyLogs{"2025-03-05": {entry(domain.EntryWater, 3)}}
	points := WeeklyChart(logs, wednesday)

	require.Len(t, points, 7)
	assert.Equal(t, "2025-02-27", points[0].Date)
	assert.Equal(t, "Wed", points[6].Label)
	assert.Equal(t, 3.0, points[6].Water)
}

func TestSummarize(t *testing.T) {
	ds := domain.DefaultHealth()
	ds.DailyLogs = domain.DailyLogs{"2025-03-05": {entry(domain.EntryWater, 4), entry(domain.EntrySleep, 8)}}

	s := Summarize(ds, wednesday)
	assert.Equal(t, "2025-03-05", s.Today)
	assert.Equal(t, 1, s.Streak)
	require.Len(t, s.Goals, 3)
	assert.Equal(t, 100, s.Goals[0].Progress) // sleep
	assert.Equal(t, 50, s.Goals[1].Progress)  // water
	assert.Equal(t, 0, ds.Goals[1].Progress)
}
