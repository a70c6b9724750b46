package health

import (
	"strings"
	"time"

	"github.com/kalambet/myassistant/internal/domain"
)

// trackingFromTitle maps legacy goal titles to a tracked metric and its
// standard daily target. Water wins over sleep, sleep over exercise, exercise
// over meals.
func trackingFromTitle(title string) (domain.EntryType, float64, bool) {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "water"):
		return domain.EntryWater, 8, true
	case strings.Contains(t, "sleep"):
		return domain.EntrySleep, 8, true
	case strings.Contains(t, "exercise"):
		return domain.EntryExercise, 30, true
	case strings.Contains(t, "meal"):
		return domain.EntryMeal, 3, true
	}
	return "", 0, false
}

// Summary bundles everything derived for one moment.
type Summary struct {
	Today      string        `json:"today"`
	Totals     DayTotals     `json:"totals"`
	Streak     int           `json:"streak"`
	Week       RangeStats    `json:"week"`
	Month      RangeStats    `json:"month"`
	Goals      []domain.Goal `json:"goals"`
	Score      int           `json:"score"`
	Insight    *Insight      `json:"insight,omitempty"`
	LastWeight *WeightSample `json:"lastWeight,omitempty"`
	Chart      []ChartPoint  `json:"chart"`
}

// Summarize derives the full view of ds as of now.
func Summarize(ds domain.HealthDataset, now time.Time) Summary {
	key := LocalDateKey(now)
	totals := Totals(ds.DailyLogs, key)
	return Summary{
		Today:      key,
		Totals:     totals,
		Streak:     Streak(ds.DailyLogs, now),
		Week:       Stats(ds.DailyLogs, WeekRange(now)),
		Month:      Stats(ds.DailyLogs, MonthRange(now)),
		Goals:      ApplyGoalProgress(ds.Goals, totals, ds.Targets),
		Score:      HealthScore(totals, ds.Targets, ds.EnabledMetrics),
		Insight:    ProductivityInsight(totals, ds.Targets),
		LastWeight: LastWeight(ds.DailyLogs),
		Chart:      WeeklyChart(ds.DailyLogs, now),
	}
}
