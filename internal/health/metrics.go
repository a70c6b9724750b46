// Package health derives daily totals, streaks, range statistics and goal
// progress from raw health logs. Every function is pure: results depend only
// on the logs and the instant passed in, and nothing is cached or persisted.
//
// Days are local calendar days in the location of the time.Time supplied by
// the caller, never 24-hour windows.
package health

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/kalambet/myassistant/internal/domain"
)

// maxStreak bounds the streak walk.
const maxStreak = 365

const dateKeyLayout = "2006-01-02"

// LocalDateKey formats t as YYYY-MM-DD in t's own location.
func LocalDateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key as midnight in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateKeyLayout, key, loc)
}

// WeightSample is a weight reading and the day it was logged.
type WeightSample struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// DayTotals aggregates one day. Sleep is the last sleep entry of the day, not
// a sum. Weight is the most recent reading on or before the day.
type DayTotals struct {
	Date     string        `json:"date"`
	Water    float64       `json:"water"`
	Sleep    float64       `json:"sleep"`
	Exercise float64       `json:"exercise"`
	Meals    int           `json:"meals"`
	Weight   *WeightSample `json:"weight,omitempty"`
	Entries  int           `json:"entries"`
}

// Current returns the tracked quantity for t.
func (d DayTotals) Current(t domain.EntryType) float64 {
	switch t {
	case domain.EntryWater:
		return d.Water
	case domain.EntrySleep:
		return d.Sleep
	case domain.EntryExercise:
		return d.Exercise
	case domain.EntryMeal:
		return float64(d.Meals)
	}
	return 0
}

// Totals computes the aggregates for the day identified by key.
func Totals(logs domain.DailyLogs, key string) DayTotals {
	entries := logs[key]
	d := DayTotals{Date: key, Entries: len(entries)}
	for _, e := range entries {
		switch e.Type {
		case domain.EntryWater:
			d.Water += e.Value.Float()
		case domain.EntryExercise:
			d.Exercise += e.Value.Float()
		case domain.EntrySleep:
			d.Sleep = e.Value.Float()
		case domain.EntryMeal:
			d.Meals++
		}
	}
	d.Weight = lastWeightOnOrBefore(logs, key)
	return d
}

// LastWeight returns the most recent weight reading across all days.
func LastWeight(logs domain.DailyLogs) *WeightSample {
	return lastWeightOnOrBefore(logs, "9999-12-31")
}

func lastWeightOnOrBefore(logs domain.DailyLogs, key string) *WeightSample {
	dates := sortedDates(logs)
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i] > key {
			continue
		}
		entries := logs[dates[i]]
		for j := len(entries) - 1; j >= 0; j-- {
			if entries[j].Type == domain.EntryWeight {
				return &WeightSample{Date: dates[i], Value: entries[j].Value.Float()}
			}
		}
	}
	return nil
}

// Streak counts consecutive days with at least one entry, ending today. If
// today has nothing logged yet the count ends yesterday instead.
func Streak(logs domain.DailyLogs, today time.Time) int {
	day := noon(today)
	if len(logs[LocalDateKey(day)]) == 0 {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for streak < maxStreak && len(logs[LocalDateKey(day)]) > 0 {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// Range is an inclusive span of local calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// WeekRange is the Sunday-to-Saturday week containing now.
func WeekRange(now time.Time) Range {
	start := midnight(now).AddDate(0, 0, -int(now.Weekday()))
	return Range{Start: start, End: start.AddDate(0, 0, 6)}
}

// MonthRange is the calendar month containing now.
func MonthRange(now time.Time) Range {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Range{Start: start, End: start.AddDate(0, 1, -1)}
}

// RangeStats aggregates a span of days. Unlike DayTotals, sleep is summed.
// Weights holds the first reading of each day that has one.
type RangeStats struct {
	Water      float64        `json:"water"`
	Sleep      float64        `json:"sleep"`
	Exercise   float64        `json:"exercise"`
	Meals      int            `json:"meals"`
	DaysLogged int            `json:"daysLogged"`
	Weights    []WeightSample `json:"weights"`
}

// Stats aggregates every day in r.
func Stats(logs domain.DailyLogs, r Range) RangeStats {
	s := RangeStats{Weights: []WeightSample{}}
	last := LocalDateKey(r.End)
	for day := noon(r.Start); LocalDateKey(day) <= last; day = day.AddDate(0, 0, 1) {
		key := LocalDateKey(day)
		entries := logs[key]
		if len(entries) == 0 {
			continue
		}
		s.DaysLogged++
		weighed := false
		for _, e := range entries {
			switch e.Type {
			case domain.EntryWater:
				s.Water += e.Value.Float()
			case domain.EntrySleep:
				s.Sleep += e.Value.Float()
			case domain.EntryExercise:
				s.Exercise += e.Value.Float()
			case domain.EntryMeal:
				s.Meals++
			case domain.EntryWeight:
				if !weighed {
					s.Weights = append(s.Weights, WeightSample{Date: key, Value: e.Value.Float()})
					weighed = true
				}
			}
		}
	}
	return s
}

// ChartPoint is one day of the weekly chart.
type ChartPoint struct {
	Label    string  `json:"label"`
	Date     string  `json:"date"`
	Water    float64 `json:"water"`
	Sleep    float64 `json:"sleep"`
	Exercise float64 `json:"exercise"`
	Meals    int     `json:"meals"`
}

// WeeklyChart returns the seven days ending today, oldest first.
func WeeklyChart(logs domain.DailyLogs, today time.Time) []ChartPoint {
	points := make([]ChartPoint, 0, 7)
	base := noon(today)
	for i := 6; i >= 0; i-- {
		day := base.AddDate(0, 0, -i)
		t := Totals(logs, LocalDateKey(day))
		points = append(points, ChartPoint{
			Label:    day.Format("Mon"),
			Date:     t.Date,
			Water:    t.Water,
			Sleep:    t.Sleep,
			Exercise: t.Exercise,
			Meals:    t.Meals,
		})
	}
	return points
}

// WeightPoint is one sample of the weight trend.
type WeightPoint struct {
	Label  string  `json:"label"`
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Goal   float64 `json:"goal"`
}

// WeightTrend returns the first reading of each day that has one, limited to
// the last n days with readings.
func WeightTrend(logs domain.DailyLogs, goal float64, n int) []WeightPoint {
	var points []WeightPoint
	for _, key := range sortedDates(logs) {
		for _, e := range logs[key] {
			if e.Type != domain.EntryWeight {
				continue
			}
			label := key
			if d, err := ParseDateKey(key, time.Local); err == nil {
				label = d.Format("Jan 2")
			}
			points = append(points, WeightPoint{Label: label, Date: key, Weight: e.Value.Float(), Goal: goal})
			break
		}
	}
	if n > 0 && len(points) > n {
		points = points[len(points)-n:]
	}
	return points
}

// ApplyGoalProgress returns a copy of goals where every auto-tracked goal has
// progress, completion and description derived from totals. The goal's own
// target wins over the dataset target; with neither, progress stays 0.
func ApplyGoalProgress(goals []domain.Goal, totals DayTotals, targets domain.Targets) []domain.Goal {
	out := make([]domain.Goal, len(goals))
	for i, g := range goals {
		out[i] = g
		if !g.AutoTracked || g.TrackingType == "" {
			continue
		}

		target := targets.For(g.TrackingType)
		if g.Target != nil && g.Target.Value > 0 {
			target = g.Target.Value
		}
		current := totals.Current(g.TrackingType)

		progress := 0
		if target > 0 {
			progress = int(math.Min(math.Round(current/target*100), 100))
		}
		out[i].Progress = progress
		out[i].Completed = progress >= 100
		out[i].Description = formatNumber(current) + "/" + formatNumber(target) + " " + g.TrackingType.ProgressUnit()
	}
	return out
}

// HealthScore averages the percentage of target reached for each enabled
// daily metric, each capped at 100. Weight never counts.
func HealthScore(totals DayTotals, targets domain.Targets, enabled domain.Metrics) int {
	var total float64
	count := 0
	for _, t := range []domain.EntryType{domain.EntryWater, domain.EntrySleep, domain.EntryExercise, domain.EntryMeal} {
		if !enabled.Enabled(t) {
			continue
		}
		count++
		if target := targets.For(t); target > 0 {
			total += math.Min(totals.Current(t)/target*100, 100)
		}
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(total / float64(count)))
}

// Insight is a short observation about today.
type Insight struct {
	Kind string `json:"kind"` // positive, neutral, warning
	Text string `json:"text"`
}

// ProductivityInsight picks the single most relevant observation for today,
// or nil when nothing stands out.
func ProductivityInsight(totals DayTotals, targets domain.Targets) *Insight {
	switch {
	case totals.Sleep >= 8:
		return &Insight{Kind: "positive", Text: "Well-rested! You should have great focus and energy today."}
	case totals.Sleep >= 7:
		return &Insight{Kind: "neutral", Text: "Good sleep. You're set for a productive day."}
	case totals.Sleep > 0 && totals.Sleep < 6:
		return &Insight{Kind: "warning", Text: "Light sleep night. Consider easier tasks and extra breaks today."}
	case totals.Exercise >= 30:
		return &Insight{Kind: "positive", Text: "Great workout! Exercise boosts cognitive function and mood."}
	case targets.Water > 0 && totals.Water >= targets.Water:
		return &Insight{Kind: "positive", Text: "Hydration goal met! This helps maintain concentration."}
	}
	return nil
}

// MigrateGoals turns legacy goals whose titles mention a tracked metric into
// auto-tracked goals. It reports whether anything changed.
func MigrateGoals(goals []domain.Goal) ([]domain.Goal, bool) {
	out := make([]domain.Goal, len(goals))
	changed := false
	for i, g := range goals {
		out[i] = g
		if g.AutoTracked {
			continue
		}
		typ, target, ok := trackingFromTitle(g.Title)
		if !ok {
			continue
		}
		out[i].AutoTracked = true
		out[i].TrackingType = typ
		out[i].Target = domain.NumericTarget(target)
		changed = true
	}
	return out, changed
}

func sortedDates(logs domain.DailyLogs) []string {
	dates := make([]string, 0, len(logs))
	for k := range logs {
		dates = append(dates, k)
	}
	sort.Strings(dates)
	return dates
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// noon is used for day stepping so DST shifts never skip or repeat a date.
func noon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
