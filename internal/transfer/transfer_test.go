package transfer

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/myassistant/internal/domain"
)

var now = time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC)

func sampleLogs() domain.DailyLogs {
	return domain.DailyLogs{
		"2025-03-04": {
			{Type: domain.EntrySleep, Value: domain.Number(7.5), Unit: "hours", Timestamp: "2025-03-04T07:00:00.000Z"},
			{Type: domain.EntryWater, Value: domain.Number(2), Unit: "glasses", Notes: "with lemon, cold", Timestamp: "2025-03-04T06:00:00.000Z"},
		},
		"2025-03-05": {
			{Type: domain.EntryMeal, Value: domain.Text(`eggs, "sunny" side`), Unit: "meal", Timestamp: "2025-03-05T08:00:00.000Z"},
			{Type: domain.EntryWeight, Value: domain.Number(160.4), Unit: "lbs", Notes: "line1\nline2", Timestamp: "2025-03-05T08:05:00.000Z"},
		},
	}
}

type triple struct {
	date, typ, value string
}

func triples(logs domain.DailyLogs) []triple {
	var out []triple
	for date, entries := range logs {
		for _, e := range entries {
			out = append(out, triple{date, string(e.Type), e.Value.String()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].date != out[j].date {
			return out[i].date < out[j].date
		}
		return out[i].typ < out[j].typ
	})
	return out
}

func TestExportCSV_OrderingAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sampleLogs()))

	out := buf.String()
	lines := strings.SplitN(out, "\n", 3)
	assert.Equal(t, "Date,Type,Value,Unit,Notes,Timestamp", lines[0])
	assert.Equal(t, `2025-03-04,water,2,glasses,"with lemon, cold",2025-03-04T06:00:00.000Z`, lines[1])
	assert.Contains(t, out, `"eggs, ""sunny"" side"`)
	assert.Contains(t, out, "\"line1\nline2\"")
	assert.Less(t, strings.Index(out, "2025-03-04,sleep"), strings.Index(out, "2025-03-05,meal"))
}

func TestCSV_RoundTripThroughMerge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sampleLogs()))

	imp, err := ParseCSV(&buf, now)
	require.NoError(t, err)

	empty := domain.HealthDataset{DailyLogs: domain.DailyLogs{}}
	got := Apply(empty, imp, ModeMerge)
	assert.Equal(t, triples(sampleLogs()), triples(got.DailyLogs))

	meal := got.DailyLogs["2025-03-05"][0]
	assert.True(t, meal.Value.IsText())
	assert.Equal(t, "line1\nline2", got.DailyLogs["2025-03-05"][1].Notes)
}

func TestMerge_Idempotent(t *testing.T) {
	var buf bytes.Buffer
	ds := domain.DefaultHealth()
	ds.DailyLogs = sampleLogs()
	require.NoError(t, ExportJSON(&buf, ds, now))

	imp, err := ParseJSON(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	start := domain.DefaultHealth()
	once := Apply(start, imp, ModeMerge)
	twice := Apply(once, imp, ModeMerge)

	assert.Equal(t, once.DailyLogs, twice.DailyLogs)
	assert.Len(t, twice.Goals, 3)
}

func TestMerge_DedupesByTimestampAndGoalID(t *testing.T) {
	ds := domain.HealthDataset{
		Goals:     []domain.Goal{{ID: 1, Title: "Existing"}},
		DailyLogs: domain.DailyLogs{"2025-03-05": {{Type: domain.EntryWater, Value: domain.Number(1), Timestamp: "t1"}}},
	}
	imp := Snapshot{
		Goals: []domain.Goal{{ID: 1, Title: "Imported duplicate"}, {ID: 2, Title: "New"}},
		DailyLogs: domain.DailyLogs{
			"2025-03-05": {
				{Type: domain.EntryWater, Value: domain.Number(9), Timestamp: "t1"},
				{Type: domain.EntryWater, Value: domain.Number(2), Timestamp: "t2"},
			},
			"2025-03-06": {{Type: domain.EntrySleep, Value: domain.Number(8), Timestamp: "t3"}},
		},
	}

	got := Apply(ds, imp, ModeMerge)
	require.Len(t, got.DailyLogs["2025-03-05"], 2)
	assert.Equal(t, 1.0, got.DailyLogs["2025-03-05"][0].Value.Float())
	assert.Len(t, got.DailyLogs["2025-03-06"], 1)
	require.Len(t, got.Goals, 2)
	assert.Equal(t, "Existing", got.Goals[0].Title)

	assert.Len(t, ds.DailyLogs["2025-03-05"], 1, "input dataset must not change")
}

func TestParseCSV_MissingTimestampMergeKeepsAllRows(t *testing.T) {
	const csv = "Date,Type,Value\n2025-03-05,water,2\n2025-03-05,water,3\n2025-03-05,meal,Salad\n"

	imp, err := ParseCSV(strings.NewReader(csv), now)
	require.NoError(t, err)
	require.Len(t, imp.DailyLogs["2025-03-05"], 3)

	empty := domain.HealthDataset{DailyLogs: domain.DailyLogs{}}
	got := Apply(empty, imp, ModeMerge)
	assert.Len(t, got.DailyLogs["2025-03-05"], 3)

	existing := domain.HealthDataset{DailyLogs: domain.DailyLogs{
		"2025-03-05": {{Type: domain.EntrySleep, Value: domain.Number(7), Timestamp: "2025-03-05T06:00:00.000Z"}},
	}}
	got = Apply(existing, imp, ModeMerge)
	require.Len(t, got.DailyLogs["2025-03-05"], 4)
	assert.Equal(t, domain.EntrySleep, got.DailyLogs["2025-03-05"][0].Type)
	assert.Len(t, existing.DailyLogs["2025-03-05"], 1)
}

func TestReplace_OverwritesAndKeepsMissingParts(t *testing.T) {
	ds := domain.DefaultHealth()
	ds.DailyLogs = sampleLogs()

	imp := Snapshot{DailyLogs: domain.DailyLogs{"2025-01-01": {{Type: domain.EntryWater, Value: domain.Number(3), Timestamp: "x"}}}}
	got := Apply(ds, imp, ModeReplace)
	assert.Equal(t, []string{"2025-01-01"}, sortedDates(got.DailyLogs))
	assert.Len(t, got.Goals, 3, "goals kept when import has none")
	assert.Equal(t, domain.DefaultTargets(), got.Targets)

	targets := domain.Targets{Water: 10}
	imp.Settings = &domain.HealthSettings{Targets: &targets}
	imp.Goals = []domain.Goal{}
	got = Apply(ds, imp, ModeReplace)
	assert.Equal(t, 10.0, got.Targets.Water)
	assert.Empty(t, got.Goals)
	assert.Equal(t, domain.DefaultMetrics(), got.EnabledMetrics)
}

func TestParseCSV_ColumnOrderAndDefaults(t *testing.T) {
	in := "value,TYPE,Date\n3,Water,2025-03-05\nabc,exercise,2025-03-05\nsalad,meal,2025-03-05\n,water,2025-03-05\n"
	imp, err := ParseCSV(strings.NewReader(in), now)
	require.NoError(t, err)

	day := imp.DailyLogs["2025-03-05"]
	require.Len(t, day, 3)
	assert.Equal(t, domain.EntryWater, day[0].Type)
	assert.Equal(t, 3.0, day[0].Value.Float())
	assert.Equal(t, "glasses", day[0].Unit)
	assert.Equal(t, "2025-03-05T14:00:00.000Z", day[0].Timestamp)
	assert.Equal(t, 0.0, day[1].Value.Float())
	assert.False(t, day[1].Value.IsText())
	assert.Equal(t, "minutes", day[1].Unit)
	assert.Equal(t, "salad", day[2].Value.String())
	assert.Equal(t, "", day[2].Unit)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""), now)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "empty")

	_, err = ParseCSV(strings.NewReader("Date,Type,Value\n"), now)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = ParseCSV(strings.NewReader("Date,Kind,Value\n2025-01-01,water,1\n"), now)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "Date, Type, and Value")
}

func TestParseJSON_RequiresDailyLogsObject(t *testing.T) {
	for _, in := range []string{`{"goals":[]}`, `{"dailyLogs":[]}`, `[1,2]`, `not json`} {
		_, err := ParseJSON(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrInvalidFormat, in)
	}

	imp, err := ParseJSON(strings.NewReader(`{"dailyLogs":{},"settings":{"targets":{"water":9}}}`))
	require.NoError(t, err)
	assert.Nil(t, imp.Goals)
	assert.True(t, imp.Preview().HasSettings)
}

func TestExportJSON_Shape(t *testing.T) {
	var buf bytes.Buffer
	ds := domain.DefaultHealth()
	require.NoError(t, ExportJSON(&buf, ds, now))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc, "exportDate")
	assert.Contains(t, doc, "goals")
	assert.Contains(t, doc, "dailyLogs")
	assert.Contains(t, string(doc["settings"]), `"enabledMetrics"`)
	assert.Contains(t, buf.String(), "\n  \"goals\"")
}

func TestParse_DispatchesOnExtension(t *testing.T) {
	_, err := Parse("data.txt", strings.NewReader("x"), now)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	imp, err := Parse("Backup.JSON", strings.NewReader(`{"dailyLogs":{"2025-03-05":[]}}`), now)
	require.NoError(t, err)
	p := imp.Preview()
	assert.Equal(t, 1, p.Days)
	assert.Equal(t, "2025-03-05", p.FirstDate)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Replace")
	require.NoError(t, err)
	assert.Equal(t, ModeReplace, m)

	_, err = ParseMode("append")
	assert.Error(t, err)
}
