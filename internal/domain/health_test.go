package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_DecodesNumericAndTextValues(t *testing.T) {
	var entries []Entry
	raw := `[{"type":"water","value":2,"unit":"glasses","notes":"","timestamp":"t1"},
	         {"type":"meal","value":"oatmeal","unit":"meal","notes":"","timestamp":"t2"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))

	assert.False(t, entries[0].Value.IsText())
	assert.Equal(t, 2.0, entries[0].Value.Float())
	assert.True(t, entries[1].Value.IsText())
	assert.Equal(t, "oatmeal", entries[1].Value.String())
	assert.Equal(t, 0.0, entries[1].Value.Float())

	out, err := json.Marshal(entries[1])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"value":"oatmeal"`)
}

func TestValue_RejectsObjects(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &v))
}

func TestGoalTarget_NumberOrObject(t *testing.T) {
	var goals []Goal
	raw := `[{"id":1,"title":"Sleep","target":8,"autoTracked":true,"trackingType":"sleep"},
	         {"id":2,"title":"Read","target":{"value":12,"unit":"books","current":3}}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &goals))

	require.NotNil(t, goals[0].Target)
	assert.Equal(t, 8.0, goals[0].Target.Value)
	assert.Equal(t, "books", goals[1].Target.Unit)
	assert.Equal(t, 3.0, goals[1].Target.Current)

	out, err := json.Marshal(goals[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"target":8`)

	out, err = json.Marshal(goals[1])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"unit":"books"`)
}

func TestDailyLogs_CloneIsIndependent(t *testing.T) {
	logs := DailyLogs{"2025-01-01": {{Type: EntryWater, Value: Number(1), Timestamp: "a"}}}
	c := logs.Clone()
	c["2025-01-01"] = append(c["2025-01-01"], Entry{Type: EntryWater, Value: Number(1), Timestamp: "b"})
	c["2025-01-02"] = nil

	assert.Len(t, logs["2025-01-01"], 1)
	assert.NotContains(t, logs, "2025-01-02")
}

func TestParseEntryType(t *testing.T) {
	typ, ok := ParseEntryType(" Water ")
	assert.True(t, ok)
	assert.Equal(t, EntryWater, typ)

	_, ok = ParseEntryType("steps")
	assert.False(t, ok)
}

func TestHealthDataset_MissingSettingsFallBackToDefaults(t *testing.T) {
	var h HealthDataset
	require.NoError(t, json.Unmarshal([]byte(`{"goals":[],"targets":{"water":10}}`), &h))

	assert.Equal(t, 10.0, h.Targets.Water)
	assert.Equal(t, 30.0, h.Targets.Exercise)
	assert.Equal(t, DefaultMetrics(), h.EnabledMetrics)
	assert.NotNil(t, h.DailyLogs)
}

func TestEntryType_ParseValue(t *testing.T) {
	v, err := EntryWater.ParseValue(" 2.5 ")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Float())

	v, err = EntryMeal.ParseValue("Oatmeal")
	require.NoError(t, err)
	assert.True(t, v.IsText())

	for _, raw := range []string{"", "lots", "-1", "0"} {
		_, err := EntrySleep.ParseValue(raw)
		assert.Error(t, err, raw)
	}
}
