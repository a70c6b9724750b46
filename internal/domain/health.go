package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EntryType is the kind of a health log entry.
type EntryType string

const (
	EntryWater    EntryType = "water"
	EntrySleep    EntryType = "sleep"
	EntryExercise EntryType = "exercise"
	EntryMeal     EntryType = "meal"
	EntryWeight   EntryType = "weight"
)

// EntryTypes lists every entry type in display order.
var EntryTypes = []EntryType{EntryWater, EntrySleep, EntryExercise, EntryMeal, EntryWeight}

// ParseEntryType is case-insensitive.
func ParseEntryType(s string) (EntryType, bool) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range EntryTypes {
		if t == known {
			return t, true
		}
	}
	return t, false
}

// ParseValue reads user input for an entry of type t. Meals keep the text;
// every other type needs a positive number.
func (t EntryType) ParseValue(raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Value{}, fmt.Errorf("value is required")
	}
	if t.IsText() {
		return Text(raw), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return Value{}, fmt.Errorf("%s needs a positive number, got %q", t, raw)
	}
	return Number(f), nil
}

// IsText reports whether entries of this type carry free text instead of a number.
func (t EntryType) IsText() bool { return t == EntryMeal }

// DefaultUnit is the unit recorded when an entry does not specify one.
func (t EntryType) DefaultUnit() string {
	switch t {
	case EntryWater:
		return "glasses"
	case EntrySleep:
		return "hours"
	case EntryExercise:
		return "minutes"
	case EntryWeight:
		return "lbs"
	}
	return ""
}

// ProgressUnit labels auto-tracked goal descriptions ("4/8 glasses").
func (t EntryType) ProgressUnit() string {
	switch t {
	case EntryMeal:
		return "meals"
	case EntryWater:
		return "glasses"
	case EntrySleep:
		return "hours"
	}
	return "minutes"
}

// Value is either a number or free text. It serializes as a bare JSON
// number or string.
type Value struct {
	num    float64
	text   string
	isText bool
}

func Number(f float64) Value { return Value{num: f} }

func Text(s string) Value { return Value{text: s, isText: true} }

func (v Value) IsText() bool { return v.isText }

// Float returns the numeric value. Text that parses as a number is
// converted; anything else is 0.
func (v Value) Float() float64 {
	if !v.isText {
		return v.num
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	if err != nil {
		return 0
	}
	return f
}

func (v Value) String() string {
	if v.isText {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isText {
		return json.Marshal(v.text)
	}
	return json.Marshal(v.num)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*v = Number(0)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("health value must be a number or string: %w", err)
	}
	*v = Number(f)
	return nil
}

// Entry is one health log record. Timestamp is an ISO-8601 string and acts
// as the entry's identity during merge imports.
type Entry struct {
	Type      EntryType `json:"type"`
	Value     Value     `json:"value"`
	Unit      string    `json:"unit"`
	Notes     string    `json:"notes"`
	Timestamp string    `json:"timestamp"`
}

// DailyLogs maps a local date key (YYYY-MM-DD) to that day's entries in
// insertion order.
type DailyLogs map[string][]Entry

// Clone returns a copy whose day slices can be appended to without
// affecting the receiver.
func (l DailyLogs) Clone() DailyLogs {
	out := make(DailyLogs, len(l))
	for k, v := range l {
		out[k] = append([]Entry(nil), v...)
	}
	return out
}

// Target is a goal target. Auto-tracked health goals store a bare number;
// custom goals store {value, unit, current}.
type Target struct {
	Value   float64 `json:"value"`
	Unit    string  `json:"unit,omitempty"`
	Current float64 `json:"current,omitempty"`
}

func NumericTarget(v float64) *Target { return &Target{Value: v} }

func (t Target) MarshalJSON() ([]byte, error) {
	if t.Unit == "" && t.Current == 0 {
		return json.Marshal(t.Value)
	}
	type plain Target
	return json.Marshal(plain(t))
}

func (t *Target) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain Target
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*t = Target(p)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("goal target must be a number or object: %w", err)
	}
	*t = Target{Value: f}
	return nil
}

// Metrics flags which entry types count toward the daily health score.
type Metrics struct {
	Water    bool `json:"water"`
	Sleep    bool `json:"sleep"`
	Exercise bool `json:"exercise"`
	Meal     bool `json:"meal"`
	Weight   bool `json:"weight"`
}

func (m Metrics) Enabled(t EntryType) bool {
	switch t {
	case EntryWater:
		return m.Water
	case EntrySleep:
		return m.Sleep
	case EntryExercise:
		return m.Exercise
	case EntryMeal:
		return m.Meal
	case EntryWeight:
		return m.Weight
	}
	return false
}

// Set returns a copy with t toggled to on.
func (m Metrics) Set(t EntryType, on bool) Metrics {
	switch t {
	case EntryWater:
		m.Water = on
	case EntrySleep:
		m.Sleep = on
	case EntryExercise:
		m.Exercise = on
	case EntryMeal:
		m.Meal = on
	case EntryWeight:
		m.Weight = on
	}
	return m
}

// Targets holds the daily target per entry type; Weight is a goal weight.
type Targets struct {
	Water    float64 `json:"water"`
	Sleep    float64 `json:"sleep"`
	Exercise float64 `json:"exercise"`
	Meal     float64 `json:"meal"`
	Weight   float64 `json:"weight"`
}

func (t Targets) For(e EntryType) float64 {
	switch e {
	case EntryWater:
		return t.Water
	case EntrySleep:
		return t.Sleep
	case EntryExercise:
		return t.Exercise
	case EntryMeal:
		return t.Meal
	case EntryWeight:
		return t.Weight
	}
	return 0
}

// Set returns a copy with the target for e replaced.
func (t Targets) Set(e EntryType, v float64) Targets {
	switch e {
	case EntryWater:
		t.Water = v
	case EntrySleep:
		t.Sleep = v
	case EntryExercise:
		t.Exercise = v
	case EntryMeal:
		t.Meal = v
	case EntryWeight:
		t.Weight = v
	}
	return t
}

// HealthSettings is the settings block shared by the dataset and exports.
type HealthSettings struct {
	EnabledMetrics *Metrics `json:"enabledMetrics,omitempty"`
	Targets        *Targets `json:"targets,omitempty"`
}
