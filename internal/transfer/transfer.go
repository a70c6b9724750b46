// Package transfer exports health logs to CSV or JSON and imports them back
// with merge or replace reconciliation. Parsing always finishes before
// anything is applied, so a malformed file never causes a partial import.
package transfer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kalambet/myassistant/internal/domain"
)

// ErrInvalidFormat wraps every parse failure.
var ErrInvalidFormat = errors.New("invalid import format")

// Mode selects how an import is reconciled with existing data.
type Mode string

const (
	// ModeMerge adds entries whose timestamps are new for their day and goals
	// whose IDs are new. Applying the same import twice is a no-op the second
	// time.
	ModeMerge Mode = "merge"
	// ModeReplace overwrites logs, and goals and settings when the import
	// carries them. It is destructive and not idempotent-safe.
	ModeReplace Mode = "replace"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	}
	return "", fmt.Errorf("unknown import mode %q (want merge or replace)", s)
}

// Snapshot is the JSON export document.
type Snapshot struct {
	ExportDate string                 `json:"exportDate,omitempty"`
	Goals      []domain.Goal          `json:"goals"`
	DailyLogs  domain.DailyLogs       `json:"dailyLogs"`
	Settings   *domain.HealthSettings `json:"settings,omitempty"`
}

var csvHeader = []string{"Date", "Type", "Value", "Unit", "Notes", "Timestamp"}

// ExportCSV writes one row per entry, dates ascending and entries in
// timestamp order within a day.
func ExportCSV(w io.Writer, logs domain.DailyLogs) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, date := range sortedDates(logs) {
		entries := append([]domain.Entry(nil), logs[date]...)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp < entries[j].Timestamp
		})
		for _, e := range entries {
			row := []string{date, string(e.Type), e.Value.String(), e.Unit, e.Notes, e.Timestamp}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes the full health snapshot, indented.
func ExportJSON(w io.Writer, ds domain.HealthDataset, now time.Time) error {
	metrics, targets := ds.EnabledMetrics, ds.Targets
	snap := Snapshot{
		ExportDate: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Goals:      ds.Goals,
		DailyLogs:  ds.DailyLogs,
		Settings:   &domain.HealthSettings{EnabledMetrics: &metrics, Targets: &targets},
	}
	if snap.Goals == nil {
		snap.Goals = []domain.Goal{}
	}
	if snap.DailyLogs == nil {
		snap.DailyLogs = domain.DailyLogs{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ExportFilename is the suggested name for an export made at now.
func ExportFilename(format string, now time.Time) string {
	return fmt.Sprintf("health-data-%s.%s", now.UTC().Format("2006-01-02"), format)
}

// Parse dispatches on the file extension of name.
func Parse(name string, r io.Reader, now time.Time) (Snapshot, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ParseJSON(r)
	case ".csv":
		return ParseCSV(r, now)
	}
	return Snapshot{}, fmt.Errorf("%w: please select a JSON or CSV file", ErrInvalidFormat)
}

// ParseJSON accepts a snapshot document. A dailyLogs object is required.
func ParseJSON(r io.Reader) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	logs := strings.TrimSpace(string(raw["dailyLogs"]))
	if !strings.HasPrefix(logs, "{") {
		return Snapshot{}, fmt.Errorf("%w: this doesn't appear to be a valid health data export", ErrInvalidFormat)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw["dailyLogs"], &snap.DailyLogs); err != nil {
		return Snapshot{}, fmt.Errorf("%w: dailyLogs: %v", ErrInvalidFormat, err)
	}
	if g, ok := raw["goals"]; ok {
		if err := json.Unmarshal(g, &snap.Goals); err != nil {
			return Snapshot{}, fmt.Errorf("%w: goals: %v", ErrInvalidFormat, err)
		}
	}
	if st, ok := raw["settings"]; ok {
		if err := json.Unmarshal(st, &snap.Settings); err != nil {
			return Snapshot{}, fmt.Errorf("%w: settings: %v", ErrInvalidFormat, err)
		}
	}
	if d, ok := raw["exportDate"]; ok {
		_ = json.Unmarshal(d, &snap.ExportDate)
	}
	return snap, nil
}

// ParseCSV reads rows with at least Date, Type and Value columns in any
// order. Rows missing one of those are skipped. Entries without a timestamp
// are stamped with now.
func ParseCSV(r io.Reader, now time.Time) (Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	records = dropBlank(records)
	if len(records) < 2 {
		return Snapshot{}, fmt.Errorf("%w: CSV file is empty or has no data rows", ErrInvalidFormat)
	}

	col := map[string]int{}
	for i, h := range records[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := col[name]; !dup {
			col[name] = i
		}
	}
	for _, required := range []string{"date", "type", "value"} {
		if _, ok := col[required]; !ok {
			return Snapshot{}, fmt.Errorf("%w: CSV must have Date, Type, and Value columns", ErrInvalidFormat)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z")
	logs := domain.DailyLogs{}
	for _, row := range records[1:] {
		date := field(row, "date")
		typ := domain.EntryType(strings.ToLower(field(row, "type")))
		value := field(row, "value")
		if date == "" || typ == "" || value == "" {
			continue
		}

		e := domain.Entry{
			Type:      typ,
			Unit:      field(row, "unit"),
			Notes:     field(row, "notes"),
			Timestamp: field(row, "timestamp"),
		}
		if typ.IsText() {
			e.Value = domain.Text(value)
		} else {
			e.Value = domain.Number(domain.Text(value).Float())
		}
		if e.Unit == "" {
			e.Unit = typ.DefaultUnit()
		}
		if e.Timestamp == "" {
			e.Timestamp = stamp
		}
		logs[date] = append(logs[date], e)
	}
	return Snapshot{Goals: []domain.Goal{}, DailyLogs: logs}, nil
}

// Preview describes an import before it is applied.
type Preview struct {
	Days        int    `json:"totalDays"`
	Entries     int    `json:"totalEntries"`
	FirstDate   string `json:"firstDate,omitempty"`
	LastDate    string `json:"lastDate,omitempty"`
	Goals       int    `json:"goalsCount"`
	HasSettings bool   `json:"hasSettings"`
	ExportDate  string `json:"exportDate,omitempty"`
}

func (s Snapshot) Preview() Preview {
	dates := sortedDates(s.DailyLogs)
	p := Preview{
		Days:        len(dates),
		Goals:       len(s.Goals),
		HasSettings: s.Settings != nil && (s.Settings.EnabledMetrics != nil || s.Settings.Targets != nil),
		ExportDate:  s.ExportDate,
	}
	for _, d := range dates {
		p.Entries += len(s.DailyLogs[d])
	}
	if len(dates) > 0 {
		p.FirstDate, p.LastDate = dates[0], dates[len(dates)-1]
	}
	return p
}

// Apply reconciles imp into ds and returns the result. ds is not modified.
func Apply(ds domain.HealthDataset, imp Snapshot, mode Mode) domain.HealthDataset {
	out := ds
	switch mode {
	case ModeReplace:
		if imp.Goals != nil {
			out.Goals = append([]domain.Goal(nil), imp.Goals...)
		}
		out.DailyLogs = imp.DailyLogs.Clone()
		if imp.Settings != nil {
			if imp.Settings.EnabledMetrics != nil {
				out.EnabledMetrics = *imp.Settings.EnabledMetrics
			}
			if imp.Settings.Targets != nil {
				out.Targets = *imp.Settings.Targets
			}
		}
	default:
		out.DailyLogs = mergeLogs(ds.DailyLogs, imp.DailyLogs)
		out.Goals = mergeGoals(ds.Goals, imp.Goals)
	}
	return out
}

// mergeLogs adds imported entries whose timestamp is not already stored for
// that day. Imported rows are never deduped against each other, so rows
// sharing a default stamp all land.
func mergeLogs(existing, imported domain.DailyLogs) domain.DailyLogs {
	merged := existing.Clone()
	for date, entries := range imported {
		stored := make(map[string]bool, len(merged[date]))
		for _, e := range merged[date] {
			stored[e.Timestamp] = true
		}
		for _, e := range entries {
			if !stored[e.Timestamp] {
				merged[date] = append(merged[date], e)
			}
		}
	}
	return merged
}

func mergeGoals(existing, imported []domain.Goal) []domain.Goal {
	out := append([]domain.Goal(nil), existing...)
	ids := make(map[int64]bool, len(existing))
	for _, g := range existing {
		ids[g.ID] = true
	}
	for _, g := range imported {
		if ids[g.ID] {
			continue
		}
		ids[g.ID] = true
		out = append(out, g)
	}
	return out
}

func dropBlank(records [][]string) [][]string {
	out := records[:0]
	for _, r := range records {
		blank := true
		for _, f := range r {
			if strings.TrimSpace(f) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, r)
		}
	}
	return out
}

func sortedDates(logs domain.DailyLogs) []string {
	dates := make([]string, 0, len(logs))
	for k := range logs {
		dates = append(dates, k)
	}
	sort.Strings(dates)
	return dates
}
