package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/myassistant/internal/appstore"
	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/health"
	"github.com/kalambet/myassistant/internal/storage"
)

var mcpNow = time.Date(2025, 3, 5, 14, 30, 0, 0, time.Local)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *appstore.Store) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := appstore.NewWithClock(db, fixedClock{mcpNow})
	return MCPDeps{Store: store, Now: func() time.Time { return mcpNow }}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_LogHealth(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpLogHealth(deps)

	for _, v := range []string{"3", "2"} {
		result, err := handler(context.Background(), makeCallToolRequest("log_health", map[string]interface{}{
			"type":  "water",
			"value": v,
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected error: %s", toolText(t, result))
		}
	}

	key := health.LocalDateKey(mcpNow)
	entries := store.Health().DailyLogs[key]
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries on %s, got %d", key, len(entries))
	}
	if entries[0].Unit != "glasses" {
		t.Errorf("unit = %q, want default glasses", entries[0].Unit)
	}
	if got := health.Totals(store.Health().DailyLogs, key).Water; got != 5 {
		t.Errorf("water total = %v, want 5", got)
	}
}

func TestMCPTool_LogHealth_Meal(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	result, _ := mcpLogHealth(deps)(context.Background(), makeCallToolRequest("log_health", map[string]interface{}{
		"type":  "meal",
		"value": "Oatmeal with berries",
	}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	entries := store.Health().DailyLogs[health.LocalDateKey(mcpNow)]
	if len(entries) != 1 || !entries[0].Value.IsText() || entries[0].Value.String() != "Oatmeal with berries" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestMCPTool_LogHealth_Invalid(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpLogHealth(deps)

	for _, args := range []map[string]interface{}{
		{"type": "steps", "value": "100"},
		{"type": "water", "value": "lots"},
		{"type": "sleep", "value": "-1"},
		{"type": "water"},
	} {
		result, err := handler(context.Background(), makeCallToolRequest("log_health", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected tool error", args)
		}
	}
	if n := len(store.Health().DailyLogs); n != 0 {
		t.Errorf("expected no logs, got %d days", n)
	}
}

func TestMCPTool_HealthSummary(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	if _, err := store.LogHealthEntry(domain.Entry{Type: domain.EntryExercise, Value: domain.Number(30)}, mcpNow); err != nil {
		t.Fatal(err)
	}

	result, err := mcpHealthSummary(deps)(context.Background(), makeCallToolRequest("health_summary", nil))
	if err != nil || result.IsError {
		t.Fatalf("unexpected failure: %v", err)
	}

	var sum health.Summary
	if err := json.Unmarshal([]byte(toolText(t, result)), &sum); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if sum.Today != health.LocalDateKey(mcpNow) {
		t.Errorf("today = %q", sum.Today)
	}
	if sum.Totals.Exercise != 30 || sum.Streak != 1 {
		t.Errorf("totals = %+v, streak = %d", sum.Totals, sum.Streak)
	}
}

func TestMCPTool_AddReminder(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	result, _ := mcpAddReminder(deps)(context.Background(), makeCallToolRequest("add_reminder", map[string]interface{}{
		"text":   "Call the dentist",
		"agent":  "health",
		"urgent": true,
	}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	reminders, err := store.Reminders(domain.AgentHealth)
	if err != nil {
		t.Fatal(err)
	}
	if len(reminders) == 0 || reminders[0].Text != "Call the dentist" || !reminders[0].Urgent {
		t.Fatalf("reminders = %+v", reminders)
	}
	if reminders[0].ID != mcpNow.UnixMilli() {
		t.Errorf("ID = %d, want clock millis", reminders[0].ID)
	}
}

func TestMCPTool_AddReminder_BadAgent(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	result, _ := mcpAddReminder(deps)(context.Background(), makeCallToolRequest("add_reminder", map[string]interface{}{
		"text":  "x",
		"agent": "butler",
	}))
	if !result.IsError {
		t.Fatal("expected tool error for unknown agent")
	}
}

func TestMCPTool_AddGoal_AutoTracked(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	result, _ := mcpAddGoal(deps)(context.Background(), makeCallToolRequest("add_goal", map[string]interface{}{
		"title":         "Walk daily",
		"agent":         "health",
		"tracking_type": "exercise",
		"target":        45,
	}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	goals, _ := store.Goals(domain.AgentHealth)
	g := goals[0]
	if g.Title != "Walk daily" || !g.AutoTracked || g.TrackingType != domain.EntryExercise {
		t.Fatalf("goal = %+v", g)
	}
	if g.Target == nil || g.Target.Value != 45 {
		t.Errorf("target = %+v", g.Target)
	}
}

func TestMCPTool_AddGoal_TrackingOnlyForHealth(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	result, _ := mcpAddGoal(deps)(context.Background(), makeCallToolRequest("add_goal", map[string]interface{}{
		"title":         "Save money",
		"agent":         "financial",
		"tracking_type": "water",
	}))
	if !result.IsError {
		t.Fatal("expected tool error")
	}
}

func TestMCPResource_Profile(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	if _, err := store.UpdateProfile(func(p domain.Profile) domain.Profile {
		p.Name = "Ann"
		return p
	}); err != nil {
		t.Fatal(err)
	}

	contents, err := mcpResourceProfile(deps)(context.Background(), makeReadResourceRequest("user://profile"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.MIMEType != "application/json" || !strings.Contains(tc.Text, `"name":"Ann"`) {
		t.Errorf("contents = %+v", tc)
	}
}

func TestMCPResource_HealthToday(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	store.LogHealthEntry(domain.Entry{Type: domain.EntrySleep, Value: domain.Number(7.5)}, mcpNow)

	contents, err := mcpResourceHealthToday(deps)(context.Background(), makeReadResourceRequest("health://today"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Date    string           `json:"date"`
		Entries []domain.Entry   `json:"entries"`
		Totals  health.DayTotals `json:"totals"`
	}
	if err := json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entries) != 1 || body.Totals.Sleep != 7.5 {
		t.Errorf("body = %+v", body)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	logHandler := mcpLogHealth(deps)
	summaryHandler := mcpHealthSummary(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := logHandler(context.Background(), makeCallToolRequest("log_health", map[string]interface{}{
				"type":  "water",
				"value": "1",
			}))
			if err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := summaryHandler(context.Background(), makeCallToolRequest("health_summary", nil)); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
	if got := health.Totals(store.Health().DailyLogs, health.LocalDateKey(mcpNow)).Water; got != 5 {
		t.Errorf("water = %v, want 5 after concurrent logging", got)
	}
}

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if NewMCPServer(deps) == nil {
		t.Fatal("expected server")
	}
}
