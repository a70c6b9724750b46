package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/myassistant/internal/appstore"
	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/health"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *appstore.Store
	Now   func() time.Time // defaults to time.Now
}

func (d MCPDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewMCPServer creates an MCP server exposing the local store: health
// logging, goals, reminders and summaries.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"myassistant",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("myassistant: personal assistant data, including health logs, goals and reminders."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("log_health",
			mcp.WithDescription("Log a health entry for today: water (glasses), sleep (hours), exercise (minutes), meal (text) or weight (lbs)."),
			mcp.WithString("type", mcp.Description("Entry type: water, sleep, exercise, meal or weight"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Numeric amount, or a description for meals"), mcp.Required()),
			mcp.WithString("unit", mcp.Description("Unit override; defaults per type")),
			mcp.WithString("notes", mcp.Description("Optional notes")),
		),
		mcpLogHealth(deps),
	)

	s.AddTool(
		mcp.NewTool("health_summary",
			mcp.WithDescription("Today's health totals, streak, weekly and monthly stats, goal progress and score."),
		),
		mcpHealthSummary(deps),
	)

	s.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a reminder to one of the assistants."),
			mcp.WithString("text", mcp.Description("Reminder text"), mcp.Required()),
			mcp.WithString("agent", mcp.Description("personal, health, financial or learning (default personal)")),
			mcp.WithString("time", mcp.Description("Display label such as 'Tomorrow 9am'")),
			mcp.WithBoolean("urgent", mcp.Description("Mark as urgent")),
		),
		mcpAddReminder(deps),
	)

	s.AddTool(
		mcp.NewTool("add_goal",
			mcp.WithDescription("Add a goal. Health goals with a tracking type and target update from logged entries."),
			mcp.WithString("title", mcp.Description("Goal title"), mcp.Required()),
			mcp.WithString("agent", mcp.Description("personal, health, financial or learning (default personal)")),
			mcp.WithString("description", mcp.Description("Optional description")),
			mcp.WithString("tracking_type", mcp.Description("Health metric to track: water, sleep, exercise or weight")),
			mcp.WithNumber("target", mcp.Description("Daily target for the tracked metric")),
		),
		mcpAddGoal(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"User Profile",
			mcp.WithResourceDescription("Current user profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"health://today",
			"Today's Health",
			mcp.WithResourceDescription("Today's health entries and totals"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHealthToday(deps),
	)

	return s
}

func mcpLogHealth(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typ, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}
		et, ok := domain.ParseEntryType(typ)
		if !ok {
			return mcpError(fmt.Sprintf("unknown entry type %q", typ)), nil
		}
		value, err := et.ParseValue(req.GetString("value", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		entry := domain.Entry{
			Type:  et,
			Value: value,
			Unit:  req.GetString("unit", ""),
			Notes: req.GetString("notes", ""),
		}
		now := deps.now()
		ds, err := deps.Store.LogHealthEntry(entry, now)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save entry: %v", err)), nil
		}

		totals := health.Totals(ds.DailyLogs, health.LocalDateKey(now))
		return mcpText(fmt.Sprintf("Logged %s %s (today: %g)", value, firstUnit(entry), totals.Current(et))), nil
	}
}

func firstUnit(e domain.Entry) string {
	if e.Unit != "" {
		return e.Unit
	}
	return e.Type.DefaultUnit()
}

func mcpHealthSummary(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sum := health.Summarize(deps.Store.Health(), deps.now())
		b, err := json.Marshal(sum)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddReminder(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcpError("text is required"), nil
		}
		agent, ok := domain.ParseAgent(req.GetString("agent", string(domain.AgentPersonal)))
		if !ok {
			return mcpError("agent must be personal, health, financial or learning"), nil
		}

		r, err := deps.Store.AddReminder(agent, domain.Reminder{
			Text:   text,
			Time:   req.GetString("time", "Today"),
			Urgent: req.GetBool("urgent", false),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save reminder: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Added reminder %d for %s", r.ID, agent)), nil
	}
}

func mcpAddGoal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil || strings.TrimSpace(title) == "" {
			return mcpError("title is required"), nil
		}
		agent, ok := domain.ParseAgent(req.GetString("agent", string(domain.AgentPersonal)))
		if !ok {
			return mcpError("agent must be personal, health, financial or learning"), nil
		}

		g := domain.Goal{Title: title, Description: req.GetString("description", "")}
		if tt := req.GetString("tracking_type", ""); tt != "" {
			et, ok := domain.ParseEntryType(tt)
			if !ok || et.IsText() {
				return mcpError(fmt.Sprintf("cannot track %q", tt)), nil
			}
			if agent != domain.AgentHealth {
				return mcpError("only health goals can be auto-tracked"), nil
			}
			g.AutoTracked = true
			g.TrackingType = et
			if target := req.GetFloat("target", 0); target > 0 {
				g.Target = domain.NumericTarget(target)
			}
		}

		g, err = deps.Store.AddGoal(agent, g)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save goal: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Added goal %d for %s", g.ID, agent)), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(req.Params.URI, deps.Store.Profile())
	}
}

func mcpResourceHealthToday(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		now := deps.now()
		key := health.LocalDateKey(now)
		ds := deps.Store.Health()
		entries := ds.DailyLogs[key]
		if entries == nil {
			entries = []domain.Entry{}
		}
		return jsonResource(req.Params.URI, struct {
			Date    string           `json:"date"`
			Entries []domain.Entry   `json:"entries"`
			Totals  health.DayTotals `json:"totals"`
		}{key, entries, health.Totals(ds.DailyLogs, key)})
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
