package responder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/proxy"
)

const (
	defaultMaxContextTokens = 4000
	maxHistoryMessages      = 20
)

// Completer is the subset of proxy.Client the LLM generator uses.
type Completer interface {
	Complete(ctx context.Context, req proxy.ChatRequest) (string, error)
	Stream(ctx context.Context, req proxy.ChatRequest, onDelta func(string)) (string, error)
}

// LLM generates replies with a chat model. When OnDelta is set the reply is
// streamed and each fragment is passed to it as it arrives.
type LLM struct {
	Client           Completer
	Model            string
	MaxContextTokens int
	OnDelta          func(string)
}

func (l LLM) Generate(ctx context.Context, input string, c Context) (string, error) {
	req := proxy.ChatRequest{
		Model:    l.Model,
		Messages: l.Messages(input, c),
	}
	if l.OnDelta != nil {
		return l.Client.Stream(ctx, req, l.OnDelta)
	}
	return l.Client.Complete(ctx, req)
}

// Messages assembles the system prompt, the recent transcript and input.
func (l LLM) Messages(input string, c Context) []proxy.Message {
	budget := l.MaxContextTokens
	if budget <= 0 {
		budget = defaultMaxContextTokens
	}

	msgs := []proxy.Message{{Role: "system", Content: buildSystemPrompt(c, budget)}}

	history := c.History
	// The current input may already be recorded as the last user message.
	if n := len(history); n > 0 && history[n-1].Sender == domain.SenderUser && history[n-1].Text == input {
		history = history[:n-1]
	}
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	for _, m := range history {
		role := "assistant"
		if m.Sender == domain.SenderUser {
			role = "user"
		}
		msgs = append(msgs, proxy.Message{Role: role, Content: m.Text})
	}
	return append(msgs, proxy.Message{Role: "user", Content: input})
}

var personas = map[domain.Agent]string{
	domain.AgentPersonal:  "You are the user's personal assistant. You handle email, calendar, contacts and tasks, and you draft messages in the user's own voice.",
	domain.AgentHealth:    "You are the user's health coach. You help build habits around hydration, sleep, exercise and nutrition, using their logged data. You are encouraging and concrete, and you do not give medical diagnoses.",
	domain.AgentFinancial: "You are the user's financial advisor. You help with budgeting, savings goals and spending decisions.",
	domain.AgentLearning:  "You are the user's learning tutor. You help plan study sessions, explain concepts and track learning goals.",
}

// section is one block of the system prompt. Lower priority blocks are
// dropped first when the budget runs out.
type section struct {
	title    string
	body     string
	priority int
}

// buildSystemPrompt keeps the persona and always fits the remaining sections
// into budget tokens, highest priority first, preserving their order.
func buildSystemPrompt(c Context, budget int) string {
	persona := personas[c.Agent]
	if persona == "" {
		persona = "You are a helpful assistant."
	}
	persona += fmt.Sprintf(" It is %s. Keep replies short and plain text.", c.Now.Format("Monday, January 2, 2006, 3:04 PM"))

	candidates := contextSections(c)
	byPriority := make([]int, len(candidates))
	for i := range byPriority {
		byPriority[i] = i
	}
	sort.SliceStable(byPriority, func(a, b int) bool {
		return candidates[byPriority[a]].priority > candidates[byPriority[b]].priority
	})

	remaining := budget - EstimateTokens(persona)
	keep := make([]bool, len(candidates))
	for _, i := range byPriority {
		tokens := EstimateTokens(formatSection(candidates[i]))
		if tokens > remaining {
			continue
		}
		keep[i] = true
		remaining -= tokens
	}

	var sb strings.Builder
	sb.WriteString(persona)
	for i, s := range candidates {
		if keep[i] {
			sb.WriteString(formatSection(s))
		}
	}
	return sb.String()
}

func formatSection(s section) string {
	return fmt.Sprintf("\n\n[%s]\n%s", s.title, s.body)
}

func contextSections(c Context) []section {
	var out []section
	add := func(title string, priority int, lines []string) {
		if len(lines) > 0 {
			out = append(out, section{title: title, body: strings.Join(lines, "\n"), priority: priority})
		}
	}

	if c.Profile != "" {
		add("User Profile", 90, []string{c.Profile})
	}

	if h := c.Health; h != nil {
		t := h.Totals
		lines := []string{
			fmt.Sprintf("Water: %g/%g glasses", t.Water, c.Targets.Water),
			fmt.Sprintf("Sleep: %g/%g hours", t.Sleep, c.Targets.Sleep),
			fmt.Sprintf("Exercise: %g/%g minutes", t.Exercise, c.Targets.Exercise),
			fmt.Sprintf("Meals logged: %d", t.Meals),
			fmt.Sprintf("Logging streak: %d days, health score %d/100", h.Streak, h.Score),
		}
		if t.Weight != nil {
			lines = append(lines, fmt.Sprintf("Latest weight: %g lbs on %s", t.Weight.Value, t.Weight.Date))
		}
		add("Today's Health", 80, lines)
		add("This Week", 40, []string{fmt.Sprintf("Water %g glasses, exercise %g minutes, %d meals, %d days logged",
			h.Week.Water, h.Week.Exercise, h.Week.Meals, h.Week.DaysLogged)})
	}

	var events []string
	for _, e := range c.Events {
		events = append(events, fmt.Sprintf("- %s %s", eventTime(e, c.Now.Location()), e.Title))
	}
	add("Today's Calendar", 70, events)

	var emails []string
	for _, e := range c.Emails {
		if e.Read {
			continue
		}
		emails = append(emails, fmt.Sprintf("- from %s: %s", e.From, e.Subject))
	}
	add("Unread Email", 50, emails)

	var goals []string
	for _, g := range c.Goals {
		state := fmt.Sprintf("%d%%", g.Progress)
		if g.Completed {
			state = "done"
		}
		goals = append(goals, fmt.Sprintf("- %s (%s)", g.Title, state))
	}
	add("Goals", 60, goals)

	var reminders []string
	for _, r := range c.Reminders {
		reminders = append(reminders, fmt.Sprintf("- %s: %s", r.Time, r.Text))
	}
	add("Reminders", 55, reminders)

	var drafts []string
	for _, d := range c.Drafts {
		drafts = append(drafts, fmt.Sprintf("- to %s: %s", d.To, d.Subject))
	}
	add("Drafts Awaiting Review", 30, drafts)

	return out
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
