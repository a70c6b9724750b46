package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/google"
)

// Rules answers from the data in Context without calling out. It recognises
// a handful of topics per agent and otherwise explains what it can do.
type Rules struct{}

func (Rules) Generate(_ context.Context, input string, c Context) (string, error) {
	msg := strings.ToLower(input)
	var reply string
	switch c.Agent {
	case domain.AgentHealth:
		reply = healthReply(msg, c)
	case domain.AgentPersonal:
		reply = personalReply(msg, c)
	default:
		reply = generalReply(msg, c)
	}
	return reply, nil
}

func mentions(msg string, stems ...string) bool {
	for _, s := range stems {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// hasWord matches whole words only, so "hi" does not match "this".
func hasWord(msg string, words ...string) bool {
	fields := strings.FieldsFunc(msg, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

func isGreeting(msg string) bool {
	return hasWord(msg, "hi", "hello", "hey", "morning", "afternoon", "evening")
}

func isHelp(msg string) bool {
	return hasWord(msg, "help") || mentions(msg, "what can you")
}

func greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// --- personal ---

func personalReply(msg string, c Context) string {
	switch {
	case mentions(msg, "schedule", "calendar", "meeting", "event"):
		return scheduleReply(c)
	case mentions(msg, "draft") && !mentions(msg, "write", "compose"):
		return draftsReply(c)
	case mentions(msg, "email", "inbox", "mail"):
		if mentions(msg, "write", "compose", "draft") {
			return "Who should it go to, and what's the main point? Use `myassistant email send` and I'll keep it in your " + toneLabel(c.Preferences.Tone) + " tone."
		}
		return inboxReply(c)
	case mentions(msg, "remind", "todo", "to-do", "task"):
		return remindersReply(c)
	case mentions(msg, "tone", "style", "preference"):
		return styleReply(c)
	case isHelp(msg):
		return "I can help you with:\n\n• Email: read your inbox, review drafts, send messages in your voice\n• Calendar: today's schedule\n• Tasks: reminders and goals\n\nWhat would you like to tackle?"
	case isGreeting(msg):
		return briefing(c)
	}
	return "I'm here to help with your email, calendar and reminders. Ask about today's schedule, your inbox, or your drafts."
}

func scheduleReply(c Context) string {
	if c.Events == nil {
		return "Your calendar isn't connected. Run `myassistant auth login` to link your Google account."
	}
	if len(c.Events) == 0 {
		return "Nothing on your calendar today. A good day for focus time."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %s today:\n", plural(len(c.Events), "event", "events"))
	for _, e := range c.Events {
		fmt.Fprintf(&sb, "\n• %s - %s", eventTime(e, c.Now.Location()), e.Title)
	}
	return sb.String()
}

func eventTime(e google.Event, loc *time.Location) string {
	if e.AllDay {
		return "All day"
	}
	t, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return e.Start
	}
	return t.In(loc).Format("3:04 PM")
}

func inboxReply(c Context) string {
	if c.Emails == nil {
		return "Your inbox isn't connected. Run `myassistant auth login` to link your Google account."
	}
	unread, priority := 0, 0
	for _, e := range c.Emails {
		if !e.Read {
			unread++
		}
		if e.Priority {
			priority++
		}
	}
	s := fmt.Sprintf("Your inbox: %s unread (%d priority) among the latest %d messages.", plural(unread, "email", "emails"), priority, len(c.Emails))
	if n := len(c.Drafts); n > 0 {
		s += fmt.Sprintf("\n%s waiting for your review.", plural(n, "draft is", "drafts are"))
	}
	return s
}

func draftsReply(c Context) string {
	if len(c.Drafts) == 0 {
		return "No drafts waiting for review."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "I have %s ready:\n", plural(len(c.Drafts), "draft", "drafts"))
	for i, d := range c.Drafts {
		fmt.Fprintf(&sb, "\n%d. %s (to %s)", i+1, d.Subject, d.To)
	}
	return sb.String()
}

func remindersReply(c Context) string {
	if len(c.Reminders) == 0 {
		return "You have no reminders. Add one with `myassistant reminders add`."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %s:\n", plural(len(c.Reminders), "reminder", "reminders"))
	for _, r := range c.Reminders {
		mark := ""
		if r.Urgent {
			mark = " (urgent)"
		}
		fmt.Fprintf(&sb, "\n• %s - %s%s", r.Time, r.Text, mark)
	}
	return sb.String()
}

func toneLabel(tone string) string {
	switch tone {
	case "formal":
		return "professional and formal"
	case "casual":
		return "friendly and casual"
	case "":
		return "balanced"
	}
	return tone
}

func styleReply(c Context) string {
	s := fmt.Sprintf("Your writing style is %s.", toneLabel(c.Preferences.Tone))
	if len(c.Preferences.Traits) > 0 {
		s += " You tend to:\n\n• " + strings.Join(c.Preferences.Traits, "\n• ")
	}
	return s + "\n\nChange it with `myassistant profile set preferences.tone <tone>`."
}

func briefing(c Context) string {
	name := ""
	if c.UserName != "" {
		name = ", " + c.UserName
	}
	lines := []string{fmt.Sprintf("%s%s! Here's your quick briefing:\n", greeting(c.Now), name)}
	if c.Events != nil {
		lines = append(lines, "• "+plural(len(c.Events), "event", "events")+" today")
	}
	if c.Emails != nil {
		unread := 0
		for _, e := range c.Emails {
			if !e.Read {
				unread++
			}
		}
		lines = append(lines, "• "+plural(unread, "unread email", "unread emails"))
	}
	lines = append(lines, "• "+plural(len(c.Drafts), "draft", "drafts")+" ready for review")
	lines = append(lines, "• "+plural(len(c.Reminders), "reminder", "reminders"))
	return strings.Join(lines, "\n") + "\n\nWhat would you like to focus on first?"
}

// --- health ---

func healthReply(msg string, c Context) string {
	if c.Health == nil {
		return generalReply(msg, c)
	}
	t := c.Health.Totals
	switch {
	case mentions(msg, "water", "hydrat", "drink"):
		target := c.Targets.Water
		if target > 0 && t.Water >= target {
			return fmt.Sprintf("You've hit your water goal today with %g glasses. Keep it up!", t.Water)
		}
		if target > 0 {
			return fmt.Sprintf("You've had %g glasses of water today. %g more to reach your goal of %g.", t.Water, target-t.Water, target)
		}
		return fmt.Sprintf("You've had %g glasses of water today.", t.Water)

	case mentions(msg, "sleep", "tired", "rest"):
		if t.Sleep == 0 {
			return "No sleep logged for today yet. Log it with `myassistant health log sleep <hours>`."
		}
		if t.Sleep >= 7 {
			return fmt.Sprintf("You got %g hours of sleep. That's solid rest.", t.Sleep)
		}
		return fmt.Sprintf("You logged %g hours of sleep. Aim for 7-9 hours:\n\n• Keep a consistent bedtime\n• Avoid screens an hour before bed\n• Keep your room cool and dark", t.Sleep)

	case mentions(msg, "exercise", "workout", "active", "walk", "run"):
		target := c.Targets.Exercise
		if t.Exercise == 0 {
			return "No exercise logged yet today. Even a 10-minute walk counts."
		}
		if target > 0 && t.Exercise < target {
			return fmt.Sprintf("You've logged %g minutes of exercise today. %g more to hit your %g-minute target.", t.Exercise, target-t.Exercise, target)
		}
		return fmt.Sprintf("You've logged %g minutes of exercise today. Target reached!", t.Exercise)

	case mentions(msg, "meal", "food", "eat", "nutrition"):
		return fmt.Sprintf("You've logged %s today. Aim for protein, vegetables and whole grains in each.", plural(t.Meals, "meal", "meals"))

	case mentions(msg, "weight"):
		if t.Weight == nil {
			return "No weight logged yet. Log it with `myassistant health log weight <lbs>`."
		}
		return fmt.Sprintf("Your latest weight is %g lbs (logged %s).", t.Weight.Value, t.Weight.Date)

	case mentions(msg, "streak"):
		return fmt.Sprintf("You're on a %s logging streak.", plural(c.Health.Streak, "day", "days"))

	case mentions(msg, "progress", "how am i", "summary", "today", "goal"):
		return healthSummary(c)

	case isHelp(msg):
		return "I can help you with hydration, sleep, exercise and nutrition. Log with `myassistant health log <type> <value>` and ask me how you're doing."

	case isGreeting(msg):
		return fmt.Sprintf("%s! Today so far: %g/%g glasses of water, %s logged.\n\nWhat would you like to focus on?",
			greeting(c.Now), t.Water, c.Targets.Water, plural(t.Entries, "entry", "entries"))
	}
	return "Ask me about your water, sleep, exercise, meals or weight, or say \"summary\" for today's overview."
}

func healthSummary(c Context) string {
	t := c.Health.Totals
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today's summary:\n\n")
	fmt.Fprintf(&sb, "• Water: %g/%g glasses\n", t.Water, c.Targets.Water)
	fmt.Fprintf(&sb, "• Sleep: %g hours\n", t.Sleep)
	fmt.Fprintf(&sb, "• Exercise: %g/%g minutes\n", t.Exercise, c.Targets.Exercise)
	fmt.Fprintf(&sb, "• Meals logged: %d\n", t.Meals)
	fmt.Fprintf(&sb, "• Streak: %s\n", plural(c.Health.Streak, "day", "days"))
	fmt.Fprintf(&sb, "• Score: %d/100", c.Health.Score)
	if in := c.Health.Insight; in != nil {
		fmt.Fprintf(&sb, "\n\n%s", in.Text)
	}
	for _, g := range c.Health.Goals {
		if g.AutoTracked {
			fmt.Fprintf(&sb, "\n%s: %d%%", g.Title, g.Progress)
		}
	}
	return sb.String()
}

// --- financial, learning ---

func generalReply(msg string, c Context) string {
	switch {
	case mentions(msg, "goal", "progress"):
		return goalsReply(c)
	case mentions(msg, "remind", "task", "todo"):
		return remindersReply(c)
	case isHelp(msg):
		return "I can track your goals and reminders. Add them with `myassistant goals add` and `myassistant reminders add`."
	case isGreeting(msg):
		return fmt.Sprintf("%s! You have %s and %s.", greeting(c.Now), plural(len(c.Goals), "goal", "goals"), plural(len(c.Reminders), "reminder", "reminders"))
	}
	return "Ask me about your goals or reminders."
}

func goalsReply(c Context) string {
	if len(c.Goals) == 0 {
		return "No goals yet. Add one with `myassistant goals add`."
	}
	var sb strings.Builder
	sb.WriteString("Your goals:\n")
	for _, g := range c.Goals {
		status := fmt.Sprintf("%d%%", g.Progress)
		if g.Completed {
			status = "done"
		}
		fmt.Fprintf(&sb, "\n• %s (%s)", g.Title, status)
	}
	return sb.String()
}
