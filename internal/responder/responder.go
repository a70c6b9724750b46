// Package responder produces agent chat replies. Generators are pluggable:
// Rules answers offline from live data, LLM asks a language model, and
// Fallback chains the two.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/myassistant/internal/appstore"
	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/google"
	"github.com/kalambet/myassistant/internal/health"
)

// ChatTimeFormat is the display time stored on chat messages.
const ChatTimeFormat = "3:04 PM"

// Generator turns user input into a reply.
type Generator interface {
	Generate(ctx context.Context, input string, c Context) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, input string, c Context) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, input string, c Context) (string, error) {
	return f(ctx, input, c)
}

// Context is the live data a reply may draw on. Events and Emails are nil
// when Google is not connected or was not queried.
type Context struct {
	Agent       domain.Agent
	Now         time.Time
	UserName    string
	Profile     string
	Preferences domain.Preferences
	Goals       []domain.Goal
	Reminders   []domain.Reminder
	Drafts      []domain.Draft
	History     []domain.ChatMessage
	Events      []google.Event
	Emails      []google.EmailSummary
	Health      *health.Summary
	Targets     domain.Targets
}

// BuildContext snapshots the store for agent. Health goals carry derived
// progress.
func BuildContext(store *appstore.Store, agent domain.Agent, profileSummary string, now time.Time) (Context, error) {
	c := Context{
		Agent:    agent,
		Now:      now,
		UserName: store.Profile().Name,
		Profile:  profileSummary,
	}

	var err error
	if c.Reminders, err = store.Reminders(agent); err != nil {
		return c, err
	}
	if c.History, err = store.ChatHistory(agent); err != nil {
		return c, err
	}

	switch agent {
	case domain.AgentPersonal:
		p := store.Personal()
		c.Preferences = p.Preferences
		c.Drafts = p.Drafts
		c.Goals = p.Goals
	case domain.AgentHealth:
		ds := store.Health()
		sum := health.Summarize(ds, now)
		c.Health = &sum
		c.Targets = ds.Targets
		c.Goals = sum.Goals
	default:
		if c.Goals, err = store.Goals(agent); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Fallback uses Primary and falls back to Secondary when Primary fails.
type Fallback struct {
	Primary   Generator
	Secondary Generator
}

func (f Fallback) Generate(ctx context.Context, input string, c Context) (string, error) {
	if f.Primary != nil {
		reply, err := f.Primary.Generate(ctx, input, c)
		if err == nil {
			return reply, nil
		}
		slog.Warn("primary responder failed, using fallback", "agent", c.Agent, "error", err)
	}
	return f.Secondary.Generate(ctx, input, c)
}

// ChatStore persists transcripts; appstore.Store implements it.
type ChatStore interface {
	AppendChat(agent domain.Agent, msgs ...domain.ChatMessage) error
}

// Respond records the user's message, generates a reply and records it.
// The user's message is kept even when generation fails.
func Respond(ctx context.Context, store ChatStore, gen Generator, input string, c Context) (domain.ChatMessage, error) {
	userMsg := domain.ChatMessage{
		Sender: domain.SenderUser,
		Text:   input,
		Time:   c.Now.Format(ChatTimeFormat),
	}
	if err := store.AppendChat(c.Agent, userMsg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("saving message: %w", err)
	}

	text, err := gen.Generate(ctx, input, c)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("generating reply: %w", err)
	}

	reply := domain.ChatMessage{
		Sender: domain.SenderAgent,
		Text:   text,
		Time:   c.Now.Format(ChatTimeFormat),
	}
	if err := store.AppendChat(c.Agent, reply); err != nil {
		return reply, fmt.Errorf("saving reply: %w", err)
	}
	return reply, nil
}
