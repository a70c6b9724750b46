// Package profile edits the user's profile and writing preferences through
// flat dot-notation keys and renders them as a compact prompt summary.
package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/slice"
)

// Store defines the storage operations the Manager needs.
// Implemented by appstore.Store.
type Store interface {
	Profile() domain.Profile
	UpdateProfile(fn slice.Updater[domain.Profile]) (domain.Profile, error)
	Personal() domain.PersonalDataset
	UpdatePersonal(fn slice.Updater[domain.PersonalDataset]) (domain.PersonalDataset, error)
}

// Keys lists the editable fields in display order.
var Keys = []string{
	"name",
	"email",
	"onboarding_complete",
	"preferences.tone",
	"preferences.auto_draft",
	"preferences.priority_alerts",
	"preferences.traits",
	"priority_contacts",
}

// Field is one key with its current display value.
type Field struct {
	Key   string
	Value string
}

type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Fields returns every editable key with its current value.
func (m *Manager) Fields() []Field {
	p := m.store.Profile()
	prefs := m.store.Personal().Preferences
	contacts := m.store.Personal().PriorityContacts
	return []Field{
		{"name", p.Name},
		{"email", p.Email},
		{"onboarding_complete", strconv.FormatBool(p.OnboardingComplete)},
		{"preferences.tone", prefs.Tone},
		{"preferences.auto_draft", strconv.FormatBool(prefs.AutoDraft)},
		{"preferences.priority_alerts", strconv.FormatBool(prefs.PriorityAlerts)},
		{"preferences.traits", strings.Join(prefs.Traits, ", ")},
		{"priority_contacts", strings.Join(contacts, ", ")},
	}
}

// SetField parses value for key and persists it. List keys accept a JSON
// array or a comma-separated list.
func (m *Manager) SetField(key, value string) error {
	switch key {
	case "name", "email", "onboarding_complete":
		var done bool
		if key == "onboarding_complete" {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("value for %q must be true or false", key)
			}
			done = b
		}
		_, err := m.store.UpdateProfile(func(p domain.Profile) domain.Profile {
			switch key {
			case "name":
				p.Name = value
			case "email":
				p.Email = value
			case "onboarding_complete":
				p.OnboardingComplete = done
			}
			return p
		})
		if err != nil {
			return fmt.Errorf("setting profile key %q: %w", key, err)
		}
		return nil

	case "preferences.tone", "preferences.auto_draft", "preferences.priority_alerts",
		"preferences.traits", "priority_contacts":
		var (
			b        bool
			list     []string
			parseErr error
		)
		switch key {
		case "preferences.auto_draft", "preferences.priority_alerts":
			b, parseErr = strconv.ParseBool(value)
		case "preferences.traits", "priority_contacts":
			list = parseList(value)
		}
		if parseErr != nil {
			return fmt.Errorf("value for %q must be true or false", key)
		}

		_, err := m.store.UpdatePersonal(func(p domain.PersonalDataset) domain.PersonalDataset {
			switch key {
			case "preferences.tone":
				p.Preferences.Tone = value
			case "preferences.auto_draft":
				p.Preferences.AutoDraft = b
			case "preferences.priority_alerts":
				p.Preferences.PriorityAlerts = b
			case "preferences.traits":
				p.Preferences.Traits = list
			case "priority_contacts":
				p.PriorityContacts = list
			}
			return p
		})
		if err != nil {
			return fmt.Errorf("setting profile key %q: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("unknown profile key %q (valid: %s)", key, strings.Join(Keys, ", "))
}

func parseList(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") {
		var list []string
		err := json.Unmarshal([]byte(value), &list)
		if err == nil {
			return list
		}
		slog.Warn("malformed JSON list, splitting on commas", "error", err)
	}
	list := []string{}
	for _, part := range strings.Split(value, ",") {
		if s := strings.TrimSpace(part); s != "" {
			list = append(list, s)
		}
	}
	return list
}

// GetSummary returns a compact string representation of the profile suitable
// for injection into a system prompt. Targets < 500 tokens (~2000 chars).
func (m *Manager) GetSummary() string {
	personal := m.store.Personal()
	return summarize(m.store.Profile(), personal.Preferences, personal.PriorityContacts)
}

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

func summarize(p domain.Profile, prefs domain.Preferences, contacts []string) string {
	var parts []string

	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("User: %s.", p.Name))
	}
	if p.Email != "" {
		parts = append(parts, fmt.Sprintf("Email: %s.", p.Email))
	}
	if prefs.Tone != "" {
		parts = append(parts, fmt.Sprintf("Prefers a %s tone.", prefs.Tone))
	}
	if len(prefs.Traits) > 0 {
		parts = append(parts, fmt.Sprintf("Writing style: %s.", strings.Join(prefs.Traits, "; ")))
	}
	if len(contacts) > 0 {
		parts = append(parts, fmt.Sprintf("Priority contacts: %s.", strings.Join(contacts, ", ")))
	}

	if len(parts) == 0 {
		return "User profile: not yet configured."
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}
