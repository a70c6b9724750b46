package profile

import (
	"strings"
	"testing"

	"github.com/kalambet/myassistant/internal/appstore"
	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/storage"
)

func newTestManager(t *testing.T) (*Manager, *appstore.Store) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := appstore.New(db)
	return NewManager(store), store
}

func fieldValue(t *testing.T, m *Manager, key string) string {
	t.Helper()
	for _, f := range m.Fields() {
		if f.Key == key {
			return f.Value
		}
	}
	t.Fatalf("no field %q", key)
	return ""
}

func TestFieldsCoverKeys(t *testing.T) {
	m, _ := newTestManager(t)
	fields := m.Fields()
	if len(fields) != len(Keys) {
		t.Fatalf("got %d fields, want %d", len(fields), len(Keys))
	}
	for i, f := range fields {
		if f.Key != Keys[i] {
			t.Errorf("field %d = %q, want %q", i, f.Key, Keys[i])
		}
	}
}

func TestSetField_Profile(t *testing.T) {
	m, store := newTestManager(t)

	if err := m.SetField("name", "Ann"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := m.SetField("onboarding_complete", "true"); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	p := store.Profile()
	if p.Name != "Ann" || !p.OnboardingComplete {
		t.Errorf("profile = %+v", p)
	}
}

func TestSetField_InvalidBoolLeavesProfile(t *testing.T) {
	m, store := newTestManager(t)
	m.SetField("onboarding_complete", "true")

	if err := m.SetField("onboarding_complete", "maybe"); err == nil {
		t.Fatal("expected error for invalid bool")
	}
	if !store.Profile().OnboardingComplete {
		t.Error("invalid value should not overwrite the stored flag")
	}
}

func TestSetField_Preferences(t *testing.T) {
	m, store := newTestManager(t)

	if err := m.SetField("preferences.tone", "casual"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetField("preferences.auto_draft", "false"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetField("preferences.traits", "Short sentences, No emoji"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetField("priority_contacts", `["boss@example.com","mom@example.com"]`); err != nil {
		t.Fatal(err)
	}

	p := store.Personal()
	if p.Preferences.Tone != "casual" || p.Preferences.AutoDraft {
		t.Errorf("preferences = %+v", p.Preferences)
	}
	if len(p.Preferences.Traits) != 2 || p.Preferences.Traits[1] != "No emoji" {
		t.Errorf("traits = %v", p.Preferences.Traits)
	}
	if len(p.PriorityContacts) != 2 || p.PriorityContacts[0] != "boss@example.com" {
		t.Errorf("contacts = %v", p.PriorityContacts)
	}
	if got := fieldValue(t, m, "preferences.traits"); got != "Short sentences, No emoji" {
		t.Errorf("traits field = %q", got)
	}
}

func TestSetField_UnknownKey(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.SetField("favourite.color", "blue")
	if err == nil || !strings.Contains(err.Error(), "unknown profile key") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseList_MalformedJSONFallsBack(t *testing.T) {
	got := parseList(`[a, b`)
	if len(got) != 2 || got[0] != "[a" || got[1] != "b" {
		t.Errorf("parseList = %q", got)
	}
	if got := parseList("  "); len(got) != 0 {
		t.Errorf("blank list = %q", got)
	}
}

func TestGetSummary(t *testing.T) {
	m, _ := newTestManager(t)
	m.SetField("name", "Ann")
	m.SetField("preferences.tone", "friendly")

	s := m.GetSummary()
	if !strings.Contains(s, "User: Ann.") || !strings.Contains(s, "Prefers a friendly tone.") {
		t.Errorf("summary = %q", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := summarize(domain.Profile{}, domain.Preferences{}, nil); got != "User profile: not yet configured." {
		t.Errorf("summary = %q", got)
	}
}

func TestSummarize_Truncates(t *testing.T) {
	var p domain.Profile
	p.Name = strings.Repeat("é word ", 400)
	s := summarize(p, domain.Preferences{}, nil)
	if len(s) > maxSummaryChars {
		t.Errorf("summary length %d exceeds %d", len(s), maxSummaryChars)
	}
	if !strings.HasPrefix(s, "User: é word") {
		t.Errorf("summary prefix = %q", s[:20])
	}
}
