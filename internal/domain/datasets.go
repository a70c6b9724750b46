package domain

import (
	"encoding/json"
	"time"
)

// Preferences describe how the personal assistant writes on the user's behalf.
type Preferences struct {
	Tone           string   `json:"tone"`
	AutoDraft      bool     `json:"autoDraft"`
	PriorityAlerts bool     `json:"priorityAlerts"`
	Traits         []string `json:"traits"`
}

type PersonalDataset struct {
	Preferences      Preferences   `json:"preferences"`
	Goals            []Goal        `json:"goals"`
	Reminders        []Reminder    `json:"reminders"`
	Drafts           []Draft       `json:"drafts"`
	ChatHistory      []ChatMessage `json:"chatHistory"`
	PriorityContacts []string      `json:"priorityContacts"`
}

type HealthDataset struct {
	Goals          []Goal        `json:"goals"`
	Reminders      []Reminder    `json:"reminders"`
	ChatHistory    []ChatMessage `json:"chatHistory"`
	DailyLogs      DailyLogs     `json:"dailyLogs"`
	EnabledMetrics Metrics       `json:"enabledMetrics"`
	Targets        Targets       `json:"targets"`
}

// UnmarshalJSON fills settings the stored record omits with defaults and
// never leaves DailyLogs nil.
func (h *HealthDataset) UnmarshalJSON(data []byte) error {
	type plain HealthDataset
	p := plain{EnabledMetrics: DefaultMetrics(), Targets: DefaultTargets()}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.DailyLogs == nil {
		p.DailyLogs = DailyLogs{}
	}
	*h = HealthDataset(p)
	return nil
}

type FinancialDataset struct {
	Goals       []Goal        `json:"goals"`
	RiskProfile string        `json:"riskProfile"`
	Reminders   []Reminder    `json:"reminders"`
	ChatHistory []ChatMessage `json:"chatHistory"`
}

type LearningDataset struct {
	Goals       []Goal        `json:"goals"`
	Curriculums []string      `json:"curriculums"`
	Reminders   []Reminder    `json:"reminders"`
	ChatHistory []ChatMessage `json:"chatHistory"`
	StudyStreak int           `json:"studyStreak"`
}

func DefaultProfile() Profile { return Profile{} }

// DefaultPersonal is the first-run personal assistant dataset. Drafts are
// stamped with now.
func DefaultPersonal(now time.Time) PersonalDataset {
	created := now.UTC().Format(time.RFC3339)
	return PersonalDataset{
		Preferences: Preferences{
			Tone:           "professional",
			AutoDraft:      true,
			PriorityAlerts: true,
			Traits: []string{
				"Starts with greeting",
				"Uses bullet points for lists",
				"Ends with clear next steps",
				"Keeps emails concise",
			},
		},
		Goals: []Goal{
			{ID: 1, Title: "Inbox Zero", Description: "Clear all emails by end of day", Progress: 65},
			{ID: 2, Title: "Respond to priority contacts within 2 hours", Description: "12 priority contacts configured", Progress: 80},
		},
		Reminders: []Reminder{
			{ID: 1, Text: "Team meeting in 30 minutes", Time: "10:00 AM", Urgent: true},
			{ID: 2, Text: "Follow up with Sarah about project proposal", Time: "2:00 PM"},
			{ID: 3, Text: "Review and send weekly report", Time: "4:00 PM"},
		},
		Drafts: []Draft{
			{
				ID:      1,
				To:      "Sarah Chen",
				Subject: "Re: Q4 Budget Review",
				Body: "Hi Sarah,\n\nThanks for sending over the Q4 budget details. I've reviewed the numbers and have a few thoughts:\n\n" +
					"• The marketing allocation looks good\n• We might want to revisit the software licenses line item\n" +
					"• Happy to discuss the contingency fund in our next meeting\n\nLet me know when you're free to chat.\n\nBest,",
				Status:    "pending",
				CreatedAt: created,
			},
			{
				ID:      2,
				To:      "Mike Johnson",
				Subject: "Project Timeline Update",
				Body: "Hi Mike,\n\nFollowing up on yesterday's discussion about the project timeline.\n\n" +
					"I've adjusted the milestones as we discussed. The new target for Phase 1 completion is March 15th, which gives us a 2-week buffer.\n\n" +
					"I'll send the updated Gantt chart by EOD.\n\nThanks,",
				Status:    "pending",
				CreatedAt: created,
			},
		},
		ChatHistory:      []ChatMessage{},
		PriorityContacts: []string{"Sarah Chen", "Mike Johnson", "Alex Rivera"},
	}
}

func DefaultMetrics() Metrics {
	return Metrics{Water: true, Sleep: true, Exercise: true, Meal: true}
}

func DefaultTargets() Targets {
	return Targets{Water: 8, Sleep: 8, Exercise: 30, Meal: 3, Weight: 150}
}

func DefaultHealth() HealthDataset {
	return HealthDataset{
		Goals: []Goal{
			{ID: 1, Title: "Sleep 8 hours nightly", Description: "Track your sleep", AutoTracked: true, TrackingType: EntrySleep, Target: NumericTarget(8)},
			{ID: 2, Title: "Drink 8 glasses of water daily", Description: "Stay hydrated", AutoTracked: true, TrackingType: EntryWater, Target: NumericTarget(8)},
			{ID: 3, Title: "Exercise 30 minutes daily", Description: "Stay active", AutoTracked: true, TrackingType: EntryExercise, Target: NumericTarget(30)},
		},
		Reminders:      []Reminder{},
		ChatHistory:    []ChatMessage{},
		DailyLogs:      DailyLogs{},
		EnabledMetrics: DefaultMetrics(),
		Targets:        DefaultTargets(),
	}
}

func DefaultFinancial() FinancialDataset {
	return FinancialDataset{
		Goals: []Goal{
			{ID: 1, Title: "Emergency Fund", Description: "Target: $10,000", Progress: 72},
			{ID: 2, Title: "Retirement Contribution", Description: "Max out 401k this year", Progress: 45},
		},
		RiskProfile: "moderate",
		Reminders:   []Reminder{},
		ChatHistory: []ChatMessage{},
	}
}

func DefaultLearning() LearningDataset {
	return LearningDataset{
		Goals: []Goal{
			{ID: 1, Title: "Complete Python Basics", Description: "Module 3 of 5", Progress: 60},
			{ID: 2, Title: "Read 2 books/month", Description: "Current: None selected", Progress: 0},
		},
		Curriculums: []string{},
		Reminders:   []Reminder{},
		ChatHistory: []ChatMessage{},
	}
}
