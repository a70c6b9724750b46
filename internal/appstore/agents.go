package appstore

import (
	"fmt"

	"github.com/kalambet/myassistant/internal/domain"
)

// agentFields points at the parts every agent dataset shares.
type agentFields struct {
	goals     *[]domain.Goal
	reminders *[]domain.Reminder
	chat      *[]domain.ChatMessage
}

// editAgent applies fn to the shared fields of agent's dataset and persists.
func (s *Store) editAgent(agent domain.Agent, fn func(agentFields)) error {
	var err error
	switch agent {
	case domain.AgentPersonal:
		_, err = s.UpdatePersonal(func(p domain.PersonalDataset) domain.PersonalDataset {
			fn(agentFields{&p.Goals, &p.Reminders, &p.ChatHistory})
			return p
		})
	case domain.AgentHealth:
		_, err = s.UpdateHealth(func(h domain.HealthDataset) domain.HealthDataset {
			fn(agentFields{&h.Goals, &h.Reminders, &h.ChatHistory})
			return h
		})
	case domain.AgentFinancial:
		_, err = s.UpdateFinancial(func(f domain.FinancialDataset) domain.FinancialDataset {
			fn(agentFields{&f.Goals, &f.Reminders, &f.ChatHistory})
			return f
		})
	case domain.AgentLearning:
		_, err = s.UpdateLearning(func(l domain.LearningDataset) domain.LearningDataset {
			fn(agentFields{&l.Goals, &l.Reminders, &l.ChatHistory})
			return l
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
	}
	return err
}

// Goals returns agent's stored goals. Health goals are returned as stored;
// derive progress with the health package.
func (s *Store) Goals(agent domain.Agent) ([]domain.Goal, error) {
	switch agent {
	case domain.AgentPersonal:
		return s.Personal().Goals, nil
	case domain.AgentHealth:
		return s.Health().Goals, nil
	case domain.AgentFinancial:
		return s.Financial().Goals, nil
	case domain.AgentLearning:
		return s.Learning().Goals, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
}

// Reminders returns agent's reminders, newest first.
func (s *Store) Reminders(agent domain.Agent) ([]domain.Reminder, error) {
	switch agent {
	case domain.AgentPersonal:
		return s.Personal().Reminders, nil
	case domain.AgentHealth:
		return s.Health().Reminders, nil
	case domain.AgentFinancial:
		return s.Financial().Reminders, nil
	case domain.AgentLearning:
		return s.Learning().Reminders, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
}

// ChatHistory returns agent's transcript.
func (s *Store) ChatHistory(agent domain.Agent) ([]domain.ChatMessage, error) {
	switch agent {
	case domain.AgentPersonal:
		return s.Personal().ChatHistory, nil
	case domain.AgentHealth:
		return s.Health().ChatHistory, nil
	case domain.AgentFinancial:
		return s.Financial().ChatHistory, nil
	case domain.AgentLearning:
		return s.Learning().ChatHistory, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
}

// AddGoal prepends g. A zero ID is replaced with the current time in
// milliseconds.
func (s *Store) AddGoal(agent domain.Agent, g domain.Goal) (domain.Goal, error) {
	now := s.clock.Now()
	if g.ID == 0 {
		g.ID = now.UnixMilli()
	}
	if g.CreatedAt == "" {
		g.CreatedAt = now.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	err := s.editAgent(agent, func(f agentFields) {
		*f.goals = append([]domain.Goal{g}, *f.goals...)
	})
	return g, err
}

// ToggleGoal flips completion. Completing a goal sets progress to 100;
// reopening it keeps the progress it had.
func (s *Store) ToggleGoal(agent domain.Agent, id int64) (bool, error) {
	found := false
	err := s.editAgent(agent, func(f agentFields) {
		goals := append([]domain.Goal(nil), *f.goals...)
		for i := range goals {
			if goals[i].ID != id {
				continue
			}
			found = true
			goals[i].Completed = !goals[i].Completed
			if goals[i].Completed {
				goals[i].Progress = 100
			}
		}
		*f.goals = goals
	})
	return found, err
}

// UpdateGoal replaces the goal with the same ID.
func (s *Store) UpdateGoal(agent domain.Agent, g domain.Goal) (bool, error) {
	found := false
	err := s.editAgent(agent, func(f agentFields) {
		goals := append([]domain.Goal(nil), *f.goals...)
		for i := range goals {
			if goals[i].ID == g.ID {
				goals[i] = g
				found = true
			}
		}
		*f.goals = goals
	})
	return found, err
}

func (s *Store) DeleteGoal(agent domain.Agent, id int64) (bool, error) {
	found := false
	err := s.editAgent(agent, func(f agentFields) {
		kept := make([]domain.Goal, 0, len(*f.goals))
		for _, g := range *f.goals {
			if g.ID == id {
				found = true
				continue
			}
			kept = append(kept, g)
		}
		*f.goals = kept
	})
	return found, err
}

// AddReminder prepends r, assigning an ID when it has none.
func (s *Store) AddReminder(agent domain.Agent, r domain.Reminder) (domain.Reminder, error) {
	if r.ID == 0 {
		r.ID = s.clock.Now().UnixMilli()
	}
	err := s.editAgent(agent, func(f agentFields) {
		*f.reminders = append([]domain.Reminder{r}, *f.reminders...)
	})
	return r, err
}

// DismissReminder deletes the reminder with id.
func (s *Store) DismissReminder(agent domain.Agent, id int64) (bool, error) {
	found := false
	err := s.editAgent(agent, func(f agentFields) {
		kept := make([]domain.Reminder, 0, len(*f.reminders))
		for _, r := range *f.reminders {
			if r.ID == id {
				found = true
				continue
			}
			kept = append(kept, r)
		}
		*f.reminders = kept
	})
	return found, err
}

// AppendChat adds msgs to the end of agent's transcript.
func (s *Store) AppendChat(agent domain.Agent, msgs ...domain.ChatMessage) error {
	return s.editAgent(agent, func(f agentFields) {
		*f.chat = append(append([]domain.ChatMessage(nil), *f.chat...), msgs...)
	})
}

// TakeDraft removes the draft with id and returns it.
func (s *Store) TakeDraft(id int64) (domain.Draft, bool, error) {
	var taken domain.Draft
	found := false
	_, err := s.UpdatePersonal(func(p domain.PersonalDataset) domain.PersonalDataset {
		kept := make([]domain.Draft, 0, len(p.Drafts))
		for _, d := range p.Drafts {
			if d.ID == id && !found {
				taken, found = d, true
				continue
			}
			kept = append(kept, d)
		}
		p.Drafts = kept
		return p
	})
	return taken, found, err
}
