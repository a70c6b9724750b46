// Package domain holds the records shared by the local store, the proxy
// client and the metrics engine. JSON field names match the persisted and
// exported formats and must not change.
package domain

// Profile is the user's identity as captured by onboarding.
type Profile struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	OnboardingComplete bool   `json:"onboardingComplete"`
}

// Goal is a user goal. For auto-tracked goals Progress, Completed and
// Description are derived from today's logs at read time; the persisted
// values are stale by definition.
type Goal struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Progress     int       `json:"progress"`
	Completed    bool      `json:"completed"`
	CreatedAt    string    `json:"createdAt,omitempty"`
	AutoTracked  bool      `json:"autoTracked,omitempty"`
	TrackingType EntryType `json:"trackingType,omitempty"`
	Target       *Target   `json:"target,omitempty"`
}

// Reminder's Time is a display label resolved when the reminder was created.
type Reminder struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Time   string `json:"time"`
	Urgent bool   `json:"urgent"`
}

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// ChatMessage is one transcript line.
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// Draft is an email prepared by the personal assistant and awaiting review.
type Draft struct {
	ID        int64  `json:"id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// GoogleUser is the identity returned by the userinfo endpoint.
type GoogleUser struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleAuth is the stored OAuth credential. ExpiresAt is epoch milliseconds;
// zero means the expiry is unknown.
type GoogleAuth struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    int64      `json:"expires_at"`
	User         GoogleUser `json:"user"`
}

// Agent names one of the four assistant personas.
type Agent string

const (
	AgentPersonal  Agent = "personal"
	AgentHealth    Agent = "health"
	AgentFinancial Agent = "financial"
	AgentLearning  Agent = "learning"
)

// ParseAgent maps user input to an Agent.
func ParseAgent(s string) (Agent, bool) {
	switch Agent(s) {
	case AgentPersonal, AgentHealth, AgentFinancial, AgentLearning:
		return Agent(s), true
	}
	return "", false
}
