package google

import "fmt"

// Event is a calendar event reshaped for display. Start and End are RFC 3339
// date-times, or plain dates for all-day events.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Start       string `json:"start"`
	End         string `json:"end"`
	AllDay      bool   `json:"allDay"`
	Attendees   string `json:"attendees"`
	MeetLink    string `json:"meetLink"`
	Status      string `json:"status"`
}

// EmailSummary is one inbox row.
type EmailSummary struct {
	ID        string   `json:"id"`
	ThreadID  string   `json:"threadId"`
	From      string   `json:"from"`
	FromEmail string   `json:"fromEmail"`
	Subject   string   `json:"subject"`
	Preview   string   `json:"preview"`
	Time      string   `json:"time"`
	Read      bool     `json:"read"`
	Priority  bool     `json:"priority"`
	LabelIDs  []string `json:"labelIds"`
}

// EmailDetail is a full message. Body is HTML when IsHTML is set.
type EmailDetail struct {
	ID        string   `json:"id"`
	ThreadID  string   `json:"threadId"`
	From      string   `json:"from"`
	FromEmail string   `json:"fromEmail"`
	To        string   `json:"to"`
	Subject   string   `json:"subject"`
	Date      string   `json:"date"`
	Body      string   `json:"body"`
	IsHTML    bool     `json:"isHtml"`
	LabelIDs  []string `json:"labelIds"`
}

// SendRequest is an outgoing HTML message; ThreadID threads it as a reply.
type SendRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	ThreadID string `json:"threadId,omitempty"`
}

type SendResult struct {
	MessageID string `json:"messageId"`
	ThreadID  string `json:"threadId"`
}

// APIError is a non-2xx response from a Google API. Message is the upstream
// error.message and may be empty.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("google api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("google api: HTTP %d: %s", e.Status, e.Message)
}

// Wire formats of the upstream APIs, reduced to the fields we read.

type eventList struct {
	Items []apiEvent `json:"items"`
}

type apiEvent struct {
	ID          string      `json:"id"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Status      string      `json:"status"`
	Start       apiEventAt  `json:"start"`
	End         apiEventAt  `json:"end"`
	HangoutLink string      `json:"hangoutLink"`
	Attendees   []attendee  `json:"attendees"`
	Conference  *conference `json:"conferenceData"`
}

type apiEventAt struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type attendee struct {
	Email string `json:"email"`
}

type conference struct {
	EntryPoints []struct {
		URI string `json:"uri"`
	} `json:"entryPoints"`
}

type messageList struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type message struct {
	ID       string       `json:"id"`
	ThreadID string       `json:"threadId"`
	LabelIDs []string     `json:"labelIds"`
	Snippet  string       `json:"snippet"`
	Payload  *messagePart `json:"payload"`
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []*messagePart `json:"parts"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
