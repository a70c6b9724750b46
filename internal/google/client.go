// Package google talks to the Gmail and Calendar REST APIs on behalf of a
// caller-supplied access token and reshapes the responses for display.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL = "https://www.googleapis.com"
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond

	// Inbox listing bounds.
	listLimit        = 20
	detailLimit      = 10
	detailFetchLimit = 5

	eventLimit = 20
)

// Client calls Google APIs. It holds no credentials; every call takes the
// caller's access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a client for the production Google APIs.
func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// WithClock returns a copy of c whose notion of "today" comes from now.
func (c *Client) WithClock(now func() time.Time) *Client {
	cp := *c
	cp.now = now
	return &cp
}

// TodayEvents lists up to 20 events of the current local day from the
// primary calendar, in start order.
func (c *Client) TodayEvents(ctx context.Context, token string) ([]Event, error) {
	now := c.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	q := url.Values{}
	q.Set("timeMin", start.UTC().Format(time.RFC3339))
	q.Set("timeMax", end.UTC().Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", fmt.Sprint(eventLimit))

	var list eventList
	if err := c.do(ctx, http.MethodGet, "/calendar/v3/calendars/primary/events?"+q.Encode(), token, nil, &list); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(list.Items))
	for _, e := range list.Items {
		events = append(events, toEvent(e))
	}
	return events, nil
}

func toEvent(e apiEvent) Event {
	ev := Event{
		ID:          e.ID,
		Title:       e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       firstNonEmpty(e.Start.DateTime, e.Start.Date),
		End:         firstNonEmpty(e.End.DateTime, e.End.Date),
		AllDay:      e.Start.DateTime == "",
		MeetLink:    e.HangoutLink,
		Status:      e.Status,
	}
	if ev.Title == "" {
		ev.Title = "(No title)"
	}
	emails := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		emails = append(emails, a.Email)
	}
	ev.Attendees = strings.Join(emails, ", ")
	if ev.MeetLink == "" && e.Conference != nil && len(e.Conference.EntryPoints) > 0 {
		ev.MeetLink = e.Conference.EntryPoints[0].URI
	}
	return ev
}

// ListInbox lists the 20 newest inbox messages and fetches metadata for the
// first 10 concurrently. Messages whose metadata fetch fails are left out.
func (c *Client) ListInbox(ctx context.Context, token string) ([]EmailSummary, error) {
	q := url.Values{}
	q.Set("maxResults", fmt.Sprint(listLimit))
	q.Set("labelIds", "INBOX")

	var list messageList
	if err := c.do(ctx, http.MethodGet, "/gmail/v1/users/me/messages?"+q.Encode(), token, nil, &list); err != nil {
		return nil, err
	}

	ids := list.Messages
	if len(ids) > detailLimit {
		ids = ids[:detailLimit]
	}

	results := make([]*EmailSummary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchLimit)
	for i, m := range ids {
		g.Go(func() error {
			path := "/gmail/v1/users/me/messages/" + url.PathEscape(m.ID) +
				"?format=metadata&metadataHeaders=From&metadataHeaders=Subject&metadataHeaders=Date"
			var msg message
			if err := c.do(gctx, http.MethodGet, path, token, nil, &msg); err != nil {
				slog.Debug("skipping message", "id", m.ID, "error", err)
				return nil
			}
			s := c.toSummary(msg)
			results[i] = &s
			return nil
		})
	}
	g.Wait()

	emails := make([]EmailSummary, 0, len(results))
	for _, r := range results {
		if r != nil {
			emails = append(emails, *r)
		}
	}
	return emails, nil
}

func (c *Client) toSummary(m message) EmailSummary {
	name, addr := parseFrom(header(m.Payload, "From"))
	s := EmailSummary{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		From:      name,
		FromEmail: addr,
		Subject:   firstNonEmpty(header(m.Payload, "Subject"), "(No subject)"),
		Preview:   m.Snippet,
		Read:      !hasLabel(m.LabelIDs, "UNREAD"),
		Priority:  hasLabel(m.LabelIDs, "IMPORTANT") || hasLabel(m.LabelIDs, "STARRED"),
		LabelIDs:  nonNil(m.LabelIDs),
	}
	if d, ok := parseDate(header(m.Payload, "Date")); ok {
		now := c.now()
		d = d.In(now.Location())
		if sameDay(d, now) {
			s.Time = d.Format("3:04 PM")
		} else {
			s.Time = d.Format("Jan 2")
		}
	}
	return s
}

// GetEmail fetches one message in full. The HTML body is preferred over
// plain text, which is preferred over the snippet.
func (c *Client) GetEmail(ctx context.Context, token, id string) (EmailDetail, error) {
	var m message
	if err := c.do(ctx, http.MethodGet, "/gmail/v1/users/me/messages/"+url.PathEscape(id)+"?format=full", token, nil, &m); err != nil {
		return EmailDetail{}, err
	}

	var htmlBody, textBody string
	collectBodies(m.Payload, &htmlBody, &textBody)

	name, addr := parseFrom(header(m.Payload, "From"))
	d := EmailDetail{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		From:      name,
		FromEmail: addr,
		To:        header(m.Payload, "To"),
		Subject:   firstNonEmpty(header(m.Payload, "Subject"), "(No subject)"),
		Body:      firstNonEmpty(htmlBody, textBody, m.Snippet),
		IsHTML:    htmlBody != "",
		LabelIDs:  nonNil(m.LabelIDs),
	}
	if t, ok := parseDate(header(m.Payload, "Date")); ok {
		d.Date = t.In(c.now().Location()).Format("Mon, Jan 2, 3:04 PM")
	}
	return d, nil
}

// collectBodies walks the MIME tree. Later parts of the same type win.
func collectBodies(p *messagePart, htmlBody, textBody *string) {
	if p == nil {
		return
	}
	if p.Body.Data != "" {
		decoded, err := decodeBase64(p.Body.Data)
		if err != nil {
			slog.Debug("undecodable message part", "mime", p.MimeType, "error", err)
		} else {
			switch p.MimeType {
			case "text/html":
				*htmlBody = decoded
			case "text/plain":
				*textBody = decoded
			}
		}
	}
	for _, part := range p.Parts {
		collectBodies(part, htmlBody, textBody)
	}
}

// MarkRead removes the UNREAD label and returns the upstream message resource.
func (c *Client) MarkRead(ctx context.Context, token, id string) (json.RawMessage, error) {
	body := map[string][]string{"removeLabelIds": {"UNREAD"}}
	var result json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/gmail/v1/users/me/messages/"+url.PathEscape(id)+"/modify", token, body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Send delivers an HTML message, threaded when req.ThreadID is set.
func (c *Client) Send(ctx context.Context, token string, req SendRequest) (SendResult, error) {
	payload := struct {
		Raw      string `json:"raw"`
		ThreadID string `json:"threadId,omitempty"`
	}{
		Raw:      EncodeMessage(req.To, req.Subject, req.Body),
		ThreadID: req.ThreadID,
	}

	var resp struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := c.do(ctx, http.MethodPost, "/gmail/v1/users/me/messages/send", token, payload, &resp); err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: resp.ID, ThreadID: resp.ThreadID}, nil
}

// EncodeMessage builds a minimal RFC 2822 HTML message and encodes it as
// unpadded base64url, the form Gmail expects in "raw".
func EncodeMessage(to, subject, body string) string {
	msg := strings.Join([]string{
		"To: " + to,
		"Subject: " + subject,
		"Content-Type: text/html; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return base64.RawURLEncoding.EncodeToString([]byte(msg))
}

// do performs one API call with the same 429 backoff the chat proxy uses.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = b
	}

	var lastErr error
	for attempt := range maxRetries {
		err := c.doOnce(ctx, method, path, token, body, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
			return err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path, token string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb apiErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil {
			apiErr.Message = eb.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
