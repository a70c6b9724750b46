// Package remote fetches Google data through the proxy on behalf of the
// stored credential. Calls never return Go errors: every result carries an
// Error string that is empty on success.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kalambet/myassistant/internal/google"
)

const (
	ErrNotAuthenticated = "Not authenticated"
	ErrNetwork          = "Network error"
)

// TokenSource supplies a usable access token; tokens.Manager implements it.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context) (string, bool)
}

type CalendarResult struct {
	Events []google.Event `json:"events"`
	Error  string         `json:"error,omitempty"`
}

type EmailsResult struct {
	Emails []google.EmailSummary `json:"emails"`
	Error  string                `json:"error,omitempty"`
}

type EmailResult struct {
	Email *google.EmailDetail `json:"email"`
	Error string              `json:"error,omitempty"`
}

type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	ThreadID  string `json:"threadId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type MarkReadResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Fetcher calls the proxy's /api/google routes.
type Fetcher struct {
	serverURL  string
	tokens     TokenSource
	httpClient *http.Client
}

func NewFetcher(serverURL string, tokens TokenSource) *Fetcher {
	return &Fetcher{
		serverURL:  strings.TrimRight(serverURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *Fetcher) FetchCalendarEvents(ctx context.Context) CalendarResult {
	var res CalendarResult
	res.Error = f.call(ctx, http.MethodGet, "/api/google/calendar", nil, &res, "Failed to fetch calendar")
	if res.Events == nil {
		res.Events = []google.Event{}
	}
	return res
}

func (f *Fetcher) FetchEmails(ctx context.Context) EmailsResult {
	var res EmailsResult
	res.Error = f.call(ctx, http.MethodGet, "/api/google/emails", nil, &res, "Failed to fetch emails")
	if res.Emails == nil {
		res.Emails = []google.EmailSummary{}
	}
	return res
}

func (f *Fetcher) FetchEmail(ctx context.Context, id string) EmailResult {
	var res EmailResult
	res.Error = f.call(ctx, http.MethodGet, "/api/google/email/"+url.PathEscape(id), nil, &res, "Failed to fetch email")
	if res.Error != "" {
		res.Email = nil
	}
	return res
}

// SendEmail sends an HTML message. An empty threadID starts a new thread.
func (f *Fetcher) SendEmail(ctx context.Context, to, subject, body, threadID string) SendResult {
	var res SendResult
	req := google.SendRequest{To: to, Subject: subject, Body: body, ThreadID: threadID}
	res.Error = f.call(ctx, http.MethodPost, "/api/google/send", req, &res, "Failed to send email")
	if res.Error != "" {
		res.Success = false
	}
	return res
}

func (f *Fetcher) MarkRead(ctx context.Context, id string) MarkReadResult {
	var res MarkReadResult
	req := map[string]string{"emailId": id}
	res.Error = f.call(ctx, http.MethodPost, "/api/google/mark-read", req, &res, "Failed to mark email as read")
	if res.Error != "" {
		res.Success = false
	}
	return res
}

// call performs one authenticated request and decodes a 2xx body into out.
// It returns the error string for the result, empty on success.
func (f *Fetcher) call(ctx context.Context, method, path string, in, out any, fallback string) string {
	token, ok := f.tokens.GetValidAccessToken(ctx)
	if !ok {
		return ErrNotAuthenticated
	}

	var rd io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			slog.Error("marshaling request", "path", path, "error", err)
			return fallback
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.serverURL+path, rd)
	if err != nil {
		slog.Error("creating request", "path", path, "error", err)
		return ErrNetwork
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		slog.Warn("remote request failed", "path", path, "error", err)
		return ErrNetwork
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil && eb.Error != "" {
			return eb.Error
		}
		return fallback
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Warn("decoding remote response", "path", path, "error", err)
		return ErrNetwork
	}
	return ""
}
