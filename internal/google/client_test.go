package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 5, 16, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL(srv.URL).WithClock(func() time.Time { return fixedNow })
}

func TestTodayEvents_QueryAndMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/v3/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "2025-03-05T00:00:00Z", q.Get("timeMin"))
		assert.Equal(t, "2025-03-06T00:00:00Z", q.Get("timeMax"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.Equal(t, "20", q.Get("maxResults"))

		fmt.Fprint(w, `{"items":[
			{"id":"e1","summary":"Standup","start":{"dateTime":"2025-03-05T09:00:00Z"},"end":{"dateTime":"2025-03-05T09:15:00Z"},
			 "attendees":[{"email":"a@x.com"},{"email":"b@x.com"}],
			 "conferenceData":{"entryPoints":[{"uri":"https://meet.example/abc"}]},"status":"confirmed"},
			{"id":"e2","start":{"date":"2025-03-05"},"end":{"date":"2025-03-06"},"hangoutLink":"https://meet.example/h"}
		]}`)
	})

	events, err := c.TodayEvents(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Standup", events[0].Title)
	assert.False(t, events[0].AllDay)
	assert.Equal(t, "a@x.com, b@x.com", events[0].Attendees)
	assert.Equal(t, "https://meet.example/abc", events[0].MeetLink)

	assert.Equal(t, "(No title)", events[1].Title)
	assert.True(t, events[1].AllDay)
	assert.Equal(t, "2025-03-05", events[1].Start)
	assert.Equal(t, "https://meet.example/h", events[1].MeetLink)
}

func TestListInbox_FetchesTenAndDropsFailures(t *testing.T) {
	var detailCalls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gmail/v1/users/me/messages" {
			assert.Equal(t, "INBOX", r.URL.Query().Get("labelIds"))
			assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
			var ids []string
			for i := 0; i < 15; i++ {
				ids = append(ids, fmt.Sprintf(`{"id":"m%d"}`, i))
			}
			fmt.Fprintf(w, `{"messages":[%s]}`, strings.Join(ids, ","))
			return
		}

		detailCalls.Add(1)
		id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/")
		assert.Equal(t, "metadata", r.URL.Query().Get("format"))
		if id == "m3" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"gone"}}`)
			return
		}
		date := "Wed, 05 Mar 2025 14:05:00 +0000"
		if id == "m1" {
			date = "Tue, 04 Mar 2025 10:00:00 +0000"
		}
		labels := `["INBOX","UNREAD"]`
		if id == "m0" {
			labels = `["INBOX","STARRED"]`
		}
		fmt.Fprintf(w, `{"id":%q,"threadId":"t-%s","snippet":"hello","labelIds":%s,"payload":{"headers":[
			{"name":"From","value":"\"Sarah Chen\" <sarah@example.com>"},
			{"name":"subject","value":""},
			{"name":"Date","value":%q}]}}`, id, id, labels, date)
	})

	emails, err := c.ListInbox(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(10), detailCalls.Load())
	require.Len(t, emails, 9)

	first := emails[0]
	assert.Equal(t, "m0", first.ID)
	assert.Equal(t, "Sarah Chen", first.From)
	assert.Equal(t, "sarah@example.com", first.FromEmail)
	assert.Equal(t, "(No subject)", first.Subject)
	assert.Equal(t, "2:05 PM", first.Time)
	assert.True(t, first.Read)
	assert.True(t, first.Priority)

	assert.Equal(t, "Mar 4", emails[1].Time)
	assert.False(t, emails[1].Read)
	for _, e := range emails {
		assert.NotEqual(t, "m3", e.ID)
	}
}

func TestListInbox_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})

	_, err := c.ListInbox(context.Background(), "bad")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid Credentials", apiErr.Message)
}

func b64url(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func TestGetEmail_PrefersHTMLBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages/abc", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		fmt.Fprintf(w, `{"id":"abc","threadId":"t1","snippet":"snip","payload":{
			"mimeType":"multipart/alternative",
			"headers":[{"name":"From","value":"bob@example.com"},{"name":"To","value":"me@example.com"},
			           {"name":"Subject","value":"Hi"},{"name":"Date","value":"Wed, 05 Mar 2025 14:05:00 +0000"}],
			"parts":[
				{"mimeType":"text/plain","body":{"data":%q}},
				{"mimeType":"multipart/related","parts":[{"mimeType":"text/html","body":{"data":%q}}]}
			]}}`, b64url("plain body"), b64url("<p>html body?</p>"))
	})

	d, err := c.GetEmail(context.Background(), "tok", "abc")
	require.NoError(t, err)
	assert.Equal(t, "<p>html body?</p>", d.Body)
	assert.True(t, d.IsHTML)
	assert.Equal(t, "bob@example.com", d.From)
	assert.Equal(t, "bob@example.com", d.FromEmail)
	assert.Equal(t, "me@example.com", d.To)
	assert.Equal(t, "Wed, Mar 5, 2:05 PM", d.Date)
	assert.Equal(t, []string{}, d.LabelIDs)
}

func TestGetEmail_FallsBackToSnippet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"abc","snippet":"just a snippet","payload":{"mimeType":"text/plain","headers":[]}}`)
	})

	d, err := c.GetEmail(context.Background(), "tok", "abc")
	require.NoError(t, err)
	assert.Equal(t, "just a snippet", d.Body)
	assert.False(t, d.IsHTML)
}

func TestSend_EncodesHTMLMessageWithoutThread(t *testing.T) {
	var payload map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gmail/v1/users/me/messages/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{"id":"sent1","threadId":"th1"}`)
	})

	res, err := c.Send(context.Background(), "tok", SendRequest{To: "a@b.com", Subject: "Hi", Body: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, SendResult{MessageID: "sent1", ThreadID: "th1"}, res)

	assert.NotContains(t, payload, "threadId")
	raw, _ := payload["raw"].(string)
	assert.NotContains(t, raw, "=")
	assert.NotContains(t, raw, "+")
	assert.NotContains(t, raw, "/")

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Equal(t, "To: a@b.com\r\nSubject: Hi\r\nContent-Type: text/html; charset=utf-8\r\n\r\n<p>hi</p>", string(decoded))
}

func TestSend_IncludesThreadID(t *testing.T) {
	var payload map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		fmt.Fprint(w, `{"id":"s","threadId":"th9"}`)
	})

	_, err := c.Send(context.Background(), "tok", SendRequest{To: "a@b.com", Subject: "Re", Body: "x", ThreadID: "th9"})
	require.NoError(t, err)
	assert.Equal(t, "th9", payload["threadId"])
}

func TestMarkRead_RemovesUnreadLabel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages/m1/modify", r.URL.Path)
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"UNREAD"}, body["removeLabelIds"])
		fmt.Fprint(w, `{"id":"m1","labelIds":["INBOX"]}`)
	})

	res, err := c.MarkRead(context.Background(), "tok", "m1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1","labelIds":["INBOX"]}`, string(res))
}

func TestDo_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"items":[]}`)
	})

	events, err := c.TodayEvents(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int32(2), calls.Load())
}

func TestParseFrom(t *testing.T) {
	name, addr := parseFrom(`"Doe, Jane" <jane@example.com>`)
	assert.Equal(t, "Doe, Jane", name)
	assert.Equal(t, "jane@example.com", addr)

	name, addr = parseFrom("plain@example.com")
	assert.Equal(t, "plain@example.com", name)
	assert.Equal(t, "plain@example.com", addr)
}

func TestPlainText(t *testing.T) {
	got := PlainText(`<html><head><style>p{}</style></head><body><p>Hi <b>there</b>,</p><ul><li>one</li><li>two</li></ul>bye<br>now</body></html>`)
	assert.Equal(t, "Hi there,\n• one\n• two\nbye\nnow", got)
}
