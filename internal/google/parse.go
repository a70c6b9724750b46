package google

import (
	"encoding/base64"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

var fromPattern = regexp.MustCompile(`^(.+?)\s*<(.+?)>$`)

// parseFrom splits `"Name" <addr>` into its parts. Headers without an angle
// address are returned as both name and address.
func parseFrom(raw string) (name, addr string) {
	m := fromPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw, raw
	}
	return strings.ReplaceAll(m[1], `"`, ""), m[2]
}

func header(p *messagePart, name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := mail.ParseDate(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// decodeBase64 accepts Gmail's URL-safe alphabet as well as the standard
// one, padded or not.
func decodeBase64(s string) (string, error) {
	trimmed := strings.TrimRight(s, "=")
	b, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(trimmed)
		if err != nil {
			return "", err
		}
	}
	return string(b), nil
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
