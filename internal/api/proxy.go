package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/myassistant/internal/google"
	"github.com/kalambet/myassistant/internal/googleauth"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	stateCookie        = "myassistant_oauth_state"
)

// ProxyDeps are the upstreams the proxy forwards to.
type ProxyDeps struct {
	Google *google.Client
	Auth   *googleauth.Service
}

// NewProxyHandler returns the stateless proxy in front of Google OAuth,
// Gmail and Calendar. It never stores tokens: Google routes use the caller's
// bearer token and the auth routes hand credentials back to the caller.
func NewProxyHandler(deps ProxyDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(CORS)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", handleLanding)
	r.Get("/health", handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", handleLogin(deps.Auth))
		r.Get("/callback", handleCallback(deps.Auth))
		r.Post("/refresh", handleRefresh(deps.Auth))
	})

	// The bearer check runs after routing so a wrong method is a 405.
	r.Route("/api/google", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireBearer)
			r.Get("/calendar", handleCalendar(deps.Google))
			r.Get("/emails", handleEmails(deps.Google))
			r.Get("/email", handleEmail(deps.Google))
			r.Get("/email/{id}", handleEmail(deps.Google))
			r.Post("/mark-read", handleMarkRead(deps.Google))
			r.Post("/send", handleSend(deps.Google))
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLanding is where the OAuth callback lands. It shows the credential
// blob so it can be pasted into "myassistant auth import".
func handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	q := r.URL.Query()
	switch {
	case q.Get("auth_success") != "":
		blob := q.Get("auth_success")
		who := "your Google account"
		if a, err := googleauth.DecodeAuth(blob); err == nil && a.User.Email != "" {
			who = a.User.Email
		}
		fmt.Fprintf(w, "Connected %s.\n\nRun:\n\n  myassistant auth import %s\n", who, blob)
	case q.Get("auth_error") != "":
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Google sign-in failed: %s\n", q.Get("auth_error"))
	default:
		fmt.Fprintln(w, "myassistant proxy is running. Start sign-in at /api/auth/login")
	}
}

func handleLogin(auth *googleauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.Configured() {
			httpError(w, http.StatusInternalServerError, "Google OAuth client is not configured")
			return
		}
		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/api/auth",
			MaxAge:   int((10 * time.Minute).Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, auth.AuthCodeURL(state), http.StatusFound)
	}
}

func handleCallback(auth *googleauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			redirectAuth(w, r, "auth_error", e)
			return
		}
		code := q.Get("code")
		if code == "" {
			redirectAuth(w, r, "auth_error", "no_code")
			return
		}
		if c, err := r.Cookie(stateCookie); err == nil && c.Value != q.Get("state") {
			redirectAuth(w, r, "auth_error", "state_mismatch")
			return
		}

		creds, err := auth.Exchange(r.Context(), code)
		if err != nil {
			var te *googleauth.TokenError
			if errors.As(err, &te) {
				slog.Warn("oauth code exchange rejected", "error", te.Code)
				redirectAuth(w, r, "auth_error", te.Code)
				return
			}
			slog.Error("oauth callback failed", "error", err)
			redirectAuth(w, r, "auth_error", "server_error")
			return
		}

		blob, err := googleauth.EncodeAuth(creds)
		if err != nil {
			slog.Error("encoding credentials", "error", err)
			redirectAuth(w, r, "auth_error", "server_error")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/auth", MaxAge: -1})
		redirectAuth(w, r, "auth_success", blob)
	}
}

func redirectAuth(w http.ResponseWriter, r *http.Request, param, value string) {
	http.Redirect(w, r, "/?"+param+"="+url.QueryEscape(value), http.StatusFound)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

func handleRefresh(auth *googleauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeBody(w, r, &req); err != nil || req.RefreshToken == "" {
			httpError(w, http.StatusBadRequest, "Missing refresh_token")
			return
		}

		access, expiresAt, err := auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			var te *googleauth.TokenError
			if errors.As(err, &te) {
				httpError(w, http.StatusBadRequest, te.Code)
				return
			}
			slog.Error("token refresh failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to refresh token")
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access, ExpiresAt: expiresAt})
	}
}

func handleCalendar(g *google.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := g.TodayEvents(r.Context(), bearerToken(r))
		if err != nil {
			upstreamError(w, err, "Failed to fetch calendar", "Failed to fetch calendar events")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}

func handleEmails(g *google.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emails, err := g.ListInbox(r.Context(), bearerToken(r))
		if err != nil {
			upstreamError(w, err, "Failed to fetch emails", "Failed to fetch emails")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"emails": emails})
	}
}

func handleEmail(g *google.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			id = r.URL.Query().Get("id")
		}
		if id == "" {
			httpError(w, http.StatusBadRequest, "Missing email id")
			return
		}
		email, err := g.GetEmail(r.Context(), bearerToken(r), id)
		if err != nil {
			upstreamError(w, err, "Failed to fetch email", "Failed to fetch email")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"email": email})
	}
}

func handleMarkRead(g *google.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EmailID string `json:"emailId"`
		}
		if err := decodeBody(w, r, &req); err != nil || req.EmailID == "" {
			httpError(w, http.StatusBadRequest, "Email ID is required")
			return
		}
		result, err := g.MarkRead(r.Context(), bearerToken(r), req.EmailID)
		if err != nil {
			upstreamError(w, err, "Failed to mark email as read", "Failed to mark email as read")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Email marked as read",
			"result":  result,
		})
	}
}

func handleSend(g *google.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req google.SendRequest
		if err := decodeBody(w, r, &req); err != nil || req.To == "" || req.Subject == "" || req.Body == "" {
			httpError(w, http.StatusBadRequest, "Missing required fields: to, subject, body")
			return
		}
		res, err := g.Send(r.Context(), bearerToken(r), req)
		if err != nil {
			upstreamError(w, err, "Failed to send email", "Failed to send email")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"messageId": res.MessageID,
			"threadId":  res.ThreadID,
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// upstreamError mirrors a Google API failure: same status, upstream message
// or fallback. Transport failures become a 500 with transportMsg.
func upstreamError(w http.ResponseWriter, err error, fallback, transportMsg string) {
	var apiErr *google.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		slog.Warn("google api error", "status", apiErr.Status, "error", msg)
		httpError(w, apiErr.Status, msg)
		return
	}
	slog.Error("google request failed", "error", err)
	httpError(w, http.StatusInternalServerError, transportMsg)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
