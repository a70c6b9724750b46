package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/kalambet/myassistant/internal/domain"
)

func newTestServer(t *testing.T, tokenHandler http.HandlerFunc, userStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler)
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		if userStatus != http.StatusOK {
			w.WriteHeader(userStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"email":   "ann@example.com",
			"name":    "Ann",
			"picture": "https://example.com/a.png",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(srv *httptest.Server) *Service {
	return NewService(Config{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "http://localhost/api/auth/callback",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	})
}

func TestAuthCodeURL(t *testing.T) {
	s := NewService(Config{ClientID: "cid", ClientSecret: "x", RedirectURL: "http://localhost/cb"})
	u, err := url.Parse(s.AuthCodeURL("state-1"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q", u.Host)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":     "cid",
		"redirect_uri":  "http://localhost/cb",
		"state":         "state-1",
		"access_type":   "offline",
		"prompt":        "consent",
		"response_type": "code",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestConfigured(t *testing.T) {
	if NewService(Config{}).Configured() {
		t.Error("empty config should not be configured")
	}
	if !NewService(Config{ClientID: "a", ClientSecret: "b"}).Configured() {
		t.Error("expected configured")
	}
}

func TestExchange(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "code-1" || r.Form.Get("client_secret") != "csecret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_request"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"token_type":"Bearer"}`))
	}, http.StatusOK)

	before := time.Now()
	auth, err := newTestService(srv).Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if auth.AccessToken != "at-1" || auth.RefreshToken != "rt-1" {
		t.Errorf("tokens = %+v", auth)
	}
	if auth.User.Email != "ann@example.com" || auth.User.Name != "Ann" {
		t.Errorf("user = %+v", auth.User)
	}
	lo := before.Add(59 * time.Minute).UnixMilli()
	hi := time.Now().Add(61 * time.Minute).UnixMilli()
	if auth.ExpiresAt < lo || auth.ExpiresAt > hi {
		t.Errorf("ExpiresAt = %d, want about an hour from now", auth.ExpiresAt)
	}
}

func TestExchangeUserInfoFailureKeepsTokens(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","expires_in":3600,"token_type":"Bearer"}`))
	}, http.StatusInternalServerError)

	auth, err := newTestService(srv).Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if auth.AccessToken != "at-1" || auth.User != (domain.GoogleUser{}) {
		t.Errorf("auth = %+v", auth)
	}
}

func TestExchangeTokenError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
	}, http.StatusOK)

	_, err := newTestService(srv).Exchange(context.Background(), "stale")
	var te *TokenError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TokenError", err)
	}
	if te.Code != "invalid_grant" {
		t.Errorf("Code = %q", te.Code)
	}
}

func TestRefresh(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "rt-1" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Write([]byte(`{"access_token":"at-2","expires_in":1800,"token_type":"Bearer"}`))
	}, http.StatusOK)

	s := newTestService(srv)
	at, exp, err := s.Refresh(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if at != "at-2" {
		t.Errorf("access token = %q", at)
	}
	if exp <= time.Now().UnixMilli() {
		t.Errorf("expiry %d not in the future", exp)
	}

	_, _, err = s.Refresh(context.Background(), "revoked")
	var te *TokenError
	if !errors.As(err, &te) || te.Code != "invalid_grant" {
		t.Errorf("err = %v, want invalid_grant", err)
	}
}

func TestEncodeDecodeAuth(t *testing.T) {
	in := domain.GoogleAuth{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    1700000000000,
		User:         domain.GoogleUser{Email: "a@b.c", Name: "A"},
	}
	blob, err := EncodeAuth(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeAuth(blob)
	if err != nil {
		t.Fatalf("DecodeAuth: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	if _, err := DecodeAuth("!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := DecodeAuth("e30="); err == nil {
		t.Error("expected error for blob without access token")
	}
}
