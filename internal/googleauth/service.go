// Package googleauth performs the server side of the Google OAuth 2.0
// authorization-code flow: building the consent URL, exchanging codes,
// looking up the user, and refreshing access tokens.
package googleauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/kalambet/myassistant/internal/domain"
)

const (
	DefaultAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURL    = "https://oauth2.googleapis.com/token"
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// DefaultScopes cover identity, reading and labelling mail, sending mail and
// reading the calendar.
var DefaultScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/calendar.readonly",
}

// Config holds the OAuth client registration. Empty URLs fall back to
// Google's production endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// TokenError is an OAuth error response from the token endpoint, such as
// "invalid_grant".
type TokenError struct {
	Code string
}

func (e *TokenError) Error() string { return "oauth token error: " + e.Code }

// Service runs the flow against one client registration.
type Service struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewService(cfg Config) *Service {
	authURL, tokenURL, userInfoURL := cfg.AuthURL, cfg.TokenURL, cfg.UserInfoURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether a client registration is present.
func (s *Service) Configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != ""
}

// AuthCodeURL is the consent page URL. Offline access with forced consent
// makes Google return a refresh token on every login.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (s *Service) ctx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Exchange trades an authorization code for tokens and resolves the user's
// identity.
func (s *Service) Exchange(ctx context.Context, code string) (domain.GoogleAuth, error) {
	tok, err := s.oauth.Exchange(s.ctx(ctx), code)
	if err != nil {
		return domain.GoogleAuth{}, tokenErr("exchanging code", err)
	}

	user, err := s.userInfo(ctx, tok.AccessToken)
	if err != nil {
		return domain.GoogleAuth{}, err
	}

	return domain.GoogleAuth{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt(tok),
		User:         user,
	}, nil
}

// Refresh obtains a new access token. The returned expiry is epoch
// milliseconds, or 0 when the server did not say.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	tok, err := s.oauth.TokenSource(s.ctx(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", 0, tokenErr("refreshing token", err)
	}
	return tok.AccessToken, expiresAt(tok), nil
}

func (s *Service) userInfo(ctx context.Context, accessToken string) (domain.GoogleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return domain.GoogleUser{}, fmt.Errorf("creating userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.GoogleUser{}, fmt.Errorf("requesting userinfo: %w", err)
	}
	defer resp.Body.Close()

	var user domain.GoogleUser
	if resp.StatusCode != http.StatusOK {
		slog.Warn("userinfo lookup failed, continuing without profile", "status", resp.StatusCode)
		return user, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		slog.Warn("malformed userinfo response", "error", err)
	}
	return user, nil
}

func tokenErr(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		return &TokenError{Code: re.ErrorCode}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expiresAt(tok *oauth2.Token) int64 {
	if tok.Expiry.IsZero() {
		return 0
	}
	return tok.Expiry.UnixMilli()
}

// EncodeAuth packs a credential into the base64 JSON blob carried by the
// callback redirect.
func EncodeAuth(a domain.GoogleAuth) (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeAuth reverses EncodeAuth. URL-safe base64 is accepted too.
func DecodeAuth(blob string) (domain.GoogleAuth, error) {
	var a domain.GoogleAuth
	b, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		b, err = base64.URLEncoding.DecodeString(blob)
		if err != nil {
			return a, fmt.Errorf("decoding auth blob: %w", err)
		}
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return a, fmt.Errorf("parsing auth blob: %w", err)
	}
	if a.AccessToken == "" {
		return a, errors.New("auth blob has no access token")
	}
	return a, nil
}
