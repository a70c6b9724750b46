package config

import (
	"strings"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Google  GoogleConfig
	Client  ClientConfig
	Proxy   ProxyConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port      int
	PublicURL string
}

type StorageConfig struct {
	DataDir string
}

// GoogleConfig is the OAuth client registration plus the upstream endpoints
// the proxy talks to. Only the server needs it.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	APIBaseURL   string
}

// ClientConfig tells the CLI where the proxy server lives.
type ClientConfig struct {
	ServerURL string
}

type ProxyConfig struct {
	OpenRouterAPIKey string
	DefaultModel     string
}

type LogConfig struct {
	Level string
}

const callbackPath = "/api/auth/callback"

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:      8787,
			PublicURL: "http://127.0.0.1:8787",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Google: GoogleConfig{
			AuthURL:     "https://accounts.google.com/o/oauth2/auth",
			TokenURL:    "https://oauth2.googleapis.com/token",
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			APIBaseURL:  "https://www.googleapis.com",
		},
		Client: ClientConfig{
			ServerURL: "http://127.0.0.1:8787",
		},
		Proxy: ProxyConfig{
			DefaultModel: "anthropic/claude-sonnet-4",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend, environment variables
// and the secrets file, in increasing order of precedence for non-secret keys.
//
// The backend is a JSON file at $XDG_CONFIG_HOME/myassistant/config.json.
// Secrets are never stored there: they come from MYASSISTANT_* environment
// variables or from $XDG_DATA_HOME/myassistant/secrets.json.
//
// Nothing is required at load time. Commands that need a Google client or an
// OpenRouter key check for them when they run.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), secretsFile{path: secretsFilePath()})
}

// secretStore abstracts the secrets file for testing.
type secretStore interface {
	Get(name string) (string, error)
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, secrets)

	if cfg.Google.RedirectURI == "" {
		cfg.Google.RedirectURI = strings.TrimRight(cfg.Server.PublicURL, "/") + callbackPath
	}

	return cfg, nil
}

// applySecrets fills secret keys that the environment left empty.
func applySecrets(cfg *Config, secrets secretStore) {
	for _, s := range specs {
		if !s.secret {
			continue
		}
		if v, _ := s.extract(*cfg).(string); v != "" {
			continue
		}
		if v, err := secrets.Get(s.key); err == nil && v != "" {
			s.apply(cfg, strings.TrimSpace(v))
		}
	}
}
