package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

// keySpec binds a dotted config key to its environment variable and to the
// Config field it fills.
type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

func stringKey(key, env string, field func(*Config) *string) keySpec {
	return keySpec{
		key: key, typ: kString, env: env,
		apply:   func(cfg *Config, v any) { *field(cfg) = v.(string) },
		extract: func(cfg Config) any { return *field(&cfg) },
	}
}

func secretKey(key, env string, field func(*Config) *string) keySpec {
	s := stringKey(key, env, field)
	s.secret = true
	return s
}

func intKey(key, env string, field func(*Config) *int) keySpec {
	return keySpec{
		key: key, typ: kInt, env: env,
		apply:   func(cfg *Config, v any) { *field(cfg) = v.(int) },
		extract: func(cfg Config) any { return *field(&cfg) },
	}
}

var specs = []keySpec{
	intKey("server.port", "MYASSISTANT_SERVER_PORT", func(c *Config) *int { return &c.Server.Port }),
	stringKey("server.public_url", "MYASSISTANT_SERVER_PUBLIC_URL", func(c *Config) *string { return &c.Server.PublicURL }),
	stringKey("storage.data_dir", "MYASSISTANT_STORAGE_DATA_DIR", func(c *Config) *string { return &c.Storage.DataDir }),

	stringKey("google.client_id", "MYASSISTANT_GOOGLE_CLIENT_ID", func(c *Config) *string { return &c.Google.ClientID }),
	secretKey("google.client_secret", "MYASSISTANT_GOOGLE_CLIENT_SECRET", func(c *Config) *string { return &c.Google.ClientSecret }),
	stringKey("google.redirect_uri", "MYASSISTANT_GOOGLE_REDIRECT_URI", func(c *Config) *string { return &c.Google.RedirectURI }),
	stringKey("google.auth_url", "MYASSISTANT_GOOGLE_AUTH_URL", func(c *Config) *string { return &c.Google.AuthURL }),
	stringKey("google.token_url", "MYASSISTANT_GOOGLE_TOKEN_URL", func(c *Config) *string { return &c.Google.TokenURL }),
	stringKey("google.userinfo_url", "MYASSISTANT_GOOGLE_USERINFO_URL", func(c *Config) *string { return &c.Google.UserInfoURL }),
	stringKey("google.api_base_url", "MYASSISTANT_GOOGLE_API_BASE_URL", func(c *Config) *string { return &c.Google.APIBaseURL }),

	stringKey("client.server_url", "MYASSISTANT_SERVER_URL", func(c *Config) *string { return &c.Client.ServerURL }),

	secretKey("proxy.openrouter_api_key", "MYASSISTANT_OPENROUTER_API_KEY", func(c *Config) *string { return &c.Proxy.OpenRouterAPIKey }),
	stringKey("proxy.default_model", "MYASSISTANT_PROXY_DEFAULT_MODEL", func(c *Config) *string { return &c.Proxy.DefaultModel }),

	stringKey("log.level", "MYASSISTANT_LOG_LEVEL", func(c *Config) *string { return &c.Log.Level }),
}

func lookup(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// applyBackend copies every non-secret key the backend holds into cfg.
func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		var (
			v   any
			ok  bool
			err error
		)
		switch s.typ {
		case kInt:
			v, ok, err = b.GetInt(s.key)
		default:
			v, ok, err = b.GetString(s.key)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if ok {
			s.apply(cfg, v)
		}
	}
	return nil
}

// applyEnvOverrides lets MYASSISTANT_* variables win over the file. An
// unparseable integer is reported and ignored.
func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		if s.typ != kInt {
			s.apply(cfg, raw)
			continue
		}
		i, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring %s=%q: not an integer\n", s.env, raw)
			continue
		}
		s.apply(cfg, i)
	}
}
