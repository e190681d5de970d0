package core

import (
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultCookieName          = "shopify_app_session"
	DefaultBeginCookieTTL      = 60 * time.Second
	DefaultEmbeddedGracePeriod = 30 * time.Second

	defaultHTTPTimeout          = 30 * time.Second
	defaultHTTPRetryMax         = 2
	defaultMaxResponseBodyBytes = 10 << 20
)

type OAuthConfig struct {
	CookieName     string        `koanf:"cookie_name" mapstructure:"cookie_name"`
	BeginCookieTTL time.Duration `koanf:"begin_cookie_ttl" mapstructure:"begin_cookie_ttl"`
	// EmbeddedGracePeriod is how long the cookie tracked OAuth session of an
	// embedded online app stays usable after the callback.
	EmbeddedGracePeriod time.Duration `koanf:"embedded_grace_period" mapstructure:"embedded_grace_period"`
}

type HTTPConfig struct {
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	RetryMax             int           `koanf:"retry_max" mapstructure:"retry_max"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type Config struct {
	APIKey                          string      `koanf:"api_key" mapstructure:"api_key"`
	APISecretKey                    string      `koanf:"api_secret_key" mapstructure:"api_secret_key"`
	Scopes                          []string    `koanf:"scopes" mapstructure:"scopes"`
	HostName                        string      `koanf:"host_name" mapstructure:"host_name"`
	APIVersion                      APIVersion  `koanf:"api_version" mapstructure:"api_version"`
	IsEmbeddedApp                   bool        `koanf:"is_embedded_app" mapstructure:"is_embedded_app"`
	IsPrivateApp                    bool        `koanf:"is_private_app" mapstructure:"is_private_app"`
	UserAgentPrefix                 string      `koanf:"user_agent_prefix" mapstructure:"user_agent_prefix"`
	PrivateAppStorefrontAccessToken string      `koanf:"private_app_storefront_access_token" mapstructure:"private_app_storefront_access_token"`
	OAuth                           OAuthConfig `koanf:"oauth" mapstructure:"oauth"`
	HTTP                            HTTPConfig  `koanf:"http" mapstructure:"http"`
}

func DefaultConfig() Config {
	return Config{
		APIVersion:    APIVersionUnstable,
		IsEmbeddedApp: true,
		OAuth: OAuthConfig{
			CookieName:          DefaultCookieName,
			BeginCookieTTL:      DefaultBeginCookieTTL,
			EmbeddedGracePeriod: DefaultEmbeddedGracePeriod,
		},
		HTTP: HTTPConfig{
			Timeout:              defaultHTTPTimeout,
			RetryMax:             defaultHTTPRetryMax,
			MaxResponseBodyBytes: defaultMaxResponseBodyBytes,
		},
	}
}

// Validate reports every missing required value at once.
func (c Config) Validate() error {
	fieldErrors := make([]goerrors.FieldError, 0, 4)
	missing := make([]string, 0, 4)
	check := func(field, label string, empty bool) {
		if !empty {
			return
		}
		missing = append(missing, label)
		fieldErrors = append(fieldErrors, goerrors.FieldError{
			Field:   field,
			Message: field + " is required",
		})
	}
	check("api_key", "API_KEY", strings.TrimSpace(c.APIKey) == "")
	check("api_secret_key", "API_SECRET_KEY", strings.TrimSpace(c.APISecretKey) == "")
	check("scopes", "SCOPES", c.ScopeSet().Len() == 0)
	check("host_name", "HOST_NAME", strings.TrimSpace(c.HostName) == "")
	if len(missing) > 0 {
		return goerrors.NewValidation(
			"core: cannot initialize, missing values for: "+strings.Join(missing, ", "),
			fieldErrors...,
		).
			WithCode(http.StatusBadRequest).
			WithTextCode(ErrorConfiguration)
	}
	if version := strings.TrimSpace(string(c.APIVersion)); version != "" && !c.APIVersion.Valid() {
		return goerrors.NewValidation("core: invalid api version", goerrors.FieldError{
			Field:   "api_version",
			Message: "unsupported api version " + version,
		}).
			WithCode(http.StatusBadRequest).
			WithTextCode(ErrorConfiguration)
	}
	return nil
}

// EnsureInitialized fails when the config was never populated.
func (c Config) EnsureInitialized() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return NewConfigurationError(
			"core: config has not been initialized, build it with DefaultConfig and load values before use",
			nil,
		)
	}
	return nil
}

func (c Config) EnsureNotPrivateApp(message string) error {
	if c.IsPrivateApp {
		return NewConfigurationError(message, map[string]any{"private_app": true})
	}
	return nil
}

func (c Config) ScopeSet() ScopeSet {
	return NewScopeSet(c.Scopes...)
}

func (c Config) Version() APIVersion {
	if strings.TrimSpace(string(c.APIVersion)) == "" {
		return APIVersionUnstable
	}
	return c.APIVersion
}

func (c Config) CookieName() string {
	if name := strings.TrimSpace(c.OAuth.CookieName); name != "" {
		return name
	}
	return DefaultCookieName
}

func (c Config) BeginCookieTTL() time.Duration {
	if c.OAuth.BeginCookieTTL > 0 {
		return c.OAuth.BeginCookieTTL
	}
	return DefaultBeginCookieTTL
}

func (c Config) EmbeddedGracePeriod() time.Duration {
	if c.OAuth.EmbeddedGracePeriod > 0 {
		return c.OAuth.EmbeddedGracePeriod
	}
	return DefaultEmbeddedGracePeriod
}

// WithDefaults fills zero tunables from DefaultConfig.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(string(c.APIVersion)) == "" {
		c.APIVersion = defaults.APIVersion
	}
	if strings.TrimSpace(c.OAuth.CookieName) == "" {
		c.OAuth.CookieName = defaults.OAuth.CookieName
	}
	if c.OAuth.BeginCookieTTL <= 0 {
		c.OAuth.BeginCookieTTL = defaults.OAuth.BeginCookieTTL
	}
	if c.OAuth.EmbeddedGracePeriod <= 0 {
		c.OAuth.EmbeddedGracePeriod = defaults.OAuth.EmbeddedGracePeriod
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = defaults.HTTP.Timeout
	}
	if c.HTTP.RetryMax < 0 {
		c.HTTP.RetryMax = 0
	}
	if c.HTTP.MaxResponseBodyBytes <= 0 {
		c.HTTP.MaxResponseBodyBytes = defaults.HTTP.MaxResponseBodyBytes
	}
	return c
}
