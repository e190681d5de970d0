package main

import (
	"os"
	"strings"
	"time"

	"github.com/codingconcepts/env"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-shopify-auth/core"
)

// envConfig is read from the process environment after an optional .env file.
type envConfig struct {
	APIKey          string `env:"SHOPIFY_API_KEY" required:"true"`
	APISecretKey    string `env:"SHOPIFY_API_SECRET_KEY" required:"true"`
	Scopes          string `env:"SHOPIFY_SCOPES" required:"true"`
	HostName        string `env:"SHOPIFY_HOST_NAME" required:"true"`
	APIVersion      string `env:"SHOPIFY_API_VERSION" default:"unstable"`
	EmbeddedApp     bool   `env:"SHOPIFY_EMBEDDED_APP" default:"true"`
	UserAgentPrefix string `env:"SHOPIFY_USER_AGENT_PREFIX"`
	GracePeriod     string `env:"SHOPIFY_EMBEDDED_GRACE_PERIOD" default:"30s"`

	SessionStore   string `env:"SESSION_STORE" default:"memory"`
	DatabaseURL    string `env:"DATABASE_URL" default:"file:shopify-auth.db?cache=shared&_foreign_keys=on"`
	RedisURL       string `env:"REDIS_URL" default:"redis://localhost:6379/0"`
	SessionKey     string `env:"SESSION_ENCRYPTION_KEY"`
	PreviousKeys   string `env:"SESSION_ENCRYPTION_PREVIOUS_KEYS"`
	SessionCaching bool   `env:"SESSION_CACHE" default:"false"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" default:"shopify-webhooks"`

	LogLevel string `env:"LOG_LEVEL" default:"info"`
}

func loadEnvConfig(envFile string) (envConfig, error) {
	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return envConfig{}, err
		}
	}
	cfg := envConfig{}
	if err := env.Set(&cfg); err != nil {
		return envConfig{}, core.NewConfigurationError("shopify-app: load environment: "+err.Error(), nil)
	}
	return cfg, nil
}

// rawConfig maps the environment onto the keys read by the cfgx provider.
func (c envConfig) rawConfig() (map[string]any, error) {
	raw := map[string]any{
		"api_key":           c.APIKey,
		"api_secret_key":    c.APISecretKey,
		"scopes":            splitList(c.Scopes),
		"host_name":         c.HostName,
		"api_version":       strings.TrimSpace(c.APIVersion),
		"is_embedded_app":   c.EmbeddedApp,
		"user_agent_prefix": c.UserAgentPrefix,
	}
	if strings.TrimSpace(c.GracePeriod) != "" {
		grace, err := time.ParseDuration(c.GracePeriod)
		if err != nil {
			return nil, core.NewConfigurationError(
				"shopify-app: invalid embedded grace period",
				map[string]any{"value": c.GracePeriod},
			)
		}
		raw["oauth"] = map[string]any{"embedded_grace_period": grace}
	}
	return raw, nil
}

func (c envConfig) configProvider() (core.ConfigProvider, error) {
	raw, err := c.rawConfig()
	if err != nil {
		return nil, err
	}
	return core.NewCfgxConfigProvider(core.StaticRawConfigLoader{Values: raw}), nil
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
