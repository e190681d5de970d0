package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticRawConfigLoader serves a fixed raw map, typically decoded from a file
// or the environment by the caller.
type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load decodes the raw values over defaults. Required values are checked
// after runtime overrides are merged, not here.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw, cfgx.WithDefaults(defaults))
	if err != nil {
		return Config{}, fmt.Errorf("core: build config: %w", err)
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults, loaded and runtime config, later layers
// winning for any value they set.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false, true),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved.WithDefaults(), nil
}

// ResolveConfig runs provider and resolver the way New does.
func ResolveConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

// configToLayerMap skips zero values unless includeZero is set, so an unset
// field in a higher layer never clears a lower one. The loaded layer starts
// from defaults, so its booleans are always explicit and kept with
// includeBools. Runtime booleans can only switch a flag on.
func configToLayerMap(cfg Config, includeZero bool, includeBools bool) map[string]any {
	layer := map[string]any{}
	setString := func(key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = strings.TrimSpace(value)
		}
	}
	setString("api_key", cfg.APIKey)
	setString("api_secret_key", cfg.APISecretKey)
	setString("host_name", cfg.HostName)
	setString("api_version", string(cfg.APIVersion))
	setString("user_agent_prefix", cfg.UserAgentPrefix)
	setString("private_app_storefront_access_token", cfg.PrivateAppStorefrontAccessToken)
	if includeZero || len(cfg.Scopes) > 0 {
		layer["scopes"] = append([]string(nil), cfg.Scopes...)
	}
	if includeZero || includeBools || cfg.IsEmbeddedApp {
		layer["is_embedded_app"] = cfg.IsEmbeddedApp
	}
	if includeZero || includeBools || cfg.IsPrivateApp {
		layer["is_private_app"] = cfg.IsPrivateApp
	}

	oauth := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.OAuth.CookieName) != "" {
		oauth["cookie_name"] = cfg.OAuth.CookieName
	}
	if includeZero || cfg.OAuth.BeginCookieTTL > 0 {
		oauth["begin_cookie_ttl"] = cfg.OAuth.BeginCookieTTL
	}
	if includeZero || cfg.OAuth.EmbeddedGracePeriod > 0 {
		oauth["embedded_grace_period"] = cfg.OAuth.EmbeddedGracePeriod
	}
	if len(oauth) > 0 {
		layer["oauth"] = oauth
	}

	httpLayer := map[string]any{}
	if includeZero || cfg.HTTP.Timeout > 0 {
		httpLayer["timeout"] = cfg.HTTP.Timeout
	}
	if includeZero || cfg.HTTP.RetryMax > 0 {
		httpLayer["retry_max"] = cfg.HTTP.RetryMax
	}
	if includeZero || cfg.HTTP.MaxResponseBodyBytes > 0 {
		httpLayer["max_response_body_bytes"] = cfg.HTTP.MaxResponseBodyBytes
	}
	if len(httpLayer) > 0 {
		layer["http"] = httpLayer
	}
	return layer
}
