package shopifyauth

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/oauth"
	"github.com/goliatone/go-shopify-auth/security"
	"github.com/goliatone/go-shopify-auth/transport"
	"github.com/goliatone/go-shopify-auth/webhooks"
)

const loggerName = "shopify"

type Config = core.Config

type Session = core.Session

type SessionStore = core.SessionStore

func DefaultConfig() Config {
	return core.DefaultConfig()
}

type Option func(*appBuilder)

type appBuilder struct {
	runtime         Config
	store           core.SessionStore
	logger          glog.Logger
	loggerProvider  glog.LoggerProvider
	metrics         core.MetricsRecorder
	doer            transport.HTTPDoer
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	engineOptions   []oauth.Option
	registryOptions []webhooks.Option
	tokenOptions    []security.TokenOption
}

// WithSessionStore injects the session backend. The in-memory store is used
// when none is given.
func WithSessionStore(store core.SessionStore) Option {
	return func(b *appBuilder) {
		b.store = store
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(b *appBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(b *appBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *appBuilder) {
		b.metrics = recorder
	}
}

// WithHTTPDoer replaces the retrying client used for every outbound call.
func WithHTTPDoer(doer transport.HTTPDoer) Option {
	return func(b *appBuilder) {
		b.doer = doer
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *appBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *appBuilder) {
		b.optionsResolver = resolver
	}
}

func WithEngineOptions(opts ...oauth.Option) Option {
	return func(b *appBuilder) {
		b.engineOptions = append(b.engineOptions, opts...)
	}
}

func WithRegistryOptions(opts ...webhooks.Option) Option {
	return func(b *appBuilder) {
		b.registryOptions = append(b.registryOptions, opts...)
	}
}

func WithTokenOptions(opts ...security.TokenOption) Option {
	return func(b *appBuilder) {
		b.tokenOptions = append(b.tokenOptions, opts...)
	}
}

// App bundles the OAuth engine, the webhook registry and the session helpers
// around one resolved configuration.
type App struct {
	cfg      Config
	store    core.SessionStore
	doer     transport.HTTPDoer
	logger   glog.Logger
	observer *core.Observer

	Auth     *oauth.Engine
	Webhooks *webhooks.Registry
	Verifier *security.Verifier
}

func New(cfg Config, opts ...Option) (*App, error) {
	builder := appBuilder{runtime: cfg}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(loggerName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(loggerName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	resolved, err := core.ResolveConfig(context.Background(), builder.runtime, builder.configProvider, builder.optionsResolver)
	if err != nil {
		return nil, core.MapError(err)
	}

	if builder.store == nil {
		builder.store = core.NewMemorySessionStore()
	}
	if builder.doer == nil {
		builder.doer = transport.NewDefaultHTTPClient(resolved.HTTP, logger)
	}
	observer := core.NewObserver(logger, builder.metrics)
	verifier := security.NewVerifier(resolved, builder.tokenOptions...)

	engineOptions := append([]oauth.Option{
		oauth.WithObserver(observer),
		oauth.WithVerifier(verifier),
		oauth.WithCodeExchanger(transport.NewAccessTokenClient(resolved, builder.doer)),
		oauth.WithSessionTokenExchanger(transport.NewSessionTokenExchangeClient(resolved, builder.doer)),
	}, builder.engineOptions...)
	engine, err := oauth.NewEngine(resolved, builder.store, engineOptions...)
	if err != nil {
		return nil, err
	}

	registryOptions := append([]webhooks.Option{
		webhooks.WithObserver(observer),
		webhooks.WithHTTPDoer(builder.doer),
	}, builder.registryOptions...)

	return &App{
		cfg:      resolved,
		store:    builder.store,
		doer:     builder.doer,
		logger:   logger,
		observer: observer,
		Auth:     engine,
		Webhooks: webhooks.NewRegistry(resolved, registryOptions...),
		Verifier: verifier,
	}, nil
}

func (a *App) Config() Config {
	return a.cfg
}

func (a *App) SessionStore() core.SessionStore {
	return a.store
}

func (a *App) Logger() glog.Logger {
	if a == nil {
		return glog.Nop()
	}
	return a.logger
}
