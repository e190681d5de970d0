package shopifyauth

import (
	"github.com/goliatone/go-shopify-auth/command"
	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/query"
)

type CommandQueryService interface {
	command.WebhookRegistrar
	command.SessionWriter
	query.SessionReader
}

type Commands struct {
	RegisterWebhook      *command.RegisterWebhookCommand
	StoreSession         *command.StoreSessionCommand
	DeleteSession        *command.DeleteSessionCommand
	DeleteOfflineSession *command.DeleteOfflineSessionCommand
}

type Queries struct {
	LoadSession        *query.LoadSessionQuery
	LoadOfflineSession *query.LoadOfflineSessionQuery
	ListShopSessions   *query.ListShopSessionsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	lister query.ShopSessionLister
}

// WithShopSessionLister overrides the lister used by ListShopSessions.
func WithShopSessionLister(lister query.ShopSessionLister) FacadeOption {
	return func(options *facadeOptions) {
		options.lister = lister
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, core.NewConfigurationError("shopify: command/query service is required", nil)
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	lister := cfg.lister
	if lister == nil {
		lister = resolveShopSessionLister(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RegisterWebhook:      command.NewRegisterWebhookCommand(service),
		StoreSession:         command.NewStoreSessionCommand(service),
		DeleteSession:        command.NewDeleteSessionCommand(service),
		DeleteOfflineSession: command.NewDeleteOfflineSessionCommand(service),
	}
	facade.queries = Queries{
		LoadSession:        query.NewLoadSessionQuery(service),
		LoadOfflineSession: query.NewLoadOfflineSessionQuery(service),
		ListShopSessions:   query.NewListShopSessionsQuery(lister),
	}
	return facade, nil
}

// Facade returns the command/query bundle backed by the app.
func (a *App) Facade(opts ...FacadeOption) (*Facade, error) {
	return NewFacade(a, opts...)
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveShopSessionLister(service CommandQueryService) query.ShopSessionLister {
	if lister, ok := service.(query.ShopSessionLister); ok {
		return lister
	}
	return nil
}

var (
	_ CommandQueryService     = (*App)(nil)
	_ query.ShopSessionLister = (*App)(nil)
)
