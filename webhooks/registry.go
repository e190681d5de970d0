package webhooks

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/transport"
)

// Handler consumes a verified delivery. topic is the normalized topic.
type Handler interface {
	HandleWebhook(ctx context.Context, topic string, shop string, body []byte) error
}

type HandlerFunc func(ctx context.Context, topic string, shop string, body []byte) error

func (f HandlerFunc) HandleWebhook(ctx context.Context, topic string, shop string, body []byte) error {
	return f(ctx, topic, shop, body)
}

type Entry struct {
	Path           string
	Topic          string
	DeliveryMethod DeliveryMethod
	Handler        Handler
}

// ClientFactory builds the GraphQL client used to reconcile subscriptions.
type ClientFactory func(shop string, cfg core.Config, accessToken string) (transport.GraphqlQuerier, error)

type RegisterOptions struct {
	Topic          string
	Path           string
	AccessToken    string
	Shop           string
	DeliveryMethod DeliveryMethod
	Handler        Handler
}

type RegisterResult struct {
	Success bool
	// Result is the raw mutation response, or {} when no mutation was needed.
	Result json.RawMessage
}

type Option func(*Registry)

func WithClientFactory(factory ClientFactory) Option {
	return func(r *Registry) {
		if factory != nil {
			r.clients = factory
		}
	}
}

// WithHTTPDoer sets the doer used by the default client factory.
func WithHTTPDoer(doer transport.HTTPDoer) Option {
	return func(r *Registry) {
		r.doer = doer
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(r *Registry) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithDeliveryGuard enables redelivery suppression keyed by the webhook id
// header.
func WithDeliveryGuard(guard DeliveryGuard) Option {
	return func(r *Registry) {
		r.guard = guard
	}
}

func WithMaxBodyBytes(limit int64) Option {
	return func(r *Registry) {
		if limit > 0 {
			r.maxBodyBytes = limit
		}
	}
}

// Registry maps normalized topics to their handler. Reads never block
// registrations.
type Registry struct {
	cfg          core.Config
	entries      *xsync.MapOf[string, Entry]
	clients      ClientFactory
	doer         transport.HTTPDoer
	observer     *core.Observer
	guard        DeliveryGuard
	maxBodyBytes int64
}

func NewRegistry(cfg core.Config, opts ...Option) *Registry {
	cfg = cfg.WithDefaults()
	registry := &Registry{
		cfg:          cfg,
		entries:      xsync.NewMapOf[string, Entry](),
		observer:     core.NewObserver(nil, nil),
		maxBodyBytes: cfg.HTTP.MaxResponseBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	if registry.clients == nil {
		registry.clients = registry.defaultClient
	}
	return registry
}

func (r *Registry) defaultClient(shop string, cfg core.Config, accessToken string) (transport.GraphqlQuerier, error) {
	client, err := transport.NewGraphqlClient(shop, cfg, accessToken, r.doer)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Register reconciles the subscription for opts.Topic with the platform and,
// once confirmed, replaces the registry entry for that topic.
func (r *Registry) Register(ctx context.Context, opts RegisterOptions) (result RegisterResult, err error) {
	startedAt := time.Now()
	topic := NormalizeTopic(opts.Topic)
	method := normalizeDeliveryMethod(opts.DeliveryMethod)
	defer func() {
		r.observer.Observe(ctx, startedAt, "register_webhook", err, map[string]any{
			"shop":            opts.Shop,
			"topic":           topic,
			"delivery_method": string(method),
			"success":         result.Success,
		})
	}()

	if err := r.cfg.EnsureInitialized(); err != nil {
		return RegisterResult{}, err
	}
	var missing []string
	if strings.TrimSpace(opts.Shop) == "" {
		missing = append(missing, "shop")
	}
	if err := validateEntry(topic, opts.Path, opts.Handler, missing); err != nil {
		return RegisterResult{}, err
	}
	version := r.cfg.Version()
	if err := ValidateDeliveryMethod(method, version); err != nil {
		return RegisterResult{}, err
	}

	client, err := r.clients(opts.Shop, r.cfg, opts.AccessToken)
	if err != nil {
		return RegisterResult{}, err
	}
	address := deliveryAddress(method, r.cfg.HostName, opts.Path)

	checked, err := client.Query(ctx, BuildCheckQuery(topic, version), nil)
	if err != nil {
		return RegisterResult{}, err
	}
	webhookID, current, found, err := existingSubscription(checked.Body)
	if err != nil {
		return RegisterResult{}, err
	}

	result = RegisterResult{Success: true, Result: json.RawMessage(`{}`)}
	if !found || current != address {
		mutation, err := BuildMutation(topic, address, method, version, webhookID)
		if err != nil {
			return RegisterResult{}, err
		}
		res, err := client.Query(ctx, mutation, nil)
		if err != nil {
			return RegisterResult{}, err
		}
		result = RegisterResult{
			Success: mutationSucceeded(res.Body, method, webhookID),
			Result:  json.RawMessage(res.Body),
		}
	}

	if result.Success {
		r.store(Entry{Path: opts.Path, Topic: topic, DeliveryMethod: method, Handler: opts.Handler})
	}
	return result, nil
}

func (r *Registry) store(entry Entry) {
	replaced := false
	r.entries.Compute(entry.Topic, func(_ Entry, loaded bool) (Entry, bool) {
		replaced = loaded
		return entry, false
	})
	r.observer.Debug(context.Background(), "webhook handler registered", map[string]any{
		"topic":    entry.Topic,
		"path":     entry.Path,
		"replaced": replaced,
	})
}

// AddHandler registers a handler locally without reconciling with the
// platform, for subscriptions managed elsewhere.
func (r *Registry) AddHandler(topic string, path string, handler Handler) error {
	topic = NormalizeTopic(topic)
	if err := validateEntry(topic, path, handler, nil); err != nil {
		return err
	}
	r.store(Entry{Path: path, Topic: topic, DeliveryMethod: DeliveryMethodHTTP, Handler: handler})
	return nil
}

func (r *Registry) Remove(topic string) {
	r.entries.Delete(NormalizeTopic(topic))
}

func (r *Registry) Entry(topic string) (Entry, bool) {
	return r.entries.Load(NormalizeTopic(topic))
}

// Entries returns a snapshot sorted by topic.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, r.entries.Size())
	r.entries.Range(func(_ string, entry Entry) bool {
		out = append(out, entry)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

func (r *Registry) IsWebhookPath(path string) bool {
	matched := false
	r.entries.Range(func(_ string, entry Entry) bool {
		if entry.Path == path {
			matched = true
			return false
		}
		return true
	})
	return matched
}

func validateEntry(topic string, path string, handler Handler, missing []string) error {
	if topic == "" {
		missing = append(missing, "topic")
	}
	if strings.TrimSpace(path) == "" {
		missing = append(missing, "path")
	}
	if handler == nil {
		missing = append(missing, "handler")
	}
	if len(missing) > 0 {
		return core.NewArgumentError(
			"webhooks: missing webhook options: "+strings.Join(missing, ", "),
			map[string]any{"missing": missing},
		)
	}
	if !topicPattern.MatchString(topic) {
		return core.NewArgumentError("webhooks: invalid topic", map[string]any{"topic": topic})
	}
	return nil
}
