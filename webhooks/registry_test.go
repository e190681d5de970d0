package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/transport"
)

const testShop = "test-shop.myshopify.io"

func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.APIKey = "test_key"
	cfg.APISecretKey = "test_secret_key"
	cfg.Scopes = []string{"read_products"}
	cfg.HostName = "test_host_name"
	cfg.APIVersion = core.APIVersionOctober21
	return cfg
}

var callbackURLPattern = regexp.MustCompile(`callbackUrl: "([^"]+)"`)

// fakePlatform answers check queries from its current subscription and
// records mutations.
type fakePlatform struct {
	mu           sync.Mutex
	queries      []string
	checks       int
	mutations    int
	subscription *subscriptionNode
	mutationBody string
	err          error
}

func (p *fakePlatform) Query(_ context.Context, data any, _ map[string]string) (*transport.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	query, _ := data.(string)
	p.queries = append(p.queries, query)

	if strings.HasPrefix(strings.TrimSpace(query), "mutation") {
		p.mutations++
		if p.mutationBody != "" {
			return &transport.Response{StatusCode: http.StatusOK, Body: []byte(p.mutationBody)}, nil
		}
		name := "webhookSubscriptionCreate"
		if strings.Contains(query, "webhookSubscriptionUpdate") {
			name = "webhookSubscriptionUpdate"
		}
		address := ""
		if match := callbackURLPattern.FindStringSubmatch(query); match != nil {
			address = match[1]
		}
		p.subscription = &subscriptionNode{
			ID:       "gid://shopify/WebhookSubscription/12345",
			Endpoint: &subscriptionEndpoint{Typename: "WebhookHttpEndpoint", CallbackURL: address},
		}
		body := fmt.Sprintf(`{"data":{%q:{"userErrors":[],"webhookSubscription":{"id":%q}}}}`, name, p.subscription.ID)
		return &transport.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
	}

	p.checks++
	edges := []any{}
	if p.subscription != nil {
		node := map[string]any{"id": p.subscription.ID}
		if p.subscription.Endpoint != nil {
			node["endpoint"] = map[string]any{
				"__typename":  p.subscription.Endpoint.Typename,
				"callbackUrl": p.subscription.Endpoint.CallbackURL,
				"arn":         p.subscription.Endpoint.Arn,
			}
		} else {
			node["callbackUrl"] = p.subscription.CallbackURL
		}
		edges = append(edges, map[string]any{"node": node})
	}
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{"webhookSubscriptions": map[string]any{"edges": edges}},
	})
	return &transport.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func newTestRegistry(platform *fakePlatform, opts ...Option) *Registry {
	factory := WithClientFactory(func(string, core.Config, string) (transport.GraphqlQuerier, error) {
		return platform, nil
	})
	return NewRegistry(testConfig(), append([]Option{factory}, opts...)...)
}

func noopHandler() Handler {
	return HandlerFunc(func(context.Context, string, string, []byte) error { return nil })
}

func TestRegistry_RegisterCreatesSubscription(t *testing.T) {
	platform := &fakePlatform{}
	registry := newTestRegistry(platform)

	result, err := registry.Register(context.Background(), RegisterOptions{
		Topic:       "products/create",
		Path:        "/webhooks",
		AccessToken: "shpat_token",
		Shop:        testShop,
		Handler:     noopHandler(),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s", string(result.Result))
	}
	if platform.checks != 1 || platform.mutations != 1 {
		t.Fatalf("expected one check and one mutation, got %d/%d", platform.checks, platform.mutations)
	}
	mutation := platform.queries[1]
	if !strings.Contains(mutation, "webhookSubscriptionCreate(topic: PRODUCTS_CREATE") {
		t.Fatalf("unexpected mutation %s", mutation)
	}
	if !strings.Contains(mutation, `callbackUrl: "https://test_host_name/webhooks"`) {
		t.Fatalf("expected callback url in mutation %s", mutation)
	}
	entry, ok := registry.Entry("PRODUCTS_CREATE")
	if !ok || entry.Path != "/webhooks" {
		t.Fatalf("expected registry entry, got %#v", entry)
	}
}

func TestRegistry_RegisterTwiceMutatesOnce(t *testing.T) {
	platform := &fakePlatform{}
	registry := newTestRegistry(platform)
	opts := RegisterOptions{
		Topic:       "PRODUCTS_CREATE",
		Path:        "/webhooks",
		AccessToken: "shpat_token",
		Shop:        testShop,
		Handler:     noopHandler(),
	}

	for i := 0; i < 2; i++ {
		result, err := registry.Register(context.Background(), opts)
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if !result.Success {
			t.Fatalf("register %d reported failure", i)
		}
	}
	if platform.checks != 2 {
		t.Fatalf("expected two check queries, got %d", platform.checks)
	}
	if platform.mutations != 1 {
		t.Fatalf("expected a single mutation, got %d", platform.mutations)
	}
	if got := len(registry.Entries()); got != 1 {
		t.Fatalf("expected one entry, got %d", got)
	}
}

func TestRegistry_RegisterUpdatesChangedAddress(t *testing.T) {
	platform := &fakePlatform{subscription: &subscriptionNode{
		ID:       "gid://shopify/WebhookSubscription/1",
		Endpoint: &subscriptionEndpoint{Typename: "WebhookHttpEndpoint", CallbackURL: "https://old-host/webhooks"},
	}}
	registry := newTestRegistry(platform)

	result, err := registry.Register(context.Background(), RegisterOptions{
		Topic:       "PRODUCTS_CREATE",
		Path:        "/webhooks",
		AccessToken: "shpat_token",
		Shop:        testShop,
		Handler:     noopHandler(),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success")
	}
	mutation := platform.queries[1]
	if !strings.Contains(mutation, `webhookSubscriptionUpdate(id: "gid://shopify/WebhookSubscription/1"`) {
		t.Fatalf("expected update mutation, got %s", mutation)
	}
}

func TestRegistry_FailedMutationKeepsPreviousEntry(t *testing.T) {
	platform := &fakePlatform{
		mutationBody: `{"data":{"webhookSubscriptionCreate":{"userErrors":[{"field":"callbackUrl","message":"invalid"}],"webhookSubscription":null}}}`,
	}
	registry := newTestRegistry(platform)
	if err := registry.AddHandler("PRODUCTS_CREATE", "/old", noopHandler()); err != nil {
		t.Fatalf("add handler: %v", err)
	}

	result, err := registry.Register(context.Background(), RegisterOptions{
		Topic:       "PRODUCTS_CREATE",
		Path:        "/webhooks",
		AccessToken: "shpat_token",
		Shop:        testShop,
		Handler:     noopHandler(),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure when subscription is missing from response")
	}
	if !registry.IsWebhookPath("/old") || registry.IsWebhookPath("/webhooks") {
		t.Fatalf("expected previous entry to survive a failed registration")
	}
}

func TestRegistry_RejectsUnsupportedDeliveryMethod(t *testing.T) {
	platform := &fakePlatform{}
	cfg := testConfig()
	cfg.APIVersion = core.APIVersionApril21
	registry := NewRegistry(cfg, WithClientFactory(func(string, core.Config, string) (transport.GraphqlQuerier, error) {
		return platform, nil
	}))

	_, err := registry.Register(context.Background(), RegisterOptions{
		Topic:          "PRODUCTS_CREATE",
		Path:           "pubsub://my-project:my-topic",
		AccessToken:    "shpat_token",
		Shop:           testShop,
		DeliveryMethod: DeliveryMethodPubSub,
		Handler:        noopHandler(),
	})
	if !core.HasTextCode(err, core.ErrorUnsupportedClientType) {
		t.Fatalf("expected unsupported delivery method error, got %v", err)
	}
	if len(platform.queries) != 0 {
		t.Fatalf("expected no network call")
	}
}

func TestRegistry_RegisterRequiresOptions(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	_, err := registry.Register(context.Background(), RegisterOptions{Topic: "PRODUCTS_CREATE"})
	if !core.HasTextCode(err, core.ErrorMissingArgument) {
		t.Fatalf("expected argument error, got %v", err)
	}
	if !strings.Contains(err.Error(), "path") || !strings.Contains(err.Error(), "shop") {
		t.Fatalf("expected missing fields listed, got %v", err)
	}
}

func TestRegistry_ConcurrentRegistrationKeepsOneEntry(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = registry.AddHandler("orders/create", fmt.Sprintf("/webhooks/%d", i), noopHandler())
		}(i)
	}
	wg.Wait()
	entries := registry.Entries()
	if len(entries) != 1 || entries[0].Topic != "ORDERS_CREATE" {
		t.Fatalf("expected a single ORDERS_CREATE entry, got %#v", entries)
	}
}

func TestBuildCheckQuery_VersionGating(t *testing.T) {
	legacy := BuildCheckQuery("PRODUCTS_CREATE", core.APIVersionApril20)
	if strings.Contains(legacy, "endpoint") || !strings.Contains(legacy, "callbackUrl") {
		t.Fatalf("expected legacy query, got %s", legacy)
	}
	july20 := BuildCheckQuery("PRODUCTS_CREATE", core.APIVersionJuly20)
	if !strings.Contains(july20, "WebhookEventBridgeEndpoint") || strings.Contains(july20, "WebhookPubSubEndpoint") {
		t.Fatalf("expected endpoint union without pub/sub, got %s", july20)
	}
	unstable := BuildCheckQuery("products/create", core.APIVersionUnstable)
	if !strings.Contains(unstable, "WebhookPubSubEndpoint") || !strings.Contains(unstable, "topics: PRODUCTS_CREATE") {
		t.Fatalf("expected pub/sub fragment, got %s", unstable)
	}
}

func TestBuildMutation_DeliveryMethods(t *testing.T) {
	cases := map[string]struct {
		method   DeliveryMethod
		address  string
		id       string
		contains []string
	}{
		"http create": {
			method:   DeliveryMethodHTTP,
			address:  "https://host/webhooks",
			contains: []string{"webhookSubscriptionCreate(topic: PRODUCTS_CREATE", `{callbackUrl: "https://host/webhooks"}`},
		},
		"eventbridge update": {
			method:   DeliveryMethodEventBridge,
			address:  "arn:aws:events:us-east-1::event-source/aws.partner/shopify.com/1/source",
			id:       "gid://shopify/WebhookSubscription/9",
			contains: []string{`eventBridgeWebhookSubscriptionUpdate(id: "gid://shopify/WebhookSubscription/9"`, `{arn: "arn:aws:events`},
		},
		"pubsub create": {
			method:   DeliveryMethodPubSub,
			address:  "pubsub://my-project:my-topic",
			contains: []string{"pubSubWebhookSubscriptionCreate", `pubSubProject: "my-project"`, `pubSubTopic: "my-topic"`},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			mutation, err := BuildMutation("PRODUCTS_CREATE", tc.address, tc.method, core.APIVersionOctober21, tc.id)
			if err != nil {
				t.Fatalf("build mutation: %v", err)
			}
			for _, fragment := range tc.contains {
				if !strings.Contains(mutation, fragment) {
					t.Fatalf("expected %q in %s", fragment, mutation)
				}
			}
			if !strings.Contains(mutation, "userErrors") {
				t.Fatalf("expected user errors selection")
			}
		})
	}

	if _, err := BuildMutation("PRODUCTS_CREATE", "my-project", DeliveryMethodPubSub, core.APIVersionOctober21, ""); err == nil {
		t.Fatalf("expected malformed pub/sub address to fail")
	}
	if _, err := BuildMutation("PRODUCTS_CREATE) { id } #", "https://h/w", DeliveryMethodHTTP, core.APIVersionOctober21, ""); err == nil {
		t.Fatalf("expected invalid topic to fail")
	}
}

func TestSubscriptionNodeAddress(t *testing.T) {
	legacy := subscriptionNode{CallbackURL: "https://host/legacy"}
	if legacy.address() != "https://host/legacy" {
		t.Fatalf("unexpected legacy address %s", legacy.address())
	}
	pubsub := subscriptionNode{Endpoint: &subscriptionEndpoint{
		Typename:      "WebhookPubSubEndpoint",
		PubSubProject: "p",
		PubSubTopic:   "t",
	}}
	if pubsub.address() != "pubsub://p:t" {
		t.Fatalf("unexpected pub/sub address %s", pubsub.address())
	}
}
