package shopifyauth

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/security"
	"github.com/goliatone/go-shopify-auth/transport"
)

const (
	testShop   = "test-shop.myshopify.io"
	testKey    = "test_key"
	testSecret = "test_secret_key"
)

func testConfig() Config {
	return Config{
		APIKey:       testKey,
		APISecretKey: testSecret,
		Scopes:       []string{"read_products"},
		HostName:     "app.example.com",
		APIVersion:   core.APIVersionUnstable,
	}
}

// recordingDoer answers every request with the same canned response.
type recordingDoer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	status   int
	body     string
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	d.requests = append(d.requests, req)
	d.bodies = append(d.bodies, body)
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

func newTestApp(t *testing.T, opts ...Option) (*App, *core.MemorySessionStore) {
	t.Helper()
	store := core.NewMemorySessionStore()
	app, err := New(testConfig(), append([]Option{
		WithSessionStore(store),
		WithHTTPDoer(&recordingDoer{body: `{}`}),
	}, opts...)...)
	require.NoError(t, err)
	return app, store
}

func bearerRequest(t *testing.T, subject string) *http.Request {
	t.Helper()
	return bearerRequestWithBody(t, subject, "")
}

func bearerRequestWithBody(t *testing.T, subject string, body string) *http.Request {
	t.Helper()
	token, err := security.SignSessionToken(security.SessionTokenClaims{
		Dest: "https://" + testShop,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + testShop + "/admin",
			Audience:  jwt.ClaimStrings{testKey},
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testSecret)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "https://app.example.com/graphql", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestNew_ResolvesConfigAndWiresComponents(t *testing.T) {
	app, store := newTestApp(t)

	cfg := app.Config()
	require.Equal(t, core.DefaultCookieName, cfg.CookieName())
	require.Equal(t, core.DefaultEmbeddedGracePeriod, cfg.EmbeddedGracePeriod())
	require.True(t, cfg.IsEmbeddedApp)
	require.NotNil(t, app.Auth)
	require.NotNil(t, app.Webhooks)
	require.NotNil(t, app.Verifier)
	require.Same(t, store, app.SessionStore())
	require.NotNil(t, app.Logger())
}

func TestNew_LoadsRawConfigUnderRuntimeOverrides(t *testing.T) {
	provider := core.NewCfgxConfigProvider(core.StaticRawConfigLoader{Values: map[string]any{
		"api_key":        "from_file",
		"api_secret_key": testSecret,
		"scopes":         []string{"read_orders", "write_orders"},
		"host_name":      "file.example.com",
		"oauth": map[string]any{
			"embedded_grace_period": 45 * time.Second,
		},
	}})

	app, err := New(Config{HostName: "runtime.example.com"}, WithConfigProvider(provider), WithHTTPDoer(&recordingDoer{}))
	require.NoError(t, err)

	cfg := app.Config()
	require.Equal(t, "from_file", cfg.APIKey)
	require.Equal(t, "runtime.example.com", cfg.HostName)
	require.Equal(t, 45*time.Second, cfg.EmbeddedGracePeriod())
	require.True(t, cfg.ScopeSet().Equals(core.NewScopeSet("write_orders", "read_orders")))
}

func TestNew_ReportsEveryMissingValue(t *testing.T) {
	_, err := New(Config{}, WithHTTPDoer(&recordingDoer{}))
	require.Error(t, err)
	require.True(t, core.HasTextCode(err, core.ErrorConfiguration), "got %v", err)
	for _, label := range []string{"API_KEY", "API_SECRET_KEY", "SCOPES", "HOST_NAME"} {
		require.Contains(t, err.Error(), label)
	}
}

func TestNew_UsesInjectedDoerForTokenExchange(t *testing.T) {
	doer := &recordingDoer{body: `{"access_token":"offline_token","scope":"read_products"}`}
	app, _ := newTestApp(t, WithHTTPDoer(doer))

	session, err := app.Auth.ExchangeSessionToken(context.Background(), bearerToken(t, bearerRequest(t, "1")), false)
	require.NoError(t, err)
	require.Equal(t, "offline_"+testShop, session.ID)
	require.Len(t, doer.requests, 1)
	require.Equal(t, "https://"+testShop+"/admin/oauth/access_token", doer.requests[0].URL.String())

	stored, err := app.LoadOfflineSession(context.Background(), testShop, false)
	require.NoError(t, err)
	require.Equal(t, "offline_token", stored.AccessToken)
}

func bearerToken(t *testing.T, req *http.Request) string {
	t.Helper()
	return strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
}

var _ transport.HTTPDoer = (*recordingDoer)(nil)
