package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/security"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SHOPIFY_API_KEY", "test_key")
	t.Setenv("SHOPIFY_API_SECRET_KEY", "test_secret_key")
	t.Setenv("SHOPIFY_SCOPES", "read_products, write_orders,")
	t.Setenv("SHOPIFY_HOST_NAME", "app.example.com")
}

func TestLoadEnvConfig_DefaultsAndMissingEnvFile(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := loadEnvConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "unstable", cfg.APIVersion)
	require.True(t, cfg.EmbeddedApp)
	require.Equal(t, storeMemory, cfg.SessionStore)
	require.Equal(t, "30s", cfg.GracePeriod)
}

func TestRawConfig_MapsEnvironment(t *testing.T) {
	cfg := envConfig{
		APIKey:       "test_key",
		APISecretKey: "test_secret_key",
		Scopes:       "read_products, write_orders,",
		HostName:     "app.example.com",
		APIVersion:   " 2024-10 ",
		EmbeddedApp:  false,
		GracePeriod:  "45s",
	}
	raw, err := cfg.rawConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"read_products", "write_orders"}, raw["scopes"])
	require.Equal(t, "2024-10", raw["api_version"])
	require.Equal(t, false, raw["is_embedded_app"])
	require.Equal(t, map[string]any{"embedded_grace_period": 45 * time.Second}, raw["oauth"])
}

func TestRawConfig_RejectsBadGracePeriod(t *testing.T) {
	_, err := envConfig{GracePeriod: "soon"}.rawConfig()
	require.Error(t, err)
	require.Equal(t, core.ErrorConfiguration, core.MapError(err).TextCode)
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{}, splitList(""))
	require.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}

func TestOpenSessionStore_Backends(t *testing.T) {
	opened, err := openSessionStore(context.Background(), envConfig{SessionStore: "memory"})
	require.NoError(t, err)
	require.IsType(t, &core.MemorySessionStore{}, opened.store)
	require.Nil(t, opened.client)
	require.NoError(t, opened.Close())

	_, err = openSessionStore(context.Background(), envConfig{SessionStore: "dynamo"})
	require.Error(t, err)
	require.Equal(t, core.ErrorConfiguration, core.MapError(err).TextCode)
}

func TestSecretProvider_OpensValuesSealedWithPreviousKey(t *testing.T) {
	ctx := context.Background()
	old, err := secretProvider(envConfig{SessionKey: "old-key"})
	require.NoError(t, err)
	sealed, err := old.Encrypt(ctx, []byte("shpat_123"))
	require.NoError(t, err)

	rotated, err := secretProvider(envConfig{SessionKey: "new-key", PreviousKeys: "old-key"})
	require.NoError(t, err)
	require.IsType(t, &security.RotatingSecretProvider{}, rotated)
	opened, err := rotated.Decrypt(ctx, sealed)
	require.NoError(t, err)
	require.Equal(t, "shpat_123", string(opened))

	none, err := secretProvider(envConfig{})
	require.NoError(t, err)
	require.Nil(t, none)
}
