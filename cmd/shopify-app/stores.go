package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/migrations"
	"github.com/goliatone/go-shopify-auth/security"
	redisstore "github.com/goliatone/go-shopify-auth/store/redis"
	sqlstore "github.com/goliatone/go-shopify-auth/store/sql"
)

const (
	storeMemory   = "memory"
	storeSQLite   = "sqlite"
	storePostgres = "postgres"
	storeRedis    = "redis"
)

type persistenceConfig struct {
	driver string
	server string
}

func (c persistenceConfig) GetDebug() bool                { return false }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-shopify-auth" }

// openedStore is a session backend plus whatever must be closed with it.
type openedStore struct {
	store  core.SessionStore
	client *persistence.Client
	close  func() error
}

func (o openedStore) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// secretProvider seals tokens with SESSION_ENCRYPTION_KEY and still opens
// values sealed with any of SESSION_ENCRYPTION_PREVIOUS_KEYS.
func secretProvider(cfg envConfig) (core.SecretProvider, error) {
	if strings.TrimSpace(cfg.SessionKey) == "" {
		return nil, nil
	}
	current, err := appKeyProvider(cfg.SessionKey)
	if err != nil {
		return nil, err
	}
	previous := splitList(cfg.PreviousKeys)
	if len(previous) == 0 {
		return current, nil
	}
	retired := make([]core.SecretProvider, 0, len(previous))
	for _, key := range previous {
		provider, err := appKeyProvider(key)
		if err != nil {
			return nil, err
		}
		retired = append(retired, provider)
	}
	return security.NewRotatingSecretProvider(current, security.WithRetiredSecretProviders(retired...))
}

// appKeyProvider names each key by a digest prefix so sealed values record
// which key produced them.
func appKeyProvider(key string) (*security.AppKeySecretProvider, error) {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return security.NewAppKeySecretProviderFromString(key, security.WithKeyID("key-"+hex.EncodeToString(sum[:4])))
}

func openSessionStore(ctx context.Context, cfg envConfig) (openedStore, error) {
	secrets, err := secretProvider(cfg)
	if err != nil {
		return openedStore{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.SessionStore)) {
	case "", storeMemory:
		return openedStore{store: core.NewMemorySessionStore()}, nil
	case storeRedis:
		var opts []redisstore.Option
		if secrets != nil {
			opts = append(opts, redisstore.WithSecretProvider(secrets))
		}
		store, client, err := redisstore.NewSessionStoreFromURL(ctx, cfg.RedisURL, opts...)
		if err != nil {
			return openedStore{}, err
		}
		return openedStore{store: store, close: client.Close}, nil
	case storeSQLite, storePostgres:
		client, err := openPersistence(cfg)
		if err != nil {
			return openedStore{}, err
		}
		var opts []sqlstore.SessionStoreOption
		if secrets != nil {
			opts = append(opts, sqlstore.WithSecretProvider(secrets))
		}
		store, err := sqlstore.NewSessionStoreFromPersistence(client, opts...)
		if err != nil {
			_ = client.Close()
			return openedStore{}, err
		}
		opened := openedStore{store: store, client: client, close: client.Close}
		if cfg.SessionCaching {
			cacheService, err := repositorycache.NewCacheService(repositorycache.DefaultConfig())
			if err != nil {
				_ = client.Close()
				return openedStore{}, err
			}
			cached, err := sqlstore.NewCachedSessionStore(store, cacheService)
			if err != nil {
				_ = client.Close()
				return openedStore{}, err
			}
			opened.store = cached
		}
		return opened, nil
	default:
		return openedStore{}, core.NewConfigurationError(
			"shopify-app: unsupported session store",
			map[string]any{"session_store": cfg.SessionStore},
		)
	}
}

func openPersistence(cfg envConfig) (*persistence.Client, error) {
	postgres := strings.EqualFold(cfg.SessionStore, storePostgres)
	driver := "sqlite3"
	if postgres {
		driver = "postgres"
	}
	sqlDB, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, core.NewSessionStorageError("shopify-app: open database", err, map[string]any{"driver": driver})
	}

	pcfg := persistenceConfig{driver: driver, server: cfg.DatabaseURL}
	var client *persistence.Client
	if postgres {
		client, err = persistence.New(pcfg, sqlDB, pgdialect.New())
	} else {
		sqlDB.SetMaxOpenConns(1)
		client, err = persistence.New(pcfg, sqlDB, sqlitedialect.New())
	}
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return client, nil
}

// migrate applies the embedded session migrations for the configured
// dialect and returns the versions it registered.
func migrate(ctx context.Context, client *persistence.Client, storeKind string) ([]string, error) {
	dialect := migrations.DialectSQLite
	if strings.EqualFold(storeKind, storePostgres) {
		dialect = migrations.DialectPostgres
	}
	source, err := migrations.ForDialect(dialect)
	if err != nil {
		return nil, err
	}
	versions, err := source.Versions()
	if err != nil {
		return nil, err
	}
	client.RegisterSQLMigrations(source.FS)
	if err := client.Migrate(ctx); err != nil {
		return nil, core.NewSessionStorageError("shopify-app: apply session migrations", err, map[string]any{"dialect": dialect})
	}
	return versions, nil
}
