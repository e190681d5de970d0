package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-shopify-auth/core"
)

// NewSessionStoreFromPersistence builds a SessionStore on the bun handle of
// a go-persistence-bun client.
func NewSessionStoreFromPersistence(client *persistence.Client, opts ...SessionStoreOption) (*SessionStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewSessionStore(db, opts...)
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, core.NewConfigurationError("sqlstore: persistence client is required", nil)
	case *persistence.Client:
		if typed == nil {
			return nil, core.NewConfigurationError("sqlstore: persistence client is required", nil)
		}
		return resolveBunDB(typed.DB())
	case *bun.DB:
		if typed == nil {
			return nil, core.NewConfigurationError("sqlstore: bun db is required", nil)
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, core.NewConfigurationError("sqlstore: persistence client returned nil bun db", nil)
		}
		return db, nil
	default:
		return nil, core.NewConfigurationError("sqlstore: unsupported persistence client type", map[string]any{"type": fmt.Sprintf("%T", candidate)})
	}
}
