// Package migrations exposes the embedded shopify_sessions schema per SQL
// dialect, in the shape go-persistence-bun registers migrations.
package migrations

import (
	"context"
	"io/fs"
	"net/http"
	"slices"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	shopifyauth "github.com/goliatone/go-shopify-auth"
	"github.com/goliatone/go-shopify-auth/core"
)

const DefaultSourceLabel = "go-shopify-auth"

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const migrationsDir = "data/sql/migrations"

// Source is the migration tree of one dialect. Postgres files live at the
// root of data/sql/migrations, sqlite overrides in its sqlite directory.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Versions lists the up migrations of the source in apply order.
func (s Source) Versions() ([]string, error) {
	matches, err := fs.Glob(s.FS, "*.up.sql")
	if err != nil {
		return nil, core.NewConfigurationError("migrations: list "+s.Dialect+" migrations", map[string]any{"error": err.Error()})
	}
	sort.Strings(matches)
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, strings.TrimSuffix(match, ".up.sql"))
	}
	return out, nil
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type registration struct {
	label   string
	targets []string
	root    fs.FS
}

type Option func(*registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.label = trimmed
		}
	}
}

// WithValidationTargets limits registration to the named dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *registration) {
		next := normalizeDialects(targets)
		if len(next) > 0 {
			r.targets = next
		}
	}
}

// WithRoot reads migrations from fsys instead of the embedded tree.
func WithRoot(fsys fs.FS) Option {
	return func(r *registration) {
		if fsys != nil {
			r.root = fsys
		}
	}
}

// Sources returns the postgres and sqlite trees under root, or under the
// embedded tree when root is nil. Each tree must hold at least one up file.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = shopifyauth.GetMigrationsFS()
	}
	base, err := fs.Sub(root, migrationsDir)
	if err != nil {
		return nil, core.NewConfigurationError("migrations: "+migrationsDir+" not found", map[string]any{"error": err.Error()})
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, core.NewConfigurationError("migrations: sqlite migrations not found", map[string]any{"error": err.Error()})
	}
	sources := []Source{
		{Dialect: DialectPostgres, Path: migrationsDir, FS: base},
		{Dialect: DialectSQLite, Path: migrationsDir + "/" + DialectSQLite, FS: sqliteFS},
	}
	for _, source := range sources {
		versions, err := source.Versions()
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, core.NewConfigurationError(
				"migrations: no up migrations for "+source.Dialect,
				map[string]any{"path": source.Path},
			)
		}
	}
	return sources, nil
}

// ForDialect returns the embedded source of a single dialect.
func ForDialect(dialect string) (Source, error) {
	sources, err := Sources(nil)
	if err != nil {
		return Source{}, err
	}
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	for _, source := range sources {
		if source.Dialect == dialect {
			return source, nil
		}
	}
	return Source{}, core.NewConfigurationError("migrations: unsupported dialect", map[string]any{"dialect": dialect})
}

// Register calls registerFn for every targeted dialect. Both dialects are
// targeted unless WithValidationTargets narrows them.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) ([]Source, error) {
	if registerFn == nil {
		return nil, core.NewConfigurationError("migrations: register function is required", nil)
	}
	reg := registration{
		label:   DefaultSourceLabel,
		targets: []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	sources, err := Sources(reg.root)
	if err != nil {
		return nil, err
	}
	registered := make([]Source, 0, len(reg.targets))
	for _, source := range sources {
		if !slices.Contains(reg.targets, source.Dialect) {
			continue
		}
		if err := registerFn(ctx, source.Dialect, reg.label, source.FS); err != nil {
			return registered, core.WrapError(err, goerrors.CategoryInternal, "migrations: register "+source.Dialect,
				http.StatusInternalServerError, core.ErrorConfiguration, map[string]any{"path": source.Path})
		}
		registered = append(registered, source)
	}
	return registered, nil
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" && !slices.Contains(out, value) {
			out = append(out, value)
		}
	}
	return out
}
