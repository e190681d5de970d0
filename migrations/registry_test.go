package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"

	shopifyauth "github.com/goliatone/go-shopify-auth"
)

func TestSources_ReturnsPostgresAndSQLite(t *testing.T) {
	sources, err := Sources(nil)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	for _, source := range sources {
		versions, err := source.Versions()
		if err != nil {
			t.Fatalf("versions %s: %v", source.Dialect, err)
		}
		if len(versions) != 1 || versions[0] != "00001_shopify_sessions" {
			t.Fatalf("unexpected %s versions %v", source.Dialect, versions)
		}
	}
	if sources[0].Dialect != DialectPostgres || sources[1].Path != "data/sql/migrations/sqlite" {
		t.Fatalf("unexpected sources %+v", sources)
	}
}

func TestSources_RejectsTreeWithoutMigrations(t *testing.T) {
	empty := fstest.MapFS{"data/sql/migrations/sqlite/README": &fstest.MapFile{Data: []byte("x")}}
	if _, err := Sources(empty); err == nil {
		t.Fatalf("expected error for a tree without up migrations")
	}
}

func TestForDialect(t *testing.T) {
	source, err := ForDialect(" SQLite ")
	if err != nil {
		t.Fatalf("for dialect: %v", err)
	}
	if source.Dialect != DialectSQLite {
		t.Fatalf("unexpected source %+v", source)
	}
	if _, err := ForDialect("mysql"); err == nil {
		t.Fatalf("expected unsupported dialect error")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	var labels []string
	registered, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		calls = append(calls, dialect)
		labels = append(labels, label)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(registered) != 1 {
		t.Fatalf("expected one registered source, got %d", len(registered))
	}

	if len(calls) != 1 || calls[0] != DialectSQLite {
		t.Fatalf("expected a single sqlite registration, got %v", calls)
	}
	if labels[0] != DefaultSourceLabel {
		t.Fatalf("expected default source label, got %q", labels[0])
	}
}

func TestRegister_RequiresRegisterFunc(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil register func")
	}
}

func TestSessionMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := shopifyauth.GetMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_shopify_sessions.up.sql",
		"data/sql/migrations/00001_shopify_sessions.down.sql",
		"data/sql/migrations/sqlite/00001_shopify_sessions.up.sql",
		"data/sql/migrations/sqlite/00001_shopify_sessions.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteSessionMigration_ApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file:migrations-sessions?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(shopifyauth.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_shopify_sessions.up.sql"); err != nil {
		t.Fatalf("apply up: %v", err)
	}

	insert := `INSERT INTO shopify_sessions (id, session_id, shop) VALUES (?, ?, ?)`
	if _, err := db.ExecContext(ctx, insert, "row-1", "offline_test.myshopify.com", "test.myshopify.com"); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	if _, err := db.ExecContext(ctx, insert, "row-2", "offline_test.myshopify.com", "test.myshopify.com"); err == nil {
		t.Fatalf("expected unique session_id violation")
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_shopify_sessions.down.sql"); err != nil {
		t.Fatalf("apply down: %v", err)
	}
	var name string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"shopify_sessions",
	).Scan(&name)
	if err != sql.ErrNoRows {
		t.Fatalf("expected table to be dropped, got %q err=%v", name, err)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
