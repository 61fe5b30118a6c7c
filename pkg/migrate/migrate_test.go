package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/pdv-terminal/pkg/config"
	"github.com/angelmondragon/pdv-terminal/pkg/db"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestClient(t *testing.T, name string) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	client := db.NewFromGorm(conn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocalStateMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_local_state.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no local state migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS local_state",
		"state_key VARCHAR(191) PRIMARY KEY",
		"DROP TABLE IF EXISTS local_state",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDir(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("expected bundled migrations to validate: %v", err)
	}
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("expected embedded migrations to validate: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Register Column")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_register_column.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestDialect(t *testing.T) {
	if d, err := Dialect("SQLite"); err != nil || d != "sqlite3" {
		t.Fatalf("expected sqlite3 dialect, got %q err=%v", d, err)
	}
	if d, err := Dialect("postgres"); err != nil || d != "postgres" {
		t.Fatalf("expected postgres dialect, got %q err=%v", d, err)
	}
	if _, err := Dialect("redis"); err == nil {
		t.Fatal("expected error for non-sql driver")
	}
}

func TestMaybeRunAppliesEmbeddedMigrations(t *testing.T) {
	client := newTestClient(t, "maybe_run_applies")
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		Store:        config.StoreConfig{Driver: config.StoreDriverSQLite},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}

	if err := MaybeRun(context.Background(), cfg, logger.Nop(), client); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if !client.DB().Migrator().HasTable("local_state") {
		t.Fatal("expected local_state table after migration")
	}
}

func TestMaybeRunSkipsWhenDisabled(t *testing.T) {
	client := newTestClient(t, "maybe_run_skips")
	cfg := &config.Config{
		Store:        config.StoreConfig{Driver: config.StoreDriverSQLite},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: false},
	}

	if err := MaybeRun(context.Background(), cfg, logger.Nop(), client); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.DB().Migrator().HasTable("local_state") {
		t.Fatal("migrations should not run when auto migrate is disabled")
	}
}
