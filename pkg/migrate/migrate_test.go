package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/angelmondragon/ticketcart/pkg/db"
	"github.com/angelmondragon/ticketcart/pkg/logger"
)

func TestDialect(t *testing.T) {
	got, err := Dialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", got)

	got, err = Dialect("SQLite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", got)

	_, err = Dialect("mysql")
	require.Error(t, err)
}

func TestCartSnapshotsMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_cart_snapshots.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS cart_snapshots",
		"storage_key VARCHAR(255) PRIMARY KEY",
		"DROP TABLE IF EXISTS cart_snapshots",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "add_carts.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	unbalanced := "-- +goose Up\n-- +goose StatementBegin\nCREATE TABLE promo_cache (code TEXT);\n-- +goose Down\nDROP TABLE promo_cache;\n"
	postgresOnly := "-- +goose Up\nCREATE TABLE holds (id BIGSERIAL, payload JSONB);\n-- +goose Down\nDROP TABLE holds;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260102000000_promo_cache.sql"), []byte(unbalanced), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260103000000_holds.sql"), []byte(postgresOnly), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.Contains(t, err.Error(), "StatementBegin")
	assert.Contains(t, err.Error(), "BIGSERIAL")
	assert.Contains(t, err.Error(), "JSONB")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Promo Cache!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260304050607_add_promo_cache.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "add promo cache", now.Add(time.Hour))
	require.Error(t, err)

	_, err = CreateSQLMigration(dir, " !! ", now)
	require.Error(t, err)
}

func TestRunAppliesMigrationsOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "carts.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, Run(ctx, sqlDB, "sqlite3", "migrations", "up"))
	assert.True(t, conn.Migrator().HasTable("cart_snapshots"))

	require.NoError(t, Run(ctx, sqlDB, "sqlite3", "migrations", "down"))
	assert.False(t, conn.Migrator().HasTable("cart_snapshots"))
}

func TestMaybeRunDevWithoutClient(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvDev}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), nil))
}

func TestWrappedSQLiteClientSelectsSQLiteDialect(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "carts.db")), &gorm.Config{})
	require.NoError(t, err)

	dialect, err := Dialect(db.Wrap(conn).Driver())
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", dialect)
}
