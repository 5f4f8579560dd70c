package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/angelmondragon/ticketcart/pkg/db"
	"github.com/angelmondragon/ticketcart/pkg/logger"
)

// MaybeRunDev applies pending migrations at startup when running in dev with
// TICKETCART_AUTO_MIGRATE enabled, or whenever the driver is sqlite since a
// fresh sqlite file has no other way to get its schema.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return nil
	}
	sqlite := client.Driver() == config.DriverSQLite
	if !sqlite && (!cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect, err := Dialect(client.Driver())
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "dialect": dialect})
	logg.Info(ctx, "migrate.autorun_started")

	if err := Run(ctx, sqlDB, dialect, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "migrate.autorun_completed")
	return nil
}
