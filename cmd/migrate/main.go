package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/angelmondragon/ticketcart/pkg/db"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(options) (string, error){
	"create": func(o options) (string, error) {
		if o.name == "" {
			return "", fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name, time.Now())
		if err != nil {
			return "", err
		}
		return "created migration: " + path, nil
	},
	"validate": func(o options) (string, error) {
		if err := migrate.ValidateDir(o.dir); err != nil {
			return "", err
		}
		return "migration validation passed", nil
	},
}

// online commands run goose against the cart snapshot database.
var online = map[string]func(ctx context.Context, conn *sql.DB, dialect string, o options) error{
	"up": func(ctx context.Context, conn *sql.DB, dialect string, o options) error {
		return migrate.Run(ctx, conn, dialect, o.dir, "up")
	},
	"down": func(ctx context.Context, conn *sql.DB, dialect string, o options) error {
		return migrate.Run(ctx, conn, dialect, o.dir, "down")
	},
	"status": func(ctx context.Context, conn *sql.DB, dialect string, o options) error {
		return migrate.Run(ctx, conn, dialect, o.dir, "status")
	},
	"version": func(ctx context.Context, conn *sql.DB, dialect string, o options) error {
		if o.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, conn, dialect, o.dir, o.version)
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	var opts options
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": opts.dir,
	})

	if run, ok := offline[*cmd]; ok {
		msg, err := run(opts)
		if err != nil {
			fail("%s failed: %v", *cmd, err)
		}
		fmt.Println(msg)
		return
	}

	run, ok := online[*cmd]
	if !ok {
		fail("unknown -cmd value: %s", *cmd)
	}

	// The cart may not use sql storage, so resolve the TICKETCART_DB_*
	// fallbacks here as well.
	requireResource(ctx, logg, "database config", cfg.DB.EnsureDSN())
	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	conn, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)
	dialect, err := migrate.Dialect(dbClient.Driver())
	requireResource(ctx, logg, "goose dialect", err)

	ctx = logg.WithField(ctx, "dialect", dialect)
	logg.Info(ctx, "migrate ready")
	if err := run(ctx, conn, dialect, opts); err != nil {
		dbClient.Close()
		fail("goose %s failed: %v", *cmd, err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
