package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-timeoff/pkg/config"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/storage"
)

// env bundles what every subcommand needs.
type env struct {
	Config config.Config
	Logger logger.Logger
	zap    *zap.Logger
}

func newEnv(cmd *cli.Command) (*env, error) {
	cfg, err := loadConfig(cmd.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if dsn := cmd.String(dsnFlag.Name); dsn != "" {
		cfg.Database.DSN = dsn
	}

	zl, err := newZap(cmd.Bool(debugFlag.Name) || cfg.Database.Debug)
	if err != nil {
		return nil, err
	}
	return &env{Config: cfg, Logger: logger.NewZap(zl), zap: zl}, nil
}

func (rt *env) Close() {
	_ = rt.zap.Sync()
}

// loadConfig reads path as YAML when given and layers it over the defaults.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load(nil)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var input map[string]any
	if err := yaml.Unmarshal(raw, &input); err != nil {
		return config.Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return config.Load(input)
}

func newZap(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// OpenDB opens the SQLite database and creates missing tables.
func (rt *env) OpenDB(ctx context.Context) (*bun.DB, error) {
	dsn := strings.TrimSpace(rt.Config.Database.DSN)
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}
	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := sqldb.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		rt.Logger.Warn("database: set busy timeout", logger.Err(err))
	}
	if err := storage.CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: create schema: %w", err)
	}
	return db, nil
}

func ensureSQLiteDir(dsn string) error {
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
