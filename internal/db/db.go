// Package db opens the engine's datastore. Local installs run on a sqlite
// file; deployments that set a DSN get postgres with the same schema.
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cardiacai/riskengine/internal/config"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

// Open connects to the configured datastore. Schema migration is owned by the
// packages that define the tables, not here.
func Open(cfg config.DBConfig, log *logger.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	if cfg.DSN != "" {
		log.Info("Connecting to Postgres...")
		gdb, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
		if err != nil {
			log.Error("Failed to connect to Postgres", "error", err)
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return gdb, nil
	}

	path := cfg.Path
	if path == "" {
		path = "riskengine.db"
	}
	log.Info("Opening sqlite datastore", "path", path)
	gdb, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		log.Error("Failed to open sqlite datastore", "error", err)
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	return gdb, nil
}
