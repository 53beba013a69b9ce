// Package store is the Document Store Adapter (§4.5): the relational
// collections (events, messages, triggers, contacts, context
// dismissals) on GORM across a driver switch, push-subscriptions on
// Redis, and the hybrid keyword+vector search over events.
package store

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	glebarezsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/argus-assistant/argus/internal/model"
)

// DatabaseConfig selects and configures the relational backend.
type DatabaseConfig struct {
	Driver string // "postgres", "mysql", or "sqlite"
	DSN    string
}

// OpenDatabase opens a GORM connection for the configured driver,
// grounded on the teacher's openDatabase driver switch, generalized to
// all three drivers carried in go.mod instead of only postgres.
func OpenDatabase(cfg DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = glebarezsqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, mysql, sqlite)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logger.Info("database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

// AutoMigrate creates/updates the relational schema for the five
// GORM-backed collections. Migrations beyond the initial schema are
// applied separately via golang-migrate (see internal/store/migrate.go).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Message{},
		&model.Contact{},
		&model.Event{},
		&model.Trigger{},
		&model.ContextDismissal{},
	)
}
