package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

//go:embed migrations/mysql/*.sql
var mysqlMigrations embed.FS

// Migrate applies pending schema migrations using golang-migrate,
// grounded on the teacher's internal/migration.DefaultMigrator but
// narrowed to this module's own embedded SQL set. Returns nil if the
// schema is already current.
func Migrate(driverName string, db *gorm.DB, logger *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get underlying *sql.DB: %w", err)
	}

	var (
		dbDriver    database.Driver
		migrationFS embed.FS
		subdir      string
	)

	switch driverName {
	case "sqlite":
		d, err := sqlite.WithInstance(sqlDB, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("sqlite migrate driver: %w", err)
		}
		dbDriver, migrationFS, subdir = d, sqliteMigrations, "migrations/sqlite"
	case "postgres":
		d, err := postgres.WithInstance(sqlDB, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("postgres migrate driver: %w", err)
		}
		dbDriver, migrationFS, subdir = d, postgresMigrations, "migrations/postgres"
	case "mysql":
		d, err := mysql.WithInstance(sqlDB, &mysql.Config{})
		if err != nil {
			return fmt.Errorf("mysql migrate driver: %w", err)
		}
		dbDriver, migrationFS, subdir = d, mysqlMigrations, "migrations/mysql"
	default:
		return fmt.Errorf("unsupported migration driver: %s", driverName)
	}

	src, err := iofs.New(migrationFS, subdir)
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, dbDriver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("schema migrations applied", zap.String("driver", driverName))
	return nil
}

// migrator builds the same golang-migrate instance Migrate uses,
// shared by the down/version helpers below.
func migrator(driverName string, db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying *sql.DB: %w", err)
	}

	var (
		dbDriver    database.Driver
		migrationFS embed.FS
		subdir      string
	)

	switch driverName {
	case "sqlite":
		d, err := sqlite.WithInstance(sqlDB, &sqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("sqlite migrate driver: %w", err)
		}
		dbDriver, migrationFS, subdir = d, sqliteMigrations, "migrations/sqlite"
	case "postgres":
		d, err := postgres.WithInstance(sqlDB, &postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("postgres migrate driver: %w", err)
		}
		dbDriver, migrationFS, subdir = d, postgresMigrations, "migrations/postgres"
	case "mysql":
		d, err := mysql.WithInstance(sqlDB, &mysql.Config{})
		if err != nil {
			return nil, fmt.Errorf("mysql migrate driver: %w", err)
		}
		dbDriver, migrationFS, subdir = d, mysqlMigrations, "migrations/mysql"
	default:
		return nil, fmt.Errorf("unsupported migration driver: %s", driverName)
	}

	src, err := iofs.New(migrationFS, subdir)
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	return migrate.NewWithInstance("iofs", src, driverName, dbDriver)
}

// MigrateDown rolls back exactly one migration step.
func MigrateDown(driverName string, db *gorm.DB, logger *zap.Logger) error {
	m, err := migrator(driverName, db)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migration: %w", err)
	}
	logger.Info("rolled back one migration", zap.String("driver", driverName))
	return nil
}

// MigrateVersion reports the schema's current version and whether it
// is in a dirty (partially applied) state.
func MigrateVersion(driverName string, db *gorm.DB) (uint, bool, error) {
	m, err := migrator(driverName, db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}
