package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/garage-invoices/internal/config"
	"github.com/diewo77/garage-invoices/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Tables that must exist once the schema is built.
var requiredTables = []string{"users", "clients", "vehicles", "invoices", "line_items"}

// Migrate runs AutoMigrate for all models.
func Migrate(conn *gorm.DB) error {
	modelsToMigrate := []any{
		&models.User{},
		&models.Client{},
		&models.Vehicle{},
		&models.Invoice{},
		&models.LineItem{},
	}
	for _, m := range modelsToMigrate {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return checkTables(conn)
}

// MigrateSQL applies the versioned SQL migrations embedded in the binary for
// the given driver.
func MigrateSQL(conn *gorm.DB, driver string) error {
	m, err := newMigrator(conn, driver)
	if err != nil {
		return err
	}
	// m.Close would also close the shared *sql.DB, so it is not called.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	return checkTables(conn)
}

// MigrateSQLDown reverts every embedded SQL migration.
func MigrateSQLDown(conn *gorm.DB, driver string) error {
	m, err := newMigrator(conn, driver)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sql migrations down failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied SQL migration version. ok is false when no
// SQL migration has been applied.
func SchemaVersion(conn *gorm.DB, driver string) (version uint, dirty bool, ok bool, err error) {
	m, err := newMigrator(conn, driver)
	if err != nil {
		return 0, false, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}

func newMigrator(conn *gorm.DB, driver string) (*migrate.Migrate, error) {
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}

	var (
		dir    string
		target database.Driver
	)
	switch driver {
	case config.DriverSQLite, "":
		dir = "migrations/sqlite"
		target, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	case config.DriverPostgres:
		dir = "migrations/postgres"
		target, err = migratepg.WithInstance(sqlDB, &migratepg.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, nil
}

func checkTables(conn *gorm.DB) error {
	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
