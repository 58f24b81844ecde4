package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"ingetin/internal/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies (up) or rolls back (down) every schema migration.
// Nothing to do is not an error.
func Migrate(dsn string, up bool, log *slog.Logger) error {
	log = logging.Or(log)

	m, closeFn, err := newMigrate(dsn)
	if err != nil {
		return err
	}
	defer closeFn()

	direction := "up"
	if up {
		err = m.Up()
	} else {
		direction = "down"
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("schema up to date", "direction", direction)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", verr)
	}
	log.Info("migrations applied", "direction", direction, "version", version, "dirty", dirty)
	return nil
}

func newMigrate(dsn string) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("load migrations: %w", err)
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to db: %w", err)
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("cannot create driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("cannot create migrate: %w", err)
	}
	return m, func() { _, _ = m.Close() }, nil
}
