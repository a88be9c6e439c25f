package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type migrationRunner interface {
	Up() error
	Version() (uint, bool, error)
	Close() (error, error)
}

var newMigrate = func(sourceURL, databaseURL string) (migrationRunner, error) {
	return migrate.New(sourceURL, databaseURL)
}

// Migrator applies the SQL files under a directory. It needs a direct
// descriptor; deployments on the HTTP transport run migrations from the
// bridge process instead.
type Migrator struct {
	m migrationRunner
}

func NewMigrator(dsn, path string) (*Migrator, error) {
	desc, err := ParseDescriptor(dsn)
	if err != nil {
		return nil, err
	}
	if desc.Transport != TransportDirect {
		return nil, &ConfigurationError{Reason: "migrations require a direct postgres descriptor"}
	}

	source := path
	if !strings.HasPrefix(source, "file://") {
		source = "file://" + source
	}

	m, err := newMigrate(source, desc.URL)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}
