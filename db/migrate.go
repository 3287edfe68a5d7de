package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

func init() {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		panic(fmt.Sprintf("failed to set goose dialect: %v", err))
	}
}

// MigrationStatus is the schema version of the database next to the newest
// embedded migration.
type MigrationStatus struct {
	CurrentVersion int64 `json:"current_version"`
	LatestVersion  int64 `json:"latest_version"`
	Pending        int   `json:"pending"`
}

// Migrator applies the embedded SQL migrations.
type Migrator struct {
	db *sql.DB
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Up applies every pending migration and returns the resulting version.
func (m *Migrator) Up(ctx context.Context) (int64, error) {
	if err := goose.UpContext(ctx, m.db, migrationsDir); err != nil {
		return 0, fmt.Errorf("failed to run goose migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, nil
}

func (m *Migrator) Status(ctx context.Context) (*MigrationStatus, error) {
	current, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration version: %w", err)
	}

	migrations, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to collect migrations: %w", err)
	}

	status := &MigrationStatus{CurrentVersion: current}
	for _, mg := range migrations {
		if mg.Version > status.LatestVersion {
			status.LatestVersion = mg.Version
		}
		if mg.Version > current {
			status.Pending++
		}
	}
	return status, nil
}
