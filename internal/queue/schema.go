package queue

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrations[i] upgrades a database from version i to i+1.
var migrations = mustLoadMigrations()

// ErrSchemaMismatch indicates the database was written by a newer postgate.
var ErrSchemaMismatch = errors.New("schema version mismatch")

var expectedColumns = []string{
	"id",
	"content",
	"metadata_json",
	"status",
	"created_at",
	"expires_at",
	"updated_at",
	"decided_at",
	"decided_by",
}

// SchemaVersion is the version this build migrates databases to.
func SchemaVersion() int {
	return len(migrations)
}

func mustLoadMigrations() []string {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		panic(err)
	}
	// File names carry a zero-padded sequence number.
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			panic(err)
		}
		out = append(out, string(data))
	}
	return out
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	version, err := s.readSchemaVersion(ctx)
	if err != nil {
		return err
	}
	target := SchemaVersion()
	if version > target {
		return fmt.Errorf("%w: database has version %d, this build supports %d (upgrade postgate or delete %s)",
			ErrSchemaMismatch, version, target, s.path)
	}
	for v := version; v < target; v++ {
		if err := s.migrate(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// readSchemaVersion returns 0 for a fresh database.
func (s *Store) readSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) migrate(ctx context.Context, from int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", from+1, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migrations[from]); err != nil {
		return fmt.Errorf("apply migration %d: %w", from+1, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("clear schema version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", from+1); err != nil {
		return fmt.Errorf("record schema version %d: %w", from+1, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", from+1, err)
	}
	return nil
}
