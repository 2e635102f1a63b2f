package market

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies embedded migrations that have not run yet, in filename
// order, each in its own transaction.
func (s *Store) Migrate(ctx context.Context) (applied int, err error) {
	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sugarnexus_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return 0, errors.Wrap(err, "market: create migrations table")
	}

	names, err := migrationFiles()
	if err != nil {
		return 0, err
	}

	for _, name := range names {
		var done bool
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM sugarnexus_migrations WHERE filename = $1)`, name,
		).Scan(&done)
		if err != nil {
			return applied, errors.Wrapf(err, "market: check migration %s", name)
		}
		if done {
			continue
		}

		if err := s.apply(ctx, name); err != nil {
			return applied, err
		}
		applied++
		s.logger.WithField("file", name).Info("market | applied migration")
	}
	return applied, nil
}

func (s *Store) apply(ctx context.Context, name string) (err error) {
	data, err := fs.ReadFile(migrationsFS, "migrations/"+name)
	if err != nil {
		return errors.Wrapf(err, "market: read migration %s", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "market: begin migration %s", name)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, string(data)); err != nil {
		return errors.Wrapf(err, "market: execute migration %s", name)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO sugarnexus_migrations (filename) VALUES ($1)`, name); err != nil {
		return errors.Wrapf(err, "market: record migration %s", name)
	}
	return errors.Wrapf(tx.Commit(), "market: commit migration %s", name)
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "market: read migrations")
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
