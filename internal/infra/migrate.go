package infra

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

var migrationName = regexp.MustCompile(`^V(\d+)__\w+\.sql$`)

type migration struct {
	version int
	script  string
}

// MigratePostgres applies versioned flyway-style scripts which were not applied yet, all within one transaction
func MigratePostgres(ctx context.Context, trx transactor.PgxTransactor, scripts fs.FS, logger logrus.FieldLogger) error {
	migrations, err := loadMigrations(scripts)
	if err != nil {
		return err
	}

	return trx.WithinTransaction(ctx, func(ctx context.Context) error {
		exec := trx.Executor(ctx)

		q := `CREATE TABLE IF NOT EXISTS schema_migrations(
                version    INT PRIMARY KEY,
                script     TEXT NOT NULL,
                applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
              )`
		if _, err := exec.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create migrations table - %w", err)
		}

		var current int
		if err := exec.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
			return fmt.Errorf("failed to read current schema version - %w", err)
		}

		applied := 0
		for _, m := range migrations {
			if m.version <= current {
				continue
			}

			sql, err := fs.ReadFile(scripts, m.script)
			if err != nil {
				return fmt.Errorf("failed to read migration %s - %w", m.script, err)
			}

			if _, err := exec.Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("failed to apply migration %s - %w", m.script, err)
			}

			if _, err := exec.Exec(ctx, "INSERT INTO schema_migrations(version, script) VALUES($1, $2)", m.version, m.script); err != nil {
				return fmt.Errorf("failed to register migration %s - %w", m.script, err)
			}

			logger.WithField("script", m.script).Info("migration applied")
			applied++
		}

		if applied == 0 {
			logger.WithField("version", current).Info("database schema up to date")
		}
		return nil
	})
}

func loadMigrations(scripts fs.FS) ([]migration, error) {
	files, err := fs.Glob(scripts, "V*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations - %w", err)
	}

	migrations := make([]migration, 0, len(files))
	for _, f := range files {
		match := migrationName.FindStringSubmatch(f)
		if match == nil {
			return nil, fmt.Errorf("migration %s doesn't follow V<version>__<description>.sql naming", f)
		}

		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version of migration %s - %w", f, err)
		}
		migrations = append(migrations, migration{version: version, script: f})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})
	return migrations, nil
}
