package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"reposearch/internal/config"
)

type migrationStep struct {
	Name string
	SQL  string
}

// Column types are chosen to be valid on both SQLite and PostgreSQL.
var steps = []migrationStep{
	{
		Name: "create_table_owners",
		SQL: `CREATE TABLE IF NOT EXISTS owners (
  id         BIGINT PRIMARY KEY,
  login      TEXT   NOT NULL,
  avatar_url TEXT   NOT NULL DEFAULT '',
  html_url   TEXT   NOT NULL DEFAULT '',
  type       TEXT   NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_table_repositories",
		SQL: `CREATE TABLE IF NOT EXISTS repositories (
  id          BIGINT    PRIMARY KEY,
  name        TEXT      NOT NULL,
  full_name   TEXT      NOT NULL DEFAULT '',
  description TEXT      NOT NULL DEFAULT '',
  language    TEXT      NOT NULL DEFAULT '',
  html_url    TEXT      NOT NULL DEFAULT '',
  stars       INTEGER   NOT NULL DEFAULT 0 CHECK (stars >= 0),
  forks       INTEGER   NOT NULL DEFAULT 0 CHECK (forks >= 0),
  owner_id    BIGINT    NOT NULL REFERENCES owners (id) ON DELETE CASCADE,
  rank        INTEGER   NOT NULL DEFAULT 0,
  updated_at  TIMESTAMP
);`,
	},
	{
		Name: "create_index_repositories_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_repositories_owner_id ON repositories (owner_id);`,
	},
	{
		Name: "create_index_repositories_stars",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_repositories_stars ON repositories (stars DESC, id);`,
	},
	{
		Name: "create_index_repositories_rank",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_repositories_rank ON repositories (rank, id);`,
	},
	{
		Name: "create_index_repositories_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_repositories_name ON repositories (name);`,
	},
}

// sentinelQuery reports whether the repositories table exists.
func sentinelQuery(driver string) string {
	if driver == config.DriverPostgres {
		return "SELECT to_regclass('public.repositories') IS NOT NULL"
	}
	return "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'repositories'"
}

// EnsureMigrated checks if the 'repositories' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, driver string, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "event", "db_migration_check", "status", "starting")

	var exists bool
	err := db.QueryRowContext(ctx, sentinelQuery(driver)).Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed",
			"event", "db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration",
			"event", "db_migration_skip",
			"status", "success",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "event", "db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			log.Error("db_migration_failed",
				"event", "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"event", "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"event", "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
