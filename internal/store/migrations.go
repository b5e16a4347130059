package store

import "fmt"

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		task_id         TEXT PRIMARY KEY,
		owner           TEXT NOT NULL,
		owner_handle    TEXT,
		description     TEXT NOT NULL,
		due_at          INTEGER NOT NULL,
		progress        TEXT NOT NULL DEFAULT 'STARTED',
		last_updated_at INTEGER NOT NULL,
		jira_key        TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_progress ON tasks(progress);
	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_at);

	CREATE TABLE IF NOT EXISTS dead_letters (
		id            TEXT PRIMARY KEY,
		target        TEXT NOT NULL,
		message       TEXT NOT NULL,
		error         TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		retry_count   INTEGER NOT NULL DEFAULT 0,
		next_retry_at INTEGER,
		resolved_at   INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_dlq_unresolved ON dead_letters(next_retry_at) WHERE resolved_at IS NULL;

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}
	return nil
}
