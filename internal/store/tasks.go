package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/scrum-maestro/agent/internal/task"
)

// InsertTask inserts a new task. Fails if the task_id already exists:
// insertion happens at most once per task id, later writes are updates.
func (s *Store) InsertTask(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO tasks (task_id, owner, owner_handle, description, due_at, progress, last_updated_at, jira_key)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		t.TaskID, t.Owner,
		sql.NullString{String: t.OwnerHandle, Valid: t.OwnerHandle != ""},
		t.Description,
		t.DueAt.UTC().UnixMilli(),
		string(t.Progress),
		t.LastUpdatedAt.UTC().UnixMilli(),
		sql.NullString{String: t.JiraKey, Valid: t.JiraKey != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", t.TaskID, err)
	}
	return nil
}

// GetTask retrieves a task by id. Returns (nil, nil) when not found.
func (s *Store) GetTask(taskID string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT task_id, owner, owner_handle, description, due_at, progress, last_updated_at, jira_key
	FROM tasks WHERE task_id = ?
	`

	t, err := scanTask(s.db.QueryRow(query, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return t, nil
}

// UpdateProgress applies an ingestion-triggered transition: progress,
// last_updated_at and owner handle in one statement keyed by task_id.
func (s *Store) UpdateProgress(taskID string, p task.Progress, lastUpdated time.Time, ownerHandle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE tasks SET progress = ?, last_updated_at = ?, owner_handle = ? WHERE task_id = ?`
	res, err := s.db.Exec(query,
		string(p),
		lastUpdated.UTC().UnixMilli(),
		sql.NullString{String: ownerHandle, Valid: ownerHandle != ""},
		taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	return requireRow(res, taskID)
}

// SetProgress applies a time-triggered transition. Only progress changes;
// last_updated_at is left alone so reconciliation does not feed itself.
func (s *Store) SetProgress(taskID string, p task.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE tasks SET progress = ? WHERE task_id = ?`, string(p), taskID)
	if err != nil {
		return fmt.Errorf("failed to set progress for task %s: %w", taskID, err)
	}
	return requireRow(res, taskID)
}

// SetJiraKey records the linked issue key for a task.
func (s *Store) SetJiraKey(taskID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE tasks SET jira_key = ? WHERE task_id = ?`, key, taskID)
	if err != nil {
		return fmt.Errorf("failed to set jira key for task %s: %w", taskID, err)
	}
	return requireRow(res, taskID)
}

// ListTasks returns every stored task, oldest due date first.
func (s *Store) ListTasks() ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT task_id, owner, owner_handle, description, due_at, progress, last_updated_at, jira_key
	FROM tasks ORDER BY due_at ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	t := &task.Task{}
	var ownerHandle, jiraKey sql.NullString
	var dueAt, lastUpdated int64
	var progress string

	if err := row.Scan(&t.TaskID, &t.Owner, &ownerHandle, &t.Description,
		&dueAt, &progress, &lastUpdated, &jiraKey); err != nil {
		return nil, err
	}

	t.OwnerHandle = ownerHandle.String
	t.JiraKey = jiraKey.String
	t.Progress = task.Progress(progress)
	t.DueAt = time.UnixMilli(dueAt).UTC()
	t.LastUpdatedAt = time.UnixMilli(lastUpdated).UTC()
	return t, nil
}

func requireRow(res sql.Result, taskID string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}
	return nil
}
