// Package engine applies task descriptors to the store and drives the
// timer-based lifecycle transitions.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/config"
	"github.com/scrum-maestro/agent/internal/metrics"
	"github.com/scrum-maestro/agent/internal/retry"
	"github.com/scrum-maestro/agent/internal/task"
)

// TaskStore is the persistence surface the engine needs.
type TaskStore interface {
	InsertTask(t *task.Task) error
	GetTask(taskID string) (*task.Task, error)
	UpdateProgress(taskID string, p task.Progress, lastUpdated time.Time, ownerHandle string) error
	SetProgress(taskID string, p task.Progress) error
	SetJiraKey(taskID, key string) error
	ListTasks() ([]*task.Task, error)
}

// IssueTracker files tickets for newly sighted tasks. Nil disables filing.
type IssueTracker interface {
	CreateIssue(ctx context.Context, projectKey, summary, description string) (string, error)
}

// Announcer posts lifecycle notices.
type Announcer interface {
	Broadcast(ctx context.Context, text string)
	Direct(ctx context.Context, userID, text string)
}

// Engine owns the task lifecycle.
type Engine struct {
	store      TaskStore
	tracker    IssueTracker
	notifier   Announcer
	rules      *config.Rules
	projectKey string
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates the lifecycle engine. tracker may be nil when issue filing
// is not configured.
func New(store TaskStore, tracker IssueTracker, notifier Announcer, rules *config.Rules, projectKey string, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		store:      store,
		tracker:    tracker,
		notifier:   notifier,
		rules:      rules,
		projectKey: projectKey,
		metrics:    m,
		logger:     logger.With().Str("component", "engine").Logger(),
		now:        time.Now,
	}
}

// Apply folds one extracted descriptor into the store. sourceText is the
// message the descriptor came from; its wording decides the state a known
// task moves to. owner and ownerHandle identify the message author.
func (e *Engine) Apply(ctx context.Context, d task.Descriptor, sourceText, owner, ownerHandle string) error {
	existing, err := e.store.GetTask(d.TaskID)
	if err != nil {
		return fmt.Errorf("looking up task %s: %w", d.TaskID, err)
	}

	if existing == nil {
		return e.applyNew(ctx, d, owner, ownerHandle)
	}
	return e.applyUpdate(ctx, existing, sourceText, owner, ownerHandle)
}

func (e *Engine) applyNew(ctx context.Context, d task.Descriptor, owner, ownerHandle string) error {
	now := e.now().UTC()
	t := &task.Task{
		TaskID:        d.TaskID,
		Owner:         owner,
		OwnerHandle:   ownerHandle,
		Description:   d.Description,
		DueAt:         d.Due(now),
		Progress:      task.ProgressStarted,
		LastUpdatedAt: now,
	}
	if err := e.store.InsertTask(t); err != nil {
		return fmt.Errorf("inserting task %s: %w", d.TaskID, err)
	}
	e.metrics.RecordTransition("started")
	e.logger.Info().Str("task", d.TaskID).Str("owner", owner).Time("due", t.DueAt).Msg("task started")

	e.notifier.Broadcast(ctx, fmt.Sprintf("✅ Task %s added for %s.", d.TaskID, owner))
	e.fileIssue(ctx, t)
	return nil
}

// fileIssue creates a tracker ticket best-effort. A tracker outage never
// blocks the task itself.
func (e *Engine) fileIssue(ctx context.Context, t *task.Task) {
	if e.tracker == nil {
		return
	}
	var key string
	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		var cerr error
		key, cerr = e.tracker.CreateIssue(ctx, e.projectKey,
			fmt.Sprintf("Task %s: %s", t.TaskID, t.Description),
			fmt.Sprintf("Reported by %s. Due %s.", t.Owner, t.DueAt.Format("2006-01-02")))
		return cerr
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("task", t.TaskID).Msg("issue filing failed")
		e.metrics.RecordError("engine", "jira")
		return
	}
	if err := e.store.SetJiraKey(t.TaskID, key); err != nil {
		e.logger.Error().Err(err).Str("task", t.TaskID).Msg("failed to record issue key")
	}
}

// applyUpdate re-classifies a known task from the wording of the message
// that mentioned it. The in-progress markers win when both sets match.
// Whoever reported the sighting becomes the reminder target, so the
// handle is refreshed on every branch.
func (e *Engine) applyUpdate(ctx context.Context, t *task.Task, sourceText, owner, ownerHandle string) error {
	now := e.now().UTC()
	lower := strings.ToLower(sourceText)

	switch {
	case containsAny(lower, e.rules.InProgressMarkers):
		if err := e.store.UpdateProgress(t.TaskID, task.ProgressInProgress, now, ownerHandle); err != nil {
			return fmt.Errorf("updating task %s: %w", t.TaskID, err)
		}
		e.metrics.RecordTransition("in_progress")
		e.notifier.Broadcast(ctx, fmt.Sprintf("🔄 Task %s marked IN PROGRESS for %s. Keep it up!", t.TaskID, owner))

	case containsAny(lower, e.rules.CompletionMarkers):
		if err := e.store.UpdateProgress(t.TaskID, task.ProgressEnded, now, ownerHandle); err != nil {
			return fmt.Errorf("updating task %s: %w", t.TaskID, err)
		}
		e.metrics.RecordTransition("ended")
		e.notifier.Broadcast(ctx, fmt.Sprintf("✅ Task %s marked as *ENDED* for %s. Great job!", t.TaskID, owner))

	default:
		if err := e.store.UpdateProgress(t.TaskID, task.ProgressInProgress, now, ownerHandle); err != nil {
			return fmt.Errorf("updating task %s: %w", t.TaskID, err)
		}
		e.metrics.RecordTransition("in_progress")
		e.notifier.Broadcast(ctx, fmt.Sprintf("🔄 Task %s marked IN PROGRESS for %s.", t.TaskID, owner))
	}

	e.logger.Info().Str("task", t.TaskID).Str("owner", owner).Msg("task updated from sighting")
	return nil
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
