package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrum-maestro/agent/internal/task"
)

// Reconcile sweeps all tasks and applies the timer-driven transitions.
//
// An IN PROGRESS task whose last update falls on its due date is closed
// as ENDED. Any other non-terminal task whose due date lies strictly in
// the past is closed as ABANDONED. Terminal tasks are never advanced
// again.
func (e *Engine) Reconcile(ctx context.Context) error {
	runID := uuid.NewString()[:8]
	now := e.now().UTC()

	tasks, err := e.store.ListTasks()
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	var ended, abandoned, failed int
	for _, t := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case t.Progress == task.ProgressInProgress && sameDate(t.LastUpdatedAt, t.DueAt):
			if err := e.store.SetProgress(t.TaskID, task.ProgressEnded); err != nil {
				e.logger.Error().Err(err).Str("run", runID).Str("task", t.TaskID).Msg("failed to end task")
				failed++
				continue
			}
			ended++
			e.metrics.RecordTransition("auto_ended")
			e.notifier.Broadcast(ctx, fmt.Sprintf("✅ Task %s marked as *ENDED* for %s. Great job!", t.TaskID, t.Owner))

		case !t.Progress.Terminal() && dateAfter(now, t.DueAt):
			if err := e.store.SetProgress(t.TaskID, task.ProgressAbandoned); err != nil {
				e.logger.Error().Err(err).Str("run", runID).Str("task", t.TaskID).Msg("failed to abandon task")
				failed++
				continue
			}
			abandoned++
			e.metrics.RecordTransition("abandoned")
			e.notifier.Broadcast(ctx, fmt.Sprintf("⚠️ Task %s for %s is overdue and has been marked *ABANDONED*.", t.TaskID, t.Owner))
		}
	}

	if ended+abandoned+failed > 0 {
		e.logger.Info().Str("run", runID).
			Int("ended", ended).Int("abandoned", abandoned).Int("failed", failed).
			Msg("reconcile pass complete")
	}
	return nil
}

// RemindDueSoon sends a direct reminder for every active task due
// tomorrow. A task keeps getting reminded on each pass until its state
// or due date changes.
func (e *Engine) RemindDueSoon(ctx context.Context) error {
	now := e.now().UTC()
	tomorrow := now.Add(24 * time.Hour)

	tasks, err := e.store.ListTasks()
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	for _, t := range tasks {
		if t.Progress != task.ProgressStarted && t.Progress != task.ProgressInProgress {
			continue
		}
		if !sameDate(t.DueAt, tomorrow) {
			continue
		}
		if t.OwnerHandle == "" {
			e.logger.Warn().Str("task", t.TaskID).Msg("due-soon task has no owner handle, skipping reminder")
			continue
		}
		e.notifier.Direct(ctx, t.OwnerHandle,
			fmt.Sprintf("🔔 Reminder: Task *%s* ('%s') is due *tomorrow!*", t.TaskID, t.Description))
		e.logger.Info().Str("task", t.TaskID).Str("owner", t.Owner).Msg("sent due-soon reminder")
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// dateAfter reports whether a's calendar date is strictly after b's.
func dateAfter(a, b time.Time) bool {
	a = a.UTC().Truncate(24 * time.Hour)
	b = b.UTC().Truncate(24 * time.Hour)
	return a.After(b)
}
