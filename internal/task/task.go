// Package task defines the tracked work item and its lifecycle states.
package task

import "time"

// Progress is a task's lifecycle state. The wire strings match what is
// stored and what appears in channel notices.
type Progress string

const (
	ProgressStarted    Progress = "STARTED"
	ProgressInProgress Progress = "IN PROGRESS"
	ProgressEnded      Progress = "ENDED"
	ProgressAbandoned  Progress = "ABANDONED"
)

// Terminal reports whether p is a terminal state. Terminal tasks are not
// advanced by reconciliation, but a fresh sighting of the task id can still
// update their fields.
func (p Progress) Terminal() bool {
	return p == ProgressEnded || p == ProgressAbandoned
}

// Valid reports whether p is one of the known states.
func (p Progress) Valid() bool {
	switch p {
	case ProgressStarted, ProgressInProgress, ProgressEnded, ProgressAbandoned:
		return true
	}
	return false
}

// Task is the central tracked entity, keyed by TaskID.
type Task struct {
	// TaskID is assigned by the extraction step and unique in the store.
	TaskID string

	// Owner is the display name of the person who reported the task.
	Owner string

	// OwnerHandle is the chat provider user id, used for direct
	// reminders. May be empty.
	OwnerHandle string

	// Description is the free-text summary of the work.
	Description string

	// DueAt is creation time plus the reported duration, UTC.
	DueAt time.Time

	Progress Progress

	// LastUpdatedAt is the time of the most recent state-affecting write.
	LastUpdatedAt time.Time

	// JiraKey is the linked issue key, empty if issue filing failed or
	// Jira is not configured.
	JiraKey string
}

// Descriptor is a candidate task extracted from chat text. It is untrusted
// oracle output and must be validated before it becomes a Task mutation.
type Descriptor struct {
	TaskID       string
	Description  string
	DurationDays int
}

// Due computes the due timestamp for a descriptor created at now.
func (d Descriptor) Due(now time.Time) time.Time {
	return now.UTC().Add(time.Duration(d.DurationDays) * 24 * time.Hour)
}
