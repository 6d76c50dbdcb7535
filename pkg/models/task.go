package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// StatusPending indicates the task has not started.
	StatusPending TaskStatus = "pending"
	// StatusOnWork indicates the task is being worked on.
	StatusOnWork TaskStatus = "on_work"
	// StatusOverDeadline indicates the task's scheduled time has passed
	// without completion. This is the only status the system may infer from
	// the schedule; every other transition is user-driven.
	StatusOverDeadline TaskStatus = "over_deadline"
	// StatusDone indicates the task completed.
	StatusDone TaskStatus = "done"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOnWork, StatusOverDeadline, StatusDone:
		return true
	default:
		return false
	}
}

// AllStatuses lists every valid status. Any status may transition to any
// other; there is deliberately no monotonic-progression rule.
func AllStatuses() []TaskStatus {
	return []TaskStatus{StatusPending, StatusOnWork, StatusOverDeadline, StatusDone}
}

// Task is a unit of work in the dependency graph.
type Task struct {
	// ID is the unique identifier for this task, stable for its lifetime.
	ID string `json:"id"`
	// Description is the free-text description of the task.
	Description string `json:"description"`
	// Date is the scheduled date in YYYY-MM-DD form, empty if unscheduled.
	Date string `json:"date,omitempty"`
	// Time is the scheduled time in HH:MM form, empty if unscheduled.
	Time string `json:"time,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// DependsOn lists ids of tasks this task requires as prerequisites.
	DependsOn []string `json:"depends_on,omitempty"`
	// Embedding is the vector derived from the task's description and
	// schedule context. It is recomputed whenever Description changes.
	Embedding []float32 `json:"-"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Scheduled returns the task's "YYYY-MM-DD HH:MM" schedule, or the empty
// string when either part is missing.
func (t *Task) Scheduled() string {
	if t.Date == "" || t.Time == "" {
		return ""
	}
	return t.Date + " " + t.Time
}

// ScheduledAt parses the task's date and time in the given location.
// The second return value is false for unscheduled or malformed schedules.
func (t *Task) ScheduledAt(loc *time.Location) (time.Time, bool) {
	if t.Date == "" || t.Time == "" {
		return time.Time{}, false
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", t.Date+" "+t.Time, loc)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// EmbedText returns the text representation used to compute the task's
// embedding. Schedule context is included so "tomorrow morning" style
// references can land on the right task.
func (t *Task) EmbedText() string {
	date := t.Date
	if date == "" {
		date = "unscheduled"
	}
	tm := t.Time
	if tm == "" {
		tm = "unscheduled"
	}
	return fmt.Sprintf("Description: %s | Date: %s | Time: %s", t.Description, date, tm)
}

// SearchResult pairs a task with its similarity score from a vector search.
type SearchResult struct {
	Task  Task
	Score float64
}

// StoreStats holds basic counts about the task graph.
type StoreStats struct {
	// Tasks is the total number of task nodes.
	Tasks int
	// Dependencies is the total number of DEPENDS_ON edges.
	Dependencies int
	// ByStatus counts tasks per status.
	ByStatus map[TaskStatus]int
}
