// Package state tracks per-session orchestrator counters.
package state

import (
	"sync"
	"time"
)

// Snapshot is a read-only view of the session state.
type Snapshot struct {
	CurrentTask       string    `json:"current_task"`
	TasksCompleted    int       `json:"tasks_completed"`
	ExperiencesStored int       `json:"experiences_stored"`
	LastReflection    time.Time `json:"last_reflection"`
	ActiveSince       time.Time `json:"active_since"`
}

// Tracker holds session counters. Per-kernel; not shared across sessions.
type Tracker struct {
	mu                sync.Mutex
	currentTask       string
	tasksCompleted    int
	experiencesStored int
	lastReflection    time.Time
	activeSince       time.Time
}

// New creates a tracker marking the session start.
func New() *Tracker {
	return &Tracker{activeSince: time.Now().UTC()}
}

// SetTask records the task currently being worked on.
func (t *Tracker) SetTask(task string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentTask = task
}

// CompleteTask clears the current task and bumps the completion counter.
func (t *Tracker) CompleteTask() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentTask = ""
	t.tasksCompleted++
}

// RecordExperience bumps the stored-experience counter and returns the
// new total.
func (t *Tracker) RecordExperience() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.experiencesStored++
	return t.experiencesStored
}

// RecordReflection stamps the last reflection time.
func (t *Tracker) RecordReflection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastReflection = time.Now().UTC()
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		CurrentTask:       t.currentTask,
		TasksCompleted:    t.tasksCompleted,
		ExperiencesStored: t.experiencesStored,
		LastReflection:    t.lastReflection,
		ActiveSince:       t.activeSince,
	}
}

// Reset clears all counters and restarts the active-since clock.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentTask = ""
	t.tasksCompleted = 0
	t.experiencesStored = 0
	t.lastReflection = time.Time{}
	t.activeSince = time.Now().UTC()
}
