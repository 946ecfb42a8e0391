// Package contextlog implements the bounded session context store.
//
// The store is an append-only log of typed events (user messages, thoughts,
// tool calls, tool results, decisions). When the entry count exceeds the
// configured cap, the oldest entries are dropped FIFO; insertion order of
// the survivors is preserved. Derived views (recency, type index, tool
// statistics) are computed on read.
package contextlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ragscout/ragscout/pkg/models"
)

// Store is a bounded, ordered event log for one session.
type Store struct {
	mu         sync.RWMutex
	entries    []models.ContextEntry
	maxEntries int
	nextID     int
}

// New creates a store that keeps at most maxEntries events.
func New(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 20
	}
	return &Store{maxEntries: maxEntries}
}

// Add appends an entry, assigning a locally unique ID and timestamp when
// missing, then trims the oldest entries down to the cap.
func (s *Store) Add(entry models.ContextEntry) models.ContextEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("ctx-%d", s.nextID)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	s.entries = append(s.entries, entry)
	if excess := len(s.entries) - s.maxEntries; excess > 0 {
		s.entries = append(s.entries[:0:0], s.entries[excess:]...)
	}
	return entry
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetRecent returns the most recent n entries in insertion order.
// n <= 0 returns everything.
func (s *Store) GetRecent(n int) []models.ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]models.ContextEntry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// GetByType returns all entries of one type, in insertion order.
func (s *Store) GetByType(t models.ContextEntryType) []models.ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ContextEntry
	for _, e := range s.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// GetInWindow returns entries newer than the given number of minutes.
func (s *Store) GetInWindow(minutes int) []models.ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	var out []models.ContextEntry
	for _, e := range s.entries {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Search returns entries whose serialized content contains the query,
// case-insensitively.
func (s *Store) Search(query string) []models.ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []models.ContextEntry
	for _, e := range s.entries {
		serialized, err := json.Marshal(e.Content)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(serialized)), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Summary describes the log: entry counts per type plus the time span.
func (s *Store) Summary() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[string]int)
	for _, e := range s.entries {
		byType[string(e.Type)]++
	}
	summary := map[string]interface{}{
		"total_entries": len(s.entries),
		"by_type":       byType,
	}
	if len(s.entries) > 0 {
		summary["oldest"] = s.entries[0].Timestamp
		summary["newest"] = s.entries[len(s.entries)-1].Timestamp
	}
	return summary
}

// ToolStats aggregates tool usage: total calls, per-tool counts, success
// rate over results, and mean execution time across results carrying one.
type ToolStats struct {
	TotalCalls      int            `json:"total_calls"`
	CallsPerTool    map[string]int `json:"calls_per_tool"`
	SuccessRate     float64        `json:"success_rate"`
	MeanExecutionMs float64        `json:"mean_execution_ms"`
}

// ToolStats derives aggregate tool statistics from the log.
func (s *Store) ToolStats() ToolStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ToolStats{CallsPerTool: make(map[string]int)}
	var results, successes int
	var totalMs float64
	var timed int

	for _, e := range s.entries {
		switch e.Type {
		case models.EntryToolCall:
			stats.TotalCalls++
			if name, ok := e.Content["tool"].(string); ok {
				stats.CallsPerTool[name]++
			}
		case models.EntryToolResult:
			results++
			if ok, _ := e.Content["success"].(bool); ok {
				successes++
			}
			if ms, ok := numeric(e.Content["execution_time_ms"]); ok {
				totalMs += ms
				timed++
			}
		}
	}

	if results > 0 {
		stats.SuccessRate = float64(successes) / float64(results)
	}
	if timed > 0 {
		stats.MeanExecutionMs = totalMs / float64(timed)
	}
	return stats
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Export returns a copy of the full log for serialization.
func (s *Store) Export() []models.ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ContextEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Import replaces the log with the given entries, re-applying the cap.
func (s *Store) Import(entries []models.ContextEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) > s.maxEntries {
		entries = entries[len(entries)-s.maxEntries:]
	}
	s.entries = make([]models.ContextEntry, len(entries))
	copy(s.entries, entries)
	s.nextID = len(entries)
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
