package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ragscout/ragscout/pkg/models"
	"github.com/rs/zerolog/log"
)

// MaxHistoryEntries bounds the persisted selection ring.
const MaxHistoryEntries = 10

// History is the process-wide persona selection history. It owns its file:
// no other component reads or writes it. Writes are atomic (temp + rename)
// so concurrent readers always see a complete snapshot.
type History struct {
	mu      sync.Mutex
	path    string
	records []models.PersonaSelectionRecord
}

// LoadHistory reads the history file. A missing file starts an empty
// history; a corrupt file starts empty with a warning. If the file holds
// more than the cap, only the newest entries are kept.
func LoadHistory(path string) *History {
	h := &History{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Could not read persona history")
		}
		return h
	}

	var records []models.PersonaSelectionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Persona history is corrupt, starting empty")
		return h
	}

	if len(records) > MaxHistoryEntries {
		records = records[len(records)-MaxHistoryEntries:]
	}
	h.records = records
	return h
}

// Append adds a record, trims to the cap, and persists. Persistence
// failures are logged, not surfaced: the in-memory history still advances.
func (h *History) Append(record models.PersonaSelectionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, record)
	if len(h.records) > MaxHistoryEntries {
		h.records = h.records[len(h.records)-MaxHistoryEntries:]
	}

	if err := h.save(); err != nil {
		log.Warn().Err(err).Str("path", h.path).Msg("Could not persist persona history")
	}
}

// Records returns a copy of the history, oldest first.
func (h *History) Records() []models.PersonaSelectionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.PersonaSelectionRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the record count.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Summary renders the history for the classifier prompt: each record as
// one line with the request trimmed to 60 characters.
func (h *History) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return "No previous selections."
	}

	var b []byte
	for _, r := range h.records {
		req := r.Request
		if runes := []rune(req); len(runes) > 60 {
			req = string(runes[:60])
		}
		line := fmt.Sprintf("- %q -> %s (confidence %.2f): %s\n",
			req, r.SelectedPersona, r.Confidence, r.Reasoning)
		b = append(b, line...)
	}
	return string(b)
}

// save writes the records as pretty-printed JSON via temp file + rename.
// Callers hold h.mu.
func (h *History) save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	data, err := json.MarshalIndent(h.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history temp file: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
