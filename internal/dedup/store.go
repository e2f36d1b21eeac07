package dedup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"FeedDigest/internal/ports"
)

const stateVersion = "1.0"

// Store is a file-backed rolling-window record of seen item fingerprints.
// It is loaded once per run, mutated in memory, and persisted once at the
// end; the pipeline never accesses it concurrently.
type Store struct {
	path         string
	lookbackDays int
	enabled      bool
	records      map[string]time.Time
	logger       *slog.Logger
}

var _ ports.DedupStore = (*Store)(nil)

type stateFile struct {
	Version   string            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Items     map[string]string `json:"items"`
}

// NewStore wires a store over the given state file. A disabled store answers
// every membership query with false and turns Register/Persist into no-ops,
// so the rest of the pipeline runs unchanged without the filter.
func NewStore(path string, lookbackDays int, enabled bool, logger *slog.Logger) *Store {
	return &Store{
		path:         path,
		lookbackDays: lookbackDays,
		enabled:      enabled,
		records:      map[string]time.Time{},
		logger:       logger,
	}
}

// Load reads persisted state. Absent or corrupt state yields an empty store;
// a corrupt file is moved aside so the next persist starts clean.
func (s *Store) Load() {
	s.records = map[string]time.Time{}
	if !s.enabled {
		return
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.warn("read dedup state", "path", s.path, "error", err)
		}
		return
	}

	var state stateFile
	if err := json.Unmarshal(raw, &state); err != nil {
		backup := s.path + ".corrupt"
		s.warn("corrupt dedup state, backing up", "path", s.path, "backup", backup, "error", err)
		_ = os.Rename(s.path, backup)
		return
	}

	for fingerprint, seen := range state.Items {
		parsed, err := time.Parse(time.RFC3339, seen)
		if err != nil {
			continue
		}
		s.records[fingerprint] = parsed
	}

	s.debug("loaded dedup state", "records", len(s.records))
}

// IsDuplicate reports whether the fingerprint was seen in a previous run or
// registered earlier in the current one.
func (s *Store) IsDuplicate(fingerprint string) bool {
	if !s.enabled {
		return false
	}
	_, ok := s.records[fingerprint]
	return ok
}

// Register records a fingerprint with its first-seen date. Registering an
// already-present fingerprint keeps the original date.
func (s *Store) Register(fingerprint string, seen time.Time) {
	if !s.enabled {
		return
	}
	if _, ok := s.records[fingerprint]; ok {
		return
	}
	s.records[fingerprint] = seen.UTC()
}

// EvictExpired drops records whose first-seen date is strictly older than
// now minus the lookback window. A record exactly at the cutoff is retained.
func (s *Store) EvictExpired(now time.Time) {
	if !s.enabled {
		return
	}

	cutoff := now.UTC().AddDate(0, 0, -s.lookbackDays)
	removed := 0
	for fingerprint, seen := range s.records {
		if seen.Before(cutoff) {
			delete(s.records, fingerprint)
			removed++
		}
	}

	if removed > 0 {
		s.debug("evicted expired dedup records", "removed", removed, "kept", len(s.records))
	}
}

// Persist writes the record set atomically (temp file + rename) so a crash
// mid-write never leaves a truncated store.
func (s *Store) Persist() error {
	if !s.enabled {
		return nil
	}

	state := stateFile{
		Version:   stateVersion,
		UpdatedAt: time.Now().UTC(),
		Items:     make(map[string]string, len(s.records)),
	}
	for fingerprint, seen := range s.records {
		state.Items[fingerprint] = seen.Format(time.RFC3339)
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dedup state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}

	s.debug("persisted dedup state", "records", len(s.records))
	return nil
}

// Len reports the number of tracked fingerprints.
func (s *Store) Len() int {
	return len(s.records)
}

func (s *Store) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Store) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
