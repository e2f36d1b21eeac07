package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// Store writes per-run artifact directories under a base reports dir,
// one directory per day grouped by month.
type Store struct {
	baseDir string
}

var _ ports.ArtifactStore = (*Store)(nil)

// NewStore wires the artifact tree root.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BeginRun creates (or reuses) the artifact directory for the given moment.
func (s *Store) BeginRun(now time.Time) (ports.RunArtifacts, error) {
	dir := filepath.Join(s.baseDir, now.Format("January-2006"), now.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Run{dir: dir, startedAt: now}, nil
}

// Run is the artifact sink for a single pipeline execution. Documents are
// written after their stage completes and never read back within the run.
type Run struct {
	dir       string
	startedAt time.Time
}

var _ ports.RunArtifacts = (*Run)(nil)

// Dir exposes the run directory for logging and archiving.
func (r *Run) Dir() string {
	return r.dir
}

// SaveItems persists the fetch stage output.
func (r *Run) SaveItems(items []domain.Item) error {
	return r.writeJSON("01_items.json", items)
}

// SaveSummaries persists the summarization stage output.
func (r *Run) SaveSummaries(summaries []domain.Summary) error {
	return r.writeJSON("02_summaries.json", summaries)
}

// SaveThemes persists the theme-linking stage output.
func (r *Run) SaveThemes(themes domain.ThemeSet) error {
	return r.writeJSON("03_themes.json", themes)
}

// SaveDigest writes the final digest markdown and returns its path.
func (r *Run) SaveDigest(digest domain.Digest) (string, error) {
	name := fmt.Sprintf("digest_%s.md", r.startedAt.Format("20060102_150405"))
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, []byte(digest.Markdown), 0o644); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	return path, nil
}

// SaveRaw stores an arbitrary debugging payload alongside the stage
// documents.
func (r *Run) SaveRaw(name string, payload []byte) error {
	if err := os.WriteFile(filepath.Join(r.dir, name), payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (r *Run) writeJSON(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(r.dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
