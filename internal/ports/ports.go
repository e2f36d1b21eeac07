package ports

import (
	"context"
	"time"

	"FeedDigest/internal/domain"
)

// FeedSource pulls fresh items from the configured feeds, already
// fingerprinted and filtered against the dedup store.
type FeedSource interface {
	FetchAll(ctx context.Context) ([]domain.Item, error)
}

// DedupStore tracks fingerprints of items seen in recent runs.
type DedupStore interface {
	// Load reads persisted state; absent or corrupt state yields an empty
	// store, never an error.
	Load()
	IsDuplicate(fingerprint string) bool
	Register(fingerprint string, seen time.Time)
	EvictExpired(now time.Time)
	Persist() error
}

// CompletionClient abstracts the text-completion service.
type CompletionClient interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (domain.Completion, error)
}

// Summarizer fans item summarization out across a worker pool.
type Summarizer interface {
	// SummarizeAll returns the summaries that succeeded plus the number of
	// items dropped due to per-item failures.
	SummarizeAll(ctx context.Context, items []domain.Item) ([]domain.Summary, int)
}

// ThemeLinker extracts cross-item themes from the full summary set.
// It degrades to an empty ThemeSet instead of failing.
type ThemeLinker interface {
	LinkThemes(ctx context.Context, summaries []domain.Summary) domain.ThemeSet
}

// Synthesizer produces the final digest; its failure fails the run.
type Synthesizer interface {
	Synthesize(ctx context.Context, summaries []domain.Summary, themes domain.ThemeSet, fetched, dropped int) (domain.Digest, error)
}

// RunArtifacts persists the intermediate documents of one run.
type RunArtifacts interface {
	SaveItems(items []domain.Item) error
	SaveSummaries(summaries []domain.Summary) error
	SaveThemes(themes domain.ThemeSet) error
	SaveDigest(digest domain.Digest) (string, error)
	SaveRaw(name string, payload []byte) error
}

// ArtifactStore opens the artifact directory for a run.
type ArtifactStore interface {
	BeginRun(now time.Time) (RunArtifacts, error)
}

// Deliverer sends the finished digest to an outbound channel (email).
type Deliverer interface {
	Deliver(ctx context.Context, digest domain.Digest) error
}

// RunArchive records completed runs for later inspection.
type RunArchive interface {
	SaveRun(ctx context.Context, digest domain.Digest, reportPath string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
