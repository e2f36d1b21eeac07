package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source      ports.FeedSource
	Dedup       ports.DedupStore
	Summarizer  ports.Summarizer
	Linker      ports.ThemeLinker
	Synthesizer ports.Synthesizer
	Artifacts   ports.ArtifactStore
	Deliverer   ports.Deliverer
	Archive     ports.RunArchive
	Logger      *slog.Logger
}

// Pipeline implements the four-stage digest workflow: fetch, summarize,
// link themes, synthesize. Each stage persists its output before the next
// stage starts so a run can be inspected afterwards.
type Pipeline struct {
	source      ports.FeedSource
	dedup       ports.DedupStore
	summarizer  ports.Summarizer
	linker      ports.ThemeLinker
	synthesizer ports.Synthesizer
	artifacts   ports.ArtifactStore
	deliverer   ports.Deliverer
	archive     ports.RunArchive
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:      deps.Source,
		dedup:       deps.Dedup,
		summarizer:  deps.Summarizer,
		linker:      deps.Linker,
		synthesizer: deps.Synthesizer,
		artifacts:   deps.Artifacts,
		deliverer:   deps.Deliverer,
		archive:     deps.Archive,
		logger:      deps.Logger,
	}
}

// Linkers that want the raw-response debug dump pick up the current run's
// artifact sink through this.
type artifactAware interface {
	SetArtifacts(ports.RunArtifacts)
}

// Run executes one full digest pass. Only synthesis failure (and the
// inability to write the digest file) fails the run; every other failure
// degrades the result and is reported in the final stats.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (domain.Digest, error) {
	if p.source == nil || p.summarizer == nil || p.linker == nil || p.synthesizer == nil {
		return domain.Digest{}, fmt.Errorf("pipeline missing stage dependencies")
	}

	if p.dedup != nil {
		p.dedup.Load()
	}

	var run ports.RunArtifacts
	if p.artifacts != nil {
		opened, err := p.artifacts.BeginRun(now)
		if err != nil {
			return domain.Digest{}, fmt.Errorf("begin run artifacts: %w", err)
		}
		run = opened
	}
	if aware, ok := p.linker.(artifactAware); ok {
		aware.SetArtifacts(run)
	}

	items, err := p.source.FetchAll(ctx)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("fetch feeds: %w", err)
	}
	p.info("fetch stage done", "items", len(items))
	p.saveArtifact(run, "items", func() error { return run.SaveItems(items) })

	summaries, dropped := p.summarizer.SummarizeAll(ctx, items)
	p.info("summarize stage done", "summaries", len(summaries), "dropped", dropped)
	p.saveArtifact(run, "summaries", func() error { return run.SaveSummaries(summaries) })

	themes := p.linker.LinkThemes(ctx, summaries)
	p.info("theme stage done", "themes", len(themes.Themes))
	p.saveArtifact(run, "themes", func() error { return run.SaveThemes(themes) })

	digest, err := p.synthesizer.Synthesize(ctx, summaries, themes, len(items), dropped)
	if err != nil {
		return domain.Digest{}, err
	}

	reportPath := ""
	if run != nil {
		path, err := run.SaveDigest(digest)
		if err != nil {
			return domain.Digest{}, fmt.Errorf("write digest artifact: %w", err)
		}
		reportPath = path
	}

	if p.dedup != nil {
		p.dedup.EvictExpired(now)
		if err := p.dedup.Persist(); err != nil {
			p.warn("persist dedup state failed, next run will reuse the previous snapshot", "error", err)
		}
	}

	if p.archive != nil {
		if err := p.archive.SaveRun(ctx, digest, reportPath); err != nil {
			p.warn("archive run failed", "error", err)
		}
	}

	if p.deliverer != nil {
		if err := p.deliverer.Deliver(ctx, digest); err != nil {
			p.warn("digest delivery failed, file artifact remains the run output", "error", err)
		}
	}

	p.info("run complete",
		"fetched", digest.Stats.FetchedCount,
		"summarized", digest.Stats.SummarizedCount,
		"dropped", digest.Stats.DroppedCount,
		"themes", len(themes.Themes),
		"estimated_cost", digest.Stats.EstimatedCost,
		"report", reportPath,
	)

	return digest, nil
}

func (p *Pipeline) saveArtifact(run ports.RunArtifacts, stage string, save func() error) {
	if run == nil {
		return
	}
	if err := save(); err != nil {
		p.warn("persist stage artifact failed", "stage", stage, "error", err)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
