package themes

import (
	"context"
	"encoding/json"
	"log/slog"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/infrastructure/llm"
	"FeedDigest/internal/ports"
)

const themeOutputTokens = 2000

// Linker issues one completion call over the full summary set and extracts
// cross-item themes from its JSON response.
type Linker struct {
	client    ports.CompletionClient
	model     string
	artifacts ports.RunArtifacts
	logger    *slog.Logger
}

var _ ports.ThemeLinker = (*Linker)(nil)

// NewLinker wires the theme-linking stage. The artifact sink receives raw
// responses that failed to parse, for offline debugging; it may be nil.
func NewLinker(client ports.CompletionClient, cfg config.ModelsConfig, logger *slog.Logger) *Linker {
	return &Linker{
		client: client,
		model:  cfg.Themes,
		logger: logger,
	}
}

// SetArtifacts points the debug dump at the current run's artifact store.
func (l *Linker) SetArtifacts(artifacts ports.RunArtifacts) {
	l.artifacts = artifacts
}

// LinkThemes degrades instead of failing: a service error or unparsable
// response yields an empty ThemeSet so a missing theme list only lowers the
// quality of the synthesis stage, never aborts the run. The model call is
// made once; there is no retry.
func (l *Linker) LinkThemes(ctx context.Context, summaries []domain.Summary) domain.ThemeSet {
	if len(summaries) == 0 {
		return domain.ThemeSet{}
	}

	l.debug("linking themes", "summaries", len(summaries), "model", l.model)

	completion, err := l.client.Complete(ctx, l.model, llm.ThemePrompt(summaries), themeOutputTokens)
	if err != nil {
		l.warn("theme call failed, continuing without themes", "error", err)
		return domain.ThemeSet{}
	}

	var parsed struct {
		Themes      []domain.Theme      `json:"themes"`
		Connections []domain.Connection `json:"connections"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(completion.Text)), &parsed); err != nil {
		l.warn("theme response unparsable, continuing without themes", "error", err)
		l.dumpRaw(completion.Text)
		return domain.ThemeSet{Usage: completion.Usage}
	}

	l.debug("themes linked", "themes", len(parsed.Themes), "connections", len(parsed.Connections))

	return domain.ThemeSet{
		Themes:      parsed.Themes,
		Connections: parsed.Connections,
		Usage:       completion.Usage,
	}
}

func (l *Linker) dumpRaw(text string) {
	if l.artifacts == nil {
		return
	}
	if err := l.artifacts.SaveRaw("theme_debug.txt", []byte(text)); err != nil {
		l.warn("save theme debug dump", "error", err)
	}
}

func (l *Linker) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

func (l *Linker) warn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}
