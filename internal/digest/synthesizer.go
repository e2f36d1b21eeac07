package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/infrastructure/llm"
	"FeedDigest/internal/ports"
)

const synthesisOutputTokens = 4000

// Synthesizer produces the final narrative digest with the higher-capability
// model and computes the run's token/cost statistics.
type Synthesizer struct {
	client  ports.CompletionClient
	models  config.ModelsConfig
	pricing map[string]config.ModelPrice
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer wires the synthesis stage.
func NewSynthesizer(client ports.CompletionClient, models config.ModelsConfig, pricing map[string]config.ModelPrice, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		client:  client,
		models:  models,
		pricing: pricing,
		logger:  logger,
		now:     time.Now,
	}
}

// Synthesize combines summaries and themes into the final digest. This is
// the only stage whose failure fails the run: without it there is no digest.
// An empty summary set short-circuits without a model call.
func (s *Synthesizer) Synthesize(ctx context.Context, summaries []domain.Summary, themes domain.ThemeSet, fetched, dropped int) (domain.Digest, error) {
	generatedAt := s.now()

	if len(summaries) == 0 {
		s.debug("no summaries, producing empty digest")
		stats := s.buildStats(summaries, themes, domain.TokenUsage{}, fetched, dropped)
		return domain.Digest{
			Markdown:    s.render(generatedAt, "No new items since the last run.", stats),
			GeneratedAt: generatedAt,
			Stats:       stats,
		}, nil
	}

	s.debug("synthesizing digest", "summaries", len(summaries), "themes", len(themes.Themes), "model", s.models.Synthesize)

	completion, err := s.client.Complete(ctx, s.models.Synthesize, llm.SynthesisPrompt(summaries, themes), synthesisOutputTokens)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("synthesize digest: %w", err)
	}

	stats := s.buildStats(summaries, themes, completion.Usage, fetched, dropped)

	return domain.Digest{
		Markdown:    s.render(generatedAt, completion.Text, stats),
		GeneratedAt: generatedAt,
		Stats:       stats,
	}, nil
}

func (s *Synthesizer) buildStats(summaries []domain.Summary, themes domain.ThemeSet, synthUsage domain.TokenUsage, fetched, dropped int) domain.RunStats {
	usage := map[string]domain.TokenUsage{}

	summarizeUsage := usage[s.models.Summarize]
	for _, summary := range summaries {
		summarizeUsage.Add(summary.Usage)
	}
	usage[s.models.Summarize] = summarizeUsage

	themeUsage := usage[s.models.Themes]
	themeUsage.Add(themes.Usage)
	usage[s.models.Themes] = themeUsage

	finalUsage := usage[s.models.Synthesize]
	finalUsage.Add(synthUsage)
	usage[s.models.Synthesize] = finalUsage

	stats := domain.RunStats{
		ItemCount:       len(summaries),
		FetchedCount:    fetched,
		SummarizedCount: len(summaries),
		DroppedCount:    dropped,
		UsageByModel:    usage,
		EstimatedCost:   s.estimateCost(usage),
	}

	if len(themes.Themes) == 0 && len(summaries) > 0 {
		stats.Degradations = append(stats.Degradations, "no themes extracted")
	}
	if dropped > 0 {
		stats.Degradations = append(stats.Degradations, fmt.Sprintf("%d items dropped during summarization", dropped))
	}

	return stats
}

// estimateCost applies the static per-model price table (dollars per million
// tokens). Models missing from the table contribute zero.
func (s *Synthesizer) estimateCost(usage map[string]domain.TokenUsage) float64 {
	var total float64
	for model, u := range usage {
		price, ok := s.pricing[model]
		if !ok {
			continue
		}
		total += float64(u.Input)/1_000_000*price.Input + float64(u.Output)/1_000_000*price.Output
	}
	return total
}

func (s *Synthesizer) render(generatedAt time.Time, body string, stats domain.RunStats) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Daily Digest - %s\n\n", generatedAt.Format("January 2, 2006"))
	sb.WriteString(strings.TrimSpace(body))
	sb.WriteString("\n\n---\n\n## Generation Stats\n\n")
	fmt.Fprintf(&sb, "**Items:** %d fetched, %d summarized, %d dropped\n\n", stats.FetchedCount, stats.SummarizedCount, stats.DroppedCount)

	sb.WriteString("**Token Usage:**\n")
	models := make([]string, 0, len(stats.UsageByModel))
	for model := range stats.UsageByModel {
		models = append(models, model)
	}
	sort.Strings(models)
	for _, model := range models {
		u := stats.UsageByModel[model]
		fmt.Fprintf(&sb, "- %s: %d input, %d output\n", model, u.Input, u.Output)
	}

	fmt.Fprintf(&sb, "\n**Estimated Cost:** $%.4f\n", stats.EstimatedCost)

	for _, degradation := range stats.Degradations {
		fmt.Fprintf(&sb, "\n_Note: %s._\n", degradation)
	}

	return sb.String()
}

func (s *Synthesizer) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
