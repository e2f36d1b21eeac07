package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/infrastructure/llm"
	"FeedDigest/internal/ports"
)

const (
	minOutputTokens = 300
	maxOutputTokens = 1000
)

// Summarizer fans one completion call per item out across a fixed worker
// pool and collects the results behind a full fan-in barrier.
type Summarizer struct {
	client      ports.CompletionClient
	model       string
	workers     int
	maxAttempts int
	logger      *slog.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// New wires the summarization stage.
func New(client ports.CompletionClient, cfg config.ModelsConfig, logger *slog.Logger) *Summarizer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Summarizer{
		client:      client,
		model:       cfg.Summarize,
		workers:     workers,
		maxAttempts: attempts,
		logger:      logger,
	}
}

// SummarizeAll summarizes every item. A failed item (service error or
// unparsable model output) is logged and dropped; it never cancels sibling
// requests or the call itself. The returned count is the number of drops.
func (s *Summarizer) SummarizeAll(ctx context.Context, items []domain.Item) ([]domain.Summary, int) {
	if len(items) == 0 {
		return nil, 0
	}

	s.debug("summarizing items", "items", len(items), "model", s.model, "workers", s.workers)

	var (
		mu        sync.Mutex
		summaries []domain.Summary
		dropped   int
	)

	jobs := make(chan domain.Item)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				summary, err := s.summarizeOne(ctx, item)

				mu.Lock()
				if err != nil {
					dropped++
				} else {
					summaries = append(summaries, summary)
				}
				mu.Unlock()

				if err != nil {
					s.warn("item dropped", "title", item.Title, "error", err)
				}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	s.debug("summarize done", "summaries", len(summaries), "dropped", dropped)
	return summaries, dropped
}

func (s *Summarizer) summarizeOne(ctx context.Context, item domain.Item) (domain.Summary, error) {
	prompt := llm.ItemPrompt(item)
	budget := outputBudget(len(item.Content))

	var (
		completion domain.Completion
		err        error
	)
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		completion, err = s.client.Complete(ctx, s.model, prompt, budget)
		if err == nil {
			break
		}
	}
	if err != nil {
		return domain.Summary{}, err
	}

	var parsed struct {
		Summary      string   `json:"summary"`
		Significance string   `json:"significance"`
		Topics       []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(completion.Text)), &parsed); err != nil {
		return domain.Summary{}, fmt.Errorf("parse model output: %w", err)
	}
	if parsed.Summary == "" {
		return domain.Summary{}, fmt.Errorf("model output missing summary field")
	}

	return domain.Summary{
		Item:         item,
		Text:         parsed.Summary,
		Significance: parsed.Significance,
		Topics:       parsed.Topics,
		Usage:        completion.Usage,
	}, nil
}

// outputBudget scales the requested output ceiling with the input length so
// long items are not truncated and short ones do not over-request.
func outputBudget(contentLength int) int {
	budget := minOutputTokens + contentLength/4
	if budget > maxOutputTokens {
		return maxOutputTokens
	}
	return budget
}

func (s *Summarizer) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Summarizer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
