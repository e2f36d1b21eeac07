package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
)

// fakeCompleter returns canned responses and can be told to fail for items
// whose prompt contains a marker string.
type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	inflight int
	peak     int
	failOn   string
	respond  func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, prompt string, _ int) (domain.Completion, error) {
	f.mu.Lock()
	f.calls++
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return domain.Completion{}, fmt.Errorf("induced failure")
	}
	if f.respond != nil {
		text, err := f.respond(prompt)
		if err != nil {
			return domain.Completion{}, err
		}
		return domain.Completion{Text: text, Usage: domain.TokenUsage{Input: 10, Output: 5}}, nil
	}
	return domain.Completion{
		Text:  `{"summary": "it happened", "significance": "it matters", "topics": ["a", "b"]}`,
		Usage: domain.TokenUsage{Input: 10, Output: 5},
	}, nil
}

func testItems(n int) []domain.Item {
	items := make([]domain.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.Item{
			Title:       fmt.Sprintf("item-%d", i),
			Link:        fmt.Sprintf("https://example.com/%d", i),
			Fingerprint: fmt.Sprintf("fp-%d", i),
			Content:     "some content",
		})
	}
	return items
}

func newTestSummarizer(client *fakeCompleter, workers int) *Summarizer {
	return New(client, config.ModelsConfig{Summarize: "fast-model", Workers: workers, MaxAttempts: 1}, nil)
}

func TestSummarizeAllHappyPath(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{}
	summarizer := newTestSummarizer(client, 3)

	summaries, dropped := summarizer.SummarizeAll(context.Background(), testItems(7))

	if dropped != 0 {
		t.Fatalf("expected no drops, got %d", dropped)
	}
	if len(summaries) != 7 {
		t.Fatalf("expected 7 summaries, got %d", len(summaries))
	}

	// Every summary must trace back to a distinct source item.
	seen := map[string]bool{}
	for _, s := range summaries {
		if s.Item.Fingerprint == "" || seen[s.Item.Fingerprint] {
			t.Fatalf("summary not traceable to a unique item: %+v", s.Item)
		}
		seen[s.Item.Fingerprint] = true
		if s.Text != "it happened" || len(s.Topics) != 2 {
			t.Fatalf("unexpected summary payload: %+v", s)
		}
	}
}

func TestSummarizeAllDropsFailedItems(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{failOn: "item-3"}
	summarizer := newTestSummarizer(client, 5)

	summaries, dropped := summarizer.SummarizeAll(context.Background(), testItems(6))

	if dropped != 1 {
		t.Fatalf("expected 1 drop, got %d", dropped)
	}
	if len(summaries) != 5 {
		t.Fatalf("expected 5 summaries, got %d", len(summaries))
	}
	for _, s := range summaries {
		if s.Item.Title == "item-3" {
			t.Fatalf("failed item leaked into the result set")
		}
	}
}

func TestSummarizeAllDropsUnparsableOutput(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "item-0") {
			return "this is not json at all", nil
		}
		return `{"summary": "ok", "significance": "", "topics": []}`, nil
	}}
	summarizer := newTestSummarizer(client, 2)

	summaries, dropped := summarizer.SummarizeAll(context.Background(), testItems(3))

	if dropped != 1 {
		t.Fatalf("expected 1 drop for unparsable output, got %d", dropped)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
}

func TestSummarizeAllBoundsConcurrency(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{}
	summarizer := newTestSummarizer(client, 2)

	summarizer.SummarizeAll(context.Background(), testItems(20))

	if client.peak > 2 {
		t.Fatalf("worker pool exceeded its bound: peak %d", client.peak)
	}
	if client.calls != 20 {
		t.Fatalf("expected 20 calls, got %d", client.calls)
	}
}

func TestSummarizeAllEmptyInput(t *testing.T) {
	t.Parallel()

	summaries, dropped := newTestSummarizer(&fakeCompleter{}, 2).SummarizeAll(context.Background(), nil)
	if len(summaries) != 0 || dropped != 0 {
		t.Fatalf("empty input produced %d summaries, %d drops", len(summaries), dropped)
	}
}

func TestOutputBudget(t *testing.T) {
	t.Parallel()

	if got := outputBudget(0); got != minOutputTokens {
		t.Fatalf("empty content budget = %d, want %d", got, minOutputTokens)
	}
	if got := outputBudget(400); got != minOutputTokens+100 {
		t.Fatalf("mid content budget = %d", got)
	}
	if got := outputBudget(100000); got != maxOutputTokens {
		t.Fatalf("long content budget = %d, want cap %d", got, maxOutputTokens)
	}
}
