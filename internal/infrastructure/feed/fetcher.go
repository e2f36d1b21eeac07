package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"FeedDigest/internal/dedup"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

const maxContentLength = 1000

// Fetcher retrieves configured feeds, normalizes their entries into items and
// filters out everything the dedup store has already seen.
type Fetcher struct {
	sources         []Source
	store           ports.DedupStore
	parser          *gofeed.Parser
	maxFeeds        int
	maxItemsPerFeed int
	timeout         time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

var _ ports.FeedSource = (*Fetcher)(nil)

// NewFetcher wires feed sources with the shared dedup store. maxFeeds <= 0
// means no feed-list truncation.
func NewFetcher(sources []Source, store ports.DedupStore, maxFeeds, maxItemsPerFeed int, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if maxItemsPerFeed <= 0 {
		maxItemsPerFeed = 10
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{
		sources:         sources,
		store:           store,
		parser:          gofeed.NewParser(),
		maxFeeds:        maxFeeds,
		maxItemsPerFeed: maxItemsPerFeed,
		timeout:         timeout,
		logger:          logger,
		now:             time.Now,
	}
}

// FetchAll walks the feed list in order and returns new items in feed-list
// order then within-feed order. A broken feed is logged and skipped; it never
// aborts the run.
func (f *Fetcher) FetchAll(ctx context.Context) ([]domain.Item, error) {
	sources := f.sources
	if f.maxFeeds > 0 && len(sources) > f.maxFeeds {
		sources = sources[:f.maxFeeds]
	}

	f.debug("fetching feeds", "feeds", len(sources))

	var (
		items      []domain.Item
		duplicates int
	)

	for _, src := range sources {
		fetched, skipped, err := f.fetchOne(ctx, src)
		if err != nil {
			f.warn("fetch feed failed", "url", src.URL, "error", err)
			continue
		}
		items = append(items, fetched...)
		duplicates += skipped
	}

	f.debug("fetch done", "items", len(items), "duplicates_skipped", duplicates)
	return items, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, src Source) ([]domain.Item, int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(src.URL, fetchCtx)
	if err != nil {
		return nil, 0, err
	}

	source := strings.TrimSpace(parsed.Title)
	if source == "" {
		source = "Unknown"
	}

	entries := parsed.Items
	if len(entries) > f.maxItemsPerFeed {
		entries = entries[:f.maxItemsPerFeed]
	}

	seen := f.now().UTC()

	var (
		items   []domain.Item
		skipped int
	)
	for _, entry := range entries {
		item := f.buildItem(src, source, entry)

		if f.store != nil && f.store.IsDuplicate(item.Fingerprint) {
			skipped++
			continue
		}
		if f.store != nil {
			f.store.Register(item.Fingerprint, seen)
		}
		items = append(items, item)
	}

	f.debug("feed fetched", "url", src.URL, "items", len(items), "skipped", skipped)
	return items, skipped, nil
}

func (f *Fetcher) buildItem(src Source, source string, entry *gofeed.Item) domain.Item {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = "Untitled"
	}

	content := entry.Content
	if content == "" {
		content = entry.Description
	}

	item := domain.Item{
		FeedURL:     src.URL,
		Category:    src.Category,
		Source:      source,
		Title:       title,
		Link:        dedup.NormalizeLink(entry.Link),
		Content:     lo.Substring(htmlToText(content), 0, maxContentLength),
		Fingerprint: dedup.Fingerprint(title, entry.Link),
	}
	if entry.PublishedParsed != nil {
		item.PublishedAt = entry.PublishedParsed.UTC()
	}

	return item
}

// htmlToText strips markup from feed-provided content so prompts carry plain
// text. Unparsable input is returned as-is.
func htmlToText(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return strings.TrimSpace(raw)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
