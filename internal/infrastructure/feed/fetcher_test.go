package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FeedDigest/internal/dedup"
)

func rssFeed(title string, items ...[2]string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel>`)
	fmt.Fprintf(&sb, "<title>%s</title>", title)
	for _, item := range items {
		fmt.Fprintf(&sb,
			`<item><title>%s</title><link>%s</link><description>body of %s</description><pubDate>Fri, 28 Aug 2026 10:00:00 +0000</pubDate></item>`,
			item[0], item[1], item[0])
	}
	sb.WriteString(`</channel></rss>`)
	return sb.String()
}

func newTestStore(t *testing.T, enabled bool) *dedup.Store {
	t.Helper()
	store := dedup.NewStore(filepath.Join(t.TempDir(), "state.json"), 7, enabled, nil)
	store.Load()
	return store
}

func TestFetchAllFiltersCrossFeedDuplicates(t *testing.T) {
	t.Parallel()

	feedA := rssFeed("Feed A",
		[2]string{"Story One", "https://example.com/one"},
		[2]string{"Story Two", "https://example.com/two"},
		[2]string{"Shared Story", "https://example.com/shared?utm_source=a"},
	)
	feedB := rssFeed("Feed B",
		[2]string{"Story Three", "https://example.com/three"},
		[2]string{"Story Four", "https://example.com/four"},
		[2]string{"Shared Story", "https://example.com/shared?utm_source=b"},
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		if strings.HasPrefix(r.URL.Path, "/a") {
			_, _ = w.Write([]byte(feedA))
			return
		}
		_, _ = w.Write([]byte(feedB))
	}))
	defer server.Close()

	sources := []Source{
		{Category: "news", URL: server.URL + "/a"},
		{Category: "tech", URL: server.URL + "/b"},
	}

	fetcher := NewFetcher(sources, newTestStore(t, true), 0, 10, 5*time.Second, nil)

	items, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if len(items) != 5 {
		t.Fatalf("expected 5 unique items, got %d", len(items))
	}

	seen := map[string]bool{}
	for _, item := range items {
		if seen[item.Fingerprint] {
			t.Fatalf("duplicate fingerprint in output: %s", item.Fingerprint)
		}
		seen[item.Fingerprint] = true
	}

	// Feed-list order then within-feed order.
	wantTitles := []string{"Story One", "Story Two", "Shared Story", "Story Three", "Story Four"}
	for i, want := range wantTitles {
		if items[i].Title != want {
			t.Fatalf("item %d: got title %q, want %q", i, items[i].Title, want)
		}
	}

	if items[0].Category != "news" || items[3].Category != "tech" {
		t.Fatalf("categories not carried through: %q / %q", items[0].Category, items[3].Category)
	}
}

func TestFetchAllSkipsBrokenFeed(t *testing.T) {
	t.Parallel()

	good := rssFeed("Good Feed", [2]string{"Fine Story", "https://example.com/fine"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/broken") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(good))
	}))
	defer server.Close()

	sources := []Source{
		{URL: server.URL + "/broken"},
		{URL: server.URL + "/good"},
	}

	fetcher := NewFetcher(sources, newTestStore(t, true), 0, 10, 5*time.Second, nil)

	items, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Fine Story" {
		t.Fatalf("expected the single good item, got %+v", items)
	}
}

func TestFetchAllAppliesFeedAndItemCaps(t *testing.T) {
	t.Parallel()

	var served int
	feed := rssFeed("Busy Feed",
		[2]string{"One", "https://example.com/1"},
		[2]string{"Two", "https://example.com/2"},
		[2]string{"Three", "https://example.com/3"},
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
		_, _ = w.Write([]byte(feed))
	}))
	defer server.Close()

	sources := []Source{
		{URL: server.URL + "/a"},
		{URL: server.URL + "/b"},
		{URL: server.URL + "/c"},
	}

	fetcher := NewFetcher(sources, newTestStore(t, false), 1, 2, 5*time.Second, nil)

	items, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if served != 1 {
		t.Fatalf("maxFeeds not applied before fetching: %d requests", served)
	}
	if len(items) != 2 {
		t.Fatalf("maxItemsPerFeed not applied: got %d items", len(items))
	}
}

func TestFetchAllSecondRunYieldsNothing(t *testing.T) {
	t.Parallel()

	feed := rssFeed("Feed", [2]string{"Story", "https://example.com/story"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer server.Close()

	store := newTestStore(t, true)
	sources := []Source{{URL: server.URL}}

	first := NewFetcher(sources, store, 0, 10, 5*time.Second, nil)
	items, err := first.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("first FetchAll: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("first run: expected 1 item, got %d", len(items))
	}

	second := NewFetcher(sources, store, 0, 10, 5*time.Second, nil)
	items, err = second.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("second FetchAll: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("second run: expected 0 items, got %d", len(items))
	}
}

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	got := htmlToText("<p>Hello <b>world</b></p>\n<p>again</p>")
	if got != "Hello world again" {
		t.Fatalf("htmlToText = %q", got)
	}

	if got := htmlToText("plain text"); got != "plain text" {
		t.Fatalf("plain text altered: %q", got)
	}
}
