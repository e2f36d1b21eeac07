package feed

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// Source is one feed URL with the category section it was listed under.
type Source struct {
	Category string
	URL      string
}

// ParseFeedList reads a markdown feed list: "## Category" headers followed by
// "- <url>" bullets (bare URLs are also accepted). Order is preserved and
// repeated URLs are dropped.
func ParseFeedList(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed list: %w", err)
	}
	defer f.Close()

	var (
		sources  []Source
		category string
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "### "):
			category = strings.TrimSpace(strings.TrimPrefix(line, "### "))
		case strings.HasPrefix(line, "## "):
			category = strings.TrimSpace(strings.TrimPrefix(line, "## "))
		case strings.HasPrefix(line, "- http"):
			sources = append(sources, Source{Category: category, URL: trimComment(strings.TrimPrefix(line, "- "))})
		case strings.HasPrefix(line, "http"):
			sources = append(sources, Source{Category: category, URL: trimComment(line)})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feed list: %w", err)
	}

	return lo.UniqBy(sources, func(s Source) string { return s.URL }), nil
}

func trimComment(value string) string {
	if idx := strings.Index(value, " #"); idx > 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
