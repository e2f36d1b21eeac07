package llm

import (
	"fmt"
	"strings"

	"FeedDigest/internal/domain"
)

// Specializations of the per-item prompt, keyed by feed category.
var itemPrompts = map[string]string{
	"news": `Article: %s
Source: %s
Content: %s

Extract:
1. What happened (2-3 sentences) - the key facts
2. Implications/impact - why this matters
3. Topics (3-5 tags for categorization)

Format as JSON:
{
  "summary": "what happened in 2-3 sentences",
  "significance": "why it matters and impact",
  "topics": ["topic1", "topic2", "topic3"]
}`,

	"tech": `Article: %s
Source: %s
Content: %s

Extract:
1. What was announced/discovered (2-3 sentences)
2. Technical and business significance - what's new or different
3. Topics (3-5 tags)

Format as JSON:
{
  "summary": "what was announced/discovered",
  "significance": "technical and business significance",
  "topics": ["topic1", "topic2", "topic3"]
}`,

	"science": `Article: %s
Source: %s
Content: %s

Extract:
1. Research finding/discovery (2-3 sentences)
2. Implications for the field and real-world applications
3. Topics (3-5 tags)

Format as JSON:
{
  "summary": "the research finding",
  "significance": "implications and applications",
  "topics": ["topic1", "topic2", "topic3"]
}`,

	"culture": `Article: %s
Source: %s
Content: %s

Extract:
1. Main point or story (2-3 sentences)
2. Cultural/social context - what makes this interesting
3. Topics (3-5 tags)

Format as JSON:
{
  "summary": "main point",
  "significance": "why this is culturally/socially interesting",
  "topics": ["topic1", "topic2", "topic3"]
}`,

	"finance": `Article: %s
Source: %s
Content: %s

Extract:
1. Financial development (2-3 sentences) - what changed
2. Market impact and implications for investors or economy
3. Topics (3-5 tags)

Format as JSON:
{
  "summary": "financial development",
  "significance": "market impact and implications",
  "topics": ["topic1", "topic2", "topic3"]
}`,

	"default": `Article: %s
Source: %s
Content: %s

Extract:
1. Main point (2-3 sentences)
2. Why it matters
3. Topics (3-5 tags)

Format as JSON:
{
  "summary": "main point",
  "significance": "why it matters",
  "topics": ["topic1", "topic2", "topic3"]
}`,
}

// Keyword fragments mapped to prompt specializations. Matched in order
// against the feed-list category first, then the feed's own title, so a
// source like "Hacker News" resolves the same way every run.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"tech", "tech"}, {"hacker", "tech"}, {"programming", "tech"}, {"software", "tech"}, {"ai", "tech"},
	{"science", "science"}, {"research", "science"}, {"nature", "science"}, {"space", "science"},
	{"finance", "finance"}, {"market", "finance"}, {"business", "finance"}, {"econom", "finance"},
	{"culture", "culture"}, {"art", "culture"}, {"books", "culture"}, {"games", "culture"},
	{"news", "news"}, {"world", "news"}, {"politics", "news"},
}

// CategoryFor resolves an item to a prompt specialization, falling back to
// "default" when nothing matches.
func CategoryFor(item domain.Item) string {
	for _, haystack := range []string{item.Category, item.Source} {
		lowered := strings.ToLower(haystack)
		for _, entry := range categoryKeywords {
			if strings.Contains(lowered, entry.keyword) {
				return entry.category
			}
		}
	}
	return "default"
}

// ItemPrompt renders the category-specialized summarization prompt for one
// item.
func ItemPrompt(item domain.Item) string {
	template, ok := itemPrompts[CategoryFor(item)]
	if !ok {
		template = itemPrompts["default"]
	}
	return fmt.Sprintf(template, item.Title, item.Source, item.Content)
}

// ThemePrompt renders the single cross-item theme-extraction prompt over the
// full summary set.
func ThemePrompt(summaries []domain.Summary) string {
	var sb strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&sb, "%d. [%s] %s: %s\n", i, s.Item.Source, s.Item.Title, s.Text)
	}

	return fmt.Sprintf(`Analyze these %d news items and identify major themes and connections.

%s
Find 3-5 overarching themes that connect multiple stories, and interesting connections between items.

Return ONLY valid JSON in this exact format (no additional fields):
{
  "themes": [
    {"name": "Theme name", "description": "Why it matters", "story_indices": [0, 3, 7]}
  ],
  "connections": [
    {"items": [1, 5], "connection": "How they relate"}
  ]
}

IMPORTANT: Return ONLY the JSON object, nothing else.`, len(summaries), sb.String())
}

// SynthesisPrompt renders the final digest prompt combining summaries and
// themes.
func SynthesisPrompt(summaries []domain.Summary, themes domain.ThemeSet) string {
	var summariesText strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&summariesText, "**[%s]** %s\nURL: %s\nSummary: %s\nSignificance: %s\nTopics: %s\n\n",
			s.Item.Source, s.Item.Title, s.Item.Link, s.Text, s.Significance, strings.Join(s.Topics, ", "))
	}

	var themesText strings.Builder
	for _, t := range themes.Themes {
		fmt.Fprintf(&themesText, "**%s**: %s\n\n", t.Name, t.Description)
	}

	return fmt.Sprintf(`Create a comprehensive daily digest from these pre-summarized articles.

THEMES IDENTIFIED:
%s
ARTICLE SUMMARIES:
%s
Write a digest with:

1. **Executive Summary** (2-3 sentences highlighting the most significant developments)

2. **Key Themes** (3-5 themes, each with 2-3 bullet points linking to specific stories)
   - Each bullet should include a [title](URL) link to the story
   - Explain why the theme matters

3. **Top Stories** (7-10 most important/interesting stories)
   - Format: **[Title](URL)** - Why it matters and key takeaways
   - Prioritize impact, novelty, and reader value

IMPORTANT: Include clickable markdown links throughout. Be concise but insightful.`,
		themesText.String(), summariesText.String())
}
