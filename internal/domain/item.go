package domain

import "time"

// Item is one normalized feed entry flowing through the pipeline.
type Item struct {
	FeedURL     string    `json:"feed_url"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content"`
	Fingerprint string    `json:"fingerprint"`
}

// TokenUsage counts tokens consumed by a single model call or a whole stage.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Add accumulates another usage figure into the receiver.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Input += other.Input
	u.Output += other.Output
}

// Completion is the raw result of one completion-service call.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// Summary is the model-produced digest of a single item.
type Summary struct {
	Item         Item       `json:"item"`
	Text         string     `json:"summary"`
	Significance string     `json:"significance"`
	Topics       []string   `json:"topics"`
	Usage        TokenUsage `json:"tokens"`
}

// Theme groups related items discovered across the full summary set.
type Theme struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	StoryIndices []int  `json:"story_indices"`
}

// Connection records a relation between two or more items outside any theme.
type Connection struct {
	Items      []int  `json:"items"`
	Connection string `json:"connection"`
}

// ThemeSet is the full output of the theme-linking stage.
type ThemeSet struct {
	Themes      []Theme      `json:"themes"`
	Connections []Connection `json:"connections"`
	Usage       TokenUsage   `json:"tokens"`
}

// RunStats summarizes what a pipeline run processed and what it cost.
type RunStats struct {
	ItemCount       int                   `json:"item_count"`
	FetchedCount    int                   `json:"fetched_count"`
	SummarizedCount int                   `json:"summarized_count"`
	DroppedCount    int                   `json:"dropped_count"`
	UsageByModel    map[string]TokenUsage `json:"usage_by_model"`
	EstimatedCost   float64               `json:"estimated_cost"`
	Degradations    []string              `json:"degradations,omitempty"`
}

// Digest is the final artifact of a run, immutable once produced.
type Digest struct {
	Markdown    string    `json:"markdown"`
	GeneratedAt time.Time `json:"generated_at"`
	Stats       RunStats  `json:"stats"`
}
