package models

import "time"

// ReportEvent is emitted after a report has been published.
type ReportEvent struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Region      string    `json:"region"`
	Topic       string    `json:"topic"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Headline    string    `json:"headline,omitempty"`
	ArticleURL  string    `json:"article_url,omitempty"`
	PostID      string    `json:"post_id"`
	PostURL     string    `json:"post_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// ReportDocument represents the canonical structure stored in Elasticsearch.
type ReportDocument struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Region    string    `json:"region"`
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Headline  string    `json:"headline"`
	Keywords  []string  `json:"keywords"`
	URLs      []string  `json:"urls"`
	PostID    string    `json:"post_id"`
	PostURL   string    `json:"post_url"`
	Timestamp time.Time `json:"timestamp"`
}
