package report

import (
	"fmt"
	"strings"

	"github.com/DeafMist/trend-press/backend/internal/models"
)

// NoArticleHeadline replaces the headline when no article was found for a topic.
const NoArticleHeadline = "No news articles found"

// PostTitle returns the title used for the published post.
func PostTitle(topic string) string {
	return "Trending: " + topic
}

// Format renders the report body for a topic. article may be nil.
// The layout is fixed and consumers compare it byte for byte.
func Format(topic string, article *models.Article) string {
	headline := NoArticleHeadline
	description := ""
	if article != nil {
		headline = article.Title
		description = article.Description
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📰 Report for %s 📰\n\n", topic)
	fmt.Fprintf(&b, "🔍 Latest News: %s\n", headline)
	fmt.Fprintf(&b, "📝 Summary: %s\n", description)
	return b.String()
}

// Build bundles the post title and the formatted body.
func Build(topic string, article *models.Article) models.Report {
	return models.Report{
		Topic: topic,
		Title: PostTitle(topic),
		Body:  Format(topic, article),
	}
}
