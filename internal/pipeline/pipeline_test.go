package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trend-press/backend/internal/models"
	"github.com/DeafMist/trend-press/backend/internal/pipeline"
	"github.com/DeafMist/trend-press/backend/internal/trends"
)

type stubTrends struct {
	topics []string
	err    error
	calls  int
}

func (s *stubTrends) FetchTrendingTopics(_ context.Context, _ string) ([]string, error) {
	s.calls++
	return s.topics, s.err
}

type stubNews struct {
	articles map[string]*models.Article
	calls    []string
}

func (s *stubNews) FetchTopArticle(_ context.Context, topic string) *models.Article {
	s.calls = append(s.calls, topic)
	return s.articles[topic]
}

type publishCall struct {
	title string
	body  string
}

type stubPublisher struct {
	failFor map[string]bool
	calls   []publishCall
}

func (s *stubPublisher) PublishPost(_ context.Context, title, html string) (*models.Post, error) {
	s.calls = append(s.calls, publishCall{title: title, body: html})
	if s.failFor[title] {
		return nil, errors.New("ghost unavailable")
	}
	return &models.Post{ID: fmt.Sprintf("post-%d", len(s.calls)), Title: title, Status: "published"}, nil
}

type stubEvents struct {
	events []models.ReportEvent
	err    error
}

func (s *stubEvents) Publish(_ context.Context, evt models.ReportEvent) error {
	s.events = append(s.events, evt)
	return s.err
}

func titles(calls []publishCall) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.title)
	}
	return out
}

func TestRunProcessesFirstThreeTopics(t *testing.T) {
	tr := &stubTrends{topics: []string{"A", "B", "C", "D"}}
	nw := &stubNews{}
	pub := &stubPublisher{}

	summary, err := pipeline.New(tr, nw, pub, pipeline.Options{}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, tr.calls)
	require.Equal(t, []string{"A", "B", "C"}, nw.calls)
	require.Equal(t, []string{"Trending: A", "Trending: B", "Trending: C"}, titles(pub.calls))
	require.Equal(t, models.StateDone, summary.State)
	require.Len(t, summary.Results, 3)
}

func TestRunTopicBound(t *testing.T) {
	tests := []struct {
		name   string
		topics []string
		want   int
	}{
		{name: "empty", topics: nil, want: 0},
		{name: "one", topics: []string{"A"}, want: 1},
		{name: "two", topics: []string{"A", "B"}, want: 2},
		{name: "three", topics: []string{"A", "B", "C"}, want: 3},
		{name: "many", topics: strings.Split("A B C D E F G H I J", " "), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nw := &stubNews{}
			pub := &stubPublisher{}

			summary, err := pipeline.New(&stubTrends{topics: tt.topics}, nw, pub, pipeline.Options{}).Run(context.Background())
			require.NoError(t, err)
			require.Equal(t, models.StateDone, summary.State)
			require.Len(t, nw.calls, tt.want)
			require.Len(t, pub.calls, tt.want)
			require.Equal(t, tt.topics[:tt.want], nw.calls[:tt.want])
		})
	}
}

func TestRunCustomTopicLimit(t *testing.T) {
	pub := &stubPublisher{}
	p := pipeline.New(&stubTrends{topics: []string{"A", "B", "C", "D", "E"}}, &stubNews{}, pub, pipeline.Options{TopicLimit: 4})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Trending: A", "Trending: B", "Trending: C", "Trending: D"}, titles(pub.calls))
}

func TestRunPlaceholderWhenNoArticle(t *testing.T) {
	pub := &stubPublisher{}
	p := pipeline.New(&stubTrends{topics: []string{"X"}}, &stubNews{}, pub, pipeline.Options{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.calls, 1)

	body := pub.calls[0].body
	require.Contains(t, body, "Latest News: No news articles found")
	require.Contains(t, body, "📝 Summary: \n")
}

func TestRunUsesArticleHeadline(t *testing.T) {
	nw := &stubNews{articles: map[string]*models.Article{
		"Go": {Title: "Go 1.24 released", Description: "Generic type aliases land."},
	}}
	pub := &stubPublisher{}

	summary, err := pipeline.New(&stubTrends{topics: []string{"Go"}}, nw, pub, pipeline.Options{}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, "📰 Report for Go 📰\n\n🔍 Latest News: Go 1.24 released\n📝 Summary: Generic type aliases land.\n", pub.calls[0].body)
	require.Same(t, nw.articles["Go"], summary.Results[0].Article)
}

func TestRunIsolatesPublishFailures(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	pub := &stubPublisher{failFor: map[string]bool{"Trending: B": true}}

	summary, err := pipeline.New(&stubTrends{topics: []string{"A", "B", "C"}}, &stubNews{}, pub, pipeline.Options{Logger: log}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"Trending: A", "Trending: B", "Trending: C"}, titles(pub.calls))
	require.Equal(t, models.StateDone, summary.State)

	published, failed := summary.Counts()
	require.Equal(t, 2, published)
	require.Equal(t, 1, failed)
	require.Error(t, summary.Results[1].Err)
	require.Nil(t, summary.Results[1].Post)

	out := buf.String()
	require.Equal(t, 2, strings.Count(out, `msg="post published"`))
	require.Equal(t, 1, strings.Count(out, `msg="publish post failed"`))
}

func TestRunFirstTopicFailureDoesNotStopOthers(t *testing.T) {
	pub := &stubPublisher{failFor: map[string]bool{"Trending: A": true, "Trending: C": true}}

	summary, err := pipeline.New(&stubTrends{topics: []string{"A", "B", "C", "D"}}, &stubNews{}, pub, pipeline.Options{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.calls, 3)
	require.True(t, summary.Results[1].Published())
}

func TestRunAbortsWhenTrendsFail(t *testing.T) {
	fetchErr := &trends.FetchError{Region: "1", Err: errors.New("status 503")}
	nw := &stubNews{}
	pub := &stubPublisher{}
	ev := &stubEvents{}

	summary, err := pipeline.New(&stubTrends{err: fetchErr}, nw, pub, pipeline.Options{Events: ev}).Run(context.Background())
	require.Error(t, err)

	var target *trends.FetchError
	require.True(t, errors.As(err, &target))
	require.Equal(t, models.StateAborted, summary.State)
	require.Empty(t, summary.Results)
	require.Empty(t, nw.calls)
	require.Empty(t, pub.calls)
	require.Empty(t, ev.events)
}

func TestRunEmitsEventsForPublishedReports(t *testing.T) {
	nw := &stubNews{articles: map[string]*models.Article{
		"A": {Title: "Headline A", URL: "https://news.example/a"},
	}}
	pub := &stubPublisher{failFor: map[string]bool{"Trending: B": true}}
	ev := &stubEvents{}

	summary, err := pipeline.New(&stubTrends{topics: []string{"A", "B", "C"}}, nw, pub, pipeline.Options{Events: ev, Region: "23424977"}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, ev.events, 2)
	first := ev.events[0]
	require.NotEmpty(t, first.ID)
	require.Equal(t, summary.RunID, first.RunID)
	require.Equal(t, "23424977", first.Region)
	require.Equal(t, "A", first.Topic)
	require.Equal(t, "Trending: A", first.Title)
	require.Equal(t, "Headline A", first.Headline)
	require.Equal(t, "https://news.example/a", first.ArticleURL)
	require.Equal(t, "post-1", first.PostID)

	second := ev.events[1]
	require.Equal(t, "C", second.Topic)
	require.Equal(t, "No news articles found", second.Headline)
	require.NotEqual(t, first.ID, second.ID)
}

func TestRunIgnoresEventSinkErrors(t *testing.T) {
	pub := &stubPublisher{}
	ev := &stubEvents{err: errors.New("kafka down")}

	summary, err := pipeline.New(&stubTrends{topics: []string{"A", "B"}}, &stubNews{}, pub, pipeline.Options{Events: ev}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.calls, 2)

	published, failed := summary.Counts()
	require.Equal(t, 2, published)
	require.Zero(t, failed)
}
