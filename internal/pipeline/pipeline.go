// Package pipeline runs the fetch, format and publish sequence for the
// top trending topics of a region.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/trend-press/backend/internal/models"
	"github.com/DeafMist/trend-press/backend/internal/report"
)

// DefaultTopicLimit is the number of leading trends processed per run.
const DefaultTopicLimit = 3

// TrendSource lists trending topics for a region, highest ranked first.
type TrendSource interface {
	FetchTrendingTopics(ctx context.Context, region string) ([]string, error)
}

// NewsLookup finds the top article for a topic. It returns nil both when
// nothing matched and when the lookup failed.
type NewsLookup interface {
	FetchTopArticle(ctx context.Context, topic string) *models.Article
}

// Publisher creates a published post.
type Publisher interface {
	PublishPost(ctx context.Context, title, html string) (*models.Post, error)
}

// EventSink receives an event for every published report.
type EventSink interface {
	Publish(ctx context.Context, evt models.ReportEvent) error
}

// Options tune a Pipeline. Zero values select the defaults.
type Options struct {
	Region     string
	TopicLimit int
	Events     EventSink
	Logger     *slog.Logger
}

// Pipeline processes trending topics one at a time.
type Pipeline struct {
	trends    TrendSource
	news      NewsLookup
	publisher Publisher
	events    EventSink
	region    string
	limit     int
	log       *slog.Logger
	now       func() time.Time
}

// New wires a pipeline from its collaborators.
func New(trends TrendSource, news NewsLookup, publisher Publisher, opts Options) *Pipeline {
	if opts.Region == "" {
		opts.Region = "1"
	}
	if opts.TopicLimit <= 0 {
		opts.TopicLimit = DefaultTopicLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		trends:    trends,
		news:      news,
		publisher: publisher,
		events:    opts.Events,
		region:    opts.Region,
		limit:     opts.TopicLimit,
		log:       opts.Logger,
		now:       time.Now,
	}
}

// Run executes one pass. The only error it returns is a failed trend fetch,
// in which case nothing has been published. Per-topic publish failures are
// logged and recorded in the summary.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		Region:    p.region,
		StartedAt: p.now().UTC(),
		State:     models.StateFetchTrends,
	}
	log := p.log.With(slog.String("run_id", summary.RunID))

	topics, err := p.trends.FetchTrendingTopics(ctx, p.region)
	if err != nil {
		summary.State = models.StateAborted
		summary.FinishedAt = p.now().UTC()
		log.Error("fetch trending topics", slog.String("region", p.region), slog.Any("err", err))
		return summary, fmt.Errorf("fetch trending topics: %w", err)
	}

	summary.State = models.StateProcessTopics
	selected := topics
	if len(selected) > p.limit {
		selected = selected[:p.limit]
	}
	log.Info("processing trending topics",
		slog.Int("available", len(topics)),
		slog.Int("selected", len(selected)),
	)

	summary.Results = make([]models.TopicResult, 0, len(selected))
	for _, topic := range selected {
		summary.Results = append(summary.Results, p.processTopic(ctx, log, summary.RunID, topic))
	}

	summary.State = models.StateDone
	summary.FinishedAt = p.now().UTC()
	published, failed := summary.Counts()
	log.Info("run finished",
		slog.Int("published", published),
		slog.Int("failed", failed),
		slog.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (p *Pipeline) processTopic(ctx context.Context, log *slog.Logger, runID, topic string) models.TopicResult {
	article := p.news.FetchTopArticle(ctx, topic)
	rep := report.Build(topic, article)
	result := models.TopicResult{Topic: topic, Article: article, Report: rep}

	post, err := p.publisher.PublishPost(ctx, rep.Title, rep.Body)
	if err != nil {
		result.Err = err
		log.Error("publish post failed", slog.String("title", rep.Title), slog.Any("err", err))
		return result
	}
	result.Post = post
	log.Info("post published", slog.String("title", rep.Title))

	if p.events != nil {
		if err := p.events.Publish(ctx, p.event(runID, result)); err != nil {
			log.Warn("emit report event", slog.String("title", rep.Title), slog.Any("err", err))
		}
	}
	return result
}

func (p *Pipeline) event(runID string, r models.TopicResult) models.ReportEvent {
	evt := models.ReportEvent{
		ID:          uuid.NewString(),
		RunID:       runID,
		Region:      p.region,
		Topic:       r.Topic,
		Title:       r.Report.Title,
		Body:        r.Report.Body,
		Headline:    report.NoArticleHeadline,
		PublishedAt: p.now().UTC(),
	}
	if r.Article != nil {
		evt.Headline = r.Article.Title
		evt.ArticleURL = r.Article.URL
	}
	if r.Post != nil {
		evt.PostID = r.Post.ID
		evt.PostURL = r.Post.URL
	}
	return evt
}
