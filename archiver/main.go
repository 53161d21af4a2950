package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/trend-press/backend/internal/config"
	"github.com/DeafMist/trend-press/backend/internal/dedupe"
	"github.com/DeafMist/trend-press/backend/internal/elasticsearch"
	"github.com/DeafMist/trend-press/backend/internal/events"
	"github.com/DeafMist/trend-press/backend/internal/logger"
	"github.com/DeafMist/trend-press/backend/internal/models"
	"github.com/DeafMist/trend-press/backend/internal/report"
)

type reportIndexer interface {
	IndexReport(ctx context.Context, doc models.ReportDocument) error
}

func main() {
	log := logger.New("archiver")
	cfg, err := config.LoadArchiver()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = esClient.EnsureIndex(ensureCtx)
	cancel()
	if err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  dlqTopic,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
	defer dlqWriter.Close()

	log.Info("archiver started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, cache, cfg, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlqWriter, msg, err) {
				// Leave the offset uncommitted so the message is redelivered.
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// sendToDLQ retries the dead-letter write with exponential backoff and
// reports whether it succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w *kafka.Writer, msg kafka.Message, cause error) bool {
	dlqMsg := deadLetter(msg, cause, time.Now())

	for attempt := 0; attempt < 5; attempt++ {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
	}

	log.Error("DLQ write exhausted retries",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}

func deadLetter(msg kafka.Message, cause error, now time.Time) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(now.UTC().Format(time.RFC3339))},
	)
	return kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
}

func processMessage(ctx context.Context, log *slog.Logger, idx reportIndexer, cache *dedupe.Cache, cfg *config.Archiver, msg kafka.Message) error {
	evt, err := events.Decode(msg)
	if err != nil {
		return err
	}

	doc, err := buildDocument(evt, cfg)
	if err != nil {
		return err
	}

	if cache.IsSeen(doc.ID) {
		log.Debug("duplicate report event", slog.String("id", doc.ID))
		return nil
	}

	if err := idx.IndexReport(ctx, doc); err != nil {
		return err
	}

	cache.MarkSeen(doc.ID)
	log.Info("archived report", slog.String("id", doc.ID), slog.String("title", doc.Title))
	return nil
}

func buildDocument(evt models.ReportEvent, cfg *config.Archiver) (models.ReportDocument, error) {
	topic := strings.TrimSpace(evt.Topic)
	if topic == "" {
		return models.ReportDocument{}, errors.New("report event without topic")
	}
	if strings.TrimSpace(evt.Body) == "" {
		return models.ReportDocument{}, fmt.Errorf("report event for %q has an empty body", topic)
	}

	title := strings.TrimSpace(evt.Title)
	if title == "" {
		title = report.PostTitle(topic)
	}

	ts := evt.PublishedAt.UTC()
	if evt.PublishedAt.IsZero() {
		ts = time.Now().UTC()
	}

	// Post IDs are unique per Ghost site; fall back to the event ID.
	id := report.BuildDocumentID(evt.RunID, topic, evt.PostID)
	if evt.PostID == "" {
		id = report.BuildDocumentID(evt.RunID, topic, evt.ID)
	}

	urls := report.ExtractURLs(evt.Body)
	for _, u := range []string{evt.ArticleURL, evt.PostURL} {
		if u != "" && !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}

	return models.ReportDocument{
		ID:        id,
		RunID:     evt.RunID,
		Region:    evt.Region,
		Topic:     topic,
		Title:     title,
		Body:      evt.Body,
		Headline:  evt.Headline,
		Keywords:  report.ExtractKeywords(topic+" "+evt.Body, cfg.KeywordLimit, cfg.KeywordMinLength),
		URLs:      urls,
		PostID:    evt.PostID,
		PostURL:   evt.PostURL,
		Timestamp: ts,
	}, nil
}
