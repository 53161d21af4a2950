package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/DeafMist/trend-press/backend/internal/config"
	"github.com/DeafMist/trend-press/backend/internal/events"
	"github.com/DeafMist/trend-press/backend/internal/ghost"
	"github.com/DeafMist/trend-press/backend/internal/logger"
	"github.com/DeafMist/trend-press/backend/internal/news"
	"github.com/DeafMist/trend-press/backend/internal/pipeline"
	"github.com/DeafMist/trend-press/backend/internal/trends"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.New("reporter")
	cfg, err := config.LoadReporter()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		return 1
	}

	publisher, err := ghost.New(cfg.Ghost, cfg.HTTPTimeout, log)
	if err != nil {
		log.Error("init ghost client", slog.Any("err", err))
		return 1
	}

	opts := pipeline.Options{
		Region:     cfg.Region,
		TopicLimit: cfg.TopicLimit,
		Logger:     log,
	}
	if cfg.EventsEnabled() {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn("close event producer", slog.Any("err", err))
			}
		}()
		opts.Events = producer
		log.Info("report events enabled", slog.String("topic", cfg.KafkaTopic))
	}

	p := pipeline.New(
		trends.New(cfg.Twitter, cfg.HTTPTimeout, log),
		news.New(cfg.NewsAPI, cfg.HTTPTimeout, log),
		publisher,
		opts,
	)

	if _, err := p.Run(context.Background()); err != nil {
		log.Error("run aborted", slog.Any("err", err))
		return 1
	}
	return 0
}
