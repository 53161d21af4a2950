package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DeafMist/trend-press/backend/internal/config"
	"github.com/DeafMist/trend-press/backend/internal/models"
)

// LookupError describes a failed article search. It is logged by the client
// and never returned to callers.
type LookupError struct {
	Topic string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("look up news for %q: %v", e.Topic, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Client searches articles through the NewsAPI /v2/everything endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

// New builds a news client.
func New(cfg config.NewsAPI, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

type searchResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt string    `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// FetchTopArticle returns the first search result for topic, or nil when
// there is none. Errors are logged and reported as "no article".
func (c *Client) FetchTopArticle(ctx context.Context, topic string) *models.Article {
	article, err := c.search(ctx, topic)
	if err != nil {
		c.log.Warn("news lookup failed", slog.String("topic", topic), slog.Any("err", &LookupError{Topic: topic, Err: err}))
		return nil
	}
	if article == nil {
		c.log.Debug("no news articles found", slog.String("topic", topic))
	}
	return article
}

func (c *Client) search(ctx context.Context, topic string) (*models.Article, error) {
	query := url.Values{
		"q":      {topic},
		"page":   {"1"},
		"apiKey": {c.apiKey},
	}
	endpoint := c.baseURL + "/v2/everything?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request articles: %w", err)
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("news API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Status == "error" {
		return nil, fmt.Errorf("news API returned status %d: %s %s", resp.StatusCode, parsed.Code, parsed.Message)
	}

	if len(parsed.Articles) == 0 {
		return nil, nil
	}
	first := parsed.Articles[0]
	published, _ := time.Parse(time.RFC3339, first.PublishedAt)
	return &models.Article{
		Title:       first.Title,
		Description: first.Description,
		URL:         first.URL,
		Source:      first.Source.Name,
		PublishedAt: published,
	}, nil
}
