package ghost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/trend-press/backend/internal/config"
	"github.com/DeafMist/trend-press/backend/internal/models"
)

// StatusPublished is the only post status this client creates.
const StatusPublished = "published"

// PublishError reports a post that could not be created. StatusCode is zero
// when no HTTP response was received.
type PublishError struct {
	Title      string
	StatusCode int
	Err        error
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("publish post %q: status %d: %v", e.Title, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("publish post %q: %v", e.Title, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Client creates posts through the Ghost Admin API.
type Client struct {
	baseURL string
	version string
	key     adminKey
	http    *http.Client
	log     *slog.Logger
	now     func() time.Time
}

// New builds a Ghost client. It fails when the admin key is malformed.
func New(cfg config.Ghost, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	key, err := parseAdminKey(cfg.AdminAPIKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		version: cfg.Version,
		key:     key,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
		now:     time.Now,
	}, nil
}

type postPayload struct {
	Title  string `json:"title"`
	HTML   string `json:"html"`
	Status string `json:"status"`
}

type postsEnvelope struct {
	Posts []postPayload `json:"posts"`
}

type createResponse struct {
	Posts []models.Post `json:"posts"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Context string `json:"context"`
	} `json:"errors"`
}

// PublishPost creates a post and publishes it in the same call. Each call
// creates a new post, so repeated calls produce duplicates.
func (c *Client) PublishPost(ctx context.Context, title, html string) (*models.Post, error) {
	post, status, err := c.create(ctx, title, html)
	if err != nil {
		return nil, &PublishError{Title: title, StatusCode: status, Err: err}
	}
	return post, nil
}

func (c *Client) create(ctx context.Context, title, html string) (*models.Post, int, error) {
	token, err := c.key.sign(c.now())
	if err != nil {
		return nil, 0, fmt.Errorf("sign admin token: %w", err)
	}

	payload, err := json.Marshal(postsEnvelope{Posts: []postPayload{{
		Title:  title,
		HTML:   html,
		Status: StatusPublished,
	}}})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal post: %w", err)
	}

	endpoint := c.baseURL + "/ghost/api/admin/posts/?source=html"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")
	if c.version != "" {
		req.Header.Set("Accept-Version", c.version)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request post creation: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("ghost API: %s", errorMessage(body))
	}

	var parsed createResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Posts) == 0 {
		return nil, resp.StatusCode, fmt.Errorf("response contains no post")
	}

	post := parsed.Posts[0]
	c.log.Debug("ghost post created", slog.String("id", post.ID), slog.String("url", post.URL))
	return &post, resp.StatusCode, nil
}

func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msg := e.Message
			if e.Context != "" {
				msg += " (" + e.Context + ")"
			}
			msgs = append(msgs, msg)
		}
		return strings.Join(msgs, "; ")
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "empty response"
}
