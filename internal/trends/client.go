package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/DeafMist/trend-press/backend/internal/config"
)

// FetchError reports that the trend list for a region could not be obtained.
// No partial list accompanies it.
type FetchError struct {
	Region string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch trends for region %s: %v", e.Region, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var errNoLocations = errors.New("response contains no trend locations")

// Client reads trending topics from the Twitter v1.1 trends API.
type Client struct {
	baseURL string
	bearer  string
	http    *http.Client
	log     *slog.Logger
}

// New builds a trends client. A configured bearer token is used as is;
// otherwise an app-only token is requested with the consumer key and secret.
func New(cfg config.Twitter, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	base := &http.Client{Timeout: timeout}
	c := &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		bearer:  cfg.BearerToken,
		http:    base,
		log:     logger,
	}

	if c.bearer == "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ConsumerKey,
			ClientSecret: cfg.ConsumerSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.http = cc.Client(ctx)
		c.http.Timeout = timeout
	}

	return c
}

type trendsResponse []struct {
	Trends []struct {
		Name string `json:"name"`
	} `json:"trends"`
}

// FetchTrendingTopics returns the trend names for region (a WOEID) in the
// order the API ranks them. Any failure is returned as *FetchError.
func (c *Client) FetchTrendingTopics(ctx context.Context, region string) ([]string, error) {
	topics, err := c.fetch(ctx, region)
	if err != nil {
		return nil, &FetchError{Region: region, Err: err}
	}
	c.log.Debug("fetched trends", slog.String("region", region), slog.Int("count", len(topics)))
	return topics, nil
}

func (c *Client) fetch(ctx context.Context, region string) ([]string, error) {
	endpoint := c.baseURL + "/1.1/trends/place.json?" + url.Values{"id": {region}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request trends: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("trends API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed trendsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode trends response: %w", err)
	}
	if len(parsed) == 0 {
		return nil, errNoLocations
	}

	topics := make([]string, 0, len(parsed[0].Trends))
	for _, t := range parsed[0].Trends {
		if name := strings.TrimSpace(t.Name); name != "" {
			topics = append(topics, name)
		}
	}
	return topics, nil
}
