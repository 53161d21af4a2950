package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Common contains Elasticsearch parameters shared by the archive services.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Twitter holds credentials for the trends provider.
type Twitter struct {
	APIURL         string
	BearerToken    string
	ConsumerKey    string
	ConsumerSecret string
	TokenURL       string
}

// NewsAPI holds credentials for the news search provider.
type NewsAPI struct {
	APIURL string
	APIKey string
}

// Ghost holds credentials for the Ghost Admin API.
type Ghost struct {
	APIURL      string
	AdminAPIKey string
	Version     string
}

// Reporter configures the run-once trend reporter.
type Reporter struct {
	Twitter     Twitter
	NewsAPI     NewsAPI
	Ghost       Ghost
	Region      string
	TopicLimit  int
	HTTPTimeout time.Duration

	// Events are only produced when at least one broker is configured.
	KafkaBrokers []string
	KafkaTopic   string
}

// Archiver holds configuration for the Kafka -> Elasticsearch archiver.
type Archiver struct {
	Common
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr    string
	DefaultPage int
	MaxPage     int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// fileConfig mirrors the config.json layout used by earlier deployments.
type fileConfig struct {
	Twitter struct {
		APIURL         string `json:"api_url"`
		BearerToken    string `json:"bearer_token"`
		ConsumerKey    string `json:"consumer_key"`
		ConsumerSecret string `json:"consumer_secret"`
	} `json:"twitter"`
	NewsAPI struct {
		APIURL string `json:"api_url"`
		APIKey string `json:"api_key"`
	} `json:"news_api"`
	Ghost struct {
		APIURL  string `json:"api_url"`
		APIKey  string `json:"api_key"`
		Version string `json:"version"`
	} `json:"ghost"`
}

// LoadReporter builds a Reporter config. Values come from the environment,
// then from the JSON file named by REPORTER_CONFIG, then from defaults.
func LoadReporter() (*Reporter, error) {
	loadDotEnv()

	var fc fileConfig
	if path := getEnv("REPORTER_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read REPORTER_CONFIG: %w", err)
		}
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse REPORTER_CONFIG %s: %w", path, err)
		}
	}

	c := &Reporter{
		Twitter: Twitter{
			APIURL:         getEnv("TWITTER_API_URL", or(fc.Twitter.APIURL, "https://api.twitter.com")),
			BearerToken:    getEnv("TWITTER_BEARER_TOKEN", fc.Twitter.BearerToken),
			ConsumerKey:    getEnv("TWITTER_CONSUMER_KEY", fc.Twitter.ConsumerKey),
			ConsumerSecret: getEnv("TWITTER_CONSUMER_SECRET", fc.Twitter.ConsumerSecret),
		},
		NewsAPI: NewsAPI{
			APIURL: getEnv("NEWS_API_URL", or(fc.NewsAPI.APIURL, "https://newsapi.org")),
			APIKey: getEnv("NEWS_API_KEY", fc.NewsAPI.APIKey),
		},
		Ghost: Ghost{
			APIURL:      getEnv("GHOST_API_URL", fc.Ghost.APIURL),
			AdminAPIKey: getEnv("GHOST_ADMIN_API_KEY", fc.Ghost.APIKey),
			Version:     getEnv("GHOST_API_VERSION", or(fc.Ghost.Version, "v4")),
		},
		Region:       getEnv("TREND_REGION", "1"),
		TopicLimit:   getInt("REPORTER_TOPIC_LIMIT", 3),
		HTTPTimeout:  getDuration("HTTP_TIMEOUT", "0s"),
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "reports_published"),
	}
	c.Twitter.TokenURL = strings.TrimRight(c.Twitter.APIURL, "/") + "/oauth2/token"

	if c.Twitter.BearerToken == "" && (c.Twitter.ConsumerKey == "" || c.Twitter.ConsumerSecret == "") {
		return nil, fmt.Errorf("TWITTER_BEARER_TOKEN or TWITTER_CONSUMER_KEY and TWITTER_CONSUMER_SECRET are required")
	}
	if c.NewsAPI.APIKey == "" {
		return nil, fmt.Errorf("NEWS_API_KEY is required")
	}
	if c.Ghost.APIURL == "" {
		return nil, fmt.Errorf("GHOST_API_URL is required")
	}
	if id, secret, ok := strings.Cut(c.Ghost.AdminAPIKey, ":"); !ok || id == "" || secret == "" {
		return nil, fmt.Errorf("GHOST_ADMIN_API_KEY must have the form {id}:{secret}")
	}
	if c.Region == "" {
		return nil, fmt.Errorf("TREND_REGION cannot be empty")
	}
	if c.TopicLimit <= 0 {
		return nil, fmt.Errorf("REPORTER_TOPIC_LIMIT must be positive")
	}
	if c.HTTPTimeout < 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT cannot be negative")
	}

	return c, nil
}

// EventsEnabled reports whether published reports should be sent to Kafka.
func (c *Reporter) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// LoadArchiver builds an Archiver config from environment variables.
func LoadArchiver() (*Archiver, error) {
	loadDotEnv()

	c := &Archiver{
		Common:           loadCommon(),
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "reports_published"),
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "report-archiver"),
		KeywordLimit:     getInt("ARCHIVER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("ARCHIVER_KEYWORD_MIN_LEN", 4),
		DedupeCapacity:   getInt("ARCHIVER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("ARCHIVER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("ARCHIVER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("ARCHIVER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("ARCHIVER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("ARCHIVER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("ARCHIVER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	loadDotEnv()

	c := &API{
		Common:      loadCommon(),
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	loadDotEnv()

	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "reports"),
	}
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring .env: %v\n", err)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
