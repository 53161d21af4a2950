package news_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trend-press/backend/internal/config"
	"github.com/DeafMist/trend-press/backend/internal/news"
)

func TestFetchTopArticleReturnsFirstResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "#World Cup & more", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))
		assert.Contains(t, r.URL.RawQuery, "q=%23World+Cup+%26+more")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"title":"First","description":"first desc","url":"https://a.example/1","publishedAt":"2024-03-01T10:00:00Z","source":{"name":"A"}},
			{"title":"Second","description":"second desc"}
		]}`))
	}))
	defer server.Close()

	client := news.New(config.NewsAPI{APIURL: server.URL, APIKey: "secret"}, 0, nil)

	article := client.FetchTopArticle(context.Background(), "#World Cup & more")
	require.NotNil(t, article)
	require.Equal(t, "First", article.Title)
	require.Equal(t, "first desc", article.Description)
	require.Equal(t, "https://a.example/1", article.URL)
	require.Equal(t, "A", article.Source)
	require.Equal(t, 2024, article.PublishedAt.Year())
}

func TestFetchTopArticleNullDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","articles":[{"title":"Only title","description":null,"publishedAt":null}]}`))
	}))
	defer server.Close()

	client := news.New(config.NewsAPI{APIURL: server.URL, APIKey: "k"}, 0, nil)

	article := client.FetchTopArticle(context.Background(), "topic")
	require.NotNil(t, article)
	require.Equal(t, "Only title", article.Title)
	require.Empty(t, article.Description)
	require.True(t, article.PublishedAt.IsZero())
}

func TestFetchTopArticleNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","totalResults":0,"articles":[]}`))
	}))
	defer server.Close()

	client := news.New(config.NewsAPI{APIURL: server.URL, APIKey: "k"}, 0, nil)

	require.Nil(t, client.FetchTopArticle(context.Background(), "nothing"))
}

func TestFetchTopArticleSwallowsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "provider error", status: http.StatusUnauthorized, body: `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`},
		{name: "error status in ok response", status: http.StatusOK, body: `{"status":"error","code":"rateLimited"}`},
		{name: "server error without json", status: http.StatusBadGateway, body: "<html>bad gateway</html>"},
		{name: "invalid json", status: http.StatusOK, body: "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))
			client := news.New(config.NewsAPI{APIURL: server.URL, APIKey: "k"}, 0, log)

			require.Nil(t, client.FetchTopArticle(context.Background(), "topic"))
			require.Contains(t, buf.String(), "news lookup failed")
		})
	}
}

func TestFetchTopArticleTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := news.New(config.NewsAPI{APIURL: server.URL, APIKey: "k"}, 0, nil)

	require.Nil(t, client.FetchTopArticle(context.Background(), "topic"))
}
