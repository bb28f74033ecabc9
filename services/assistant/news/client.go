package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kaytu-io/news-assistant/pkg/httpclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://newsapi.org"
	DefaultPageSize = 5

	apiKeyHeader = "X-Api-Key"
)

var ErrMissingAPIKey = errors.New("news api key is not configured")

type Source struct {
	ID   string `json:"id" yaml:"id,omitempty"`
	Name string `json:"name" yaml:"name"`
}

type Article struct {
	Source      Source `json:"source" yaml:"source"`
	Author      string `json:"author" yaml:"author,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description,omitempty"`
	URL         string `json:"url" yaml:"url"`
	PublishedAt string `json:"publishedAt" yaml:"published_at,omitempty"`
}

type Response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

type Config struct {
	APIKey   string
	BaseURL  string
	PageSize int
	// RequestsPerSecond limits outgoing calls. Zero means no limit.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

type Client struct {
	logger   *zap.Logger
	http     *httpclient.Client
	limiter  *rate.Limiter
	apiKey   string
	baseURL  string
	pageSize int
}

func New(logger *zap.Logger, cfg Config) *Client {
	c := &Client{
		logger:   logger.Named("news"),
		http:     httpclient.New(cfg.HTTPClient),
		limiter:  rate.NewLimiter(rate.Inf, 0),
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		pageSize: cfg.PageSize,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Everything searches all articles matching query.
func (c *Client) Everything(ctx context.Context, query string) (Response, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	return c.get(ctx, "/v2/everything", q)
}

// TopHeadlines lists breaking headlines. Empty arguments are not sent.
func (c *Client) TopHeadlines(ctx context.Context, country, category string) (Response, error) {
	q := url.Values{}
	if country != "" {
		q.Set("country", country)
	}
	if category != "" {
		q.Set("category", category)
	}
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	return c.get(ctx, "/v2/top-headlines", q)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (Response, error) {
	var resp Response
	if c.apiKey == "" {
		return resp, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return resp, fmt.Errorf("rate limit: %w", err)
	}

	u := c.baseURL + path + "?" + query.Encode()
	c.logger.Debug("requesting news", zap.String("path", path), zap.String("query", query.Encode()))

	err := c.http.DoRequest(ctx, http.MethodGet, u, map[string]string{apiKeyHeader: c.apiKey}, nil, &resp)
	if err != nil {
		return resp, fmt.Errorf("news request %s: %w", path, err)
	}
	return resp, nil
}
