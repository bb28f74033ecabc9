package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kaytu-io/news-assistant/services/assistant/news"
	"go.uber.org/zap"
)

const (
	GetNewsName         = "get_news"
	GetTopHeadlinesName = "get_top_headlines"

	NoNewsFound = "No news found for this topic"
)

type NewsSource interface {
	Everything(ctx context.Context, query string) (news.Response, error)
	TopHeadlines(ctx context.Context, country, category string) (news.Response, error)
}

type GetNewsInput struct {
	Topic string `json:"topic" jsonschema_description:"The topic for the news, e.g. bitcoin"`
}

type GetTopHeadlinesInput struct {
	Country  string `json:"country,omitempty" jsonschema_description:"2-letter ISO 3166-1 code of the country, e.g. us"`
	Category string `json:"category,omitempty" jsonschema:"enum=business,enum=entertainment,enum=general,enum=health,enum=science,enum=sports,enum=technology"`
}

// GetNews searches articles on a topic and returns them as text blocks.
// Lookup failures produce an empty result so the run can still answer.
func GetNews(logger *zap.Logger, source NewsSource) Definition {
	logger = logger.Named(GetNewsName)
	return Definition{
		Name:        GetNewsName,
		Description: "Get the list of articles/news for the given topic",
		Parameters:  Schema[GetNewsInput](),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			in, err := Decode[GetNewsInput](args)
			if err != nil {
				return "", err
			}
			topic := strings.TrimSpace(in.Topic)
			if topic == "" {
				return "", errors.New("topic is required")
			}

			resp, err := source.Everything(ctx, topic)
			if err != nil {
				logger.Warn("news lookup failed, returning empty result", zap.Error(err), zap.String("topic", topic))
				return "", nil
			}
			if resp.TotalResults == 0 || len(resp.Articles) == 0 {
				return NoNewsFound, nil
			}
			return FormatArticles(resp.Articles), nil
		},
	}
}

// GetTopHeadlines lists current headlines as YAML.
func GetTopHeadlines(logger *zap.Logger, source NewsSource) Definition {
	logger = logger.Named(GetTopHeadlinesName)
	return Definition{
		Name:        GetTopHeadlinesName,
		Description: "Get the current top headlines, optionally filtered by country and category",
		Parameters:  Schema[GetTopHeadlinesInput](),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			in, err := Decode[GetTopHeadlinesInput](args)
			if err != nil {
				return "", err
			}
			if in.Country == "" && in.Category == "" {
				in.Country = "us"
			}

			resp, err := source.TopHeadlines(ctx, in.Country, in.Category)
			if err != nil {
				logger.Warn("headlines lookup failed, returning empty result", zap.Error(err),
					zap.String("country", in.Country), zap.String("category", in.Category))
				return "", nil
			}
			if len(resp.Articles) == 0 {
				return NoNewsFound, nil
			}

			out, err := yaml.Marshal(resp.Articles)
			if err != nil {
				return "", fmt.Errorf("marshal headlines: %w", err)
			}
			return string(out), nil
		},
	}
}

func FormatArticles(articles []news.Article) string {
	blocks := make([]string, 0, len(articles))
	for _, a := range articles {
		blocks = append(blocks, fmt.Sprintf("Title: %s,\nAuthor: %s,\nSource: %s,\nDescription: %s,\nURL: %s",
			a.Title, a.Author, a.Source.Name, a.Description, a.URL))
	}
	return strings.Join(blocks, "\n\n")
}
