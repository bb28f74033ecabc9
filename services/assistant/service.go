package assistant

import (
	"context"
	"fmt"

	"github.com/kaytu-io/news-assistant/services/assistant/config"
	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/kaytu-io/news-assistant/services/assistant/db"
	"github.com/kaytu-io/news-assistant/services/assistant/news"
	"github.com/kaytu-io/news-assistant/services/assistant/openai"
	"github.com/kaytu-io/news-assistant/services/assistant/repository"
	"github.com/kaytu-io/news-assistant/services/assistant/tools"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// service holds the wired components shared by the commands.
type service struct {
	logger      *zap.Logger
	cnf         config.AssistantConfig
	oc          *openai.Service
	coordinator *coordinator.Coordinator
	threads     repository.Thread
	runs        repository.Run
	assistantID string
}

func newService(ctx context.Context, logger *zap.Logger, cnf config.AssistantConfig) (*service, error) {
	if cnf.OpenAI.Token == "" {
		return nil, fmt.Errorf("openai token is not configured")
	}

	database, err := db.New(cnf.Postgres, cnf.SQLite, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to migrate database due to %w", err)
	}

	newsClient := news.New(logger, news.Config{
		APIKey:            cnf.News.APIKey,
		BaseURL:           cnf.News.BaseURL,
		PageSize:          cnf.News.PageSize,
		RequestsPerSecond: cnf.News.RequestsPerSecond,
	})
	registry := tools.NewRegistry(
		tools.GetNews(logger, newsClient),
		tools.GetTopHeadlines(logger, newsClient),
	)

	oc := openai.New(logger, openai.Config{
		Token:   cnf.OpenAI.Token,
		BaseURL: cnf.OpenAI.BaseURL,
		OrgID:   cnf.OpenAI.OrgID,
		Model:   cnf.OpenAI.ModelName,
	}, repository.NewAssistant(database))

	assistantID, err := oc.EnsureAssistant(ctx, openai.AssistantDefinition{
		ID:           cnf.Assistant.ID,
		Name:         cnf.Assistant.Name,
		Instructions: cnf.Assistant.Instructions,
		Tools:        registry.Definitions(),
	})
	if err != nil {
		return nil, err
	}

	runs := repository.NewRun(database)
	coord := coordinator.New(logger, oc, registry,
		coordinator.WithPollInterval(cnf.Run.PollInterval),
		coordinator.WithMaxWait(cnf.Run.MaxWait),
		coordinator.WithMaxPolls(cnf.Run.MaxPolls),
		coordinator.WithRecorder(runs),
		coordinator.WithMetrics(coordinator.NewMetrics(prometheus.DefaultRegisterer)),
	)

	return &service{
		logger:      logger,
		cnf:         cnf,
		oc:          oc,
		coordinator: coord,
		threads:     repository.NewThread(database),
		runs:        runs,
		assistantID: assistantID,
	}, nil
}
