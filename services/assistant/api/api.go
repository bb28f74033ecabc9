package api

import (
	"github.com/kaytu-io/news-assistant/services/assistant/api/thread"
	"github.com/kaytu-io/news-assistant/services/assistant/repository"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type API struct {
	logger        *zap.Logger
	conversations thread.Conversations
	runner        thread.Runner
	threads       repository.Thread
	runs          repository.Run
	assistantID   string
}

func New(
	logger *zap.Logger,
	conversations thread.Conversations,
	runner thread.Runner,
	threads repository.Thread,
	runs repository.Run,
	assistantID string,
) *API {
	return &API{
		logger:        logger.Named("api"),
		conversations: conversations,
		runner:        runner,
		threads:       threads,
		runs:          runs,
		assistantID:   assistantID,
	}
}

func (api *API) Register(e *echo.Echo) {
	thr := thread.New(api.logger, api.conversations, api.runner, api.threads, api.runs, api.assistantID)
	thr.Register(e.Group("/api/v1"))
}
