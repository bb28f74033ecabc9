package thread

import (
	"context"
	"errors"
	"net/http"

	"github.com/kaytu-io/news-assistant/services/assistant/api/entity"
	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"github.com/kaytu-io/news-assistant/services/assistant/repository"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Conversations is the thread side of the remote assistant service.
type Conversations interface {
	NewThread(ctx context.Context) (string, error)
	ThreadExists(ctx context.Context, threadID string) (bool, error)
	SendMessage(ctx context.Context, threadID, content string) error
	ListMessages(ctx context.Context, threadID string) ([]coordinator.Message, error)
	ListRunSteps(ctx context.Context, threadID, runID string) ([]coordinator.Step, error)
}

type Runner interface {
	Execute(ctx context.Context, threadID, assistantID, instructions string) (string, error)
}

type API struct {
	tracer        trace.Tracer
	logger        *zap.Logger
	conversations Conversations
	runner        Runner
	db            repository.Thread
	runs          repository.Run
	assistantID   string
}

func New(logger *zap.Logger, conversations Conversations, runner Runner, db repository.Thread, runs repository.Run, assistantID string) API {
	return API{
		tracer:        otel.GetTracerProvider().Tracer("assistant.http.thread"),
		logger:        logger.Named("thread"),
		conversations: conversations,
		runner:        runner,
		db:            db,
		runs:          runs,
		assistantID:   assistantID,
	}
}

// Start godoc
//
//	@Summary		Start a conversation
//	@Description	Creates a new thread on the assistant service
//	@Tags			assistant
//	@Produce		json
//	@Success		200	{object}	entity.StartResponse
//	@Router			/api/v1/start [get]
func (s API) Start(c echo.Context) error {
	ctx := otel.GetTextMapPropagator().Extract(c.Request().Context(), propagation.HeaderCarrier(c.Request().Header))

	ctx, span := s.tracer.Start(ctx, "start")
	defer span.End()

	threadID, err := s.conversations.NewThread(ctx)
	if err != nil {
		s.logger.Error("failed to create thread", zap.Error(err))
		return httpError(err)
	}
	span.SetAttributes(attribute.String("thread_id", threadID))

	if err := s.db.Create(ctx, model.Thread{ID: threadID}); err != nil {
		s.logger.Error("failed to store thread", zap.Error(err), zap.String("thread_id", threadID))
		return echo.ErrInternalServerError
	}

	return c.JSON(http.StatusOK, entity.StartResponse{ThreadID: threadID})
}

// Chat godoc
//
//	@Summary		Send a message
//	@Description	Posts the message on the thread, runs the assistant and returns its reply
//	@Tags			assistant
//	@Accept			json
//	@Produce		json
//	@Param			request	body		entity.ChatRequest	true	"Request"
//	@Success		200		{object}	entity.ChatResponse
//	@Router			/api/v1/chat [post]
func (s API) Chat(c echo.Context) error {
	ctx := otel.GetTextMapPropagator().Extract(c.Request().Context(), propagation.HeaderCarrier(c.Request().Header))

	ctx, span := s.tracer.Start(ctx, "chat")
	defer span.End()

	var req entity.ChatRequest

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.ThreadID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "thread_id is required")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	assistantID := req.AssistantID
	if assistantID == "" {
		assistantID = s.assistantID
	}
	span.SetAttributes(attribute.String("thread_id", req.ThreadID), attribute.String("assistant_id", assistantID))

	if err := s.ensureThread(ctx, req.ThreadID); err != nil {
		return err
	}

	if err := s.conversations.SendMessage(ctx, req.ThreadID, req.Message); err != nil {
		s.logger.Error("failed to send message", zap.Error(err), zap.String("thread_id", req.ThreadID))
		return httpError(err)
	}

	// chat turns run on the assistant's own instructions
	response, err := s.runner.Execute(ctx, req.ThreadID, assistantID, "")
	if err != nil {
		s.logger.Error("failed to run assistant", zap.Error(err), zap.String("thread_id", req.ThreadID))
		return httpError(err)
	}

	return c.JSON(http.StatusOK, entity.ChatResponse{Response: response})
}

// ListMessages godoc
//
//	@Summary		List messages of a thread
//	@Description	List messages of a thread, newest first
//	@Tags			assistant
//	@Produce		json
//	@Success		200			{object}	entity.ListMessagesResponse
//	@Param			thread_id	path		string	true	"Thread ID"
//	@Router			/api/v1/thread/{thread_id} [get]
func (s API) ListMessages(c echo.Context) error {
	ctx := otel.GetTextMapPropagator().Extract(c.Request().Context(), propagation.HeaderCarrier(c.Request().Header))

	ctx, span := s.tracer.Start(ctx, "list.messages")
	defer span.End()

	threadID := c.Param("thread_id")
	if err := s.ensureThread(ctx, threadID); err != nil {
		return err
	}

	msgs, err := s.conversations.ListMessages(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to read msgs from the service", zap.Error(err), zap.String("thread_id", threadID))
		return httpError(err)
	}

	resp := entity.ListMessagesResponse{Messages: make([]entity.Message, 0, len(msgs))}
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, entity.Message{ID: msg.ID, Role: string(msg.Role), Content: msg.Text})
	}
	return c.JSON(http.StatusOK, resp)
}

// ListRuns godoc
//
//	@Summary		List runs of a thread
//	@Description	List the runs recorded for a thread, newest first, with the tool calls pending at their last action
//	@Tags			assistant
//	@Produce		json
//	@Success		200			{object}	entity.ListRunsResponse
//	@Param			thread_id	path		string	true	"Thread ID"
//	@Router			/api/v1/thread/{thread_id}/runs [get]
func (s API) ListRuns(c echo.Context) error {
	ctx := otel.GetTextMapPropagator().Extract(c.Request().Context(), propagation.HeaderCarrier(c.Request().Header))

	ctx, span := s.tracer.Start(ctx, "list.runs")
	defer span.End()

	threadID := c.Param("thread_id")
	if err := s.ensureThread(ctx, threadID); err != nil {
		return err
	}

	runs, err := s.runs.ListByThread(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err), zap.String("thread_id", threadID))
		return echo.ErrInternalServerError
	}

	resp := entity.ListRunsResponse{Runs: make([]entity.Run, 0, len(runs))}
	for _, r := range runs {
		calls, err := repository.DecodeToolCalls(r)
		if err != nil {
			s.logger.Warn("failed to decode tool calls", zap.Error(err), zap.String("run_id", r.ID))
		}
		item := entity.Run{
			ID:          r.ID,
			AssistantID: r.AssistantID,
			Status:      r.Status.String(),
			LastError:   r.LastError,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
		for _, call := range calls {
			item.ToolCalls = append(item.ToolCalls, entity.ToolCall{ID: call.ID, Function: call.Name, Arguments: call.Arguments})
		}
		resp.Runs = append(resp.Runs, item)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListRunSteps godoc
//
//	@Summary		List steps of a run
//	@Description	List the steps the assistant service performed for a run, oldest first
//	@Tags			assistant
//	@Produce		json
//	@Success		200			{object}	entity.ListRunStepsResponse
//	@Param			thread_id	path		string	true	"Thread ID"
//	@Param			run_id		path		string	true	"Run ID"
//	@Router			/api/v1/thread/{thread_id}/runs/{run_id}/steps [get]
func (s API) ListRunSteps(c echo.Context) error {
	ctx := otel.GetTextMapPropagator().Extract(c.Request().Context(), propagation.HeaderCarrier(c.Request().Header))

	ctx, span := s.tracer.Start(ctx, "list.run_steps")
	defer span.End()

	threadID, runID := c.Param("thread_id"), c.Param("run_id")
	span.SetAttributes(attribute.String("thread_id", threadID), attribute.String("run_id", runID))

	if err := s.ensureThread(ctx, threadID); err != nil {
		return err
	}

	known, err := s.runs.Get(ctx, []string{runID})
	if err != nil {
		s.logger.Error("failed to look up run", zap.Error(err), zap.String("run_id", runID))
		return echo.ErrInternalServerError
	}
	for _, r := range known {
		if r.ThreadID != threadID {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
	}

	steps, err := s.conversations.ListRunSteps(ctx, threadID, runID)
	if err != nil {
		s.logger.Error("failed to list run steps", zap.Error(err), zap.String("thread_id", threadID), zap.String("run_id", runID))
		return httpError(err)
	}

	resp := entity.ListRunStepsResponse{Steps: make([]entity.RunStep, 0, len(steps))}
	for _, st := range steps {
		item := entity.RunStep{
			ID:        st.ID,
			Type:      st.Type,
			Status:    st.Status,
			MessageID: st.MessageID,
			LastError: st.LastError,
		}
		for _, call := range st.ToolCalls {
			item.ToolCalls = append(item.ToolCalls, entity.ToolCall{ID: call.ID, Function: call.Name, Arguments: call.Arguments})
		}
		resp.Steps = append(resp.Steps, item)
	}
	return c.JSON(http.StatusOK, resp)
}

// ensureThread accepts threads created here and threads the remote service
// knows about, which are then remembered.
func (s API) ensureThread(ctx context.Context, threadID string) error {
	ok, err := s.db.Exists(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to look up thread", zap.Error(err), zap.String("thread_id", threadID))
		return echo.ErrInternalServerError
	}
	if ok {
		return nil
	}

	ok, err = s.conversations.ThreadExists(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to retrieve thread", zap.Error(err), zap.String("thread_id", threadID))
		return httpError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "thread not found")
	}

	if err := s.db.Create(ctx, model.Thread{ID: threadID}); err != nil && !errors.Is(err, repository.ErrDuplicateThread) {
		s.logger.Warn("failed to remember thread", zap.Error(err), zap.String("thread_id", threadID))
	}
	return nil
}

func (s API) Register(g *echo.Group) {
	g.GET("/start", s.Start)
	g.POST("/chat", s.Chat)
	g.GET("/thread/:thread_id", s.ListMessages)
	g.GET("/thread/:thread_id/runs", s.ListRuns)
	g.GET("/thread/:thread_id/runs/:run_id/steps", s.ListRunSteps)
}
