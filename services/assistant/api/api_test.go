package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kaytu-io/news-assistant/pkg/httpserver"
	"github.com/kaytu-io/news-assistant/services/assistant/api/entity"
	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/kaytu-io/news-assistant/services/assistant/db"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"github.com/kaytu-io/news-assistant/services/assistant/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type fakeConversations struct {
	mu       sync.Mutex
	threads  map[string]bool
	messages map[string][]string
	next     int
	err      error
	steps    map[string][]coordinator.Step
}

func (f *fakeConversations) NewThread(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.next++
	id := fmt.Sprintf("thread_%d", f.next)
	f.threads[id] = true
	return id, nil
}

func (f *fakeConversations) ThreadExists(_ context.Context, threadID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threads[threadID], nil
}

func (f *fakeConversations) SendMessage(_ context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[threadID] = append(f.messages[threadID], content)
	return nil
}

func (f *fakeConversations) ListMessages(_ context.Context, threadID string) ([]coordinator.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msgs []coordinator.Message
	for i := len(f.messages[threadID]) - 1; i >= 0; i-- {
		msgs = append(msgs, coordinator.Message{ID: fmt.Sprintf("msg_%d", i), Role: coordinator.RoleUser, Text: f.messages[threadID][i]})
	}
	return msgs, nil
}

func (f *fakeConversations) ListRunSteps(_ context.Context, _, runID string) ([]coordinator.Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps, ok := f.steps[runID]
	if !ok {
		return nil, fmt.Errorf("list run steps: %w", coordinator.ErrNotFound)
	}
	return steps, nil
}

type fakeRunner struct {
	reply        string
	err          error
	assistantID  string
	instructions string
}

func (f *fakeRunner) Execute(_ context.Context, _, assistantID, instructions string) (string, error) {
	f.assistantID = assistantID
	f.instructions = instructions
	return f.reply, f.err
}

type HttpHandlerSuite struct {
	suite.Suite

	conversations *fakeConversations
	runner        *fakeRunner
	threads       repository.Thread
	runs          repository.Run
	e             *echo.Echo
}

func (s *HttpHandlerSuite) SetupTest() {
	database, err := db.NewSQLite(filepath.Join(s.T().TempDir(), "assistant.db"), zap.NewNop())
	s.Require().NoError(err)
	s.Require().NoError(database.Initialize())

	s.conversations = &fakeConversations{threads: map[string]bool{}, messages: map[string][]string{}, steps: map[string][]coordinator.Step{}}
	s.runner = &fakeRunner{reply: "Bitcoin is up this week."}
	s.threads = repository.NewThread(database)
	s.runs = repository.NewRun(database)
	s.e = httpserver.Register(zap.NewNop(), New(zap.NewNop(), s.conversations, s.runner, s.threads, s.runs, "asst_default"))
}

func (s *HttpHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var payload string
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		payload = string(b)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *HttpHandlerSuite) start() string {
	rec := s.do(http.MethodGet, "/api/v1/start", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp entity.StartResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp.ThreadID)
	return resp.ThreadID
}

func (s *HttpHandlerSuite) TestStartAndChat() {
	threadID := s.start()

	ok, err := s.threads.Exists(context.Background(), threadID)
	s.Require().NoError(err)
	s.True(ok)

	rec := s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{ThreadID: threadID, Message: "summarize the news on this topic bitcoin?"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp entity.ChatResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("Bitcoin is up this week.", resp.Response)
	s.Equal("asst_default", s.runner.assistantID)
	s.Empty(s.runner.instructions)
	s.Equal([]string{"summarize the news on this topic bitcoin?"}, s.conversations.messages[threadID])
}

func (s *HttpHandlerSuite) TestChatExplicitAssistant() {
	threadID := s.start()

	rec := s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{ThreadID: threadID, AssistantID: "asst_other", Message: "hi"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("asst_other", s.runner.assistantID)
}

func (s *HttpHandlerSuite) TestChatBadInput() {
	rec := s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{Message: "hi"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "thread_id is required")

	threadID := s.start()
	rec = s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{ThreadID: threadID})
	s.Equal(http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	raw := httptest.NewRecorder()
	s.e.ServeHTTP(raw, req)
	s.Equal(http.StatusBadRequest, raw.Code)
}

func (s *HttpHandlerSuite) TestChatUnknownThread() {
	rec := s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{ThreadID: "thread_unknown", Message: "hi"})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Empty(s.conversations.messages)
}

func (s *HttpHandlerSuite) TestChatRemoteThreadIsRemembered() {
	s.conversations.threads["thread_remote"] = true

	rec := s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{ThreadID: "thread_remote", Message: "hi"})
	s.Require().Equal(http.StatusOK, rec.Code)

	ok, err := s.threads.Exists(context.Background(), "thread_remote")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *HttpHandlerSuite) TestChatErrorMapping() {
	threadID := s.start()

	for _, tc := range []struct {
		err    error
		status int
	}{
		{&coordinator.RunError{Kind: coordinator.ErrUnknownFunction, Function: "get_weather"}, http.StatusInternalServerError},
		{&coordinator.RunError{Kind: coordinator.ErrToolExecutionFailed}, http.StatusInternalServerError},
		{&coordinator.RunError{Kind: coordinator.ErrRunTerminated, Status: coordinator.StatusFailed}, http.StatusBadGateway},
		{&coordinator.RunError{Kind: coordinator.ErrRunTimedOut}, http.StatusGatewayTimeout},
		{&coordinator.RunError{Kind: coordinator.ErrCancelled}, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: create run", coordinator.ErrRemoteUnavailable), http.StatusBadGateway},
		{fmt.Errorf("%w: empty assistant id", coordinator.ErrInvalidArgument), http.StatusBadRequest},
		{errors.New("unexpected"), http.StatusInternalServerError},
	} {
		s.runner.err = tc.err
		rec := s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{ThreadID: threadID, Message: "hi"})
		s.Equal(tc.status, rec.Code, tc.err.Error())
	}
}

func (s *HttpHandlerSuite) TestChatUnknownAssistant() {
	threadID := s.start()
	s.runner.err = fmt.Errorf("%w: create run: %w", coordinator.ErrRemoteUnavailable, fmt.Errorf("create run: %w", coordinator.ErrNotFound))

	rec := s.do(http.MethodPost, "/api/v1/chat", entity.ChatRequest{ThreadID: threadID, AssistantID: "asst_missing", Message: "hi"})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "assistant")
	s.NotContains(rec.Body.String(), `"thread not found"`)
}

func (s *HttpHandlerSuite) TestListRunSteps() {
	threadID := s.start()
	ctx := context.Background()
	s.conversations.steps["run_1"] = []coordinator.Step{
		{ID: "step_1", Type: "tool_calls", Status: "completed", ToolCalls: []coordinator.ToolCall{{ID: "call_1", Name: "get_news", Arguments: `{"topic":"bitcoin"}`}}},
		{ID: "step_2", Type: "message_creation", Status: "completed", MessageID: "msg_1"},
	}

	rec := s.do(http.MethodGet, "/api/v1/thread/"+threadID+"/runs/run_1/steps", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp entity.ListRunStepsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Steps, 2)
	s.Equal([]entity.ToolCall{{ID: "call_1", Function: "get_news", Arguments: `{"topic":"bitcoin"}`}}, resp.Steps[0].ToolCalls)
	s.Equal("msg_1", resp.Steps[1].MessageID)

	rec = s.do(http.MethodGet, "/api/v1/thread/"+threadID+"/runs/run_missing/steps", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	// a run recorded under another thread is not listed
	s.conversations.steps["run_other"] = []coordinator.Step{{ID: "step_3"}}
	s.Require().NoError(s.runs.RecordRun(ctx, coordinator.Run{ID: "run_other", ThreadID: "thread_other", Status: coordinator.StatusCompleted}))
	rec = s.do(http.MethodGet, "/api/v1/thread/"+threadID+"/runs/run_other/steps", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "run not found")
}

func (s *HttpHandlerSuite) TestStartRemoteFailure() {
	s.conversations.err = fmt.Errorf("create thread: %w", coordinator.ErrRemoteUnavailable)

	rec := s.do(http.MethodGet, "/api/v1/start", nil)
	s.Equal(http.StatusBadGateway, rec.Code)
}

func (s *HttpHandlerSuite) TestListMessages() {
	threadID := s.start()
	s.Require().NoError(s.conversations.SendMessage(context.Background(), threadID, "first"))
	s.Require().NoError(s.conversations.SendMessage(context.Background(), threadID, "second"))

	rec := s.do(http.MethodGet, "/api/v1/thread/"+threadID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp entity.ListMessagesResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Messages, 2)
	s.Equal("second", resp.Messages[0].Content)

	rec = s.do(http.MethodGet, "/api/v1/thread/thread_unknown", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HttpHandlerSuite) TestStoredThreadSkipsRemoteLookup() {
	s.Require().NoError(s.threads.Create(context.Background(), model.Thread{ID: "thread_local"}))

	rec := s.do(http.MethodGet, "/api/v1/thread/thread_local", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HttpHandlerSuite) TestListRuns() {
	threadID := s.start()
	ctx := context.Background()

	s.Require().NoError(s.runs.RecordRun(ctx, coordinator.Run{ID: "run_1", ThreadID: threadID, AssistantID: "asst_default", Status: coordinator.StatusQueued}))
	s.Require().NoError(s.runs.UpdateRun(ctx, coordinator.Run{
		ID:        "run_1",
		ThreadID:  threadID,
		Status:    coordinator.StatusRequiresAction,
		ToolCalls: []coordinator.ToolCall{{ID: "call_1", Name: "get_news", Arguments: `{"topic":"bitcoin"}`}},
	}))

	rec := s.do(http.MethodGet, "/api/v1/thread/"+threadID+"/runs", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp entity.ListRunsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Runs, 1)
	s.Equal("requires_action", resp.Runs[0].Status)
	s.Equal([]entity.ToolCall{{ID: "call_1", Function: "get_news", Arguments: `{"topic":"bitcoin"}`}}, resp.Runs[0].ToolCalls)

	rec = s.do(http.MethodGet, "/api/v1/thread/thread_unknown/runs", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func TestHttpHandlerSuite(t *testing.T) {
	suite.Run(t, new(HttpHandlerSuite))
}
