package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = time.Second
	DefaultMaxWait      = 2 * time.Minute
)

var errMaxWait = errors.New("maximum wait exceeded")

type Coordinator struct {
	logger  *zap.Logger
	tracer  trace.Tracer
	remote  Remote
	tools   Invoker
	metrics *Metrics

	recorder Recorder

	pollInterval time.Duration
	maxWait      time.Duration
	maxPolls     int
}

type Option func(*Coordinator)

// WithPollInterval sets the delay before every status check.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxWait bounds the wall clock time of AwaitCompletion. Zero disables the bound.
func WithMaxWait(d time.Duration) Option {
	return func(c *Coordinator) {
		c.maxWait = d
	}
}

// WithMaxPolls bounds the number of status checks of AwaitCompletion. Zero disables the bound.
func WithMaxPolls(n int) Option {
	return func(c *Coordinator) {
		c.maxPolls = n
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func New(logger *zap.Logger, remote Remote, tools Invoker, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:       logger.Named("coordinator"),
		tracer:       otel.GetTracerProvider().Tracer("assistant.coordinator"),
		remote:       remote,
		tools:        tools,
		metrics:      NewMetrics(nil),
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartRun creates a run of assistantID on threadID. Remote failures are
// returned as ErrRemoteUnavailable and never retried.
func (c *Coordinator) StartRun(ctx context.Context, threadID, assistantID, instructions string) (Run, error) {
	if threadID == "" {
		return Run{}, fmt.Errorf("%w: empty thread id", ErrInvalidArgument)
	}
	if assistantID == "" {
		return Run{}, fmt.Errorf("%w: empty assistant id", ErrInvalidArgument)
	}

	ctx, span := c.tracer.Start(ctx, "start_run", trace.WithAttributes(
		attribute.String("thread_id", threadID),
		attribute.String("assistant_id", assistantID),
	))
	defer span.End()

	run, err := c.remote.CreateRun(ctx, threadID, assistantID, instructions)
	if err != nil {
		c.logger.Error("failed to create run", zap.Error(err), zap.String("thread_id", threadID), zap.String("assistant_id", assistantID))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrRemoteUnavailable) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("%w: create run: %w", ErrRemoteUnavailable, err)
	}
	if run.ThreadID == "" {
		run.ThreadID = threadID
	}
	if run.AssistantID == "" {
		run.AssistantID = assistantID
	}
	if run.Status == "" {
		run.Status = StatusQueued
	}

	span.SetAttributes(attribute.String("run_id", run.ID))
	c.logger.Info("run started", zap.String("run_id", run.ID), zap.String("thread_id", run.ThreadID), zap.String("status", run.Status.String()))

	if c.recorder != nil {
		if err := c.recorder.RecordRun(ctx, run); err != nil {
			c.logger.Warn("failed to record run", zap.Error(err), zap.String("run_id", run.ID))
		}
	}

	return run, nil
}

// AwaitCompletion polls run until it reaches a terminal state and returns the
// latest assistant message of the thread. Pending tool calls are resolved and
// submitted on the way. Every failure is a *RunError.
func (c *Coordinator) AwaitCompletion(ctx context.Context, run Run) (string, error) {
	ctx, span := c.tracer.Start(ctx, "await_completion", trace.WithAttributes(
		attribute.String("run_id", run.ID),
		attribute.String("thread_id", run.ThreadID),
	))
	defer span.End()

	start := time.Now()
	text, err := c.await(ctx, run)

	c.metrics.Duration.Observe(time.Since(start).Seconds())
	c.metrics.Runs.WithLabelValues(outcome(err)).Inc()

	if err != nil {
		c.logger.Warn("run did not complete", zap.Error(err), zap.String("run_id", run.ID), zap.String("thread_id", run.ThreadID))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	c.logger.Info("run completed", zap.String("run_id", run.ID), zap.String("thread_id", run.ThreadID), zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// Execute starts a run and waits for its reply.
func (c *Coordinator) Execute(ctx context.Context, threadID, assistantID, instructions string) (string, error) {
	run, err := c.StartRun(ctx, threadID, assistantID, instructions)
	if err != nil {
		return "", err
	}
	return c.AwaitCompletion(ctx, run)
}

func (c *Coordinator) await(ctx context.Context, run Run) (string, error) {
	if c.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.maxWait, errMaxWait)
		defer cancel()
	}

	for polls := 0; ; polls++ {
		if c.maxPolls > 0 && polls >= c.maxPolls {
			return "", runError(ErrRunTimedOut, run, fmt.Errorf("no terminal status after %d polls", polls))
		}

		if err := sleep(ctx, c.pollInterval); err != nil {
			return "", c.interrupted(ctx, run)
		}

		current, err := c.remote.RetrieveRun(ctx, run.ThreadID, run.ID)
		c.metrics.Polls.Inc()
		if err != nil {
			if ctx.Err() != nil {
				return "", c.interrupted(ctx, run)
			}
			return "", runError(ErrRemoteUnavailable, run, err)
		}
		current = c.inherit(run, current)

		c.logger.Debug("polled run", zap.String("run_id", current.ID), zap.String("status", current.Status.String()), zap.Int("poll", polls+1))
		if current.Status != run.Status {
			c.record(ctx, current)
		}
		run = current

		switch run.Status {
		case StatusCompleted:
			return c.reply(ctx, run)
		case StatusFailed, StatusCancelled, StatusExpired:
			var cause error
			if run.LastError != "" {
				cause = errors.New(run.LastError)
			}
			return "", runError(ErrRunTerminated, run, cause)
		case StatusRequiresAction:
			outputs, err := c.resolve(ctx, run)
			if err != nil {
				if ctx.Err() != nil {
					return "", c.interrupted(ctx, run)
				}
				return "", err
			}
			if ctx.Err() != nil {
				return "", c.interrupted(ctx, run)
			}

			if _, err := c.remote.SubmitToolOutputs(ctx, run.ThreadID, run.ID, outputs); err != nil {
				if ctx.Err() != nil {
					return "", c.interrupted(ctx, run)
				}
				return "", runError(ErrRemoteUnavailable, run, fmt.Errorf("submit tool outputs: %w", err))
			}
			c.logger.Info("submitted tool outputs", zap.String("run_id", run.ID), zap.Int("outputs", len(outputs)))
		}
	}
}

// resolve produces one output per pending call or fails without any output.
// A done ctx stops it with the interruption error, whatever the handler returned.
func (c *Coordinator) resolve(ctx context.Context, run Run) ([]ToolOutput, error) {
	if len(run.ToolCalls) == 0 {
		return nil, runError(ErrRemoteUnavailable, run, errors.New("action required without pending tool calls"))
	}

	outputs := make([]ToolOutput, 0, len(run.ToolCalls))
	for _, call := range run.ToolCalls {
		args, err := decodeArguments(call.Arguments)
		if err != nil {
			c.metrics.ToolCalls.WithLabelValues(call.Name, "invalid_arguments").Inc()
			return nil, c.toolError(ErrToolExecutionFailed, run, call, err)
		}

		if ctx.Err() != nil {
			return nil, c.interrupted(ctx, run)
		}

		start := time.Now()
		out, err := c.tools.Invoke(ctx, call.Name, args)
		if err != nil {
			if ctx.Err() != nil {
				c.metrics.ToolCalls.WithLabelValues(call.Name, "interrupted").Inc()
				return nil, c.interrupted(ctx, run)
			}
			if errors.Is(err, ErrUnknownFunction) {
				c.metrics.ToolCalls.WithLabelValues(call.Name, "unknown").Inc()
				return nil, c.toolError(ErrUnknownFunction, run, call, err)
			}
			c.metrics.ToolCalls.WithLabelValues(call.Name, "error").Inc()
			return nil, c.toolError(ErrToolExecutionFailed, run, call, err)
		}
		c.metrics.ToolCalls.WithLabelValues(call.Name, "ok").Inc()

		c.logger.Info("tool call resolved",
			zap.String("run_id", run.ID),
			zap.String("call_id", call.ID),
			zap.String("function", call.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("output_bytes", len(out)),
		)
		outputs = append(outputs, ToolOutput{CallID: call.ID, Output: out})
	}
	return outputs, nil
}

func (c *Coordinator) toolError(kind error, run Run, call ToolCall, err error) *RunError {
	re := runError(kind, run, err)
	re.Function = call.Name
	c.logger.Error("failed to resolve tool call", zap.Error(err), zap.String("run_id", run.ID), zap.String("call_id", call.ID), zap.String("function", call.Name))
	return re
}

func (c *Coordinator) reply(ctx context.Context, run Run) (string, error) {
	msgs, err := c.remote.ListMessages(ctx, run.ThreadID)
	if err != nil {
		if ctx.Err() != nil {
			return "", c.interrupted(ctx, run)
		}
		return "", runError(ErrRemoteUnavailable, run, fmt.Errorf("list messages: %w", err))
	}
	for _, msg := range msgs {
		if msg.Role == RoleAssistant {
			return msg.Text, nil
		}
	}
	return "", runError(ErrNoAssistantReply, run, nil)
}

// interrupted maps a done context to RunTimedOut when the wait bound fired
// and to Cancelled otherwise.
func (c *Coordinator) interrupted(ctx context.Context, run Run) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, errMaxWait) {
		return runError(ErrRunTimedOut, run, fmt.Errorf("%w after %s", errMaxWait, c.maxWait))
	}
	return runError(ErrCancelled, run, cause)
}

func (c *Coordinator) record(ctx context.Context, run Run) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		c.logger.Warn("failed to record run status", zap.Error(err), zap.String("run_id", run.ID), zap.String("status", run.Status.String()))
	}
}

// inherit fills identifiers the remote service left out of a status response.
func (c *Coordinator) inherit(prev, cur Run) Run {
	if cur.ID == "" {
		cur.ID = prev.ID
	}
	if cur.ThreadID == "" {
		cur.ThreadID = prev.ThreadID
	}
	if cur.AssistantID == "" {
		cur.AssistantID = prev.AssistantID
	}
	return cur
}

func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return args, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
