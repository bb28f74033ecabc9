package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/sashabaranov/go-openai"
)

var _ coordinator.Remote = (*Service)(nil)

func (s *Service) NewThread(ctx context.Context) (string, error) {
	th, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", wrap("create thread", err)
	}
	return th.ID, nil
}

// ThreadExists reports whether the remote service knows threadID.
func (s *Service) ThreadExists(ctx context.Context, threadID string) (bool, error) {
	_, err := s.client.RetrieveThread(ctx, threadID)
	err = wrap("retrieve thread", err)
	if errors.Is(err, coordinator.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) SendMessage(ctx context.Context, threadID, content string) error {
	_, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	return wrap("send message", err)
}

func (s *Service) CreateRun(ctx context.Context, threadID, assistantID, instructions string) (coordinator.Run, error) {
	run, err := s.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID:  assistantID,
		Instructions: instructions,
	})
	if err != nil {
		return coordinator.Run{}, wrap("create run", err)
	}
	return toRun(run), nil
}

func (s *Service) RetrieveRun(ctx context.Context, threadID, runID string) (coordinator.Run, error) {
	run, err := s.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return coordinator.Run{}, wrap("retrieve run", err)
	}
	return toRun(run), nil
}

func (s *Service) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []coordinator.ToolOutput) (coordinator.Run, error) {
	req := openai.SubmitToolOutputsRequest{
		ToolOutputs: make([]openai.ToolOutput, 0, len(outputs)),
	}
	for _, o := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: o.CallID,
			Output:     o.Output,
		})
	}

	run, err := s.client.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return coordinator.Run{}, wrap("submit tool outputs", err)
	}
	return toRun(run), nil
}

func (s *Service) CancelRun(ctx context.Context, threadID, runID string) (coordinator.Run, error) {
	run, err := s.client.CancelRun(ctx, threadID, runID)
	if err != nil {
		return coordinator.Run{}, wrap("cancel run", err)
	}
	return toRun(run), nil
}

// ListMessages returns the thread messages, newest first.
func (s *Service) ListMessages(ctx context.Context, threadID string) ([]coordinator.Message, error) {
	list, err := s.client.ListMessage(ctx, threadID, nil, nil, nil, nil)
	if err != nil {
		return nil, wrap("list messages", err)
	}

	msgs := make([]coordinator.Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		msgs = append(msgs, toMessage(m))
	}
	return msgs, nil
}

// ListRunSteps returns the steps of a run in creation order.
func (s *Service) ListRunSteps(ctx context.Context, threadID, runID string) ([]coordinator.Step, error) {
	order := "asc"
	list, err := s.client.ListRunSteps(ctx, threadID, runID, openai.Pagination{Order: &order})
	if err != nil {
		return nil, wrap("list run steps", err)
	}

	steps := make([]coordinator.Step, 0, len(list.RunSteps))
	for _, st := range list.RunSteps {
		step := coordinator.Step{
			ID:     st.ID,
			Type:   string(st.Type),
			Status: string(st.Status),
		}
		if st.StepDetails.MessageCreation != nil {
			step.MessageID = st.StepDetails.MessageCreation.MessageID
		}
		for _, call := range st.StepDetails.ToolCalls {
			step.ToolCalls = append(step.ToolCalls, coordinator.ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
		if st.LastError != nil {
			step.LastError = fmt.Sprintf("%s: %s", st.LastError.Code, st.LastError.Message)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func toRun(r openai.Run) coordinator.Run {
	run := coordinator.Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		AssistantID: r.AssistantID,
		Status:      coordinator.Status(r.Status),
	}
	if r.LastError != nil {
		run.LastError = fmt.Sprintf("%s: %s", r.LastError.Code, r.LastError.Message)
	}

	if r.Status != openai.RunStatusRequiresAction || r.RequiredAction == nil {
		return run
	}
	if r.RequiredAction.Type != openai.RequiredActionTypeSubmitToolOutputs || r.RequiredAction.SubmitToolOutputs == nil {
		return run
	}
	for _, call := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		run.ToolCalls = append(run.ToolCalls, coordinator.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return run
}

func toMessage(m openai.Message) coordinator.Message {
	var parts []string
	for _, content := range m.Content {
		if content.Text != nil {
			parts = append(parts, content.Text.Value)
		}
	}
	return coordinator.Message{
		ID:   m.ID,
		Role: coordinator.Role(m.Role),
		Text: strings.Join(parts, "\n"),
	}
}
