package entity

import "time"

type StartResponse struct {
	ThreadID string `json:"thread_id"`
}

type ChatRequest struct {
	ThreadID    string `json:"thread_id"`
	AssistantID string `json:"assistant_id"`
	Message     string `json:"message" validate:"required"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type ToolCall struct {
	ID        string `json:"id"`
	Function  string `json:"function"`
	Arguments string `json:"arguments"`
}

type Run struct {
	ID          string     `json:"id"`
	AssistantID string     `json:"assistant_id"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ListRunsResponse struct {
	Runs []Run `json:"runs"`
}

type RunStep struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	MessageID string     `json:"message_id,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type ListRunStepsResponse struct {
	Steps []RunStep `json:"steps"`
}
