package coordinator

import "context"

type Status string

const (
	StatusQueued         Status = "queued"
	StatusInProgress     Status = "in_progress"
	StatusRequiresAction Status = "requires_action"
	StatusCancelling     Status = "cancelling"
	StatusCancelled      Status = "cancelled"
	StatusFailed         Status = "failed"
	StatusCompleted      Status = "completed"
	StatusExpired        Status = "expired"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Active reports whether the run still occupies its thread on the remote side.
func (s Status) Active() bool {
	return !s.Terminal()
}

func (s Status) String() string {
	return string(s)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID   string
	Role Role
	Text string
}

// ToolCall is a pending function invocation requested by the remote run.
// Arguments holds the raw JSON object sent by the remote service.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolOutput struct {
	CallID string
	Output string
}

type Run struct {
	ID          string
	ThreadID    string
	AssistantID string
	Status      Status
	// ToolCalls is only populated while Status is StatusRequiresAction.
	ToolCalls []ToolCall
	LastError string
}

// Remote is the subset of the hosted assistant API used to drive a run.
type Remote interface {
	CreateRun(ctx context.Context, threadID, assistantID, instructions string) (Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error)
	// ListMessages returns the thread messages, newest first.
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}

// Invoker resolves a tool call by function name.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// Recorder keeps a local ledger of the runs driven by this process.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
	UpdateRun(ctx context.Context, run Run) error
}

// Step is one unit of work the remote service performed within a run: a
// message it wrote or the tool calls it made.
type Step struct {
	ID        string
	Type      string
	Status    string
	MessageID string
	ToolCalls []ToolCall
	LastError string
}
