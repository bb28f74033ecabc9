package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kaytu-io/news-assistant/services/assistant/tools"
)

var (
	ErrRemoteUnavailable   = errors.New("remote assistant service unavailable")
	ErrNotFound            = errors.New("not found")
	ErrUnknownFunction     = tools.ErrUnknownFunction
	ErrToolExecutionFailed = errors.New("tool execution failed")
	ErrRunTerminated       = errors.New("run terminated abnormally")
	ErrRunTimedOut         = errors.New("run timed out")
	ErrCancelled           = errors.New("run cancelled")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNoAssistantReply    = errors.New("no assistant reply on thread")
)

// RunError describes why a run could not be driven to completion.
// It matches its Kind with errors.Is, and an unknown function also
// matches ErrToolExecutionFailed.
type RunError struct {
	Kind     error
	RunID    string
	ThreadID string
	Status   Status
	Function string
	Err      error
}

func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.RunID != "" {
		fmt.Fprintf(&b, ": run %s", e.RunID)
	}
	if e.Status != "" {
		fmt.Fprintf(&b, " status %s", e.Status)
	}
	if e.Function != "" {
		fmt.Fprintf(&b, " function %s", e.Function)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *RunError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Kind == ErrUnknownFunction {
		errs = append(errs, ErrToolExecutionFailed)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func runError(kind error, run Run, err error) *RunError {
	return &RunError{
		Kind:     kind,
		RunID:    run.ID,
		ThreadID: run.ThreadID,
		Status:   run.Status,
		Err:      err,
	}
}

// outcome is the label used for the runs_total metric.
func outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrUnknownFunction):
		return "unknown_function"
	case errors.Is(err, ErrToolExecutionFailed):
		return "tool_failed"
	case errors.Is(err, ErrRunTerminated):
		return "terminated"
	case errors.Is(err, ErrRunTimedOut):
		return "timed_out"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrRemoteUnavailable):
		return "remote_unavailable"
	}
	return "error"
}
