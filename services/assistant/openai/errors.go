package openai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/sashabaranov/go-openai"
)

// RemoteError wraps failures of the assistants API. It matches
// coordinator.ErrNotFound for 404 answers and coordinator.ErrRemoteUnavailable
// otherwise.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("failed to %s due to %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() []error {
	kind := coordinator.ErrRemoteUnavailable
	if e.StatusCode == http.StatusNotFound {
		kind = coordinator.ErrNotFound
	}
	return []error{kind, e.Err}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	re := &RemoteError{Op: op, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		re.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		re.StatusCode = reqErr.HTTPStatusCode
	}
	return re
}
