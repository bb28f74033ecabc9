package thread

import (
	"errors"
	"net/http"

	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/labstack/echo/v4"
)

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, coordinator.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, coordinator.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "thread, run or assistant not found")
	case errors.Is(err, coordinator.ErrToolExecutionFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "the assistant requested an unsupported or failing tool")
	case errors.Is(err, coordinator.ErrRunTimedOut):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "the assistant did not answer in time, try again")
	case errors.Is(err, coordinator.ErrCancelled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
	case errors.Is(err, coordinator.ErrRunTerminated),
		errors.Is(err, coordinator.ErrNoAssistantReply),
		errors.Is(err, coordinator.ErrRemoteUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "assistant service failure, try again")
	}
	return echo.ErrInternalServerError
}
