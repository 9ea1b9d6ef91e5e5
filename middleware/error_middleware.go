// ABOUTME: This file centralizes HTTP error rendering for the ops server.
// ABOUTME: Echo errors keep their status; everything else becomes a hidden 500.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"news-harvester/utils/logger"
)

// ErrorResponse is the JSON body returned for failed ops requests.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// CustomHTTPErrorHandler renders handler errors as JSON. An echo.HTTPError
// keeps its status code and, below 500, its message; everything else maps
// to a 500 whose body never carries handler internals.
func CustomHTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		requestID, _ := c.Request().Context().Value(logger.RequestIDKey).(string)

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			}
		}

		if status >= http.StatusInternalServerError {
			message = http.StatusText(status)

			log.Error("ops request failed",
				"request_id", requestID,
				"status", status,
				"error", err)
		} else {
			log.Warn("ops request rejected",
				"request_id", requestID,
				"status", status,
				"error", err)
		}

		response := ErrorResponse{Error: message, RequestID: requestID}
		if writeErr := c.JSON(status, response); writeErr != nil {
			log.Error("failed to write error response",
				"request_id", requestID,
				"error", writeErr)
		}
	}
}
