package handler

import (
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/dmitrymomot/clubkit/pkg/logger"
	"github.com/dmitrymomot/clubkit/pkg/requestid"
)

// Classifier maps an application error to its HTTP form. It reports false
// for errors it does not know.
type Classifier func(err error) (HTTPError, bool)

var internalError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_error"}

// classifyError tries classifiers in order, then HTTPError and
// ValidationError values in the chain.
func classifyError(err error, classifiers []Classifier) HTTPError {
	for _, classify := range classifiers {
		if he, ok := classify(err); ok {
			return he
		}
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return HTTPError{Code: http.StatusBadRequest, Key: "validation_error"}
	}
	return internalError
}

func logLevel(status int) slog.Level {
	if status < http.StatusInternalServerError {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// errorDetail hides server error text from clients.
func errorDetail(err error, he HTTPError) *ErrorDetail {
	detail := &ErrorDetail{Code: he.Key, Message: err.Error()}
	if he.Code >= http.StatusInternalServerError {
		detail.Message = http.StatusText(he.Code)
	}
	var ve ValidationError
	if errors.As(err, &ve) && len(ve) > 0 {
		detail.Details = make(map[string][]string, len(ve))
		maps.Copy(detail.Details, ve)
	}
	return detail
}

// NewErrorHandler returns an ErrorHandler that logs and renders errors as
// JSON envelopes. A nil log falls back to slog.Default.
func NewErrorHandler(log *slog.Logger, classifiers ...Classifier) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		he := classifyError(err, classifiers)

		log.LogAttrs(r.Context(), logLevel(he.Code), "request failed",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", he.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if rerr := JSONError(he.Code, errorDetail(err, he)).Render(ctx.ResponseWriter(), r); rerr != nil {
			log.WarnContext(r.Context(), "failed to write error response", logger.Error(rerr))
		}
	}
}
