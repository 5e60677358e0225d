package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clubkit/pkg/binder"
	"github.com/dmitrymomot/clubkit/pkg/handler"
	"github.com/dmitrymomot/clubkit/pkg/logger"
)

type greetRequest struct {
	Name  string `json:"name" query:"-"`
	Shout bool   `json:"-" query:"shout"`
}

var errClubMissing = errors.New("club missing")

func classify(err error) (handler.HTTPError, bool) {
	if errors.Is(err, errClubMissing) {
		return handler.HTTPError{Code: http.StatusNotFound, Key: "not_found"}, true
	}
	if errors.Is(err, binder.ErrFailedToParseJSON) {
		return handler.HTTPError{Code: http.StatusBadRequest, Key: "invalid_body"}, true
	}
	return handler.HTTPError{}, false
}

func greet(_ handler.Context, req greetRequest) handler.Response {
	switch req.Name {
	case "":
		return handler.Error(fmt.Errorf("greet: %w", handler.NewValidationError("name", "required")))
	case "ghost":
		return handler.Error(errClubMissing)
	case "crash":
		return handler.Error(errors.New("db password leaked in message"))
	}
	msg := "hello " + req.Name
	if req.Shout {
		msg = strings.ToUpper(msg)
	}
	return handler.JSON(map[string]string{"message": msg}, handler.WithJSONMeta(map[string]any{"shout": req.Shout}))
}

func serve(h http.HandlerFunc, body, query string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/greet"+query, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var env handler.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestWrap(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	log := logger.New(logger.WithFormat(logger.FormatJSON), logger.WithOutput(&logs))
	h := handler.Wrap(greet,
		handler.WithBinders[greetRequest](binder.JSON(), binder.Query()),
		handler.WithErrorHandler[greetRequest](handler.NewErrorHandler(log, classify)),
	)

	t.Run("success", func(t *testing.T) {
		w := serve(h, `{"name":"padel"}`, "?shout=true")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

		env := decode(t, w)
		assert.Equal(t, map[string]any{"message": "HELLO PADEL"}, env.Data)
		assert.Equal(t, true, env.Meta["shout"])
		assert.Nil(t, env.Error)
	})

	tests := []struct {
		name    string
		body    string
		status  int
		code    string
		message string
		level   string
	}{
		{"binder failure", `{"name":`, http.StatusBadRequest, "invalid_body", "", "WARN"},
		{"classified error", `{"name":"ghost"}`, http.StatusNotFound, "not_found", "club missing", "WARN"},
		{"validation error", `{"name":""}`, http.StatusBadRequest, "validation_error", "", "WARN"},
		{"unknown error hides message", `{"name":"crash"}`, http.StatusInternalServerError, "internal_error", "Internal Server Error", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Reset()
			w := serve(h, tt.body, "")
			assert.Equal(t, tt.status, w.Code)

			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, env.Error.Message)
			}
			assert.Contains(t, logs.String(), `"level":"`+tt.level+`"`)
		})
	}

	t.Run("validation details", func(t *testing.T) {
		env := decode(t, serve(h, `{"name":""}`, ""))
		require.NotNil(t, env.Error)
		assert.Equal(t, map[string][]string{"name": {"required"}}, env.Error.Details)
	})
}

func TestWrap_Defaults(t *testing.T) {
	t.Parallel()

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()

		h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return nil })
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("http error without error handler", func(t *testing.T) {
		t.Parallel()

		h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
			return handler.Error(handler.HTTPError{Code: http.StatusConflict, Key: "conflict"})
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "conflict")
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return handler.Empty() })
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodDelete, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Zero(t, w.Body.Len())
	})

	t.Run("status option", func(t *testing.T) {
		t.Parallel()

		h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
			return handler.JSON("made", handler.WithJSONStatus(http.StatusCreated))
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestWrap_Decorators(t *testing.T) {
	t.Parallel()

	var order []string
	trace := func(name string) handler.Decorator[struct{}] {
		return func(next handler.HandlerFunc[struct{}]) handler.HandlerFunc[struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := handler.Wrap(func(ctx handler.Context, _ struct{}) handler.Response {
		order = append(order, "handler")
		assert.NotNil(t, ctx.Request())
		return handler.Empty()
	}, handler.WithDecorators(trace("outer"), trace("inner")))

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestNewErrorHandler_NilLogger(t *testing.T) {
	t.Parallel()

	eh := handler.NewErrorHandler(nil)
	w := httptest.NewRecorder()
	eh(handler.NewContext(w, httptest.NewRequest(http.MethodGet, "/", nil)), handler.HTTPError{Code: http.StatusTeapot, Key: "teapot"})
	assert.Equal(t, http.StatusTeapot, w.Code)
}
