package server

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/goliatone/go-doctype/internal/store"
	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/render"
)

// statusFor maps domain errors onto HTTP codes.
func statusFor(err error) int {
	var httpErr *echo.HTTPError
	var verr *model.ValidationError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, model.ErrInvalidValue):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// messageFor hides internal errors from clients.
func messageFor(err error, status int) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return msg
		}
		return http.StatusText(httpErr.Code)
	}
	if status >= 500 {
		return "internal server error"
	}
	return err.Error()
}

// errorMessages flattens err into lines for the page error list. Field
// messages are prefixed with their path.
func errorMessages(err error) []string {
	mapping := render.MapError(err)
	paths := make([]string, 0, len(mapping.Fields))
	for path := range mapping.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	lines := make([]string, 0, len(paths)+len(mapping.Form))
	for _, path := range paths {
		lines = append(lines, path+": "+strings.Join(mapping.Fields[path], ", "))
	}
	return render.MergeFormErrors(lines, mapping.Form...)
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("handler failed",
			zap.String("request_id", requestID(c)),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
		)
	}

	msg := messageFor(err, status)
	var writeErr error
	switch {
	case c.Request().Method == http.MethodHead:
		writeErr = c.NoContent(status)
	case isAPI(c):
		writeErr = c.JSON(status, map[string]string{"error": msg})
	default:
		writeErr = c.String(status, msg)
	}
	if writeErr != nil {
		s.log.Warn("write error response", zap.Error(writeErr))
	}
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}
