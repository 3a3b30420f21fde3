package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/flowstudio/internal/repository"
	"github.com/RealZimboGuy/flowstudio/internal/validation"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/moogar0880/problems"
)

// ResponseError is an error that carries the HTTP status and the message shown
// to the client.
type ResponseError struct {
	Status  int
	Message string
	Err     error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(message string) *ResponseError {
	return &ResponseError{Status: http.StatusNotFound, Message: message}
}

func NewBadRequestError(message string, err error) *ResponseError {
	return &ResponseError{Status: http.StatusBadRequest, Message: message, Err: err}
}

func NewUnauthorizedError() *ResponseError {
	return &ResponseError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
}

func NewInternalServerError(message string, err error) *ResponseError {
	return &ResponseError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// apiHandler writes its own success response and returns an error otherwise.
type apiHandler func(w http.ResponseWriter, r *http.Request) error

// send adapts an apiHandler to net/http, turning returned errors into problem documents.
func send(fn apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *validation.ValidationError
		rerr *ResponseError
	)
	switch {
	case errors.As(err, &verr):
		writeProblem(w, problems.NewStatusProblem(http.StatusBadRequest).
			WithInstance(r.URL.Path).
			WithType("validation_error").
			WithDetail(verr.Error()))

	case errors.Is(err, repository.ErrTagAlreadyExists):
		writeProblem(w, problems.NewStatusProblem(http.StatusConflict).
			WithInstance(r.URL.Path).
			WithType("conflict").
			WithDetail(err.Error()))

	case errors.As(err, &rerr) && rerr.Status < http.StatusInternalServerError:
		writeProblem(w, problems.NewStatusProblem(rerr.Status).
			WithInstance(r.URL.Path).
			WithType(problemType(rerr.Status)).
			WithDetail(rerr.Message))

	case errors.As(err, &rerr):
		slog.ErrorContext(r.Context(), rerr.Message, logAttrs(r, err)...)
		writeProblem(w, problems.NewStatusProblem(rerr.Status).
			WithInstance(r.URL.Path).
			WithType("internal_error").
			WithDetail(rerr.Message))

	default:
		slog.ErrorContext(r.Context(), "Unhandled error", logAttrs(r, err)...)
		writeProblem(w, problems.NewStatusProblem(http.StatusInternalServerError).
			WithInstance(r.URL.Path).
			WithType("internal_error").
			WithDetail("Internal server error"))
	}
}

func logAttrs(r *http.Request, err error) []any {
	attrs := []any{"path", r.URL.Path, "error", err}
	if u := core.UserFromContext(r.Context()); u != nil {
		attrs = append(attrs, "userId", u.ID)
	}
	return attrs
}

func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	default:
		return "error"
	}
}

func writeProblem(w http.ResponseWriter, p *problems.Problem) {
	w.Header().Set("Content-Type", problems.ProblemMediaType)
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("Failed to encode problem", "error", err)
	}
}
