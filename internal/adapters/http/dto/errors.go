// Package dto holds the JSON shapes of the quotes API and the mapping from
// domain errors to HTTP responses.
package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

// ContextKeyTraceID is the gin context key checked first by GetTraceID.
const ContextKeyTraceID = "trace_id"

// headerRequestID is the fallback correlation source when no trace is active.
const headerRequestID = "X-Request-ID"

// ErrorResponse is the envelope every non-2xx API response carries.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Details maps a field name to its message for validation failures.
	Details map[string]string `json:"details,omitempty"`
}

// Machine-readable error codes.
const (
	ErrorCodeNotFound     = "NOT_FOUND"
	ErrorCodeAlreadyLiked = "ALREADY_LIKED"
	ErrorCodeConflict     = "CONFLICT"
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeBadRequest   = "BAD_REQUEST"
	ErrorCodeForbidden    = "FORBIDDEN"
	ErrorCodeUnavailable  = "SERVICE_UNAVAILABLE"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)

// User-facing messages.
const (
	MessageAlreadyLiked = "You have already liked this quote"
	MessageInternal     = "an internal error occurred"
	MessageUnavailable  = "service temporarily unavailable"
)

func NewErrorResponse(code, message string) *ErrorResponse {
	return NewErrorResponseWithDetails(code, message, nil)
}

func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}}
}

// WithTraceID sets the correlation id and returns e for chaining.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// codeStatus is the HTTP status for every code the API emits.
var codeStatus = map[string]int{
	ErrorCodeNotFound:     http.StatusNotFound,
	ErrorCodeAlreadyLiked: http.StatusBadRequest,
	ErrorCodeValidation:   http.StatusBadRequest,
	ErrorCodeBadRequest:   http.StatusBadRequest,
	ErrorCodeConflict:     http.StatusConflict,
	ErrorCodeForbidden:    http.StatusForbidden,
	ErrorCodeUnavailable:  http.StatusServiceUnavailable,
	ErrorCodeInternal:     http.StatusInternalServerError,
}

// HTTPStatusFromCode returns 500 for codes it does not know.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// kindEnvelope builds the client-facing envelope for one domain error kind.
// Kinds whose cause may leak internals use a fixed message.
var kindEnvelope = map[domain.ErrorKind]func(error) *ErrorResponse{
	domain.KindNotFound: func(err error) *ErrorResponse {
		return NewErrorResponse(ErrorCodeNotFound, notFoundMessage(err))
	},
	domain.KindAlreadyLiked: func(error) *ErrorResponse {
		return NewErrorResponse(ErrorCodeAlreadyLiked, MessageAlreadyLiked)
	},
	domain.KindValidation: validationEnvelope,
	domain.KindConflict: func(err error) *ErrorResponse {
		return NewErrorResponse(ErrorCodeConflict, err.Error())
	},
	domain.KindUnavailable: func(error) *ErrorResponse {
		return NewErrorResponse(ErrorCodeUnavailable, MessageUnavailable)
	},
}

// MapDomainError maps an error to a status and envelope by its domain kind.
// Anything unclassified is a 500 with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	build, ok := kindEnvelope[domain.Kind(err)]
	if !ok {
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, MessageInternal)
	}

	resp := build(err)

	return HTTPStatusFromCode(resp.Error.Code), resp
}

func validationEnvelope(err error) *ErrorResponse {
	resp := NewErrorResponse(ErrorCodeValidation, err.Error())

	var ve *domain.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		resp.Error.Details = map[string]string{ve.Field: ve.Message}
	}

	return resp
}

func notFoundMessage(err error) string {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) && nf.Entity != "" {
		return nf.Entity + " not found"
	}

	return "resource not found"
}

// GetTraceID returns the id used to correlate an error response with logs.
// It prefers a value stored on the gin context, then the active span, then
// the X-Request-ID header.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyTraceID); ok {
		if s, ok := v.(string); ok {
			return s
		}

		return ""
	}

	if c.Request == nil {
		return ""
	}

	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return c.Request.Header.Get(headerRequestID)
}

// HandleError writes the error envelope for err and logs internal and
// unavailable failures with their cause. Raw error text for those kinds
// never reaches the client.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Int("status", status),
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.AbortWithStatusJSON(status, resp)
}

// AbortWithCode aborts the chain with an envelope for an adapter-level code.
func AbortWithCode(c *gin.Context, code, message string) {
	resp := NewErrorResponse(code, message).WithTraceID(GetTraceID(c))
	c.AbortWithStatusJSON(HTTPStatusFromCode(code), resp)
}
