package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"plantarcli/internal/dataprocessing"
	"plantarcli/internal/playback"
	"plantarcli/internal/regions"
	"plantarcli/internal/services"
	"plantarcli/pkg/contracts/domain"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeUnprocessable   = "/errors/unprocessable"
)

// Domain-specific error types
const (
	TypeMissingTimeColumn = "/errors/recording/missing-time-column"
	TypeUnsupportedFormat = "/errors/recording/unsupported-format"
	TypeRegionOverrides   = "/errors/recording/region-overrides"
	TypeNoActiveDataset   = "/errors/dataset/no-data"
	TypeDatasetNotFound   = "/errors/dataset/not-found"
	TypeInvalidPlayback   = "/errors/playback/invalid"
	TypeInvalidFilter     = "/errors/filter/invalid"
	TypeWebSocketUpgrade  = "/errors/websocket/upgrade-failed"
)

// mapping binds a sentinel error to its problem type
type mapping struct {
	target error
	status int
	typ    string
	title  string
}

var domainMappings = []mapping{
	{dataprocessing.ErrMissingTimeColumn, http.StatusUnprocessableEntity, TypeMissingTimeColumn, "Missing Time Column"},
	{dataprocessing.ErrNoHeaderRow, http.StatusUnprocessableEntity, TypeMissingTimeColumn, "Missing Header Row"},
	{dataprocessing.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, TypeUnsupportedFormat, "Unsupported File Format"},
	{dataprocessing.ErrInvalidFilter, http.StatusBadRequest, TypeInvalidFilter, "Invalid Filter"},
	{regions.ErrSensorOutOfRange, http.StatusUnprocessableEntity, TypeRegionOverrides, "Invalid Region Overrides"},
	{regions.ErrUnknownRegion, http.StatusUnprocessableEntity, TypeRegionOverrides, "Invalid Region Overrides"},
	{regions.ErrOverlap, http.StatusUnprocessableEntity, TypeRegionOverrides, "Invalid Region Overrides"},
	{regions.ErrIncomplete, http.StatusUnprocessableEntity, TypeRegionOverrides, "Invalid Region Overrides"},
	{domain.ErrUnknownPreset, http.StatusBadRequest, TypeValidation, "Unknown Threshold Preset"},
	{playback.ErrNoActiveDataset, http.StatusConflict, TypeNoActiveDataset, "No Data Loaded"},
	{playback.ErrDatasetNotFound, http.StatusNotFound, TypeDatasetNotFound, "Recording Not Found"},
	{playback.ErrInvalidRange, http.StatusBadRequest, TypeInvalidPlayback, "Invalid Playback Range"},
	{playback.ErrInvalidSpeed, http.StatusBadRequest, TypeInvalidPlayback, "Invalid Playback Speed"},
	{services.ErrUnreadable, http.StatusUnprocessableEntity, TypeUnprocessable, "Unreadable Recording"},
	{services.ErrEmptyUpload, http.StatusBadRequest, TypeValidation, "Empty Upload"},
	{services.ErrExportFormat, http.StatusBadRequest, TypeValidation, "Unsupported Export Format"},
	{services.ErrNoFilesToLoad, http.StatusBadRequest, TypeValidation, "No Files"},
	{services.ErrInvalidInput, http.StatusBadRequest, TypeValidation, "Invalid Input"},
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}
	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, r)
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			fmt.Sprintf("The upload exceeds the maximum of %d bytes", maxBytes.Limit),
			r.URL.Path,
		)
	}

	for _, m := range domainMappings {
		if errors.Is(err, m.target) {
			return NewProblemDetails(m.status, m.typ, m.title, err.Error(), r.URL.Path)
		}
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErrorToProblem(appErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

func apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "CONFLICT":
		problemType = TypeConflict
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "UNPROCESSABLE_ENTITY":
		problemType = TypeUnprocessable
	case "WEBSOCKET_UPGRADE_FAILED":
		problemType = TypeWebSocketUpgrade
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

func appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	var problem *ProblemDetails
	switch appErr.Type {
	case ErrTypeParsing:
		problem = NewProblemDetails(http.StatusUnprocessableEntity, TypeUnprocessable, "Unprocessable Recording", appErr.Error(), r.URL.Path)
	case ErrTypeValidation:
		problem = NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", appErr.Message, r.URL.Path)
	case ErrTypeNotFound:
		problem = NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", appErr.Message, r.URL.Path)
	default:
		// storage failures do not leak their cause
		problem = NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error", appErr.Message, r.URL.Path)
	}
	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}
	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))
	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))
	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
