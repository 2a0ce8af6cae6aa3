package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err) or respondRejected for empty uploads
//  3. statusFor picks the HTTP status from the error chain
//  4. Error is mapped via core.MapError to get a user-facing message
//  5. Technical error + context is logged with request ID for correlation
//  6. User message is written as JSON

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/parser"
)

var (
	// errInvalidRequest prefixes malformed or invalid request bodies.
	errInvalidRequest = errors.New("invalid request")

	// errFileTooLarge marks uploads over the configured file size.
	errFileTooLarge = errors.New("file too large")
)

// retryAfterSeconds is sent with 503 responses when every import slot is taken.
const retryAfterSeconds = 5

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	JobID   *int64 `json:"jobId,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		failed *core.ImportFailedError
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &failed):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &tooBig), errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, parser.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, parser.ErrUnsupportedExtension),
		errors.Is(err, core.ErrEmptyBatch),
		errors.Is(err, core.ErrInvalidPage),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes the mapped
// user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	writeJSON(w, r, status, buildErrorResponse(w, r, err, status))
}

// rejectedResponse is returned when an uploaded file has no importable rows.
type rejectedResponse struct {
	ErrorResponse
	RejectedRows []parser.ValidationIssue `json:"rejectedRows"`
}

// respondRejected writes a 422 carrying the rows the parser rejected.
func respondRejected(w http.ResponseWriter, r *http.Request, err error, result core.FileImportResult) {
	rejected := result.Rejected
	if rejected == nil {
		rejected = []parser.ValidationIssue{}
	}
	status := http.StatusUnprocessableEntity
	writeJSON(w, r, status, rejectedResponse{
		ErrorResponse: buildErrorResponse(w, r, err, status),
		RejectedRows:  rejected,
	})
}

func buildErrorResponse(w http.ResponseWriter, r *http.Request, err error, statusCode int) ErrorResponse {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var failed *core.ImportFailedError
	if errors.As(err, &failed) {
		resp.JobID = &failed.JobID
	}
	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	return resp
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
