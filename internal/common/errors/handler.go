// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// Responder writes StandardError values as JSON HTTP responses.
type Responder struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewResponder(logger Logger) *Responder {
	return &Responder{logger: logger}
}

// errorBody is the wire shape of an error response.
type errorBody struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp string    `json:"timestamp"`
}

// Write normalizes err to a StandardError, logs it, and writes the JSON body
// with the mapped status code.
func (r *Responder) Write(w http.ResponseWriter, req *http.Request, err error) {
	stdErr := r.normalizeError(err)

	r.logger.Error("request failed", map[string]interface{}{
		"method":    req.Method,
		"path":      req.URL.Path,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
		"category":  GetErrorCategory(stdErr.Code),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusForCode(stdErr.Code))
	_ = json.NewEncoder(w).Encode(errorBody{
		Code:      stdErr.Code,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Timestamp: stdErr.Timestamp.Format(time.RFC3339),
	})
}

// normalizeError ensures we always have a StandardError
func (r *Responder) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// StatusForCode maps internal error codes to HTTP status codes.
func StatusForCode(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeWeightSumInvalid, ErrCodeLevelsRequired,
		ErrCodeCriteriaTypeInvalid, ErrCodeImportParseFailed, ErrCodeImportRowInvalid:
		return http.StatusBadRequest
	case ErrCodeAuthenticationFailed, ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeDocumentNotFound, ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateDocument:
		return http.StatusConflict
	case ErrCodeStoreConnectionFailed, ErrCodeStoreWriteFailed, ErrCodeStoreQueryFailed,
		ErrCodeSearchIndexFailed, ErrCodeSearchQueryFailed, ErrCodeExportFailed,
		ErrCodeNotificationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
