// Package errors/handlers provides interface-specific error handling.
//
// The HTTP handler converts structured AppErrors into status codes and JSON
// error bodies for the API layer; the log handler gives the CLI entrypoint a
// consistent stderr format. Both log through the standard library logger, the
// ambient logging used throughout mailforge.
package errors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// LogErrorHandler handles errors for the command-line entrypoint
type LogErrorHandler struct {
	Verbose bool
}

// NewLogErrorHandler creates a new log error handler
func NewLogErrorHandler(verbose bool) *LogErrorHandler {
	return &LogErrorHandler{Verbose: verbose}
}

// HandleError logs the error and returns a display-ready version
func (h *LogErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		log.Printf("[%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
		if appErr.Cause != nil {
			log.Printf("Caused by: %v", appErr.Cause)
		}
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for terminal display
func (h *LogErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)
	return fmt.Sprintf("%s: %s", appErr.Severity, appErr.Message)
}

// HTTPErrorHandler handles errors for HTTP interface
type HTTPErrorHandler struct {
	IncludeDetails bool
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool) *HTTPErrorHandler {
	return &HTTPErrorHandler{IncludeDetails: includeDetails}
}

// HandleError handles errors for HTTP interface
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	log.Printf("[HTTP] [%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
	if appErr.Cause != nil {
		log.Printf("Caused by: %v", appErr.Cause)
	}

	return appErr
}

// FormatError formats an error for HTTP response
func (h *HTTPErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	body := map[string]any{
		"code":      appErr.Code,
		"message":   appErr.Message,
		"timestamp": appErr.Timestamp,
	}
	if h.IncludeDetails && appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if h.IncludeDetails && appErr.Context != nil {
		body["context"] = appErr.Context
	}

	jsonBytes, _ := json.Marshal(map[string]any{"error": body})
	return string(jsonBytes)
}

// WriteHTTPError writes an error response to HTTP
func (h *HTTPErrorHandler) WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(err)

	h.HandleError(appErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.getHTTPStatusCode(appErr))
	w.Write([]byte(h.FormatError(appErr)))
}

// getHTTPStatusCode maps error codes to HTTP status codes
func (h *HTTPErrorHandler) getHTTPStatusCode(appErr *AppError) int {
	switch appErr.Code {
	case ErrCodeTemplateNotFound, ErrCodeVenueNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeTemplateSyntax:
		return http.StatusUnprocessableEntity
	case ErrCodeValidation, ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
