package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"conti/internal/core"
	applog "conti/internal/log"
	"conti/internal/services"
	"conti/internal/store"
)

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrInvalidCurrency,
	core.ErrInvalidSharingType,
	core.ErrInvalidCategory,
	core.ErrInvalidAccountType,
	core.ErrUnknownParty,
	core.ErrZeroIncome,
	core.ErrInvalidDate,
	services.ErrEmptySnapshot,
}

// errorStatus maps an error to its HTTP status: 400 for malformed input,
// 404 for missing records, 422 for invalid values and 500 otherwise.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrNoIncome):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError logs err and answers with its mapped status. Internal errors
// are reported to the client without details.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	logger := applog.FromContext(r.Context())

	message := err.Error()
	switch {
	case status >= 500:
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, op, applog.ErrorTypeInternal, applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", "", ""))
		message = "internal error"
	case status == http.StatusNotFound:
		logger.InfoContext(r.Context(), "Resource not found", applog.FieldOperation, op, applog.FieldError, err.Error())
	default:
		logger.WarnContext(r.Context(), "Invalid request", applog.FieldOperation, op,
			applog.FieldError, err.Error(), applog.FieldErrorType, applog.ErrorTypeValidation)
	}
	ErrorResponse(status, message).Write(w)
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
