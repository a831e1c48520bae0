package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"budgetcare/internal/analytics"
	"budgetcare/internal/core"
	"budgetcare/internal/log"
	"budgetcare/internal/services"
	"budgetcare/internal/settings"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

var (
	errBadJSON     = errors.New("malformed JSON body")
	errMissingUser = errors.New("missing user id")
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, errBadJSON),
		errors.Is(err, errMissingUser),
		errors.Is(err, analytics.ErrInvalidWindow),
		errors.Is(err, core.ErrEmptyUserID):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrEmptyBill),
		errors.Is(err, services.ErrIncompleteItem),
		errors.Is(err, core.ErrEmptyItemName),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMalformedDate),
		errors.Is(err, core.ErrZeroDate),
		errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidYearMon),
		errors.Is(err, core.ErrEmptyGoal),
		isSettingsError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func isSettingsError(err error) bool {
	for _, target := range []error{
		settings.ErrInvalidPhone,
		settings.ErrInvalidIncome,
		settings.ErrInvalidAmount,
		settings.ErrUnknownField,
		settings.ErrInvalidBool,
		settings.ErrInvalidLang,
		settings.ErrInvalidWindow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Default().Error("Failed to encode response", log.FieldError, err)
	}
}

// writeError answers with the mapped status. Server errors are logged with
// their cause and reported to the client without it.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: w.Header().Get("X-Request-ID")})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadJSON)
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

// userID reads and cleans the {userID} path segment.
func userID(r *http.Request) (string, error) {
	id := sanitizeInput(r.PathValue("userID"))
	if id == "" {
		return "", errMissingUser
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// money renders an amount rounded to cents as a JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(core.FormatAmount(core.RoundCents(d)))
}
