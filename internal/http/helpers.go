package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// UserHeader carries the authenticated user id set by the upstream gateway.
const UserHeader = "X-User-ID"

var errMissingUser = errors.New("missing " + UserHeader + " header")

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func userFrom(r *http.Request) (core.UserID, error) {
	u := sanitizeInput(r.Header.Get(UserHeader))
	if u == "" {
		return "", errMissingUser
	}
	return core.UserID(u), nil
}

// refDate reads ?date=YYYY-MM-DD, defaulting to today.
func refDate(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return core.Today(), nil
	}
	return core.ParseDate(v)
}

// dateRange reads the optional ?start= and ?end= bounds.
func dateRange(r *http.Request) (core.DateRange, error) {
	var window core.DateRange
	for name, dst := range map[string]**core.Date{"start": &window.Start, "end": &window.End} {
		v := strings.TrimSpace(r.URL.Query().Get(name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%s: %w", name, err)
		}
		*dst = &d
	}
	return window, window.Validate()
}

// txType reads the optional ?type= filter; empty means all types.
func txType(r *http.Request) (core.TxType, error) {
	v := strings.TrimSpace(r.URL.Query().Get("type"))
	if v == "" {
		return "", nil
	}
	return core.ParseTxType(v)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidType):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes a JSON error. Server-side failures are not
// echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	logger := log.FromContext(r.Context())
	if status >= 500 {
		errType := log.ErrorTypeInternal
		if status == http.StatusGatewayTimeout {
			errType = log.ErrorTypeTimeout
		}
		logger.ErrorContext(r.Context(), "request failed", log.NewFields().WithError(err, errType).ToSlice()...)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: log.RequestID(r.Context())})
}
