package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/greyfundr/back-end/internal/services"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type contextKey string

const (
	contextSubjectKey contextKey = "sub"
	contextEmailKey   contextKey = "email"
	contextRoleKey    contextKey = "role"
)

// Identity is the caller identity the access guard places in the
// request context.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func identityFromContext(ctx context.Context) (Identity, error) {
	userID, _ := ctx.Value(contextSubjectKey).(string)
	if strings.TrimSpace(userID) == "" {
		return Identity{}, errors.New("missing subject")
	}
	email, _ := ctx.Value(contextEmailKey).(string)
	role, _ := ctx.Value(contextRoleKey).(string)
	return Identity{UserID: userID, Email: email, Role: role}, nil
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AckResponse is a simple confirmation payload.
type AckResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service-layer error to an HTTP response.
// Unrecognized errors become an opaque 500 so internal details never
// reach clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, topMessage(err))
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAccountDeactivated),
		errors.Is(err, services.ErrAccessDenied):
		writeError(w, http.StatusUnauthorized, topMessage(err))
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, topMessage(err))
	case errors.Is(err, services.ErrBadRequest), errors.Is(err, services.ErrIncorrectPassword):
		writeError(w, http.StatusBadRequest, topMessage(err))
	case errors.Is(err, services.ErrConflict):
		writeError(w, http.StatusConflict, topMessage(err))
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// topMessage strips the trailing sentinel from a wrapped error so the
// client sees "email is already registered" rather than
// "email is already registered: resource conflict".
func topMessage(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx > 0 {
		if inner := errors.Unwrap(err); inner != nil && msg[idx+2:] == inner.Error() {
			return msg[:idx]
		}
	}
	return msg
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}
