package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tessling/optic-api/internal/api/shared"
	"github.com/tessling/optic-api/internal/domain"
)

// getOwnerID resolves the caller's owner ID. The auth middleware puts a
// verified ID in the context when the request carried a token; otherwise
// the caller names itself with an explicit userId form or query value.
func getOwnerID(r *http.Request) (string, bool) {
	if ownerID, ok := shared.GetOwnerID(r.Context()); ok {
		return ownerID, true
	}
	if ownerID := r.FormValue("userId"); ownerID != "" {
		return ownerID, true
	}
	return "", false
}

// getPathUUID extracts a UUID from the URL path parameters.
// It parses and validates the UUID, handling common error cases.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}

	return id, nil
}

// getQueryLimit parses an optional positive integer limit from the query
// string. Missing or malformed values fall back to zero, which callers
// treat as "use the default".
func getQueryLimit(r *http.Request, paramName string) int {
	raw := r.URL.Query().Get(paramName)
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}
