package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/everestmart/delivery-svc/internal/service/models/order"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError maps domain sentinels onto HTTP status codes. Unknown errors
// are logged and returned as opaque 500s.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, rider.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidOTP),
		errors.Is(err, order.ErrNoActiveOTP),
		errors.Is(err, rider.ErrInvalidApprovalStatus):
		code = http.StatusBadRequest
	case errors.Is(err, rider.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	case errors.Is(err, order.ErrNotAssignee),
		errors.Is(err, rider.ErrNotApproved),
		errors.Is(err, rider.ErrNotAvailable):
		code = http.StatusForbidden
	case errors.Is(err, order.ErrAlreadyAssigned),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, rider.ErrAlreadyExists):
		code = http.StatusConflict
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	respondJSON(w, code, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
