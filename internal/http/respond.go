package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/catalog"
	"github.com/swaadanna/storefront/internal/repository"
	"github.com/swaadanna/storefront/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1MB

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, logger zerolog.Logger, status int, code, message string) {
	respondJSON(w, logger, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError is the one place domain errors become HTTP statuses.
func handleServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidOrder):
		respondError(w, logger, http.StatusBadRequest, "invalid_order", err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		respondError(w, logger, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, logger, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, logger, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, logger, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.Is(err, context.Canceled):
		respondError(w, logger, http.StatusServiceUnavailable, "canceled", "request canceled")
	default:
		logger.Error().Err(err).Msg("unhandled service error")
		respondError(w, logger, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}
