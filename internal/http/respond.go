package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/go_storefront/internal/domain"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}

var errInvalidBody = fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)

// fieldOf names the request field a validation error is about.
var fieldOf = []struct {
	err   error
	field string
}{
	{domain.ErrInvalidQuantity, "quantity"},
	{domain.ErrInvalidProductID, "product_id"},
	{domain.ErrInvalidRating, "rating"},
	{domain.ErrInvalidUserID, "user_id"},
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// statusOf maps an error kind to its HTTP status and code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrUnpurchased):
		return http.StatusForbidden, "unpurchased"
	case errors.Is(err, domain.ErrDuplicateReview):
		return http.StatusConflict, "duplicate_review"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// handleError writes err as a single top-level message. Internal errors are
// logged and never echoed to the client.
func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	writeError(w, logger, err, false)
}

// handleFieldError is handleError plus the offending field for validation
// errors.
func handleFieldError(w http.ResponseWriter, logger *zap.Logger, err error) {
	writeError(w, logger, err, true)
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error, withField bool) {
	status, code := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		respondError(w, status, code, "internal server error")
		return
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}
	if withField && status == http.StatusBadRequest {
		for _, f := range fieldOf {
			if errors.Is(err, f.err) {
				resp.Field = f.field
				break
			}
		}
	}
	respondJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}
