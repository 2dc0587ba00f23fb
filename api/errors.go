package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/rosca"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// preconditionCodes names the ledger rejections that depend on pool state.
var preconditionCodes = []struct {
	err  error
	code string
}{
	{rosca.ErrAlreadyContributed, "already_contributed"},
	{rosca.ErrNotPaymentPhase, "not_payment_phase"},
	{rosca.ErrNotNextInQueue, "not_next_in_queue"},
	{rosca.ErrNoPendingRequest, "no_pending_request"},
}

// retryAfter is the Retry-After value, in seconds, sent with retryable failures.
const retryAfter = "1"

// errorStatus maps an error to its HTTP status and stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, rosca.ErrNotOperator):
		return http.StatusForbidden, "not_operator"
	case errors.Is(err, rosca.ErrAmountTooLow):
		return http.StatusUnprocessableEntity, "amount_too_low"
	case rosca.IsPrecondition(err):
		for _, pc := range preconditionCodes {
			if errors.Is(err, pc.err) {
				return http.StatusConflict, pc.code
			}
		}
		return http.StatusConflict, "precondition_failed"
	case errors.Is(err, rosca.ErrTransferFailure):
		return http.StatusBadGateway, "transfer_failure"
	case rosca.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, rosca.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, rosca.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, rosca.ErrLockFailed):
		return http.StatusServiceUnavailable, "pool_busy"
	case errors.Is(err, rosca.ErrStoreNotReady):
		return http.StatusServiceUnavailable, "store_not_ready"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "api: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		msg = "internal error"
	}
	if rosca.IsRetryable(err) {
		w.Header().Set("Retry-After", retryAfter)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
