package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/gin-gonic/gin"
)

// StatusFor maps an engine error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goGate.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, goGate.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest
	case errors.Is(err, goGate.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, goGate.ErrRiskBlocked):
		return http.StatusForbidden
	case errors.Is(err, goGate.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, goGate.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, goGate.ErrAccountUnverified),
		errors.Is(err, goGate.ErrAccountExpired),
		errors.Is(err, goGate.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, goGate.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, goGate.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, goGate.ErrPasswordResetDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, goGate.ErrRepository), errors.Is(err, goGate.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *goGate.ValidationError
	if errors.As(err, &verr) {
		body = errorBody{Error: goGate.ErrValidation.Error(), Fields: verr.Fields}
	}
	var locked *goGate.LockedError
	if errors.As(err, &locked) {
		c.Header("Retry-After", strconv.Itoa(int(locked.Remaining.Round(time.Second)/time.Second)))
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed", "op", op, "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}
