package handlers

import (
	"errors"
	"net/http"

	"github.com/oatsaysai/voice-upi/internal/api/middleware"
	"github.com/oatsaysai/voice-upi/internal/models"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrContactNotFound),
		errors.Is(err, models.ErrRecipientRemoved):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateContact),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrParse),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidSelection),
		errors.Is(err, models.ErrInvalidHandle),
		errors.Is(err, models.ErrInvalidMobile),
		errors.Is(err, models.ErrHandleMismatch):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the user-facing text for err. Unknown errors are not echoed.
func messageFor(err error) string {
	for _, sentinel := range []error{
		models.ErrParse,
		models.ErrContactNotFound,
		models.ErrRecipientRemoved,
		models.ErrInsufficientBalance,
		models.ErrInvalidAmount,
		models.ErrDuplicateContact,
		models.ErrInvalidTransition,
		models.ErrInvalidSelection,
		models.ErrInvalidHandle,
		models.ErrInvalidMobile,
		models.ErrHandleMismatch,
		models.ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Internal server error"
}

func writeDomainError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, statusFor(err), messageFor(err))
}
