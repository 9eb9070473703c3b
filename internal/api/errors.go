package api

import (
	"errors"
	"net/http"

	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/providers"
	"infinite-experiment/fmsuplink/internal/services"
	"infinite-experiment/fmsuplink/internal/uplink"
)

// statusForError maps a service error to its HTTP status and client message
func statusForError(err error) (int, string) {
	var pe *providers.ProviderError
	if errors.As(err, &pe) {
		msg := constants.GetErrorMessage(pe.Code)
		switch pe.Code {
		case constants.ErrCodeNotFound:
			return http.StatusNotFound, msg
		case constants.ErrCodeInvalidPilotID:
			return http.StatusBadRequest, msg
		case constants.ErrCodeRateLimited:
			return http.StatusTooManyRequests, msg
		default:
			return http.StatusBadGateway, msg
		}
	}

	switch {
	case errors.Is(err, services.ErrNavlogEmpty):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrQueueUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, uplink.ErrInvalidSequence), errors.Is(err, uplink.ErrNotFound):
		return http.StatusUnprocessableEntity, err.Error()
	}

	var se *uplink.SynthesisError
	if errors.As(err, &se) {
		return http.StatusInternalServerError, constants.GetErrorMessage(se.Code)
	}
	return http.StatusInternalServerError, constants.StatusError
}
