package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/quantarena/arena/pkg/errors"
)

// statusFor maps individual pkg/errors codes to the HTTP status a REST
// client should see: validation codes to 400, not-found codes to 404 and
// wrong-state codes to 409. Any code not listed maps to 500.
func statusFor(err error) int {
	code := errors.GetCode(err)

	switch {
	case code == errors.ErrCodeInvalidParameter || code == errors.ErrCodeInvalidConfiguration ||
		code == errors.ErrCodeInvalidOrder || code == errors.ErrCodeInsufficientData ||
		code == errors.ErrCodeInvalidType || code == errors.ErrCodeInvalidPeriod ||
		code == errors.ErrCodeMissingParameter || code == errors.ErrCodeInvalidDate ||
		code == errors.ErrCodeRequestTooLarge:
		return http.StatusBadRequest
	case code == errors.ErrCodeDataNotFound || code == errors.ErrCodeNoDataFound ||
		code == errors.ErrCodeSymbolNotFound || code == errors.ErrCodeSimulationNotFound ||
		code == errors.ErrCodeAgentNotFound || code == errors.ErrCodeSelectorNotFound ||
		code == errors.ErrCodeJobNotFound:
		return http.StatusNotFound
	case code == errors.ErrCodeJobNotCancellable || code == errors.ErrCodeSimulationAlreadyInit ||
		code == errors.ErrCodeJobAlreadyTerminal:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// parseID extracts and parses the {id} path variable shared by every
// single-resource route, writing a 400 response on malformed input.
func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id: "+raw)
		return uuid.Nil, false
	}

	return id, true
}
