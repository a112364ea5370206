package handler

import (
	"errors"
	"net/http"

	t "github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

const internalErrorMessage = "the server encountered a problem and could not process your request"

// errorResponse writes {"error": message}; message is a string or a field map.
func errorResponse(w http.ResponseWriter, status int, message any) {
	if err := writeJSON(w, status, envelope{"error": message}, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// failedValidationResponse answers 422: the body parsed but its values were
// rejected, so resending it unchanged fails the same way.
func failedValidationResponse(w http.ResponseWriter, fields map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, fields)
}

// badRequestResponse answers 400 for bodies and path values that do not parse.
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

// serviceErrorResponse maps a service error to its status. Field errors travel
// inside the validator and come back as a 422 map; internal causes never reach
// the client, and a lost accept race reads the same for every driver.
func serviceErrorResponse(w http.ResponseWriter, err error) {
	var v *validator.Validator
	if errors.As(err, &v) {
		failedValidationResponse(w, v.Errors)
		return
	}

	code := GetCode(err)
	switch {
	case code == http.StatusInternalServerError:
		errorResponse(w, code, internalErrorMessage)
	case errors.Is(err, t.ErrConflict):
		errorResponse(w, code, "ride no longer available")
	default:
		errorResponse(w, code, err.Error())
	}
}
