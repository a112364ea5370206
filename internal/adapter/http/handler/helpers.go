package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	t "github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.New("failed to encode json")
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Use http.MaxBytesReader() to limit the size of the request body to 1MB.
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		// no distinct error type for unknown fields yet, see golang/go#29035
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// readOptionalJSON is readJSON for endpoints whose body may be omitted.
func readOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return readJSON(w, r, dst)
}

func GetCode(err error) int {
	switch {
	case IsOneOf(err, t.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case IsOneOf(err, t.ErrNotFoundOrWrongState, t.ErrNoActiveRide, t.ErrUserNotFound):
		return http.StatusNotFound
	case IsOneOf(err, t.ErrInvalidOTP, t.ErrTooManyOTPAttempts):
		return http.StatusBadRequest
	case IsOneOf(err, t.ErrConflict, t.ErrAlreadyRated, t.ErrDriverOffline):
		return http.StatusConflict
	case IsOneOf(err, t.ErrUnauthorized, t.ErrNotDriver):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// identity returns the caller set by the auth middleware.
func identity(r *http.Request) models.Identity {
	id, _ := models.IdentityFromContext(r.Context())
	return id
}

func rideIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid ride uuid format")
	}
	return id, nil
}

// readInt returns the query parameter as an int or def when it is absent.
func readInt(r *http.Request, key string, def int, v *validator.Validator) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return def
	}
	return i
}

// failed logs err at a level that fits its status and writes the response.
func failed(ctx context.Context, l logger.Logger, w http.ResponseWriter, msg string, err error) {
	if GetCode(err) == http.StatusInternalServerError {
		l.Error(wrap.ErrorCtx(ctx, err), msg, err)
	} else {
		l.Warn(ctx, msg, "error", err.Error())
	}
	serviceErrorResponse(w, err)
}
