// Package httpx holds the JSON response helpers shared by every handler.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/models"
	"github.com/goccy/go-json"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// DecodeJSON reads a bounded JSON body into dst. Failures are reported as
// models.ErrInvalidInput.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &InputError{Message: "request body is required"}
		}
		return &InputError{Message: "invalid request body", Detail: err.Error()}
	}
	return nil
}

// InputError is a malformed request that never reached validation.
type InputError struct {
	Message string
	Detail  string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return models.ErrInvalidInput }

// StatusFor maps an error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidHandle):
		return http.StatusBadRequest, models.CodeInvalidHandle
	case errors.Is(err, models.ErrInvalidTopic):
		return http.StatusBadRequest, models.CodeInvalidTopic
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, models.CodeInvalidInput
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, models.CodeHandleNotFound
	case errors.Is(err, models.ErrProblemNotFound):
		return http.StatusNotFound, models.CodeProblemNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, models.CodeUnauthorized
	case errors.Is(err, models.ErrRatingSourceTimeout):
		return http.StatusGatewayTimeout, models.CodeCFAPITimeout
	case errors.Is(err, models.ErrRatingSource):
		return http.StatusBadGateway, models.CodeCFAPIError
	case errors.Is(err, models.ErrConcurrentMutation):
		return http.StatusInternalServerError, models.CodeInternalError
	case errors.Is(err, models.ErrStore):
		return http.StatusInternalServerError, models.CodeDatabaseError
	default:
		return http.StatusInternalServerError, models.CodeInternalError
	}
}

// WriteError writes the JSON error body for err. Client errors carry their
// message; server errors are logged and reported generically.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	resp := models.NewErrorResponse(code, publicMessage(status, code, err))

	var in *InputError
	if errors.As(err, &in) {
		resp.Detail = in.Detail
	}

	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("code", code).Str("path", r.URL.Path).Msg("request failed")
	}
	WriteJSON(w, status, resp)
}

func publicMessage(status int, code string, err error) string {
	if status < http.StatusInternalServerError {
		var in *InputError
		if errors.As(err, &in) {
			return in.Message
		}
		return err.Error()
	}
	switch code {
	case models.CodeCFAPITimeout:
		return "Codeforces API timed out. Please try again later."
	case models.CodeCFAPIError:
		return "Codeforces API is unavailable. Please try again later."
	case models.CodeDatabaseError:
		return "A database error occurred."
	default:
		return "An unexpected error occurred."
	}
}
