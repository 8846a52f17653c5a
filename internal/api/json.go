package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
)

// writeJSON marshals a value to JSON, sets the Content-Type header,
// writes the status code, and sends the response.
func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	// Write the HTTP status code to the response. This must be done before writing the body.
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON-encoded value from an io.Reader and decodes it
// into the provided destination value 'v'.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)

	// Disallow unknown fields in the JSON. If the client sends a field
	// that doesn't exist in our struct, this will cause an error.
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxError):
			return badRequest("request body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			return badRequest("request body contains an invalid value for the %s field", unmarshalTypeError.Field)

		case errors.Is(err, io.EOF):
			return badRequest("request body must not be empty")

		default:
			return badRequest("%s", err.Error())
		}
	}

	return nil
}

// requestError is an error caused by the request itself. It is answered with 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, apitypes.ErrorResponse{Error: message})
}

// respondError maps err to a status code and writes it. Internal errors are logged and not exposed.
func (s *APIServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &reqErr):
		writeError(w, http.StatusBadRequest, reqErr.msg)
	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
