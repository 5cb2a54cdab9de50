package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/campusledger/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// Error codes carried in the response envelope.
const (
	CodeValidation     = "VALIDATION_FAILED"
	CodeUnbalanced     = "UNBALANCED"
	CodeEmptyDetails   = "EMPTY_DETAILS"
	CodeInvalidLine    = "INVALID_LINE"
	CodeUnknownAccount = "UNKNOWN_ACCOUNT"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrValidation, http.StatusBadRequest, CodeValidation},
	{services.ErrUnbalanced, http.StatusUnprocessableEntity, CodeUnbalanced},
	{services.ErrEmptyDetails, http.StatusUnprocessableEntity, CodeEmptyDetails},
	{services.ErrInvalidLine, http.StatusUnprocessableEntity, CodeInvalidLine},
	{services.ErrUnknownAccount, http.StatusUnprocessableEntity, CodeUnknownAccount},
	{services.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{services.ErrConflict, http.StatusConflict, CodeConflict},
}

// writeServiceError maps a service error onto the envelope. Unrecognised
// errors are logged and reported without their detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		message := err.Error()
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			message = "Validation failed"
		}
		services.SendCodedErrorResponse(w, message, m.status, m.code, err)
		return
	}

	log.Printf("[HTTP] %s %s failed: %v", r.Method, r.URL.Path, err)
	services.SendCodedErrorResponse(w, "Internal server error", http.StatusInternalServerError, CodeInternal, nil)
}

// decodeJSON reads exactly one JSON object into dst. It writes the error
// response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendCodedErrorResponse(w, "Invalid request body", http.StatusBadRequest, CodeValidation, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendCodedErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, CodeValidation, nil)
		return false
	}
	return true
}

// queryID parses a positive integer query parameter.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		services.SendCodedErrorResponse(w, fmt.Sprintf("Query parameter %q must be a positive integer", name),
			http.StatusBadRequest, CodeValidation, nil)
		return 0, false
	}
	return id, true
}
