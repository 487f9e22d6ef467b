package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"it-inventory-api/internal/auth"
	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/logger"
)

// maxJSONBody bounds JSON request bodies
const maxJSONBody = 1 << 20

var statusByKind = map[lifecycle.Kind]int{
	lifecycle.KindInvalidTransition: http.StatusConflict,
	lifecycle.KindValidation:        http.StatusUnprocessableEntity,
	lifecycle.KindNotFound:          http.StatusNotFound,
	lifecycle.KindInactiveEmployee:  http.StatusUnprocessableEntity,
	lifecycle.KindConflict:          http.StatusConflict,
	lifecycle.KindForbidden:         http.StatusForbidden,
}

// StatusOf returns the HTTP status for a domain error kind
func StatusOf(kind lifecycle.Kind) int {
	if code, ok := statusByKind[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError renders err as {error, code}. Domain errors keep their message;
// anything else is logged and reported as an internal error.
func WriteError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	kind := lifecycle.KindOf(err)
	if kind == "" {
		logger.WithReqIDFromCtx(r.Context(), log).WithError(err).
			WithField("path", r.URL.Path).Error("request failed")
		auth.SendErrorResponse(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	auth.SendErrorResponse(w, lifecycle.MessageOf(err), string(kind), StatusOf(kind))
}

// BadRequest reports a malformed request
func BadRequest(w http.ResponseWriter, message string) {
	auth.SendErrorResponse(w, message, "BAD_REQUEST", http.StatusBadRequest)
}

// DecodeJSON decodes a bounded JSON body into dst, rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// IDParam parses a positive integer path parameter
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, lifecycle.Validation("%s must be a positive integer", name)
	}
	return id, nil
}
