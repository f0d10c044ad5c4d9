// Package rest carries the JSON plumbing shared by the HTTP handlers:
// response encoding, request decoding with validation, and the mapping
// from the error taxonomy to status codes.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"go.uber.org/zap"
)

var validate = validator.New()

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code,omitempty"`
}

// Decode parses the JSON body into v and runs struct validation.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, "invalid json body")
	}
	if err := validate.Struct(v); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, "invalid request: %v", err)
	}
	return nil
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeInvalidArgument:   http.StatusBadRequest,
	apperr.CodeInvalidQuantity:   http.StatusBadRequest,
	apperr.CodeNotFound:          http.StatusNotFound,
	apperr.CodeRoundNotFound:     http.StatusNotFound,
	apperr.CodeOptionNotFound:    http.StatusNotFound,
	apperr.CodeForbidden:         http.StatusForbidden,
	apperr.CodeInsufficientStock: http.StatusConflict,
	apperr.CodeInvalidState:      http.StatusConflict,
	apperr.CodeWindowClosed:      http.StatusConflict,
	apperr.CodeOptionGone:        http.StatusConflict,
	apperr.CodeIllegalTransition: http.StatusConflict,
	apperr.CodeContention:        http.StatusServiceUnavailable,
}

// WriteError maps a taxonomy error to its status code and emits its
// display-safe message. Anything outside the taxonomy is a 500 with the
// detail kept in the logs.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := apperr.CodeOf(err)
	if status, ok := statusByCode[code]; ok {
		WriteJSON(w, status, errorBody{Error: errMessage(err), Code: code})
		return
	}
	log.Error("unhandled error", zap.Error(err))
	WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func errMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
