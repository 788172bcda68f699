package route

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"planner/src-server/account"
	"planner/src-server/model"
	"planner/src-server/store"
	"planner/src-server/utils"
)

const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidEvent   = "invalid_event"
	ErrCodeInvalidDate    = "invalid_date"
	ErrCodeInvalidProfile = "invalid_profile"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeForbidden      = "forbidden"
	ErrCodeInternalError  = "internal_error"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the envelope of every JSON response: data on success,
// error otherwise.
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(APIResponse{Data: data}); err != nil {
		slog.Warn("can't write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(APIResponse{
		Error: &APIError{Code: code, Message: message},
	}); err != nil {
		slog.Warn("can't write response", "error", err)
	}
}

// writeDomainError maps store and account errors to a status code. Anything
// unknown is logged and reported as a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidEvent, err.Error())
	case errors.Is(err, store.ErrInvalidDate),
		errors.Is(err, store.ErrRangeTooLong),
		errors.Is(err, utils.ErrUnresolvedDate):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidDate, err.Error())
	case errors.Is(err, account.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidProfile, err.Error())
	case errors.Is(err, store.ErrEventNotFound),
		errors.Is(err, account.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, store.ErrEventExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, account.ErrForbidden):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "something went wrong")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return false
	}
	return true
}
