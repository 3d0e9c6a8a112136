package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/storage"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeMatchNotFound        = "MATCH_NOT_FOUND"
	CodeEmailInUse           = "EMAIL_IN_USE"
	CodePlayerInAnotherMatch = "PLAYER_IN_ANOTHER_MATCH"
	CodeAlreadyJoined        = "ALREADY_JOINED"
	CodeMatchNotOpen         = "MATCH_NOT_OPEN"
	CodeMatchFull            = "MATCH_FULL"
	CodeNotInMatch           = "NOT_IN_MATCH"
	CodeMatchFinished        = "MATCH_FINISHED"
	CodeMatchEmpty           = "MATCH_EMPTY"
	CodeConflict             = "CONFLICT"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Lookup failures
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}

	// Uniqueness conflicts
	case errors.Is(err, model.ErrEmailInUse):
		return &httpError{http.StatusConflict, APIError{CodeEmailInUse, "Email address is already in use"}}

	// Membership rule violations
	case errors.Is(err, model.ErrPlayerInAnotherMatch):
		return &httpError{http.StatusConflict, APIError{CodePlayerInAnotherMatch, "Player is already in another match"}}
	case errors.Is(err, model.ErrPlayerAlreadyJoined):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyJoined, "Player is already in this match"}}
	case errors.Is(err, model.ErrMatchNotOpen):
		return &httpError{http.StatusConflict, APIError{CodeMatchNotOpen, "Match is not open"}}
	case errors.Is(err, model.ErrMatchFull):
		return &httpError{http.StatusConflict, APIError{CodeMatchFull, "Match is full"}}
	case errors.Is(err, model.ErrPlayerNotInMatch):
		return &httpError{http.StatusConflict, APIError{CodeNotInMatch, "Player is not in this match"}}
	case errors.Is(err, model.ErrMatchFinished):
		return &httpError{http.StatusConflict, APIError{CodeMatchFinished, "Match is already finished"}}
	case errors.Is(err, model.ErrMatchEmpty):
		return &httpError{http.StatusConflict, APIError{CodeMatchEmpty, "Match has no players"}}

	// Validation failures
	case errors.Is(err, model.ErrNameRequired),
		errors.Is(err, model.ErrNicknameRequired),
		errors.Is(err, model.ErrEmailRequired),
		errors.Is(err, model.ErrInvalidStatus):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	// Lost optimistic transactions surface as retryable conflicts
	case errors.Is(err, storage.ErrTxnConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Concurrent modification, retry the request"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
