package handler

import (
	"net/http"

	"github.com/quadmatch/quadmatch/internal/api/apierr"
)

// Re-export from apierr for convenience

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}
