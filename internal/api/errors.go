package api

import (
	"fmt"
	"net/http"
)

// APIError describes a failed request. Only Detail() reaches the client.
type APIError struct {
	Code    string
	Status  int
	Message string
	Details string
}

// Error implements the error interface for APIError.
func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail())
}

// Detail is the text sent in the response body.
func (e APIError) Detail() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// WithDetails returns a copy of the error with additional details.
func (e APIError) WithDetails(details string) APIError {
	e.Details = details
	return e
}

var (
	// ErrInvalidJSON is returned when the request body is not a JSON object.
	ErrInvalidJSON = APIError{
		Code:    "INVALID_JSON",
		Status:  http.StatusUnprocessableEntity,
		Message: "Request body contains invalid JSON",
	}

	// ErrTextRequired is returned when the body has no string field "text".
	ErrTextRequired = APIError{
		Code:    "TEXT_REQUIRED",
		Status:  http.StatusUnprocessableEntity,
		Message: "Field 'text' is required and must be a string",
	}

	// ErrEmbeddingFailed wraps any failure while producing an embedding.
	ErrEmbeddingFailed = APIError{
		Code:    "EMBEDDING_FAILED",
		Status:  http.StatusInternalServerError,
		Message: "Embedding error",
	}

	// ErrNotFound is returned for unknown routes.
	ErrNotFound = APIError{
		Code:    "NOT_FOUND",
		Status:  http.StatusNotFound,
		Message: "Not Found",
	}

	// ErrInternal is returned when a handler panics.
	ErrInternal = APIError{
		Code:    "INTERNAL_ERROR",
		Status:  http.StatusInternalServerError,
		Message: "Internal Server Error",
	}

	// ErrMethodNotAllowed is returned for known routes with the wrong method.
	ErrMethodNotAllowed = APIError{
		Code:    "METHOD_NOT_ALLOWED",
		Status:  http.StatusMethodNotAllowed,
		Message: "Method Not Allowed",
	}
)

// writeError writes err as {"detail": ...} with its status code.
func writeError(w http.ResponseWriter, err APIError) {
	w.Header().Set("X-Error-Code", err.Code)
	writeJSON(w, err.Status, ErrorResponse{Detail: err.Detail()})
}
