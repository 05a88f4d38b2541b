package types

import "net/http"

// NewBadRequestError creates a 400 Bad Request error with the specified message.
func NewBadRequestError(message string) *Error {
	return NewError(http.StatusBadRequest, message)
}

// NewNotFoundError creates a 404 Not Found error with the specified message.
func NewNotFoundError(message string) *Error {
	return NewError(http.StatusNotFound, message)
}

// NewInternalError creates a 500 Internal Server Error with the specified message.
func NewInternalError(message string) *Error {
	return NewError(http.StatusInternalServerError, message)
}
