package errors

import "net/http"

// HTTPStatus maps a service error to the status code the API answers with.
// Unknown errors are internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrValidation), Is(err, ErrInvalidPassword), Is(err, ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrForbidden), Is(err, ErrOwnMessage):
		return http.StatusForbidden
	case Is(err, ErrInvalidCredentials), Is(err, ErrMissingToken), Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case Is(err, ErrTxConflict), Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
