package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// auth-specific errors
	ErrorInvalidToken            = errors.New("invalid token")
	ErrorMissingAuthHeader       = errors.New("missing authorization header")
	ErrorInvalidAuthHeaderFormat = errors.New("invalid authorization header")
)
