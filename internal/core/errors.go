package core

import "errors"

// Error taxonomy shared by every layer. Concrete errors wrap one of these so
// callers can classify them with errors.Is.
var (
	ErrAuth            = errors.New("auth error")
	ErrRemote          = errors.New("remote error")
	ErrValidation      = errors.New("validation error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)
