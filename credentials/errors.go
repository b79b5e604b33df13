package credentials

import "emperror.dev/errors"

var (
	ErrDuplicateUser   = errors.Sentinel("credentials: username is already registered")
	ErrWeakPassword    = errors.Sentinel("credentials: password is shorter than the minimum length")
	ErrInvalidUsername = errors.Sentinel("credentials: username contains characters that cannot be stored")
	ErrInvalidPassword = errors.Sentinel("credentials: password contains characters that cannot be stored")
)
