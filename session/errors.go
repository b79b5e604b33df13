package session

import (
	"emperror.dev/errors"

	"github.com/pterodactyl/hangar/credentials"
)

const (
	ErrNotAuthenticated     = errors.Sentinel("session: not authenticated")
	ErrAlreadyAuthenticated = errors.Sentinel("session: already authenticated")
	ErrNotRegistered        = errors.Sentinel("session: user is not registered")
	ErrWrongPassword        = errors.Sentinel("session: wrong password")
	ErrTooManyAttempts      = errors.Sentinel("session: too many failed login attempts")

	ErrAlreadyExists = errors.Sentinel("session: an entry with that name already exists")
	ErrInvalidName   = errors.Sentinel("session: name must be a single path element")
	ErrDenied        = errors.Sentinel("session: access to that name is denied")

	ErrCannotMoveBack  = errors.Sentinel("session: cannot move above the user root")
	ErrNoSuchDirectory = errors.Sentinel("session: no such directory")
	ErrNoSuchFile      = errors.Sentinel("session: no such file")
	ErrIsDirectory     = errors.Sentinel("session: target is a directory")
	ErrNotDirectory    = errors.Sentinel("session: current directory is not a directory")
)

// Errors returned by the credential store that callers of a Session may want
// to check for.
var (
	ErrDuplicateUser   = credentials.ErrDuplicateUser
	ErrWeakPassword    = credentials.ErrWeakPassword
	ErrInvalidUsername = credentials.ErrInvalidUsername
	ErrInvalidPassword = credentials.ErrInvalidPassword
)
