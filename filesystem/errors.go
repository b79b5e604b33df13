package filesystem

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/apex/log"
)

type ErrorCode string

const (
	ErrCodeIsDirectory    ErrorCode = "E_ISDIR"
	ErrCodeNotDirectory   ErrorCode = "E_NOTDIR"
	ErrCodePathResolution ErrorCode = "E_BADPATH"
	ErrCodeDenylistFile   ErrorCode = "E_DENYLIST"
	ErrCodeUnknownError   ErrorCode = "E_UNKNOWN"
	ErrNotExist           ErrorCode = "E_NOTEXIST"
	ErrExist              ErrorCode = "E_EXIST"
)

type Error struct {
	code ErrorCode
	// Contains the underlying error leading to this. This value may or may not be
	// present, it is entirely dependent on how this error was triggered.
	err error
	// This contains the value of the final destination that triggered this specific
	// error event.
	resolved string
	// This value is generally only present on errors stemming from a path resolution
	// error. For everything else you should be setting and reading the resolved path
	// value which will be far more useful.
	path string
}

// newFilesystemError returns a new error instance with a stack trace attached.
func newFilesystemError(code ErrorCode, err error) error {
	if err != nil {
		return errors.WithStackDepth(&Error{code: code, err: err}, 1)
	}
	return errors.WithStackDepth(&Error{code: code}, 1)
}

// Code returns the ErrorCode for this specific error instance.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Error returns a human-readable error string to identify the Error by.
func (e *Error) Error() string {
	switch e.code {
	case ErrCodeIsDirectory:
		return fmt.Sprintf("filesystem: cannot perform action: [%s] is a directory", e.resolved)
	case ErrCodeNotDirectory:
		return fmt.Sprintf("filesystem: cannot perform action: [%s] is not a directory", e.resolved)
	case ErrCodeDenylistFile:
		r := e.resolved
		if r == "" {
			r = "<empty>"
		}
		return fmt.Sprintf("filesystem: file access prohibited: [%s] is on the denylist", r)
	case ErrCodePathResolution:
		r := e.resolved
		if r == "" {
			r = "<empty>"
		}
		return fmt.Sprintf("filesystem: path [%s] resolves to a location outside the user root: %s", e.path, r)
	case ErrNotExist:
		return "filesystem: does not exist"
	case ErrExist:
		return "filesystem: already exists"
	case ErrCodeUnknownError:
		fallthrough
	default:
		return fmt.Sprintf("filesystem: an error occurred: %s", e.Unwrap())
	}
}

// Unwrap returns the underlying cause of this filesystem error. In some cases
// there may not be a cause present, in which case nil will be returned.
func (e *Error) Unwrap() error {
	return e.err
}

// Generates an error logger instance with some basic information.
func (fs *Filesystem) error(err error) *log.Entry {
	return log.WithField("subsystem", "filesystem").WithField("root", fs.root).WithField("error", err)
}

// NewBadPathResolution returns a new BadPathResolution error.
func NewBadPathResolution(path string, resolved string) error {
	return errors.WithStackDepth(&Error{code: ErrCodePathResolution, path: path, resolved: resolved}, 1)
}

// wrapPathError converts the common errors returned by the os package for a
// given path into a filesystem Error so that callers only ever need to check
// for an error code.
func wrapPathError(err error, resolved string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return errors.WithStackDepth(&Error{code: ErrNotExist, err: err, resolved: resolved}, 1)
	case errors.Is(err, os.ErrExist):
		return errors.WithStackDepth(&Error{code: ErrExist, err: err, resolved: resolved}, 1)
	}
	return newFilesystemError(ErrCodeUnknownError, err)
}

// IsErrorCode checks if "err" is a filesystem Error type. If so, it will then
// drop in and check that the error code is the same as the provided ErrorCode
// passed in "code".
func IsErrorCode(err error, code ErrorCode) bool {
	var fserr *Error
	if errors.As(err, &fserr) {
		return fserr.code == code
	}
	return false
}

// IsPathError checks if the given error is one of the path related filesystem
// errors a client can trigger by sending bad input, as opposed to an unexpected
// failure of the underlying disk.
func IsPathError(err error) bool {
	var fserr *Error
	if errors.As(err, &fserr) {
		return fserr.code != ErrCodeUnknownError
	}
	return false
}
