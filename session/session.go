package session

import (
	"context"
	"path/filepath"

	"github.com/apex/log"

	"github.com/pterodactyl/hangar/credentials"
	"github.com/pterodactyl/hangar/filesystem"
)

// DefaultPageSize is the number of characters returned by a single ReadFile
// call when no other value is configured.
const DefaultPageSize = 100

// CredentialStore is the durable record of registered and logged in users that
// is shared between every Session.
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (string, bool, error)
	Register(ctx context.Context, username, password string) error
	MarkLoggedIn(ctx context.Context, username, password string) (bool, error)
	ClearLoggedIn(ctx context.Context, username string) error
}

// Config holds everything a Session needs that is shared by all of the
// sessions running in the process.
type Config struct {
	Store CredentialStore
	// DataDirectory is the root of the storage tree, every user has a directory
	// named after them directly below it.
	DataDirectory string
	// Denylist is a set of gitignore style patterns for names that cannot be
	// read, written or created.
	Denylist []string
	PageSize int
	Throttle *Throttle
	Activity ActivityRecorder
}

// Session is the state of a single client connection. It is not safe for
// concurrent use, every connection owns exactly one Session and drives it from
// a single goroutine.
type Session struct {
	id       string
	ip       string
	store    CredentialStore
	data     string
	denylist []string
	pageSize int
	throttle *Throttle
	activity ActivityRecorder

	username      string
	authenticated bool
	// owner is true when this session wrote the logged in entry of the user, and
	// is therefore the one responsible for removing it again.
	owner bool
	fs            *filesystem.Filesystem
	// cwd is the current directory relative to the root of the user, always
	// starting with a slash.
	cwd string
	// cursors tracks the next page to return for every file read during this
	// session, keyed by the resolved path of the file.
	cursors map[string]int
}

// New returns an unauthenticated Session for a connection.
func New(c Config, id string, ip string) *Session {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return &Session{
		id:       id,
		ip:       ip,
		store:    c.Store,
		data:     c.DataDirectory,
		denylist: c.Denylist,
		pageSize: c.PageSize,
		throttle: c.Throttle,
		activity: c.Activity,
		cwd:      "/",
		cursors:  make(map[string]int),
	}
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string {
	return s.id
}

// Username returns the name of the authenticated user, or an empty string.
func (s *Session) Username() string {
	return s.username
}

// Authenticated reports whether a user has logged in on this session.
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// PageSize returns the number of characters returned by each ReadFile call.
func (s *Session) PageSize() int {
	return s.pageSize
}

// Cwd returns the current directory relative to the root of the user.
func (s *Session) Cwd() string {
	return s.cwd
}

// Log returns a logger with the identifying fields of this session attached.
func (s *Session) Log() *log.Entry {
	e := log.WithField("subsystem", "session").WithField("session", s.id)
	if s.username != "" {
		e = e.WithField("username", s.username)
	}
	return e
}

// reset returns the session to the state it was created in.
func (s *Session) reset() {
	s.username = ""
	s.authenticated = false
	s.owner = false
	s.fs = nil
	s.cwd = "/"
	s.cursors = make(map[string]int)
}

// StorageProvisioner returns a credentials.Provisioner that creates the storage
// directory of every newly registered user below the data directory.
func StorageProvisioner(data string) credentials.Provisioner {
	return credentials.ProvisionerFunc(func(username string) error {
		return filesystem.New(filepath.Join(data, username), nil).Provision()
	})
}
