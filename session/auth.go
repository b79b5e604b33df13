package session

import (
	"context"
	"path/filepath"

	"emperror.dev/errors"

	"github.com/pterodactyl/hangar/filesystem"
	"github.com/pterodactyl/hangar/internal/models"
)

type LoginResult int

const (
	// LoginNew is returned when the user was not logged in anywhere else.
	LoginNew LoginResult = iota
	// LoginElsewhere is returned when the user already had an active login on
	// another connection.
	LoginElsewhere
)

type QuitResult int

const (
	QuitLoggedOut QuitResult = iota
	// QuitForced is returned when the session was logged out but the logged in
	// record could not be cleared.
	QuitForced
)

// Register creates a new user. The session itself is not authenticated by this.
func (s *Session) Register(ctx context.Context, username, password string) error {
	if err := s.store.Register(ctx, username, password); err != nil {
		return err
	}
	s.saveActivityFor(username, ActivityRegister, nil)
	return nil
}

// Login authenticates the session as the given user and moves it to the root
// directory of that user.
func (s *Session) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if s.authenticated {
		return 0, errors.WithStack(ErrAlreadyAuthenticated)
	}
	if !s.throttle.Allowed(username) {
		return 0, errors.WithStack(ErrTooManyAttempts)
	}

	expected, ok, err := s.store.Lookup(ctx, username)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.WithStack(ErrNotRegistered)
	}
	if expected != password {
		if n := s.throttle.Fail(username); n > 0 {
			s.Log().WithField("attempts", n).WithField("target", username).Warn("failed login attempt")
		}
		return 0, errors.WithStack(ErrWrongPassword)
	}
	s.throttle.Reset(username)

	fs := filesystem.New(filepath.Join(s.data, username), s.denylist)
	if err := fs.Provision(); err != nil {
		return 0, err
	}

	added, err := s.store.MarkLoggedIn(ctx, username, password)
	if err != nil {
		return 0, err
	}
	res := LoginNew
	elsewhere := !added
	if elsewhere {
		res = LoginElsewhere
	}

	s.username = username
	s.authenticated = true
	s.owner = added
	s.fs = fs
	s.cwd = "/"
	s.cursors = make(map[string]int)

	s.saveActivity(ActivityLogin, models.ActivityMeta{"elsewhere": elsewhere})
	s.Log().Info("user logged in")

	return res, nil
}

// Quit logs the session out. Calling it on a session that is not logged in is
// not an error. Only the session that wrote the logged in entry removes it, a
// session that logged in while the user was already active elsewhere leaves the
// entry to its owner. If the entry cannot be cleared the session is still reset
// and QuitForced is returned.
func (s *Session) Quit(ctx context.Context) QuitResult {
	if !s.authenticated {
		s.reset()
		return QuitLoggedOut
	}

	res := QuitLoggedOut
	if !s.owner {
		s.Log().Debug("leaving logged in entry to the session that owns it")
	} else if err := s.store.ClearLoggedIn(ctx, s.username); err != nil {
		s.Log().WithField("error", err).Error("failed to clear logged in record for user")
		res = QuitForced
	}
	s.saveActivity(ActivityLogout, models.ActivityMeta{"forced": res == QuitForced})
	s.Log().Info("user logged out")
	s.reset()

	return res
}

func (s *Session) requireAuthenticated() error {
	if !s.authenticated || s.fs == nil {
		return errors.WithStack(ErrNotAuthenticated)
	}
	return nil
}
