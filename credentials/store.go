package credentials

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/asaskevich/govalidator"

	"github.com/pterodactyl/hangar/system"
)

const (
	RegisteredTable = "registered_users.csv"
	LoggedInTable   = "logged_in_users.csv"

	// DefaultMinPasswordLength is the shortest password accepted when no other
	// value has been configured on the Store.
	DefaultMinPasswordLength = 8
)

const header = "username,password\n"

// Provisioner creates any resources a user needs once they have been
// registered, such as their storage directory.
type Provisioner interface {
	Provision(username string) error
}

// ProvisionerFunc allows a plain function to be used as a Provisioner.
type ProvisionerFunc func(username string) error

func (f ProvisionerFunc) Provision(username string) error {
	return f(username)
}

type Option func(s *Store)

// WithMinPasswordLength sets the shortest password that Register accepts.
func WithMinPasswordLength(n int) Option {
	return func(s *Store) {
		s.minPasswordLength = n
	}
}

// WithProvisioner sets the Provisioner that is called for every newly
// registered user before their record is written.
func WithProvisioner(p Provisioner) Option {
	return func(s *Store) {
		s.provisioner = p
	}
}

// Store is the durable record of registered users and the users that are
// currently logged in. Both tables live on the disk as plain comma separated
// files and are read again on every call, nothing is cached in memory. Every
// operation on a Store is serialized so that a read-modify-write of a table is
// never interleaved with another one.
type Store struct {
	dir               string
	minPasswordLength int
	provisioner       Provisioner
	locker            *system.Locker
}

type record struct {
	Username string
	Password string
}

// New returns a Store that keeps its tables in the given directory. The
// directory and tables are created on first use.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:               dir,
		minPasswordLength: DefaultMinPasswordLength,
		locker:            system.NewLocker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the directory containing the tables of this Store.
func (s *Store) Path() string {
	return s.dir
}

// Lookup returns the password for a registered user. The second return value
// is false if no user with that name exists.
func (s *Store) Lookup(ctx context.Context, username string) (password string, ok bool, err error) {
	err = s.withLock(ctx, func() error {
		records, err := s.read(RegisteredTable)
		if err != nil {
			return err
		}
		if r, found := find(records, username); found {
			password, ok = r.Password, true
		}
		return nil
	})
	return password, ok, err
}

// IsRegistered checks if a user with the given name has been registered.
func (s *Store) IsRegistered(ctx context.Context, username string) (bool, error) {
	_, ok, err := s.Lookup(ctx, username)
	return ok, err
}

// Register adds a new user to the registered users table. The provisioner for
// the Store is called before the record is written, so a failure to provision
// leaves no trace of the user in the table.
func (s *Store) Register(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		records, err := s.read(RegisteredTable)
		if err != nil {
			return err
		}
		if _, found := find(records, username); found {
			return errors.WithStack(ErrDuplicateUser)
		}
		if utf8.RuneCountInString(password) < s.minPasswordLength {
			return errors.WithStack(ErrWeakPassword)
		}
		if err := ValidatePassword(password); err != nil {
			return err
		}
		if s.provisioner != nil {
			if err := s.provisioner.Provision(username); err != nil {
				return errors.WrapIf(err, "credentials: failed to provision user")
			}
		}
		if err := s.append(RegisteredTable, record{Username: username, Password: password}); err != nil {
			return err
		}
		log.WithField("subsystem", "credentials").WithField("username", username).Debug("registered new user")
		return nil
	})
}

// MarkLoggedIn records that a user is logged in. If the user is already present
// in the table no additional entry is written and false is returned, so exactly
// one caller is told that it added the entry.
func (s *Store) MarkLoggedIn(ctx context.Context, username, password string) (bool, error) {
	var added bool
	err := s.withLock(ctx, func() error {
		records, err := s.read(LoggedInTable)
		if err != nil {
			return err
		}
		if _, found := find(records, username); found {
			return nil
		}
		if err := s.append(LoggedInTable, record{Username: username, Password: password}); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

// IsLoggedIn checks if the given user is present in the logged in table.
func (s *Store) IsLoggedIn(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := s.withLock(ctx, func() error {
		records, err := s.read(LoggedInTable)
		if err != nil {
			return err
		}
		_, ok = find(records, username)
		return nil
	})
	return ok, err
}

// ClearLoggedIn removes every entry for the given user from the logged in
// table. All other entries are kept as they are. The table is replaced in a
// single rename, so a failure part way through never leaves a truncated table
// behind.
func (s *Store) ClearLoggedIn(ctx context.Context, username string) error {
	return s.withLock(ctx, func() error {
		records, err := s.read(LoggedInTable)
		if err != nil {
			return err
		}
		kept := make([]record, 0, len(records))
		for _, r := range records {
			if r.Username != username {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(records) {
			return nil
		}
		return s.rewrite(LoggedInTable, kept)
	})
}

// ResetLoggedIn truncates the logged in table back to only its header. This is
// used when the process boots since no connection can be active at that point.
func (s *Store) ResetLoggedIn(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		return s.rewrite(LoggedInTable, nil)
	})
}

// Users returns the names of all registered users in the order they registered.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	return s.usernames(ctx, RegisteredTable)
}

// LoggedIn returns the names of all users currently in the logged in table.
func (s *Store) LoggedIn(ctx context.Context) ([]string, error) {
	return s.usernames(ctx, LoggedInTable)
}

func (s *Store) usernames(ctx context.Context, table string) ([]string, error) {
	var out []string
	err := s.withLock(ctx, func() error {
		records, err := s.read(table)
		if err != nil {
			return err
		}
		out = make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.Username)
		}
		return nil
	})
	return out, err
}

// ValidateUsername checks that a username can be stored in a table and used as
// the name of a single directory.
func ValidateUsername(username string) error {
	if username == "" || username == "." || username == ".." {
		return errors.WithStack(ErrInvalidUsername)
	}
	if !govalidator.IsPrintableASCII(username) || strings.ContainsAny(username, ",/\\ ") {
		return errors.WithStack(ErrInvalidUsername)
	}
	return nil
}

// ValidatePassword checks that a password can be stored in a table without
// breaking the format of the row.
func ValidatePassword(password string) error {
	if !govalidator.IsPrintableASCII(password) || strings.Contains(password, ",") {
		return errors.WithStack(ErrInvalidPassword)
	}
	return nil
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if err := s.locker.TryAcquire(ctx); err != nil {
		return errors.WrapIf(err, "credentials: failed to acquire store lock")
	}
	defer s.locker.Release()
	if err := s.ensureTables(); err != nil {
		return err
	}
	return fn()
}

// ensureTables creates the access directory and both tables with their header
// row if they do not exist yet.
func (s *Store) ensureTables() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrap(err, "credentials: failed to create access directory")
	}
	for _, t := range []string{RegisteredTable, LoggedInTable} {
		f, err := os.OpenFile(filepath.Join(s.dir, t), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return errors.Wrap(err, "credentials: failed to create table")
		}
		if _, err := f.WriteString(header); err != nil {
			_ = f.Close()
			return errors.Wrap(err, "credentials: failed to write table header")
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return errors.WithStack(err)
		}
		if err := f.Close(); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// read parses every row of a table. The header row, blank lines and rows that
// are missing a separator are skipped.
func (s *Store) read(table string) ([]record, error) {
	f, err := os.Open(filepath.Join(s.dir, table))
	if err != nil {
		return nil, errors.Wrap(err, "credentials: failed to open table")
	}
	defer f.Close()

	var records []record
	first := true
	err = system.ScanReader(f, func(line []byte) bool {
		if first {
			first = false
			if string(line)+"\n" == header {
				return true
			}
		}
		if len(bytes.TrimSpace(line)) == 0 {
			return true
		}
		u, p, ok := strings.Cut(string(line), ",")
		if !ok {
			log.WithField("subsystem", "credentials").WithField("table", table).Warn("skipping malformed row in table")
			return true
		}
		records = append(records, record{Username: u, Password: p})
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "credentials: failed to read table")
	}
	return records, nil
}

// append writes a single row to the end of a table and flushes it to the disk
// before returning.
func (s *Store) append(table string, r record) error {
	f, err := os.OpenFile(filepath.Join(s.dir, table), os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Wrap(err, "credentials: failed to open table for writing")
	}
	if _, err := f.WriteString(r.Username + "," + r.Password + "\n"); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "credentials: failed to append row")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "credentials: failed to sync table")
	}
	return errors.WithStack(f.Close())
}

// rewrite replaces the contents of a table with the given records by writing
// them to a temporary file in the same directory and renaming it over the table.
func (s *Store) rewrite(table string, records []record) error {
	tmp, err := os.CreateTemp(s.dir, "."+table+".*")
	if err != nil {
		return errors.Wrap(err, "credentials: failed to create temporary table")
	}
	defer os.Remove(tmp.Name())

	var b strings.Builder
	b.WriteString(header)
	for _, r := range records {
		b.WriteString(r.Username + "," + r.Password + "\n")
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "credentials: failed to write temporary table")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "credentials: failed to sync temporary table")
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, table)); err != nil {
		return errors.Wrap(err, "credentials: failed to replace table")
	}
	return nil
}

func find(records []record, username string) (record, bool) {
	for _, r := range records {
		if r.Username == username {
			return r, true
		}
	}
	return record{}, false
}
