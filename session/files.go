package session

import (
	"bytes"
	"context"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"emperror.dev/errors"

	"github.com/pterodactyl/hangar/filesystem"
	"github.com/pterodactyl/hangar/internal/models"
)

type WriteResult int

const (
	WriteCreated WriteResult = iota
	WriteAppended
)

// Page is a single slice of a file returned by ReadFile. Start and End are
// character offsets into the file, or byte offsets for content that is not
// valid UTF-8. End is exclusive.
type Page struct {
	Data  string
	Start int
	End   int
}

// List returns the entries directly within the current directory.
func (s *Session) List(_ context.Context) ([]filesystem.Stat, error) {
	if err := s.requireAuthenticated(); err != nil {
		return nil, err
	}
	out, err := s.fs.ListDirectory(s.cwd)
	if err != nil {
		if filesystem.IsErrorCode(err, filesystem.ErrCodeNotDirectory) {
			return nil, errors.WithStack(ErrNotDirectory)
		}
		return nil, err
	}
	return out, nil
}

// ChangeFolder moves the current directory into a direct child directory, or up
// one level when ".." is given. The new current directory is returned relative
// to the root of the user.
func (s *Session) ChangeFolder(_ context.Context, name string) (string, error) {
	if err := s.requireAuthenticated(); err != nil {
		return "", err
	}

	if name == ".." {
		if s.cwd == "/" {
			return "", errors.WithStack(ErrCannotMoveBack)
		}
		parent := path.Dir(s.cwd)
		if _, err := s.fs.SafePath(parent); err != nil {
			return "", err
		}
		s.cwd = parent
		return s.cwd, nil
	}

	if err := validateName(name); err != nil {
		return "", errors.WithStack(ErrNoSuchDirectory)
	}
	target := path.Join(s.cwd, name)
	if err := s.checkDenied(target); err != nil {
		return "", err
	}
	found, err := s.child(name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.WithStack(ErrNoSuchDirectory)
	}
	st, err := s.fs.Stat(target)
	if err != nil {
		// A symlink pointing outside of the root is treated as if it does not
		// exist at all.
		if filesystem.IsPathError(err) {
			return "", errors.WithStack(ErrNoSuchDirectory)
		}
		return "", err
	}
	if !st.IsDir() {
		return "", errors.WithStack(ErrNoSuchDirectory)
	}
	resolved, err := s.fs.SafePath(target)
	if err != nil {
		return "", err
	}
	// Store where a symlinked folder really lives so that ".." leads back to
	// its actual parent.
	s.cwd = s.fs.Relative(resolved)
	return s.cwd, nil
}

// CreateFolder creates a new directory within the current directory.
func (s *Session) CreateFolder(_ context.Context, name string) error {
	if err := s.requireAuthenticated(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.checkDenied(path.Join(s.cwd, name)); err != nil {
		return err
	}
	found, err := s.child(name)
	if err != nil {
		return err
	}
	if found {
		return errors.WithStack(ErrAlreadyExists)
	}
	if err := s.fs.CreateDirectory(name, s.cwd); err != nil {
		if filesystem.IsErrorCode(err, filesystem.ErrExist) {
			return errors.WithStack(ErrAlreadyExists)
		}
		return err
	}
	s.saveActivity(ActivityCreateDirectory, models.ActivityMeta{"directory": path.Join(s.cwd, name)})
	return nil
}

// WriteFile appends data to a file within the current directory, creating the
// file first if it does not exist.
func (s *Session) WriteFile(_ context.Context, name string, data string) (WriteResult, error) {
	if err := s.requireAuthenticated(); err != nil {
		return 0, err
	}
	if err := validateName(name); err != nil {
		return 0, err
	}
	p := path.Join(s.cwd, name)
	if err := s.checkDenied(p); err != nil {
		return 0, err
	}
	created, err := s.fs.Appendfile(p, strings.NewReader(data))
	if err != nil {
		if filesystem.IsErrorCode(err, filesystem.ErrCodeIsDirectory) {
			return 0, errors.WithStack(ErrIsDirectory)
		}
		return 0, err
	}
	meta := models.ActivityMeta{"file": p, "bytes": len(data)}
	if created {
		s.saveActivity(ActivityFileCreate, meta)
		return WriteCreated, nil
	}
	s.saveActivity(ActivityFileWrite, meta)
	return WriteAppended, nil
}

// ReadFile returns the next page of a file within the current directory. Every
// call advances the cursor for that file by one page, wrapping back to the start
// once the last page has been returned.
func (s *Session) ReadFile(_ context.Context, name string) (Page, error) {
	if err := s.requireAuthenticated(); err != nil {
		return Page{}, err
	}
	if err := validateName(name); err != nil {
		return Page{}, err
	}
	p := path.Join(s.cwd, name)
	if err := s.checkDenied(p); err != nil {
		return Page{}, err
	}
	found, err := s.child(name)
	if err != nil {
		return Page{}, err
	}
	if !found {
		return Page{}, errors.WithStack(ErrNoSuchFile)
	}
	resolved, err := s.fs.SafePath(p)
	if err != nil {
		if filesystem.IsPathError(err) {
			return Page{}, errors.WithStack(ErrNoSuchFile)
		}
		return Page{}, err
	}

	var buf bytes.Buffer
	if err := s.fs.Readfile(p, &buf); err != nil {
		if filesystem.IsErrorCode(err, filesystem.ErrCodeIsDirectory) || filesystem.IsErrorCode(err, filesystem.ErrNotExist) {
			return Page{}, errors.WithStack(ErrNoSuchFile)
		}
		return Page{}, err
	}

	// Text is paged by characters. Anything that is not valid UTF-8 is paged by
	// bytes instead so that its content is returned unchanged.
	size := buf.Len()
	slice := func(start, end int) string { return string(buf.Bytes()[start:end]) }
	if utf8.Valid(buf.Bytes()) {
		content := []rune(buf.String())
		size = len(content)
		slice = func(start, end int) string { return string(content[start:end]) }
	}

	pages := (size + s.pageSize - 1) / s.pageSize
	if pages == 0 {
		pages = 1
	}
	// The file may have shrunk since the cursor was last advanced.
	idx := s.cursors[resolved] % pages
	start := idx * s.pageSize
	end := start + s.pageSize
	if end > size {
		end = size
	}
	s.cursors[resolved] = (idx + 1) % pages

	return Page{Data: slice(start, end), Start: start, End: end}, nil
}

// child checks if an entry with exactly the given name exists directly within
// the current directory.
func (s *Session) child(name string) (bool, error) {
	entries, err := s.fs.ReadDir(s.cwd)
	if err != nil {
		if filesystem.IsErrorCode(err, filesystem.ErrCodeNotDirectory) {
			return false, errors.WithStack(ErrNotDirectory)
		}
		return false, err
	}
	for _, e := range entries {
		if e.Name() == name {
			return true, nil
		}
	}
	return false, nil
}

// checkDenied returns ErrDenied if the path matches the denylist. A path that
// cannot be resolved is left for the operation itself to report.
func (s *Session) checkDenied(p string) error {
	if err := s.fs.IsIgnored(p); err != nil {
		if filesystem.IsErrorCode(err, filesystem.ErrCodeDenylistFile) {
			return errors.WithStack(ErrDenied)
		}
		if filesystem.IsErrorCode(err, filesystem.ErrCodePathResolution) {
			return nil
		}
		return err
	}
	return nil
}

// validateName checks that a name refers to a single entry within a directory.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, os.PathSeparator) {
		return errors.WithStack(ErrInvalidName)
	}
	return nil
}
