package filesystem

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"emperror.dev/errors"
	"github.com/karrick/godirwalk"
	ignore "github.com/sabhiram/go-gitignore"
)

// Filesystem is a view of the storage tree that is jailed to a single root
// directory. Every path passed to it is resolved relative to that root and
// rejected if it would escape it.
type Filesystem struct {
	denylist *ignore.GitIgnore

	// The root directory path for this Filesystem instance.
	root string
}

// New creates a new Filesystem instance jailed to the given root directory. If
// the root already exists any symlinks in it are resolved up front so that
// later comparisons against resolved paths are consistent.
func New(root string, denylist []string) *Filesystem {
	root = filepath.Clean(root)
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	var dl *ignore.GitIgnore
	if len(denylist) > 0 {
		dl = ignore.CompileIgnoreLines(denylist...)
	}
	return &Filesystem{root: root, denylist: dl}
}

// Path returns the root path for the Filesystem instance.
func (fs *Filesystem) Path() string {
	return fs.root
}

// Readfile reads a file on the system and writes it into the provided writer.
func (fs *Filesystem) Readfile(p string, w io.Writer) error {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return err
	}
	if err := fs.IsIgnored(p); err != nil {
		return err
	}
	st, err := os.Stat(cleaned)
	if err != nil {
		return wrapPathError(err, cleaned)
	}
	if st.IsDir() {
		return errors.WithStack(&Error{code: ErrCodeIsDirectory, resolved: cleaned})
	}
	f, err := os.Open(cleaned)
	if err != nil {
		return wrapPathError(err, cleaned)
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return errors.WrapIf(err, "filesystem: readfile: failed to copy file contents")
}

// Appendfile writes the contents of the reader to the end of the file at the
// given path, creating the file if it does not already exist. The file is opened
// with O_APPEND so that concurrent writers never overwrite each others data. The
// first return value reports if the file was created by this call.
func (fs *Filesystem) Appendfile(p string, r io.Reader) (bool, error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return false, err
	}
	if err := fs.IsIgnored(p); err != nil {
		return false, err
	}

	created := false
	st, err := os.Stat(cleaned)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return false, errors.Wrap(err, "filesystem: appendfile: failed to stat file")
		}
		created = true
	} else if st.IsDir() {
		return false, errors.WithStack(&Error{code: ErrCodeIsDirectory, resolved: cleaned})
	}

	f, err := os.OpenFile(cleaned, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return false, wrapPathError(err, cleaned)
	}

	buf := make([]byte, 1024*4)
	if _, err := io.CopyBuffer(f, r, buf); err != nil {
		_ = f.Close()
		return created, errors.Wrap(err, "filesystem: appendfile: failed to write contents")
	}
	if err := f.Close(); err != nil {
		return created, errors.Wrap(err, "filesystem: appendfile: failed to close file")
	}
	return created, nil
}

// CreateDirectory creates a new directory (name) at a specified path (p). The
// parent directory must already exist, and an existing entry with the same name
// results in an ErrExist error.
func (fs *Filesystem) CreateDirectory(name string, p string) error {
	cleaned, err := fs.SafePath(path.Join(p, name))
	if err != nil {
		return err
	}
	if err := fs.IsIgnored(path.Join(p, name)); err != nil {
		return err
	}
	return wrapPathError(os.Mkdir(cleaned, 0o755), cleaned)
}

// ReadDir returns the directory entries directly within the given directory
// without performing any additional stat calls on them.
func (fs *Filesystem) ReadDir(p string) ([]os.DirEntry, error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(cleaned)
	if err != nil {
		return nil, wrapPathError(err, cleaned)
	}
	if !st.IsDir() {
		return nil, errors.WithStack(&Error{code: ErrCodeNotDirectory, resolved: cleaned})
	}
	entries, err := os.ReadDir(cleaned)
	if err != nil {
		return nil, wrapPathError(err, cleaned)
	}
	return entries, nil
}

// ListDirectory lists the contents of a given directory and returns stat
// information about each file and folder within it. Directories are listed
// first, and both groups are sorted alphabetically.
func (fs *Filesystem) ListDirectory(p string) ([]Stat, error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(cleaned)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed error

	// You must initialize the output of this directory as a non-nil value otherwise
	// callers iterating over it cannot tell an empty directory from a failure.
	out := make([]Stat, len(entries))

	// Stat and detect the mimetype of every entry in parallel. For directories this
	// also walks the directory to determine the size of its contents.
	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, e os.DirEntry) {
			defer wg.Done()
			st, err := fs.unsafeStat(filepath.Join(cleaned, e.Name()))
			if err != nil {
				// An entry removed between the directory read and the stat is not an
				// error worth failing the listing for.
				if !IsErrorCode(err, ErrNotExist) {
					mu.Lock()
					failed = err
					mu.Unlock()
				}
				return
			}
			out[idx] = *st
		}(i, entry)
	}

	wg.Wait()

	if failed != nil {
		return nil, failed
	}

	// Drop any entries that disappeared while we were working.
	res := out[:0]
	for _, st := range out {
		if st.FileInfo != nil {
			res = append(res, st)
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].IsDir() != res[j].IsDir() {
			return res[i].IsDir()
		}
		return res[i].Name() < res[j].Name()
	})

	return res, nil
}

// DirectorySize walks a directory and returns the total size of all regular
// files within it. Symlinks are never followed.
func (fs *Filesystem) DirectorySize(dir string) (int64, error) {
	cleaned, err := fs.SafePath(dir)
	if err != nil {
		return 0, err
	}

	var size int64
	err = godirwalk.Walk(cleaned, &godirwalk.Options{
		Unsorted: true,
		Callback: func(p string, e *godirwalk.Dirent) error {
			// If this is a symlink then resolve the final destination of it before trying to continue
			// on with the checks. If the link points outside of the root we skip it entirely.
			if e.IsSymlink() {
				if e.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !e.IsRegular() {
				return nil
			}
			st, err := os.Lstat(p)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			size += st.Size()
			return nil
		},
	})

	return size, errors.WrapIf(err, "filesystem: directorysize: failed to walk directory")
}

// Provision creates the root directory for this Filesystem if it does not exist
// yet.
func (fs *Filesystem) Provision() error {
	if err := os.MkdirAll(fs.root, 0o755); err != nil {
		return errors.Wrap(err, "filesystem: failed to create root directory")
	}
	if r, err := filepath.EvalSymlinks(fs.root); err == nil {
		fs.root = r
	}
	return nil
}
