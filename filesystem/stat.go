package filesystem

import (
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

type Stat struct {
	os.FileInfo
	Mimetype string
	// Usage is the number of bytes used by this entry. For files this is the
	// same as Size(), for directories it is the total size of their contents.
	Usage int64
}

// ModTime returns the last modification time of the entry in the local
// timezone of the host.
func (s *Stat) ModTime() time.Time {
	return s.FileInfo.ModTime().Local()
}

// Stat stats a file or folder and returns the base stat object from go along
// with the MIME data and the size of the entry.
func (fs *Filesystem) Stat(p string) (*Stat, error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return nil, err
	}
	return fs.unsafeStat(cleaned)
}

func (fs *Filesystem) unsafeStat(p string) (*Stat, error) {
	s, err := os.Lstat(p)
	if err != nil {
		return nil, wrapPathError(err, p)
	}

	// Only follow a symlink when its destination is inside of the root, otherwise
	// report on the link itself so nothing about the outside location leaks.
	if s.Mode()&os.ModeSymlink != 0 {
		if resolved, err := fs.SafePath(p); err == nil {
			if t, err := os.Stat(resolved); err == nil {
				s = t
				p = resolved
			}
		}
		if s.Mode()&os.ModeSymlink != 0 {
			return &Stat{FileInfo: s, Mimetype: "inode/symlink", Usage: s.Size()}, nil
		}
	}

	st := &Stat{FileInfo: s, Mimetype: "inode/directory", Usage: s.Size()}
	if s.IsDir() {
		if size, err := fs.DirectorySize(p); err == nil {
			st.Usage = size
		} else {
			fs.error(err).WithField("path", p).Warn("failed to calculate directory size")
		}
		return st, nil
	}

	// Don't try to detect the type on anything that isn't a regular file, a named
	// pipe would block forever.
	if !s.Mode().IsRegular() {
		st.Mimetype = "application/octet-stream"
		return st, nil
	}

	m, err := mimetype.DetectFile(p)
	if err != nil {
		return nil, wrapPathError(err, p)
	}
	st.Mimetype = m.String()

	return st, nil
}
