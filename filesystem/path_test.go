package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"emperror.dev/errors"
	. "github.com/franela/goblin"
)

func TestFilesystem_Path(t *testing.T) {
	g := Goblin(t)
	fs, rfs := NewFs()
	defer os.RemoveAll(rfs.root)

	g.Describe("Path", func() {
		g.It("returns the root path for the instance", func() {
			g.Assert(fs.Path()).Equal(filepath.Join(rfs.root, "/user"))
		})
	})
}

func TestFilesystem_SafePath(t *testing.T) {
	g := Goblin(t)
	fs, rfs := NewFs()
	defer os.RemoveAll(rfs.root)
	prefix := fs.Path()

	g.Describe("SafePath", func() {
		g.It("returns a cleaned path to a given file", func() {
			p, err := fs.SafePath("test.txt")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix + "/test.txt")

			p, err = fs.SafePath("/test.txt")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix + "/test.txt")

			p, err = fs.SafePath("./test.txt")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix + "/test.txt")

			p, err = fs.SafePath("/foo/../test.txt")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix + "/test.txt")

			p, err = fs.SafePath("/foo/bar")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix + "/foo/bar")
		})

		g.It("handles root directory access", func() {
			p, err := fs.SafePath("/")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix)

			p, err = fs.SafePath("")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix)
		})

		g.It("removes trailing slashes from paths", func() {
			p, err := fs.SafePath("/foo/bar/")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix + "/foo/bar")
		})

		g.It("handles deeply nested directories that do not exist", func() {
			p, err := fs.SafePath("/foo/bar/baz/quaz/../../ducks/testing.txt")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(prefix + "/foo/bar/ducks/testing.txt")
		})

		g.It("blocks access to files outside the root directory", func() {
			p, err := fs.SafePath("../foo/bar")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
			g.Assert(p).Equal("")

			p, err = fs.SafePath("/../foo/bar")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
			g.Assert(p).Equal("")

			p, err = fs.SafePath("./foo/../../../bar")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
			g.Assert(p).Equal("")

			p, err = fs.SafePath("..")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
			g.Assert(p).Equal("")
		})

		g.It("does not treat a sibling directory sharing the prefix as inside the root", func() {
			g.Assert(os.Mkdir(filepath.Join(rfs.root, "/user-other"), 0o755)).IsNil()
			defer os.RemoveAll(filepath.Join(rfs.root, "/user-other"))

			_, err := fs.SafePath("../user-other/file.txt")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
		})
	})
}

func TestFilesystem_Symlinks(t *testing.T) {
	g := Goblin(t)
	fs, rfs := NewFs()
	defer os.RemoveAll(rfs.root)

	g.Describe("SafePath with symlinks", func() {
		g.BeforeEach(func() {
			rfs.reset()
			g.Assert(os.WriteFile(filepath.Join(rfs.root, "malicious.txt"), []byte("external content"), 0o644)).IsNil()
			g.Assert(os.Mkdir(filepath.Join(rfs.root, "malicious_dir"), 0o755)).IsNil()
		})

		g.AfterEach(func() {
			_ = os.Remove(filepath.Join(rfs.root, "malicious.txt"))
			_ = os.RemoveAll(filepath.Join(rfs.root, "malicious_dir"))
		})

		g.It("cannot resolve a file symlink pointing outside the root", func() {
			err := os.Symlink(filepath.Join(rfs.root, "malicious.txt"), filepath.Join(rfs.root, "/user/symlinked.txt"))
			g.Assert(err).IsNil()

			_, err = fs.SafePath("symlinked.txt")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
		})

		g.It("cannot resolve a path through a directory symlink pointing outside the root", func() {
			err := os.Symlink(filepath.Join(rfs.root, "malicious_dir"), filepath.Join(rfs.root, "/user/external_dir"))
			g.Assert(err).IsNil()

			_, err = fs.SafePath("external_dir/foo.txt")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
		})

		g.It("resolves symlinks that stay inside the root", func() {
			g.Assert(rfs.CreateUserFileFromString("target.txt", "hello")).IsNil()
			err := os.Symlink(filepath.Join(fs.Path(), "target.txt"), filepath.Join(rfs.root, "/user/link.txt"))
			g.Assert(err).IsNil()

			p, err := fs.SafePath("link.txt")
			g.Assert(err).IsNil()
			g.Assert(p).Equal(filepath.Join(fs.Path(), "target.txt"))
		})
	})
}

func TestFilesystem_Relative(t *testing.T) {
	g := Goblin(t)
	fs, rfs := NewFs()
	defer os.RemoveAll(rfs.root)

	g.Describe("Relative", func() {
		g.It("returns a slash for the root itself", func() {
			g.Assert(fs.Relative(fs.Path())).Equal("/")
		})

		g.It("returns nested paths relative to the root", func() {
			g.Assert(fs.Relative(filepath.Join(fs.Path(), "a/b"))).Equal("/a/b")
		})
	})
}

func TestFilesystem_Errors(t *testing.T) {
	g := Goblin(t)

	g.Describe("NewBadPathResolution", func() {
		g.It("is a path resolution error", func() {
			err := NewBadPathResolution("foo", "bar")
			g.Assert(IsErrorCode(err, ErrCodePathResolution)).IsTrue()
			g.Assert(IsPathError(err)).IsTrue()
			g.Assert(err.Error()).Equal("filesystem: path [foo] resolves to a location outside the user root: bar")
		})

		g.It("handles an empty resolution", func() {
			err := NewBadPathResolution("foo", "")
			g.Assert(err.Error()).Equal("filesystem: path [foo] resolves to a location outside the user root: <empty>")
		})
	})

	g.Describe("IsErrorCode", func() {
		g.It("matches wrapped errors", func() {
			err := errors.Wrap(newFilesystemError(ErrExist, nil), "wrapped")
			g.Assert(IsErrorCode(err, ErrExist)).IsTrue()
			g.Assert(IsErrorCode(err, ErrNotExist)).IsFalse()
		})

		g.It("returns false for unrelated errors", func() {
			g.Assert(IsErrorCode(errors.New("test"), ErrExist)).IsFalse()
			g.Assert(IsPathError(errors.New("test"))).IsFalse()
		})
	})

	g.Describe("wrapPathError", func() {
		g.It("maps missing and existing paths to their codes", func() {
			g.Assert(IsErrorCode(wrapPathError(os.ErrNotExist, "/a"), ErrNotExist)).IsTrue()
			g.Assert(IsErrorCode(wrapPathError(os.ErrExist, "/a"), ErrExist)).IsTrue()
			g.Assert(wrapPathError(nil, "/a") == nil).IsTrue()
		})

		g.It("reports anything else as an unknown error that is not the client's fault", func() {
			err := wrapPathError(os.ErrPermission, "/a")
			g.Assert(IsErrorCode(err, ErrCodeUnknownError)).IsTrue()
			g.Assert(IsPathError(err)).IsFalse()
			g.Assert(errors.Is(err, os.ErrPermission)).IsTrue()
			g.Assert(err.Error()).Equal("filesystem: an error occurred: permission denied")
		})
	})
}
