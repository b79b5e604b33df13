package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
)

// IsIgnored checks if the given file or path is in the denylist. If so, an Error
// is returned, otherwise nil is returned.
func (fs *Filesystem) IsIgnored(paths ...string) error {
	for _, p := range paths {
		sp, err := fs.SafePath(p)
		if err != nil {
			return err
		}
		if fs.denylist != nil && fs.denylist.MatchesPath(strings.TrimPrefix(strings.TrimPrefix(sp, fs.Path()), "/")) {
			return errors.WithStack(&Error{code: ErrCodeDenylistFile, path: p, resolved: sp})
		}
	}
	return nil
}

// SafePath normalizes a path being passed in to ensure the user is not able to
// escape from their root directory. After normalization if the path is still
// within their root it is returned. If they managed to "escape" an error is
// returned instead.
//
// Symlinks are followed and the final destination is validated, so a link that
// points outside of the root is rejected even though the link itself lives
// inside of it.
func (fs *Filesystem) SafePath(p string) (string, error) {
	var nonExistentPathResolution string

	// Start with a cleaned up path before checking the more complex bits.
	r := fs.unsafeFilePath(p)

	// At the same time, evaluate the symlink status and determine where this file or folder
	// is truly pointing to.
	ep, err := filepath.EvalSymlinks(r)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrap(err, "filesystem: failed to evaluate symlink")
	} else if os.IsNotExist(err) {
		// The requested path doesn't exist, so at this point we need to iterate up the
		// path chain until we hit a directory that _does_ exist and can be validated.
		parts := strings.Split(filepath.Dir(r), "/")

		var try string
		for k := range parts {
			try = strings.Join(parts[:(len(parts)-k)], "/")

			if !fs.unsafeIsInDataDirectory(try) {
				break
			}

			t, err := filepath.EvalSymlinks(try)
			if err == nil {
				nonExistentPathResolution = t
				break
			}
		}

		// A symlink that points to a location that does not exist still needs to be
		// checked against the root, otherwise writing to it would create a file
		// outside of the user directory.
		if target, lerr := os.Readlink(r); lerr == nil {
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(r), target)
			}
			if !fs.unsafeIsInDataDirectory(filepath.Clean(target)) {
				return "", NewBadPathResolution(p, filepath.Clean(target))
			}
		}
	}

	// If the new path doesn't start with their root directory there is clearly an escape
	// attempt going on, and we should NOT resolve this path for them.
	if nonExistentPathResolution != "" {
		if !fs.unsafeIsInDataDirectory(nonExistentPathResolution) {
			return "", NewBadPathResolution(p, nonExistentPathResolution)
		}

		// The initial path requested did not exist, but the closest existing parent is
		// inside of the root directory, so the requested path can be returned as is.
		return r, nil
	}

	if ep != "" && fs.unsafeIsInDataDirectory(ep) {
		return ep, nil
	}

	return "", NewBadPathResolution(p, r)
}

// Generate a path to the file by cleaning it up and appending the root path to it. This
// DOES NOT guarantee that the file resolves within the root directory. You'll want to use
// the fs.unsafeIsInDataDirectory(p) function to confirm.
func (fs *Filesystem) unsafeFilePath(p string) string {
	// Calling filepath.Clean on the joined directory will resolve it to the absolute path,
	// removing any ../ type of resolution arguments, and leaving us with a direct path link.
	//
	// This will also trim the existing root path off the beginning of the path passed to
	// the function since that can get a bit messy.
	return filepath.Clean(filepath.Join(fs.Path(), strings.TrimPrefix(p, fs.Path())))
}

// Check that that path string starts with the root directory path. This function DOES NOT
// validate that the rest of the path does not end up resolving out of this directory, or that the
// targeted file or folder is not a symlink doing the same thing.
func (fs *Filesystem) unsafeIsInDataDirectory(p string) bool {
	return strings.HasPrefix(strings.TrimSuffix(p, "/")+"/", strings.TrimSuffix(fs.Path(), "/")+"/")
}

// Relative returns the given absolute path relative to the root directory, always
// starting with a slash. The root itself is returned as "/".
func (fs *Filesystem) Relative(p string) string {
	rel := strings.TrimPrefix(filepath.Clean(p), fs.Path())
	if rel == "" {
		return "/"
	}
	return filepath.ToSlash(rel)
}
