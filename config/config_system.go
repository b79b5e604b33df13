package config

import (
	"os"
	"path/filepath"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
)

// SystemConfiguration defines basic system configuration settings.
type SystemConfiguration struct {
	// The root directory where hangar keeps its own state, such as the activity
	// database.
	RootDirectory string `default:"/var/lib/hangar" yaml:"root_directory"`

	// Directory where logs for hangar are written.
	LogDirectory string `default:"/var/log/hangar" yaml:"log_directory"`

	// Directory holding the storage tree. Every registered user gets a single
	// directory directly below it.
	Data string `default:"/var/lib/hangar/storage" yaml:"data"`

	// Directory where the registered and logged in user tables are kept.
	AccessDirectory string `default:"/var/lib/hangar/access" yaml:"access_directory"`

	// The timezone used by the scheduler when running periodic jobs.
	Timezone string `default:"UTC" yaml:"timezone"`
}

// ConfigureDirectories ensures that all of the system directories exist on the
// system. These directories are created so that only the owner can read the
// data, and no other users.
func (sc *SystemConfiguration) ConfigureDirectories() error {
	for _, d := range []string{sc.RootDirectory, sc.LogDirectory, sc.Data, sc.AccessDirectory} {
		log.WithField("path", d).Debug("ensuring directory exists")
		if err := os.MkdirAll(d, 0o700); err != nil {
			return errors.Wrap(err, "config: failed to create system directory")
		}
	}
	return nil
}

// ConfigureTimezone validates the configured timezone, falling back to UTC when
// no value has been provided.
func (sc *SystemConfiguration) ConfigureTimezone() error {
	if sc.Timezone == "" {
		sc.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(sc.Timezone); err != nil {
		return errors.WrapIf(err, "config: failed to validate timezone")
	}
	return nil
}

// DatabasePath returns the location of the local activity database.
func (sc *SystemConfiguration) DatabasePath() string {
	return filepath.Join(sc.RootDirectory, "hangar.db")
}
