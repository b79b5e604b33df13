package config

import (
	"net"
	"strconv"
	"time"
)

// ServerConfiguration defines the line server that clients connect to.
type ServerConfiguration struct {
	// The interface that the line server should bind to.
	Host string `default:"127.0.0.1" yaml:"host"`

	// The port that the line server should bind to.
	Port int `default:"8088" yaml:"port"`

	// The maximum number of connections that are served at the same time. Any
	// connections beyond this wait until a running session ends.
	MaxSessions int `default:"64" yaml:"max_sessions"`

	// Connections that do not send a command for this long are closed. A value
	// of zero disables the timeout.
	IdleTimeout time.Duration `default:"15m" yaml:"idle_timeout"`

	// The sustained number of commands a single connection may issue per second,
	// and the number of commands that may be issued in a burst above that rate.
	CommandsPerSecond float64 `default:"20" yaml:"commands_per_second"`
	CommandBurst      int64   `default:"40" yaml:"command_burst"`

	// When true the logged in user table is emptied when hangar boots, since no
	// session can survive a restart of the process.
	ResetLoggedInOnBoot bool `default:"true" yaml:"reset_logged_in_on_boot"`
}

// Address returns the host and port combination the line server listens on.
func (sc ServerConfiguration) Address() string {
	return net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
}

// AuthConfiguration controls registration and login rules.
type AuthConfiguration struct {
	// The minimum length of a password accepted at registration.
	MinPasswordLength int `default:"8" yaml:"min_password_length"`

	// The number of failed password attempts allowed for a single username
	// before further logins are rejected until the lockout expires. Setting
	// this to zero disables the lockout entirely.
	MaxLoginAttempts int `default:"5" yaml:"max_login_attempts"`

	// How long failed attempts are remembered for a username.
	Lockout time.Duration `default:"5m" yaml:"lockout"`
}

// FilesConfiguration controls how users interact with their files.
type FilesConfiguration struct {
	// The number of characters returned by a single read_file call.
	PageSize int `default:"100" yaml:"page_size"`

	// A list of gitignore style patterns that users are not allowed to read,
	// write or create.
	Denylist []string `yaml:"denylist"`
}

// ActivityConfiguration controls the local audit trail of user actions.
type ActivityConfiguration struct {
	Enabled bool `default:"true" yaml:"enabled"`

	// Activity older than this many days is removed by the scheduler. A value of
	// zero keeps activity forever.
	RetentionDays int `default:"30" yaml:"retention_days"`

	// How often the scheduler prunes old activity.
	PruneInterval time.Duration `default:"1h" yaml:"prune_interval"`
}

// MetricsConfiguration controls the prometheus endpoint.
type MetricsConfiguration struct {
	Enabled bool `default:"false" yaml:"enabled"`

	// The address that the metrics endpoint is served on.
	Bind string `default:"127.0.0.1:9100" yaml:"bind"`
}
