package config

import (
	"os"
	"path/filepath"
	"sync"

	"emperror.dev/errors"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const DefaultLocation = "/etc/hangar/config.yml"

var (
	mu            sync.RWMutex
	_config       *Configuration
	_debugViaFlag bool
)

type Configuration struct {
	// The location from which this configuration instance was instantiated.
	path string

	// Determines if hangar should be running in debug mode. This value is ignored
	// if the debug flag is passed through the command line arguments.
	Debug bool `json:"debug" yaml:"debug"`

	System   SystemConfiguration   `json:"system" yaml:"system"`
	Server   ServerConfiguration   `json:"server" yaml:"server"`
	Auth     AuthConfiguration     `json:"auth" yaml:"auth"`
	Files    FilesConfiguration    `json:"files" yaml:"files"`
	Activity ActivityConfiguration `json:"activity" yaml:"activity"`
	Metrics  MetricsConfiguration  `json:"metrics" yaml:"metrics"`
}

// NewAtPath creates a new struct and set the path where it should be stored.
// This function does not modify the currently stored global configuration.
func NewAtPath(path string) (*Configuration, error) {
	var c Configuration
	// Configures the default values for many of the configuration options present
	// in the structs. Values set in the configuration file take priority over the
	// default values.
	if err := defaults.Set(&c); err != nil {
		return nil, err
	}
	// Track the location where we created this configuration.
	c.path = path
	return &c, nil
}

// Set the global configuration instance. This is a blocking operation such that
// anything trying to set a different configuration value, or read the configuration
// will be paused until it is complete.
func Set(c *Configuration) {
	mu.Lock()
	_config = c
	mu.Unlock()
}

// SetDebugViaFlag tracks if the application is running in debug mode because of
// a command line flag argument. If so we do not want to store that configuration
// change to the disk.
func SetDebugViaFlag(d bool) {
	mu.Lock()
	_config.Debug = d
	_debugViaFlag = d
	mu.Unlock()
}

// Get returns the global configuration instance. This is a thread-safe operation
// that will block if the configuration is presently being modified.
//
// Be aware that you CANNOT make modifications to the currently stored configuration
// by modifying the struct returned by this function. The only way to make
// modifications is by using the Update() function and passing data through in
// the callback.
func Get() *Configuration {
	mu.RLock()
	defer mu.RUnlock()
	// Create a copy of the struct so that all modifications made beyond this
	// point are immutable.
	//goland:noinspection GoVetCopyLock
	c := *_config
	c.Files.Denylist = append([]string(nil), _config.Files.Denylist...)
	return &c
}

// Update performs an in-situ update of the global configuration object using
// a thread-safe mutex lock. This is the correct way to make modifications to
// the global configuration.
func Update(callback func(c *Configuration)) {
	mu.Lock()
	callback(_config)
	mu.Unlock()
}

// GetPath returns the path where the configuration file is stored.
func (c *Configuration) GetPath() string {
	return c.path
}

// WriteToDisk writes the configuration to the disk. This is a thread safe operation
// and will only allow one write at a time. Additional calls while writing are
// queued up.
func WriteToDisk(c *Configuration) error {
	mu.Lock()
	defer mu.Unlock()

	//goland:noinspection GoVetCopyLock
	ccopy := *c
	// If debugging is set with the flag, don't save that to the configuration file,
	// otherwise you'll always end up in debug mode.
	if _debugViaFlag {
		ccopy.Debug = false
	}
	if c.path == "" {
		return errors.New("cannot write configuration, no path defined in struct")
	}
	b, err := yaml.Marshal(&ccopy)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return errors.Wrap(err, "config: failed to create configuration directory")
	}
	if err := os.WriteFile(c.path, b, 0o600); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// FromFile reads the configuration from the provided file and stores it in the
// global singleton for this instance.
func FromFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c, err := NewAtPath(path)
	if err != nil {
		return err
	}
	// Replace environment variables within the configuration file with their
	// values from the host system.
	b = []byte(os.ExpandEnv(string(b)))
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrap(err, "config: failed to parse configuration file")
	}
	// Store this configuration in the global state.
	Set(c)
	return nil
}
