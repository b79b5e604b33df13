package cmd

import (
	"context"
	"fmt"
	log2 "log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"emperror.dev/errors"
	"github.com/NYTimes/logrotate"
	"github.com/apex/log"
	"github.com/apex/log/handlers/multi"
	"github.com/mitchellh/colorstring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pterodactyl/hangar/config"
	"github.com/pterodactyl/hangar/credentials"
	"github.com/pterodactyl/hangar/daemon"
	"github.com/pterodactyl/hangar/internal/cron"
	"github.com/pterodactyl/hangar/internal/database"
	"github.com/pterodactyl/hangar/internal/notify"
	"github.com/pterodactyl/hangar/loggers/cli"
	"github.com/pterodactyl/hangar/metrics"
	"github.com/pterodactyl/hangar/session"
	"github.com/pterodactyl/hangar/system"
)

var (
	configPath  = config.DefaultLocation
	debug       = false
	showVersion = false
)

var rootCommand = &cobra.Command{
	Use:   "hangar",
	Short: "Runs the hangar line based file manager",
	PreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
		initLogging()
	},
	Run: rootCmdRun,
}

// Execute calls cobra to handle cli commands
func Execute() {
	if err := rootCommand.Execute(); err != nil {
		log2.Fatalf("failed to execute command: %s", err)
	}
}

func init() {
	rootCommand.PersistentFlags().StringVar(&configPath, "config", config.DefaultLocation, "set the location for the configuration file")
	rootCommand.PersistentFlags().BoolVar(&debug, "debug", false, "pass in order to run hangar in debug mode")
	rootCommand.Flags().BoolVar(&showVersion, "version", false, "show the version and exit")

	rootCommand.AddCommand(versionCommand)
	rootCommand.AddCommand(configureCmd)
	rootCommand.AddCommand(newDiagnosticsCommand())
	rootCommand.AddCommand(newUsersCommand())
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Prints the current executable version and exits.",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("hangar v%s\n", system.Version)
	},
}

func rootCmdRun(cmd *cobra.Command, _ []string) {
	if showVersion {
		fmt.Println(system.Version)
		os.Exit(0)
	}

	printLogo()
	log.Debug("running in debug mode")
	log.WithField("config_file", configPath).Info("loading configuration from file")

	cfg := config.Get()
	if err := cfg.System.ConfigureTimezone(); err != nil {
		log.WithField("error", err).Fatal("failed to detect system timezone or use supplied configuration value")
		return
	}
	config.Update(func(c *config.Configuration) {
		c.System.Timezone = cfg.System.Timezone
	})
	log.WithField("timezone", cfg.System.Timezone).Info("configured hangar with system timezone")

	if err := cfg.System.ConfigureDirectories(); err != nil {
		log.WithField("error", err).Fatal("failed to configure system directories for hangar")
		return
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := newCredentialStore(cfg)
	if cfg.Server.ResetLoggedInOnBoot {
		if err := store.ResetLoggedIn(ctx); err != nil {
			log.WithField("error", err).Fatal("failed to reset logged in user table")
			return
		}
		log.Info("cleared logged in user table from previous run")
	}

	sc := session.Config{
		Store:         store,
		DataDirectory: cfg.System.Data,
		Denylist:      cfg.Files.Denylist,
		PageSize:      cfg.Files.PageSize,
		Throttle:      session.NewThrottle(cfg.Auth.MaxLoginAttempts, cfg.Auth.Lockout),
	}

	if cfg.Activity.Enabled {
		if err := database.Initialize(cfg.System.DatabasePath()); err != nil {
			log.WithField("error", err).Fatal("failed to initialize activity database")
			return
		}
		activity := database.NewActivityStore(database.Instance())
		sc.Activity = activity

		s, err := cron.Scheduler(ctx, activity)
		if err != nil {
			log.WithField("error", err).Fatal("failed to initialize cron system")
			return
		}
		log.WithField("subsystem", "cron").Info("starting cron processes")
		s.StartAsync()
		defer s.Stop()
	}

	var m *metrics.Metrics
	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		g.Go(func() error {
			log.WithField("bind", cfg.Metrics.Bind).Info("serving prometheus metrics")
			return metrics.Serve(ctx, cfg.Metrics.Bind, prometheus.DefaultGatherer)
		})
	}

	srv := daemon.New(daemon.Config{
		Address:           cfg.Server.Address(),
		MaxSessions:       cfg.Server.MaxSessions,
		IdleTimeout:       cfg.Server.IdleTimeout,
		CommandsPerSecond: cfg.Server.CommandsPerSecond,
		CommandBurst:      cfg.Server.CommandBurst,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		Session:           sc,
		Metrics:           m,
	})
	g.Go(func() error {
		log.WithField("address", cfg.Server.Address()).Info("starting line server")
		return srv.Run(ctx)
	})
	go func() {
		select {
		case <-srv.Ready():
			if err := notify.Readiness(srv.Addr().String()); err != nil {
				log.WithField("error", err).Warn("failed to notify service manager of readiness")
			}
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
		if err := notify.Stopping(); err != nil {
			log.WithField("error", err).Warn("failed to notify service manager of shutdown")
		}
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithField("error", err).Fatal("hangar stopped unexpectedly")
		return
	}
	log.Info("hangar has been shut down")
}

// newCredentialStore returns the credential store described by the
// configuration, creating each user directory as part of registration.
func newCredentialStore(c *config.Configuration) *credentials.Store {
	return credentials.New(
		c.System.AccessDirectory,
		credentials.WithMinPasswordLength(c.Auth.MinPasswordLength),
		credentials.WithProvisioner(session.StorageProvisioner(c.System.Data)),
	)
}

// Reads the configuration from the disk and then sets up the global singleton
// with all the configuration values.
func initConfig() {
	if !strings.HasPrefix(configPath, "/") {
		d, err := os.Getwd()
		if err != nil {
			log2.Fatalf("cmd/root: could not determine directory: %s", err)
		}
		configPath = path.Clean(path.Join(d, configPath))
	}
	err := config.FromFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			exitWithConfigurationNotice()
		}
		log2.Fatalf("cmd/root: error while reading configuration file: %s", err)
	}
	if debug && !config.Get().Debug {
		config.SetDebugViaFlag(debug)
	}
}

// Configures the global logger for apex so that it can be called from any
// location in the code without having to pass around a logger instance.
func initLogging() {
	dir := config.Get().System.LogDirectory
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log2.Fatalf("cmd/root: failed to create log directory: %s", err)
	}
	p := filepath.Join(dir, "/hangar.log")
	w, err := logrotate.NewFile(p)
	if err != nil {
		log2.Fatalf("cmd/root: failed to create log file: %s", err)
	}
	if config.Get().Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	log.SetHandler(multi.New(cli.Default, cli.New(w.File, false)))
	log.WithField("path", p).Info("writing log files to disk")
}

// Prints the hangar logo, nothing special here!
func printLogo() {
	fmt.Printf(colorstring.Color(`
 _
| |__   __ _ _ __   __ _  __ _ _ __
| '_ \ / _' | '_ \ / _' |/ _' | '__|
| | | | (_| | | | | (_| | (_| | |
|_| |_|\__,_|_| |_|\__, |\__,_|_|
                   |___/ [bold]v%s[reset]

This software is made available under the terms of the MIT license.
The above copyright notice and this permission notice shall be included
in all copies or substantial portions of the Software.%s`), system.Version, "\n\n")
}

func exitWithConfigurationNotice() {
	fmt.Print(colorstring.Color(`
[_red_][white][bold]Error: Configuration File Not Found[reset]

hangar was not able to locate your configuration file, and therefore is not
able to complete its boot process. Please ensure you have copied your instance
configuration file into the default location below, or run "hangar configure"
to generate one.

Default Location: /etc/hangar/config.yml

[yellow]This is not a bug with this software. Please do not make a bug report
for this issue, it will be closed.[reset]

`))
	os.Exit(1)
}
