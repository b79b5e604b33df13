package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/pterodactyl/hangar/config"
	"github.com/pterodactyl/hangar/filesystem"
	"github.com/pterodactyl/hangar/loggers/cli"
	"github.com/pterodactyl/hangar/system"
)

const DefaultLogLines = 200

var diagnosticsArgs struct {
	IncludeEndpoints bool
	IncludeLogs      bool
	LogLines         int
}

func newDiagnosticsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "diagnostics",
		Short: "Collect and report information about this hangar instance to assist in debugging.",
		PreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			log.SetHandler(cli.Default)
		},
		Run: diagnosticsCmdRun,
	}

	command.Flags().IntVar(&diagnosticsArgs.LogLines, "log-lines", DefaultLogLines, "the number of log lines to include in the report")

	return command
}

// diagnosticsCmdRun collects diagnostics about hangar, its configuration and
// the host it is running on, then prints the report to stdout.
func diagnosticsCmdRun(cmd *cobra.Command, args []string) {
	questions := []*survey.Question{
		{
			Name:   "IncludeEndpoints",
			Prompt: &survey.Confirm{Message: "Do you want to include endpoints (i.e. the listen address of hangar)?", Default: false},
		},
		{
			Name:   "IncludeLogs",
			Prompt: &survey.Confirm{Message: "Do you want to include the latest logs?", Default: true},
		},
	}
	if err := survey.Ask(questions, &diagnosticsArgs); err != nil {
		if err == terminal.InterruptErr {
			return
		}
		panic(err)
	}

	cfg := config.Get()
	info := system.GetSystemInformation()

	output := &strings.Builder{}
	fmt.Fprintln(output, "hangar - Diagnostics Report")
	printHeader(output, "Versions")
	fmt.Fprintln(output, "              hangar:", info.Version)
	fmt.Fprintln(output, "                  OS:", system.FirstNotEmpty(info.OSRelease, info.OS))
	fmt.Fprintln(output, "        Architecture:", info.Architecture)
	fmt.Fprintln(output, "                CPUs:", info.CpuCount)

	printHeader(output, "hangar Configuration")
	fmt.Fprintln(output, "         Line Server:", redact(cfg.Server.Address()))
	fmt.Fprintln(output, "        Max Sessions:", cfg.Server.MaxSessions)
	fmt.Fprintln(output, "        Idle Timeout:", cfg.Server.IdleTimeout)
	fmt.Fprintln(output, "  Commands Per Second:", cfg.Server.CommandsPerSecond)
	fmt.Fprintln(output, "")
	fmt.Fprintln(output, "     Metrics Enabled:", cfg.Metrics.Enabled)
	fmt.Fprintln(output, "     Metrics Address:", redact(cfg.Metrics.Bind))
	fmt.Fprintln(output, "    Activity Enabled:", cfg.Activity.Enabled)
	fmt.Fprintln(output, "  Activity Retention:", cfg.Activity.RetentionDays, "days")
	fmt.Fprintln(output, "")
	fmt.Fprintln(output, "      Root Directory:", cfg.System.RootDirectory)
	fmt.Fprintln(output, "      Logs Directory:", cfg.System.LogDirectory)
	fmt.Fprintln(output, "      Data Directory:", cfg.System.Data)
	fmt.Fprintln(output, "    Access Directory:", cfg.System.AccessDirectory)
	fmt.Fprintln(output, "")
	fmt.Fprintln(output, "         Server Time:", time.Now().Format(time.RFC1123Z))
	fmt.Fprintln(output, "            Timezone:", cfg.System.Timezone)
	fmt.Fprintln(output, "          Debug Mode:", cfg.Debug)

	printHeader(output, "Storage")
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Second*10)
	defer cancel()
	if users, err := newCredentialStore(cfg).Users(ctx); err != nil {
		fmt.Fprintln(output, "Couldn't read registered users:", err)
	} else {
		fmt.Fprintln(output, "    Registered Users:", len(users))
	}
	if size, err := filesystem.New(cfg.System.Data, nil).DirectorySize("/"); err != nil {
		fmt.Fprintln(output, "Couldn't determine storage usage:", err)
	} else {
		fmt.Fprintln(output, "       Storage Usage:", system.FormatBytes(size))
	}

	printHeader(output, "Latest hangar Logs")
	if diagnosticsArgs.IncludeLogs {
		p := filepath.Join(cfg.System.LogDirectory, "hangar.log")
		if lines, err := tailFile(p, diagnosticsArgs.LogLines); err != nil {
			fmt.Fprintln(output, "No logs found or an error occurred.")
		} else {
			fmt.Fprintf(output, "%s\n", strings.Join(lines, "\n"))
		}
	} else {
		fmt.Fprintln(output, "Logs redacted.")
	}

	if !diagnosticsArgs.IncludeEndpoints {
		s := output.String()
		output.Reset()
		s = strings.ReplaceAll(s, cfg.Server.Address(), "{redacted}")
		s = strings.ReplaceAll(s, cfg.Metrics.Bind, "{redacted}")
		output.WriteString(s)
	}

	fmt.Println("\n---------------  generated report  ---------------")
	fmt.Println(output.String())
	fmt.Print("---------------   end of report    ---------------\n\n")
}

// tailFile returns the last n lines of the file at the given path.
func tailFile(p string, n int) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := make([]string, 0, n)
	err = system.ScanReader(f, func(line []byte) bool {
		if n <= 0 {
			return false
		}
		if len(lines) == n {
			lines = append(lines[:0], lines[1:]...)
		}
		lines = append(lines, string(line))
		return true
	})
	return lines, err
}

func redact(s string) string {
	if !diagnosticsArgs.IncludeEndpoints {
		return "{redacted}"
	}
	return s
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, "\n|\n|", title)
	fmt.Fprintln(w, "| ------------------------------")
}
