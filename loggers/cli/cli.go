package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	color2 "github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

var (
	Default = New(os.Stderr, true)
	bold    = color2.New(color2.Bold)
	boldred = color2.New(color2.Bold, color2.FgRed)
)

var Strings = [...]string{
	log.DebugLevel: "DEBUG",
	log.InfoLevel:  " INFO",
	log.WarnLevel:  " WARN",
	log.ErrorLevel: "ERROR",
	log.FatalLevel: "FATAL",
}

// Fields that are always printed first, in this order, so that lines for the
// same connection are easy to follow in a busy log.
var leading = []string{"subsystem", "session", "username"}

type Handler struct {
	mu      sync.Mutex
	Writer  io.Writer
	Padding int
}

func New(w io.Writer, useColors bool) *Handler {
	if f, ok := w.(*os.File); ok && useColors {
		return &Handler{Writer: colorable.NewColorable(f), Padding: 2}
	}
	return &Handler{Writer: colorable.NewNonColorable(w), Padding: 2}
}

// HandleLog implements log.Handler.
func (h *Handler) HandleLog(e *log.Entry) error {
	color := cli.Colors[e.Level]
	level := Strings[e.Level]

	h.mu.Lock()
	defer h.mu.Unlock()

	color.Fprintf(h.Writer, "%s: [%s] %-25s", bold.Sprintf("%*s", h.Padding+1, level), time.Now().Format(time.StampMilli), e.Message)

	for _, name := range orderedNames(e.Fields) {
		if name == "error" {
			continue
		}
		fmt.Fprintf(h.Writer, " %s=%v", color.Sprint(name), e.Fields.Get(name))
	}
	if v := e.Fields.Get("error"); v != nil {
		fmt.Fprintf(h.Writer, " %s=%v", color.Sprint("error"), v)
	}

	fmt.Fprintln(h.Writer)

	if err, ok := e.Fields.Get("error").(error); ok && e.Level >= log.ErrorLevel {
		// Attach the stacktrace if it is missing at this point, but don't point
		// it specifically to this line since that is irrelevant.
		err = errors.WithStackDepthIf(err, 1)
		fmt.Fprintf(h.Writer, "\n%s\n%+v\n\n", boldred.Sprintf("Stacktrace:"), err)
	}

	return nil
}

func orderedNames(f log.Fields) []string {
	names := f.Names()
	out := make([]string, 0, len(names))
	for _, l := range leading {
		if _, ok := f[l]; ok {
			out = append(out, l)
		}
	}
	for _, n := range names {
		skip := false
		for _, l := range leading {
			if n == l {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, n)
		}
	}
	return out
}
