package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"

	"github.com/pterodactyl/hangar/credentials"
	"github.com/pterodactyl/hangar/filesystem"
	"github.com/pterodactyl/hangar/metrics"
	"github.com/pterodactyl/hangar/session"
)

const (
	ReplyNotAuthenticated = "Login to continue"
	ReplyArity            = "Enter correct command"
	ReplyUnexpected       = "An unexpected error was encountered while processing this command"
)

const helpFormat = `commands : Show this help text, command: commands
register : Register a new user, command: register <username> <password>
login : Log in as a registered user, command: login <username> <password>
quit : Log out, command: quit
change_folder : Move into a directory or back up with "..", command: change_folder <name>
list : List the files and directories in the current directory, command: list
read_file : Read the next %d characters of a file, command: read_file <name>
write_file : Append data to a file, creating it if needed, command: write_file <name> <data>
create_folder : Create a new directory, command: create_folder <name>
exit : Close the connection, command: exit`

// Config holds the settings of an Interpreter.
type Config struct {
	Metrics *metrics.Metrics
	// MinPasswordLength is only used to build the reply for a weak password.
	MinPasswordLength int
}

// Interpreter executes lines received on a connection against the Session of
// that connection and turns the outcome into a reply.
type Interpreter struct {
	session   *session.Session
	metrics   *metrics.Metrics
	minLength int
}

// New returns an Interpreter that drives the given Session.
func New(s *session.Session, c Config) *Interpreter {
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = credentials.DefaultMinPasswordLength
	}
	return &Interpreter{session: s, metrics: c.Metrics, minLength: c.MinPasswordLength}
}

// Session returns the Session driven by this Interpreter.
func (i *Interpreter) Session() *session.Session {
	return i.session
}

// Execute parses and runs a single line, returning the reply for the client.
// Errors never leave this function, they are all converted into a reply.
func (i *Interpreter) Execute(ctx context.Context, line string) string {
	start := time.Now()

	cmd, err := Parse(line)
	if err != nil {
		var unknown *UnknownCommandError
		if errors.As(err, &unknown) {
			i.metrics.ObserveCommand("unknown", time.Since(start))
			return fmt.Sprintf("Unknown command %q, type \"commands\" for help", unknown.Word)
		}
		i.metrics.ObserveCommand(strings.SplitN(strings.TrimSpace(line), " ", 2)[0], time.Since(start))
		return ReplyArity
	}

	reply := i.dispatch(ctx, cmd)
	i.metrics.ObserveCommand(cmd.Name(), time.Since(start))

	return reply
}

func (i *Interpreter) dispatch(ctx context.Context, cmd Command) string {
	s := i.session

	switch c := cmd.(type) {
	case Help:
		return fmt.Sprintf(helpFormat, s.PageSize())
	case Register:
		if err := s.Register(ctx, c.Username, c.Password); err != nil {
			return i.reply(err)
		}
		return "Successfully registered user"
	case Login:
		res, err := s.Login(ctx, c.Username, c.Password)
		i.metrics.RecordLogin(loginResult(res, err))
		if err != nil {
			return i.reply(err)
		}
		if res == session.LoginElsewhere {
			return "User logged in through another connection"
		}
		return "Logged into the system successfully"
	case Quit:
		if s.Quit(ctx) == session.QuitForced {
			return "Forced logout"
		}
		return "Logged out"
	case List:
		out, err := s.List(ctx)
		if err != nil {
			return i.reply(err)
		}
		return formatListing(out)
	case ReadFile:
		p, err := s.ReadFile(ctx, c.Name)
		if err != nil {
			return i.reply(err)
		}
		return fmt.Sprintf("Read file from %d to %d\n%s", p.Start, p.End, p.Data)
	case WriteFile:
		res, err := s.WriteFile(ctx, c.Name, c.Data)
		if err != nil {
			return i.reply(err)
		}
		if res == session.WriteCreated {
			return "Created and written data to file " + c.Name + " successfully"
		}
		return "Written data to file " + c.Name + " successfully"
	case CreateFolder:
		if err := s.CreateFolder(ctx, c.Name); err != nil {
			return i.reply(err)
		}
		return "Successfully created directory " + c.Name
	case ChangeFolder:
		cwd, err := s.ChangeFolder(ctx, c.Name)
		if err != nil {
			return i.reply(err)
		}
		return "Successfully moved to directory " + cwd
	default:
		s.Log().WithField("command", fmt.Sprintf("%T", cmd)).Error("no handler registered for command")
		return ReplyUnexpected
	}
}

// reply converts an error returned by the Session into the text sent back to
// the client. Anything that is not an expected client error is logged.
func (i *Interpreter) reply(err error) string {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return ReplyNotAuthenticated
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		return "Already logged in"
	case errors.Is(err, session.ErrNotRegistered):
		return "User not registered, please register to continue"
	case errors.Is(err, session.ErrWrongPassword):
		return "Wrong password, try again"
	case errors.Is(err, session.ErrTooManyAttempts):
		return "Too many failed login attempts, try again later"
	case errors.Is(err, session.ErrDuplicateUser):
		return "Username not available"
	case errors.Is(err, session.ErrWeakPassword):
		return "Password length should be at least " + strconv.Itoa(i.minLength) + " characters"
	case errors.Is(err, session.ErrInvalidUsername):
		return "Username may only contain printable ASCII characters and no commas or slashes"
	case errors.Is(err, session.ErrInvalidPassword):
		return "Password may only contain printable ASCII characters and no commas"
	case errors.Is(err, session.ErrAlreadyExists):
		return "The directory is already created"
	case errors.Is(err, session.ErrInvalidName):
		return "Name must not contain a path separator"
	case errors.Is(err, session.ErrDenied):
		return "Access to that name is denied"
	case errors.Is(err, session.ErrCannotMoveBack):
		return "Cannot move back from root directory"
	case errors.Is(err, session.ErrNoSuchDirectory):
		return "No such directory exists"
	case errors.Is(err, session.ErrNoSuchFile):
		return "Given file does not exist"
	case errors.Is(err, session.ErrIsDirectory):
		return "A directory with that name already exists"
	case errors.Is(err, session.ErrNotDirectory):
		return "Not a directory"
	case filesystem.IsErrorCode(err, filesystem.ErrCodePathResolution):
		return "Access denied, that path is outside of your directory"
	}
	i.session.Log().WithField("error", err).Error("unexpected error while executing command")
	return ReplyUnexpected
}

func loginResult(res session.LoginResult, err error) string {
	switch {
	case err == nil && res == session.LoginElsewhere:
		return "elsewhere"
	case err == nil:
		return "success"
	case errors.Is(err, session.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, session.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, session.ErrTooManyAttempts):
		return "throttled"
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		return "already_authenticated"
	}
	return "error"
}
