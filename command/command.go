package command

import (
	"strings"

	"emperror.dev/errors"
)

// ErrArity is returned by Parse when a known command is given the wrong number
// of arguments.
const ErrArity = errors.Sentinel("command: wrong number of arguments")

// UnknownCommandError is returned by Parse when the command word is not known.
type UnknownCommandError struct {
	Word string
}

func (e *UnknownCommandError) Error() string {
	return "command: unknown command \"" + e.Word + "\""
}

// Command is a single parsed line. The set of implementations is closed, every
// command is one of the types declared in this package.
type Command interface {
	// Name returns the command word the command was parsed from.
	Name() string
	command()
}

type Help struct{}

type Register struct {
	Username string
	Password string
}

type Login struct {
	Username string
	Password string
}

type Quit struct{}

type List struct{}

type ReadFile struct {
	Name string
}

type WriteFile struct {
	Name string
	Data string
}

type CreateFolder struct {
	Name string
}

type ChangeFolder struct {
	Name string
}

func (Help) Name() string         { return "commands" }
func (Register) Name() string     { return "register" }
func (Login) Name() string        { return "login" }
func (Quit) Name() string         { return "quit" }
func (List) Name() string         { return "list" }
func (ReadFile) Name() string     { return "read_file" }
func (WriteFile) Name() string    { return "write_file" }
func (CreateFolder) Name() string { return "create_folder" }
func (ChangeFolder) Name() string { return "change_folder" }

func (Help) command()         {}
func (Register) command()     {}
func (Login) command()        {}
func (Quit) command()         {}
func (List) command()         {}
func (ReadFile) command()     {}
func (WriteFile) command()    {}
func (CreateFolder) command() {}
func (ChangeFolder) command() {}

// Parse turns a single line into a Command. Surrounding whitespace is removed
// and the line is split on single spaces, so repeated spaces produce empty
// arguments. The data of write_file is every argument after the name joined
// back together with single spaces.
func Parse(line string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(line), " ")
	word, args := parts[0], parts[1:]

	arity := func(n int) error {
		if len(args) != n {
			return errors.WithStack(ErrArity)
		}
		return nil
	}

	switch word {
	case "commands":
		if err := arity(0); err != nil {
			return nil, err
		}
		return Help{}, nil
	case "register":
		if err := arity(2); err != nil {
			return nil, err
		}
		return Register{Username: args[0], Password: args[1]}, nil
	case "login":
		if err := arity(2); err != nil {
			return nil, err
		}
		return Login{Username: args[0], Password: args[1]}, nil
	case "quit":
		if err := arity(0); err != nil {
			return nil, err
		}
		return Quit{}, nil
	case "list":
		if err := arity(0); err != nil {
			return nil, err
		}
		return List{}, nil
	case "read_file":
		if err := arity(1); err != nil {
			return nil, err
		}
		return ReadFile{Name: args[0]}, nil
	case "write_file":
		if len(args) < 2 {
			return nil, errors.WithStack(ErrArity)
		}
		return WriteFile{Name: args[0], Data: strings.Join(args[1:], " ")}, nil
	case "create_folder":
		if err := arity(1); err != nil {
			return nil, err
		}
		return CreateFolder{Name: args[0]}, nil
	case "change_folder":
		if err := arity(1); err != nil {
			return nil, err
		}
		return ChangeFolder{Name: args[0]}, nil
	}

	return nil, errors.WithStack(&UnknownCommandError{Word: word})
}
