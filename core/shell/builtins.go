package shell

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"unicode"

	"github.com/josephlewis42/rsh/core/vos"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// ShellBuiltin is a command that runs inside the shell process. Its output
// goes to the invocation's descriptor table so redirections apply.
type ShellBuiltin interface {
	Main(s *Shell, inv *Invocation) int
}

type ShellBuiltinFunc func(s *Shell, inv *Invocation) int

func (f ShellBuiltinFunc) Main(s *Shell, inv *Invocation) int {
	return f(s, inv)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["pwd"] = ShellBuiltinFunc(Pwd)
	AllBuiltins["set"] = ShellBuiltinFunc(Set)
	AllBuiltins["setenv"] = ShellBuiltinFunc(Setenv)
	AllBuiltins["source"] = ShellBuiltinFunc(Source)
	AllBuiltins["unset"] = ShellBuiltinFunc(Unset)
	AllBuiltins["unsetenv"] = ShellBuiltinFunc(Unsetenv)
}

func writerAt(inv *Invocation, fd int) io.Writer {
	if f := inv.Files.Get(fd); f != nil {
		return f
	}
	return io.Discard
}

// builtinOpts parses the standard -h/--help flag. If ok is false the builtin
// should return status right away.
func builtinOpts(inv *Invocation, usage, description string) (args []string, status int, ok bool) {
	opts := getopt.New()
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(inv.Args, nil); err != nil || *helpOpt {
		w := writerAt(inv, 2)
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintf(w, "usage: %s\n", usage)
		fmt.Fprintln(w, description)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)

		if err != nil {
			return nil, 1, false
		}
		return nil, 0, false
	}

	return opts.Args(), 0, true
}

// Exit quits the shell once the current line finishes.
func Exit(s *Shell, inv *Invocation) int {
	if _, status, ok := builtinOpts(inv, "exit", "Leave the shell."); !ok {
		return status
	}

	s.quit = true
	return s.Status
}

// Pwd prints the shell's working directory.
func Pwd(s *Shell, inv *Invocation) int {
	if _, status, ok := builtinOpts(inv, "pwd", "Print the current directory."); !ok {
		return status
	}

	fmt.Fprintln(writerAt(inv, 1), s.Cwd)
	return 0
}

// Cd is the cd shell builtin, it changes the directory commands are started
// in. With no arguments it changes to the home directory.
func Cd(s *Shell, inv *Invocation) int {
	args, status, ok := builtinOpts(inv, "cd [DIR]", "Change the current directory.")
	if !ok {
		return status
	}

	stderr := writerAt(inv, 2)
	dir := s.Home
	switch len(args) {
	case 0:
	case 1:
		dir = args[0]
	default:
		fmt.Fprintf(stderr, "%s: Too many arguments.\n", inv.Command)
		return 1
	}

	target := filepath.Clean(s.abs(dir))
	fi, err := s.OS.Stat(target)
	switch {
	case err != nil:
		fmt.Fprintf(stderr, "%s: %s: %v\n", inv.Command, dir, vos.FromErrno(err))
		return 1
	case !fi.IsDir():
		fmt.Fprintf(stderr, "%s: %s: %v\n", inv.Command, dir, vos.NewErrno(syscall.ENOTDIR))
		return 1
	}

	s.Cwd = target
	return 0
}

func validVarName(name string) bool {
	if name == "" {
		return false
	}
	first := []rune(name)[0]
	return first == '_' || unicode.IsLetter(first)
}

// Set assigns shell variables. It accepts "name", "name=value" and
// "name = value" forms and lists the variables when run without arguments.
func Set(s *Shell, inv *Invocation) int {
	args, status, ok := builtinOpts(inv, "set [NAME[=VALUE]...]", "Set or list shell variables.")
	if !ok {
		return status
	}

	if len(args) == 0 {
		w := writerAt(inv, 1)
		for _, entry := range s.Variables.Environ() {
			name, value, _ := strings.Cut(entry, "=")
			fmt.Fprintf(w, "%s\t%s\n", name, value)
		}
		return 0
	}

	for i := 0; i < len(args); i++ {
		name, value := args[i], ""
		switch {
		case i+1 < len(args) && args[i+1] == "=":
			if i+2 < len(args) {
				value = args[i+2]
			}
			i += 2
		case strings.Contains(name, "="):
			name, value, _ = strings.Cut(name, "=")
		}

		if !validVarName(name) {
			fmt.Fprintf(writerAt(inv, 2), "%s: Variable name must begin with a letter.\n", inv.Command)
			return 1
		}
		s.Variables.Setenv(name, value)
	}
	return 0
}

// Unset removes shell variables.
func Unset(s *Shell, inv *Invocation) int {
	args, status, ok := builtinOpts(inv, "unset NAME...", "Remove shell variables.")
	if !ok {
		return status
	}

	if len(args) == 0 {
		fmt.Fprintf(writerAt(inv, 2), "%s: Too few arguments.\n", inv.Command)
		return 1
	}
	for _, name := range args {
		s.Variables.Unsetenv(name)
	}
	return 0
}

// Setenv sets an environment variable that child processes inherit. With no
// arguments it prints the environment.
func Setenv(s *Shell, inv *Invocation) int {
	args, status, ok := builtinOpts(inv, "setenv [NAME [VALUE]]", "Set or list environment variables.")
	if !ok {
		return status
	}

	stderr := writerAt(inv, 2)
	switch len(args) {
	case 0:
		env := s.OS.Environ()
		sort.Strings(env)
		w := writerAt(inv, 1)
		for _, entry := range env {
			fmt.Fprintln(w, entry)
		}
		return 0
	case 1, 2:
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		if err := s.OS.Setenv(args[0], value); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", inv.Command, err)
			return 1
		}
		if args[0] == EnvPath {
			s.Path = filepath.SplitList(value)
		}
		return 0
	default:
		fmt.Fprintf(stderr, "%s: Too many arguments.\n", inv.Command)
		return 1
	}
}

// Unsetenv removes environment variables.
func Unsetenv(s *Shell, inv *Invocation) int {
	args, status, ok := builtinOpts(inv, "unsetenv NAME...", "Remove environment variables.")
	if !ok {
		return status
	}

	if len(args) == 0 {
		fmt.Fprintf(writerAt(inv, 2), "%s: Too few arguments.\n", inv.Command)
		return 1
	}
	for _, name := range args {
		if err := s.OS.Unsetenv(name); err != nil {
			fmt.Fprintf(writerAt(inv, 2), "%s: %v\n", inv.Command, err)
			return 1
		}
		if name == EnvPath {
			s.Path = s.Config.DefaultSearchPath()
		}
	}
	return 0
}

// Source interprets a file in the current shell.
func Source(s *Shell, inv *Invocation) int {
	args, status, ok := builtinOpts(inv, "source FILE", "Run commands from a file in the current shell.")
	if !ok {
		return status
	}

	if len(args) != 1 {
		fmt.Fprintf(writerAt(inv, 2), "usage: %s FILE\n", inv.Command)
		return 1
	}
	if err := s.Interpret(args[0]); err != nil {
		fmt.Fprintf(writerAt(inv, 2), "%s: %v\n", inv.Command, err)
		return 1
	}
	return s.Status
}
