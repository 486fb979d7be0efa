package shell

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/josephlewis42/rsh/core/config"
	"github.com/josephlewis42/rsh/core/logger"
	"github.com/josephlewis42/rsh/core/vos"
)

const (
	EnvPath = "PATH"

	// StatusVar is the shell variable holding the last command's status.
	StatusVar = "status"
	// PromptVar overrides the computed prompt when set.
	PromptVar = "prompt"

	// ShellName prefixes error messages.
	ShellName = "rsh"
)

var (
	// ErrNoHomeDir is returned by New if the user's home directory can't be
	// determined.
	ErrNoHomeDir = errors.New("couldn't determine home directory")
	// ErrNoWorkingDir is returned by New if the working directory can't be
	// determined.
	ErrNoWorkingDir = errors.New("couldn't determine working directory")
)

// CommandNotFoundError is returned when a command isn't a builtin and can't
// be found on the search path.
type CommandNotFoundError struct {
	Name string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("%s: Command not found.", e.Name)
}

func (e *CommandNotFoundError) Unwrap() error {
	return vos.ErrNotFound
}

// Shell holds the state of a running shell.
type Shell struct {
	OS     vos.VOS
	Config *config.Configuration
	Events *logger.SessionLogger

	// Variables holds shell variables set with the set builtin.
	Variables *vos.MapEnv
	// Argv is the shell's own argument list.
	Argv []string
	// IsLogin is true if the shell was started as a login shell.
	IsLogin bool
	// UID is the real user ID of the shell.
	UID int
	// Status is the status of the last command.
	Status int
	// Home is the user's home directory.
	Home string
	// Path is the ordered list of directories searched for commands.
	Path []string
	// Prompt is the computed prompt, see PromptString.
	Prompt string
	// Cwd is the directory commands run in.
	Cwd string

	quit bool
}

// New initializes the shell state from the operating system.
//
// The home directory comes from the password database entry of the real
// user and the search path from $PATH, falling back to the configured
// default. ErrNoHomeDir and ErrNoWorkingDir are returned if those can't be
// determined.
func New(virtualOS vos.VOS, cfg *config.Configuration, events *logger.SessionLogger) (*Shell, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if events == nil {
		events = logger.NewNopLogger().Sessionless()
	}

	s := &Shell{
		OS:        virtualOS,
		Config:    cfg,
		Events:    events,
		Variables: vos.NewMapEnv(),
		Argv:      virtualOS.Args(),
		UID:       virtualOS.Getuid(),
	}
	s.IsLogin = IsLoginShell(s.Argv)

	home, err := virtualOS.LookupHomeDir(s.UID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHomeDir, err)
	}
	s.Home = home

	if path, ok := virtualOS.LookupEnv(EnvPath); ok {
		s.Path = filepath.SplitList(path)
	} else {
		s.Path = cfg.DefaultSearchPath()
	}

	cwd, err := virtualOS.Getwd()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoWorkingDir, err)
	}
	s.Cwd = cwd

	s.Prompt = s.defaultPrompt()

	return s, nil
}

// IsLoginShell reports whether argv names a login shell: either a single
// argument starting with '-' or exactly one "-l" flag.
func IsLoginShell(argv []string) bool {
	switch {
	case len(argv) == 1:
		return strings.HasPrefix(argv[0], "-")
	case len(argv) == 2:
		return argv[1] == "-l"
	default:
		return false
	}
}

func (s *Shell) defaultPrompt() string {
	host, err := s.OS.Hostname()
	if err != nil || host == "" {
		host = s.Config.FallbackHostname
	}

	suffix := s.Config.UserPromptSuffix
	if s.UID == 0 {
		suffix = s.Config.RootPromptSuffix
	}

	return host + suffix + " "
}

// PromptString is the prompt shown before reading an interactive line.
func (s *Shell) PromptString() string {
	if prompt, ok := s.Variables.LookupEnv(PromptVar); ok {
		return prompt
	}
	return s.Prompt
}

// Exited reports whether the exit builtin has been run.
func (s *Shell) Exited() bool {
	return s.quit
}

func (s *Shell) stderr() io.Writer {
	return s.OS.Stderr()
}

// Execute runs a single line. It returns true if the line asked the shell to
// exit. Blank lines do nothing.
func (s *Shell) Execute(line string) (bool, error) {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return false, nil
	}

	inv, err := s.Resolve(tokens)
	if err != nil {
		s.record(&logger.InvalidInvocation{Line: line, Error: err.Error()})
		return false, err
	}
	defer inv.Close()

	if builtin, ok := AllBuiltins[inv.Command]; ok {
		s.Status = builtin.Main(s, inv)
		s.record(&logger.RunCommand{Command: inv.Args, Builtin: true, Status: s.Status})
		return s.quit, nil
	}

	path, err := vos.LookPath(s.OS, inv.Command, s.Path, s.Cwd)
	if err != nil {
		err = &CommandNotFoundError{Name: inv.Command}
		s.record(&logger.UnknownCommand{Command: inv.Args, Error: err.Error()})
		return false, err
	}

	status, err := s.Run(inv, path)
	if err != nil {
		err = fmt.Errorf("%s: %w", inv.Command, err)
		s.record(&logger.UnknownCommand{Command: inv.Args, Error: err.Error()})
		return false, err
	}

	s.Status = status.ShellStatus()
	event := &logger.RunCommand{Command: inv.Args, ResolvedCommandPath: path, Status: s.Status}
	if status.Signaled() {
		event.Signal = status.Signal.String()
	}
	s.record(event)
	return false, nil
}

// Run starts the program at path with the invocation's arguments,
// environment overrides and descriptor table, then waits for it.
func (s *Shell) Run(inv *Invocation, path string) (vos.ExitStatus, error) {
	env := vos.NewMapEnvFromEnvList(s.OS.Environ())
	for _, e := range inv.Env {
		env.Setenv(e.Key, e.Value)
	}

	proc, err := s.OS.StartProcess(path, inv.Args, &vos.ProcAttr{
		Dir:   s.Cwd,
		Env:   env.Environ(),
		Files: inv.Files,
	})
	if err != nil {
		return vos.ExitStatus{}, err
	}
	return proc.Wait()
}

// ExecuteAndReport runs a line like Execute and writes any error to the
// shell's standard error, setting the status to 1. It returns true if the
// line asked the shell to exit.
func (s *Shell) ExecuteAndReport(line string) bool {
	quit, err := s.Execute(line)
	if err != nil {
		s.report(err)
	}
	return quit
}

func (s *Shell) report(err error) {
	s.Status = 1

	var notFound *CommandNotFoundError
	if errors.As(err, &notFound) {
		fmt.Fprintln(s.stderr(), notFound.Error())
		return
	}
	fmt.Fprintf(s.stderr(), "%s: %v\n", ShellName, err)
}

func (s *Shell) record(event logger.Event) {
	_ = s.Events.Record(event)
}
