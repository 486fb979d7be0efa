package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/josephlewis42/rsh/core/config"
	"github.com/josephlewis42/rsh/core/logger"
	"github.com/josephlewis42/rsh/core/shell"
	"github.com/josephlewis42/rsh/core/vos"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Exit codes for failures that stop the shell before it runs anything.
const (
	ExitNoHomeDir    = 3
	ExitNoWorkingDir = 4
	ExitBadConfig    = 5
	ExitScriptFailed = 6
	ExitNoArgs       = 7
)

var (
	cfgPath   string
	verbose   bool
	loginFlag bool
	command   string
)

// ExitError makes the process exit with Code. If Err is set it's printed
// before exiting.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func newAppLogger(cmd *cobra.Command) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(cmd.ErrOrStderr(), "[rsh] ", 0)
}

func loadConfig(appLogger *log.Logger) (*config.Configuration, error) {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)
	if err != nil {
		return nil, &ExitError{Code: ExitBadConfig, Err: err}
	}
	appLogger.Printf("Loaded configuration from %s\n", cfgPath)
	return configuration, nil
}

// openEventLog returns the session event logger and a function that closes
// the log file.
func openEventLog(configuration *config.Configuration, appLogger *log.Logger) (*logger.SessionLogger, func() error, error) {
	if !configuration.HasEventLog() {
		return logger.NewNopLogger().NewSession(), func() error { return nil }, nil
	}

	fd, err := configuration.OpenEventLog()
	if err != nil {
		return nil, nil, &ExitError{Code: ExitBadConfig, Err: fmt.Errorf("opening event log: %w", err)}
	}
	appLogger.Printf("Recording events to %s\n", configuration.EventLogPath())
	return logger.NewJsonLinesLogRecorder(fd).NewSession(), fd.Close, nil
}

// lazyLineReader opens the terminal the first time a line is needed so
// scripts and -c commands never touch it.
type lazyLineReader struct {
	open  func() (shell.LineReader, error)
	lines shell.LineReader
	err   error
}

var _ shell.LineReader = (*lazyLineReader)(nil)

func (l *lazyLineReader) get() (shell.LineReader, error) {
	if l.lines == nil && l.err == nil {
		l.lines, l.err = l.open()
	}
	return l.lines, l.err
}

func (l *lazyLineReader) Readline() (string, error) {
	lines, err := l.get()
	if err != nil {
		return "", err
	}
	return lines.Readline()
}

func (l *lazyLineReader) SetPrompt(prompt string) {
	if lines, err := l.get(); err == nil {
		lines.SetPrompt(prompt)
	}
}

func (l *lazyLineReader) Close() error {
	if l.lines == nil {
		return nil
	}
	return l.lines.Close()
}

func runShell(cmd *cobra.Command, args []string) error {
	appLogger := newAppLogger(cmd)

	if len(os.Args) == 0 {
		return &ExitError{Code: ExitNoArgs, Err: errors.New("empty argument list")}
	}

	configuration, err := loadConfig(appLogger)
	if err != nil {
		return err
	}

	events, closeEvents, err := openEventLog(configuration, appLogger)
	if err != nil {
		return err
	}
	defer closeEvents()

	hostOS := vos.NewHostOS(os.Args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	sh, err := shell.New(hostOS, configuration, events)
	switch {
	case errors.Is(err, shell.ErrNoHomeDir):
		return &ExitError{Code: ExitNoHomeDir, Err: err}
	case errors.Is(err, shell.ErrNoWorkingDir):
		return &ExitError{Code: ExitNoWorkingDir, Err: err}
	case err != nil:
		return err
	}
	appLogger.Printf("Started session %s (login: %t)\n", events.SessionID(), sh.IsLogin)

	if err := sh.OnStart(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", shell.ShellName, err)
	}

	if cmd.Flags().Changed("command") {
		sh.ExecuteAndReport(command)
		if sh.Status != 0 {
			return &ExitError{Code: sh.Status}
		}
		return nil
	}

	lines := &lazyLineReader{
		open: func() (shell.LineReader, error) {
			rl, err := shell.NewReadline(hostOS, func() bool {
				return term.IsTerminal(int(os.Stdin.Fd()))
			})
			if err != nil {
				return nil, err
			}
			return rl, nil
		},
	}
	defer lines.Close()

	if err := sh.HandleArguments(args, lines); err != nil {
		return &ExitError{Code: ExitScriptFailed, Err: err}
	}
	return nil
}

// rootCmd represents the shell when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rsh [flags] [script ...]",
	Short: "A small csh-style command shell",
	Long: `A small csh-style command shell.

Scripts named on the command line are interpreted in order, "-" reads
commands from the terminal. Without scripts the shell is interactive.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{
		UnknownFlags: true,
	},
	RunE: runShell,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	code := 1
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	if exitErr == nil || exitErr.Err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(rootCmd.ErrOrStderr(), "%s: %v\n", shell.ShellName, err)
	}
	os.Exit(code)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	rootCmd.Flags().BoolVarP(&loginFlag, "login", "l", false, "run as a login shell")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command and exit")
}
