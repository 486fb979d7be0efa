package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/josephlewis42/rsh/core/logger"
	"github.com/josephlewis42/rsh/core/vos"
)

// CheckFile reports whether a startup file may be run. It must be readable
// by its owner and owned by the current user, or readable by its group and
// owned by the current group.
func CheckFile(v vos.VOS, path string) (bool, error) {
	st, err := v.FileStat(path)
	if err != nil {
		return false, err
	}

	ownerReadable := st.UID == v.Getuid() && st.Mode&0400 != 0
	groupReadable := st.GID == v.Getgid() && st.Mode&0040 != 0
	return ownerReadable || groupReadable, nil
}

// Interpret runs a script.
//
// Files starting with "#!" are started as a program with the path as the
// only argument and the shell's environment. Otherwise each line is run like
// interactive input, skipping blank lines and lines starting with '#'. Errors
// on a line are reported and the next line runs. A line running exit stops
// the file but not the shell.
func (s *Shell) Interpret(path string) (err error) {
	event := &logger.Interpret{Path: path}
	defer func() {
		if err != nil {
			event.Error = err.Error()
		}
		s.record(event)
	}()

	if !utf8.ValidString(path) {
		return vos.ErrInvalidUnicode
	}

	fullPath := s.abs(path)
	f, err := s.OS.Open(fullPath)
	if err != nil {
		return fmt.Errorf("%s: %w", path, vos.FromErrno(err))
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for lineNo := 0; ; lineNo++ {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("%s: %w", path, vos.FromErrno(readErr))
		}
		if line == "" && readErr != nil {
			return nil
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		if lineNo == 0 && strings.HasPrefix(line, "#!") {
			event.Shebang = true
			return s.runScript(path, fullPath)
		}

		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") && s.ExecuteAndReport(line) {
			s.quit = false
			return nil
		}
		if readErr != nil {
			return nil
		}
	}
}

func (s *Shell) runScript(path, fullPath string) error {
	proc, err := s.OS.StartProcess(fullPath, []string{path}, &vos.ProcAttr{
		Dir:   s.Cwd,
		Env:   s.OS.Environ(),
		Files: vos.Stdio(s.OS),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	status, err := proc.Wait()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.Status = status.ShellStatus()
	return nil
}

// InterpretRC runs a file from the home directory if CheckFile allows it.
// Missing files are skipped.
func (s *Shell) InterpretRC(name string) error {
	path := filepath.Join(s.Home, name)

	ok, err := CheckFile(s.OS, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", path, err)
	case !ok:
		return nil
	}

	return s.Interpret(path)
}

// OnStart runs the startup files. Login shells run the system login script
// and the login rc files, other shells run the plain rc files. Every file is
// attempted and the failures are returned together.
func (s *Shell) OnStart() error {
	var errs []error

	names := s.Config.RCFiles
	if s.IsLogin {
		names = s.Config.LoginRCFiles

		script := s.Config.LoginScript
		if _, err := s.OS.Stat(script); !errors.Is(err, fs.ErrNotExist) {
			if err := s.Interpret(script); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, name := range names {
		if err := s.InterpretRC(name); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// HandleArguments processes the shell's arguments, not including the program
// name. "-" starts an interactive session on lines, other arguments starting
// with '-' are ignored and everything else is interpreted as a script. If no
// script or "-" was given an interactive session is started. The first
// script that fails stops processing.
func (s *Shell) HandleArguments(args []string, lines LineReader) error {
	ran := false
	for _, arg := range args {
		if s.quit {
			return nil
		}

		switch {
		case arg == "-":
			ran = true
			if err := s.Interact(lines); err != nil {
				return err
			}
		case strings.HasPrefix(arg, "-"):
			continue
		default:
			ran = true
			if err := s.Interpret(arg); err != nil {
				return err
			}
		}
	}

	if !ran {
		return s.Interact(lines)
	}
	return nil
}
