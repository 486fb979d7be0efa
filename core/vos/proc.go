package vos

import (
	"fmt"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
)

// MaxFd is the highest descriptor number a FileTable accepts.
const MaxFd = 255

// FileTable is a child's descriptor table indexed by descriptor number. A nil
// entry is a closed descriptor.
type FileTable []File

// Get returns the file open at fd or nil if it's closed.
func (ft FileTable) Get(fd int) File {
	if fd < 0 || fd >= len(ft) {
		return nil
	}
	return ft[fd]
}

// Set places f at fd, growing the table as needed.
func (ft *FileTable) Set(fd int, f File) error {
	if fd < 0 || fd > MaxFd {
		return NewErrno(syscall.EBADF)
	}
	for len(*ft) <= fd {
		*ft = append(*ft, nil)
	}
	(*ft)[fd] = f
	return nil
}

// Dup makes fd refer to the same file as target, like dup2(target, fd).
func (ft *FileTable) Dup(fd, target int) error {
	f := ft.Get(target)
	if f == nil {
		return NewErrno(syscall.EBADF)
	}
	return ft.Set(fd, f)
}

// ProcAttr holds the attributes that will be applied to a new process started
// by StartProcess.
type ProcAttr struct {
	// If Dir is non-empty, the child changes into the directory before
	// creating the process.
	Dir string

	// Env holds the child's environment in "key=value" form.
	Env []string

	// Files is the child's descriptor table, Files[0] through Files[2] are
	// the standard streams.
	Files FileTable
}

// ExitStatus is the way a child terminated.
type ExitStatus struct {
	// Code is the exit code for processes that exited normally.
	Code int

	// Signal is set if the process was terminated by a signal.
	Signal syscall.Signal
}

// Signaled reports whether the process was terminated by a signal.
func (e ExitStatus) Signaled() bool {
	return e.Signal != 0
}

// ShellStatus converts the exit status into the number a shell reports,
// 128 plus the signal number for signalled processes.
func (e ExitStatus) ShellStatus() int {
	if e.Signaled() {
		return 128 + int(e.Signal)
	}
	return e.Code
}

func (e ExitStatus) String() string {
	if e.Signaled() {
		return fmt.Sprintf("signal: %s", e.Signal)
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Process is a started child process.
type Process interface {
	// Wait blocks until the process terminates.
	Wait() (ExitStatus, error)
}

// LookPath resolves a command name to the program path.
//
// Names containing a slash are never searched for: absolute names are
// returned unchanged and relative ones are joined to cwd and canonicalized.
// Other names are matched exactly against the entries of each directory in
// dirs, the first match wins. Relative directories are taken from cwd. Empty
// and unreadable directories are skipped. ErrNotFound is returned if nothing
// matches.
func LookPath(vos VOS, name string, dirs []string, cwd string) (string, error) {
	if strings.Contains(name, "/") {
		if filepath.IsAbs(name) {
			return name, nil
		}

		resolved, err := Realpath(vos, filepath.Join(cwd, name))
		if err != nil {
			return "", ErrNotFound
		}
		return resolved, nil
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}

		entries, err := afero.ReadDir(vos, dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.Name() == name {
				return filepath.Join(dir, name), nil
			}
		}
	}
	return "", ErrNotFound
}
