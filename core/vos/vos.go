package vos

import (
	"io"

	"github.com/spf13/afero"
)

// VFS implements a virtual filesystem.
type VFS = afero.Fs

// VIO holds the standard streams of a process.
type VIO interface {
	Stdin() io.ReadCloser
	Stdout() io.WriteCloser
	Stderr() io.WriteCloser
}

// VProc holds facts about the running process and the user it runs as.
type VProc interface {
	// Args holds the command line arguments, including the program name as
	// Args[0].
	Args() []string

	// Getuid returns the real user ID of the caller.
	Getuid() int

	// Getgid returns the real group ID of the caller.
	Getgid() int

	// Getwd returns the working directory. It fails with ErrInvalidUnicode if
	// the directory can't be represented as UTF-8.
	Getwd() (string, error)

	// Hostname returns the name of the host.
	Hostname() (string, error)

	// LookupHomeDir finds the home directory of the user with the given ID in
	// the password database. It returns ErrNotFound if the user or their home
	// directory don't exist.
	LookupHomeDir(uid int) (string, error)
}

// FileStat holds the ownership and permission bits of a file.
type FileStat struct {
	UID  int
	GID  int
	Mode uint32
}

// VOS provides a virtual OS interface.
type VOS interface {
	VEnv
	VIO
	VProc
	VFS

	// FileStat returns the owner, group and raw mode of the named file.
	FileStat(name string) (FileStat, error)

	// StartProcess starts a new process with the program at path. The child
	// gets argv, the environment, working directory and descriptor table in
	// attr. Failures to create the process or load the program are reported
	// as *Errno.
	StartProcess(path string, argv []string, attr *ProcAttr) (Process, error)
}
