package vos

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// HostOS is a VOS backed by the real operating system.
type HostOS struct {
	afero.Fs
	*VIOAdapter

	osFs afero.Fs
	argv []string
}

var _ VOS = (*HostOS)(nil)
var _ afero.Lstater = (*HostOS)(nil)
var _ afero.LinkReader = (*HostOS)(nil)

// NewHostOS creates a VOS for the current process. Nil streams are replaced
// with /dev/null style ones.
func NewHostOS(argv []string, stdin io.Reader, stdout, stderr io.Writer) *HostOS {
	osFs := afero.NewOsFs()
	return &HostOS{
		Fs:         osFs,
		VIOAdapter: NewVIOAdapter(stdin, stdout, stderr),
		osFs:       osFs,
		argv:       argv,
	}
}

// LstatIfPossible implements afero.Lstater.
func (h *HostOS) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	return h.osFs.(afero.Lstater).LstatIfPossible(name)
}

// ReadlinkIfPossible implements afero.LinkReader.
func (h *HostOS) ReadlinkIfPossible(name string) (string, error) {
	return h.osFs.(afero.LinkReader).ReadlinkIfPossible(name)
}

// Args implements VProc.Args.
func (h *HostOS) Args() []string {
	return h.argv
}

// Getuid implements VProc.Getuid.
func (h *HostOS) Getuid() int {
	return unix.Getuid()
}

// Getgid implements VProc.Getgid.
func (h *HostOS) Getgid() int {
	return unix.Getgid()
}

// Getwd implements VProc.Getwd.
func (h *HostOS) Getwd() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", FromErrno(err)
	}
	return CheckUnicode(wd)
}

// Hostname implements VProc.Hostname.
func (h *HostOS) Hostname() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", FromErrno(err)
	}
	return CheckUnicode(name)
}

// LookupHomeDir implements VProc.LookupHomeDir.
func (h *HostOS) LookupHomeDir(uid int) (string, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	var unknown user.UnknownUserIdError
	switch {
	case errors.As(err, &unknown):
		return "", ErrNotFound
	case err != nil:
		return "", FromErrno(err)
	case u.HomeDir == "":
		return "", ErrNotFound
	}
	return CheckUnicode(u.HomeDir)
}

// LookupEnv implements VEnv.LookupEnv.
func (h *HostOS) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Getenv implements VEnv.Getenv.
func (h *HostOS) Getenv(key string) string {
	return os.Getenv(key)
}

// Setenv implements VEnv.Setenv.
func (h *HostOS) Setenv(key, value string) error {
	if err := CheckCString(key, value); err != nil {
		return err
	}
	return FromErrno(os.Setenv(key, value))
}

// Unsetenv implements VEnv.Unsetenv.
func (h *HostOS) Unsetenv(key string) error {
	if err := CheckCString(key); err != nil {
		return err
	}
	return FromErrno(os.Unsetenv(key))
}

// Environ implements VEnv.Environ.
func (h *HostOS) Environ() []string {
	return os.Environ()
}

// FileStat implements VOS.FileStat.
func (h *HostOS) FileStat(name string) (FileStat, error) {
	if err := CheckCString(name); err != nil {
		return FileStat{}, err
	}

	var st unix.Stat_t
	if err := unix.Stat(name, &st); err != nil {
		return FileStat{}, FromErrno(err)
	}

	return FileStat{
		UID:  int(st.Uid),
		GID:  int(st.Gid),
		Mode: uint32(st.Mode),
	}, nil
}

// StartProcess implements VOS.StartProcess.
//
// The child's descriptor table is built from attr.Files; descriptors above 2
// must be backed by an *os.File. The calling process's own descriptors are
// never changed.
func (h *HostOS) StartProcess(path string, argv []string, attr *ProcAttr) (Process, error) {
	if attr == nil {
		attr = &ProcAttr{}
	}
	if err := CheckCString(path); err != nil {
		return nil, err
	}
	if err := CheckCString(argv...); err != nil {
		return nil, err
	}
	if err := CheckCString(attr.Env...); err != nil {
		return nil, err
	}

	cmd := &exec.Cmd{
		Path: path,
		Args: argv,
		Env:  attr.Env,
		Dir:  attr.Dir,
	}
	if cmd.Env == nil {
		cmd.Env = []string{}
	}

	if f := attr.Files.Get(0); f != nil {
		cmd.Stdin = f
		if r, ok := Underlying(f).(io.Reader); ok {
			cmd.Stdin = r
		}
		// exec.Cmd substitutes the null device for a nil Stdin.
		if _, ok := cmd.Stdin.(*devNull); ok {
			cmd.Stdin = nil
		}
	}
	if f := attr.Files.Get(1); f != nil {
		cmd.Stdout = stdWriter(f)
	}
	if f := attr.Files.Get(2); f != nil {
		cmd.Stderr = stdWriter(f)
	}
	for fd := 3; fd < len(attr.Files); fd++ {
		f := attr.Files.Get(fd)
		if f == nil {
			cmd.ExtraFiles = append(cmd.ExtraFiles, nil)
			continue
		}
		osFile, ok := Underlying(f).(*os.File)
		if !ok {
			return nil, fmt.Errorf("descriptor %d: %w", fd, NewErrno(syscall.EBADF))
		}
		cmd.ExtraFiles = append(cmd.ExtraFiles, osFile)
	}

	if err := cmd.Start(); err != nil {
		return nil, FromErrno(err)
	}
	return &hostProcess{cmd: cmd}, nil
}

func stdWriter(f File) io.Writer {
	if w, ok := Underlying(f).(io.Writer); ok {
		return w
	}
	return f
}

type hostProcess struct {
	cmd *exec.Cmd
}

var _ Process = (*hostProcess)(nil)

func (p *hostProcess) Wait() (ExitStatus, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitStatus(exitErr.ProcessState), nil
	case err != nil:
		return ExitStatus{}, FromErrno(err)
	}
	return exitStatus(p.cmd.ProcessState), nil
}

func exitStatus(state *os.ProcessState) ExitStatus {
	ws, ok := state.Sys().(syscall.WaitStatus)
	switch {
	case !ok:
		return ExitStatus{Code: state.ExitCode()}
	case ws.Signaled():
		return ExitStatus{Signal: ws.Signal()}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}
