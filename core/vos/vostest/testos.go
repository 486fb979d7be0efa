// Package vostest provides a deterministic in-memory VOS for tests.
package vostest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/josephlewis42/rsh/core/vos"
	"github.com/spf13/afero"
)

// ProcessFunc is the body of a fake program, it returns the exit code.
type ProcessFunc func(p *Proc) int

// Proc is a running fake program.
type Proc struct {
	Path  string
	Argv  []string
	Env   *vos.MapEnv
	Dir   string
	Files vos.FileTable
	OS    *OS

	// KilledBy can be set to report the process as terminated by a signal.
	KilledBy syscall.Signal
}

// Stdin returns descriptor 0 or a closed reader.
func (p *Proc) Stdin() io.Reader {
	if f := p.Files.Get(0); f != nil {
		return f
	}
	return strings.NewReader("")
}

// Stdout returns descriptor 1 or a writer that discards output.
func (p *Proc) Stdout() io.Writer {
	if f := p.Files.Get(1); f != nil {
		return f
	}
	return io.Discard
}

// Stderr returns descriptor 2 or a writer that discards output.
func (p *Proc) Stderr() io.Writer {
	if f := p.Files.Get(2); f != nil {
		return f
	}
	return io.Discard
}

// Spawn records a call to StartProcess.
type Spawn struct {
	Path string
	Argv []string
	Env  []string
	Dir  string
}

// OS is a fake VOS. Programs are registered by path with Install and run
// synchronously when the process is waited on.
type OS struct {
	afero.Fs
	*vos.MapEnv
	*vos.VIOAdapter

	Argv      []string
	UID       int
	GID       int
	Cwd       string
	Host      string
	HostErr   error
	HomeDirs  map[int]string
	Owners    map[string]vos.FileStat
	Processes map[string]ProcessFunc
	Spawned   []Spawn

	StdinBuf  *bytes.Buffer
	StdoutBuf *bytes.Buffer
	StderrBuf *bytes.Buffer
}

var _ vos.VOS = (*OS)(nil)

// NewOS creates a fake OS for user "user" (uid 1000) logged in to "testhost"
// with a few programs in /bin.
func NewOS(argv ...string) *OS {
	if len(argv) == 0 {
		argv = []string{"rsh"}
	}

	stdin, stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
	o := &OS{
		Fs:         afero.NewMemMapFs(),
		MapEnv:     vos.NewMapEnvFromEnvList([]string{"PATH=/usr/bin:/bin", "HOME=/home/user", "USER=user"}),
		VIOAdapter: vos.NewVIOAdapter(stdin, stdout, stderr),

		Argv: argv,
		UID:  1000,
		GID:  1000,
		Cwd:  "/home/user",
		Host: "testhost",
		HomeDirs: map[int]string{
			0:    "/root",
			1000: "/home/user",
		},
		Owners:    map[string]vos.FileStat{},
		Processes: map[string]ProcessFunc{},

		StdinBuf:  stdin,
		StdoutBuf: stdout,
		StderrBuf: stderr,
	}

	for _, dir := range []string{"/bin", "/usr/bin", "/etc", "/tmp", "/root", "/home/user"} {
		o.MkdirAll(dir, 0755)
	}

	o.Install("/bin/echo", Echo)
	o.Install("/bin/cat", Cat)
	o.Install("/bin/env", Env)
	o.Install("/bin/true", Exit(0))
	o.Install("/bin/false", Exit(1))

	return o
}

// Install registers a fake program and creates its executable file.
func (o *OS) Install(name string, process ProcessFunc) {
	o.MkdirAll(path.Dir(name), 0755)
	afero.WriteFile(o.Fs, name, []byte("#fake\n"), 0755)
	o.Processes[name] = process
}

// WriteFile creates a file owned by uid and gid with the given mode.
func (o *OS) WriteFile(name, contents string, uid, gid int, mode os.FileMode) error {
	if err := o.MkdirAll(path.Dir(name), 0755); err != nil {
		return err
	}
	if err := afero.WriteFile(o.Fs, name, []byte(contents), mode); err != nil {
		return err
	}
	o.Owners[name] = vos.FileStat{UID: uid, GID: gid, Mode: uint32(mode.Perm())}
	return nil
}

// ReadFile reads a file from the fake filesystem, returning the error text if
// it can't be read.
func (o *OS) ReadFile(name string) string {
	contents, err := afero.ReadFile(o.Fs, name)
	if err != nil {
		return err.Error()
	}
	return string(contents)
}

// Args implements vos.VProc.Args.
func (o *OS) Args() []string {
	return o.Argv
}

// Getuid implements vos.VProc.Getuid.
func (o *OS) Getuid() int {
	return o.UID
}

// Getgid implements vos.VProc.Getgid.
func (o *OS) Getgid() int {
	return o.GID
}

// Getwd implements vos.VProc.Getwd.
func (o *OS) Getwd() (string, error) {
	if o.Cwd == "" {
		return "", vos.NewErrno(syscall.ENOENT)
	}
	return vos.CheckUnicode(o.Cwd)
}

// Hostname implements vos.VProc.Hostname.
func (o *OS) Hostname() (string, error) {
	if o.HostErr != nil {
		return "", o.HostErr
	}
	return vos.CheckUnicode(o.Host)
}

// LookupHomeDir implements vos.VProc.LookupHomeDir.
func (o *OS) LookupHomeDir(uid int) (string, error) {
	home, ok := o.HomeDirs[uid]
	if !ok {
		return "", vos.ErrNotFound
	}
	return home, nil
}

// FileStat implements vos.VOS.FileStat. Files without a registered owner
// belong to the current user.
func (o *OS) FileStat(name string) (vos.FileStat, error) {
	if err := vos.CheckCString(name); err != nil {
		return vos.FileStat{}, err
	}

	fi, err := o.Stat(name)
	if err != nil {
		return vos.FileStat{}, vos.FromErrno(err)
	}
	if st, ok := o.Owners[name]; ok {
		return st, nil
	}
	return vos.FileStat{UID: o.UID, GID: o.GID, Mode: uint32(fi.Mode().Perm())}, nil
}

// StartProcess implements vos.VOS.StartProcess.
func (o *OS) StartProcess(name string, argv []string, attr *vos.ProcAttr) (vos.Process, error) {
	if attr == nil {
		attr = &vos.ProcAttr{}
	}
	if err := vos.CheckCString(append(append([]string{name}, argv...), attr.Env...)...); err != nil {
		return nil, err
	}

	o.Spawned = append(o.Spawned, Spawn{
		Path: name,
		Argv: append([]string(nil), argv...),
		Env:  append([]string(nil), attr.Env...),
		Dir:  attr.Dir,
	})

	process, ok := o.Processes[name]
	if !ok {
		if _, err := o.Stat(name); err != nil {
			return nil, vos.NewErrno(syscall.ENOENT)
		}
		return nil, vos.NewErrno(syscall.EACCES)
	}

	return &fakeProcess{
		run: process,
		proc: &Proc{
			Path:  name,
			Argv:  argv,
			Env:   vos.NewMapEnvFromEnvList(attr.Env),
			Dir:   attr.Dir,
			Files: append(vos.FileTable(nil), attr.Files...),
			OS:    o,
		},
	}, nil
}

type fakeProcess struct {
	run  ProcessFunc
	proc *Proc
}

func (f *fakeProcess) Wait() (vos.ExitStatus, error) {
	code := f.run(f.proc)
	if f.proc.KilledBy != 0 {
		return vos.ExitStatus{Signal: f.proc.KilledBy}, nil
	}
	return vos.ExitStatus{Code: code}, nil
}

// Echo writes its arguments separated by spaces.
func Echo(p *Proc) int {
	fmt.Fprintln(p.Stdout(), strings.Join(p.Argv[1:], " "))
	return 0
}

// Env writes the sorted environment, one variable per line.
func Env(p *Proc) int {
	for _, e := range p.Env.Environ() {
		fmt.Fprintln(p.Stdout(), e)
	}
	return 0
}

// Cat copies the named files, or standard input, to standard output.
func Cat(p *Proc) int {
	if len(p.Argv) < 2 {
		scanner := bufio.NewScanner(p.Stdin())
		for scanner.Scan() {
			fmt.Fprintln(p.Stdout(), scanner.Text())
		}
		return 0
	}

	status := 0
	for _, name := range p.Argv[1:] {
		if !path.IsAbs(name) {
			name = path.Join(p.Dir, name)
		}
		contents, err := afero.ReadFile(p.OS, name)
		if err != nil {
			fmt.Fprintf(p.Stderr(), "cat: %s: No such file or directory\n", name)
			status = 1
			continue
		}
		p.Stdout().Write(contents)
	}
	return status
}

// Exit returns a program that exits with the given code.
func Exit(code int) ProcessFunc {
	return func(*Proc) int {
		return code
	}
}

// Killed returns a program that reports being terminated by sig.
func Killed(sig syscall.Signal) ProcessFunc {
	return func(p *Proc) int {
		p.KilledBy = sig
		return 0
	}
}
