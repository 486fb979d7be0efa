package shell

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/rsh/core/logger"
	"github.com/josephlewis42/rsh/core/vos"
	"github.com/josephlewis42/rsh/core/vos/vostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFile(t *testing.T) {
	cases := map[string]struct {
		uid      int
		gid      int
		mode     os.FileMode
		expected bool
	}{
		"owner readable":             {1000, 1000, 0400, true},
		"owner not readable":         {1000, 2000, 0200, false},
		"group readable":             {2000, 1000, 0040, true},
		"group not readable":         {2000, 1000, 0400, false},
		"other readable only":        {2000, 2000, 0004, false},
		"foreign owner world":        {0, 0, 0644, false},
		"owner unreadable group ok":  {1000, 1000, 0040, true},
		"owner readable wrong group": {1000, 2000, 0400, true},
		"group readable wrong owner": {2000, 2000, 0040, false},
		"owner and group unreadable": {1000, 1000, 0200, false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fakeOS := vostest.NewOS()
			require.NoError(t, fakeOS.WriteFile("/home/user/.cshrc", "", tc.uid, tc.gid, tc.mode))

			ok, err := CheckFile(fakeOS, "/home/user/.cshrc")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestCheckFile_missing(t *testing.T) {
	_, err := CheckFile(vostest.NewOS(), "/home/user/.cshrc")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestInterpret(t *testing.T) {
	s := newTestShell(t)
	require.NoError(t, s.OS.WriteFile("/tmp/script", `# comment
echo one

   # indented comment
nosuchcommand
echo two >out
false
`, 1000, 1000, 0644))

	require.NoError(t, s.Interpret("/tmp/script"))

	assert.Equal(t, "one\n", s.Stdout())
	assert.Equal(t, "nosuchcommand: Command not found.\n", s.Stderr())
	assert.Equal(t, "two\n", s.OS.ReadFile("/home/user/out"))
	assert.Equal(t, 1, s.Status)
	assert.False(t, s.Exited())

	events := s.recorded(t)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, logger.InterpretType, last.Type)
	assert.Equal(t, "/tmp/script", last.GetString("path"))
	assert.Equal(t, "false", last.GetString("shebang"))
	assert.Equal(t, "", last.GetString("error"))
}

func TestInterpret_exitStopsFile(t *testing.T) {
	s := newTestShell(t)
	require.NoError(t, s.OS.WriteFile("/tmp/script", "echo before\nexit\necho after\n", 1000, 1000, 0644))

	require.NoError(t, s.Interpret("/tmp/script"))

	assert.Equal(t, "before\n", s.Stdout())
	assert.False(t, s.Exited())
}

func TestInterpret_longLine(t *testing.T) {
	s := newTestShell(t)
	long := strings.Repeat("x", 100*1024)
	require.NoError(t, s.OS.WriteFile("/tmp/script", "echo "+long+"\r\necho after", 1000, 1000, 0644))

	require.NoError(t, s.Interpret("/tmp/script"))
	assert.Equal(t, long+"\nafter\n", s.Stdout())
}

func TestInterpret_relative(t *testing.T) {
	s := newTestShell(t)
	require.NoError(t, s.OS.WriteFile("/home/user/script", "pwd\n", 1000, 1000, 0644))

	require.NoError(t, s.Interpret("script"))
	assert.Equal(t, "/home/user\n", s.Stdout())
}

func TestInterpret_shebang(t *testing.T) {
	s := newTestShell(t)
	s.OS.Install("/tmp/prog", func(p *vostest.Proc) int {
		io.WriteString(p.Stdout(), "ran "+p.Argv[0]+"\n")
		return 4
	})
	require.NoError(t, s.OS.WriteFile("/tmp/prog", "#!/bin/othershell\necho not interpreted\n", 1000, 1000, 0755))
	s.Cwd = "/tmp"

	require.NoError(t, s.Interpret("prog"))

	assert.Equal(t, "ran prog\n", s.Stdout())
	assert.Equal(t, 4, s.Status)
	require.Len(t, s.OS.Spawned, 1)
	assert.Equal(t, "/tmp/prog", s.OS.Spawned[0].Path)
	assert.Equal(t, []string{"prog"}, s.OS.Spawned[0].Argv)
	assert.Equal(t, s.OS.Environ(), s.OS.Spawned[0].Env)

	events := s.recorded(t)
	require.Len(t, events, 1)
	assert.Equal(t, "true", events[0].GetString("shebang"))
}

func TestInterpret_errors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		s := newTestShell(t)

		err := s.Interpret("/tmp/missing")
		assert.ErrorIs(t, err, fs.ErrNotExist)

		events := s.recorded(t)
		require.Len(t, events, 1)
		assert.Contains(t, events[0].GetString("error"), "/tmp/missing")
	})

	t.Run("invalid unicode", func(t *testing.T) {
		s := newTestShell(t)

		err := s.Interpret("/tmp/\xff")
		assert.ErrorIs(t, err, vos.ErrInvalidUnicode)
	})

	t.Run("shebang not runnable", func(t *testing.T) {
		s := newTestShell(t)
		require.NoError(t, s.OS.WriteFile("/tmp/script", "#!/bin/sh\n", 1000, 1000, 0755))

		err := s.Interpret("/tmp/script")
		assert.ErrorIs(t, err, os.ErrPermission)
	})
}

func TestInterpretRC(t *testing.T) {
	cases := map[string]struct {
		uid      int
		mode     os.FileMode
		expected string
	}{
		"runs":       {1000, 0644, "rc\n"},
		"skipped":    {0, 0644, ""},
		"unreadable": {1000, 0200, ""},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s := newTestShell(t)
			require.NoError(t, s.OS.WriteFile("/home/user/.cshrc", "echo rc\n", tc.uid, 2000, tc.mode))

			require.NoError(t, s.InterpretRC(".cshrc"))
			assert.Equal(t, tc.expected, s.Stdout())
		})
	}

	t.Run("missing", func(t *testing.T) {
		s := newTestShell(t)

		assert.NoError(t, s.InterpretRC(".cshrc"))
		assert.Empty(t, s.recorded(t))
	})
}

func writeStartupFiles(t *testing.T, fakeOS *vostest.OS) {
	t.Helper()

	require.NoError(t, fakeOS.WriteFile("/etc/.login", "echo system login\n", 0, 0, 0644))
	require.NoError(t, fakeOS.WriteFile("/home/user/.cshrc", "echo cshrc\n", 1000, 1000, 0644))
	require.NoError(t, fakeOS.WriteFile("/home/user/.login", "echo login\n", 1000, 1000, 0644))
}

func TestOnStart(t *testing.T) {
	cases := map[string]struct {
		argv     []string
		expected string
	}{
		"login dash":  {[]string{"-rsh"}, "system login\ncshrc\nlogin\n"},
		"login flag":  {[]string{"rsh", "-l"}, "system login\ncshrc\nlogin\n"},
		"non login":   {[]string{"rsh"}, "cshrc\n"},
		"with script": {[]string{"-rsh", "script"}, "cshrc\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fakeOS := vostest.NewOS(tc.argv...)
			writeStartupFiles(t, fakeOS)
			s := newTestShellOS(t, fakeOS)

			require.NoError(t, s.OnStart())
			assert.Equal(t, tc.expected, s.Stdout())
		})
	}
}

func TestOnStart_missingFiles(t *testing.T) {
	s := newTestShell(t, "-rsh")

	assert.NoError(t, s.OnStart())
	assert.Empty(t, s.Stdout())
	assert.Empty(t, s.OS.Spawned)
}

func TestOnStart_errorsDontStop(t *testing.T) {
	fakeOS := vostest.NewOS("-rsh")
	writeStartupFiles(t, fakeOS)
	s := newTestShellOS(t, fakeOS)
	s.Config.LoginRCFiles = []string{".cshrc", "\x00bad", ".login"}

	err := s.OnStart()
	assert.ErrorIs(t, err, vos.ErrInvalidCString)
	assert.Equal(t, "system login\ncshrc\nlogin\n", s.Stdout())
}

type fakeLineReader struct {
	lines   []string
	errs    map[int]error
	prompts []string
	read    int
}

var _ LineReader = (*fakeLineReader)(nil)

func (f *fakeLineReader) Readline() (string, error) {
	defer func() { f.read++ }()

	if err, ok := f.errs[f.read]; ok {
		return "", err
	}
	if f.read >= len(f.lines) {
		return "", io.EOF
	}
	return f.lines[f.read], nil
}

func (f *fakeLineReader) SetPrompt(prompt string) {
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeLineReader) Close() error {
	return nil
}

func TestInteract(t *testing.T) {
	s := newTestShell(t)
	lines := &fakeLineReader{
		lines: []string{"echo a", "", "set prompt=custom", "echo b"},
	}

	require.NoError(t, s.Interact(lines))

	assert.Equal(t, "a\nb\n", s.Stdout())
	assert.Equal(t, []string{"testhost% ", "testhost% ", "testhost% ", "custom", "custom"}, lines.prompts)
	assert.False(t, s.Exited())
}

func TestInteract_exit(t *testing.T) {
	s := newTestShell(t)
	lines := &fakeLineReader{
		lines: []string{"echo a", "exit", "echo b"},
	}

	require.NoError(t, s.Interact(lines))

	assert.Equal(t, "a\n", s.Stdout())
	assert.True(t, s.Exited())
	assert.Equal(t, 2, lines.read)
}

func TestInteract_errors(t *testing.T) {
	s := newTestShell(t)
	broken := errors.New("broken terminal")
	lines := &fakeLineReader{
		lines: []string{"echo a", "echo interrupted", "echo b", "echo c"},
		errs:  map[int]error{1: readline.ErrInterrupt, 3: broken},
	}

	assert.ErrorIs(t, s.Interact(lines), broken)
	assert.Equal(t, "a\nb\n", s.Stdout())

	assert.Error(t, s.Interact(nil))
}

func TestHandleArguments(t *testing.T) {
	cases := map[string]struct {
		args     []string
		expected string
	}{
		"no arguments":       {nil, "interactive\n"},
		"flags only":         {[]string{"-x", "-v"}, "interactive\n"},
		"scripts":            {[]string{"/tmp/one", "-x", "/tmp/two"}, "one\ntwo\n"},
		"dash":               {[]string{"-"}, "interactive\n"},
		"script then dash":   {[]string{"/tmp/one", "-", "/tmp/two"}, "one\ninteractive\ntwo\n"},
		"exit stops scripts": {[]string{"-", "/tmp/one"}, "interactive\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s := newTestShell(t)
			require.NoError(t, s.OS.WriteFile("/tmp/one", "echo one\n", 1000, 1000, 0644))
			require.NoError(t, s.OS.WriteFile("/tmp/two", "echo two\n", 1000, 1000, 0644))

			lines := &fakeLineReader{lines: []string{"echo interactive"}}
			if tn == "exit stops scripts" {
				lines.lines = append(lines.lines, "exit")
			}

			require.NoError(t, s.HandleArguments(tc.args, lines))
			assert.Equal(t, tc.expected, s.Stdout())
		})
	}
}

func TestHandleArguments_failure(t *testing.T) {
	s := newTestShell(t)
	require.NoError(t, s.OS.WriteFile("/tmp/two", "echo two\n", 1000, 1000, 0644))

	err := s.HandleArguments([]string{"/tmp/missing", "/tmp/two"}, nil)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Empty(t, s.Stdout())
}
