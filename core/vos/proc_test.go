package vos_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/josephlewis42/rsh/core/vos"
	"github.com/josephlewis42/rsh/core/vos/vostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTable_Dup(t *testing.T) {
	stdio := vos.Stdio(vos.NewNullIO())

	t.Run("open target", func(t *testing.T) {
		table := append(vos.FileTable(nil), stdio...)
		require.NoError(t, table.Dup(2, 1))
		assert.Same(t, table.Get(1), table.Get(2))
	})

	t.Run("grows", func(t *testing.T) {
		table := append(vos.FileTable(nil), stdio...)
		require.NoError(t, table.Dup(5, 1))
		assert.Len(t, table, 6)
		assert.Nil(t, table.Get(4))
		assert.Same(t, table.Get(1), table.Get(5))
	})

	t.Run("closed target", func(t *testing.T) {
		table := append(vos.FileTable(nil), stdio...)
		err := table.Dup(1, 7)
		assert.ErrorIs(t, err, syscall.EBADF)
		assert.Same(t, stdio[1], table.Get(1))
	})

	t.Run("out of range", func(t *testing.T) {
		table := append(vos.FileTable(nil), stdio...)
		assert.ErrorIs(t, table.Set(vos.MaxFd+1, stdio[1]), syscall.EBADF)
		assert.ErrorIs(t, table.Set(-1, stdio[1]), syscall.EBADF)
	})
}

func TestExitStatus_ShellStatus(t *testing.T) {
	cases := map[string]struct {
		status vos.ExitStatus
		want   int
		str    string
	}{
		"success":  {status: vos.ExitStatus{}, want: 0, str: "exit status 0"},
		"failure":  {status: vos.ExitStatus{Code: 3}, want: 3, str: "exit status 3"},
		"signaled": {status: vos.ExitStatus{Signal: syscall.SIGKILL}, want: 137, str: "signal: killed"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.status.ShellStatus())
			assert.Equal(t, tc.str, tc.status.String())
		})
	}
}

func TestLookPath(t *testing.T) {
	fakeOS := vostest.NewOS()
	fakeOS.Install("/usr/bin/ls", vostest.Exit(0))
	fakeOS.Install("/bin/ls", vostest.Exit(0))
	fakeOS.Install("/home/user/bin/tool", vostest.Exit(0))

	dirs := []string{"", "/missing", "/usr/bin", "/bin"}

	cases := map[string]struct {
		name    string
		want    string
		wantErr error
	}{
		"first match wins": {name: "ls", want: "/usr/bin/ls"},
		"later directory":  {name: "echo", want: "/bin/echo"},
		"absolute":         {name: "/not/checked", want: "/not/checked"},
		"relative":         {name: "bin/tool", want: "/home/user/bin/tool"},
		"relative dot dot": {name: "../user/./bin/tool", want: "/home/user/bin/tool"},
		"relative missing": {name: "./nope", wantErr: vos.ErrNotFound},
		"missing":          {name: "nope", wantErr: vos.ErrNotFound},
		"exact match only": {name: "LS", wantErr: vos.ErrNotFound},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := vos.LookPath(fakeOS, tc.name, dirs, "/home/user")

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLookPath_relativeDirectories(t *testing.T) {
	fakeOS := vostest.NewOS()
	fakeOS.Install("/home/user/tool", vostest.Exit(0))
	fakeOS.Install("/tmp/tool", vostest.Exit(0))
	fakeOS.Install("/tmp/bin/other", vostest.Exit(0))

	dirs := []string{".", "bin", "/bin"}

	got, err := vos.LookPath(fakeOS, "tool", dirs, "/home/user")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/tool", got)

	got, err = vos.LookPath(fakeOS, "tool", dirs, "/tmp")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tool", got)

	got, err = vos.LookPath(fakeOS, "other", dirs, "/tmp")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/bin/other", got)

	_, err = vos.LookPath(fakeOS, "other", dirs, "/home/user")
	assert.ErrorIs(t, err, vos.ErrNotFound)
}

func TestRealpath_symlinks(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(real, "prog"), []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.Symlink("real", filepath.Join(dir, "link")))

	hostOS := vos.NewHostOS([]string{"rsh"}, nil, nil, nil)

	// TempDir may itself live behind a symlink.
	want, err := filepath.EvalSymlinks(filepath.Join(real, "prog"))
	require.NoError(t, err)

	got, err := vos.LookPath(hostOS, "link/prog", nil, dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
