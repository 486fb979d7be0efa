package vos

import (
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrno(t *testing.T) {
	cases := map[string]struct {
		in       error
		wantCode syscall.Errno
		wantText string
	}{
		"bare errno": {
			in:       syscall.ENOENT,
			wantCode: syscall.ENOENT,
			wantText: "no such file or directory",
		},
		"path error": {
			in:       &fs.PathError{Op: "open", Path: "/x", Err: syscall.EACCES},
			wantCode: syscall.EACCES,
			wantText: "permission denied",
		},
		"already converted": {
			in:       fmt.Errorf("context: %w", NewErrno(syscall.EBADF)),
			wantCode: syscall.EBADF,
			wantText: "bad file descriptor",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got := FromErrno(tc.in)

			errno, ok := got.(*Errno)
			if !ok {
				t.Fatalf("FromErrno() = %T, want *Errno", got)
			}
			assert.Equal(t, tc.wantCode, errno.Code)
			assert.Equal(t, tc.wantText, errno.Error())
		})
	}
}

func TestFromErrno_passthrough(t *testing.T) {
	assert.Nil(t, FromErrno(nil))
	assert.Equal(t, ErrNotFound, FromErrno(ErrNotFound))
}

func TestErrno_Is(t *testing.T) {
	err := fmt.Errorf("open: %w", NewErrno(syscall.ENOENT))

	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, fs.ErrPermission)
}

func TestCheckCString(t *testing.T) {
	assert.NoError(t, CheckCString())
	assert.NoError(t, CheckCString("ls", "-l"))
	assert.ErrorIs(t, CheckCString("ls", "a\x00b"), ErrInvalidCString)
}

func TestCheckUnicode(t *testing.T) {
	got, err := CheckUnicode("/home/ünïcode")
	assert.NoError(t, err)
	assert.Equal(t, "/home/ünïcode", got)

	_, err = CheckUnicode("/home/\xff")
	assert.ErrorIs(t, err, ErrInvalidUnicode)
}
