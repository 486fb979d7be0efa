package vos

import (
	"errors"
	"io/fs"

	"github.com/josephlewis42/rsh/third_party/realpath"
	"github.com/spf13/afero"
)

// Realpath canonicalizes an absolute path, resolving "." and ".." entries and
// following symlinks the filesystem knows about.
func Realpath(base VFS, name string) (string, error) {
	return realpath.Realpath(&realpathOs{base: base}, name)
}

type realpathOs struct {
	base VFS
}

var _ realpath.OS = (*realpathOs)(nil)

func (r *realpathOs) Getwd() (string, error) {
	return "/", nil
}

func (r *realpathOs) Lstat(name string) (fs.FileInfo, error) {
	if lstater, ok := r.base.(afero.Lstater); ok {
		stat, _, err := lstater.LstatIfPossible(name)
		return stat, err
	}
	return r.base.Stat(name)
}

func (r *realpathOs) Readlink(name string) (string, error) {
	if reader, ok := r.base.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(name)
	}
	return "", errors.New("not a link")
}
