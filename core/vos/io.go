package vos

import (
	"io"
	"os"
	"syscall"
)

type VIOAdapter struct {
	IStdin  io.ReadCloser
	IStdout io.WriteCloser
	IStderr io.WriteCloser
}

func NewVIOAdapter(stdin io.Reader, stdout, stderr io.Writer) *VIOAdapter {
	return &VIOAdapter{
		IStdin:  toReadCloserOrDiscard(stdin),
		IStdout: toWriteCloserOrDiscard(stdout),
		IStderr: toWriteCloserOrDiscard(stderr),
	}
}

// NewNullIO creates a valid /dev/null style I/O, reads won't work and
// writes will be discarded.
func NewNullIO() VIO {
	return NewVIOAdapter(nil, nil, nil)
}

var _ VIO = (*VIOAdapter)(nil)

func (pr *VIOAdapter) Stdin() io.ReadCloser {
	return pr.IStdin
}

func (pr *VIOAdapter) Stdout() io.WriteCloser {
	return pr.IStdout
}

func (pr *VIOAdapter) Stderr() io.WriteCloser {
	return pr.IStderr
}

func toWriteCloserOrDiscard(w io.Writer) io.WriteCloser {
	if w == nil {
		return &devNull{}
	}
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}

	return nopWriteCloser{w}
}

func toReadCloserOrDiscard(r io.Reader) io.ReadCloser {
	if r == nil {
		return &devNull{}
	}
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}

	return io.NopCloser(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// devNull implements io.Reader and io.Writer, always closing for reads and
// discarding writes.
type devNull struct{}

var _ io.ReadCloser = (*devNull)(nil)
var _ io.WriteCloser = (*devNull)(nil)

func (*devNull) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func (*devNull) Close() error {
	return nil
}

func (*devNull) Write(b []byte) (int, error) {
	return len(b), nil
}

// File is an open descriptor that can be placed in a child's descriptor
// table. *os.File and afero.File both satisfy it.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Name() string
}

// Stdio builds a descriptor table holding the three standard streams.
func Stdio(vio VIO) FileTable {
	return FileTable{
		ReadOnlyFile("/dev/stdin", vio.Stdin()),
		WriteOnlyFile("/dev/stdout", vio.Stdout()),
		WriteOnlyFile("/dev/stderr", vio.Stderr()),
	}
}

// ReadOnlyFile adapts a reader into a File. Readers that already are a File
// are returned as-is, otherwise writes fail with EBADF and Close is a no-op.
func ReadOnlyFile(name string, r io.Reader) File {
	if f, ok := r.(File); ok {
		return f
	}
	return &streamFile{name: name, r: r}
}

// WriteOnlyFile adapts a writer into a File. Writers that already are a File
// are returned as-is, otherwise reads fail with EBADF and Close is a no-op.
func WriteOnlyFile(name string, w io.Writer) File {
	if f, ok := w.(File); ok {
		return f
	}
	return &streamFile{name: name, w: w}
}

// Underlying returns the reader or writer a File was adapted from, or the
// File itself.
func Underlying(f File) interface{} {
	if sf, ok := f.(*streamFile); ok {
		if sf.r != nil {
			return sf.r
		}
		return sf.w
	}
	return f
}

type streamFile struct {
	name string
	r    io.Reader
	w    io.Writer
}

var _ File = (*streamFile)(nil)

func (s *streamFile) Read(b []byte) (int, error) {
	if s.r == nil {
		return 0, NewErrno(syscall.EBADF)
	}
	return s.r.Read(b)
}

func (s *streamFile) Write(b []byte) (int, error) {
	if s.w == nil {
		return 0, NewErrno(syscall.EBADF)
	}
	return s.w.Write(b)
}

func (s *streamFile) Close() error {
	return nil
}

func (s *streamFile) Name() string {
	return s.name
}
