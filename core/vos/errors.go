package vos

import (
	"errors"
	"strings"
	"syscall"
	"unicode/utf8"
)

var (
	// ErrInvalidCString is returned when a string handed to the operating
	// system contains a NUL byte.
	ErrInvalidCString = errors.New("string contains an interior NUL byte")

	// ErrInvalidUnicode is returned when a value from the operating system is
	// not valid UTF-8.
	ErrInvalidUnicode = errors.New("value is not valid UTF-8")

	// ErrNotFound is returned when an expected value, user, path or operand
	// doesn't exist.
	ErrNotFound = errors.New("value was not found")
)

// Errno is an operating system error number along with its description.
type Errno struct {
	Code syscall.Errno
	Text string
}

var _ error = (*Errno)(nil)

// NewErrno creates an Errno from the given error number.
func NewErrno(code syscall.Errno) *Errno {
	return &Errno{Code: code, Text: code.Error()}
}

func (e *Errno) Error() string {
	return e.Text
}

// Unwrap exposes the error number so errors.Is works with syscall.Errno
// values and the io/fs sentinels.
func (e *Errno) Unwrap() error {
	return e.Code
}

// FromErrno converts errors that carry an operating system error number into
// an *Errno. Other errors are returned unchanged.
func FromErrno(err error) error {
	if err == nil {
		return nil
	}

	var errno *Errno
	if errors.As(err, &errno) {
		return errno
	}

	var code syscall.Errno
	if errors.As(err, &code) {
		return NewErrno(code)
	}

	return err
}

// CheckCString returns ErrInvalidCString if any of the values can't be passed
// to the operating system as a C string.
func CheckCString(values ...string) error {
	for _, v := range values {
		if strings.IndexByte(v, 0) >= 0 {
			return ErrInvalidCString
		}
	}
	return nil
}

// CheckUnicode returns ErrInvalidUnicode if the value isn't UTF-8.
func CheckUnicode(value string) (string, error) {
	if !utf8.ValidString(value) {
		return "", ErrInvalidUnicode
	}
	return value, nil
}
