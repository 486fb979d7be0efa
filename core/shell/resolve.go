package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/josephlewis42/rsh/core/vos"
)

const (
	// RedirectFlag is used to open the target of "N>path".
	RedirectFlag = os.O_WRONLY | os.O_CREATE
	// AppendFlag is used to open the target of "N>>path".
	AppendFlag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	// RedirectPerm is the permission of files created by a redirection.
	RedirectPerm os.FileMode = 0400
)

// RedirectKind distinguishes file redirections from descriptor duplication.
type RedirectKind int

const (
	RedirectFile RedirectKind = iota
	RedirectDup
)

// Redirect is an output redirection applied to a child's descriptor table.
type Redirect struct {
	// Fd is the descriptor being replaced.
	Fd   int
	Kind RedirectKind
	// Path and Flag are set for RedirectFile.
	Path string
	Flag int
	// Target is the descriptor copied for RedirectDup.
	Target int
}

func (r Redirect) String() string {
	switch {
	case r.Kind == RedirectDup:
		return fmt.Sprintf("%d>&%d", r.Fd, r.Target)
	case r.Flag&os.O_APPEND != 0:
		return fmt.Sprintf("%d>>%s", r.Fd, r.Path)
	default:
		return fmt.Sprintf("%d>%s", r.Fd, r.Path)
	}
}

// EnvVar is a KEY=VALUE override for a single command.
type EnvVar struct {
	Key   string
	Value string
}

// Invocation is a command line ready to be run.
type Invocation struct {
	// Env holds the environment overrides in the order they were given.
	Env []EnvVar
	// Command is the name of the program or builtin.
	Command string
	// Args holds the arguments with Command as Args[0].
	Args []string
	// Redirects holds the redirections in the order they were applied.
	Redirects []Redirect
	// Files is the child's descriptor table with the redirections applied.
	Files vos.FileTable

	opened []vos.File
}

// Close closes the files opened for redirections. The shell's own streams are
// left open.
func (inv *Invocation) Close() error {
	var firstErr error
	for _, f := range inv.opened {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	inv.opened = nil
	return firstErr
}

// EnvOverrides returns the overrides in "key=value" form.
func (inv *Invocation) EnvOverrides() []string {
	var out []string
	for _, e := range inv.Env {
		out = append(out, e.Key+"="+e.Value)
	}
	return out
}

// Resolve turns tokens into an Invocation.
//
// Leading KEY=VALUE tokens become environment overrides and the next token
// is the command. Unquoted tokens containing '>' are redirections, which are
// applied to a copy of the shell's standard streams in order so later ones
// win. Everything else is expanded into an argument. If Resolve fails, any
// files it opened are closed.
func (s *Shell) Resolve(tokens []Token) (*Invocation, error) {
	inv := &Invocation{Files: vos.Stdio(s.OS)}
	if err := s.resolve(inv, tokens); err != nil {
		inv.Close()
		return nil, err
	}
	return inv, nil
}

func (s *Shell) resolve(inv *Invocation, tokens []Token) error {
	i := 0
	for ; i < len(tokens); i++ {
		key, value, ok := assignment(tokens[i])
		if !ok {
			break
		}
		inv.Env = append(inv.Env, EnvVar{Key: key, Value: s.expandField(value)})
	}

	if i == len(tokens) {
		return fmt.Errorf("missing command: %w", vos.ErrNotFound)
	}

	inv.Command = s.expand(tokens[i])
	inv.Args = []string{inv.Command}

	next := func() (Token, bool) {
		if i+1 >= len(tokens) {
			return Token{}, false
		}
		i++
		return tokens[i], true
	}

	for i++; i < len(tokens); i++ {
		tok := tokens[i]
		if !tok.Quoted() && strings.Contains(tok.Value, ">") {
			if err := s.redirect(inv, tok.Value, next); err != nil {
				return err
			}
			continue
		}
		inv.Args = append(inv.Args, s.expand(tok))
	}

	return nil
}

// assignment splits a KEY=VALUE token. Tokens with a '>' before the '=' are
// redirections, not assignments.
func assignment(tok Token) (key, value string, ok bool) {
	eq := strings.IndexByte(tok.Value, '=')
	if eq <= 0 {
		return "", "", false
	}
	if gt := strings.IndexByte(tok.Value, '>'); gt >= 0 && gt < eq {
		return "", "", false
	}
	return tok.Value[:eq], tok.Value[eq+1:], true
}

func (s *Shell) redirect(inv *Invocation, word string, next func() (Token, bool)) error {
	gt := strings.IndexByte(word, '>')

	fd := 1
	if prefix := word[:gt]; prefix != "" {
		n, err := strconv.Atoi(prefix)
		if err != nil || n < 0 {
			return fmt.Errorf("bad descriptor %q: %w", prefix, vos.ErrNotFound)
		}
		fd = n
	}

	operand := func(rest string) (string, error) {
		if rest != "" {
			return rest, nil
		}
		tok, ok := next()
		if !ok {
			return "", fmt.Errorf("missing name for redirect: %w", vos.ErrNotFound)
		}
		return s.expand(tok), nil
	}

	rest := word[gt+1:]
	switch {
	case strings.HasPrefix(rest, "&"):
		target, err := operand(rest[1:])
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(target)
		if err != nil || n < 0 {
			return fmt.Errorf("bad descriptor %q: %w", target, vos.ErrNotFound)
		}
		if err := inv.Files.Dup(fd, n); err != nil {
			return fmt.Errorf("%d>&%d: %w", fd, n, err)
		}
		inv.Redirects = append(inv.Redirects, Redirect{Fd: fd, Kind: RedirectDup, Target: n})
		return nil

	case strings.HasPrefix(rest, ">"):
		return s.redirectFile(inv, fd, AppendFlag, rest[1:], operand)

	default:
		return s.redirectFile(inv, fd, RedirectFlag, rest, operand)
	}
}

func (s *Shell) redirectFile(inv *Invocation, fd, flag int, rest string, operand func(string) (string, error)) error {
	path, err := operand(rest)
	if err != nil {
		return err
	}
	if !utf8.ValidString(path) {
		return vos.ErrInvalidUnicode
	}
	if fd < 0 || fd > vos.MaxFd {
		return fmt.Errorf("%d>%s: %w", fd, path, vos.NewErrno(syscall.EBADF))
	}

	f, err := s.OS.OpenFile(s.abs(path), flag, RedirectPerm)
	if err != nil {
		return fmt.Errorf("%s: %w", path, vos.FromErrno(err))
	}
	inv.opened = append(inv.opened, f)

	if err := inv.Files.Set(fd, f); err != nil {
		return fmt.Errorf("%d>%s: %w", fd, path, err)
	}
	inv.Redirects = append(inv.Redirects, Redirect{Fd: fd, Kind: RedirectFile, Path: path, Flag: flag})
	return nil
}

// expand produces the argument for a token. Single quoted tokens are taken
// literally and double quoted ones have each space separated field expanded.
func (s *Shell) expand(tok Token) string {
	switch tok.Quote {
	case '\'':
		return tok.Value
	case '"':
		fields := strings.Split(tok.Value, " ")
		for i, field := range fields {
			fields[i] = s.expandField(field)
		}
		return strings.Join(fields, " ")
	default:
		return s.expandField(tok.Value)
	}
}

// expandField replaces a field starting with '$' with the value of the
// variable it names. Shell variables are checked first, then the special
// "status" variable, then the environment. Unset variables expand to "".
func (s *Shell) expandField(field string) string {
	if !strings.HasPrefix(field, "$") {
		return field
	}
	return s.lookupVar(field[1:])
}

func (s *Shell) lookupVar(name string) string {
	if value, ok := s.Variables.LookupEnv(name); ok {
		return value
	}
	if name == StatusVar {
		return strconv.Itoa(s.Status)
	}
	return s.OS.Getenv(name)
}

// abs resolves path against the shell's working directory.
func (s *Shell) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Cwd, path)
}
