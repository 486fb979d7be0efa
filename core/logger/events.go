package logger

// Event is a single kind of shell event.
type Event interface {
	eventType() string
	fields() map[string]interface{}
}

const (
	RunCommandType        = "run_command"
	UnknownCommandType    = "unknown_command"
	InvalidInvocationType = "invalid_invocation"
	InterpretType         = "interpret"
)

// RunCommand is logged after an external program or builtin finishes.
type RunCommand struct {
	Command             []string
	ResolvedCommandPath string
	Builtin             bool
	Status              int
	// Signal names the signal that terminated the program, if any.
	Signal string
}

func (e *RunCommand) eventType() string {
	return RunCommandType
}

func (e *RunCommand) fields() map[string]interface{} {
	return map[string]interface{}{
		"command":               toList(e.Command),
		"resolved_command_path": e.ResolvedCommandPath,
		"builtin":               e.Builtin,
		"status":                e.Status,
		"signal":                e.Signal,
	}
}

// UnknownCommand is logged when a command can't be found or started.
type UnknownCommand struct {
	Command []string
	Error   string
}

func (e *UnknownCommand) eventType() string {
	return UnknownCommandType
}

func (e *UnknownCommand) fields() map[string]interface{} {
	return map[string]interface{}{
		"command": toList(e.Command),
		"error":   e.Error,
	}
}

// InvalidInvocation is logged when a line can't be turned into a command.
type InvalidInvocation struct {
	Line  string
	Error string
}

func (e *InvalidInvocation) eventType() string {
	return InvalidInvocationType
}

func (e *InvalidInvocation) fields() map[string]interface{} {
	return map[string]interface{}{
		"line":  e.Line,
		"error": e.Error,
	}
}

// Interpret is logged when a script or rc file is run.
type Interpret struct {
	Path    string
	Shebang bool
	Error   string
}

func (e *Interpret) eventType() string {
	return InterpretType
}

func (e *Interpret) fields() map[string]interface{} {
	return map[string]interface{}{
		"path":    e.Path,
		"shebang": e.Shebang,
		"error":   e.Error,
	}
}

func toList(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
