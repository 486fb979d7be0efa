package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// LogEntry is a decoded event.
type LogEntry struct {
	TimestampMicros int64
	SessionID       string
	// Type is the event type, e.g. RunCommandType. It's empty if the entry had
	// no event.
	Type   string
	Fields map[string]interface{}
}

// GetString returns the named field as a string.
func (le *LogEntry) GetString(key string) string {
	switch v := le.Fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// GetInt returns the named field as an integer.
func (le *LogEntry) GetInt(key string) int {
	if v, ok := le.Fields[key].(float64); ok {
		return int(v)
	}
	return 0
}

// GetStrings returns the named list field as strings.
func (le *LogEntry) GetStrings(key string) []string {
	list, _ := le.Fields[key].([]interface{})

	var out []string
	for _, item := range list {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func newLogEntry(s *structpb.Struct) *LogEntry {
	le := &LogEntry{}
	for k, v := range s.AsMap() {
		switch k {
		case timestampKey:
			if ts, ok := v.(float64); ok {
				le.TimestampMicros = int64(ts)
			}
		case sessionIDKey:
			le.SessionID, _ = v.(string)
		default:
			le.Type = k
			le.Fields, _ = v.(map[string]interface{})
		}
	}
	return le
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var logEntry structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &logEntry); err != nil {
			return err
		}

		handler(newLogEntry(&logEntry))
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	RunCommand        RunCommandReport        `json:"run_command_report"`
	UnknownCommand    UnknownCommandReport    `json:"unknown_command_report"`
	InvalidInvocation InvalidInvocationReport `json:"invalid_invocation_report"`
	Interpret         InterpretReport         `json:"interpret_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch le.Type {
	case RunCommandType:
		r.RunCommand.update(le)
	case UnknownCommandType:
		r.UnknownCommand.update(le)
	case InvalidInvocationType:
		r.InvalidInvocation.update(le)
	case InterpretType:
		r.Interpret.update(le)
	default:
		r.InvalidEntries.Increment(le.Type)
	}
}

type RunCommandReport struct {
	// Name of the resolved command
	ResolvedCommandPaths StrCounter `json:"resolved_command_names"`
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
	// Shell status of the finished commands.
	Statuses StrCounter `json:"statuses"`
}

func (r *RunCommandReport) update(le *LogEntry) {
	if path := le.GetString("resolved_command_path"); path != "" {
		r.ResolvedCommandPaths.Increment(path)
	}
	if command := le.GetStrings("command"); len(command) > 0 {
		r.CommandNames.Increment(command[0])
	}
	r.Statuses.Increment(strconv.Itoa(le.GetInt("status")))
}

type UnknownCommandReport struct {
	Commands *PathCounter `json:"commands"`
}

func (r *UnknownCommandReport) update(le *LogEntry) {
	if r.Commands == nil {
		r.Commands = NewPathCounter("command", "error")
	}

	name := ""
	if command := le.GetStrings("command"); len(command) > 0 {
		name = command[0]
	}
	r.Commands.Increment(name, le.GetString("error"))
}

type InvalidInvocationReport struct {
	Errors StrCounter `json:"errors"`
}

func (r *InvalidInvocationReport) update(le *LogEntry) {
	r.Errors.Increment(le.GetString("error"))
}

type InterpretReport struct {
	Scripts  StrCounter `json:"scripts"`
	Failures StrCounter `json:"failures,omitempty"`
}

func (r *InterpretReport) update(le *LogEntry) {
	r.Scripts.Increment(le.GetString("path"))
	if msg := le.GetString("error"); msg != "" {
		r.Failures.Increment(msg)
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns the number of times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of times each combination of column values
// was seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
