// Package logger is a standardized event logging framework for the shell.
//
// Events are stored as newline delimited JSON objects with a timestamp, the
// ID of the session that produced them and a single key naming the event
// type, for example:
//
//	{"timestamp_micros":1625000000000000,"session_id":"42","run_command":{"command":["ls"],"status":0}}
package logger
