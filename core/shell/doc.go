// Package shell implements a small csh style command interpreter.
//
// A line is split into tokens, leading KEY=VALUE tokens become environment
// overrides for the command, $NAME fields are expanded and output
// redirections are applied to the child's descriptor table. The first
// remaining token is run as a builtin or found on the search path and
// started as a child process that the shell waits on.
package shell
