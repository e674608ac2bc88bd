// Package sealevel is the execution environment that native programs run
// in: per-transaction account copies, instruction contexts, cross-program
// invocation and the builtin system and token programs.
package sealevel

import (
	"fmt"
	"strings"
)

type Logger interface {
	Log(s string)
}

// LogRecorder is a Logger that keeps every line in memory.
type LogRecorder struct {
	Logs []string
}

func (r *LogRecorder) Log(s string) {
	r.Logs = append(r.Logs, s)
}

func (r *LogRecorder) String() string {
	return strings.Join(r.Logs, "\n")
}

func (execCtx *ExecutionCtx) Logf(format string, args ...interface{}) {
	if execCtx.Log == nil {
		return
	}
	execCtx.Log.Log(fmt.Sprintf(format, args...))
}

// ProgramLog records a "Program log:" line, the form programs use for
// their own messages.
func (execCtx *ExecutionCtx) ProgramLog(msg string) {
	execCtx.Logf("Program log: %s", msg)
}
