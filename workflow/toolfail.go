package workflow

import (
	"github.com/grailbio/splicepipe/tool"
)

// ToolFailure converts a failed tool.Result into a ToolInvocationFailed
// failure for acc, quoting the first line of the tool's stderr.
func ToolFailure(acc, name string, res tool.Result) Failure {
	if res.TimedOut {
		return Failf(acc, ToolInvocationFailed, "%s timed out", name)
	}
	return Failf(acc, ToolInvocationFailed,
		"%s exited %d: %s", name, res.ExitCode, FirstLine(res.Stderr))
}

// FirstLine returns the first line of captured tool output, for one-line
// failure reports.
func FirstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
