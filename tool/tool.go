// Package tool invokes one external pipeline executable for one sample.
//
// Accession IDs and file paths reaching this package come from uncontrolled
// input (downloaded file names, user manifests), so commands are always built
// as discrete argument vectors and handed straight to the OS; no shell is
// ever involved.
package tool

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Cmd describes one invocation of an external tool.
type Cmd struct {
	// Path is the executable: an absolute path or a name resolved via $PATH.
	Path string
	// Args are passed as-is, one token per element.
	Args []string
	// Dir, if nonempty, is the working directory for the invocation.
	Dir string
	// Timeout bounds the invocation; zero means no bound.  A hung external
	// tool would otherwise block the batch indefinitely.
	Timeout time.Duration
}

// Result reports the outcome of one invocation.  A non-zero exit is not an
// error at this layer; the caller owns the decision to continue the batch.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
}

// Ok reports whether the tool exited zero within its time bound.
func (r Result) Ok() bool { return r.ExitCode == 0 && !r.TimedOut }

// Run executes c and captures both output streams.  The returned error is
// non-nil only when the invocation itself was impossible (executable missing,
// context canceled before start); tool failure is reported through Result.
func Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug.Printf("run: %s %v", c.Path, c.Args)
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if err == nil {
		return res, nil
	}
	if ee, ok := err.(*exec.ExitError); ok {
		res.ExitCode = ee.ExitCode()
		return res, nil
	}
	return res, errors.E(err, "invoke", c.Path)
}
