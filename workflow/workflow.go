// Package workflow runs one pipeline stage over a batch of samples.
//
// Each sample moves through a small state machine:
//
//	PENDING -> SKIPPED                      expected output already exists
//	PENDING -> RUNNING -> SUCCEEDED
//	PENDING -> RUNNING -> FAILED            tool failure, missing input, ...
//
// Terminal states are never retried.  A failure is confined to its sample:
// the batch always runs to completion and the caller receives an aggregate
// Result listing what succeeded, what was skipped, and what failed with
// which kind of failure.  The top-level command maps "any failures" to a
// non-zero process exit.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// State is the processing state of one sample within a batch.
type State int

const (
	Pending State = iota
	Running
	Skipped
	Succeeded
	Failed
)

var stateNames = [...]string{"PENDING", "RUNNING", "SKIPPED", "SUCCEEDED", "FAILED"}

func (s State) String() string { return stateNames[s] }

// FailureKind classifies why a sample failed.  The kind decides nothing by
// itself (no kind is retried), but it keeps failure reports precise.
type FailureKind int

const (
	// MalformedIdentifier: no accession could be derived, or the mates of a
	// declared pair disagree.
	MalformedIdentifier FailureKind = iota
	// ToolInvocationFailed: the external tool exited non-zero, timed out, or
	// could not be started.
	ToolInvocationFailed
	// MissingPrecondition: an input the stage requires (usually a previous
	// stage's artifact) is absent.
	MissingPrecondition
	// ArtifactNotProduced: the tool exited zero but the expected output is
	// not on disk.
	ArtifactNotProduced
)

var kindNames = [...]string{
	"MalformedIdentifier",
	"ToolInvocationFailed",
	"MissingPrecondition",
	"ArtifactNotProduced",
}

func (k FailureKind) String() string { return kindNames[k] }

// Failure records one sample's terminal failure.
type Failure struct {
	Accession string
	Kind      FailureKind
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Accession, f.Kind, f.Err)
}

// Failf builds a Failure for acc.
func Failf(acc string, kind FailureKind, format string, args ...interface{}) Failure {
	return Failure{Accession: acc, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Result aggregates a batch.  Sample order follows input order regardless of
// parallelism.
type Result struct {
	Succeeded []string
	Skipped   []string
	Failed    []Failure
}

// Err returns nil when no sample failed, else an error summarizing the
// failed accessions.  Callers use it to derive the process exit status while
// still having completed the whole batch.
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	accs := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		accs[i] = f.Accession
	}
	return fmt.Errorf("%d of %d samples failed: %s",
		len(r.Failed), len(r.Succeeded)+len(r.Skipped)+len(r.Failed), strings.Join(accs, ", "))
}

// Reporter receives per-sample progress.  Implementations must be safe for
// concurrent use when Opts.Parallelism > 1.
type Reporter interface {
	// Sample reports a state transition for one accession within a stage.
	Sample(stage, accession string, state State)
	// SampleFailed reports a terminal failure for one accession.
	SampleFailed(stage string, f Failure)
}

// LogReporter reports through base/log.  It is the default Reporter.
type LogReporter struct{}

// Sample implements Reporter.
func (LogReporter) Sample(stage, accession string, state State) {
	log.Printf("%s: %s: %s", stage, accession, state)
}

// SampleFailed implements Reporter.
func (LogReporter) SampleFailed(stage string, f Failure) {
	log.Error.Printf("%s: %s", stage, f.Error())
}

// Opts configures a batch run.
type Opts struct {
	// Parallelism is the number of samples processed at once.  The default
	// of 1 preserves the strictly sequential behavior; higher values fan the
	// per-sample loop out over workers.
	Parallelism int
	// Reporter receives progress; nil means LogReporter.
	Reporter Reporter
}

// DefaultOpts are the options used for zero-valued fields.
var DefaultOpts = Opts{Parallelism: 1, Reporter: LogReporter{}}

// Outcome is what a stage function reports for one sample.
type Outcome struct {
	// Skip marks the sample as already done; no tool was invoked.
	Skip bool
	// Failure, when non-nil, marks the sample failed.
	Failure *Failure
}

// Done is the successful Outcome.
var Done = Outcome{}

// SkipOutcome marks a sample skipped.
var SkipOutcome = Outcome{Skip: true}

// Fail wraps f into a failed Outcome.
func Fail(f Failure) Outcome { return Outcome{Failure: &f} }

// Func processes one sample and reports its outcome.  It must not panic on
// tool failure; everything recoverable is an Outcome.
type Func func(ctx context.Context, accession string) Outcome

// Run applies fn to every sample, isolating failures, and returns the
// aggregate result.  With Parallelism > 1 the samples are sharded over
// workers; within a shard processing stays in input order, and the aggregate
// slices are rebuilt in input order afterwards.
func Run(ctx context.Context, stage string, samples []string, fn Func, opts Opts) Result {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultOpts.Parallelism
	}
	if opts.Reporter == nil {
		opts.Reporter = DefaultOpts.Reporter
	}
	if opts.Parallelism > len(samples) && len(samples) > 0 {
		opts.Parallelism = len(samples)
	}

	states := make([]State, len(samples))
	failures := make([]*Failure, len(samples))
	process := func(i int) {
		acc := samples[i]
		if o := fn(ctx, acc); o.Failure != nil {
			states[i] = Failed
			failures[i] = o.Failure
			opts.Reporter.SampleFailed(stage, *o.Failure)
		} else if o.Skip {
			states[i] = Skipped
			opts.Reporter.Sample(stage, acc, Skipped)
		} else {
			states[i] = Succeeded
			opts.Reporter.Sample(stage, acc, Succeeded)
		}
	}

	if opts.Parallelism <= 1 {
		for i := range samples {
			process(i)
		}
	} else {
		// Shard ranges over workers; each worker walks its shard in order.
		// fn's only shared state is the ledger, which serializes internally.
		parallelism := opts.Parallelism
		_ = traverse.Each(parallelism, func(jobIdx int) error {
			startIdx := (jobIdx * len(samples)) / parallelism
			endIdx := ((jobIdx + 1) * len(samples)) / parallelism
			for i := startIdx; i < endIdx; i++ {
				process(i)
			}
			return nil
		})
	}

	var res Result
	for i := range samples {
		switch states[i] {
		case Succeeded:
			res.Succeeded = append(res.Succeeded, samples[i])
		case Skipped:
			res.Skipped = append(res.Skipped, samples[i])
		case Failed:
			res.Failed = append(res.Failed, *failures[i])
		}
	}
	return res
}
