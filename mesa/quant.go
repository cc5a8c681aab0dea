// Package mesa drives MESA splicing quantification over the BAM manifest
// and filters its pairwise significance tables.
//
// Quantification is two sub-invocations of the mesa executable:
// bam_to_junc_bed reads the manifest and produces per-junction BED tables,
// and quant consumes those tables to quantify splicing.  Both operate on the
// whole manifest at once, so a failure here is a stage failure rather than a
// per-sample one.
package mesa

import (
	"context"
	"strconv"
	"time"

	"github.com/grailbio/base/errors"

	"github.com/grailbio/splicepipe/tool"
	"github.com/grailbio/splicepipe/workflow"
)

// QuantOpts configures the quantification stage.
type QuantOpts struct {
	// MesaPath is the mesa executable.
	MesaPath string
	// Genome is the reference genome file.
	Genome string
	// Manifest is the BAM manifest produced by the alignment stage.
	Manifest string
	// Annotations is the gene annotation file.
	Annotations string
	// OutputPrefix is the base path for junction tables and quant output.
	OutputPrefix string
	// Threads is bam_to_junc_bed's -n.
	Threads int
	// Timeout bounds each mesa invocation; zero means unbounded.
	Timeout time.Duration
}

// DefaultQuantOpts match the historical pipeline invocation.
var DefaultQuantOpts = QuantOpts{MesaPath: "mesa", Threads: 10}

// JuncBed runs "mesa bam_to_junc_bed", turning the BAM manifest into
// per-junction tables under OutputPrefix.
func JuncBed(ctx context.Context, opts QuantOpts) error {
	threads := opts.Threads
	if threads <= 0 {
		threads = DefaultQuantOpts.Threads
	}
	return runMesa(ctx, opts, []string{
		"bam_to_junc_bed",
		"-m", opts.Manifest,
		"-a", opts.Annotations,
		"-g", opts.Genome,
		"-o", opts.OutputPrefix,
		"-n", strconv.Itoa(threads),
	})
}

// Quant runs "mesa quant" over the junction tables JuncBed produced.
func Quant(ctx context.Context, opts QuantOpts) error {
	return runMesa(ctx, opts, []string{
		"quant",
		"-i", opts.OutputPrefix + ".txt",
		"-o", opts.OutputPrefix + "_quant_output",
	})
}

// RunQuant runs both quantification sub-invocations in order.
func RunQuant(ctx context.Context, opts QuantOpts) error {
	if err := JuncBed(ctx, opts); err != nil {
		return err
	}
	return Quant(ctx, opts)
}

func runMesa(ctx context.Context, opts QuantOpts, args []string) error {
	res, err := tool.Run(ctx, tool.Cmd{Path: opts.MesaPath, Args: args, Timeout: opts.Timeout})
	if err != nil {
		return err
	}
	if !res.Ok() {
		if res.TimedOut {
			return errors.E("mesa " + args[0] + " timed out")
		}
		return errors.E("mesa " + args[0] + " exited " + strconv.Itoa(res.ExitCode) +
			": " + workflow.FirstLine(res.Stderr))
	}
	return nil
}
