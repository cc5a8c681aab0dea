// Package bamqc runs samtools quality-control passes over aligned BAMs.
//
// Each BAM gets two independent invocations, "samtools flagstat" and
// "samtools stats"; the captured stdout of each is written next to the BAM
// as {bam}_flagstat.txt and {bam}_stats.txt.
package bamqc

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grailbio/base/errors"

	"github.com/grailbio/splicepipe/layout"
	"github.com/grailbio/splicepipe/tool"
	"github.com/grailbio/splicepipe/workflow"
)

// Opts configures the QC stage.
type Opts struct {
	// SamtoolsPath is the samtools executable.
	SamtoolsPath string
	// SkipReported skips BAMs that already have both report files.
	SkipReported bool
	// Timeout bounds each samtools invocation; zero means unbounded.
	Timeout time.Duration
	// Workflow configures batch iteration.
	Workflow workflow.Opts
}

// DefaultOpts resolve samtools via $PATH.
var DefaultOpts = Opts{SamtoolsPath: "samtools", SkipReported: true}

// FindBAMs walks root and returns every *.bam beneath it, in walk order.
func FindBAMs(root string) ([]string, error) {
	var bams []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".bam") {
			bams = append(bams, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "scan for BAM files under", root)
	}
	return bams, nil
}

// Run executes both QC passes over every BAM under store's base directory.
// The batch is keyed by BAM path rather than accession because QC reports
// are per-artifact; a path under {base}/{accession}/ still identifies its
// sample.
func Run(ctx context.Context, store layout.Store, opts Opts) (workflow.Result, error) {
	bams, err := FindBAMs(store.BaseDir)
	if err != nil {
		return workflow.Result{}, err
	}
	res := workflow.Run(ctx, "bamqc", bams, func(ctx context.Context, bam string) workflow.Outcome {
		flagstatOut := bam + "_flagstat.txt"
		statsOut := bam + "_stats.txt"
		if opts.SkipReported && layout.Exists(flagstatOut) && layout.Exists(statsOut) {
			return workflow.SkipOutcome
		}
		if o := qcPass(ctx, opts, "flagstat", bam, flagstatOut); o != nil {
			return *o
		}
		if o := qcPass(ctx, opts, "stats", bam, statsOut); o != nil {
			return *o
		}
		return workflow.Done
	}, opts.Workflow)
	return res, nil
}

// qcPass runs one samtools subcommand over bam and writes its stdout to
// outPath.  A nil return means success.
func qcPass(ctx context.Context, opts Opts, subcmd, bam, outPath string) *workflow.Outcome {
	res, err := tool.Run(ctx, tool.Cmd{
		Path:    opts.SamtoolsPath,
		Args:    []string{subcmd, bam},
		Timeout: opts.Timeout,
	})
	if err != nil {
		o := workflow.Fail(workflow.Failf(bam, workflow.ToolInvocationFailed, "samtools %s: %v", subcmd, err))
		return &o
	}
	if !res.Ok() {
		o := workflow.Fail(workflow.ToolFailure(bam, "samtools "+subcmd, res))
		return &o
	}
	if err := ioutil.WriteFile(outPath, res.Stdout, 0664); err != nil {
		o := workflow.Fail(workflow.Failf(bam, workflow.ArtifactNotProduced, "write %s: %v", outPath, err))
		return &o
	}
	return nil
}
