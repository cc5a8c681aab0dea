// Package sra retrieves sequencing runs from the SRA and converts them to
// compressed FASTQ.  Retrieval uses prefetch, which downloads each run into
// a per-accession subdirectory of the output tree; conversion uses
// fastq-dump, which writes gzipped FASTQ (split into mate files for
// paired-end runs) into the shared fastq/ subdirectory.
package sra

import (
	"context"
	"path/filepath"
	"time"

	"github.com/grailbio/splicepipe/layout"
	"github.com/grailbio/splicepipe/tool"
	"github.com/grailbio/splicepipe/workflow"
)

// Opts configures the retrieval and conversion stages.
type Opts struct {
	// PrefetchPath is the prefetch executable.
	PrefetchPath string
	// FastqDumpPath is the fastq-dump executable.
	FastqDumpPath string
	// Paired selects --split-files conversion for paired-end runs.
	Paired bool
	// Timeout bounds each tool invocation; zero means unbounded.
	Timeout time.Duration
	// Workflow configures batch iteration.
	Workflow workflow.Opts
}

// DefaultOpts resolve the tools via $PATH.
var DefaultOpts = Opts{
	PrefetchPath:  "prefetch",
	FastqDumpPath: "fastq-dump",
}

// Fetch downloads every accession into store's tree.  Accessions whose SRA
// archive is already present are skipped.
func Fetch(ctx context.Context, store layout.Store, accessions []string, opts Opts) workflow.Result {
	return workflow.Run(ctx, "fetch", accessions, func(ctx context.Context, acc string) workflow.Outcome {
		if store.HasSRA(acc) {
			return workflow.SkipOutcome
		}
		if err := store.EnsureBaseDir(); err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.MissingPrecondition, "%v", err))
		}
		res, err := tool.Run(ctx, tool.Cmd{
			Path:    opts.PrefetchPath,
			Args:    []string{"-O", store.BaseDir, acc},
			Timeout: opts.Timeout,
		})
		if err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.ToolInvocationFailed, "prefetch: %v", err))
		}
		if !res.Ok() {
			return workflow.Fail(workflow.ToolFailure(acc, "prefetch", res))
		}
		if !store.HasSRA(acc) {
			return workflow.Fail(workflow.Failf(acc, workflow.ArtifactNotProduced,
				"prefetch exited 0 but %s is absent", store.SRAPath(acc)))
		}
		return workflow.Done
	}, opts.Workflow)
}

// Convert runs fastq-dump over every accession's downloaded archive.
// Accessions whose FASTQ output already exists are skipped; accessions whose
// archive is missing fail without stopping the batch.
func Convert(ctx context.Context, store layout.Store, accessions []string, opts Opts) workflow.Result {
	return workflow.Run(ctx, "convert", accessions, func(ctx context.Context, acc string) workflow.Outcome {
		if store.HasFastq(acc, opts.Paired) {
			return workflow.SkipOutcome
		}
		sraPath := store.SRAPath(acc)
		if !layout.Exists(sraPath) {
			return workflow.Fail(workflow.Failf(acc, workflow.MissingPrecondition,
				"%s not found; was it fetched?", sraPath))
		}
		outDir, err := store.EnsureFastqDir()
		if err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.MissingPrecondition, "%v", err))
		}
		args := []string{
			"--outdir", outDir, "--gzip",
			"--skip-technical", "--readids", "--read-filter", "pass",
			"--dumpbase", "--clip",
		}
		if opts.Paired {
			args = append(args, "--split-files")
		}
		args = append(args, sraPath)
		res, err := tool.Run(ctx, tool.Cmd{Path: opts.FastqDumpPath, Args: args, Timeout: opts.Timeout})
		if err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.ToolInvocationFailed, "fastq-dump: %v", err))
		}
		if !res.Ok() {
			return workflow.Fail(workflow.ToolFailure(acc, "fastq-dump", res))
		}
		if !store.HasFastq(acc, opts.Paired) {
			return workflow.Fail(workflow.Failf(acc, workflow.ArtifactNotProduced,
				"fastq-dump exited 0 but no FASTQ for %s under %s", acc, outDir))
		}
		return workflow.Done
	}, opts.Workflow)
}

// FastqFiles returns the converted FASTQ paths for acc in mate order.
func FastqFiles(store layout.Store, acc string, paired bool) []string {
	if paired {
		return []string{
			filepath.Join(store.FastqDir(), acc+"_pass_1.fastq.gz"),
			filepath.Join(store.FastqDir(), acc+"_pass_2.fastq.gz"),
		}
	}
	return []string{filepath.Join(store.FastqDir(), acc+"_pass.fastq.gz")}
}
