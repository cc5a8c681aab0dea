// Package align aligns paired-end FASTQ files to a reference with STAR and
// records each produced BAM in the manifest ledger.
//
// Input files arrive as a flat ordered list and are grouped two at a time
// (mate 1, mate 2); both mates must resolve to the same accession.  Gzipped
// inputs are decompressed in place first, either through an external
// decompressor or in process when none is configured.  STAR output for each
// sample lands in its own subdirectory of the store, as
// {base}/{accession}/Aligned.sortedByCoord.out.bam and friends.
package align

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/splicepipe/accession"
	"github.com/grailbio/splicepipe/layout"
	"github.com/grailbio/splicepipe/ledger"
	"github.com/grailbio/splicepipe/tool"
	"github.com/grailbio/splicepipe/workflow"
)

// Opts configures the alignment stage.
type Opts struct {
	// StarPath is the STAR executable.
	StarPath string
	// GenomeDir is the STAR genome index directory.
	GenomeDir string
	// Threads is STAR's --runThreadN.
	Threads int
	// GzipPath is the external decompressor invoked as "<GzipPath> -d file".
	// Empty means decompress in process.
	GzipPath string
	// SkipAligned skips samples whose output directory already holds a BAM.
	SkipAligned bool
	// Timeout bounds each STAR invocation; zero means unbounded.
	Timeout time.Duration
	// Workflow configures batch iteration.
	Workflow workflow.Opts
}

// DefaultOpts match the historical pipeline invocation.
var DefaultOpts = Opts{
	StarPath:    "STAR",
	Threads:     10,
	GzipPath:    "gzip",
	SkipAligned: true,
}

// Run pairs files, aligns each pair, and appends each sample's BAM to the
// manifest at store.ManifestPath().  The returned error covers configuration
// problems only (odd file list, mate mismatch, unusable manifest), detected
// before any tool invocation; per-sample failures are in the Result.
func Run(ctx context.Context, store layout.Store, files []string, opts Opts) (workflow.Result, error) {
	pairs, err := accession.PairFiles(files)
	if err != nil {
		return workflow.Result{}, err
	}
	if err := store.EnsureBaseDir(); err != nil {
		return workflow.Result{}, err
	}
	manifest, err := ledger.Open(store.ManifestPath())
	if err != nil {
		return workflow.Result{}, err
	}
	defer manifest.Close() // nolint: errcheck

	byAcc := make(map[string]accession.Pair, len(pairs))
	samples := make([]string, len(pairs))
	for i, p := range pairs {
		byAcc[p.Accession] = p
		samples[i] = p.Accession
	}

	res := workflow.Run(ctx, "align", samples, func(ctx context.Context, acc string) workflow.Outcome {
		pair := byAcc[acc]
		if opts.SkipAligned && store.HasAlignment(acc) {
			if bam, err := store.AlignmentBAM(acc); err == nil {
				// Self-heals a manifest that lost this sample; Append
				// deduplicates, so an already-recorded accession is a no-op.
				if err := manifest.Append(ledger.Entry{Accession: acc, Path: bam}); err != nil {
					return workflow.Fail(workflow.Failf(acc, workflow.ArtifactNotProduced, "%v", err))
				}
			}
			return workflow.SkipOutcome
		}
		r1, outcome := decompress(ctx, store, acc, pair.R1, opts)
		if outcome != nil {
			return *outcome
		}
		r2, outcome := decompress(ctx, store, acc, pair.R2, opts)
		if outcome != nil {
			return *outcome
		}
		outDir, err := store.EnsureSampleDir(acc)
		if err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.MissingPrecondition, "%v", err))
		}
		result, err := tool.Run(ctx, tool.Cmd{
			Path: opts.StarPath,
			Args: starArgs(opts, r1, r2, outDir),
			Timeout: opts.Timeout,
		})
		if err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.ToolInvocationFailed, "STAR: %v", err))
		}
		if !result.Ok() {
			return workflow.Fail(workflow.ToolFailure(acc, "STAR", result))
		}
		bam, err := store.AlignmentBAM(acc)
		if err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.ArtifactNotProduced, "%v", err))
		}
		if err := manifest.Append(ledger.Entry{Accession: acc, Path: bam}); err != nil {
			return workflow.Fail(workflow.Failf(acc, workflow.ArtifactNotProduced, "%v", err))
		}
		return workflow.Done
	}, opts.Workflow)
	return res, nil
}

func starArgs(opts Opts, r1, r2, outDir string) []string {
	threads := opts.Threads
	if threads <= 0 {
		threads = DefaultOpts.Threads
	}
	return []string{
		"--runThreadN", strconv.Itoa(threads),
		"--genomeDir", opts.GenomeDir,
		"--readFilesIn", r1, r2,
		// The trailing separator makes STAR treat the sample directory as a
		// prefix rather than a file-name stem.
		"--outFileNamePrefix", outDir + string(filepath.Separator),
		"--outSAMtype", "BAM", "SortedByCoordinate",
	}
}

// decompress returns the path STAR should read for in, decompressing it in
// place first when it is gzipped.  A nil Outcome means success.
func decompress(ctx context.Context, store layout.Store, acc, in string, opts Opts) (string, *workflow.Outcome) {
	if fileio.DetermineType(in) != fileio.Gzip {
		if !layout.Exists(in) {
			o := workflow.Fail(workflow.Failf(acc, workflow.MissingPrecondition, "input %s not found", in))
			return "", &o
		}
		return in, nil
	}
	dst := strings.TrimSuffix(in, ".gz")
	if store.HasDecompressed(in) {
		return dst, nil
	}
	if !layout.Exists(in) {
		o := workflow.Fail(workflow.Failf(acc, workflow.MissingPrecondition, "input %s not found", in))
		return "", &o
	}
	if opts.GzipPath != "" {
		res, err := tool.Run(ctx, tool.Cmd{Path: opts.GzipPath, Args: []string{"-d", in}, Timeout: opts.Timeout})
		if err != nil {
			o := workflow.Fail(workflow.Failf(acc, workflow.ToolInvocationFailed, "decompress %s: %v", in, err))
			return "", &o
		}
		if !res.Ok() {
			o := workflow.Fail(workflow.ToolFailure(acc, "gzip -d", res))
			return "", &o
		}
	} else if err := gunzip(in, dst); err != nil {
		o := workflow.Fail(workflow.Failf(acc, workflow.ToolInvocationFailed, "decompress %s: %v", in, err))
		return "", &o
	}
	if !layout.Exists(dst) {
		o := workflow.Fail(workflow.Failf(acc, workflow.ArtifactNotProduced, "decompressed %s is absent", dst))
		return "", &o
	}
	return dst, nil
}

// gunzip decompresses src to dst and removes src, matching "gzip -d"
// in-place semantics.
func gunzip(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errors.E(err, "open", src)
	}
	defer in.Close() // nolint: errcheck
	gz, err := gzip.NewReader(in)
	if err != nil {
		return errors.E(err, "gunzip", src)
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.E(err, "create", dst)
	}
	if _, err = io.Copy(out, gz); err != nil {
		out.Close() // nolint: errcheck
		return errors.E(err, "gunzip", src)
	}
	if err = out.Close(); err != nil {
		return errors.E(err, "close", dst)
	}
	if err = gz.Close(); err != nil {
		return errors.E(err, "gunzip", src)
	}
	in.Close() // nolint: errcheck
	return os.Remove(src)
}
