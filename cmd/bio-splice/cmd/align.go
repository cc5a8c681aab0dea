package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/splicepipe/align"
	"github.com/grailbio/splicepipe/layout"
)

func newCmdAlign() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "align",
		Short:    "Align paired FASTQ files to a reference with STAR",
		ArgsName: "fastq-file...",
		Long: `
Align groups its arguments two at a time as (mate 1, mate 2) pairs, derives
each pair's accession from the file name prefix, and aligns each pair with
STAR into output-dir/<accession>/.  Gzipped inputs are decompressed in place
first.  Each produced BAM is appended to output-dir/bam_manifest.txt; samples
whose BAM already exists are skipped.`,
	}
	opts := align.DefaultOpts
	var outputDir string
	cmd.Flags.StringVar(&opts.StarPath, "star", opts.StarPath, "Path to the STAR executable")
	cmd.Flags.StringVar(&opts.GenomeDir, "genome-dir", "", "Path to the STAR genome index directory (required)")
	cmd.Flags.StringVar(&outputDir, "output-dir", "", "Base directory for alignment results (required)")
	cmd.Flags.IntVar(&opts.Threads, "threads", opts.Threads, "STAR thread count")
	cmd.Flags.StringVar(&opts.GzipPath, "gzip", opts.GzipPath, "External decompressor; empty decompresses in process")
	cmd.Flags.BoolVar(&opts.SkipAligned, "skip-aligned", opts.SkipAligned, "Skip samples that already have a BAM")
	cmd.Flags.DurationVar(&opts.Timeout, "timeout", 0, "Per-invocation timeout; 0 means unbounded")
	cmd.Flags.IntVar(&opts.Workflow.Parallelism, "parallelism", 1, "Number of samples processed at once")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if opts.GenomeDir == "" {
			return fmt.Errorf("-genome-dir is required")
		}
		if outputDir == "" {
			return fmt.Errorf("-output-dir is required")
		}
		if len(argv) == 0 {
			return fmt.Errorf("align takes one or more FASTQ files")
		}
		res, err := align.Run(vcontext.Background(), layout.Store{BaseDir: outputDir}, argv, opts)
		if err != nil {
			return err
		}
		return batchErr(res)
	})
	return cmd
}
