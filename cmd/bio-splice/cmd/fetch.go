package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/splicepipe/accession"
	"github.com/grailbio/splicepipe/layout"
	"github.com/grailbio/splicepipe/sra"
)

func newCmdFetch() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "fetch",
		Short:    "Download SRA runs and convert them to FASTQ",
		ArgsName: "accession-list output-dir",
		Long: `
Fetch downloads every accession named in the list file (one per line, first
line a header) into per-accession subdirectories of output-dir, then converts
each downloaded run to gzipped FASTQ under output-dir/fastq.  Runs whose
archive or FASTQ output already exists are skipped.`,
	}
	opts := sra.DefaultOpts
	cmd.Flags.StringVar(&opts.PrefetchPath, "prefetch", opts.PrefetchPath, "Path to the prefetch executable")
	cmd.Flags.StringVar(&opts.FastqDumpPath, "fastq-dump", opts.FastqDumpPath, "Path to the fastq-dump executable")
	cmd.Flags.BoolVar(&opts.Paired, "paired", false, "Treat the runs as paired-end (fastq-dump --split-files)")
	cmd.Flags.DurationVar(&opts.Timeout, "timeout", 0, "Per-invocation timeout; 0 means unbounded")
	cmd.Flags.IntVar(&opts.Workflow.Parallelism, "parallelism", 1, "Number of samples processed at once")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("fetch takes accession-list and output-dir, but got %v", argv)
		}
		accessions, err := accession.ReadList(argv[0])
		if err != nil {
			return err
		}
		store := layout.Store{BaseDir: argv[1]}
		ctx := vcontext.Background()
		fetched := sra.Fetch(ctx, store, accessions, opts)
		// Conversion proceeds over every accession, including ones that just
		// failed to fetch; those fail again as missing preconditions, which
		// keeps the two reports aligned per accession.
		converted := sra.Convert(ctx, store, accessions, opts)
		return batchErr(fetched, converted)
	})
	return cmd
}
