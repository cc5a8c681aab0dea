package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/splicepipe/bamqc"
	"github.com/grailbio/splicepipe/layout"
)

func newCmdBamQC() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "bamqc",
		Short:    "Run samtools flagstat and stats over aligned BAMs",
		ArgsName: "output-dir",
		Long: `
BamQC walks output-dir for BAM files and runs "samtools flagstat" and
"samtools stats" over each, writing the reports next to the BAM as
<bam>_flagstat.txt and <bam>_stats.txt.  BAMs that already have both reports
are skipped.`,
	}
	opts := bamqc.DefaultOpts
	cmd.Flags.StringVar(&opts.SamtoolsPath, "samtools", opts.SamtoolsPath, "Path to the samtools executable")
	cmd.Flags.BoolVar(&opts.SkipReported, "skip-reported", opts.SkipReported, "Skip BAMs that already have both reports")
	cmd.Flags.DurationVar(&opts.Timeout, "timeout", 0, "Per-invocation timeout; 0 means unbounded")
	cmd.Flags.IntVar(&opts.Workflow.Parallelism, "parallelism", 1, "Number of BAMs processed at once")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("bamqc takes the output directory, but got %v", argv)
		}
		res, err := bamqc.Run(vcontext.Background(), layout.Store{BaseDir: argv[0]}, opts)
		if err != nil {
			return err
		}
		return batchErr(res)
	})
	return cmd
}
