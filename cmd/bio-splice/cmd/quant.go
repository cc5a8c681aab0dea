package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/splicepipe/mesa"
)

func newCmdQuant() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "quant",
		Short: "Quantify splicing with MESA from the BAM manifest",
		Long: `
Quant runs "mesa bam_to_junc_bed" over the BAM manifest to produce
per-junction tables under the output prefix, then "mesa quant" to quantify
splicing from those tables.`,
	}
	opts := mesa.DefaultQuantOpts
	cmd.Flags.StringVar(&opts.MesaPath, "mesa", opts.MesaPath, "Path to the mesa executable")
	cmd.Flags.StringVar(&opts.Genome, "genome", "", "Path to the reference genome file (required)")
	cmd.Flags.StringVar(&opts.Manifest, "manifest", "", "Path to the BAM manifest (required)")
	cmd.Flags.StringVar(&opts.Annotations, "annotations", "", "Path to the gene annotations file (required)")
	cmd.Flags.StringVar(&opts.OutputPrefix, "output-prefix", "", "Output prefix for quantification files (required)")
	cmd.Flags.IntVar(&opts.Threads, "threads", opts.Threads, "bam_to_junc_bed thread count")
	cmd.Flags.DurationVar(&opts.Timeout, "timeout", 0, "Per-invocation timeout; 0 means unbounded")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("quant takes no positional arguments, but got %v", argv)
		}
		for flagName, v := range map[string]string{
			"genome":        opts.Genome,
			"manifest":      opts.Manifest,
			"annotations":   opts.Annotations,
			"output-prefix": opts.OutputPrefix,
		} {
			if v == "" {
				return fmt.Errorf("-%s is required", flagName)
			}
		}
		return mesa.RunQuant(vcontext.Background(), opts)
	})
	return cmd
}
