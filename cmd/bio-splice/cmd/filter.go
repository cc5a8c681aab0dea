package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/splicepipe/mesa"
)

func newCmdFilter() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "filter",
		Short: "Filter MESA pairwise results to significant cross-group comparisons",
		Long: `
Filter reads <prefix>_pairwiseFisherResults.tsv, drops comparison columns
whose two accessions share a group per <prefix>_manifest.txt, keeps rows with
every retained value under the significance threshold, and writes
<prefix>_filteredResults.tsv.  It then restricts <prefix>_allPS.tsv to the
surviving clusters as <prefix>_filteredAllPS.tsv.`,
	}
	opts := mesa.DefaultFilterOpts
	var prefix string
	cmd.Flags.StringVar(&prefix, "output-prefix", "", "Base path for input and output files (required)")
	cmd.Flags.Float64Var(&opts.Threshold, "threshold", opts.Threshold, "Significance threshold")
	cmd.Flags.StringVar(&opts.Delim, "delim", opts.Delim, "Delimiter joining the two accessions in a column name")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("filter takes no positional arguments, but got %v", argv)
		}
		if prefix == "" {
			return fmt.Errorf("-output-prefix is required")
		}
		return mesa.FilterFiles(vcontext.Background(), prefix, opts)
	})
	return cmd
}
