package cmd

import (
	"log"

	"github.com/grailbio/splicepipe/workflow"
	"v.io/x/lib/cmdline"
)

// Run is the bio-splice entry point.  A per-sample failure never aborts a
// batch, but any failed sample makes the stage's runner return an error so
// the process exits non-zero.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-splice",
			Short:    "RNA-seq splicing pipeline orchestrator",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdFetch(),
				newCmdAlign(),
				newCmdBamQC(),
				newCmdQuant(),
				newCmdFilter(),
			},
		})
}

// batchErr maps an aggregate batch result to the runner's error.
func batchErr(results ...workflow.Result) error {
	for _, r := range results {
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}
