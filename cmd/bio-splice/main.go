// bio-splice orchestrates the RNA-seq splicing pipeline: SRA retrieval and
// FASTQ conversion, STAR alignment, samtools BAM QC, MESA splicing
// quantification, and significance filtering of the pairwise results.  Each
// stage is a subcommand; run "bio-splice help" for the list.
package main

import (
	"github.com/grailbio/splicepipe/cmd/bio-splice/cmd"
)

func main() {
	cmd.Run()
}
