// Package layout maps accession IDs to their places in the output directory
// tree and answers "has this stage already run for this sample".  Every
// existence check the pipeline uses for skip decisions lives here so that
// idempotency semantics stay consistent across stages.
//
// The tree looks like:
//
//	{base}/{accession}/                   STAR output for one sample
//	{base}/{accession}/{accession}.sra    retrieved SRA archive
//	{base}/fastq/                         converted FASTQ files, all samples
//	{base}/bam_manifest.txt               the BAM manifest ledger
package layout

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
)

// BAMManifestName is the ledger file name under the base directory.
const BAMManifestName = "bam_manifest.txt"

// Store is the artifact layout rooted at one base output directory.  All
// path methods are pure functions of the store and their arguments.
type Store struct {
	BaseDir string
}

// SampleDir returns the per-sample output directory for acc.
func (s Store) SampleDir(acc string) string {
	return filepath.Join(s.BaseDir, acc)
}

// SRAPath returns the expected location of the retrieved SRA archive for acc.
func (s Store) SRAPath(acc string) string {
	return filepath.Join(s.BaseDir, acc, acc+".sra")
}

// FastqDir returns the shared directory FASTQ conversion writes into.
func (s Store) FastqDir() string {
	return filepath.Join(s.BaseDir, "fastq")
}

// ManifestPath returns the location of the BAM manifest ledger.
func (s Store) ManifestPath() string {
	return filepath.Join(s.BaseDir, BAMManifestName)
}

// EnsureBaseDir creates the base directory if needed.
func (s Store) EnsureBaseDir() error {
	return mkdirAll(s.BaseDir)
}

// EnsureSampleDir creates the per-sample directory for acc if needed and
// returns its path.
func (s Store) EnsureSampleDir(acc string) (string, error) {
	dir := s.SampleDir(acc)
	return dir, mkdirAll(dir)
}

// EnsureFastqDir creates the shared FASTQ directory if needed and returns
// its path.
func (s Store) EnsureFastqDir() (string, error) {
	dir := s.FastqDir()
	return dir, mkdirAll(dir)
}

func mkdirAll(dir string) error {
	// MkdirAll succeeds when the directory already exists; stages re-running
	// over a populated tree rely on that.
	if err := os.MkdirAll(dir, 0775); err != nil {
		return errors.E(err, "mkdir", dir)
	}
	return nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// HasSRA reports whether the retrieval stage has already produced the SRA
// archive for acc.
func (s Store) HasSRA(acc string) bool {
	return Exists(s.SRAPath(acc))
}

// HasFastq reports whether FASTQ conversion output for acc is already
// present in the shared FASTQ directory.  fastq-dump names split paired
// output {acc}_pass_1.fastq.gz / {acc}_pass_2.fastq.gz and unpaired output
// {acc}_pass.fastq.gz.
func (s Store) HasFastq(acc string, paired bool) bool {
	if paired {
		return Exists(filepath.Join(s.FastqDir(), acc+"_pass_1.fastq.gz")) &&
			Exists(filepath.Join(s.FastqDir(), acc+"_pass_2.fastq.gz"))
	}
	return Exists(filepath.Join(s.FastqDir(), acc+"_pass.fastq.gz"))
}

// HasDecompressed reports whether the decompressed form of a .gz input is
// already on disk.  path must end in ".gz"; the check is against the name
// with that suffix removed.
func (s Store) HasDecompressed(path string) bool {
	return Exists(strings.TrimSuffix(path, ".gz"))
}

// HasAlignment reports whether the sample directory for acc already holds at
// least one BAM, in which case the alignment stage may be skipped.
func (s Store) HasAlignment(acc string) bool {
	matches, err := filepath.Glob(filepath.Join(s.SampleDir(acc), "*.bam"))
	return err == nil && len(matches) > 0
}

// AlignmentBAM returns the BAM the aligner produced for acc.  With sorted
// BAM output STAR writes exactly one; when several match, the first in glob
// order is returned.
func (s Store) AlignmentBAM(acc string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.SampleDir(acc), "*.bam"))
	if err != nil {
		return "", errors.E(err, "glob bam for", acc)
	}
	if len(matches) == 0 {
		return "", errors.E("no BAM produced for " + acc + " under " + s.SampleDir(acc))
	}
	return matches[0], nil
}
