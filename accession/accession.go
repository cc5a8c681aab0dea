// Package accession derives stable per-sample identifiers from sequencing
// file names and accession list files.  The accession ID is the join key for
// every downstream stage: it names the per-sample output directory and keys
// the BAM manifest, so derivation must be deterministic and independent of
// the directory a file happens to live in.
//
// SRA-style names look like "SRR1039508_1.fastq.gz"; the accession is the
// basename up to the first delimiter ("SRR1039508").
package accession

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultDelim separates the accession from the mate suffix in FASTQ file
// names produced by fastq-dump --split-files.
const DefaultDelim = "_"

// Resolve returns the accession ID for path: the basename up to the first
// occurrence of DefaultDelim.  A name with no delimiter resolves to the whole
// basename.  An empty result is an error.
func Resolve(path string) (string, error) {
	return ResolveDelim(path, DefaultDelim)
}

// ResolveDelim is Resolve with an explicit delimiter.
func ResolveDelim(path, delim string) (string, error) {
	base := filepath.Base(path)
	id := base
	if i := strings.Index(base, delim); i >= 0 {
		id = base[:i]
	}
	if id == "" || id == "." || id == string(filepath.Separator) {
		return "", errors.Errorf("cannot derive accession ID from %q", path)
	}
	return id, nil
}

// Pair is one paired-end sample: two ordered mate files resolving to the same
// accession.  R1 and R2 keep the order of the input list; swapping mates
// corrupts alignment, so nothing downstream may reorder them.
type Pair struct {
	Accession string
	R1, R2    string
}

// PairFiles groups files two at a time, in the order given, and resolves each
// group to a Pair.  An odd-length list or a pair whose mates resolve to
// different accessions is a configuration error, reported before any tool
// runs.
func PairFiles(files []string) ([]Pair, error) {
	if len(files)%2 != 0 {
		return nil, errors.Errorf("paired-end input requires an even number of files, got %d", len(files))
	}
	pairs := make([]Pair, 0, len(files)/2)
	for i := 0; i < len(files); i += 2 {
		id1, err := Resolve(files[i])
		if err != nil {
			return nil, err
		}
		id2, err := Resolve(files[i+1])
		if err != nil {
			return nil, err
		}
		if id1 != id2 {
			return nil, errors.Errorf("mate files %q and %q resolve to different accessions (%s vs %s)",
				files[i], files[i+1], id1, id2)
		}
		pairs = append(pairs, Pair{Accession: id1, R1: files[i], R2: files[i+1]})
	}
	return pairs, nil
}

// ReadList reads an accession list file: one accession per line, the first
// line a header to be skipped, blank lines ignored.
func ReadList(path string) ([]string, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open accession list %s", path)
	}
	defer in.Close() // nolint: errcheck
	var (
		ids     []string
		header  = true
		scanner = bufio.NewScanner(in)
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if header {
			header = false
			continue
		}
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read accession list %s", path)
	}
	return ids, nil
}
