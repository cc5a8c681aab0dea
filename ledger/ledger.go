// Package ledger maintains the pipeline's manifest files.
//
// The BAM manifest is an append-only tab-separated log mapping accession ID
// to BAM path.  Producers (the alignment stage) append one row per newly
// aligned sample; consumers (MESA) read the whole file as their sample
// universe.  The file is opened in append mode and rows are written one
// line-atomic entry at a time, so downstream readers can safely scan it
// while a batch is still running.
//
// The filtering stage consumes a different, four-column sample manifest
// (ID, Path, RBP, Type); the two schemas are deliberately kept separate.
package ledger

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// Entry is one row of the BAM manifest.
type Entry struct {
	Accession string
	Path      string
}

// SampleRow is one row of the filtering stage's sample manifest.  Type is
// the group label pairwise comparisons are selected on.
type SampleRow struct {
	ID   string
	Path string
	RBP  string
	Type string
}

// Ledger is a single-writer, append-only BAM manifest.  Append never
// truncates, and an accession already present in the file (from this run or
// a previous one) is not appended again, so the manifest accumulates exactly
// one row per aligned sample across any number of batch runs.
type Ledger struct {
	path string

	mu   sync.Mutex
	f    *os.File
	w    *tsv.Writer
	seen map[string]bool
}

// Open opens (creating if absent) the manifest at path and loads the
// accessions it already contains.
func Open(path string) (*Ledger, error) {
	existing, err := ReadAll(path)
	if err != nil {
		// A missing manifest on first write is expected; anything else is not.
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0664)
	if err != nil {
		return nil, errors.E(err, "open manifest", path)
	}
	l := &Ledger{
		path: path,
		f:    f,
		w:    tsv.NewWriter(f),
		seen: make(map[string]bool),
	}
	for _, e := range existing {
		l.seen[e.Accession] = true
	}
	return l, nil
}

// Contains reports whether the manifest already has a row for acc.
func (l *Ledger) Contains(acc string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[acc]
}

// Append writes one row per entry, skipping accessions already present.
// Each row is flushed before Append returns.
func (l *Ledger) Append(entries ...Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		if l.seen[e.Accession] {
			continue
		}
		l.w.WriteString(e.Accession)
		l.w.WriteString(e.Path)
		if err := l.w.EndLine(); err != nil {
			return errors.E(err, "append manifest", l.path)
		}
		l.seen[e.Accession] = true
	}
	if err := l.w.Flush(); err != nil {
		return errors.E(err, "flush manifest", l.path)
	}
	return nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Close()
}

// ReadAll reads every row of the BAM manifest at path.
func ReadAll(path string) ([]Entry, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "read manifest", path)
	}
	defer in.Close() // nolint: errcheck
	var entries []Entry
	err = scanRows(in, 2, path, func(cols []string) {
		entries = append(entries, Entry{Accession: cols[0], Path: cols[1]})
	})
	return entries, err
}

// ReadSampleManifest reads the filtering stage's four-column sample manifest.
func ReadSampleManifest(path string) ([]SampleRow, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "read sample manifest", path)
	}
	defer in.Close() // nolint: errcheck
	var rows []SampleRow
	err = scanRows(in, 4, path, func(cols []string) {
		rows = append(rows, SampleRow{ID: cols[0], Path: cols[1], RBP: cols[2], Type: cols[3]})
	})
	return rows, err
}

// TypeByID returns the ID -> Type mapping of a sample manifest.
func TypeByID(rows []SampleRow) map[string]string {
	m := make(map[string]string, len(rows))
	for _, r := range rows {
		m[r.ID] = r.Type
	}
	return m
}

func scanRows(r io.Reader, minCols int, path string, fn func(cols []string)) error {
	scanner := bufio.NewScanner(r)
	nLine := 0
	for scanner.Scan() {
		nLine++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < minCols {
			return errors.E("malformed manifest row", path, nLine)
		}
		fn(cols)
	}
	return scanner.Err()
}
