package mesa

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"

	"github.com/grailbio/splicepipe/ledger"
)

// FilterOpts configures the significance filter over MESA's pairwise Fisher
// table.
type FilterOpts struct {
	// Threshold keeps only rows whose every retained value is below it.
	Threshold float64
	// Delim joins the two accessions in a pairwise column name.
	Delim string
}

// DefaultFilterOpts use the conventional 0.05 significance cutoff.
var DefaultFilterOpts = FilterOpts{Threshold: 0.05, Delim: "_"}

// FilterPairwise reads a tab-separated table whose first column is the
// cluster key and whose remaining columns are named "<acc1><delim><acc2>".
// It keeps only columns whose two accessions belong to different groups per
// types (ID -> group label), then keeps only rows where every retained value
// parses below the threshold.  The filtered table is written to out and the
// surviving cluster keys are returned, in row order.
func FilterPairwise(in io.Reader, out io.Writer, types map[string]string, opts FilterOpts) ([]string, error) {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultFilterOpts.Threshold
	}
	if opts.Delim == "" {
		opts.Delim = DefaultFilterOpts.Delim
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "read pairwise table")
		}
		return nil, errors.New("pairwise table is empty")
	}
	header := strings.Split(scanner.Text(), "\t")
	if len(header) == 0 || header[0] != "clusterID" {
		return nil, errors.Errorf("pairwise table must start with a clusterID column, got %q", header)
	}

	// Column 0 (clusterID) is always retained.
	keep := []int{0}
	for i, col := range header[1:] {
		if crossGroup(col, types, opts.Delim) {
			keep = append(keep, i+1)
		}
	}

	w := tsv.NewWriter(out)
	for _, i := range keep {
		w.WriteString(header[i])
	}
	if err := w.EndLine(); err != nil {
		return nil, err
	}

	var clusters []string
	nLine := 1
	for scanner.Scan() {
		nLine++
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < len(header) {
			return nil, errors.Errorf("pairwise table row %d has %d columns, want %d", nLine, len(cols), len(header))
		}
		significant := true
		for _, i := range keep[1:] {
			v, err := strconv.ParseFloat(cols[i], 64)
			if err != nil || !(v < opts.Threshold) {
				significant = false
				break
			}
		}
		if !significant {
			continue
		}
		for _, i := range keep {
			w.WriteString(cols[i])
		}
		if err := w.EndLine(); err != nil {
			return nil, err
		}
		clusters = append(clusters, cols[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read pairwise table")
	}
	return clusters, w.Flush()
}

// crossGroup reports whether col names a comparison between two accessions
// of different groups.  Column names that do not split into exactly two
// accessions are not comparisons and are dropped.  An accession absent from
// types gets the empty group, so a known-vs-unknown comparison counts as
// cross-group, matching the historical behavior.
func crossGroup(col string, types map[string]string, delim string) bool {
	parts := strings.Split(col, delim)
	if len(parts) != 2 {
		return false
	}
	return types[parts[0]] != types[parts[1]]
}

// FilterAllPS restricts a tab-separated table to rows whose "cluster" column
// value is in clusters.  The header row is preserved.
func FilterAllPS(in io.Reader, out io.Writer, clusters []string) error {
	keep := make(map[string]bool, len(clusters))
	for _, c := range clusters {
		keep[c] = true
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return errors.Wrap(err, "read allPS table")
		}
		return errors.New("allPS table is empty")
	}
	header := strings.Split(scanner.Text(), "\t")
	clusterCol := -1
	for i, col := range header {
		if col == "cluster" {
			clusterCol = i
			break
		}
	}
	if clusterCol < 0 {
		return errors.New("allPS table has no cluster column")
	}
	w := bufio.NewWriter(out)
	if _, err := w.WriteString(scanner.Text() + "\n"); err != nil {
		return err
	}
	for scanner.Scan() {
		line := scanner.Text()
		cols := strings.Split(line, "\t")
		if clusterCol >= len(cols) || !keep[cols[clusterCol]] {
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read allPS table")
	}
	return w.Flush()
}

// FilterFiles applies both filter passes using the historical file naming
// around prefix:
//
//	{prefix}_pairwiseFisherResults.tsv  ->  {prefix}_filteredResults.tsv
//	{prefix}_allPS.tsv                  ->  {prefix}_filteredAllPS.tsv
//
// with group labels taken from {prefix}_manifest.txt.
func FilterFiles(ctx context.Context, prefix string, opts FilterOpts) (err error) {
	rows, err := ledger.ReadSampleManifest(prefix + "_manifest.txt")
	if err != nil {
		return err
	}
	types := ledger.TypeByID(rows)

	clusters, err := filterFile(ctx, prefix+"_pairwiseFisherResults.tsv", prefix+"_filteredResults.tsv",
		func(in io.Reader, out io.Writer) ([]string, error) {
			return FilterPairwise(in, out, types, opts)
		})
	if err != nil {
		return err
	}
	_, err = filterFile(ctx, prefix+"_allPS.tsv", prefix+"_filteredAllPS.tsv",
		func(in io.Reader, out io.Writer) ([]string, error) {
			return nil, FilterAllPS(in, out, clusters)
		})
	return err
}

func filterFile(ctx context.Context, inPath, outPath string,
	fn func(in io.Reader, out io.Writer) ([]string, error)) (clusters []string, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	return fn(in.Reader(ctx), out.Writer(ctx))
}
