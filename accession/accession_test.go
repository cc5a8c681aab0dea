package accession_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/splicepipe/accession"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"SRR1039508_1.fastq.gz", "SRR1039508", false},
		{"SRR1039508_pass_2.fastq", "SRR1039508", false},
		{"/data/runs/SRR1039508_1.fastq", "SRR1039508", false},
		{"relative/dir/SRR1039508_1.fastq", "SRR1039508", false},
		{"SRR1039508.sra", "SRR1039508.sra", false},
		{"_1.fastq.gz", "", true},
	}
	for _, tt := range tests {
		got, err := accession.Resolve(tt.path)
		if tt.wantErr {
			assert.Error(t, err, "path=%s", tt.path)
			continue
		}
		require.NoError(t, err, "path=%s", tt.path)
		assert.Equal(t, tt.want, got, "path=%s", tt.path)
	}
}

// The accession is the join key across stages, so resolution must not depend
// on where the file lives or how often it is resolved.
func TestResolveDeterministic(t *testing.T) {
	for _, dir := range []string{"", "/tmp/a", "/other/deep/dir", "rel"} {
		path := filepath.Join(dir, "SRR001_1.fastq.gz")
		first, err := accession.Resolve(path)
		require.NoError(t, err)
		second, err := accession.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, "SRR001", first)
	}
}

func TestResolveDelim(t *testing.T) {
	got, err := accession.ResolveDelim("SRR001-1.fastq", "-")
	require.NoError(t, err)
	assert.Equal(t, "SRR001", got)
}

func TestPairFiles(t *testing.T) {
	pairs, err := accession.PairFiles([]string{
		"SRR001_1.fastq", "SRR001_2.fastq",
		"SRR002_1.fastq", "SRR002_2.fastq",
		"SRR003_1.fastq", "SRR003_2.fastq",
	})
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, accession.Pair{Accession: "SRR001", R1: "SRR001_1.fastq", R2: "SRR001_2.fastq"}, pairs[0])
	assert.Equal(t, accession.Pair{Accession: "SRR002", R1: "SRR002_1.fastq", R2: "SRR002_2.fastq"}, pairs[1])
	assert.Equal(t, accession.Pair{Accession: "SRR003", R1: "SRR003_1.fastq", R2: "SRR003_2.fastq"}, pairs[2])
}

func TestPairFilesOddLength(t *testing.T) {
	_, err := accession.PairFiles([]string{"SRR001_1.fastq", "SRR001_2.fastq", "SRR002_1.fastq"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "even number")
}

func TestPairFilesMateMismatch(t *testing.T) {
	_, err := accession.PairFiles([]string{"SRR001_1.fastq", "SRR002_2.fastq"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different accessions")
}

func TestReadList(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := filepath.Join(tempDir, "accessions.txt")
	require.NoError(t, ioutil.WriteFile(path,
		[]byte("run_accession\nSRR001\n\nSRR002\n  SRR003  \n"), 0644))
	ids, err := accession.ReadList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SRR001", "SRR002", "SRR003"}, ids)
}

func TestReadListMissing(t *testing.T) {
	_, err := accession.ReadList("/no/such/list.txt")
	assert.Error(t, err)
}
