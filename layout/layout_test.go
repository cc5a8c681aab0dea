package layout_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/splicepipe/layout"
)

func TestPathsAreDeterministic(t *testing.T) {
	s := layout.Store{BaseDir: "/out"}
	assert.Equal(t, "/out/SRR001", s.SampleDir("SRR001"))
	assert.Equal(t, "/out/SRR001/SRR001.sra", s.SRAPath("SRR001"))
	assert.Equal(t, "/out/fastq", s.FastqDir())
	assert.Equal(t, "/out/bam_manifest.txt", s.ManifestPath())
	// Same inputs, same paths.
	assert.Equal(t, s.SampleDir("SRR001"), s.SampleDir("SRR001"))
}

func TestEnsureDirsIdempotent(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	s := layout.Store{BaseDir: filepath.Join(tempDir, "out")}
	for i := 0; i < 2; i++ {
		dir, err := s.EnsureSampleDir("SRR001")
		require.NoError(t, err)
		assert.True(t, layout.Exists(dir))
		_, err = s.EnsureFastqDir()
		require.NoError(t, err)
	}
}

func TestHasAlignment(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	s := layout.Store{BaseDir: tempDir}
	assert.False(t, s.HasAlignment("SRR001"))

	dir, err := s.EnsureSampleDir("SRR001")
	require.NoError(t, err)
	assert.False(t, s.HasAlignment("SRR001"))

	bam := filepath.Join(dir, "Aligned.sortedByCoord.out.bam")
	require.NoError(t, ioutil.WriteFile(bam, []byte("bam"), 0644))
	assert.True(t, s.HasAlignment("SRR001"))

	got, err := s.AlignmentBAM("SRR001")
	require.NoError(t, err)
	assert.Equal(t, bam, got)
}

func TestAlignmentBAMMissing(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	s := layout.Store{BaseDir: tempDir}
	_, err := s.AlignmentBAM("SRR001")
	assert.Error(t, err)
}

func TestHasDecompressed(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	s := layout.Store{BaseDir: tempDir}
	gz := filepath.Join(tempDir, "SRR001_1.fastq.gz")
	assert.False(t, s.HasDecompressed(gz))
	require.NoError(t, ioutil.WriteFile(filepath.Join(tempDir, "SRR001_1.fastq"), []byte("@r1"), 0644))
	assert.True(t, s.HasDecompressed(gz))
}

func TestHasFastq(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	s := layout.Store{BaseDir: tempDir}
	require.NoError(t, os.MkdirAll(s.FastqDir(), 0775))

	assert.False(t, s.HasFastq("SRR001", true))
	require.NoError(t, ioutil.WriteFile(filepath.Join(s.FastqDir(), "SRR001_pass_1.fastq.gz"), nil, 0644))
	// One mate is not enough for a paired run.
	assert.False(t, s.HasFastq("SRR001", true))
	require.NoError(t, ioutil.WriteFile(filepath.Join(s.FastqDir(), "SRR001_pass_2.fastq.gz"), nil, 0644))
	assert.True(t, s.HasFastq("SRR001", true))

	assert.False(t, s.HasFastq("SRR001", false))
	require.NoError(t, ioutil.WriteFile(filepath.Join(s.FastqDir(), "SRR001_pass.fastq.gz"), nil, 0644))
	assert.True(t, s.HasFastq("SRR001", false))
}

func TestHasSRA(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	s := layout.Store{BaseDir: tempDir}
	assert.False(t, s.HasSRA("SRR001"))
	_, err := s.EnsureSampleDir("SRR001")
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(s.SRAPath("SRR001"), []byte("sra"), 0644))
	assert.True(t, s.HasSRA("SRR001"))
}
