package mesa_test

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/splicepipe/mesa"
)

// fakeMesa records each invocation in callLog.  Invocations of failCmd exit
// non-zero.
func fakeMesa(t *testing.T, dir, callLog, failCmd string) string {
	body := "#!/bin/sh\n" + `echo "$@" >> ` + callLog + "\n"
	if failCmd != "" {
		body += `if [ "$1" = "` + failCmd + `" ]; then echo "no junctions found" >&2; exit 1; fi` + "\n"
	}
	path := filepath.Join(dir, "mesa")
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0755))
	return path
}

func readCallLog(t *testing.T, callLog string) string {
	data, err := ioutil.ReadFile(callLog)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestRunQuant(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)

	callLog := filepath.Join(tempDir, "calls.txt")
	opts := mesa.QuantOpts{
		MesaPath:     fakeMesa(t, tempDir, callLog, ""),
		Genome:       "/ref/genome.fa",
		Manifest:     filepath.Join(tempDir, "bam_manifest.txt"),
		Annotations:  "/ref/genes.gtf",
		OutputPrefix: filepath.Join(tempDir, "run1"),
		Threads:      8,
	}
	require.NoError(t, mesa.RunQuant(context.Background(), opts))

	calls := readCallLog(t, callLog)
	assert.Equal(t,
		"bam_to_junc_bed -m "+opts.Manifest+" -a /ref/genes.gtf -g /ref/genome.fa -o "+opts.OutputPrefix+" -n 8\n"+
			"quant -i "+opts.OutputPrefix+".txt -o "+opts.OutputPrefix+"_quant_output\n",
		calls)
}

func TestRunQuantDefaultThreads(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)

	callLog := filepath.Join(tempDir, "calls.txt")
	opts := mesa.QuantOpts{MesaPath: fakeMesa(t, tempDir, callLog, "")}
	require.NoError(t, mesa.JuncBed(context.Background(), opts))
	assert.Contains(t, readCallLog(t, callLog), "-n 10")
}

// A bam_to_junc_bed failure stops the stage before quant runs.
func TestRunQuantJuncBedFails(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)

	callLog := filepath.Join(tempDir, "calls.txt")
	opts := mesa.QuantOpts{MesaPath: fakeMesa(t, tempDir, callLog, "bam_to_junc_bed")}
	err := mesa.RunQuant(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bam_to_junc_bed")
	assert.Contains(t, err.Error(), "no junctions found")
	assert.NotContains(t, readCallLog(t, callLog), "quant -i")
}

func TestRunQuantTimeout(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)

	slow := filepath.Join(tempDir, "mesa")
	require.NoError(t, ioutil.WriteFile(slow, []byte("#!/bin/sh\nsleep 10\n"), 0755))
	opts := mesa.QuantOpts{MesaPath: slow, Timeout: 50 * time.Millisecond}
	err := mesa.Quant(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
