package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/splicepipe/workflow"
)

func TestBatchErr(t *testing.T) {
	ok := workflow.Result{Succeeded: []string{"SRR001"}}
	bad := workflow.Result{
		Succeeded: []string{"SRR001"},
		Failed:    []workflow.Failure{workflow.Failf("SRR002", workflow.ToolInvocationFailed, "exited 1")},
	}

	require.NoError(t, batchErr())
	require.NoError(t, batchErr(ok, ok))

	err := batchErr(ok, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SRR002")
}
