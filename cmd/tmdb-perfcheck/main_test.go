package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineOutput = `goos: linux
BenchmarkLogin-8             	   10000	    120000 ns/op	    9000 B/op	      90 allocs/op
BenchmarkLogin-8             	   10000	    100000 ns/op	    9000 B/op	      90 allocs/op
BenchmarkSessionByHandle-8   	  100000	     20000 ns/op	     600 B/op	      12 allocs/op
BenchmarkValidateTicket-8    	   50000	     30000 ns/op	    1500 B/op	      25 allocs/op
BenchmarkMetricsSnapshot-8   	 1000000	      1000 ns/op	       0 B/op	       0 allocs/op
PASS
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseBenchmarksStripsProcSuffix(t *testing.T) {
	samples, err := parseBenchmarks(strings.NewReader(baselineOutput), defaultTracked)
	require.NoError(t, err)
	assert.Equal(t, []float64{120000, 100000}, samples["BenchmarkLogin"]["ns/op"])
	assert.Equal(t, []float64{12}, samples["BenchmarkSessionByHandle"]["allocs/op"])
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}

func TestNoRegressionPasses(t *testing.T) {
	base := writeFile(t, "base.txt", baselineOutput)
	cand := writeFile(t, "cand.txt", baselineOutput)

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"--baseline", base, "--candidate", cand})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "BenchmarkLogin ns/op")
}

func TestRegressionFails(t *testing.T) {
	base := writeFile(t, "base.txt", baselineOutput)
	slower := strings.Replace(baselineOutput, " 20000 ns/op", " 90000 ns/op", 1)
	cand := writeFile(t, "cand.txt", slower)

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--baseline", base, "--candidate", cand})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BenchmarkSessionByHandle ns/op regressed")
}

func TestMissingSamplesFail(t *testing.T) {
	base := writeFile(t, "base.txt", baselineOutput)
	cand := writeFile(t, "cand.txt", "PASS\n")

	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--baseline", base, "--candidate", cand})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing samples")
}

func TestNegativeThresholdRejected(t *testing.T) {
	base := writeFile(t, "base.txt", baselineOutput)

	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--baseline", base, "--candidate", base, "--threshold=-1"})
	assert.Error(t, cmd.Execute())
}
