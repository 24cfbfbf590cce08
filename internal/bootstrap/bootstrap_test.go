package bootstrap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmb/internal/bootstrap"
)

// chdirRepoRoot switches the working directory to the module root for the
// duration of the test, the same cwd the "bootstrap" CLI verb runs from
// when it loads bmb.bootstrap.yaml, so this test exercises exactly the
// config the CLI reads by default rather than a private copy of it.
func chdirRepoRoot(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Join(wd, "..", "..")))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(wd))
	})
}

func TestRunExercisesFixedPointGoldenAndBenchmarks(t *testing.T) {
	chdirRepoRoot(t)

	cfg, err := bootstrap.LoadConfig("bmb.bootstrap.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Golden)
	require.NotEmpty(t, cfg.Benchmarks)

	report, err := bootstrap.Run(cfg)
	require.NoError(t, err)

	assert.True(t, report.FixedPoint.Match, "emitting testdata/bootstrap/self_sample.bmb twice should produce identical IR")

	for _, g := range report.Golden {
		assert.Truef(t, g.Pass, "golden %s: got (%q, %d, err=%v), want (%q, %d)",
			g.Name, g.GotStdout, g.GotExit, g.Err, g.WantStdout, g.WantExit)
	}

	for _, b := range report.Bench {
		assert.Truef(t, b.Pass, "benchmark %s missed its gate: ratio %.3f vs gate %.3f", b.Name, b.Ratio, b.Gate)
	}

	assert.True(t, report.OK())
}

func TestLoadConfigRejectsManifestMissingSelfSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "incomplete.yaml")
	require.NoError(t, os.WriteFile(path, []byte("golden: []\n"), 0o644))

	_, err := bootstrap.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigDefaultsPerfGateRatio(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("self_source: x.bmb\n"), 0o644))

	cfg, err := bootstrap.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1.10, cfg.PerfGateRatio)
}
