package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anophel-labs/sweepmill/internal/testutil"
)

func testConfig(outDir string) Config {
	return Config{
		Name:      "prevalence",
		TagKeys:   []string{"sample_id", "run_number", "district"},
		Channels:  []string{"Prevalence"},
		StartYear: 2010,
		OutDir:    outDir,
		Workers:   2,
	}
}

func testBundle(path, sampleID, run, district string) Bundle {
	return Bundle{
		Path: path,
		Tags: map[string]string{
			"sample_id":  sampleID,
			"run_number": run,
			"district":   district,
		},
	}
}

func TestNewSchema(t *testing.T) {
	p, err := New(testConfig(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"sample_id", "run_number", "district",
		"Time", "Day", "Year", "date",
		"Prevalence",
	}, p.Columns())
}

func TestNewValidation(t *testing.T) {
	cfg := testConfig(t.TempDir())

	noName := cfg
	noName.Name = ""
	_, err := New(noName)
	require.Error(t, err)

	noChannels := cfg
	noChannels.Channels = nil
	_, err = New(noChannels)
	require.Error(t, err)

	noTags := cfg
	noTags.TagKeys = nil
	_, err = New(noTags)
	require.Error(t, err)
}

func TestMapPure(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"Prevalence": {0.5, 0.25},
	})
	b := testBundle(path, "s-001", "0", "north")

	p, err := New(testConfig(dir))
	require.NoError(t, err)

	doc, err := b.Load()
	require.NoError(t, err)

	first, err := p.Map(doc, b.Tags)
	require.NoError(t, err)
	second, err := p.Map(doc, b.Tags)
	require.NoError(t, err)

	// Pure: identical input, identical output.
	require.Equal(t, first.Len(), second.Len())
	for i := 0; i < first.Len(); i++ {
		assert.Equal(t, first.Row(i), second.Row(i))
	}

	// One row per timestep, with the derived calendar columns.
	require.Equal(t, 2, first.Len())
	assert.Equal(t,
		[]string{"s-001", "0", "north", "0", "0", "2010", "2009-12-31", "0.5"},
		first.Row(0))
	assert.Equal(t,
		[]string{"s-001", "0", "north", "1", "1", "2010", "2010-01-01", "0.25"},
		first.Row(1))
}

func TestMapMissingTagKey(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"Prevalence": {0.5},
	})
	b := Bundle{Path: path, Tags: map[string]string{"sample_id": "s-001"}}

	p, err := New(testConfig(dir))
	require.NoError(t, err)
	doc, err := b.Load()
	require.NoError(t, err)

	_, err = p.Map(doc, b.Tags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run_number")
}

func TestMapMissingChannel(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"EIR": {1, 2},
	})
	b := testBundle(path, "s-001", "0", "north")

	p, err := New(testConfig(dir))
	require.NoError(t, err)
	doc, err := b.Load()
	require.NoError(t, err)

	_, err = p.Map(doc, b.Tags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Prevalence")
}

func TestRunMixedExclusions(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	// Three healthy bundles, one missing artifact, one unparseable.
	var bundles []Bundle
	for i, s := range []string{"s-001", "s-002", "s-003"} {
		path := testutil.WriteBundle(t, dir, s, i, map[string][]float64{
			"Prevalence": {0.5, 0.25},
		})
		bundles = append(bundles, testBundle(path, s, strconv.Itoa(i), "north"))
	}
	bundles = append(bundles,
		testBundle(filepath.Join(dir, "s-004_3.json"), "s-004", "3", "north"))
	garbage := testutil.WriteRawBundle(t, dir, "s-005", 4, []byte("{"))
	bundles = append(bundles, testBundle(garbage, "s-005", "4", "north"))

	p, err := New(testConfig(outDir))
	require.NoError(t, err)

	report, err := p.Run(context.Background(), bundles)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Included)
	assert.Equal(t, 2, report.Excluded)
	assert.Equal(t, 6, report.Rows, "row count equals the sum of included timesteps")
	require.Len(t, report.Exclusions, 2)
	assert.Equal(t, "s-004", report.Exclusions[0].SampleID)
	assert.Equal(t, "3", report.Exclusions[0].RunNumber)
	assert.Contains(t, report.Exclusions[0].Reason, "artifact missing")
	assert.Contains(t, report.Exclusions[1].Reason, "unparseable")

	// The artifact holds exactly the included rows, in bundle input order.
	require.FileExists(t, report.Path)
	data, err := os.ReadFile(report.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "s-003")
	assert.NotContains(t, string(data), "s-004")
}

func TestRunEmptyResult(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	bundles := []Bundle{
		testBundle(filepath.Join(dir, "s-001_0.json"), "s-001", "0", "north"),
		testBundle(filepath.Join(dir, "s-002_1.json"), "s-002", "1", "north"),
	}

	p, err := New(testConfig(outDir))
	require.NoError(t, err)

	report, err := p.Run(context.Background(), bundles)
	require.ErrorIs(t, err, ErrEmptyResult)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Included)
	assert.Equal(t, 2, report.Excluded)
	assert.Empty(t, report.Path)

	// No artifact, not even an empty one.
	_, statErr := os.Stat(filepath.Join(outDir, "prevalence.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMapErrorFailsBatch(t *testing.T) {
	dir := t.TempDir()

	// Parseable artifact without the requested channel: a map failure, not a
	// filter exclusion.
	path := testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"EIR": {1},
	})
	bundles := []Bundle{testBundle(path, "s-001", "0", "north")}

	p, err := New(testConfig(filepath.Join(dir, "out")))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), bundles)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResult)
	assert.Contains(t, err.Error(), "Prevalence")
}

func TestRunPartialMapErrorExcluded(t *testing.T) {
	dir := t.TempDir()

	bad := testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"EIR": {1},
	})
	good := testutil.WriteBundle(t, dir, "s-002", 1, map[string][]float64{
		"Prevalence": {0.5},
	})
	bundles := []Bundle{
		testBundle(bad, "s-001", "0", "north"),
		testBundle(good, "s-002", "1", "north"),
	}

	cfg := testConfig(filepath.Join(dir, "out"))
	cfg.Partial = true
	p, err := New(cfg)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), bundles)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Included)
	assert.Equal(t, 1, report.Excluded)
	require.Len(t, report.Exclusions, 1)
	assert.Contains(t, report.Exclusions[0].Reason, "map:")
}

func TestRunCutoff(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"Prevalence": {0.5},
	})
	bundles := []Bundle{testBundle(path, "s-001", "0", "north")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cutoff already passed

	// Outside partial mode an expired context fails the batch.
	p, err := New(testConfig(filepath.Join(dir, "out")))
	require.NoError(t, err)
	_, err = p.Run(ctx, bundles)
	require.ErrorIs(t, err, context.Canceled)

	// In partial mode the unprocessed bundles become counted exclusions;
	// with nothing left the run reports the empty result explicitly.
	cfg := testConfig(filepath.Join(dir, "out"))
	cfg.Partial = true
	p, err = New(cfg)
	require.NoError(t, err)

	report, err := p.Run(ctx, bundles)
	require.ErrorIs(t, err, ErrEmptyResult)
	require.Len(t, report.Exclusions, 1)
	assert.Contains(t, report.Exclusions[0].Reason, "cutoff")
}

func TestRunGolden(t *testing.T) {
	dir := t.TempDir()

	testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"Prevalence": {0.5, 0.25},
	})
	testutil.WriteBundle(t, dir, "s-002", 1, map[string][]float64{
		"Prevalence": {0.125},
	})
	bundles := []Bundle{
		testBundle(filepath.Join(dir, "s-001_0.json"), "s-001", "0", "north"),
		testBundle(filepath.Join(dir, "s-002_1.json"), "s-002", "1", "north"),
	}

	outDir := filepath.Join(dir, "out")
	p, err := New(testConfig(outDir))
	require.NoError(t, err)

	report, err := p.Run(context.Background(), bundles)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rows)

	data, err := os.ReadFile(report.Path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "consolidated", data)
}
