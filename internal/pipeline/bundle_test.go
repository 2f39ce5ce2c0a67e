package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anophel-labs/sweepmill/internal/testutil"
)

func TestBundleLoad(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteBundle(t, dir, "s-001", 0, map[string][]float64{
		"Prevalence": {0.5, 0.25, 0.125},
		"EIR":        {1, 2, 3},
	})

	b := Bundle{Path: path, Tags: map[string]string{"sample_id": "s-001"}}
	doc, err := b.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, doc.Timesteps())
	assert.Equal(t, []string{"EIR", "Prevalence"}, doc.ChannelNames())
	assert.Equal(t, []float64{0.5, 0.25, 0.125}, doc.Channels["Prevalence"].Data)
}

func TestBundleLoadMissingArtifact(t *testing.T) {
	b := Bundle{Path: filepath.Join(t.TempDir(), "absent.json")}
	_, err := b.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact missing")
}

func TestBundleLoadUnparseable(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteRawBundle(t, dir, "s-001", 0, []byte("not json at all"))

	b := Bundle{Path: path}
	_, err := b.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable")
}

func TestBundleLoadNoChannels(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteRawBundle(t, dir, "s-001", 0, []byte(`{"Header":{},"Channels":{}}`))

	b := Bundle{Path: path}
	_, err := b.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no channels")
}

func TestBundleLoadUnequalChannelLengths(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteRawBundle(t, dir, "s-001", 0, []byte(
		`{"Channels":{"A":{"Data":[1,2,3]},"B":{"Data":[1,2]}}}`))

	b := Bundle{Path: path}
	_, err := b.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timesteps")
}

func TestBundleLoadHeaderTimestepsMismatch(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteRawBundle(t, dir, "s-001", 0, []byte(
		`{"Header":{"Timesteps":5},"Channels":{"A":{"Data":[1,2,3]}}}`))

	b := Bundle{Path: path}
	_, err := b.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header declares 5")
}

func TestBundleLoadAgeBinsNotIncreasing(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteRawBundle(t, dir, "s-001", 0, []byte(
		`{"Header":{"AgeBins":[5,5,15]},"Channels":{"A":{"Data":[1]}}}`))

	b := Bundle{Path: path}
	_, err := b.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age bins")
}
