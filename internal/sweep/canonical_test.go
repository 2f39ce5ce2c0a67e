package sweep

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]string{
		"run_number": "3",
		"district":   "north",
		"sample_id":  "s-001",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"district":"north","run_number":"3","sample_id":"s-001"}`, string(out))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical(map[string]string{"note": "a<b&c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"note":"a<b&c>d"}`, string(out))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) normalizes to U+00E9.
	decomposed, err := MarshalCanonical("é")
	require.NoError(t, err)
	composed, err := MarshalCanonical("é")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1D306 (outside the BMP) encodes as a surrogate pair starting 0xD834,
	// which sorts before U+FF01 in UTF-16 but after it in UTF-8 bytes.
	out, err := MarshalCanonical(map[string]string{
		"\U0001d306": "astral",
		"！":     "bmp",
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001d306\":\"astral\",\"！\":\"bmp\"}", string(out))
}

func TestTagHashDeterministic(t *testing.T) {
	tags := map[string]string{
		"sample_id":  "s-001",
		"run_number": "0",
		"district":   "north",
	}

	h1, err := TagHash(tags)
	require.NoError(t, err)
	h2, err := TagHash(tags)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Any value change changes the hash.
	tags["run_number"] = "1"
	h3, err := TagHash(tags)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestMarshalCanonicalGolden(t *testing.T) {
	// The exact bytes persisted in the manifest's tags column for a
	// representative point.
	tags := map[string]string{
		"sample_id":    "s-001",
		"run_number":   "0",
		"sweep_id":     "0190a1b2-0000-7000-8000-000000000001",
		"district":     "north",
		"archetype":    "highland",
		"intervention": "baseline",
	}
	out, err := MarshalCanonical(tags)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tagset", out)
}

func TestTagHashStable(t *testing.T) {
	// Pinned value: the manifest stores these hashes, so the algorithm must
	// not drift between releases.
	h, err := TagHash(map[string]string{"sample_id": "s-001", "run_number": "0"})
	require.NoError(t, err)

	h2, err := TagHash(map[string]string{"run_number": "0", "sample_id": "s-001"})
	require.NoError(t, err)
	assert.Equal(t, h, h2, "hash must be independent of insertion order")
}
