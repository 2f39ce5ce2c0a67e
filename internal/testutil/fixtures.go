// Package testutil provides fixture helpers shared by the package tests:
// synthetic input catalogs on disk and per-run output bundles.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// CatalogFixture describes a synthetic input catalog. Zero-value fields fall
// back to the defaults from DefaultCatalog, so tests override only the table
// they exercise.
type CatalogFixture struct {
	Scenarios string // scenarios.yaml body
	Samples   string // samples.csv body
	Districts string // districts.csv body

	// Files are extra catalog files keyed by relative path, typically the
	// CUE intervention definitions the scenario table references.
	Files map[string]string
}

// DefaultScenarios is a single-scenario table: two runs per sample with a
// seed period of 2.
const DefaultScenarios = `scenarios:
  - id: baseline
    description: no additional interventions
    intervention_file: baseline.cue
    seeds_per_sample: 2
    seed_period: 2
    start_year: 2010
`

// DefaultSamples covers two districts with two and one calibration samples.
const DefaultSamples = `district,sample_id,base_seed,habitat_multiplier
north,s-001,1000,1.25
north,s-002,2000,0.80
south,s-101,5000,1.10
`

// DefaultDistricts is the master table matching DefaultSamples.
const DefaultDistricts = `district,archetype
north,highland
south,coastal
`

// DefaultIntervention is a minimal one-event campaign definition.
const DefaultIntervention = `intervention: baseline: {
	description: "pre-change programme"
	event: [
		{name: "itn_distribution", day: 180, coverage_percent: 80},
	]
}
`

// DefaultCatalog returns a complete, internally consistent fixture.
func DefaultCatalog() CatalogFixture {
	return CatalogFixture{
		Scenarios: DefaultScenarios,
		Samples:   DefaultSamples,
		Districts: DefaultDistricts,
		Files:     map[string]string{"baseline.cue": DefaultIntervention},
	}
}

// Write materializes the fixture in a fresh temp directory and returns it.
// Unset tables take the defaults.
func (f CatalogFixture) Write(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	def := DefaultCatalog()

	write := func(name, body, fallback string) {
		if body == "" {
			body = fallback
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("scenarios.yaml", f.Scenarios, def.Scenarios)
	write("samples.csv", f.Samples, def.Samples)
	write("districts.csv", f.Districts, def.Districts)

	files := f.Files
	if files == nil {
		files = def.Files
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	return dir
}

// bundleDoc mirrors the on-disk output bundle shape without importing the
// pipeline package (which depends on this one in tests).
type bundleDoc struct {
	Header   bundleHeader             `json:"Header"`
	Channels map[string]bundleChannel `json:"Channels"`
}

type bundleHeader struct {
	Timesteps int       `json:"Timesteps,omitempty"`
	AgeBins   []float64 `json:"AgeBins,omitempty"`
}

type bundleChannel struct {
	Units string    `json:"Units,omitempty"`
	Data  []float64 `json:"Data"`
}

// WriteBundle writes a valid per-run output bundle at
// dir/<sampleID>_<run>.json and returns its path. All channels must share
// the same length.
func WriteBundle(t *testing.T, dir, sampleID string, run int, channels map[string][]float64) string {
	t.Helper()

	doc := bundleDoc{Channels: make(map[string]bundleChannel, len(channels))}
	for name, data := range channels {
		doc.Channels[name] = bundleChannel{Data: data}
		doc.Header.Timesteps = len(data)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}

	path := filepath.Join(dir, sampleID+"_"+strconv.Itoa(run)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	return path
}

// WriteRawBundle writes arbitrary bytes at the bundle path for a run, for
// exercising unparseable-artifact handling.
func WriteRawBundle(t *testing.T, dir, sampleID string, run int, body []byte) string {
	t.Helper()

	path := filepath.Join(dir, sampleID+"_"+strconv.Itoa(run)+".json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	return path
}
