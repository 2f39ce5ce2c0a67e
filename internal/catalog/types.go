package catalog

import "sort"

// Scenario is one row of the scenario table. The scenario selected at build
// time drives intervention-file choice and the sweep dimensions.
type Scenario struct {
	// ID uniquely identifies the scenario.
	ID string `yaml:"id"`

	// Description explains what the scenario varies.
	Description string `yaml:"description,omitempty"`

	// InterventionFile is the path to the CUE intervention definition,
	// relative to the catalog directory.
	InterventionFile string `yaml:"intervention_file"`

	// SeedsPerSample is the number of runs generated per calibration sample.
	SeedsPerSample int `yaml:"seeds_per_sample"`

	// SeedPeriod is the modulus used to cycle base seeds across runs.
	// seed(i) = base_seed + (i mod SeedPeriod).
	SeedPeriod int `yaml:"seed_period"`

	// WarmStart enables burn-in matching: each run resumes from a prior
	// serialized population state selected at ResumeDay.
	WarmStart bool `yaml:"warm_start,omitempty"`

	// ResumeDay is the simulation day at which warm-started runs resume.
	ResumeDay int `yaml:"resume_day,omitempty"`

	// StartYear anchors the calendar derivation for this scenario's outputs.
	StartYear int `yaml:"start_year"`
}

// SampleDraw is one calibration posterior sample for a district.
// Immutable once loaded.
type SampleDraw struct {
	// District is the administrative unit the sample was calibrated for.
	District string

	// ID uniquely identifies the sample across the whole table.
	ID string

	// BaseSeed is the seed pool anchor for runs generated from this sample.
	BaseSeed int64

	// HabitatMultiplier scales larval habitat in the run configuration.
	HabitatMultiplier float64

	// SerializedID is the sample identifier used by the burn-in sweep this
	// sample should resume from. Defaults to ID when the burn-in used the
	// same sample numbering.
	SerializedID string
}

// DistrictMeta is one row of the master district table.
type DistrictMeta struct {
	District  string
	Archetype string // seasonality archetype reference
}

// Catalog holds all loaded input tables. It is immutable after Load and is
// passed explicitly to the builder and pipeline.
type Catalog struct {
	scenarios map[string]Scenario
	samples   []SampleDraw // table order preserved
	districts map[string]DistrictMeta

	// Dir is the directory the catalog was loaded from. Intervention file
	// paths in scenarios are resolved against it.
	Dir string
}

// Scenario returns the scenario row for the given identifier.
func (c *Catalog) Scenario(id string) (Scenario, error) {
	s, ok := c.scenarios[id]
	if !ok {
		return Scenario{}, &Error{
			Code:     ErrCodeUnknownScenario,
			Message:  "scenario not found in scenario table",
			Scenario: id,
		}
	}
	return s, nil
}

// SamplesFor returns the calibration samples for one district, in table order.
func (c *Catalog) SamplesFor(district string) []SampleDraw {
	var out []SampleDraw
	for _, s := range c.samples {
		if s.District == district {
			out = append(out, s)
		}
	}
	return out
}

// Districts returns the sorted set of districts present in the sample table.
func (c *Catalog) Districts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range c.samples {
		if !seen[s.District] {
			seen[s.District] = true
			out = append(out, s.District)
		}
	}
	sort.Strings(out)
	return out
}

// DistrictMeta returns the master-table row for a district. A district that
// appears in the sample table but not in the master table is a fatal
// missing-input error: the build must abort, not silently skip the district.
func (c *Catalog) DistrictMeta(district string) (DistrictMeta, error) {
	m, ok := c.districts[district]
	if !ok {
		return DistrictMeta{}, &Error{
			Code:     ErrCodeMissingInput,
			Message:  "district missing from master table (no archetype reference)",
			District: district,
		}
	}
	return m, nil
}

// ScenarioIDs returns the sorted identifiers of all scenario rows.
func (c *Catalog) ScenarioIDs() []string {
	out := make([]string, 0, len(c.scenarios))
	for id := range c.scenarios {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SampleCount returns the total number of samples across all districts.
func (c *Catalog) SampleCount() int {
	return len(c.samples)
}

// CheckCrossRefs verifies that every district in the sample table has a
// master-table row. Returns the first missing-input error encountered.
func (c *Catalog) CheckCrossRefs() error {
	for _, d := range c.Districts() {
		if _, err := c.DistrictMeta(d); err != nil {
			return err
		}
	}
	return nil
}
