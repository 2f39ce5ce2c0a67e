package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// File names expected inside a catalog directory.
const (
	ScenarioFile = "scenarios.yaml"
	SampleFile   = "samples.csv"
	MasterFile   = "districts.csv"
)

// scenarioTable is the on-disk shape of the scenario YAML file.
type scenarioTable struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load reads all input tables from dir and returns an immutable Catalog.
//
// Validation performed at load time:
//   - scenario IDs are unique and every scenario names an intervention file
//   - sample IDs are unique across the whole sample table
//
// Cross-reference checks between tables happen at build time (or via
// CheckCrossRefs) so failures are attributed to the build that needed them.
func Load(dir string) (*Catalog, error) {
	scenarios, err := loadScenarios(filepath.Join(dir, ScenarioFile))
	if err != nil {
		return nil, err
	}

	samples, err := loadSamples(filepath.Join(dir, SampleFile))
	if err != nil {
		return nil, err
	}

	districts, err := loadMaster(filepath.Join(dir, MasterFile))
	if err != nil {
		return nil, err
	}

	return &Catalog{
		scenarios: scenarios,
		samples:   samples,
		districts: districts,
		Dir:       dir,
	}, nil
}

// loadScenarios parses the scenario table with strict field validation
// (unknown YAML keys are typos, not extensions).
func loadScenarios(path string) (map[string]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("read scenario table: %v", err)}
	}

	var table scenarioTable
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&table); err != nil {
		return nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("parse scenario table: %v", err)}
	}

	scenarios := make(map[string]Scenario, len(table.Scenarios))
	for _, s := range table.Scenarios {
		if s.ID == "" {
			return nil, &Error{Code: ErrCodeBadTable, Message: "scenario with empty id"}
		}
		if _, dup := scenarios[s.ID]; dup {
			return nil, &Error{Code: ErrCodeBadTable, Message: "duplicate scenario id", Scenario: s.ID}
		}
		if s.InterventionFile == "" {
			return nil, &Error{Code: ErrCodeBadTable, Message: "scenario missing intervention_file", Scenario: s.ID}
		}
		if s.SeedsPerSample <= 0 {
			return nil, &Error{Code: ErrCodeBadTable, Message: "seeds_per_sample must be positive", Scenario: s.ID}
		}
		if s.SeedPeriod <= 0 {
			return nil, &Error{Code: ErrCodeBadTable, Message: "seed_period must be positive", Scenario: s.ID}
		}
		scenarios[s.ID] = s
	}
	if len(scenarios) == 0 {
		return nil, &Error{Code: ErrCodeBadTable, Message: "scenario table is empty"}
	}

	return scenarios, nil
}

// Sample table columns. The serialized_id column is optional.
const (
	colDistrict     = "district"
	colSampleID     = "sample_id"
	colBaseSeed     = "base_seed"
	colHabitat      = "habitat_multiplier"
	colSerializedID = "serialized_id"
	colArchetype    = "archetype"
)

// loadSamples parses the per-district calibration sample table.
func loadSamples(path string) ([]SampleDraw, error) {
	rows, idx, err := readCSV(path, []string{colDistrict, colSampleID, colBaseSeed, colHabitat})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	samples := make([]SampleDraw, 0, len(rows))
	for i, row := range rows {
		s := SampleDraw{
			District: row[idx[colDistrict]],
			ID:       row[idx[colSampleID]],
		}
		if s.District == "" || s.ID == "" {
			return nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("sample table row %d: empty district or sample_id", i+2)}
		}
		if seen[s.ID] {
			return nil, &Error{Code: ErrCodeBadTable, Message: "duplicate sample_id in sample table", SampleID: s.ID}
		}
		seen[s.ID] = true

		s.BaseSeed, err = strconv.ParseInt(row[idx[colBaseSeed]], 10, 64)
		if err != nil {
			return nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("sample table row %d: bad base_seed %q", i+2, row[idx[colBaseSeed]]), SampleID: s.ID}
		}
		s.HabitatMultiplier, err = strconv.ParseFloat(row[idx[colHabitat]], 64)
		if err != nil {
			return nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("sample table row %d: bad habitat_multiplier %q", i+2, row[idx[colHabitat]]), SampleID: s.ID}
		}

		s.SerializedID = s.ID
		if col, ok := idx[colSerializedID]; ok && row[col] != "" {
			s.SerializedID = row[col]
		}

		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, &Error{Code: ErrCodeBadTable, Message: "sample table is empty"}
	}

	return samples, nil
}

// loadMaster parses the master district table.
func loadMaster(path string) (map[string]DistrictMeta, error) {
	rows, idx, err := readCSV(path, []string{colDistrict, colArchetype})
	if err != nil {
		return nil, err
	}

	districts := make(map[string]DistrictMeta, len(rows))
	for i, row := range rows {
		m := DistrictMeta{
			District:  row[idx[colDistrict]],
			Archetype: row[idx[colArchetype]],
		}
		if m.District == "" || m.Archetype == "" {
			return nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("master table row %d: empty district or archetype", i+2)}
		}
		if _, dup := districts[m.District]; dup {
			return nil, &Error{Code: ErrCodeBadTable, Message: "duplicate district in master table", District: m.District}
		}
		districts[m.District] = m
	}

	return districts, nil
}

// readCSV reads a headered CSV file and verifies the required columns exist.
// Returns the data rows and a column-name -> index map covering all headers.
func readCSV(path string, required []string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("open table: %v", err)}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("read header of %s: %v", filepath.Base(path), err)}
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("%s: missing required column %q", filepath.Base(path), name)}
		}
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &Error{Code: ErrCodeBadTable, Message: fmt.Sprintf("read %s: %v", filepath.Base(path), err)}
		}
		rows = append(rows, row)
	}

	return rows, idx, nil
}
