package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/anophel-labs/sweepmill/internal/dataset"
)

// ErrEmptyResult signals that zero bundles survived filtering. No artifact
// is written in that case; callers decide whether an empty analysis is a
// warning or a failure.
var ErrEmptyResult = errors.New("pipeline: no bundles survived filtering")

// Fixed derived-column names. Together with the tag keys and the requested
// channels they form the consolidated dataset schema.
const (
	ColTime = "Time"
	ColDay  = "Day"
	ColYear = "Year"
	ColDate = "date"
)

// DefaultWorkers bounds the Map stage when the caller does not choose.
const DefaultWorkers = 4

// Config fixes one analysis before any mapping begins.
type Config struct {
	// Name is the analysis identifier; the artifact is written as
	// <OutDir>/<Name>.csv.
	Name string

	// TagKeys are the tag columns carried into the dataset, in order.
	// Must include the identity pair.
	TagKeys []string

	// Channels are the requested channel columns, in order.
	Channels []string

	// StartYear anchors the calendar derivation.
	StartYear int

	// OutDir is the output directory for the analysis. Created if absent.
	OutDir string

	// Workers bounds Map-stage parallelism. Zero means DefaultWorkers.
	Workers int

	// Partial tolerates Map-stage failures and cutoff expiry: affected
	// bundles are excluded and counted instead of failing the batch.
	// Filter exclusions are tolerated in every mode.
	Partial bool
}

// Pipeline runs one analysis over a collection of bundles.
type Pipeline struct {
	cfg     Config
	columns []string // schema, fixed at construction
}

// New validates the configuration and fixes the dataset schema:
// {tag keys} then {Time, Day, Year, date} then {channels}.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("pipeline: analysis name is required")
	}
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("pipeline: at least one channel is required")
	}
	if len(cfg.TagKeys) == 0 {
		return nil, fmt.Errorf("pipeline: at least one tag key is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	columns := make([]string, 0, len(cfg.TagKeys)+4+len(cfg.Channels))
	columns = append(columns, cfg.TagKeys...)
	columns = append(columns, ColTime, ColDay, ColYear, ColDate)
	columns = append(columns, cfg.Channels...)

	return &Pipeline{cfg: cfg, columns: columns}, nil
}

// Columns returns the fixed dataset schema.
func (p *Pipeline) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// Filter reports whether a bundle's artifact exists and is structurally
// parseable. A false result carries the exclusion reason.
func (p *Pipeline) Filter(b Bundle) (bool, string) {
	if _, err := b.Load(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Map transforms one parsed document into dataset rows. Map is pure: it
// depends only on its arguments, mutates nothing shared, and identical
// input yields identical output. One row is produced per timestep.
func (p *Pipeline) Map(doc *Document, tags map[string]string) (*dataset.Table, error) {
	tagCells := make([]string, len(p.cfg.TagKeys))
	for i, key := range p.cfg.TagKeys {
		v, ok := tags[key]
		if !ok {
			return nil, fmt.Errorf("bundle tags missing key %q", key)
		}
		tagCells[i] = v
	}

	channels := make([][]float64, len(p.cfg.Channels))
	for i, name := range p.cfg.Channels {
		ch, ok := doc.Channels[name]
		if !ok {
			return nil, fmt.Errorf("document missing requested channel %q", name)
		}
		channels[i] = ch.Data
	}

	n := doc.Timesteps()
	out := dataset.New(p.columns)
	for t := 0; t < n; t++ {
		day := DayOfYear(t)
		year := YearOf(t, p.cfg.StartYear)

		row := make([]string, 0, len(p.columns))
		row = append(row, tagCells...)
		row = append(row,
			strconv.Itoa(t),
			strconv.Itoa(day),
			strconv.Itoa(year),
			DateOf(year, day),
		)
		for _, data := range channels {
			row = append(row, strconv.FormatFloat(data[t], 'g', -1, 64))
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Exclusion records one bundle that contributed no rows, and why.
type Exclusion struct {
	SampleID  string `json:"sample_id"`
	RunNumber string `json:"run_number"`
	Reason    string `json:"reason"`
}

// Report is the outcome of one pipeline run. Included+Excluded always
// equals the number of bundles in scope.
type Report struct {
	Analysis   string      `json:"analysis"`
	Included   int         `json:"included"`
	Excluded   int         `json:"excluded"`
	Rows       int         `json:"rows"`
	Path       string      `json:"path,omitempty"` // empty when no artifact was written
	Exclusions []Exclusion `json:"exclusions,omitempty"`
}

// Run executes the full pipeline over the bundle collection.
//
// The Map stage runs across a bounded worker pool; completion order is
// irrelevant because Reduce concatenates in bundle input order after all
// bundles have completed or been excluded. In partial mode a cancelled or
// expired ctx acts as the straggler cutoff: bundles not yet processed are
// excluded and the reduce proceeds with what is available. Outside partial
// mode, ctx expiry fails the batch.
//
// On an empty surviving set, Run writes nothing and returns the report
// together with ErrEmptyResult.
func (p *Pipeline) Run(ctx context.Context, bundles []Bundle) (*Report, error) {
	tables := make([]*dataset.Table, len(bundles))
	reasons := make([]string, len(bundles))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Workers)

	for i := range bundles {
		i := i
		g.Go(func() error {
			// Cutoff check: in partial mode, bundles that missed the
			// cutoff are excluded rather than failing the batch.
			if err := ctx.Err(); err != nil {
				if p.cfg.Partial {
					reasons[i] = fmt.Sprintf("cutoff: %v", err)
					return nil
				}
				return err
			}

			b := bundles[i]
			doc, err := b.Load()
			if err != nil {
				// Filter exclusion: expected, counted, never fatal.
				reasons[i] = err.Error()
				return nil
			}

			table, err := p.Map(doc, b.Tags)
			if err != nil {
				if p.cfg.Partial {
					reasons[i] = fmt.Sprintf("map: %v", err)
					return nil
				}
				return fmt.Errorf("map bundle %s: %w", b.Path, err)
			}

			tables[i] = table
			return nil
		})
	}

	// Reduce barrier: wait for every bundle to complete or be excluded.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return p.reduce(bundles, tables, reasons)
}

// reduce concatenates surviving tables and persists the artifact.
func (p *Pipeline) reduce(bundles []Bundle, tables []*dataset.Table, reasons []string) (*Report, error) {
	report := &Report{Analysis: p.cfg.Name}
	out := dataset.New(p.columns)

	for i, table := range tables {
		if table == nil {
			report.Excluded++
			report.Exclusions = append(report.Exclusions, Exclusion{
				SampleID:  bundles[i].Tags["sample_id"],
				RunNumber: bundles[i].Tags["run_number"],
				Reason:    reasons[i],
			})
			continue
		}
		if err := out.AppendAll(table); err != nil {
			return nil, fmt.Errorf("reduce: %w", err)
		}
		report.Included++
	}
	report.Rows = out.Len()

	if report.Included == 0 {
		// Never write a silently empty artifact.
		return report, ErrEmptyResult
	}

	// Idempotent directory creation; concurrent reducers for the same
	// analysis name are last-writer-wins.
	if err := os.MkdirAll(p.cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("reduce: create output dir: %w", err)
	}
	path := filepath.Join(p.cfg.OutDir, p.cfg.Name+".csv")
	if err := out.SaveCSV(path); err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	report.Path = path

	return report, nil
}
