package sweep

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/anophel-labs/sweepmill/internal/catalog"
	"github.com/anophel-labs/sweepmill/internal/intervention"
)

// BurninRef identifies a prior burn-in run's serialized population state.
type BurninRef struct {
	// Path locates the serialized state artifact.
	Path string
}

// BurninMatcher selects the burn-in record matching a point's match keys at
// a resume day. Implementations must return a MatchError when zero records
// match (SERIALIZATION_NOT_FOUND) or more than one matches at equal
// priority (AMBIGUOUS_MATCH).
type BurninMatcher interface {
	Match(district, serializedID string, resumeDay int) (BurninRef, error)
}

// Point is one fully specified simulation run. Points are created once by
// the builder and never mutated.
type Point struct {
	District string
	Sample   catalog.SampleDraw
	Seed     int64

	// Mods is the ordered modifier list applied to a concrete run context.
	Mods []Mod

	// Tags is the point's tag set: identity pair plus provenance tags.
	Tags *TagSet
}

// Config configures a sweep build.
type Config struct {
	// Catalog supplies all input tables.
	Catalog *catalog.Catalog

	// Scenario is the selected scenario row.
	Scenario catalog.Scenario

	// Interventions is the compiled intervention set the scenario names.
	Interventions *intervention.Set

	// Districts restricts the sweep to these districts, in the given order.
	// Empty means all districts in the sample table, sorted.
	Districts []string

	// Burnins resolves warm-start matches. Required when the scenario has
	// WarmStart set.
	Burnins BurninMatcher

	// SweepID tags every point with the sweep's provenance identifier.
	// Empty generates a time-sortable UUIDv7.
	SweepID string
}

// Builder enumerates a sweep lazily: district-major, sample-mid, seed-minor.
// The enumeration is stable and reproducible for identical inputs, which is
// what makes run numbering deterministic across re-runs.
//
// Builder is not safe for concurrent use.
type Builder struct {
	cat      *catalog.Catalog
	scenario catalog.Scenario
	iset     *intervention.Set
	burnins  BurninMatcher
	sweepID  string

	districts []string
	seen      map[string]bool // identity pairs produced so far

	// Enumeration cursor.
	di        int
	si        int
	ri        int
	runNumber int
	samples   []catalog.SampleDraw
	meta      catalog.DistrictMeta
	loaded    bool

	err error // sticky fatal error
}

// NewBuilder validates the configuration and positions the enumeration at
// the first point.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("sweep: catalog is required")
	}
	if cfg.Interventions == nil {
		return nil, fmt.Errorf("sweep: intervention set is required")
	}
	if cfg.Scenario.WarmStart && cfg.Burnins == nil {
		return nil, fmt.Errorf("sweep: scenario %q requires warm start but no burn-in matcher was provided", cfg.Scenario.ID)
	}

	districts := cfg.Districts
	if len(districts) == 0 {
		districts = cfg.Catalog.Districts()
	}

	sweepID := cfg.SweepID
	if sweepID == "" {
		sweepID = uuid.Must(uuid.NewV7()).String()
	}

	return &Builder{
		cat:       cfg.Catalog,
		scenario:  cfg.Scenario,
		iset:      cfg.Interventions,
		burnins:   cfg.Burnins,
		sweepID:   sweepID,
		districts: districts,
		seen:      make(map[string]bool),
	}, nil
}

// SweepID returns the provenance identifier tagged onto every point.
func (b *Builder) SweepID() string {
	return b.sweepID
}

// Next returns the next point in the enumeration.
//
// Errors:
//   - ErrDone when the enumeration is exhausted
//   - *PointError for a failure scoped to one point (warm-start lookup);
//     the enumeration continues past the point on the following call
//   - *BuildError for fatal failures (missing metadata, identity
//     collision); fatal errors are sticky and abort the build
func (b *Builder) Next() (*Point, error) {
	if b.err != nil {
		return nil, b.err
	}

	for {
		if b.di >= len(b.districts) {
			return nil, ErrDone
		}

		if !b.loaded {
			if err := b.loadDistrict(b.districts[b.di]); err != nil {
				b.err = err
				return nil, err
			}
		}

		if b.si >= len(b.samples) {
			b.di++
			b.si = 0
			b.ri = 0
			b.loaded = false
			continue
		}

		if b.ri >= b.scenario.SeedsPerSample {
			b.si++
			b.ri = 0
			continue
		}

		return b.emit()
	}
}

// loadDistrict resolves the master-table row and sample rows for a district.
// A district missing its archetype cross-reference, or present in the
// district list with no calibration samples, aborts the build (fail-fast,
// never a silent skip).
func (b *Builder) loadDistrict(district string) error {
	meta, err := b.cat.DistrictMeta(district)
	if err != nil {
		return &BuildError{
			Code:     ErrCodeMissingInput,
			Message:  err.Error(),
			District: district,
		}
	}

	samples := b.cat.SamplesFor(district)
	if len(samples) == 0 {
		return &BuildError{
			Code:     ErrCodeMissingInput,
			Message:  "district has no calibration samples",
			District: district,
		}
	}

	b.meta = meta
	b.samples = samples
	b.loaded = true
	return nil
}

// emit produces the point for the current (district, sample, run index)
// cursor position and advances past it.
func (b *Builder) emit() (*Point, error) {
	district := b.districts[b.di]
	sample := b.samples[b.si]
	runIdx := b.ri
	runNumber := b.runNumber

	// Advance the cursor first: a per-point failure must not stall the
	// enumeration, and run numbering stays aligned with the failure-free
	// enumeration of the same inputs.
	b.ri++
	b.runNumber++

	// seed is a pure function of (base seed, run index, seed period).
	seed := sample.BaseSeed + int64(runIdx%b.scenario.SeedPeriod)

	tags := NewIdentity(sample.ID, runNumber)
	if b.seen[tags.identityPair()] {
		err := &BuildError{
			Code:     ErrCodeIdentityCollision,
			Message:  "identity pair already produced by this sweep",
			District: district,
			SampleID: sample.ID,
			Run:      runNumber,
		}
		b.err = err
		return nil, err
	}
	b.seen[tags.identityPair()] = true

	for k, v := range map[string]string{
		KeySweepID:      b.sweepID,
		KeyDistrict:     district,
		KeyArchetype:    b.meta.Archetype,
		KeyIntervention: b.iset.Name,
	} {
		if err := tags.Set(k, v); err != nil {
			b.err = err
			return nil, err
		}
	}

	mods := []Mod{
		habitatMod(sample),
		interventionMod(b.iset),
	}

	if b.scenario.WarmStart {
		ref, err := b.burnins.Match(district, sample.SerializedID, b.scenario.ResumeDay)
		if err != nil {
			return nil, &PointError{
				District: district,
				SampleID: sample.ID,
				Run:      runNumber,
				Err:      err,
			}
		}
		mods = append(mods, serializationMod(ref, b.scenario.ResumeDay))
	}

	mods = append(mods,
		identityMod(sample.ID, runNumber),
		provenanceMod(b.sweepID, b.meta),
	)

	return &Point{
		District: district,
		Sample:   sample,
		Seed:     seed,
		Mods:     mods,
		Tags:     tags,
	}, nil
}

// Build materializes the whole enumeration eagerly. Per-point failures are
// collected and returned alongside the surviving points; fatal errors abort
// with whatever had been built discarded.
func (b *Builder) Build() ([]Point, []*PointError, error) {
	var points []Point
	var pointErrs []*PointError

	for {
		p, err := b.Next()
		if errors.Is(err, ErrDone) {
			return points, pointErrs, nil
		}
		if err != nil {
			var pe *PointError
			if errors.As(err, &pe) {
				pointErrs = append(pointErrs, pe)
				continue
			}
			return nil, pointErrs, err
		}
		points = append(points, *p)
	}
}
