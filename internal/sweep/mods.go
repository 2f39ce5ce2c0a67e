package sweep

import (
	"fmt"
	"strconv"

	"github.com/anophel-labs/sweepmill/internal/catalog"
	"github.com/anophel-labs/sweepmill/internal/intervention"
)

// Kind is the closed set of modifier kinds. Dispatch is on this explicit
// discriminant, never on callable identity.
type Kind int

const (
	// KindConfig modifiers mutate the run configuration (parameters, file
	// inputs) and may emit extension tags.
	KindConfig Kind = iota

	// KindIntervention modifiers configure the event campaign and emit a
	// structured event-name payload that triggers event-count report
	// registration during side-effect resolution.
	KindIntervention

	// KindTag modifiers only emit tags. Identity tags are attached this way.
	KindTag
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindIntervention:
		return "intervention"
	case KindTag:
		return "tag"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Payload is what a modifier emits when applied to a run context:
// a key->value tag payload and, for intervention modifiers, the list of
// event names that drives report registration.
type Payload struct {
	Tags   map[string]string
	Events []string
}

// Mod is one tagged modifier: an explicit kind, static metadata, and the
// callable applied to a concrete run context.
type Mod struct {
	Kind Kind
	Name string            // identifies the modifier in diagnostics
	Meta map[string]string // static metadata, not merged into tags
	Fn   func(rc *RunContext) (Payload, error)
}

// EventReport is a cross-cutting side effect wired onto a run context by an
// intervention modifier: an event-count report over the named events.
type EventReport struct {
	Events []string
}

// RunContext is the concrete configuration assembled for one run when a
// point's modifiers are applied. The dispatcher consumes it to materialize
// the run's input files.
type RunContext struct {
	// Params holds numeric configuration values (habitat multiplier, resume
	// day, ...).
	Params map[string]float64

	// Files holds named file inputs (e.g. the serialized population path).
	Files map[string]string

	// Campaign is the intervention set configured for the run, if any.
	Campaign *intervention.Set

	// Reports holds event-count reports registered during side-effect
	// resolution. Populated only after all tags are merged.
	Reports []EventReport

	// Tags is the merged tag state for the run.
	Tags *TagSet
}

// NewRunContext creates an empty run context.
func NewRunContext() *RunContext {
	return &RunContext{
		Params: make(map[string]float64),
		Files:  make(map[string]string),
		Tags:   NewTagSet(),
	}
}

// Apply runs a point's modifiers against a run context in two phases.
//
// Phase 1 invokes every modifier in order and merges its tag payload:
// last-write-wins for extension keys, error for a second write to an
// identity key. Phase 2 resolves side effects: intervention payloads
// register their event-count reports. Side effects run only after all tags
// from phase 1 are finalized, so they never observe partially-merged state.
func Apply(rc *RunContext, mods []Mod) error {
	// Phase 1: tag computation.
	payloads := make([]Payload, len(mods))
	for i, m := range mods {
		payload, err := m.Fn(rc)
		if err != nil {
			return fmt.Errorf("apply %s modifier %q: %w", m.Kind, m.Name, err)
		}
		if err := rc.Tags.Merge(payload.Tags); err != nil {
			return fmt.Errorf("merge tags from %s modifier %q: %w", m.Kind, m.Name, err)
		}
		payloads[i] = payload
	}

	// Phase 2: side-effect resolution.
	for i, m := range mods {
		if m.Kind != KindIntervention {
			continue
		}
		if len(payloads[i].Events) == 0 {
			continue
		}
		rc.Reports = append(rc.Reports, EventReport{Events: payloads[i].Events})
	}

	return nil
}

// Parameter and file keys written by the standard modifiers.
const (
	ParamHabitatMultiplier = "habitat_multiplier"
	ParamResumeDay         = "resume_day"
	FileSerializedState    = "serialized_population"
)

// habitatMod scales larval habitat by the sample's calibrated multiplier.
func habitatMod(sample catalog.SampleDraw) Mod {
	return Mod{
		Kind: KindConfig,
		Name: "habitat_multiplier",
		Meta: map[string]string{"sample_id": sample.ID},
		Fn: func(rc *RunContext) (Payload, error) {
			rc.Params[ParamHabitatMultiplier] = sample.HabitatMultiplier
			return Payload{}, nil
		},
	}
}

// interventionMod configures the scenario's event campaign and emits the
// event names that drive report registration.
func interventionMod(set *intervention.Set) Mod {
	return Mod{
		Kind: KindIntervention,
		Name: "campaign",
		Meta: map[string]string{"set": set.Name},
		Fn: func(rc *RunContext) (Payload, error) {
			rc.Campaign = set
			return Payload{
				Tags:   map[string]string{KeyIntervention: set.Name},
				Events: set.EventNames(),
			}, nil
		},
	}
}

// serializationMod points the run at a prior burn-in's serialized state.
func serializationMod(ref BurninRef, resumeDay int) Mod {
	return Mod{
		Kind: KindConfig,
		Name: "serialized_state",
		Meta: map[string]string{"path": ref.Path},
		Fn: func(rc *RunContext) (Payload, error) {
			rc.Files[FileSerializedState] = ref.Path
			rc.Params[ParamResumeDay] = float64(resumeDay)
			return Payload{}, nil
		},
	}
}

// identityMod attaches the fixed identity tags. A second identity write
// fails the merge by design.
func identityMod(sampleID string, runNumber int) Mod {
	return Mod{
		Kind: KindTag,
		Name: "identity",
		Fn: func(rc *RunContext) (Payload, error) {
			return Payload{
				Tags: map[string]string{
					KeySampleID:  sampleID,
					KeyRunNumber: strconv.Itoa(runNumber),
				},
			}, nil
		},
	}
}

// provenanceMod attaches the sweep, district, and archetype extension tags.
func provenanceMod(sweepID string, meta catalog.DistrictMeta) Mod {
	return Mod{
		Kind: KindTag,
		Name: "provenance",
		Fn: func(rc *RunContext) (Payload, error) {
			return Payload{
				Tags: map[string]string{
					KeySweepID:   sweepID,
					KeyDistrict:  meta.District,
					KeyArchetype: meta.Archetype,
				},
			}, nil
		},
	}
}
