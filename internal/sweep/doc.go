// Package sweep builds deterministic simulation sweeps.
//
// A sweep is the full enumeration of run configurations for one analysis:
// district-major, sample-mid, seed-minor. Each generated Point is immutable
// and fully specifies one run: the district, the calibration sample, the
// assigned seed, an ordered list of tagged modifier callables, and the
// identity tags that key the run's outputs.
//
// DETERMINISM:
//
// Identical inputs produce an identical enumeration. Seeds are a pure
// function of (sample base seed, run index, seed period). Run numbers are a
// single global counter over the enumeration order. The builder asserts that
// no two points share an identity-tag pair; a collision indicates a logic
// defect and aborts the whole build.
//
// Modifier application is two-phase: tag payloads are collected and merged
// first (last-write-wins for extension keys, never for identity keys), and
// only then are intervention side effects resolved against the run context.
// Side effects therefore never observe partially-merged tag state.
package sweep
