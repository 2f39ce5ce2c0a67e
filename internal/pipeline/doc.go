// Package pipeline consolidates per-run output bundles into one
// analysis-ready dataset via three stages.
//
// Filter checks that a bundle's artifact exists and parses; a failing bundle
// is excluded and counted, never raised. Absence of data is an expected
// condition on shared compute infrastructure, not an exceptional one.
//
// Map turns one bundle into tabular rows: a zero-based time index, derived
// calendar fields, one column per requested channel, and the identity tags
// of the originating run. Map is pure and touches no state from any other
// bundle, so it runs in parallel across a bounded worker pool.
//
// Reduce is the barrier: it concatenates surviving rows in bundle input
// order and persists the artifact under the analysis name. Zero survivors
// writes nothing and returns ErrEmptyResult - never a silently empty file.
//
// ACCOUNTING INVARIANT: the consolidated row count equals the sum of row
// counts over bundles that passed Filter. No run contributes twice, and no
// run vanishes without being counted as excluded.
package pipeline
