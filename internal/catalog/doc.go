// Package catalog loads the input tables that drive a sweep build.
//
// Three tables are consumed:
//   - a scenario table (YAML) indexed by scenario identifier
//   - a per-district calibration sample table (CSV)
//   - a master district table (CSV) with the seasonality archetype reference
//
// The loaded Catalog is immutable and is threaded explicitly through the
// builder and the analysis pipeline. There is no package-level state: every
// consumer receives the Catalog it should read from.
//
// Lookup failures are coded errors carrying the offending district or sample
// identifier so a failed build can name the exact input row at fault.
package catalog
