// Package intervention compiles CUE intervention definitions.
//
// An intervention file declares the named event campaign a scenario applies
// to every run: distribution events with a day offset, coverage, and optional
// repetition. The scenario table names which intervention file drives a
// sweep; compiling it yields the event list that both configures runs and
// feeds the event-count report registration.
//
// Definitions are parsed with the CUE SDK's Go API directly (not a CLI
// subprocess), field by field, so errors carry source positions.
package intervention
