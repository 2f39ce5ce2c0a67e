package intervention

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// LoadSet reads a CUE intervention file and compiles the single intervention
// set it defines. Files are expected to contain exactly one set under the
// "intervention" field:
//
//	intervention: baseline: {
//		description: "pre-2025 programme"
//		event: [
//			{name: "itn_distribution", day: 180, coverage_percent: 80},
//		]
//	}
//
// A file defining zero or more than one set is an error: the scenario table
// names a file, and the file must name the campaign unambiguously.
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intervention file: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("intervention"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "intervention",
			Message: "file defines no intervention set",
			Pos:     v.Pos(),
		}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var set *Set
	for iter.Next() {
		if set != nil {
			return nil, &CompileError{
				Field:   "intervention",
				Message: fmt.Sprintf("file defines more than one set (%s, %s)", set.Name, iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
		compiled, err := Compile(iter.Value())
		if err != nil {
			return nil, err
		}
		compiled.Name = iter.Label()
		set = compiled
	}
	if set == nil {
		return nil, &CompileError{
			Field:   "intervention",
			Message: "file defines no intervention set",
			Pos:     root.Pos(),
		}
	}

	return set, nil
}

// Compile parses a CUE value into an intervention Set.
// The value should be the set struct itself (the value under
// intervention.<name>); the caller supplies the name from the field label.
func Compile(v cue.Value) (*Set, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	set := &Set{}

	// Name from struct label when compiled standalone.
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		set.Name = labels[len(labels)-1].String()
	}

	// Description (optional).
	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		set.Description = desc
	}

	// Events (required, at least one, declaration order preserved).
	eventsVal := v.LookupPath(cue.ParsePath("event"))
	if !eventsVal.Exists() {
		return nil, &CompileError{
			Field:   "event",
			Message: "at least one event is required",
			Pos:     v.Pos(),
		}
	}

	eventIter, err := eventsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	seen := make(map[string]bool)
	for eventIter.Next() {
		event, err := compileEvent(eventIter.Value())
		if err != nil {
			return nil, err
		}
		if seen[event.Name] {
			return nil, &CompileError{
				Field:   "event",
				Message: fmt.Sprintf("duplicate event name %q", event.Name),
				Pos:     eventIter.Value().Pos(),
			}
		}
		seen[event.Name] = true
		set.Events = append(set.Events, event)
	}
	if len(set.Events) == 0 {
		return nil, &CompileError{
			Field:   "event",
			Message: "at least one event is required",
			Pos:     eventsVal.Pos(),
		}
	}

	return set, nil
}

// compileEvent parses a single event struct.
func compileEvent(v cue.Value) (Event, error) {
	var event Event

	name, err := requiredString(v, "name")
	if err != nil {
		return event, err
	}
	event.Name = name

	event.Day, err = requiredInt(v, "day")
	if err != nil {
		return event, err
	}

	event.CoveragePercent, err = requiredInt(v, "coverage_percent")
	if err != nil {
		return event, err
	}
	if event.CoveragePercent < 0 || event.CoveragePercent > 100 {
		return event, &CompileError{
			Field:   "coverage_percent",
			Message: fmt.Sprintf("must be in [0,100], got %d", event.CoveragePercent),
			Pos:     v.Pos(),
		}
	}

	event.Repeats, err = optionalInt(v, "repeats")
	if err != nil {
		return event, err
	}
	event.IntervalDays, err = optionalInt(v, "interval_days")
	if err != nil {
		return event, err
	}
	if event.Repeats > 0 && event.IntervalDays <= 0 {
		return event, &CompileError{
			Field:   "interval_days",
			Message: "repeated events require a positive interval_days",
			Pos:     v.Pos(),
		}
	}

	return event, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
