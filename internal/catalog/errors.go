package catalog

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes catalog errors.
type ErrorCode string

const (
	// ErrCodeMissingInput indicates a required cross-reference is absent,
	// e.g. a district present in the sample table but missing from the
	// master table. This is fatal for the whole build.
	ErrCodeMissingInput ErrorCode = "MISSING_INPUT_DATA"

	// ErrCodeUnknownScenario indicates the requested scenario identifier
	// does not exist in the scenario table.
	ErrCodeUnknownScenario ErrorCode = "UNKNOWN_SCENARIO"

	// ErrCodeBadTable indicates a table file could not be read or parsed.
	ErrCodeBadTable ErrorCode = "BAD_TABLE"
)

// Error is a catalog lookup or load failure with the identifiers needed to
// locate the offending input row.
type Error struct {
	Code     ErrorCode
	Message  string
	District string
	SampleID string
	Scenario string
}

func (e *Error) Error() string {
	switch {
	case e.District != "" && e.SampleID != "":
		return fmt.Sprintf("%s: %s (district=%s, sample=%s)", e.Code, e.Message, e.District, e.SampleID)
	case e.District != "":
		return fmt.Sprintf("%s: %s (district=%s)", e.Code, e.Message, e.District)
	case e.Scenario != "":
		return fmt.Sprintf("%s: %s (scenario=%s)", e.Code, e.Message, e.Scenario)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsMissingInput reports whether err is a missing cross-reference error.
// Uses errors.As to handle wrapped errors.
func IsMissingInput(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeMissingInput
	}
	return false
}
