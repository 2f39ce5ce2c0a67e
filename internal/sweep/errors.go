package sweep

import (
	"errors"
	"fmt"
)

// ErrDone is returned by Builder.Next when the enumeration is exhausted.
var ErrDone = errors.New("sweep: no more points")

// BuildErrorCode categorizes fatal build errors.
type BuildErrorCode string

const (
	// ErrCodeMissingInput indicates a district lacked a required
	// cross-reference (master-table row or samples) at build time.
	ErrCodeMissingInput BuildErrorCode = "MISSING_INPUT_DATA"

	// ErrCodeIdentityCollision indicates two points produced the same
	// (sample_id, run_number) pair. This is a builder logic defect.
	ErrCodeIdentityCollision BuildErrorCode = "IDENTITY_COLLISION"

	// ErrCodeIdentityOverwrite indicates a modifier attempted a second
	// write to a fixed identity-tag key during tag merge.
	ErrCodeIdentityOverwrite BuildErrorCode = "IDENTITY_OVERWRITE"
)

// BuildError is a fatal sweep-build failure. It aborts the whole build and
// names the (district, sample, run) triple that triggered it where known.
type BuildError struct {
	Code     BuildErrorCode
	Message  string
	District string
	SampleID string
	Run      int
}

func (e *BuildError) Error() string {
	if e.SampleID != "" {
		return fmt.Sprintf("%s: %s (district=%s, sample=%s, run=%d)",
			e.Code, e.Message, e.District, e.SampleID, e.Run)
	}
	if e.District != "" {
		return fmt.Sprintf("%s: %s (district=%s)", e.Code, e.Message, e.District)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MatchErrorCode categorizes warm-start matching failures.
type MatchErrorCode string

const (
	// ErrCodeNotFound indicates no burn-in record matched the point's
	// match keys at the requested resume day.
	ErrCodeNotFound MatchErrorCode = "SERIALIZATION_NOT_FOUND"

	// ErrCodeAmbiguousMatch indicates more than one burn-in record matched
	// at the same priority. The builder refuses to guess between them.
	ErrCodeAmbiguousMatch MatchErrorCode = "AMBIGUOUS_MATCH"
)

// MatchError is a warm-start lookup failure. It fails the affected point
// only, not the whole sweep.
type MatchError struct {
	Code      MatchErrorCode
	District  string
	SampleID  string
	ResumeDay int
	Matches   int // number of equal-priority candidates (ambiguous case)
}

func (e *MatchError) Error() string {
	if e.Code == ErrCodeAmbiguousMatch {
		return fmt.Sprintf("%s: %d burn-in records match at equal priority (district=%s, sample=%s, resume_day=%d)",
			e.Code, e.Matches, e.District, e.SampleID, e.ResumeDay)
	}
	return fmt.Sprintf("%s: no burn-in record matches (district=%s, sample=%s, resume_day=%d)",
		e.Code, e.District, e.SampleID, e.ResumeDay)
}

// PointError records the failure of a single point during the build.
// The enumeration continues past it; Build reports all point errors.
type PointError struct {
	District string
	SampleID string
	Run      int
	Err      error
}

func (e *PointError) Error() string {
	return fmt.Sprintf("point (district=%s, sample=%s, run=%d): %v", e.District, e.SampleID, e.Run, e.Err)
}

func (e *PointError) Unwrap() error {
	return e.Err
}

// IsPointError reports whether err affects a single point rather than the
// whole build. Uses errors.As to handle wrapped errors.
func IsPointError(err error) bool {
	var pe *PointError
	return errors.As(err, &pe)
}

// IsIdentityCollision reports whether err is an identity collision.
func IsIdentityCollision(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeIdentityCollision
	}
	return false
}
