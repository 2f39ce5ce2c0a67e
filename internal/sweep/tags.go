package sweep

import (
	"sort"
	"strconv"
)

// Fixed identity-tag keys. Their values key a run's outputs and must be
// globally unique as a pair across the whole sweep.
const (
	KeySampleID  = "sample_id"
	KeyRunNumber = "run_number"
)

// Common extension-tag keys written by the standard modifiers.
const (
	KeySweepID      = "sweep_id"
	KeyDistrict     = "district"
	KeyArchetype    = "archetype"
	KeyIntervention = "intervention"
)

// identityKeys is the closed set of keys protected from overwrite.
var identityKeys = map[string]bool{
	KeySampleID:  true,
	KeyRunNumber: true,
}

// TagSet is a run's tag record: the fixed identity keys plus a string-keyed
// extension map for analysis-specific tags.
//
// Merge semantics: extension keys are last-write-wins; a second write to an
// identity key is an error, never a silent overwrite.
type TagSet struct {
	values map[string]string
}

// NewTagSet creates an empty tag set.
func NewTagSet() *TagSet {
	return &TagSet{values: make(map[string]string)}
}

// NewIdentity creates a tag set seeded with the identity pair.
func NewIdentity(sampleID string, runNumber int) *TagSet {
	t := NewTagSet()
	t.values[KeySampleID] = sampleID
	t.values[KeyRunNumber] = strconv.Itoa(runNumber)
	return t
}

// Set merges one key into the tag set, enforcing identity-key immutability.
func (t *TagSet) Set(key, value string) error {
	if identityKeys[key] {
		if _, exists := t.values[key]; exists {
			return &BuildError{
				Code:    ErrCodeIdentityOverwrite,
				Message: "second write to identity tag key " + strconv.Quote(key),
			}
		}
	}
	t.values[key] = value
	return nil
}

// Merge applies a whole payload of tags in sorted-key order so merge
// behavior does not depend on map iteration order.
func (t *TagSet) Merge(tags map[string]string) error {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := t.Set(k, tags[k]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value for a key.
func (t *TagSet) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// SampleID returns the sample_id identity tag ("" if unset).
func (t *TagSet) SampleID() string {
	return t.values[KeySampleID]
}

// RunNumber returns the run_number identity tag (-1 if unset or malformed).
func (t *TagSet) RunNumber() int {
	v, ok := t.values[KeyRunNumber]
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

// Map returns a copy of all tags (identity plus extension).
func (t *TagSet) Map() map[string]string {
	out := make(map[string]string, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Keys returns all tag keys in sorted order.
func (t *TagSet) Keys() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Hash returns the canonical content hash of the full tag set.
func (t *TagSet) Hash() (string, error) {
	return TagHash(t.values)
}

// identityPair is the uniqueness key asserted across a sweep.
func (t *TagSet) identityPair() string {
	return t.values[KeySampleID] + "\x00" + t.values[KeyRunNumber]
}
