package intervention

// Set is a compiled intervention definition: the ordered event campaign a
// scenario applies to every run in its sweep.
type Set struct {
	// Name is the set label from the CUE file.
	Name string `json:"name"`

	// Description explains the campaign.
	Description string `json:"description,omitempty"`

	// Events lists distribution events in declaration order.
	Events []Event `json:"events"`
}

// Event is one distribution event within an intervention set.
type Event struct {
	// Name identifies the event (e.g. "itn_distribution"). Event names feed
	// the event-count report wired onto each run.
	Name string `json:"name"`

	// Day is the simulation day the event first fires.
	Day int `json:"day"`

	// CoveragePercent is the fraction of the population reached, as an
	// integer percentage. Floats are forbidden in definition files.
	CoveragePercent int `json:"coverage_percent"`

	// Repeats is the number of additional firings after the first.
	Repeats int `json:"repeats,omitempty"`

	// IntervalDays is the spacing between repeated firings.
	IntervalDays int `json:"interval_days,omitempty"`
}

// EventNames returns the event names in declaration order.
func (s *Set) EventNames() []string {
	names := make([]string, len(s.Events))
	for i, e := range s.Events {
		names[i] = e.Name
	}
	return names
}
