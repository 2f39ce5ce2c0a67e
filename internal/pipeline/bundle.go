package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Bundle references one run's output artifact together with the identity
// tags of the originating sweep point. The artifact itself is produced
// externally and may be partially or fully missing.
type Bundle struct {
	// Path locates the run's channel document.
	Path string

	// Tags are the originating point's tags. At minimum the identity pair
	// (sample_id, run_number) must be present.
	Tags map[string]string
}

// Document is the parsed per-run output format: channels keyed by name,
// each holding an ordered numeric sequence aligned to a shared time index,
// plus a metadata header declaring age-bin boundaries for age-stratified
// channels.
type Document struct {
	Header   Header             `json:"Header"`
	Channels map[string]Channel `json:"Channels"`
}

// Header is the document metadata section.
type Header struct {
	// Timesteps is the declared length of the shared time index.
	// Zero means undeclared; the channel data length is authoritative.
	Timesteps int `json:"Timesteps,omitempty"`

	// AgeBins are the ordered upper boundaries for age-stratified channels.
	AgeBins []float64 `json:"AgeBins,omitempty"`
}

// Channel is one named time series.
type Channel struct {
	Units string    `json:"Units,omitempty"`
	Data  []float64 `json:"Data"`
}

// Load reads and validates the bundle's document. Errors from Load are what
// the Filter stage counts as exclusions:
//   - the artifact does not exist or cannot be read
//   - the document is not valid JSON or declares no channels
//   - channels disagree on length, or contradict a declared Timesteps
//   - age-bin boundaries are not strictly increasing
func (b Bundle) Load() (*Document, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, fmt.Errorf("artifact missing: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("artifact unparseable: %w", err)
	}

	if len(doc.Channels) == 0 {
		return nil, fmt.Errorf("artifact declares no channels")
	}

	length := -1
	for _, name := range doc.ChannelNames() {
		ch := doc.Channels[name]
		if len(ch.Data) == 0 {
			return nil, fmt.Errorf("channel %q has no data", name)
		}
		if length == -1 {
			length = len(ch.Data)
		} else if len(ch.Data) != length {
			return nil, fmt.Errorf("channel %q has %d timesteps, expected %d", name, len(ch.Data), length)
		}
	}
	if doc.Header.Timesteps != 0 && doc.Header.Timesteps != length {
		return nil, fmt.Errorf("header declares %d timesteps, channels have %d", doc.Header.Timesteps, length)
	}

	for i := 1; i < len(doc.Header.AgeBins); i++ {
		if doc.Header.AgeBins[i] <= doc.Header.AgeBins[i-1] {
			return nil, fmt.Errorf("age bins not strictly increasing at index %d", i)
		}
	}

	return &doc, nil
}

// ChannelNames returns the document's channel names in sorted order.
func (d *Document) ChannelNames() []string {
	names := make([]string, 0, len(d.Channels))
	for name := range d.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Timesteps returns the shared time index length.
func (d *Document) Timesteps() int {
	for _, ch := range d.Channels {
		return len(ch.Data)
	}
	return 0
}
