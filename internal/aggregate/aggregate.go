// Package aggregate computes grouped summary statistics over a consolidated
// dataset. This is the boundary to external reporting: the grouped table is
// what plotting and comparison tooling consume.
//
// Rows are aligned on the derived calendar date, not the raw time index,
// because different runs may start from different base years.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/anophel-labs/sweepmill/internal/dataset"
)

// DateColumn is the alignment column required in the input dataset.
const DateColumn = "date"

// keySep joins group-key cells; it cannot occur in CSV cell content read
// from our own artifacts.
const keySep = "\x00"

// Summarize groups the table by the given tag columns plus the calendar
// date, and emits per-group mean and sample standard deviation for each
// channel column.
//
// Output schema: {groupBy...}, date, then "<channel>_mean" and
// "<channel>_std" per channel. Groups are emitted in lexicographic key
// order so the output is deterministic. A group with a single observation
// has standard deviation NaN, which survives round-tripping through the
// CSV artifact.
func Summarize(t *dataset.Table, groupBy, channels []string) (*dataset.Table, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("aggregate: at least one channel is required")
	}

	keyIdx := make([]int, 0, len(groupBy)+1)
	for _, col := range groupBy {
		idx, ok := t.ColumnIndex(col)
		if !ok {
			return nil, fmt.Errorf("aggregate: group column %q not in dataset", col)
		}
		keyIdx = append(keyIdx, idx)
	}
	dateIdx, ok := t.ColumnIndex(DateColumn)
	if !ok {
		return nil, fmt.Errorf("aggregate: dataset has no %q column", DateColumn)
	}
	keyIdx = append(keyIdx, dateIdx)

	chanIdx := make([]int, len(channels))
	for i, col := range channels {
		idx, ok := t.ColumnIndex(col)
		if !ok {
			return nil, fmt.Errorf("aggregate: channel column %q not in dataset", col)
		}
		chanIdx[i] = idx
	}

	// Accumulate observations per (group key, channel).
	groups := make(map[string][][]float64)
	for r := 0; r < t.Len(); r++ {
		row := t.Row(r)

		parts := make([]string, len(keyIdx))
		for i, idx := range keyIdx {
			parts[i] = row[idx]
		}
		key := strings.Join(parts, keySep)

		obs, ok := groups[key]
		if !ok {
			obs = make([][]float64, len(channels))
			groups[key] = obs
		}
		for i, idx := range chanIdx {
			v, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("aggregate: row %d column %q: bad value %q", r, channels[i], row[idx])
			}
			obs[i] = append(obs[i], v)
		}
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	columns := make([]string, 0, len(groupBy)+1+2*len(channels))
	columns = append(columns, groupBy...)
	columns = append(columns, DateColumn)
	for _, ch := range channels {
		columns = append(columns, ch+"_mean", ch+"_std")
	}

	out := dataset.New(columns)
	for _, key := range keys {
		row := make([]string, 0, len(columns))
		row = append(row, strings.Split(key, keySep)...)
		for _, obs := range groups[key] {
			mean, std := stat.MeanStdDev(obs, nil)
			row = append(row,
				strconv.FormatFloat(mean, 'g', -1, 64),
				strconv.FormatFloat(std, 'g', -1, 64),
			)
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}

	return out, nil
}
