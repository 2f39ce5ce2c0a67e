package aggregate

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anophel-labs/sweepmill/internal/dataset"
)

func consolidated(t *testing.T) *dataset.Table {
	t.Helper()
	table := dataset.New([]string{"sample_id", "run_number", "district", "Time", "date", "Prevalence"})
	rows := [][]string{
		{"s-001", "0", "north", "1", "2010-01-01", "0.4"},
		{"s-001", "1", "north", "1", "2010-01-01", "0.6"},
		{"s-101", "2", "south", "1", "2010-01-01", "0.2"},
		{"s-001", "0", "north", "2", "2010-01-02", "0.5"},
	}
	for _, row := range rows {
		require.NoError(t, table.Append(row))
	}
	return table
}

func cell(t *testing.T, table *dataset.Table, row int, col string) string {
	t.Helper()
	idx, ok := table.ColumnIndex(col)
	require.True(t, ok, col)
	return table.Row(row)[idx]
}

func TestSummarizeGroupsByTagAndDate(t *testing.T) {
	out, err := Summarize(consolidated(t), []string{"district"}, []string{"Prevalence"})
	require.NoError(t, err)

	assert.Equal(t, []string{"district", "date", "Prevalence_mean", "Prevalence_std"}, out.Columns())
	require.Equal(t, 3, out.Len())

	// Groups come out in lexicographic key order.
	assert.Equal(t, "north", cell(t, out, 0, "district"))
	assert.Equal(t, "2010-01-01", cell(t, out, 0, "date"))
	assert.Equal(t, "north", cell(t, out, 1, "district"))
	assert.Equal(t, "2010-01-02", cell(t, out, 1, "date"))
	assert.Equal(t, "south", cell(t, out, 2, "district"))

	// Two north runs on 2010-01-01: mean of 0.4 and 0.6.
	mean, err := strconv.ParseFloat(cell(t, out, 0, "Prevalence_mean"), 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mean, 1e-12)

	std, err := strconv.ParseFloat(cell(t, out, 0, "Prevalence_std"), 64)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.02), std, 1e-12)
}

func TestSummarizeSingleObservationStdNaN(t *testing.T) {
	out, err := Summarize(consolidated(t), []string{"district"}, []string{"Prevalence"})
	require.NoError(t, err)

	// The south group has one observation: sample stddev is undefined.
	std, err := strconv.ParseFloat(cell(t, out, 2, "Prevalence_std"), 64)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(std))
}

func TestSummarizeUnknownGroupColumn(t *testing.T) {
	_, err := Summarize(consolidated(t), []string{"region"}, []string{"Prevalence"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestSummarizeUnknownChannel(t *testing.T) {
	_, err := Summarize(consolidated(t), []string{"district"}, []string{"EIR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EIR")
}

func TestSummarizeMissingDateColumn(t *testing.T) {
	table := dataset.New([]string{"district", "Prevalence"})
	require.NoError(t, table.Append([]string{"north", "0.5"}))

	_, err := Summarize(table, []string{"district"}, []string{"Prevalence"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")
}

func TestSummarizeBadNumericCell(t *testing.T) {
	table := dataset.New([]string{"district", "date", "Prevalence"})
	require.NoError(t, table.Append([]string{"north", "2010-01-01", "not-a-number"}))

	_, err := Summarize(table, []string{"district"}, []string{"Prevalence"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-number")
}

func TestSummarizeRoundTripsThroughCSV(t *testing.T) {
	out, err := Summarize(consolidated(t), []string{"district"}, []string{"Prevalence"})
	require.NoError(t, err)

	path := t.TempDir() + "/grouped.csv"
	require.NoError(t, out.SaveCSV(path))

	back, err := dataset.LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, out.Columns(), back.Columns())
	assert.Equal(t, out.Len(), back.Len())
	assert.Equal(t, "NaN", cell(t, back, 2, "Prevalence_std"))
}
