package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAppend(t *testing.T) {
	table := New([]string{"district", "Time", "value"})
	require.NoError(t, table.Append([]string{"north", "0", "0.5"}))
	require.NoError(t, table.Append([]string{"north", "1", "0.6"}))

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"north", "1", "0.6"}, table.Row(1))

	err := table.Append([]string{"north", "2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
	assert.Equal(t, 2, table.Len())
}

func TestTableColumnIndex(t *testing.T) {
	table := New([]string{"district", "Time", "value"})

	i, ok := table.ColumnIndex("Time")
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = table.ColumnIndex("missing")
	assert.False(t, ok)
}

func TestTableAppendAll(t *testing.T) {
	a := New([]string{"district", "value"})
	require.NoError(t, a.Append([]string{"north", "1"}))

	b := New([]string{"district", "value"})
	require.NoError(t, b.Append([]string{"south", "2"}))
	require.NoError(t, b.Append([]string{"south", "3"}))

	require.NoError(t, a.AppendAll(b))
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []string{"south", "3"}, a.Row(2))

	mismatched := New([]string{"district", "other"})
	require.Error(t, a.AppendAll(mismatched))
}

func TestTableCSVRoundTrip(t *testing.T) {
	table := New([]string{"district", "value"})
	require.NoError(t, table.Append([]string{"north", "0.5"}))
	require.NoError(t, table.Append([]string{"has,comma", "1"}))

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "district,value\n"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, table.Columns(), back.Columns())
	require.Equal(t, 2, back.Len())
	assert.Equal(t, []string{"has,comma", "1"}, back.Row(1))
}

func TestTableSaveCSVReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	first := New([]string{"value"})
	require.NoError(t, first.Append([]string{"old"}))
	require.NoError(t, first.SaveCSV(path))

	second := New([]string{"value"})
	require.NoError(t, second.Append([]string{"new"}))
	require.NoError(t, second.SaveCSV(path))

	back, err := LoadCSV(path)
	require.NoError(t, err)
	require.Equal(t, 1, back.Len())
	assert.Equal(t, []string{"new"}, back.Row(0))
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
