package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayOfYearWraps(t *testing.T) {
	assert.Equal(t, 0, DayOfYear(0))
	assert.Equal(t, 1, DayOfYear(1))
	assert.Equal(t, 364, DayOfYear(364))
	assert.Equal(t, 0, DayOfYear(365))
	assert.Equal(t, 5, DayOfYear(735))
}

func TestYearOf(t *testing.T) {
	assert.Equal(t, 2010, YearOf(0, 2010))
	assert.Equal(t, 2010, YearOf(364, 2010))
	assert.Equal(t, 2011, YearOf(365, 2010))
	assert.Equal(t, 2012, YearOf(730, 2010))
}

func TestMonthOfBoundaries(t *testing.T) {
	// Day zero maps to December: the long-standing boundary rule consumers
	// account for.
	assert.Equal(t, 12, MonthOf(0))

	assert.Equal(t, 1, MonthOf(1))
	assert.Equal(t, 1, MonthOf(31))
	assert.Equal(t, 2, MonthOf(32))
	assert.Equal(t, 2, MonthOf(59))
	assert.Equal(t, 3, MonthOf(60))
	assert.Equal(t, 12, MonthOf(335))
	assert.Equal(t, 12, MonthOf(364))
}

func TestDateOf(t *testing.T) {
	// Day zero renders as Dec 31 of the preceding year, consistent with the
	// month-boundary rule.
	assert.Equal(t, "2009-12-31", DateOf(2010, 0))

	assert.Equal(t, "2010-01-01", DateOf(2010, 1))
	assert.Equal(t, "2010-01-31", DateOf(2010, 31))
	assert.Equal(t, "2010-02-01", DateOf(2010, 32))
	assert.Equal(t, "2010-02-28", DateOf(2010, 59))
	assert.Equal(t, "2010-03-01", DateOf(2010, 60))
	assert.Equal(t, "2010-12-30", DateOf(2010, 364))
}
