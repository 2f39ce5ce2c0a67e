package pipeline

import "fmt"

// DaysPerYear is the simulation calendar length. Runs use a fixed 365-day
// year; leap days do not exist in simulation time.
const DaysPerYear = 365

// monthEnds[m] is the last day-of-year belonging to month m+1 on the
// 365-day calendar.
var monthEnds = [12]int{31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}

// DayOfYear derives the day-of-year field from a zero-based timestep.
// Day 0 marks the year boundary and belongs to the previous year (see
// MonthOf).
func DayOfYear(t int) int {
	return t % DaysPerYear
}

// YearOf derives the calendar year from a zero-based timestep.
func YearOf(t, startYear int) int {
	return t/DaysPerYear + startYear
}

// MonthOf maps a day-of-year to its month.
//
// BOUNDARY RULE: day 0 maps to month 12 - it is the December-31 equivalent
// of the previous year boundary. Day 1 is January 1. Downstream date
// alignment depends on this exact behavior; do not "fix" it.
func MonthOf(dayOfYear int) int {
	if dayOfYear == 0 {
		return 12
	}
	for m, end := range monthEnds {
		if dayOfYear <= end {
			return m + 1
		}
	}
	return 12
}

// DateOf derives the ISO calendar date for (year, day-of-year).
// Day 0 resolves to December 31 of the preceding year, consistent with
// MonthOf, so dates stay strictly increasing across year boundaries.
func DateOf(year, dayOfYear int) string {
	if dayOfYear == 0 {
		return fmt.Sprintf("%04d-12-31", year-1)
	}
	month := MonthOf(dayOfYear)
	dayOfMonth := dayOfYear
	if month > 1 {
		dayOfMonth = dayOfYear - monthEnds[month-2]
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, dayOfMonth)
}
