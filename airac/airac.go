// Package airac computes AIRAC cycle identifiers, the 28-day aeronautical
// publication calendar the tile server versions its datasets by.
package airac

import (
	"fmt"
	"time"
)

// CycleDays is the fixed length of an AIRAC cycle.
const CycleDays = 28

// referenceDate is the first AIRAC start of 2025 (Eurocontrol calendar).
var referenceDate = time.Date(2025, time.January, 23, 0, 0, 0, 0, time.UTC)

// Cycle is one published AIRAC cycle.
type Cycle struct {
	// Code is the YYNN identifier, e.g. "2502". The NN sequence resets
	// every calendar year.
	Code string

	// Start is the first effective day of the cycle, UTC midnight.
	Start time.Time
}

func (c Cycle) String() string {
	return c.Code
}

// Current returns the cycle active at now. now must not be before the
// reference date; earlier instants map to the first reference cycle.
func Current(now time.Time) Cycle {
	days := int(now.UTC().Sub(referenceDate) / (24 * time.Hour))
	periods := days / CycleDays
	if periods < 0 {
		periods = 0
	}

	return cycleAt(referenceDate.AddDate(0, 0, periods*CycleDays))
}

// Next returns the cycle following c.
func (c Cycle) Next() Cycle {
	return cycleAt(c.Start.AddDate(0, 0, CycleDays))
}

// Future returns the n cycles following the one active at now.
func Future(now time.Time, n int) []Cycle {
	cycles := make([]Cycle, 0, n)
	c := Current(now)
	for i := 0; i < n; i++ {
		c = c.Next()
		cycles = append(cycles, c)
	}

	return cycles
}

// IsCycleStart reports whether day falls on a 28-day cycle boundary.
func IsCycleStart(day time.Time) bool {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	days := int(day.Sub(referenceDate) / (24 * time.Hour))

	return days >= 0 && days%CycleDays == 0
}

// cycleAt builds the Cycle for a known cycle start date. The in-year sequence
// number counts cycle starts since the first one of that calendar year.
func cycleAt(start time.Time) Cycle {
	firstOfYear := time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	first := start
	for !first.AddDate(0, 0, -CycleDays).Before(firstOfYear) {
		first = first.AddDate(0, 0, -CycleDays)
	}

	seq := int(start.Sub(first)/(24*time.Hour))/CycleDays + 1

	return Cycle{
		Code:  fmt.Sprintf("%02d%02d", start.Year()%100, seq),
		Start: start,
	}
}
