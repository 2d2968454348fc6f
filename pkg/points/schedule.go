// Package points computes and maintains upgrade points. A fixed schedule
// maps field-size ranges to position-based point vectors; awards merge into
// an athlete-indexed store that deduplicates by (athlete, event, category)
// and prunes entries outside a rolling 12-month window on every merge.
package points

import (
	"github.com/aclement30/raceresults/pkg/errors"
)

// Band maps an inclusive field-size range to its points vector. The vector
// index is the finishing position among finishers only.
type Band struct {
	Min    int
	Max    int
	Points []int
}

// Schedule is an ordered list of non-overlapping bands.
type Schedule []Band

// DefaultSchedule is the sanctioned upgrade-point schedule. Every legal
// field size from 1 through 500 is covered; a size outside the table is a
// configuration error, not a zero award.
var DefaultSchedule = Schedule{
	{Min: 1, Max: 3, Points: []int{8}},
	{Min: 4, Max: 7, Points: []int{8, 6, 4}},
	{Min: 8, Max: 14, Points: []int{8, 6, 5, 4, 3, 2, 1}},
	{Min: 15, Max: 40, Points: []int{10, 8, 6, 5, 4, 3, 2, 2, 1, 1}},
	{Min: 41, Max: 500, Points: []int{12, 10, 8, 7, 6, 5, 4, 3, 2, 1}},
}

// ForFieldSize returns the points vector covering a field size.
func (s Schedule) ForFieldSize(fieldSize int) ([]int, error) {
	for _, band := range s {
		if fieldSize >= band.Min && fieldSize <= band.Max {
			return band.Points, nil
		}
	}
	return nil, &errors.ScheduleError{FieldSize: fieldSize}
}
