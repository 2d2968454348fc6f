package points_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/categories"
	"github.com/aclement30/raceresults/pkg/errors"
	"github.com/aclement30/raceresults/pkg/logging"
	"github.com/aclement30/raceresults/pkg/points"
	"github.com/aclement30/raceresults/pkg/results"
)

func sanctionedEvent() *results.Event {
	return &results.Event{
		Hash:           "ev-2026-014",
		Name:           "Spring Series #4",
		Date:           athletes.NewDate(2026, time.June, 14),
		Discipline:     athletes.DisciplineRoad,
		PointsEligible: true,
	}
}

// categoryWithFinishers builds a category with n ranked finishers plus any
// extra unranked results.
func categoryWithFinishers(alias string, n int, extra ...results.RaceResult) *results.Category {
	category := &results.Category{Alias: alias, Label: alias}
	for i := 1; i <= n; i++ {
		category.Results = append(category.Results, results.RaceResult{
			AthleteKey: fmt.Sprintf("100000%05d", i),
			Position:   i,
			Status:     results.StatusFinished,
			FinishTime: 3600 + i*10,
		})
	}
	category.Results = append(category.Results, extra...)
	return category
}

func TestScheduleBandBoundaries(t *testing.T) {
	vector, err := points.DefaultSchedule.ForFieldSize(14)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 6, 5, 4, 3, 2, 1}, vector)

	vector, err = points.DefaultSchedule.ForFieldSize(15)
	require.NoError(t, err)
	assert.Len(t, vector, 10)
	assert.Equal(t, []int{10, 8, 6}, vector[:3])

	vector, err = points.DefaultSchedule.ForFieldSize(2)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, vector)

	vector, err = points.DefaultSchedule.ForFieldSize(500)
	require.NoError(t, err)
	assert.Equal(t, 12, vector[0])
}

func TestScheduleUncoveredSizeIsConfigError(t *testing.T) {
	_, err := points.DefaultSchedule.ForFieldSize(501)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	_, err = points.DefaultSchedule.ForFieldSize(0)
	assert.Error(t, err)
}

func TestComputeAwardsByPosition(t *testing.T) {
	event := sanctionedEvent()
	category := categoryWithFinishers("cat-3", 5)

	awards, err := points.Compute(category, category.FieldSize(), event, points.DefaultSchedule)
	require.NoError(t, err)

	// Field size 5 lands in the 4-7 band: three scoring slots.
	require.Len(t, awards, 3)
	assert.Equal(t, 8, awards[0].Points)
	assert.Equal(t, 6, awards[1].Points)
	assert.Equal(t, 4, awards[2].Points)
}

func TestComputeNonFinisherNeverScores(t *testing.T) {
	event := sanctionedEvent()
	category := categoryWithFinishers("cat-3", 2,
		results.RaceResult{AthleteKey: "10000099999", Status: results.StatusDNF},
		results.RaceResult{AthleteKey: "10000088888", Status: results.StatusDNS},
	)

	// Field size 3 (DNS excluded): single scoring slot for the winner.
	awards, err := points.Compute(category, category.FieldSize(), event, points.DefaultSchedule)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	for _, award := range awards {
		assert.NotEqual(t, "10000099999", award.AthleteKey)
		assert.NotEqual(t, "10000088888", award.AthleteKey)
	}
}

func TestComputeNonSanctionedGrantsNothing(t *testing.T) {
	event := sanctionedEvent()
	event.PointsEligible = false
	category := categoryWithFinishers("cat-3", 5)

	awards, err := points.Compute(category, category.FieldSize(), event, points.DefaultSchedule)
	require.NoError(t, err)
	assert.Empty(t, awards)
}

func TestComputeDoublePoints(t *testing.T) {
	event := sanctionedEvent()
	event.DoublePoints = true
	category := categoryWithFinishers("cat-3", 5)

	awards, err := points.Compute(category, category.FieldSize(), event, points.DefaultSchedule)
	require.NoError(t, err)
	assert.Equal(t, 16, awards[0].Points)
	assert.Equal(t, 12, awards[1].Points)
}

func TestComputeEventUmbrellaRouting(t *testing.T) {
	event := sanctionedEvent()
	event.SetCategory(categoryWithFinishers("cat-1", 3))
	event.SetCategory(categoryWithFinishers("cat-2", 4))
	groups := []results.CombinationGroup{{
		Label:      "Cat 1/2 Men",
		Categories: []string{"cat-1", "cat-2"},
	}}
	require.Empty(t, categories.Consolidate(context.Background(), event, groups))

	entries, errs := points.ComputeEvent(context.Background(), event, groups, points.DefaultSchedule)
	require.Empty(t, errs)

	// Umbrella-level routing: awards come only from the combined category.
	for _, entry := range entries {
		assert.Equal(t, "cat-1-2-men", entry.Category)
		assert.Equal(t, points.TypeUpgrade, entry.Type)
		assert.Equal(t, 7, entry.FieldSize)
	}
	assert.Len(t, entries, 3) // field size 7 pays 3 scoring slots
}

func TestComputeEventSubcategoryRouting(t *testing.T) {
	event := sanctionedEvent()
	event.SetCategory(categoryWithFinishers("cat-1", 3))
	event.SetCategory(categoryWithFinishers("cat-2", 4))
	groups := []results.CombinationGroup{{
		Label:               "Cat 1/2 Men",
		CategoriesForPoints: results.PointsAtSubcategory,
		Categories:          []string{"cat-1", "cat-2"},
	}}
	require.Empty(t, categories.Consolidate(context.Background(), event, groups))

	entries, errs := points.ComputeEvent(context.Background(), event, groups, points.DefaultSchedule)
	require.Empty(t, errs)

	// Member-level routing: the umbrella never awards, so the same finish
	// is counted exactly once.
	perCategory := map[string]int{}
	for _, entry := range entries {
		perCategory[entry.Category]++
	}
	assert.Equal(t, 1, perCategory["cat-1"]) // field size 3 pays 1 slot
	assert.Equal(t, 3, perCategory["cat-2"]) // field size 4 pays 3 slots
	assert.Zero(t, perCategory["cat-1-2-men"])
}

func TestComputeEventLogsEmptyField(t *testing.T) {
	logs := logging.CaptureLoggingForTest(t)

	event := sanctionedEvent()
	event.SetCategory(&results.Category{
		Alias: "cat-5",
		Label: "cat-5",
		Results: []results.RaceResult{
			{AthleteKey: "10000000001", Status: results.StatusDNS},
			{AthleteKey: "10000000002", Status: results.StatusDNS},
		},
	})
	event.SetCategory(categoryWithFinishers("cat-4", 4))

	entries, errs := points.ComputeEvent(context.Background(), event, nil, points.DefaultSchedule)

	// An all-DNS category awards nothing and is not an error, but the skip
	// leaves a trace in the log.
	require.Empty(t, errs)
	assert.Len(t, entries, 3)
	for _, entry := range entries {
		assert.NotEqual(t, "cat-5", entry.Category)
	}
	logs.AssertContains(t, "Skipping category with empty field")
	logs.AssertContains(t, "cat-5")
}

func TestComputeEventScheduleMissIsolated(t *testing.T) {
	event := sanctionedEvent()
	oversized := categoryWithFinishers("gran-fondo", 501)
	event.SetCategory(oversized)
	event.SetCategory(categoryWithFinishers("cat-3", 5))

	entries, errs := points.ComputeEvent(context.Background(), event, nil, points.DefaultSchedule)

	// The uncovered field size surfaces as an error without aborting the
	// other category.
	require.Len(t, errs, 1)
	assert.True(t, errors.IsConfiguration(errs[0]))
	assert.Len(t, entries, 3)
}
