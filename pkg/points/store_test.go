package points_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/identity"
	"github.com/aclement30/raceresults/pkg/points"
)

const uciMarie = "10012345678"

var now = time.Date(2026, time.June, 20, 12, 0, 0, 0, time.UTC)

func entry(athleteKey, eventHash string, date athletes.Date, pointsValue int) points.Entry {
	return points.Entry{
		AthleteKey: athleteKey,
		EventHash:  eventHash,
		Category:   "cat-3",
		Date:       date,
		Points:     pointsValue,
		Type:       points.TypeUpgrade,
		FieldSize:  12,
	}
}

func emptyResolver() *identity.Resolver {
	return identity.NewResolver(identity.LookupTable{}, nil)
}

func TestMergeInsertsAndDeduplicates(t *testing.T) {
	store := points.NewStore()
	ctx := context.Background()

	first := store.Merge(ctx, []points.Entry{
		entry(uciMarie, "ev-1", athletes.NewDate(2026, time.May, 1), 6),
	}, 2026, now, emptyResolver())
	assert.Equal(t, 1, first.Inserted)

	// Same (athlete, event, category) replaces, never appends.
	second := store.Merge(ctx, []points.Entry{
		entry(uciMarie, "ev-1", athletes.NewDate(2026, time.May, 1), 8),
	}, 2026, now, emptyResolver())
	assert.Equal(t, 1, second.Inserted) // year replacement removed the old row first
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 8, store.ActivePoints(uciMarie, points.TypeUpgrade, nil))
}

func TestMergeUpsertWithinBatch(t *testing.T) {
	store := points.NewStore()

	result := store.Merge(context.Background(), []points.Entry{
		entry(uciMarie, "ev-1", athletes.NewDate(2026, time.May, 1), 6),
		entry(uciMarie, "ev-1", athletes.NewDate(2026, time.May, 1), 8),
	}, 2026, now, emptyResolver())

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Replaced)
	assert.Equal(t, 8, store.ActivePoints(uciMarie, points.TypeUpgrade, nil))
}

func TestMergeReplacesTargetYear(t *testing.T) {
	store := points.NewStore()
	ctx := context.Background()

	store.Merge(ctx, []points.Entry{
		entry(uciMarie, "ev-old", athletes.NewDate(2025, time.September, 1), 5),
		entry(uciMarie, "ev-1", athletes.NewDate(2026, time.April, 1), 6),
	}, 2025, now, emptyResolver())

	// Re-running 2026 drops the stale 2026 row but keeps 2025.
	store.Merge(ctx, []points.Entry{
		entry(uciMarie, "ev-2", athletes.NewDate(2026, time.May, 1), 3),
	}, 2026, now, emptyResolver())

	entries := store.EntriesSince(uciMarie, athletes.NewDate(2025, time.January, 1))
	require.Len(t, entries, 2)
	assert.Equal(t, "ev-old", entries[0].EventHash)
	assert.Equal(t, "ev-2", entries[1].EventHash)
}

func TestMergeResolvesNameKeyedEntries(t *testing.T) {
	lookup := identity.LookupTable{"marie|tremblay": uciMarie}
	resolver := identity.NewResolver(lookup, nil)
	store := points.NewStore()

	result := store.Merge(context.Background(), []points.Entry{
		entry("marie|tremblay", "ev-1", athletes.NewDate(2026, time.May, 1), 6),
		entry("nobody|known", "ev-1", athletes.NewDate(2026, time.May, 1), 4),
	}, 2026, now, resolver)

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, 6, store.ActivePoints(uciMarie, points.TypeUpgrade, nil))
}

func TestMergePruneBoundary(t *testing.T) {
	store := points.NewStore()
	ctx := context.Background()

	// Exactly 12 months and 1 day before now: pruned on any merge.
	tooOld := entry(uciMarie, "ev-old", athletes.DateOf(now.AddDate(0, -12, -1)), 5)
	// 11 months ago: retained.
	recent := entry(uciMarie, "ev-recent", athletes.DateOf(now.AddDate(0, -11, 0)), 3)

	result := store.Merge(ctx, []points.Entry{tooOld, recent}, 2025, now, emptyResolver())

	assert.Equal(t, 1, result.Pruned)
	entries := store.EntriesSince(uciMarie, athletes.NewDate(2020, time.January, 1))
	require.Len(t, entries, 1)
	assert.Equal(t, "ev-recent", entries[0].EventHash)
}

func TestActivePointsFiltersTypeAndDate(t *testing.T) {
	store := points.NewStore()
	subjective := entry(uciMarie, "ev-2", athletes.NewDate(2026, time.May, 10), 10)
	subjective.Type = points.TypeSubjective

	store.Merge(context.Background(), []points.Entry{
		entry(uciMarie, "ev-1", athletes.NewDate(2026, time.May, 1), 6),
		subjective,
		entry(uciMarie, "ev-3", athletes.NewDate(2026, time.June, 1), 4),
	}, 2026, now, emptyResolver())

	assert.Equal(t, 10, store.ActivePoints(uciMarie, points.TypeUpgrade, nil))

	since := athletes.NewDate(2026, time.May, 15)
	assert.Equal(t, 4, store.ActivePoints(uciMarie, points.TypeUpgrade, &since))
}

func TestStoreEncodeRoundTrip(t *testing.T) {
	store := points.NewStore()
	store.Merge(context.Background(), []points.Entry{
		entry(uciMarie, "ev-1", athletes.NewDate(2026, time.May, 1), 6),
	}, 2026, now, emptyResolver())

	text, err := store.Encode()
	require.NoError(t, err)

	decoded, err := points.ParseStore(text)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.Len())
	assert.Equal(t, 6, decoded.ActivePoints(uciMarie, points.TypeUpgrade, nil))
}
