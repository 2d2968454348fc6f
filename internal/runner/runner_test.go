package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/points"
	"github.com/aclement30/raceresults/pkg/results"
	"github.com/aclement30/raceresults/pkg/storage"
	"github.com/aclement30/raceresults/pkg/storage/memory"
)

func testSource(t *testing.T, hash string, date athletes.Date) string {
	t.Helper()
	source := &EventSource{
		Event: &results.Event{
			Hash:           hash,
			Name:           "Spring Series " + hash,
			Date:           date,
			Serie:          "spring-series",
			Discipline:     athletes.DisciplineRoad,
			PointsEligible: true,
			Categories: map[string]*results.Category{
				"cat-3": {
					Alias:  "cat-3",
					Label:  "Cat 3 Men",
					Gender: "M",
					Results: []results.RaceResult{
						{AthleteKey: "10000000001", Position: 1, Status: results.StatusFinished, FinishTime: 3600},
						{AthleteKey: "10000000002", Position: 2, Status: results.StatusFinished, FinishTime: 3610},
						{AthleteKey: "10000000003", Position: 3, Status: results.StatusFinished, FinishTime: 3620},
						{AthleteKey: "10000000004", Position: 4, Status: results.StatusFinished, FinishTime: 3630},
					},
					Starters:  4,
					Finishers: 4,
				},
			},
		},
		Observations: []athletes.Observation{
			{
				UciID: "10000000001", FirstName: "Ana", LastName: "Silva",
				SkillLevels: map[athletes.Discipline]int{athletes.DisciplineRoad: 3},
				EventDate:   date, EventHash: hash,
			},
			{
				UciID: "10000000002", FirstName: "Ben", LastName: "Okafor",
				SkillLevels: map[athletes.Discipline]int{athletes.DisciplineRoad: 3},
				EventDate:   date, EventHash: hash,
			},
			{
				UciID: "10000000003", FirstName: "Cara", LastName: "Lund",
				SkillLevels: map[athletes.Discipline]int{athletes.DisciplineRoad: 3},
				EventDate:   date, EventHash: hash,
			},
			{
				UciID: "10000000004", FirstName: "Dan", LastName: "Reyes",
				SkillLevels: map[athletes.Discipline]int{athletes.DisciplineRoad: 3},
				EventDate:   date, EventHash: hash,
			},
		},
	}
	content, err := source.Encode()
	require.NoError(t, err)
	return content
}

func newTestRunner(t *testing.T, store storage.Store, dryRun bool) *Runner {
	t.Helper()
	r, err := New(store, Config{
		Year:   2026,
		Now:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		DryRun: dryRun,
	})
	require.NoError(t, err)
	return r
}

func TestRunFullPipeline(t *testing.T) {
	store := memory.New(memory.WithPreload(map[string]string{
		"events/2026/ev-1.json": testSource(t, "ev-1", athletes.NewDate(2026, time.June, 7)),
	}))

	result, err := newTestRunner(t, store, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Events)
	assert.Equal(t, 4, result.Merge.Inserted)
	// Field of 4 pays three places.
	assert.Equal(t, 3, result.Points.Inserted)
	assert.Empty(t, result.Failures)
	assert.Empty(t, result.ConfigErrors)
	assert.NotEmpty(t, result.RunID)

	ctx := context.Background()
	content, err := store.Get(ctx, PathRegistry)
	require.NoError(t, err)
	registry, err := athletes.ParseRegistry(content)
	require.NoError(t, err)
	assert.Equal(t, 4, registry.Len())
	assert.Equal(t, "Ana Silva", registry.Get("10000000001").Name())

	content, err = store.Get(ctx, PathPoints)
	require.NoError(t, err)
	pointStore, err := points.ParseStore(content)
	require.NoError(t, err)
	assert.Equal(t, 3, pointStore.Len())
	assert.Equal(t, 8, pointStore.Entries["10000000001"][0].Points)

	for _, path := range []string{PathLookup, PathDuplicates, PathUpgrades, PathCollectors} {
		_, err := store.Get(ctx, path)
		assert.NoError(t, err, path)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := memory.New(memory.WithPreload(map[string]string{
		"events/2026/ev-1.json": testSource(t, "ev-1", athletes.NewDate(2026, time.June, 7)),
	}))

	ctx := context.Background()
	_, err := newTestRunner(t, store, false).Run(ctx)
	require.NoError(t, err)
	first, err := store.Get(ctx, PathRegistry)
	require.NoError(t, err)

	second, err := newTestRunner(t, store, false).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, second.Merge.Unchanged)

	again, err := store.Get(ctx, PathRegistry)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	store := memory.New(memory.WithPreload(map[string]string{
		"events/2026/ev-1.json": testSource(t, "ev-1", athletes.NewDate(2026, time.June, 7)),
	}))

	result, err := newTestRunner(t, store, true).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 4, result.Merge.Inserted)

	paths, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"events/2026/ev-1.json"}, paths)
}

func TestRunMalformedSourceDoesNotAbortSiblings(t *testing.T) {
	store := memory.New(memory.WithPreload(map[string]string{
		"events/2026/ev-1.json": testSource(t, "ev-1", athletes.NewDate(2026, time.June, 7)),
		"events/2026/ev-2.json": "not json",
	}))

	result, err := newTestRunner(t, store, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Events)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 4, result.Merge.Inserted)
}

func TestRunAppliesCombinationGroups(t *testing.T) {
	groups := `spring-series:
  - label: Cat 1/2 Men
    umbrellaCategory: cat-1-2-men
    categories:
      - cat-1
      - cat-2
`
	date := athletes.NewDate(2026, time.June, 7)
	source := &EventSource{
		Event: &results.Event{
			Hash:           "ev-1",
			Date:           date,
			Serie:          "spring-series",
			PointsEligible: true,
			Categories: map[string]*results.Category{
				"cat-1": {
					Alias: "cat-1",
					Results: []results.RaceResult{
						{AthleteKey: "10000000001", Position: 1, Status: results.StatusFinished, FinishTime: 3600},
					},
					Starters: 1, Finishers: 1,
				},
				"cat-2": {
					Alias: "cat-2",
					Results: []results.RaceResult{
						{AthleteKey: "10000000002", Position: 1, Status: results.StatusFinished, FinishTime: 3590},
					},
					Starters: 1, Finishers: 1,
				},
			},
		},
		Observations: []athletes.Observation{
			{UciID: "10000000001", FirstName: "Ana", LastName: "Silva", EventDate: date, EventHash: "ev-1"},
			{UciID: "10000000002", FirstName: "Ben", LastName: "Okafor", EventDate: date, EventHash: "ev-1"},
		},
	}
	content, err := source.Encode()
	require.NoError(t, err)

	store := memory.New(memory.WithPreload(map[string]string{
		PathGroups:              groups,
		"events/2026/ev-1.json": content,
	}))

	result, err := newTestRunner(t, store, false).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.ConfigErrors)

	ctx := context.Background()
	written, err := store.Get(ctx, "events/2026/ev-1.json")
	require.NoError(t, err)
	parsed, err := ParseEventSource(written)
	require.NoError(t, err)

	umbrella := parsed.Event.Categories["cat-1-2-men"]
	require.NotNil(t, umbrella, "umbrella synthesized and persisted")
	assert.ElementsMatch(t, []string{"cat-1", "cat-2"}, umbrella.CombinedCategories)
	require.Len(t, umbrella.Results, 2)
	assert.Equal(t, "10000000002", umbrella.Results[0].AthleteKey)

	// Points route to the umbrella field, not the two-rider members.
	pointsDoc, err := store.Get(ctx, PathPoints)
	require.NoError(t, err)
	pointStore, err := points.ParseStore(pointsDoc)
	require.NoError(t, err)
	require.Len(t, pointStore.Entries["10000000002"], 1)
	assert.Equal(t, "cat-1-2-men", pointStore.Entries["10000000002"][0].Category)
}

func TestRunFiltersUmbrellaMemberships(t *testing.T) {
	groups := `spring-series:
  - label: Open Men
    umbrellaCategory: open-men
    categories:
      - cat-1
`
	date := athletes.NewDate(2026, time.June, 7)
	source := &EventSource{
		Event: &results.Event{
			Hash:  "ev-1",
			Date:  date,
			Serie: "spring-series",
			Categories: map[string]*results.Category{
				"cat-1": {
					Alias: "cat-1",
					Results: []results.RaceResult{
						{AthleteKey: "10000000001", Position: 1, Status: results.StatusFinished, FinishTime: 3600},
					},
					Starters: 1, Finishers: 1,
				},
				"open-men": {Alias: "open-men", Label: "Open Men"},
			},
		},
		Observations: []athletes.Observation{
			{
				UciID: "10000000001", FirstName: "Ana", LastName: "Silva",
				Categories: []string{"cat-1", "open-men"},
				EventDate:  date, EventHash: "ev-1",
			},
		},
	}
	content, err := source.Encode()
	require.NoError(t, err)

	store := memory.New(memory.WithPreload(map[string]string{
		PathGroups:              groups,
		"events/2026/ev-1.json": content,
	}))

	_, err = newTestRunner(t, store, false).Run(context.Background())
	require.NoError(t, err)

	written, err := store.Get(context.Background(), "events/2026/ev-1.json")
	require.NoError(t, err)
	parsed, err := ParseEventSource(written)
	require.NoError(t, err)

	// The membership referencing the designated umbrella is filtered out.
	require.Len(t, parsed.Observations, 1)
	assert.Equal(t, []string{"cat-1"}, parsed.Observations[0].Categories)
	assert.True(t, parsed.Event.Categories["open-men"].IsUmbrella())
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(nil, Config{Year: 2026})
	assert.Error(t, err)

	_, err = New(memory.New(), Config{})
	assert.Error(t, err)
}
