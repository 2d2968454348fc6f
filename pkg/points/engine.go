package points

import (
	"context"
	"sort"

	"github.com/aclement30/raceresults/pkg/errors"
	"github.com/aclement30/raceresults/pkg/logging"
	"github.com/aclement30/raceresults/pkg/results"
)

// EntryType distinguishes schedule-driven awards from discretionary ones.
type EntryType string

// Entry types.
const (
	TypeUpgrade    EntryType = "UPGRADE"
	TypeSubjective EntryType = "SUBJECTIVE"
)

// Award is one athlete's point award in one category.
type Award struct {
	AthleteKey string
	Position   int
	Points     int
}

// Compute returns the point awards for one category. Non-sanctioned events
// grant nothing. The position index counts finishers only: a non-finisher
// never receives a position-based point.
func Compute(category *results.Category, fieldSize int, event *results.Event, schedule Schedule) ([]Award, error) {
	if !event.PointsEligible {
		return nil, nil
	}

	vector, err := schedule.ForFieldSize(fieldSize)
	if err != nil {
		return nil, &errors.ScheduleError{FieldSize: fieldSize, Category: category.Alias}
	}

	finishers := make([]results.RaceResult, 0, len(category.Results))
	for _, result := range category.Results {
		if result.Status == results.StatusFinished && result.Position > 0 {
			finishers = append(finishers, result)
		}
	}
	sort.Slice(finishers, func(i, j int) bool {
		return finishers[i].Position < finishers[j].Position
	})

	var awards []Award
	for i, finisher := range finishers {
		if i >= len(vector) {
			break
		}
		value := vector[i]
		if event.DoublePoints {
			value *= 2
		}
		awards = append(awards, Award{
			AthleteKey: finisher.AthleteKey,
			Position:   i + 1,
			Points:     value,
		})
	}
	return awards, nil
}

// ComputeEvent computes entries for every point-scoring category of an
// event, honoring each combination group's routing: points are awarded at
// the umbrella level or pushed down to member categories, never both.
// Schedule misses are configuration errors collected per category; they do
// not abort the remaining categories.
func ComputeEvent(ctx context.Context, event *results.Event, groups []results.CombinationGroup, schedule Schedule) ([]Entry, []error) {
	log := logging.FromContext(ctx)

	groupFor := make(map[string]*results.CombinationGroup)
	for i := range groups {
		group := &groups[i]
		if group.UmbrellaCategory != "" {
			groupFor[group.UmbrellaCategory] = group
		}
		for _, alias := range group.Categories {
			groupFor[alias] = group
			if member := event.Category(alias); member != nil && member.UmbrellaCategory != "" {
				groupFor[member.UmbrellaCategory] = group
			}
		}
	}

	aliases := make([]string, 0, len(event.Categories))
	for alias := range event.Categories {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	var entries []Entry
	var errs []error
	for _, alias := range aliases {
		category := event.Categories[alias]

		if group := groupFor[alias]; group != nil {
			if category.IsUmbrella() && group.Routing() != results.PointsAtUmbrella {
				continue
			}
			if category.IsMember() && group.Routing() != results.PointsAtSubcategory {
				continue
			}
		}

		fieldSize := category.FieldSize()
		if fieldSize == 0 {
			log.Debug().Str("event", event.Hash).Str("category", alias).Msg("Skipping category with empty field")
			continue
		}

		awards, err := Compute(category, fieldSize, event, schedule)
		if err != nil {
			log.Error().Err(err).Str("event", event.Hash).Str("category", alias).Msg("Point computation failed")
			errs = append(errs, err)
			continue
		}

		for _, award := range awards {
			entries = append(entries, Entry{
				AthleteKey: award.AthleteKey,
				EventHash:  event.Hash,
				Category:   alias,
				Date:       event.Date,
				Points:     award.Points,
				Type:       TypeUpgrade,
				FieldSize:  fieldSize,
			})
		}
	}
	return entries, errs
}
