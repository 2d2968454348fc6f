// Package categories consolidates per-event race categories into umbrella
// groupings. Events split or combine fields differently from year to year;
// combination groups declare which concrete categories race together, and
// the consolidator either designates an existing category as the umbrella or
// synthesizes one by re-ranking the combined results.
package categories

import (
	"context"
	"sort"
	"strings"

	"github.com/aclement30/raceresults/pkg/errors"
	"github.com/aclement30/raceresults/pkg/logging"
	"github.com/aclement30/raceresults/pkg/results"
)

// Consolidate applies the serie's combination groups to an event's
// categories, mutating the event in place. Group members missing from the
// event are non-fatal: they are returned as errors and skipped, and never
// abort the remaining groups.
func Consolidate(ctx context.Context, event *results.Event, groups []results.CombinationGroup) []error {
	log := logging.FromContext(ctx)
	var errs []error

	for i := range groups {
		group := &groups[i]

		var members []*results.Category
		for _, alias := range group.Categories {
			member := event.Category(alias)
			if member == nil {
				err := &errors.ConsolidationError{
					EventHash: event.Hash,
					Group:     group.Label,
					Alias:     alias,
					Message:   "not found in event",
				}
				log.Warn().Err(err).Str("event", event.Hash).Msg("Skipping missing group member")
				errs = append(errs, err)
				continue
			}
			members = append(members, member)
		}
		if len(members) == 0 {
			errs = append(errs, &errors.ConsolidationError{
				EventHash: event.Hash,
				Group:     group.Label,
				Message:   "no member categories present",
			})
			continue
		}

		if umbrella := event.Category(group.UmbrellaCategory); umbrella != nil {
			designateUmbrella(umbrella, group, members)
			continue
		}

		umbrella := synthesizeUmbrella(group, members)
		event.SetCategory(umbrella)
	}

	// Groups can validate individually yet overlap: one group's umbrella
	// listed as another group's member leaves a category in both roles.
	aliases := make([]string, 0, len(event.Categories))
	for alias := range event.Categories {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		if err := event.Categories[alias].ValidateRole(); err != nil {
			violation := &errors.ConsolidationError{
				EventHash: event.Hash,
				Alias:     alias,
				Message:   "holds both umbrella and member roles",
			}
			log.Warn().Err(err).Str("event", event.Hash).Msg("Category role conflict after consolidation")
			errs = append(errs, violation)
		}
	}

	return errs
}

// designateUmbrella marks an existing category as the umbrella for a group
// and reciprocally annotates its members.
func designateUmbrella(umbrella *results.Category, group *results.CombinationGroup, members []*results.Category) {
	umbrella.Label = group.Label
	umbrella.CombinedCategories = umbrella.CombinedCategories[:0]
	for _, member := range members {
		umbrella.CombinedCategories = append(umbrella.CombinedCategories, member.Alias)
		member.UmbrellaCategory = umbrella.Alias
	}
}

// synthesizeUmbrella builds a new umbrella category from member results:
// timed finishers re-rank by ascending finish time with gaps recomputed to
// the new leader, untimed finishers follow unranked, and non-finishers keep
// their original status, unranked.
func synthesizeUmbrella(group *results.CombinationGroup, members []*results.Category) *results.Category {
	alias := group.UmbrellaCategory
	if alias == "" {
		alias = slugify(group.Label)
	}

	umbrella := &results.Category{
		Alias:    alias,
		Label:    group.Label,
		Gender:   commonString(members, func(c *results.Category) string { return c.Gender }),
		Distance: commonString(members, func(c *results.Category) string { return c.Distance }),
		Laps:     commonInt(members, func(c *results.Category) int { return c.Laps }),
	}

	var timed, untimed, nonFinishers []results.RaceResult
	for _, member := range members {
		umbrella.CombinedCategories = append(umbrella.CombinedCategories, member.Alias)
		umbrella.Starters += member.Starters
		umbrella.Finishers += member.Finishers
		member.UmbrellaCategory = alias

		for _, result := range member.Results {
			switch {
			case result.Status == results.StatusFinished && result.FinishTime > 0:
				timed = append(timed, result)
			case result.Status == results.StatusFinished:
				untimed = append(untimed, result)
			default:
				nonFinishers = append(nonFinishers, result)
			}
		}
	}

	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].FinishTime < timed[j].FinishTime
	})
	for i := range timed {
		timed[i].Position = i + 1
		timed[i].Gap = timed[i].FinishTime - timed[0].FinishTime
	}
	for i := range untimed {
		untimed[i].Position = 0
		untimed[i].Gap = 0
	}
	for i := range nonFinishers {
		nonFinishers[i].Position = 0
		nonFinishers[i].Gap = 0
	}

	umbrella.Results = append(append(timed, untimed...), nonFinishers...)
	return umbrella
}

// FilterMemberships removes umbrella aliases from an athlete's
// category-membership list: athletes belong to the concrete categories they
// raced in, never to a synthesized umbrella.
func FilterMemberships(memberships []string, event *results.Event) []string {
	filtered := memberships[:0]
	for _, alias := range memberships {
		if category := event.Category(alias); category != nil && category.IsUmbrella() {
			continue
		}
		filtered = append(filtered, alias)
	}
	return filtered
}

// commonString returns the field value shared by all members, or "".
func commonString(members []*results.Category, field func(*results.Category) string) string {
	value := field(members[0])
	for _, member := range members[1:] {
		if field(member) != value {
			return ""
		}
	}
	return value
}

// commonInt returns the field value shared by all members, or 0.
func commonInt(members []*results.Category, field func(*results.Category) int) int {
	value := field(members[0])
	for _, member := range members[1:] {
		if field(member) != value {
			return 0
		}
	}
	return value
}

// slugify derives a category alias from a group label.
func slugify(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteRune('-')
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
