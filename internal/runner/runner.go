// Package runner orchestrates one full reconciliation run: load the
// persisted documents, fold every event's observations into the registry,
// consolidate categories, recompute points, rebuild the lookup table,
// compile the derived views, and write everything back.
//
// A run reads the registry and point store once at the start and writes
// each document once, in full, at the end. Concurrent runs over the same
// documents are not safe against lost updates; one writer per run.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/categories"
	"github.com/aclement30/raceresults/pkg/compile"
	"github.com/aclement30/raceresults/pkg/errors"
	"github.com/aclement30/raceresults/pkg/identity"
	"github.com/aclement30/raceresults/pkg/logging"
	"github.com/aclement30/raceresults/pkg/points"
	"github.com/aclement30/raceresults/pkg/reconcile"
	"github.com/aclement30/raceresults/pkg/results"
	"github.com/aclement30/raceresults/pkg/storage"
)

// Document paths within the store.
const (
	PathRegistry   = "athletes.json"
	PathPoints     = "points.json"
	PathLookup     = "lookup.json"
	PathDuplicates = "duplicates.json"
	PathOverrides  = "config/overrides.yaml"
	PathGroups     = "config/combined-categories.yaml"
	PathUpgrades   = "views/recent-upgrades.json"
	PathCollectors = "views/collectors.json"
)

// defaultConcurrency bounds the event source fan-out.
const defaultConcurrency = 8

// Config holds the parameters of a single run.
type Config struct {
	// Year is the season being merged. Point entries for this year are
	// replaced wholesale by the run's recomputation.
	Year int

	// Now anchors the rolling windows (point retention, recent upgrades,
	// collector cooldown). Zero means time.Now.
	Now time.Time

	// Concurrency bounds parallel event source loads. Zero means the
	// default.
	Concurrency int

	// DryRun computes everything but writes nothing back.
	DryRun bool
}

// Runner executes reconciliation runs against a document store.
type Runner struct {
	store  storage.Store
	config Config
}

// New creates a Runner. The store carries both the source event documents
// and the persisted output documents.
func New(store storage.Store, config Config) (*Runner, error) {
	if store == nil {
		return nil, errors.NewConfigError("runner", "store is required", nil)
	}
	if config.Year == 0 {
		return nil, errors.NewConfigError("runner", "year is required", nil)
	}
	if config.Now.IsZero() {
		config.Now = time.Now()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	return &Runner{store: store, config: config}, nil
}

// Result summarizes one run. Failures and ConfigErrors are advisory: they
// name work that was skipped, never work that was half-done.
type Result struct {
	RunID  string
	Year   int
	DryRun bool

	// Events is the number of event documents successfully loaded.
	Events int

	Merge  *reconcile.Result
	Points *points.MergeResult

	RecentUpgrades  int
	PointCollectors int

	// Failures holds per-event source errors and storage write errors.
	Failures []error

	// ConfigErrors holds consolidation and point schedule errors caused
	// by the manual configuration documents.
	ConfigErrors []error
}

// Run executes the full pipeline. It returns an error only when the run
// cannot proceed at all (unreadable registry, malformed configuration);
// per-event failures are collected on the Result instead.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.Ctx(ctx)

	result := &Result{RunID: runID, Year: r.config.Year, DryRun: r.config.DryRun}

	logger.Info().
		Int("year", r.config.Year).
		Bool("dry_run", r.config.DryRun).
		Msg("Starting reconciliation run")

	overrides, groups, err := r.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	registry, store, lookup, err := r.loadState(ctx)
	if err != nil {
		return nil, err
	}

	sources, failures := r.loadSources(ctx)
	result.Failures = append(result.Failures, failures...)
	result.Events = len(sources)

	// Fold observations sequentially in source order so duplicate
	// sightings of the same athlete within a batch merge deterministically.
	resolver := identity.NewResolver(lookup, overrides)
	merger := reconcile.NewMerger(resolver, overrides)
	var observations []athletes.Observation
	for _, source := range sources {
		observations = append(observations, source.Observations...)
	}
	result.Merge = merger.MergeObservations(ctx, registry, observations, r.config.Year)

	for _, source := range sources {
		eventCtx := logging.WithEvent(ctx, source.Event.Hash)
		if errs := categories.Consolidate(eventCtx, source.Event, groups[source.Event.Serie]); len(errs) > 0 {
			result.ConfigErrors = append(result.ConfigErrors, errs...)
		}
		// Athletes belong to the concrete categories they raced in,
		// never to an umbrella.
		for i := range source.Observations {
			source.Observations[i].Categories = categories.FilterMemberships(source.Observations[i].Categories, source.Event)
		}
	}

	// The point pass resolves name-keyed entries against the lookup table
	// rebuilt from the registry this run just updated.
	lookup, duplicates := identity.BuildLookup(registry)
	resolver = identity.NewResolver(lookup, overrides)

	var entries []points.Entry
	for _, source := range sources {
		eventEntries, errs := points.ComputeEvent(ctx, source.Event, groups[source.Event.Serie], points.DefaultSchedule)
		if len(errs) > 0 {
			result.ConfigErrors = append(result.ConfigErrors, errs...)
		}
		entries = append(entries, eventEntries...)
	}
	result.Points = store.Merge(ctx, entries, r.config.Year, r.config.Now, resolver)

	upgrades := compile.RecentUpgrades(registry, r.config.Now)
	collectors := compile.PointsCollectors(registry, store, r.config.Now)
	result.RecentUpgrades = len(upgrades)
	result.PointCollectors = len(collectors)

	if r.config.DryRun {
		logger.Info().Msg("Dry run, skipping document writes")
		logResult(logger, result)
		return result, nil
	}

	result.Failures = append(result.Failures, r.writeDocuments(ctx, registry, store, lookup, duplicates, upgrades, collectors, sources)...)
	logResult(logger, result)
	return result, nil
}

// loadConfig reads the manual configuration documents. Both are optional;
// a malformed document aborts the run.
func (r *Runner) loadConfig(ctx context.Context) (*athletes.Overrides, map[string][]results.CombinationGroup, error) {
	overrides := &athletes.Overrides{}
	if content, err := r.store.Get(ctx, PathOverrides); err == nil {
		overrides, err = athletes.ParseOverrides(content)
		if err != nil {
			return nil, nil, errors.NewConfigError("runner", "parsing overrides", err)
		}
	} else if !errors.IsNotFound(err) {
		return nil, nil, err
	}

	groups := map[string][]results.CombinationGroup{}
	if content, err := r.store.Get(ctx, PathGroups); err == nil {
		groups, err = results.ParseCombinationGroups(content)
		if err != nil {
			return nil, nil, errors.NewConfigError("runner", "parsing combination groups", err)
		}
	} else if !errors.IsNotFound(err) {
		return nil, nil, err
	}

	return overrides, groups, nil
}

// loadState reads the persisted registry, point store and lookup table.
// Missing documents start empty; a first run has nothing to read.
func (r *Runner) loadState(ctx context.Context) (*athletes.Registry, *points.Store, identity.LookupTable, error) {
	registry := athletes.NewRegistry()
	if content, err := r.store.Get(ctx, PathRegistry); err == nil {
		registry, err = athletes.ParseRegistry(content)
		if err != nil {
			return nil, nil, nil, errors.WrapParse("json", PathRegistry, err)
		}
	} else if !errors.IsNotFound(err) {
		return nil, nil, nil, err
	}

	store := points.NewStore()
	if content, err := r.store.Get(ctx, PathPoints); err == nil {
		store, err = points.ParseStore(content)
		if err != nil {
			return nil, nil, nil, errors.WrapParse("json", PathPoints, err)
		}
	} else if !errors.IsNotFound(err) {
		return nil, nil, nil, err
	}

	lookup := identity.LookupTable{}
	if content, err := r.store.Get(ctx, PathLookup); err == nil {
		lookup, err = identity.ParseLookup(content)
		if err != nil {
			return nil, nil, nil, errors.WrapParse("json", PathLookup, err)
		}
	} else if !errors.IsNotFound(err) {
		return nil, nil, nil, err
	}

	return registry, store, lookup, nil
}

// loadSources lists and loads this year's event source documents in
// parallel. Every item's outcome is collected independently; a failed load
// never aborts sibling loads. Successful sources come back in path order.
func (r *Runner) loadSources(ctx context.Context) ([]*EventSource, []error) {
	prefix := fmt.Sprintf("events/%d", r.config.Year)
	paths, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, []error{err}
	}

	sources := make([]*EventSource, len(paths))
	loadErrs := make([]error, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Concurrency)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			source, err := r.loadSource(groupCtx, path)
			if err != nil {
				logging.Ctx(ctx).Warn().
					Str("path", path).
					Err(err).
					Msg("Skipping event source")
				loadErrs[i] = err
				return nil
			}
			sources[i] = source
			return nil
		})
	}
	// Workers never return errors; Wait only orders the slice fills.
	_ = group.Wait()

	loaded := make([]*EventSource, 0, len(paths))
	var failures []error
	for i := range paths {
		if loadErrs[i] != nil {
			failures = append(failures, loadErrs[i])
			continue
		}
		loaded = append(loaded, sources[i])
	}
	return loaded, failures
}

// loadSource reads and decodes one event source document.
func (r *Runner) loadSource(ctx context.Context, path string) (*EventSource, error) {
	content, err := r.store.Get(ctx, path)
	if err != nil {
		return nil, errors.NewSourceError("", path, err)
	}
	source, err := ParseEventSource(content)
	if err != nil {
		return nil, errors.NewSourceError("", path, err)
	}
	if source.Event == nil || source.Event.Hash == "" {
		return nil, errors.NewSourceError("", path, errors.ErrInvalidInput)
	}
	source.Path = path
	return source, nil
}

// writeDocuments persists every output document. A failed write is logged
// and reported but does not stop the remaining writes; nothing is retried.
func (r *Runner) writeDocuments(
	ctx context.Context,
	registry *athletes.Registry,
	store *points.Store,
	lookup identity.LookupTable,
	duplicates *identity.Duplicates,
	upgrades []compile.Upgrade,
	collectors []compile.Collector,
	sources []*EventSource,
) []error {
	var failures []error
	write := func(path string, encode func() (string, error)) {
		content, err := encode()
		if err == nil {
			err = r.store.Put(ctx, path, content)
		}
		if err != nil {
			logging.Ctx(ctx).Error().
				Str("path", path).
				Err(err).
				Msg("Failed to write document")
			failures = append(failures, errors.WrapStorage("put", path, err))
		}
	}

	write(PathRegistry, registry.Encode)
	write(PathPoints, store.Encode)
	write(PathLookup, lookup.Encode)
	write(PathDuplicates, duplicates.Encode)
	write(PathUpgrades, func() (string, error) { return compile.EncodeUpgrades(upgrades) })
	write(PathCollectors, func() (string, error) { return compile.EncodeCollectors(collectors) })

	// Consolidated categories persist inside each event's own document.
	for _, source := range sources {
		write(source.Path, source.Encode)
	}
	return failures
}

// logResult emits the run summary.
func logResult(logger *zerolog.Logger, result *Result) {
	logger.Info().
		Int("events", result.Events).
		Int("inserted", result.Merge.Inserted).
		Int("updated", result.Merge.Updated).
		Int("unchanged", result.Merge.Unchanged).
		Int("skipped", result.Merge.Skipped).
		Int("unresolved", result.Merge.Unresolved).
		Int("points_inserted", result.Points.Inserted).
		Int("points_replaced", result.Points.Replaced).
		Int("points_pruned", result.Points.Pruned).
		Int("recent_upgrades", result.RecentUpgrades).
		Int("point_collectors", result.PointCollectors).
		Int("failures", len(result.Failures)).
		Int("config_errors", len(result.ConfigErrors)).
		Msg("Run complete")
}
