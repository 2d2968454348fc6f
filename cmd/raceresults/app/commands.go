package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aclement30/raceresults/internal/runner"
	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/compile"
	"github.com/aclement30/raceresults/pkg/errors"
	"github.com/aclement30/raceresults/pkg/points"
)

// NewRunCommand creates the run command, which executes a full
// reconciliation run for one season.
func (a *App) NewRunCommand() *cobra.Command {
	var (
		year        int
		concurrency int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full reconciliation pass for a season",
		Long: `Run loads the season's event source documents, resolves athlete
identities, merges observations into the registry, consolidates combined
categories, recomputes upgrade points, and rewrites the persisted documents
along with the compiled views.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.Storage()
			if err != nil {
				return err
			}

			if year == 0 {
				year = a.config.Year
			}
			run, err := runner.New(store, runner.Config{
				Year:        year,
				Concurrency: concurrency,
				DryRun:      dryRun,
			})
			if err != nil {
				return err
			}

			result, err := run.Run(cmd.Context())
			if err != nil {
				return err
			}

			printRunResult(cmd, result)
			if len(result.Failures) > 0 {
				return fmt.Errorf("run completed with %d failed items", len(result.Failures))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "season to merge (default: configured year)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel event source loads")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute everything but write nothing")

	return cmd
}

// NewCompileCommand creates the compile command, which rebuilds the derived
// views from the persisted registry and point store without merging.
func (a *App) NewCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Rebuild the derived views from persisted documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.Storage()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			content, err := store.Get(ctx, runner.PathRegistry)
			if err != nil {
				return err
			}
			registry, err := athletes.ParseRegistry(content)
			if err != nil {
				return errors.WrapParse("json", runner.PathRegistry, err)
			}

			pointStore := points.NewStore()
			if content, err := store.Get(ctx, runner.PathPoints); err == nil {
				pointStore, err = points.ParseStore(content)
				if err != nil {
					return errors.WrapParse("json", runner.PathPoints, err)
				}
			} else if !errors.IsNotFound(err) {
				return err
			}

			now := time.Now()
			upgrades := compile.RecentUpgrades(registry, now)
			collectors := compile.PointsCollectors(registry, pointStore, now)

			upgradesDoc, err := compile.EncodeUpgrades(upgrades)
			if err != nil {
				return err
			}
			if err := store.Put(ctx, runner.PathUpgrades, upgradesDoc); err != nil {
				return err
			}

			collectorsDoc, err := compile.EncodeCollectors(collectors)
			if err != nil {
				return err
			}
			if err := store.Put(ctx, runner.PathCollectors, collectorsDoc); err != nil {
				return err
			}

			cmd.Printf("Compiled %d recent upgrades, %d point collectors\n", len(upgrades), len(collectors))
			return nil
		},
	}
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("raceresults %s (commit %s, built %s)\n", a.version, a.commit, a.date)
		},
	}
}

// printRunResult writes the run summary to the command's output.
func printRunResult(cmd *cobra.Command, result *runner.Result) {
	cmd.Printf("Run %s (year %d)\n", result.RunID, result.Year)
	if result.DryRun {
		cmd.Println("Dry run: no documents written")
	}
	cmd.Printf("  events:          %d\n", result.Events)
	cmd.Printf("  inserted:        %d\n", result.Merge.Inserted)
	cmd.Printf("  updated:         %d\n", result.Merge.Updated)
	cmd.Printf("  unchanged:       %d\n", result.Merge.Unchanged)
	cmd.Printf("  skipped:         %d\n", result.Merge.Skipped)
	cmd.Printf("  unresolved:      %d\n", result.Merge.Unresolved)
	cmd.Printf("  points inserted: %d\n", result.Points.Inserted)
	cmd.Printf("  points pruned:   %d\n", result.Points.Pruned)
	cmd.Printf("  recent upgrades: %d\n", result.RecentUpgrades)
	cmd.Printf("  collectors:      %d\n", result.PointCollectors)
	for _, failure := range result.Failures {
		cmd.Printf("  FAILED: %v\n", failure)
	}
	for _, cfgErr := range result.ConfigErrors {
		cmd.Printf("  CONFIG: %v\n", cfgErr)
	}
}
