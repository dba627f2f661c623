package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wms-platform/slotting-simulator/internal/bootstrap"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/report"
)

type runOptions struct {
	fixture      string
	settings     string
	matrix       string
	index        string
	strategy     string
	date         string
	days         int
	classes      int
	better       bool
	optimized    bool
	exact        bool
	seed         int64
	output       string
	reportPath   string
	reportFormat string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate picking over consecutive days",
		Long: "Seeds an in-memory warehouse from a fixture, simulates the requested days " +
			"and prints the per-day route lengths and rearrangement counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.fixture, "fixture", "", "Warehouse fixture (YAML or JSON)")
	flags.StringVar(&opts.settings, "settings", "", "Simulation settings YAML")
	flags.StringVar(&opts.matrix, "matrix", "", "Distance matrix JSON, overrides the fixture layout")
	flags.StringVar(&opts.index, "index", "", "Slot index JSON, overrides the fixture layout")
	flags.StringVar(&opts.strategy, "strategy", string(domain.StrategyCurrent), "Slotting strategy")
	flags.StringVar(&opts.date, "date", "", "First simulated day (YYYY-MM-DD)")
	flags.IntVar(&opts.days, "days", 1, "Number of simulated days")
	flags.IntVar(&opts.classes, "classes", 2, "Number of classes for class based strategies")
	flags.BoolVar(&opts.better, "better-picklists", false, "Build pick lists with route clustering")
	flags.BoolVar(&opts.optimized, "optimized-groundzone", false, "Condense the ground zone after each day")
	flags.BoolVar(&opts.exact, "exact-forecast", false, "Rank by the actual sales of the simulated month")
	flags.Int64Var(&opts.seed, "seed", 0, "Random seed, 0 picks a time based one")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	flags.StringVar(&opts.reportPath, "report", "", "Also write a run report to this file")
	flags.StringVar(&opts.reportFormat, "report-format", "", "Report format (xlsx, pdf), defaults to the file extension")
	_ = cmd.MarkFlagRequired("fixture")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runSimulation(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	ctx := cmd.Context()

	strategy, err := domain.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}
	date, err := time.Parse(time.DateOnly, opts.date)
	if err != nil {
		return fmt.Errorf("invalid --date %q: %w", opts.date, err)
	}
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	app, err := bootstrap.Build(ctx, &bootstrap.Config{
		StoreBackend:       bootstrap.BackendMemory,
		SeedPath:           opts.fixture,
		SettingsPath:       opts.settings,
		DistanceMatrixPath: opts.matrix,
		SlotIndexPath:      opts.index,
	}, root.logger(cmd.ErrOrStderr()), nil)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	run, err := app.Simulation.SimulatePicking(ctx, domain.SimulationRequest{
		Strategy:            strategy,
		StartDate:           date,
		NumberOfDays:        opts.days,
		BetterPicklists:     opts.better,
		NumberOfClasses:     opts.classes,
		OptimizedGroundZone: opts.optimized,
		ExactForecast:       opts.exact,
		Seed:                opts.seed,
	})
	if err != nil {
		return err
	}

	if opts.reportPath != "" {
		if err := writeReport(run, opts.reportPath, opts.reportFormat); err != nil {
			return err
		}
	}

	if opts.output == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(run)
	}
	return printRun(cmd.OutOrStdout(), run)
}

func writeReport(run *domain.SimulationRun, path, format string) error {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	reportFormat, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := report.Build(run, reportFormat)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func printRun(w io.Writer, run *domain.SimulationRun) error {
	fmt.Fprintf(w, "run %s (%s, seed %d): %s\n", run.ID, run.Request.Strategy, run.Request.Seed, run.Status)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tLENGTH\tPICKLISTS\tENTRIES\tHIGH>GROUND\tLENGTH\tIN GROUND\tLENGTH\t")
	for _, result := range run.Results {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%d\t%d\t%.2f\t%d\t%.2f\t\n",
			result.Date.Format(time.DateOnly),
			result.Length,
			result.PicklistCount,
			result.PicklistEntryCount,
			result.RearrangementCountHighzoneGroundzone,
			result.RearrangementLengthHighzoneGroundzone,
			result.RearrangementCountInGroundzone,
			result.RearrangementLengthInGroundzone,
		)
	}
	fmt.Fprintf(tw, "TOTAL\t%.2f\t\t\t\t\t\t\t\n", run.TotalLength())
	return tw.Flush()
}
