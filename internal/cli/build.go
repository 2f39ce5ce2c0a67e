package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anophel-labs/sweepmill/internal/catalog"
	"github.com/anophel-labs/sweepmill/internal/intervention"
	"github.com/anophel-labs/sweepmill/internal/manifest"
	"github.com/anophel-labs/sweepmill/internal/sweep"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Catalog   string
	Database  string
	Districts []string
	SweepID   string
}

// BuildSummary is the build command's success payload.
type BuildSummary struct {
	SweepID     string   `json:"sweep_id"`
	Scenario    string   `json:"scenario"`
	Points      int      `json:"points"`
	PointErrors []string `json:"point_errors,omitempty"`
}

func (s BuildSummary) String() string {
	out := fmt.Sprintf("sweep %s: scenario=%s points=%d", s.SweepID, s.Scenario, s.Points)
	if len(s.PointErrors) > 0 {
		out += fmt.Sprintf(" point_errors=%d", len(s.PointErrors))
	}
	return out
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <scenario-id>",
		Short: "Build a sweep from the selected scenario",
		Long: `Build the full sweep for one scenario and persist it to the manifest.

The scenario row selects the intervention file; the sweep enumerates
district-major, sample-mid, seed-minor over the catalog's calibration
samples. Warm-start scenarios resolve a burn-in record per point from the
manifest's burn-in registry.

Example:
  sweepmill build baseline-2025 --catalog ./input --db ./sweeps.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "path to the input catalog directory (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the manifest database (required)")
	cmd.Flags().StringSliceVar(&opts.Districts, "districts", nil, "restrict the sweep to these districts (default: all)")
	cmd.Flags().StringVar(&opts.SweepID, "sweep-id", "", "fixed sweep identifier (default: generated UUIDv7)")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runBuild(opts *BuildOptions, scenarioID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	slog.Info("loading catalog", "dir", opts.Catalog)
	cat, err := catalog.Load(opts.Catalog)
	if err != nil {
		formatter.Error(ErrCodeBadCatalog, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	scenario, err := cat.Scenario(scenarioID)
	if err != nil {
		formatter.Error(ErrCodeBadScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown scenario", err)
	}

	interventionPath := filepath.Join(cat.Dir, scenario.InterventionFile)
	slog.Info("compiling intervention file", "path", interventionPath)
	iset, err := intervention.LoadSet(interventionPath)
	if err != nil {
		formatter.Error(ErrCodeBadSpec, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile intervention file", err)
	}

	store, err := manifest.Open(opts.Database)
	if err != nil {
		formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open manifest", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing manifest", "error", closeErr)
		}
	}()

	cfg := sweep.Config{
		Catalog:       cat,
		Scenario:      scenario,
		Interventions: iset,
		Districts:     opts.Districts,
		SweepID:       opts.SweepID,
	}
	if scenario.WarmStart {
		cfg.Burnins = store
	}

	builder, err := sweep.NewBuilder(cfg)
	if err != nil {
		formatter.Error(ErrCodeBuild, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid build configuration", err)
	}

	slog.Info("building sweep", "scenario", scenario.ID, "sweep_id", builder.SweepID())
	points, pointErrs, err := builder.Build()
	if err != nil {
		// Fatal build errors name the offending (district, sample, run).
		formatter.Error(ErrCodeBuild, err.Error(), nil)
		return WrapExitError(ExitFailure, "sweep build failed", err)
	}
	for _, pe := range pointErrs {
		slog.Warn("point failed", "district", pe.District, "sample", pe.SampleID, "run", pe.Run, "error", pe.Err)
	}
	slog.Info("sweep built", "points", len(points), "point_errors", len(pointErrs))

	if len(points) == 0 {
		err := errors.New("no points survived the build")
		formatter.Error(ErrCodeBuild, err.Error(), nil)
		return WrapExitError(ExitFailure, "sweep build failed", err)
	}

	if err := store.WriteSweep(cmd.Context(), builder.SweepID(), scenario.ID, scenario.SeedPeriod, points); err != nil {
		formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to persist sweep", err)
	}

	summary := BuildSummary{
		SweepID:  builder.SweepID(),
		Scenario: scenario.ID,
		Points:   len(points),
	}
	for _, pe := range pointErrs {
		summary.PointErrors = append(summary.PointErrors, pe.Error())
	}

	return formatter.Success(summary)
}
