package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anophel-labs/sweepmill/internal/manifest"
	"github.com/anophel-labs/sweepmill/internal/pipeline"
	"github.com/anophel-labs/sweepmill/internal/sweep"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Database  string
	SweepID   string
	Bundles   string
	Name      string
	Channels  []string
	TagKeys   []string
	StartYear int
	OutDir    string
	Workers   int
	Partial   bool
	Cutoff    time.Duration
}

// AnalyzeSummary is the analyze command's success payload.
type AnalyzeSummary struct {
	*pipeline.Report
	SweepID string `json:"sweep_id"`
}

func (s AnalyzeSummary) String() string {
	out := fmt.Sprintf("analysis %s: sweep=%s included=%d excluded=%d rows=%d",
		s.Analysis, s.SweepID, s.Included, s.Excluded, s.Rows)
	if s.Path != "" {
		out += " -> " + s.Path
	}
	return out
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Consolidate run output bundles into one dataset",
		Long: `Run the filter/map/reduce pipeline over a sweep's output bundles.

Bundles are located under the bundle directory as <sample_id>_<run>.json,
keyed by the identity tags recorded in the manifest. Bundles whose artifact
is missing or unparseable are excluded and counted; with --partial, map
failures and bundles missed before --cutoff are excluded too instead of
failing the batch.

Example:
  sweepmill analyze --db ./sweeps.db --bundles ./runs --name prevalence \
    --channels "True Prevalence" --start-year 2010 --partial --cutoff 30m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the manifest database (required)")
	cmd.Flags().StringVar(&opts.SweepID, "sweep", "", "sweep to analyze (default: latest)")
	cmd.Flags().StringVar(&opts.Bundles, "bundles", "", "directory of per-run output bundles (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "analysis name; names the output artifact (required)")
	cmd.Flags().StringSliceVar(&opts.Channels, "channels", nil, "channels to extract (required)")
	cmd.Flags().StringSliceVar(&opts.TagKeys, "tags", []string{sweep.KeySampleID, sweep.KeyRunNumber, sweep.KeyDistrict, sweep.KeyArchetype}, "tag columns carried into the dataset")
	cmd.Flags().IntVar(&opts.StartYear, "start-year", 2000, "calendar year of timestep zero")
	cmd.Flags().StringVar(&opts.OutDir, "out", "output", "output directory for the analysis")
	cmd.Flags().IntVar(&opts.Workers, "workers", pipeline.DefaultWorkers, "map-stage worker count")
	cmd.Flags().BoolVar(&opts.Partial, "partial", false, "proceed with whatever subset of bundles is available")
	cmd.Flags().DurationVar(&opts.Cutoff, "cutoff", 0, "straggler cutoff before proceeding (0 = wait for all)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("bundles")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("channels")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
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

	ctx := cmd.Context()

	sweepRow, err := resolveSweep(ctx, store, opts.SweepID)
	if err != nil {
		formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to resolve sweep", err)
	}

	points, err := store.ReadPoints(ctx, sweepRow.ID)
	if err != nil {
		formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read sweep points", err)
	}

	bundles := make([]pipeline.Bundle, len(points))
	for i, p := range points {
		bundles[i] = pipeline.Bundle{
			Path: filepath.Join(opts.Bundles, fmt.Sprintf("%s_%d.json", p.SampleID, p.RunNumber)),
			Tags: p.Tags,
		}
	}

	pipe, err := pipeline.New(pipeline.Config{
		Name:      opts.Name,
		TagKeys:   opts.TagKeys,
		Channels:  opts.Channels,
		StartYear: opts.StartYear,
		OutDir:    opts.OutDir,
		Workers:   opts.Workers,
		Partial:   opts.Partial,
	})
	if err != nil {
		formatter.Error(ErrCodePipeline, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid pipeline configuration", err)
	}

	if opts.Cutoff > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Cutoff)
		defer cancel()
	}

	slog.Info("running analysis",
		"name", opts.Name, "sweep", sweepRow.ID,
		"bundles", len(bundles), "workers", opts.Workers, "partial", opts.Partial)

	report, err := pipe.Run(ctx, bundles)
	if errors.Is(err, pipeline.ErrEmptyResult) {
		// Warning, not failure: no artifact exists, and the caller is told so
		// explicitly rather than finding an empty file.
		slog.Warn("no bundles survived filtering", "analysis", opts.Name, "excluded", report.Excluded)
		return formatter.Warn(err.Error(), AnalyzeSummary{Report: report, SweepID: sweepRow.ID})
	}
	if err != nil {
		formatter.Error(ErrCodePipeline, err.Error(), nil)
		return WrapExitError(ExitFailure, "analysis pipeline failed", err)
	}

	for _, excl := range report.Exclusions {
		slog.Debug("bundle excluded",
			"sample", excl.SampleID, "run", excl.RunNumber, "reason", excl.Reason)
	}
	slog.Info("analysis complete",
		"included", report.Included, "excluded", report.Excluded,
		"rows", report.Rows, "path", report.Path)

	return formatter.Success(AnalyzeSummary{Report: report, SweepID: sweepRow.ID})
}

// resolveSweep picks the requested sweep, or the most recent one.
func resolveSweep(ctx context.Context, store *manifest.Store, id string) (manifest.SweepRow, error) {
	if strings.TrimSpace(id) != "" {
		return store.ReadSweep(ctx, id)
	}
	return store.LatestSweep(ctx)
}
