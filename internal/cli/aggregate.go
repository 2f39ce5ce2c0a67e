package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/anophel-labs/sweepmill/internal/aggregate"
	"github.com/anophel-labs/sweepmill/internal/dataset"
	"github.com/anophel-labs/sweepmill/internal/sweep"
)

// AggregateOptions holds flags for the aggregate command.
type AggregateOptions struct {
	*RootOptions
	Input    string
	Output   string
	GroupBy  []string
	Channels []string
}

// AggregateSummary is the aggregate command's success payload.
type AggregateSummary struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Groups int    `json:"groups"`
}

func (s AggregateSummary) String() string {
	return fmt.Sprintf("aggregated %s -> %s (%d groups)", s.Input, s.Output, s.Groups)
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AggregateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Group a consolidated dataset and compute summary statistics",
		Long: `Group a consolidated dataset by tag columns and the derived calendar
date, and compute per-group mean and standard deviation for each channel.

Alignment is on the calendar date rather than the raw time index, so runs
started from different base years line up correctly.

Example:
  sweepmill aggregate --in output/prevalence.csv --out output/prevalence_by_district.csv \
    --group-by district --channels "True Prevalence"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "in", "", "consolidated dataset to aggregate (required)")
	cmd.Flags().StringVar(&opts.Output, "out", "", "path for the grouped output (required)")
	cmd.Flags().StringSliceVar(&opts.GroupBy, "group-by", []string{sweep.KeyDistrict}, "tag columns to group by")
	cmd.Flags().StringSliceVar(&opts.Channels, "channels", nil, "channel columns to summarize (required)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("channels")

	return cmd
}

func runAggregate(opts *AggregateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	table, err := dataset.LoadCSV(opts.Input)
	if err != nil {
		formatter.Error(ErrCodePipeline, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load dataset", err)
	}
	slog.Debug("dataset loaded", "path", opts.Input, "rows", table.Len())

	grouped, err := aggregate.Summarize(table, opts.GroupBy, opts.Channels)
	if err != nil {
		formatter.Error(ErrCodePipeline, err.Error(), nil)
		return WrapExitError(ExitFailure, "aggregation failed", err)
	}

	if err := grouped.SaveCSV(opts.Output); err != nil {
		formatter.Error(ErrCodePipeline, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to write grouped output", err)
	}
	slog.Info("aggregation complete", "groups", grouped.Len(), "path", opts.Output)

	return formatter.Success(AggregateSummary{
		Input:  opts.Input,
		Output: opts.Output,
		Groups: grouped.Len(),
	})
}
