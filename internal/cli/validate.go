package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anophel-labs/sweepmill/internal/catalog"
	"github.com/anophel-labs/sweepmill/internal/intervention"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Catalog string
}

// ValidateSummary is the validate command's success payload.
type ValidateSummary struct {
	Scenarios []string `json:"scenarios"`
	Districts int      `json:"districts"`
	Samples   int      `json:"samples"`
}

func (s ValidateSummary) String() string {
	return fmt.Sprintf("catalog ok: %d scenarios, %d districts, %d samples",
		len(s.Scenarios), s.Districts, s.Samples)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [scenario-id]",
		Short: "Check catalog tables and intervention files without building",
		Long: `Load the catalog, verify district cross-references, and compile
intervention files. With a scenario argument only that scenario's
intervention file is compiled; otherwise all of them are.

Example:
  sweepmill validate --catalog ./input
  sweepmill validate baseline-2025 --catalog ./input`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioID := ""
			if len(args) == 1 {
				scenarioID = args[0]
			}
			return runValidate(opts, scenarioID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "path to the input catalog directory (required)")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func runValidate(opts *ValidateOptions, scenarioID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cat, err := catalog.Load(opts.Catalog)
	if err != nil {
		formatter.Error(ErrCodeBadCatalog, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	// The same fail-fast cross-reference check the builder performs.
	if err := cat.CheckCrossRefs(); err != nil {
		formatter.Error(ErrCodeBadCatalog, err.Error(), nil)
		return WrapExitError(ExitFailure, "catalog cross-reference check failed", err)
	}

	scenarioIDs := cat.ScenarioIDs()
	if scenarioID != "" {
		if _, err := cat.Scenario(scenarioID); err != nil {
			formatter.Error(ErrCodeBadScenario, err.Error(), nil)
			return WrapExitError(ExitCommandError, "unknown scenario", err)
		}
		scenarioIDs = []string{scenarioID}
	}

	for _, id := range scenarioIDs {
		scenario, err := cat.Scenario(id)
		if err != nil {
			formatter.Error(ErrCodeBadScenario, err.Error(), nil)
			return WrapExitError(ExitFailure, "scenario lookup failed", err)
		}
		path := filepath.Join(cat.Dir, scenario.InterventionFile)
		if _, err := intervention.LoadSet(path); err != nil {
			formatter.Error(ErrCodeBadSpec, err.Error(), map[string]string{"scenario": id})
			return WrapExitError(ExitFailure, "intervention file failed to compile", err)
		}
		formatter.VerboseLog("scenario %s: intervention file ok", id)
	}

	return formatter.Success(ValidateSummary{
		Scenarios: scenarioIDs,
		Districts: len(cat.Districts()),
		Samples:   cat.SampleCount(),
	})
}
