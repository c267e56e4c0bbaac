package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/config"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/statemachine"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a transition table file",
		Long: `Validate a transition table file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Status and action names against the known sets
  - Duplicate (from, action) pairs
  - Environment variable references (in strict mode)
  - Reachability of every status from DRAFT

Examples:
  # Validate a transition table
  lifecycle validate -c transitions.yaml

  # Strict validation (fail on missing env vars)
  lifecycle validate -c transitions.yaml --strict

  # Validate the built-in default table
  lifecycle validate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateTable(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to transition table file (defaults to built-in table)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// validateTable validates the transition table file.
func (a *App) validateTable(opts *validateOptions) error {
	table, source, err := a.loadTable(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	engine := statemachine.NewEngine(table)

	fmt.Fprintf(a.stdout, "✓ Transition table is valid\n")
	fmt.Fprintf(a.stdout, "  Source: %s\n", source)
	fmt.Fprintf(a.stdout, "  Transitions: %d\n", table.Len())

	// Report statuses unreachable from the initial status.
	var unreachable []string
	for _, status := range policy.AllStatuses() {
		if status == policy.StatusDraft {
			continue
		}
		if !engine.CanReachStatus(policy.StatusDraft, status) {
			unreachable = append(unreachable, status.String())
		}
	}

	if len(unreachable) > 0 {
		fmt.Fprintf(a.stdout, "  Warning: unreachable from %s: %s\n",
			policy.StatusDraft, strings.Join(unreachable, ", "))
	}

	return nil
}

// loadTable loads a transition table from a file, falling back to the
// built-in default when path is empty. Returns the table and a label
// describing where it came from.
func (a *App) loadTable(path string, strict bool) (*transition.Table, string, error) {
	if path == "" {
		return transition.DefaultTable(), "built-in default", nil
	}

	loader := config.NewLoaderWithOptions(config.WithStrictEnv(strict))
	table, err := loader.LoadFile(path)
	if err != nil {
		return nil, "", err
	}

	return table, path, nil
}
