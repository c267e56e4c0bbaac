package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/statemachine"
)

// simulateOptions holds options for the simulate command.
type simulateOptions struct {
	configPath string
	role       string
	userID     string
	jsonOutput bool
}

// newSimulateCmd creates the simulate command.
func (a *App) newSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate [action[:reason]...]",
		Short: "Run a sequence of actions against a fresh policy",
		Long: `Create an in-memory policy in DRAFT and apply the given actions in
order, printing each step and the final audit trail. Nothing is
persisted.

Actions that require a reason take it after a colon.

Examples:
  # Walk a policy to ACTIVE and suspend it
  lifecycle simulate --role admin SUBMIT_FOR_APPROVAL APPROVE "SUSPEND:payment missed"

  # Use a custom table and JSON output
  lifecycle simulate -c transitions.yaml --role admin --json SUBMIT_FOR_APPROVAL APPROVE`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.simulate(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to transition table file (defaults to built-in table)")
	cmd.Flags().StringVar(&opts.role, "role", "admin", "Role performing the actions")
	cmd.Flags().StringVar(&opts.userID, "user", "simulator", "User ID recorded in the trail")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

// simulationStep is one applied action in the report.
type simulationStep struct {
	Action string `json:"action"`
	From   string `json:"from"`
	To     string `json:"to,omitempty"`
	Error  string `json:"error,omitempty"`
}

// simulationReport is the JSON output shape.
type simulationReport struct {
	PolicyID    string           `json:"policy_id"`
	FinalStatus string           `json:"final_status"`
	Steps       []simulationStep `json:"steps"`
}

// simulate compiles the table into a statechart and walks a fresh policy
// through the action sequence with the machine interpreter.
func (a *App) simulate(cmd *cobra.Command, opts *simulateOptions, args []string) error {
	table, _, err := a.loadTable(opts.configPath, false)
	if err != nil {
		return err
	}

	machine, err := statemachine.NewLifecycleMachine(table)
	if err != nil {
		return err
	}

	now := time.Now()
	id := uuid.New().String()
	p := policy.New(
		id,
		"POL-SIM-"+strings.ToUpper(id[:8]),
		"simulated-customer",
		"simulation",
		now,
		now.AddDate(1, 0, 0),
		0,
		opts.userID,
	)

	mctx := statemachine.NewContext(p, table)
	interp := statemachine.NewInterpreter(machine, mctx)
	interp.Start()
	defer interp.Stop()

	report := simulationReport{PolicyID: p.ID}
	failed := false

	for _, arg := range args {
		action, reason, _ := strings.Cut(arg, ":")
		step := simulationStep{
			Action: action,
			From:   string(interp.Status()),
		}

		if err := interp.Trigger(policy.Action(action), opts.userID, opts.role, reason); err != nil {
			step.Error = err.Error()
			report.Steps = append(report.Steps, step)
			failed = true
			break
		}

		step.To = string(interp.Status())
		report.Steps = append(report.Steps, step)
	}

	report.FinalStatus = string(interp.Status())

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		a.printSimulation(report, mctx.Trail.Entries())
	}

	if failed {
		return fmt.Errorf("simulation stopped at step %d", len(report.Steps))
	}

	return nil
}

// printSimulation writes the human-readable report.
func (a *App) printSimulation(report simulationReport, trail []policy.AuditEntry) {
	fmt.Fprintf(a.stdout, "Policy %s\n", report.PolicyID)

	for i, step := range report.Steps {
		if step.Error != "" {
			fmt.Fprintf(a.stdout, "  %d. %s: %s ✗ %s\n", i+1, step.From, step.Action, step.Error)
			continue
		}
		fmt.Fprintf(a.stdout, "  %d. %s --%s--> %s\n", i+1, step.From, step.Action, step.To)
	}

	fmt.Fprintf(a.stdout, "Final status: %s\n", report.FinalStatus)

	fmt.Fprintf(a.stdout, "Audit trail (%d entries):\n", len(trail))
	for _, e := range trail {
		line := fmt.Sprintf("  %s -> %s by %s", e.FromStatus, e.ToStatus, e.TransitionedBy)
		if e.Reason != "" {
			line += fmt.Sprintf(" (%s)", e.Reason)
		}
		fmt.Fprintln(a.stdout, line)
	}
}
