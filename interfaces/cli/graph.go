package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
)

// graphOptions holds options for the graph command.
type graphOptions struct {
	configPath string
	format     string
}

// newGraphCmd creates the graph command.
func (a *App) newGraphCmd() *cobra.Command {
	opts := &graphOptions{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the transition table as a graph",
		Long: `Render the transition table as a state graph.

Examples:
  # Print the default table as Graphviz DOT
  lifecycle graph --format dot

  # Print a text adjacency listing for a custom table
  lifecycle graph -c transitions.yaml --format text`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.renderGraph(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to transition table file (defaults to built-in table)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or dot")

	return cmd
}

// renderGraph renders the transition table in the requested format.
func (a *App) renderGraph(opts *graphOptions) error {
	table, _, err := a.loadTable(opts.configPath, false)
	if err != nil {
		return err
	}

	switch opts.format {
	case "dot":
		a.renderDOT(table)
	case "text":
		a.renderText(table)
	default:
		return fmt.Errorf("unknown format %q (want text or dot)", opts.format)
	}

	return nil
}

// renderDOT emits a Graphviz digraph of the table.
func (a *App) renderDOT(table *transition.Table) {
	fmt.Fprintln(a.stdout, "digraph lifecycle {")
	fmt.Fprintln(a.stdout, "  rankdir=LR;")

	for _, status := range policy.AllStatuses() {
		shape := "ellipse"
		if len(table.TransitionsFrom(status)) == 0 {
			shape = "doublecircle"
		}
		fmt.Fprintf(a.stdout, "  %s [shape=%s];\n", status, shape)
	}

	for _, t := range table.All() {
		label := string(t.Action)
		if t.RequiresReason {
			label += "*"
		}
		fmt.Fprintf(a.stdout, "  %s -> %s [label=%q];\n", t.From, t.To, label)
	}

	fmt.Fprintln(a.stdout, "}")
}

// renderText emits an adjacency listing grouped by source status.
func (a *App) renderText(table *transition.Table) {
	for _, status := range policy.AllStatuses() {
		outgoing := table.TransitionsFrom(status)
		if len(outgoing) == 0 {
			fmt.Fprintf(a.stdout, "%s (terminal)\n", status)
			continue
		}

		fmt.Fprintf(a.stdout, "%s\n", status)
		for _, t := range outgoing {
			roles := "any role"
			if len(t.AllowedRoles) > 0 {
				roles = strings.Join(t.AllowedRoles, ", ")
			}

			suffix := ""
			if t.RequiresReason {
				suffix = ", reason required"
			}

			fmt.Fprintf(a.stdout, "  %-20s -> %-10s (%s%s)\n", t.Action, t.To, roles, suffix)
		}
	}
}
