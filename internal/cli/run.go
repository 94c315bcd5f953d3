package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clsnc/TritiumDB/internal/harness"
)

// NewRunCommand creates the `tritium run` command: execute scenario files
// against a fresh reactor and print their traces.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCENARIO...",
		Short: "Execute scenario files and print their traces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := harness.NewRunner(harness.Default())
			for _, path := range args {
				scenario, err := harness.LoadScenario(path)
				if err != nil {
					return err
				}
				snapshot, err := run.Execute(scenario)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := printTrace(cmd, opts, snapshot); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printTrace(cmd *cobra.Command, opts *RootOptions, snapshot *harness.TraceSnapshot) error {
	if opts.Format == "json" {
		data, err := harness.MarshalTrace(snapshot)
		if err != nil {
			return err
		}
		cmd.Print(string(data))
		return nil
	}

	cmd.Printf("scenario %s\n", snapshot.ScenarioName)
	for _, ev := range snapshot.Trace {
		switch {
		case ev.Error != "":
			cmd.Printf("  %-10s %s !%s\n", ev.Op, ev.Expr, ev.Error)
		case ev.Sub != "":
			cmd.Printf("  %-10s %s %s=%d\n", ev.Op, ev.Expr, ev.Sub, ev.Count)
		case ev.Expr != "":
			cmd.Printf("  %-10s %s = %v\n", ev.Op, ev.Expr, ev.Value)
		default:
			cmd.Printf("  %-10s\n", ev.Op)
		}
	}
	return nil
}
