package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// Version is the engine version, overridable at link time.
var Version = "0.1.0-dev"

// NewVersionCommand creates the `tritium version` command.
func NewVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format == "json" {
				data, err := json.Marshal(map[string]string{"version": Version})
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			cmd.Println(Version)
			return nil
		},
	}
}
