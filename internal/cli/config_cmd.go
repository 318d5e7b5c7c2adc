package cli

import (
	"github.com/spf13/cobra"

	"github.com/jumpwire-ai/jwctl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after merging every source. The token is masked.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.MarshalYAML(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
}
