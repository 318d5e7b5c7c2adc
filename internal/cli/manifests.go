package cli

import (
	"github.com/spf13/cobra"
)

var manifestsCmd = &cobra.Command{
	Use:     "manifests",
	Aliases: []string{"manifest"},
	Short:   "Inspect and remove gateway manifests",
	Long: `Inspect and remove the manifests that describe the databases and APIs
the gateway fronts.

Manifests are created from the JumpWire web console.`,
}

var manifestsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"all"},
	Short:   "List all manifests",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		doc, err := gw.Manifests(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

var manifestsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		doc, err := gw.Manifest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

var manifestsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		doc, err := gw.DeleteManifest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		logger.Debug("manifest deleted", "id", args[0])
		if len(doc) > 0 {
			return printJSON(cmd.OutOrStdout(), doc)
		}
		newPrinter(cmd.OutOrStdout()).Success("Deleted manifest " + args[0])
		return nil
	},
}

func init() {
	manifestsCmd.AddCommand(manifestsListCmd)
	manifestsCmd.AddCommand(manifestsGetCmd)
	manifestsCmd.AddCommand(manifestsDeleteCmd)
}
