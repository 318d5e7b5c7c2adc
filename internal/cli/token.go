package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the operator token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the operator token",
	Long: `Store the operator token in ~/.config/jwctl/token, readable only by you.

With no argument the token is read from the first line of standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenSet,
}

var tokenWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the permissions of the current token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		doc, err := gw.Whoami(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate <permission>...",
	Short: "Generate a new token",
	Long: `Ask the gateway for a new token limited to the given permissions.

Permissions are method:action pairs. Reading the gateway status, for
example, requires get:status.

Example: jwctl token generate get:token get:status`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		doc, err := gw.GenerateToken(cmd.Context(), args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenWhoamiCmd)
	tokenCmd.AddCommand(tokenGenerateCmd)
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	const op = "cli.tokenSet"

	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return rperrors.Validation(op, "no token given: pass it as an argument or on stdin")
		}
		token = strings.TrimSpace(line)
	}

	store, err := newTokenStore()
	if err != nil {
		return err
	}
	if err := store.Save(token); err != nil {
		return err
	}

	logger.Debug("token stored", "path", store.Path())
	newPrinter(cmd.OutOrStdout()).Success("Token saved to " + store.Path())
	return nil
}
