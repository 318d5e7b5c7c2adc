package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the gateway status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		doc, err := gw.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the gateway is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		body, err := gw.Ping(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), body)
		return nil
	},
}

// printJSON pretty-prints a raw JSON document.
func printJSON(w io.Writer, doc json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
