package cli

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
	"github.com/jumpwire-ai/jwctl/internal/config"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/gateway"
	"github.com/jumpwire-ai/jwctl/internal/ui"
)

// gatewayAPI is everything the commands need from the gateway.
type gatewayAPI interface {
	ports.Gateway
	Status(ctx context.Context) (json.RawMessage, error)
	Whoami(ctx context.Context) (json.RawMessage, error)
	GenerateToken(ctx context.Context, permissions []string) (json.RawMessage, error)
	Ping(ctx context.Context) (string, error)
	Manifests(ctx context.Context) (json.RawMessage, error)
	Manifest(ctx context.Context, id string) (json.RawMessage, error)
	DeleteManifest(ctx context.Context, id string) (json.RawMessage, error)
}

var newGateway = func(c *config.Config, logger *log.Logger) (gatewayAPI, error) {
	if c.URL == "" {
		return nil, rperrors.Config("cli.newGateway", "gateway URL not configured: set url in the config file, JW_URL or --url")
	}
	client, err := gateway.New(gateway.Config{
		BaseURL:        c.URL,
		Token:          c.Token,
		RequestTimeout: c.Approval.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

var newSelector = func(cmd *cobra.Command) ports.Selector {
	return ui.NewTerminalSelector(ui.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()))
}
