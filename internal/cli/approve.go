package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jumpwire-ai/jwctl/internal/approval/app"
	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

var approveCmd = &cobra.Command{
	Use:   "approve <token>",
	Short: "Approve a pending database connection",
	Long: `Resolve the pending database connection identified by <token>, choose the
upstream database it should be routed to, and commit the choice.

The command exits 0 only when the gateway applied the decision.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApproval(cmd, domain.Token(args[0]), domain.KindDatabaseConnection)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Confirm a pending SSO login",
	Long: `Resolve the pending SSO login identified by <token>, open the identity
provider in a browser and confirm the login.

The command exits 0 only when the gateway applied the decision.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApproval(cmd, domain.Token(args[0]), domain.KindSSOLogin)
	},
}

// OutcomeError reports an approval that ended without committing.
// Its message has already been printed.
type OutcomeError struct {
	Result domain.Result
}

func (e *OutcomeError) Error() string {
	return e.Result.Message()
}

func runApproval(cmd *cobra.Command, token domain.Token, kind domain.RequestKind) error {
	gw, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	opts := app.DefaultOptions()
	opts.Timeout = cfg.Approval.Timeout
	opts.Policy = cfg.Retry.Policy()
	opts.ExpectKind = kind
	opts.Logger = logger

	result := app.NewWorkflow(gw, newSelector(cmd), opts).Run(cmd.Context(), token)
	if result.Err != nil {
		logger.Debug("approval aborted", "reason", result.Reason, "error", rperrors.RedactError(result.Err))
	}

	if err := printResult(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Succeeded() {
		return &OutcomeError{Result: result}
	}
	return nil
}

type resultJSON struct {
	State     domain.TerminalState `json:"state"`
	Reason    domain.Reason        `json:"reason,omitempty"`
	Message   string               `json:"message"`
	Candidate string               `json:"candidate,omitempty"`
	Attempts  int                  `json:"commit_attempts"`
	Refreshed bool                 `json:"refreshed,omitempty"`
}

func printResult(w io.Writer, result domain.Result) error {
	if isJSON() {
		out := resultJSON{
			State:     result.State,
			Reason:    result.Reason,
			Message:   result.Message(),
			Attempts:  result.CommitAttempts,
			Refreshed: result.Refreshed,
		}
		if result.Candidate != nil {
			out.Candidate = string(result.Candidate.ID)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return nil
	}

	newPrinter(w).Outcome(result.Message(), result.Succeeded())
	return nil
}
