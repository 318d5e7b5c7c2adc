package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
	"github.com/jumpwire-ai/jwctl/internal/config"
	"github.com/jumpwire-ai/jwctl/internal/credentials"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

type stubSelector struct {
	decision domain.Decision
	calls    *int32
}

func (s stubSelector) Select(ctx context.Context, req *domain.PendingRequest, deadline time.Time) (domain.Decision, error) {
	atomic.AddInt32(s.calls, 1)
	return s.decision, nil
}

type harness struct {
	t         *testing.T
	store     *credentials.Store
	selects   int32
	decision  domain.Decision
	stdin     string
	configDir string
}

// newHarness isolates the command tree from the user's config, token and terminal.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, configDir: t.TempDir()}
	h.store = credentials.NewStore(filepath.Join(h.configDir, "jwctl", "token"))
	t.Setenv("XDG_CONFIG_HOME", h.configDir)

	origStore, origGateway, origSelector := newTokenStore, newGateway, newSelector
	t.Cleanup(func() {
		newTokenStore, newGateway, newSelector = origStore, origGateway, origSelector
		cfg = nil
		logger = log.New(io.Discard)
	})

	newTokenStore = func() (*credentials.Store, error) { return h.store, nil }
	newSelector = func(*cobra.Command) ports.Selector {
		return stubSelector{decision: h.decision, calls: &h.selects}
	}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(h.stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func newGatewayServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

func approvalHandler(t *testing.T, pending string, commits *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, pending)
		case http.MethodPost:
			atomic.AddInt32(commits, 1)
			_, _ = io.WriteString(w, `{"outcome":"committed"}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}
}

const pendingDatabase = `{"kind":"database_connection","status":"pending",
	"candidates":[{"id":"prod-pg","name":"prod-pg"},{"id":"staging-pg","name":"staging-pg"}]}`

func TestRootCommand_Silenced(t *testing.T) {
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)
	SetVersionInfo("v1.2.3", "abc123", "2026-01-01")

	out, err := h.run("version")
	require.NoError(t, err)
	assert.Equal(t, "jwctl v1.2.3\n", out)

	out, err = h.run("version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "commit: abc123")
}

func TestApprove_Committed(t *testing.T) {
	h := newHarness(t)
	h.decision = domain.Approve("staging-pg")
	var commits int32
	url := newGatewayServer(t, approvalHandler(t, pendingDatabase, &commits))

	out, err := h.run("approve", "tok-1", "--url", url, "--token", "operator")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed: staging-pg")
	assert.Equal(t, int32(1), atomic.LoadInt32(&commits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.selects))
}

func TestApprove_ExpiredSkipsSelector(t *testing.T) {
	h := newHarness(t)
	var commits int32
	url := newGatewayServer(t, approvalHandler(t, `{"kind":"database_connection","status":"expired"}`, &commits))

	out, err := h.run("approve", "tok-1", "--url", url)

	var outcome *OutcomeError
	require.ErrorAs(t, err, &outcome)
	assert.Equal(t, domain.ReasonExpired, outcome.Result.Reason)
	assert.Contains(t, out, "request expired")
	assert.Zero(t, atomic.LoadInt32(&h.selects))
	assert.Zero(t, atomic.LoadInt32(&commits))
}

func TestApprove_Conflict(t *testing.T) {
	h := newHarness(t)
	h.decision = domain.Approve("prod-pg")
	url := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_, _ = io.WriteString(w, pendingDatabase)
	})

	out, err := h.run("approve", "tok-1", "--url", url)
	var outcome *OutcomeError
	require.ErrorAs(t, err, &outcome)
	assert.Contains(t, out, "Conflict: already resolved")
}

func TestApprove_JSONOutput(t *testing.T) {
	h := newHarness(t)
	h.decision = domain.Approve("prod-pg")
	var commits int32
	url := newGatewayServer(t, approvalHandler(t, pendingDatabase, &commits))

	out, err := h.run("approve", "tok-1", "--url", url, "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "committed", got["state"])
	assert.Equal(t, "prod-pg", got["candidate"])
	assert.Equal(t, "Committed: prod-pg", got["message"])
	assert.EqualValues(t, 1, got["commit_attempts"])
}

func TestLogin_RejectsDatabaseToken(t *testing.T) {
	h := newHarness(t)
	var commits int32
	url := newGatewayServer(t, approvalHandler(t, pendingDatabase, &commits))

	_, err := h.run("login", "tok-1", "--url", url)
	var outcome *OutcomeError
	require.ErrorAs(t, err, &outcome)
	assert.Equal(t, domain.ReasonRejected, outcome.Result.Reason)
	assert.Zero(t, atomic.LoadInt32(&h.selects))
}

func TestApprove_RequiresURL(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("approve", "tok-1")
	assert.True(t, rperrors.IsKind(err, rperrors.KindConfig), "got %v", err)
}

func TestApprove_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("approve")
	assert.Error(t, err)
}

func TestInvalidConfigFlag(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("ping", "--log-level", "trace")
	assert.True(t, rperrors.IsKind(err, rperrors.KindValidation), "got %v", err)
}

func TestTokenSet_ThenConfigGet(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("token", "set", "stored-token-1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Token saved to "+h.store.Path())

	saved, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "stored-token-1234", saved)

	out, err = h.run("config", "get", "--url", "https://gw.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "url: https://gw.example.com")
	assert.Contains(t, out, "****1234")
	assert.NotContains(t, out, "stored-token")

	out, err = h.run("config", "get", "--token", "flag-token-9999")
	require.NoError(t, err)
	assert.Contains(t, out, "****9999", "flag beats stored token")
}

func TestTokenSet_FromStdin(t *testing.T) {
	h := newHarness(t)
	h.stdin = "piped-token\n"

	_, err := h.run("token", "set")
	require.NoError(t, err)

	saved, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "piped-token", saved)

	h.stdin = ""
	_, err = h.run("token", "set")
	assert.True(t, rperrors.IsKind(err, rperrors.KindValidation))
}

func TestStatusPingWhoamiGenerate(t *testing.T) {
	h := newHarness(t)
	var gotAuth string
	url := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/_jumpwire/status":
			_, _ = io.WriteString(w, `{"databases":{"prod":"online"}}`)
		case "/_jumpwire/ping":
			_, _ = io.WriteString(w, "pong")
		case "/api/v1/token/whoami":
			_, _ = io.WriteString(w, `{"permissions":["get:status"]}`)
		case "/api/v1/token":
			_, _ = io.WriteString(w, `{"token":"generated"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	require.NoError(t, h.store.Save("stored-token"))

	out, err := h.run("status", "--url", url)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"databases\": {\n    \"prod\": \"online\"\n  }\n}\n", out)
	assert.Equal(t, "Bearer stored-token", gotAuth)

	out, err = h.run("ping", "--url", url)
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)

	out, err = h.run("token", "whoami", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, `"get:status"`)

	out, err = h.run("token", "generate", "get:status", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, `"token": "generated"`)
}

func TestFlagOverrides(t *testing.T) {
	newHarness(t)
	resetFlags(rootCmd)
	require.NoError(t, rootCmd.ParseFlags([]string{"--json", "--timeout", "5s", "--no-color"}))

	values := flagOverrides(rootCmd)
	assert.Equal(t, map[string]any{
		"output.format":    "json",
		"approval.timeout": 5 * time.Second,
		"output.color":     false,
	}, values)
	resetFlags(rootCmd)
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer

	ReportError(&buf, &OutcomeError{Result: domain.Result{State: domain.TerminalAborted, Reason: domain.ReasonExpired}})
	assert.Empty(t, buf.String())

	ReportError(&buf, rperrors.Network("gateway.Ping", "dial failed: Bearer abcdefghijklmnop"))
	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.NotContains(t, buf.String(), "abcdefghijklmnop")
}

func TestConfigGet_DefaultsWithoutFile(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("config", "get")
	require.NoError(t, err)

	defaults := config.DefaultConfig()
	assert.Contains(t, out, "timeout: "+defaults.Approval.Timeout.String())
}

func TestApprove_OutcomeLineIsBare(t *testing.T) {
	h := newHarness(t)
	h.decision = domain.Approve("staging-pg")
	var commits int32
	url := newGatewayServer(t, approvalHandler(t, pendingDatabase, &commits))

	out, err := h.run("approve", "tok-1", "--url", url, "--no-color")
	require.NoError(t, err)
	assert.Equal(t, "Committed: staging-pg\n", out)

	conflictURL := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_, _ = io.WriteString(w, pendingDatabase)
	})
	out, err = h.run("approve", "tok-1", "--url", conflictURL, "--no-color")
	require.Error(t, err)
	assert.Equal(t, "Conflict: already resolved\n", out)
}

func TestManifests(t *testing.T) {
	h := newHarness(t)
	var deleted []string
	url := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/manifests":
			_, _ = io.WriteString(w, `[{"id":"m-1","name":"prod-pg"}]`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/manifests/m-1":
			_, _ = io.WriteString(w, `{"id":"m-1","name":"prod-pg"}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/manifests/m-1":
			deleted = append(deleted, "m-1")
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/manifests/m-2":
			deleted = append(deleted, "m-2")
			_, _ = io.WriteString(w, `{"deleted":"m-2"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	out, err := h.run("manifests", "list", "--url", url)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"id\": \"m-1\",\n    \"name\": \"prod-pg\"\n  }\n]\n", out)

	out, err = h.run("manifests", "all", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "prod-pg"`)

	out, err = h.run("manifests", "get", "m-1", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "m-1"`)

	_, err = h.run("manifests", "get", "missing", "--url", url)
	assert.True(t, rperrors.IsKind(err, rperrors.KindNotFound))

	out, err = h.run("manifests", "delete", "m-1", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted manifest m-1")

	out, err = h.run("manifests", "delete", "m-2", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, `"deleted": "m-2"`)
	assert.Equal(t, []string{"m-1", "m-2"}, deleted)
}
