// Package gateway provides the HTTP client for the gateway's approval API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/version"
)

// API paths.
const (
	approvalsPath = "/api/v1/approvals/"
	tokenPath     = "/api/v1/token"
	whoamiPath    = "/api/v1/token/whoami"
	manifestsPath = "/api/v1/manifests"
	statusPath    = "/_jumpwire/status"
	pingPath      = "/_jumpwire/ping"
)

const (
	// DefaultRequestTimeout bounds a single HTTP call.
	DefaultRequestTimeout = 10 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 1 << 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is the gateway URL. A missing scheme defaults to https.
	BaseURL string
	// Token is the operator bearer token. Requests are unauthenticated when empty.
	Token string
	// RequestTimeout bounds each call. Zero uses DefaultRequestTimeout.
	RequestTimeout time.Duration
	// HTTPClient overrides the underlying client. Its Jar is kept if set.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to the gateway. It implements ports.Gateway.
type Client struct {
	baseURL *url.URL
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *log.Logger
}

var _ ports.Gateway = (*Client)(nil)

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	const op = "gateway.New"

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, rperrors.Config(op, "gateway url is not set (use --url or JW_URL)")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Host == "" {
		return nil, rperrors.Config(op, fmt.Sprintf("invalid gateway url %q", rperrors.RedactSensitive(cfg.BaseURL)))
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, rperrors.InternalWrap(err, op, "failed to create cookie jar")
		}
		client.Jar = jar
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}, nil
}

// BaseURL returns the normalised gateway URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchPending implements ports.Gateway.
func (c *Client) FetchPending(ctx context.Context, token domain.Token) (*domain.PendingRequest, error) {
	const op = "gateway.FetchPending"

	resp, err := c.do(ctx, http.MethodGet, approvalsPath+url.PathEscape(token.String()), nil)
	if err != nil {
		return nil, transportError(op, err, false)
	}

	switch {
	case resp.status >= 200 && resp.status < 300:
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return nil, rperrors.NotAuthenticated(op, resp.describe())
	case resp.status == http.StatusNotFound:
		return nil, rperrors.NotFound(op, resp.describe())
	case resp.status == http.StatusConflict || resp.status == http.StatusGone:
		return nil, rperrors.Expired(op, resp.describe())
	case isTransientStatus(resp.status):
		return nil, rperrors.Network(op, resp.describe())
	default:
		return nil, rperrors.Rejected(op, resp.describe())
	}

	var req domain.PendingRequest
	if err := json.Unmarshal(resp.body, &req); err != nil {
		return nil, rperrors.RejectedWrap(err, op, "malformed response body")
	}
	if !req.Kind.IsValid() {
		return nil, rperrors.Rejected(op, fmt.Sprintf("unknown request kind %q", req.Kind))
	}
	if req.Token == "" {
		req.Token = token
	}
	return &req, nil
}

type commitBody struct {
	Action      domain.Action      `json:"action"`
	CandidateID domain.CandidateID `json:"candidate_id,omitempty"`
}

type commitResponse struct {
	Outcome string `json:"outcome"`
}

// Commit implements ports.Gateway.
func (c *Client) Commit(ctx context.Context, token domain.Token, decision domain.Decision) (domain.CommitOutcome, error) {
	const op = "gateway.Commit"

	if decision.IsCancel() {
		return domain.OutcomeFailed, rperrors.InternalWrap(domain.ErrCancelNotCommittable, op, "refusing to send")
	}

	body := commitBody{Action: decision.Action, CandidateID: decision.CandidateID}
	resp, err := c.do(ctx, http.MethodPost, approvalsPath+url.PathEscape(token.String()), body)
	if err != nil {
		return domain.OutcomeFailed, transportError(op, err, true)
	}

	switch {
	case resp.status >= 200 && resp.status < 300:
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return domain.OutcomeFailed, rperrors.NotAuthenticated(op, resp.describe())
	case resp.status == http.StatusConflict || resp.status == http.StatusGone:
		return domain.OutcomeConflict, nil
	case isTransientStatus(resp.status):
		return domain.OutcomeFailed, rperrors.Network(op, resp.describe())
	default:
		return domain.OutcomeFailed, rperrors.Rejected(op, resp.describe())
	}

	if len(bytes.TrimSpace(resp.body)) == 0 {
		return domain.OutcomeCommitted, nil
	}
	var cr commitResponse
	if err := json.Unmarshal(resp.body, &cr); err != nil {
		return domain.OutcomeFailed, rperrors.RejectedWrap(err, op, "malformed response body")
	}
	switch cr.Outcome {
	case "", "committed":
		return domain.OutcomeCommitted, nil
	case "conflict":
		return domain.OutcomeConflict, nil
	default:
		return domain.OutcomeFailed, rperrors.Rejected(op, fmt.Sprintf("unexpected outcome %q", cr.Outcome))
	}
}

// Status returns the gateway status document.
func (c *Client) Status(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "gateway.Status", statusPath)
}

// Whoami returns the permissions of the configured token.
func (c *Client) Whoami(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "gateway.Whoami", whoamiPath)
}

// GenerateToken asks the gateway for a new token limited to permissions,
// each written as method:action (e.g. get:status).
func (c *Client) GenerateToken(ctx context.Context, permissions []string) (json.RawMessage, error) {
	const op = "gateway.GenerateToken"

	if len(permissions) == 0 {
		return nil, rperrors.Validation(op, "at least one permission is required")
	}
	for _, p := range permissions {
		method, action, ok := strings.Cut(p, ":")
		if !ok || method == "" || action == "" {
			return nil, rperrors.Validation(op, fmt.Sprintf("invalid permission %q: want method:action", p))
		}
	}

	body := struct {
		Permissions []string `json:"permissions"`
	}{Permissions: permissions}

	resp, err := c.do(ctx, http.MethodPost, tokenPath, body)
	if err != nil {
		return nil, transportError(op, err, true)
	}
	if err := simpleStatusError(op, resp); err != nil {
		return nil, err
	}
	if !json.Valid(resp.body) {
		return nil, rperrors.Rejected(op, "malformed response body")
	}
	return json.RawMessage(resp.body), nil
}

// Manifests lists the manifests the gateway holds.
func (c *Client) Manifests(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "gateway.Manifests", manifestsPath)
}

// Manifest returns one manifest by ID.
func (c *Client) Manifest(ctx context.Context, id string) (json.RawMessage, error) {
	const op = "gateway.Manifest"
	if strings.TrimSpace(id) == "" {
		return nil, rperrors.Validation(op, "manifest ID is required")
	}
	return c.getJSON(ctx, op, manifestsPath+"/"+url.PathEscape(id))
}

// DeleteManifest deletes one manifest by ID and returns the gateway's reply,
// or nil when the reply has no body.
func (c *Client) DeleteManifest(ctx context.Context, id string) (json.RawMessage, error) {
	const op = "gateway.DeleteManifest"
	if strings.TrimSpace(id) == "" {
		return nil, rperrors.Validation(op, "manifest ID is required")
	}

	resp, err := c.do(ctx, http.MethodDelete, manifestsPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, transportError(op, err, true)
	}
	if err := simpleStatusError(op, resp); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil, nil
	}
	if !json.Valid(resp.body) {
		return nil, rperrors.Rejected(op, "malformed response body")
	}
	return json.RawMessage(resp.body), nil
}

// Ping returns the gateway's ping body.
func (c *Client) Ping(ctx context.Context) (string, error) {
	const op = "gateway.Ping"

	resp, err := c.do(ctx, http.MethodGet, pingPath, nil)
	if err != nil {
		return "", transportError(op, err, false)
	}
	if err := simpleStatusError(op, resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp.body)), nil
}

func (c *Client) getJSON(ctx context.Context, op, path string) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, transportError(op, err, false)
	}
	if err := simpleStatusError(op, resp); err != nil {
		return nil, err
	}
	if !json.Valid(resp.body) {
		return nil, rperrors.Rejected(op, "malformed response body")
	}
	return json.RawMessage(resp.body), nil
}

func simpleStatusError(op string, resp *response) error {
	switch {
	case resp.status >= 200 && resp.status < 300:
		return nil
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return rperrors.NotAuthenticated(op, resp.describe())
	case resp.status == http.StatusNotFound:
		return rperrors.NotFound(op, resp.describe())
	case resp.status == http.StatusConflict:
		return rperrors.Conflict(op, resp.describe())
	case isTransientStatus(resp.status):
		return rperrors.Network(op, resp.describe())
	default:
		return rperrors.Rejected(op, resp.describe())
	}
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

// describe formats the status and any error message from the body.
func (r *response) describe() string {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := fmt.Sprintf("gateway returned %d", r.status)
	if err := json.Unmarshal(r.body, &errResp); err == nil {
		detail := errResp.Message
		if detail == "" {
			detail = errResp.Error
		}
		if detail != "" {
			msg += ": " + rperrors.RedactSensitive(detail)
		}
	}
	return msg
}

// do sends one request bounded by the per-call timeout and reads the body.
func (c *Client) do(ctx context.Context, method, path string, body any) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("gateway call",
		"method", method,
		"path", rperrors.RedactSensitive(path),
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"duration", time.Since(start))

	return &response{status: resp.StatusCode, body: data}, nil
}

// addHeaders adds authentication and common headers.
func (c *Client) addHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", uuid.NewString())
}

func isTransientStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

// transportError wraps a failure to get a response as a transient error.
// For writes, anything past the dial may have reached the gateway.
func transportError(op string, err error, write bool) error {
	e := rperrors.NetworkWrap(rperrors.RedactError(err), op, "request failed")
	if write && !dialFailed(err) {
		e.WithDetail(ports.MaybeAppliedDetail, true)
	}
	return e
}

// dialFailed reports whether the connection was never established.
func dialFailed(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
