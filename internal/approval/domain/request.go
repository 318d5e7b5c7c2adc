// Package domain provides the core domain model for operator approvals.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Token is an opaque, gateway-issued approval token. It is passed back verbatim.
type Token string

// String returns the token value.
func (t Token) String() string {
	return string(t)
}

// Validate checks that the token can be sent as a single URL path segment.
func (t Token) Validate() error {
	s := string(t)
	if strings.TrimSpace(s) == "" {
		return ErrEmptyToken
	}
	if strings.ContainsAny(s, "/\\?# \t\r\n") {
		return fmt.Errorf("%w: contains reserved characters", ErrMalformedToken)
	}
	return nil
}

// RequestKind is the type of pending authorization.
type RequestKind string

const (
	// KindDatabaseConnection is a client connection waiting for an upstream database.
	KindDatabaseConnection RequestKind = "database_connection"
	// KindSSOLogin is a single-sign-on login waiting for confirmation.
	KindSSOLogin RequestKind = "sso_login"
)

// String returns the string representation of the kind.
func (k RequestKind) String() string {
	return string(k)
}

// IsValid returns true for known request kinds.
func (k RequestKind) IsValid() bool {
	return k == KindDatabaseConnection || k == KindSSOLogin
}

// RequestStatus is the gateway-side status of a pending request.
type RequestStatus string

const (
	// StatusPending means the request still awaits a decision.
	StatusPending RequestStatus = "pending"
	// StatusResolved means a decision has already been committed.
	StatusResolved RequestStatus = "resolved"
	// StatusExpired means the request timed out on the gateway.
	StatusExpired RequestStatus = "expired"
)

// String returns the string representation of the status.
func (s RequestStatus) String() string {
	return string(s)
}

// CandidateID identifies an upstream within one pending request.
// The gateway may encode it as a JSON number or string.
type CandidateID string

// UnmarshalJSON accepts both numeric and string ids.
func (id *CandidateID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CandidateID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("candidate id must be a string or number: %w", err)
	}
	*id = CandidateID(n.String())
	return nil
}

// Candidate is one selectable upstream database.
type Candidate struct {
	ID           CandidateID `json:"id"`
	DisplayName  string      `json:"name"`
	DatabaseType string      `json:"database_type,omitempty"`
}

// Label returns the display name, falling back to the id.
func (c Candidate) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return string(c.ID)
}

// SSOLogin describes a pending single-sign-on login.
type SSOLogin struct {
	ProviderName     string `json:"provider_name"`
	AuthorizationURL string `json:"authorization_url"`
}

// PendingRequest is the resolved state of a token at one point in time.
// It is never cached: status may change concurrently on the gateway.
type PendingRequest struct {
	Token      Token         `json:"token"`
	Kind       RequestKind   `json:"kind"`
	Status     RequestStatus `json:"status"`
	Candidates []Candidate   `json:"candidates,omitempty"`
	SSO        *SSOLogin     `json:"sso,omitempty"`
}

// Approvable reports whether there is anything left for an operator to decide.
// A pending database connection without candidates, or a pending SSO login
// without an authorization URL, counts as expired.
func (r *PendingRequest) Approvable() bool {
	if r == nil || r.Status != StatusPending {
		return false
	}
	switch r.Kind {
	case KindDatabaseConnection:
		return len(r.Candidates) > 0
	case KindSSOLogin:
		return r.SSO != nil && r.SSO.AuthorizationURL != ""
	default:
		return false
	}
}

// Candidate returns the candidate with the given id.
func (r *PendingRequest) Candidate(id CandidateID) (Candidate, bool) {
	if r == nil {
		return Candidate{}, false
	}
	for _, c := range r.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// ProviderName returns the SSO provider name, or "" for database connections.
func (r *PendingRequest) ProviderName() string {
	if r == nil || r.SSO == nil {
		return ""
	}
	return r.SSO.ProviderName
}
