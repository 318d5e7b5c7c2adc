package app

import (
	"context"
	"sync"
	"time"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/resilience"
)

type fetchResult struct {
	req *domain.PendingRequest
	err error
}

type commitResult struct {
	outcome domain.CommitOutcome
	err     error
}

// fakeGateway replays scripted responses. The last script entry repeats.
type fakeGateway struct {
	mu        sync.Mutex
	fetches   []fetchResult
	commits   []commitResult
	fetchN    int
	commitN   int
	decisions []domain.Decision
}

func (g *fakeGateway) FetchPending(_ context.Context, _ domain.Token) (*domain.PendingRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.fetches[min(g.fetchN, len(g.fetches)-1)]
	g.fetchN++
	return r.req, r.err
}

func (g *fakeGateway) Commit(_ context.Context, _ domain.Token, d domain.Decision) (domain.CommitOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decisions = append(g.decisions, d)
	if len(g.commits) == 0 {
		g.commitN++
		return domain.OutcomeCommitted, nil
	}
	r := g.commits[min(g.commitN, len(g.commits)-1)]
	g.commitN++
	return r.outcome, r.err
}

func (g *fakeGateway) fetchCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchN
}

func (g *fakeGateway) commitCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commitN
}

// fakeSelector returns scripted decisions and records what it was shown.
type fakeSelector struct {
	decisions []domain.Decision
	err       error
	shown     []*domain.PendingRequest
	deadlines []time.Time
}

func (s *fakeSelector) Select(_ context.Context, req *domain.PendingRequest, deadline time.Time) (domain.Decision, error) {
	s.shown = append(s.shown, req)
	s.deadlines = append(s.deadlines, deadline)
	if s.err != nil {
		return domain.Decision{}, s.err
	}
	d := s.decisions[min(len(s.shown)-1, len(s.decisions)-1)]
	return d, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func fastPolicy() resilience.Policy {
	return resilience.Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Policy = fastPolicy()
	return opts
}

func dbRequest(candidates ...domain.Candidate) *domain.PendingRequest {
	return &domain.PendingRequest{
		Token:      "tok-1",
		Kind:       domain.KindDatabaseConnection,
		Status:     domain.StatusPending,
		Candidates: candidates,
	}
}

func ssoRequest() *domain.PendingRequest {
	return &domain.PendingRequest{
		Token:  "tok-1",
		Kind:   domain.KindSSOLogin,
		Status: domain.StatusPending,
		SSO:    &domain.SSOLogin{ProviderName: "okta", AuthorizationURL: "https://idp.example.com/auth"},
	}
}

func transient() error {
	return rperrors.Network("gateway.Commit", "gateway returned 503")
}
