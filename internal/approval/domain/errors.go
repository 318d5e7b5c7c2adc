package domain

import "errors"

// Domain errors for approval values.
var (
	// ErrEmptyToken indicates no approval token was supplied.
	ErrEmptyToken = errors.New("approval token is empty")

	// ErrMalformedToken indicates the token cannot be passed to the gateway verbatim.
	ErrMalformedToken = errors.New("approval token is malformed")

	// ErrDecisionKindMismatch indicates a decision does not fit the request kind.
	ErrDecisionKindMismatch = errors.New("decision does not match request kind")

	// ErrUnknownCandidate indicates an approve decision names a candidate not offered.
	ErrUnknownCandidate = errors.New("candidate is not part of the request")

	// ErrCancelNotCommittable indicates a cancellation was handed to the committer.
	ErrCancelNotCommittable = errors.New("cancellations are local and never committed")
)
