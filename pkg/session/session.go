// Package session implements the signing session state machine:
// creation, nonce commitment collection, partial signature collection,
// aggregation, and terminal completion, failure, or expiry. Every write
// to persisted session state goes through optimistic locking on the
// session's updated_at field; a stale write returns
// ErrRetryableConflict instead of overwriting concurrent progress.
package session

import (
	"bytes"
	"time"
)

// Status is a session's lifecycle state. Transitions are one-directional:
// pending → nonce_collection → signing → aggregating → completed, with
// failed and expired reachable from any non-terminal state.
type Status string

const (
	// StatusPending: created, notifications not yet fanned out
	StatusPending Status = "pending"

	// StatusNonceCollection: accepting round-one nonce commitments
	StatusNonceCollection Status = "nonce_collection"

	// StatusSigning: the partial-signature tally reached the threshold
	StatusSigning Status = "signing"

	// StatusAggregating: aggregation and verification in progress
	StatusAggregating Status = "aggregating"

	// StatusCompleted: signature verified and published
	StatusCompleted Status = "completed"

	// StatusFailed: a validation or cryptographic failure ended the session
	StatusFailed Status = "failed"

	// StatusExpired: expires_at passed before completion
	StatusExpired Status = "expired"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// SigningSession is the persisted unit of work. Raw key material never
// appears here: the session carries only the event template, its hash,
// and the final (public) signature.
type SigningSession struct {
	// SessionID is the session's opaque unique identifier
	SessionID string

	// FederationID names the federation whose quorum signs
	FederationID string

	// EventTemplate is the opaque payload the caller wants signed
	EventTemplate []byte

	// EventHash is SHA-256 of EventTemplate; commitments and partial
	// signatures bind to this hash
	EventHash []byte

	// Threshold is the number of partial signatures required
	Threshold int

	// Status is the current lifecycle state
	Status Status

	// FailureReason records why a failed session failed
	FailureReason string

	// CreatedAt is when the session was created
	CreatedAt time.Time

	// SigningStartedAt is set exactly once, by the submission that
	// first brings the tally to the threshold
	SigningStartedAt *time.Time

	// UpdatedAt is the optimistic-locking token: every write is
	// conditioned on the value read before the write
	UpdatedAt time.Time

	// ExpiresAt is the deadline after which no write is accepted
	ExpiresAt time.Time

	// FinalSignature is the serialized verified signature {R, s}
	FinalSignature []byte

	// FinalArtifactID references the published artifact
	FinalArtifactID string
}

// Clone returns a deep copy so store implementations never hand out
// aliased state.
func (s *SigningSession) Clone() *SigningSession {
	if s == nil {
		return nil
	}

	out := *s
	out.EventTemplate = bytes.Clone(s.EventTemplate)
	out.EventHash = bytes.Clone(s.EventHash)
	out.FinalSignature = bytes.Clone(s.FinalSignature)
	if s.SigningStartedAt != nil {
		t := *s.SigningStartedAt
		out.SigningStartedAt = &t
	}
	return &out
}

// NonceCommitment is one participant's round-one hash commitment.
type NonceCommitment struct {
	SessionID     string
	ParticipantID string

	// Commitment is H(K_i || session_id || event_hash)
	Commitment []byte

	// Used is set when a partial signature has revealed and consumed
	// this commitment; a used commitment can never back another
	// signing attempt
	Used bool

	CreatedAt time.Time
}

// Clone returns a deep copy.
func (c *NonceCommitment) Clone() *NonceCommitment {
	if c == nil {
		return nil
	}
	out := *c
	out.Commitment = bytes.Clone(c.Commitment)
	return &out
}

// PartialSignatureShare is one participant's round-two contribution: the
// revealed nonce point and the partial scalar. At most one exists per
// (session, participant).
type PartialSignatureShare struct {
	SessionID     string
	ParticipantID string

	// ShareIndex is the participant's x-coordinate in the sharing
	ShareIndex int

	// NoncePoint is the curve encoding of the revealed K_i
	NoncePoint []byte

	// Scalar is the big-endian encoding of s_i
	Scalar []byte

	SubmittedAt time.Time
}

// Clone returns a deep copy.
func (p *PartialSignatureShare) Clone() *PartialSignatureShare {
	if p == nil {
		return nil
	}
	out := *p
	out.NoncePoint = bytes.Clone(p.NoncePoint)
	out.Scalar = bytes.Clone(p.Scalar)
	return &out
}
