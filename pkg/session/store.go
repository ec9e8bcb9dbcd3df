package session

import (
	"context"
	"time"

	"github.com/Caqil/fedsign/pkg/sharecrypt"
)

// Store is the durable persistence boundary for sessions, round state,
// and encrypted shares. Implementations must provide conditional-write
// semantics: every mutation of a session row is committed only if the
// caller's expectedUpdatedAt still matches the stored value, and
// returns ErrRetryableConflict otherwise. SaveCommitment and
// SavePartialSignature bump the session's updated_at in the same atomic
// step as the row insert, so two participants can never both commit a
// write against the same token.
type Store interface {
	// CreateSession persists a new session. Returns ErrSessionExists if
	// the ID is taken.
	CreateSession(ctx context.Context, s *SigningSession) error

	// GetSession loads a session or returns ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*SigningSession, error)

	// UpdateSession writes the session's mutable fields, conditioned on
	// expectedUpdatedAt. The session's own UpdatedAt carries the new token.
	UpdateSession(ctx context.Context, s *SigningSession, expectedUpdatedAt time.Time) error

	// ListExpired returns non-terminal sessions whose expires_at is
	// before now.
	ListExpired(ctx context.Context, now time.Time) ([]*SigningSession, error)

	// SaveCommitment inserts a commitment and advances the session's
	// updated_at to newUpdatedAt in one atomic step. A commitment that
	// already exists for the participant is a conflict.
	SaveCommitment(ctx context.Context, c *NonceCommitment, expectedUpdatedAt, newUpdatedAt time.Time) error

	// GetCommitment loads one participant's commitment or returns
	// ErrCommitmentNotFound.
	GetCommitment(ctx context.Context, sessionID, participantID string) (*NonceCommitment, error)

	// ListCommitments returns all commitments for a session.
	ListCommitments(ctx context.Context, sessionID string) ([]*NonceCommitment, error)

	// SavePartialSignature inserts a partial signature, marks the
	// participant's commitment used, and advances the session's
	// updated_at, all in one atomic step.
	SavePartialSignature(ctx context.Context, p *PartialSignatureShare, expectedUpdatedAt, newUpdatedAt time.Time) error

	// GetPartialSignature loads one participant's partial signature or
	// returns nil, nil when none exists.
	GetPartialSignature(ctx context.Context, sessionID, participantID string) (*PartialSignatureShare, error)

	// ListPartialSignatures returns a session's partial signatures in
	// submission order.
	ListPartialSignatures(ctx context.Context, sessionID string) ([]*PartialSignatureShare, error)

	// PutEncryptedShare stores a participant's long-term encrypted share.
	PutEncryptedShare(ctx context.Context, share *sharecrypt.EncryptedShare) error

	// GetEncryptedShare loads a participant's encrypted share or returns
	// ErrShareNotFound.
	GetEncryptedShare(ctx context.Context, federationID, participantID string) (*sharecrypt.EncryptedShare, error)
}
