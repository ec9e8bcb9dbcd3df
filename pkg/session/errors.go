package session

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the given ID
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned for any write to a session past its
	// expiry deadline
	ErrSessionExpired = errors.New("session has expired")

	// ErrSessionExists is returned when creating a session whose ID is taken
	ErrSessionExists = errors.New("session already exists")

	// ErrRetryableConflict is returned when a concurrent write changed the
	// session since it was read; the caller should re-read and retry
	ErrRetryableConflict = errors.New("session was modified concurrently, retry with fresh state")

	// ErrCommitmentConflict is returned when a participant resubmits a
	// different commitment value for the same session
	ErrCommitmentConflict = errors.New("a different commitment already exists for this participant")

	// ErrCommitmentNotFound is returned when a partial signature arrives
	// from a participant who never committed
	ErrCommitmentNotFound = errors.New("no nonce commitment found for this participant")

	// ErrCommitmentMismatch is returned when a revealed nonce point does
	// not match the participant's round-one commitment
	ErrCommitmentMismatch = errors.New("revealed nonce does not match the stored commitment")

	// ErrDuplicateSubmission is returned when a participant submits a
	// different partial signature after one was already accepted
	ErrDuplicateSubmission = errors.New("a different partial signature already exists for this participant")

	// ErrNonceCollectionOpen is returned for a partial signature submitted
	// before the commitment round has closed
	ErrNonceCollectionOpen = errors.New("nonce collection has not closed yet")

	// ErrInvalidSessionState is returned when an operation is not valid in
	// the session's current state
	ErrInvalidSessionState = errors.New("operation not valid in the session's current state")

	// ErrAggregationVerificationFailed is returned when an aggregated
	// signature does not verify against the group public key; the session
	// is marked failed and the signature is never published
	ErrAggregationVerificationFailed = errors.New("aggregated signature failed verification")

	// ErrMFARequired is returned when the physical second-factor gate did
	// not affirmatively approve the session
	ErrMFARequired = errors.New("physical second-factor approval required")

	// ErrShareNotFound is returned when no encrypted share exists for the
	// given federation and participant
	ErrShareNotFound = errors.New("encrypted share not found")

	// ErrShareExists is returned when storing a share that already exists
	ErrShareExists = errors.New("encrypted share already exists")

	// ErrInvalidManagerConfig is returned when a required collaborator is missing
	ErrInvalidManagerConfig = errors.New("manager requires a store and a federation lookup")
)
