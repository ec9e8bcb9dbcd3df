package federation

import "errors"

var (
	// ErrMissingFederationID is returned when the federation ID is empty
	ErrMissingFederationID = errors.New("federation ID cannot be empty")

	// ErrMissingParticipantID is returned when a participant has no ID
	ErrMissingParticipantID = errors.New("participant ID cannot be empty")

	// ErrDuplicateParticipant is returned when two participants share an ID
	ErrDuplicateParticipant = errors.New("duplicate participant ID")

	// ErrMissingGroupKey is returned when no group public key is configured
	ErrMissingGroupKey = errors.New("group public key is not configured")

	// ErrInvalidGroupKey is returned when the stored group key fails to decode
	ErrInvalidGroupKey = errors.New("group public key encoding is invalid")

	// ErrUnknownParticipant is returned when an ID is not in the federation
	ErrUnknownParticipant = errors.New("participant is not a member of the federation")
)
