package keygen

import "errors"

var (
	// ErrNilCodec is returned when no share codec is supplied
	ErrNilCodec = errors.New("dealer requires a share codec")

	// ErrNoParticipants is returned when the participant list is empty
	ErrNoParticipants = errors.New("federation requires participants")

	// ErrMissingCredential is returned when a participant has no
	// share-sealing credential
	ErrMissingCredential = errors.New("participant credential cannot be empty")

	// ErrInvalidProof is returned when the proof of possession does not
	// verify against the stored group key
	ErrInvalidProof = errors.New("group key proof of possession is invalid")
)
