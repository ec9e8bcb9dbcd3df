package notify

import "errors"

var (
	// ErrUnknownMessageType is returned for an unrecognized variant tag
	ErrUnknownMessageType = errors.New("unknown notification message type")

	// ErrPayloadMismatch is returned when the payload does not match the tag
	ErrPayloadMismatch = errors.New("envelope payload does not match its type")

	// ErrMissingField is returned when a required payload field is empty
	ErrMissingField = errors.New("notification payload is missing a required field")

	// ErrUnknownOutcome is returned for an unrecognized completion outcome
	ErrUnknownOutcome = errors.New("unknown completion outcome")

	// ErrMalformedEnvelope is returned when envelope bytes cannot be parsed
	ErrMalformedEnvelope = errors.New("malformed notification envelope")

	// ErrWeakRecipientKey is returned when a recipient key is too short
	ErrWeakRecipientKey = errors.New("recipient key must be at least 32 bytes")

	// ErrSealFailed is returned when a payload cannot be encrypted
	ErrSealFailed = errors.New("failed to seal notification")

	// ErrOpenFailed is returned when a sealed payload fails authentication
	ErrOpenFailed = errors.New("failed to open notification")
)
