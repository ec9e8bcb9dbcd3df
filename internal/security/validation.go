package security

import "errors"

const (
	// MinParticipants is the smallest federation a quorum can be formed from
	MinParticipants = 2

	// MaxParticipants is the largest supported federation size
	MaxParticipants = 7

	// MaxEventTemplateSize bounds the opaque event payload a caller may
	// submit for signing (rejected before any cryptographic work)
	MaxEventTemplateSize = 64 * 1024
)

var (
	// ErrInvalidThreshold is returned when threshold parameters are invalid
	ErrInvalidThreshold = errors.New("invalid threshold: must satisfy 1 <= t <= n")

	// ErrInvalidParticipantCount is returned when the federation size is out of range
	ErrInvalidParticipantCount = errors.New("invalid participant count: must be in range [2, 7]")

	// ErrEventTemplateTooLarge is returned when the event payload exceeds the size bound
	ErrEventTemplateTooLarge = errors.New("event template exceeds maximum size")

	// ErrEmptyEventTemplate is returned when no event payload is supplied
	ErrEmptyEventTemplate = errors.New("event template cannot be empty")
)

// ValidateThreshold checks a (t, n) configuration for a federation.
// Returns an error if:
// - n is outside [MinParticipants, MaxParticipants]
// - t < 1 or t > n
func ValidateThreshold(threshold, participants int) error {
	if participants < MinParticipants || participants > MaxParticipants {
		return ErrInvalidParticipantCount
	}

	if threshold < 1 || threshold > participants {
		return ErrInvalidThreshold
	}

	return nil
}

// ValidateEventTemplate rejects oversized or empty event payloads before
// they reach any cryptographic primitive.
func ValidateEventTemplate(template []byte) error {
	if len(template) == 0 {
		return ErrEmptyEventTemplate
	}

	if len(template) > MaxEventTemplateSize {
		return ErrEventTemplateTooLarge
	}

	return nil
}
