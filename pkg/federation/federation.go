// Package federation holds the immutable per-federation configuration:
// the participant set, the signing threshold, and the group public key.
// A Config is created when a federation is established and is never
// mutated mid-session; reconfiguration produces a new Config.
package federation

import (
	"github.com/Caqil/fedsign/internal/security"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
)

// ParticipantRef identifies one credential holder in a federation.
type ParticipantRef struct {
	// ID is the participant's opaque identifier
	ID string

	// ChannelKey is the pre-shared secret for this participant's
	// notification channel, established out of band when the
	// participant joins. It is secret material, not a public identity
	// key: the per-recipient sealing in pkg/notify derives its AEAD
	// key from it.
	ChannelKey []byte
}

// Config is the immutable federation configuration.
type Config struct {
	// FederationID is the federation's opaque identifier
	FederationID string

	// Participants lists all credential holders; order is fixed and
	// determines each participant's share index
	Participants []ParticipantRef

	// Threshold is the number of participants required to sign
	Threshold int

	// CurveType selects the signing curve
	CurveType curve.Type

	// GroupPublicKey is the canonical encoding of the federation's
	// verification key. Verification always reads the key from here,
	// never from caller input.
	GroupPublicKey []byte
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.FederationID == "" {
		return ErrMissingFederationID
	}

	if err := security.ValidateThreshold(c.Threshold, len(c.Participants)); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Participants))
	for _, p := range c.Participants {
		if p.ID == "" {
			return ErrMissingParticipantID
		}
		if seen[p.ID] {
			return ErrDuplicateParticipant
		}
		seen[p.ID] = true
	}

	if len(c.GroupPublicKey) == 0 {
		return ErrMissingGroupKey
	}

	return nil
}

// Participant looks up a participant by ID.
func (c *Config) Participant(id string) (ParticipantRef, bool) {
	for _, p := range c.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantRef{}, false
}

// ShareIndex returns the participant's x-coordinate for secret sharing
// and signature interpolation. Indices are 1-based by participant
// position, so they are distinct and never zero.
func (c *Config) ShareIndex(id string) (int, bool) {
	for i, p := range c.Participants {
		if p.ID == id {
			return i + 1, true
		}
	}
	return 0, false
}

// GroupKey decodes the stored group public key on the federation's curve.
func (c *Config) GroupKey() (*curve.Point, curve.Curve, error) {
	cv, err := curve.New(c.CurveType)
	if err != nil {
		return nil, nil, err
	}

	point, err := cv.Unmarshal(c.GroupPublicKey)
	if err != nil {
		return nil, nil, ErrInvalidGroupKey
	}

	return point, cv, nil
}
