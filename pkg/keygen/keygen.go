// Package keygen performs federation key generation with a trusted
// dealer: it draws the group signing secret, splits it into one share
// per guardian, seals every share under its guardian's credential, and
// wipes the secret before returning. The plaintext secret exists only
// inside GenerateFederation's call stack; what leaves the dealer is the
// federation configuration, the sealed shares, and a Schnorr proof that
// the dealt group key was well-formed.
package keygen

import (
	"github.com/Caqil/fedsign/internal/math"
	"github.com/Caqil/fedsign/internal/security"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
	"github.com/Caqil/fedsign/pkg/federation"
	"github.com/Caqil/fedsign/pkg/logger"
	"github.com/Caqil/fedsign/pkg/sharecrypt"
	"github.com/Caqil/fedsign/pkg/zk"
)

// Participant describes one guardian joining a federation.
type Participant struct {
	// ID is the guardian's opaque identifier
	ID string

	// ChannelKey is the pre-shared secret for the guardian's
	// notification channel, established out of band
	ChannelKey []byte

	// Credential seals the guardian's share at rest. It is used once
	// here and never stored.
	Credential []byte
}

// Result is everything key generation produces. The group secret itself
// is not part of it.
type Result struct {
	// Config is the federation's immutable configuration
	Config *federation.Config

	// EncryptedShares holds one sealed share per participant, in
	// participant order
	EncryptedShares []*sharecrypt.EncryptedShare

	// Proof shows the dealer knew the secret behind the group key
	Proof *zk.SchnorrProof
}

// Dealer generates federations.
type Dealer struct {
	codec *sharecrypt.Codec
	log   *logger.Logger
}

// NewDealer creates a dealer sealing shares with the given codec.
func NewDealer(codec *sharecrypt.Codec, log *logger.Logger) (*Dealer, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dealer{codec: codec, log: log}, nil
}

// GenerateFederation deals a fresh (threshold, n) federation on the
// given curve. Every piece of ephemeral secret material (the group
// secret, the dealing polynomial, and each raw share) is wiped before
// this function returns, on every path.
func (d *Dealer) GenerateFederation(federationID string, participants []Participant, threshold int, curveType curve.Type) (*Result, error) {
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}
	if err := security.ValidateThreshold(threshold, len(participants)); err != nil {
		return nil, err
	}

	cv, err := curve.New(curveType)
	if err != nil {
		return nil, err
	}

	field, err := math.NewField(cv.Order())
	if err != nil {
		return nil, err
	}

	sharing, err := math.NewSharing(threshold, len(participants), field)
	if err != nil {
		return nil, err
	}

	secret, err := field.RandomScalar()
	if err != nil {
		return nil, err
	}
	defer security.WipeBigInt(secret)

	groupKey, err := cv.ScalarBaseMult(secret)
	if err != nil {
		return nil, err
	}

	proof, err := zk.ProveSchnorr(secret, groupKey, cv, []byte(federationID))
	if err != nil {
		return nil, err
	}

	shares, err := sharing.Split(secret)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, share := range shares {
			share.Wipe()
		}
	}()

	sealed := make([]*sharecrypt.EncryptedShare, len(participants))
	refs := make([]federation.ParticipantRef, len(participants))
	for i, p := range participants {
		raw := shares[i].Value.Bytes()

		encrypted, err := d.codec.Encrypt(raw, p.Credential, federationID, p.ID, i+1)
		security.Wipe(raw)
		if err != nil {
			return nil, err
		}

		sealed[i] = encrypted
		refs[i] = federation.ParticipantRef{ID: p.ID, ChannelKey: p.ChannelKey}
	}

	cfg := &federation.Config{
		FederationID:   federationID,
		Participants:   refs,
		Threshold:      threshold,
		CurveType:      curveType,
		GroupPublicKey: cv.Marshal(groupKey),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d.log.Info().
		Str("federation_id", federationID).
		Int("participants", len(participants)).
		Int("threshold", threshold).
		Str("curve", cv.Name()).
		Msg("federation keys generated")

	return &Result{
		Config:          cfg,
		EncryptedShares: sealed,
		Proof:           proof,
	}, nil
}

// VerifyFederation checks a federation's proof of possession against
// its stored group key. Guardians run this before accepting their
// share of a newly dealt federation.
func VerifyFederation(cfg *federation.Config, proof *zk.SchnorrProof) error {
	if cfg == nil || proof == nil {
		return ErrInvalidProof
	}

	groupKey, cv, err := cfg.GroupKey()
	if err != nil {
		return err
	}

	if !proof.Verify(groupKey, cv, []byte(cfg.FederationID)) {
		return ErrInvalidProof
	}
	return nil
}

func validateParticipants(participants []Participant) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.ID == "" {
			return federation.ErrMissingParticipantID
		}
		if seen[p.ID] {
			return federation.ErrDuplicateParticipant
		}
		seen[p.ID] = true

		if len(p.Credential) == 0 {
			return ErrMissingCredential
		}
	}
	return nil
}
