package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/Caqil/fedsign/internal/security"
	"github.com/Caqil/fedsign/pkg/aggregate"
	"github.com/Caqil/fedsign/pkg/audit"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
	"github.com/Caqil/fedsign/pkg/federation"
	"github.com/Caqil/fedsign/pkg/logger"
	"github.com/Caqil/fedsign/pkg/notify"
)

// DefaultSessionTTL bounds how long a session accepts contributions.
const DefaultSessionTTL = time.Hour

// eventPreviewSize caps how much of the event template is included in
// signing-request notifications.
const eventPreviewSize = 256

// casAttempts bounds internal retry loops on optimistic-lock conflicts.
// Participant-facing writes never loop: their conflicts surface as
// ErrRetryableConflict so the caller retries with fresh state.
const casAttempts = 8

// FederationLookup resolves a federation's immutable configuration.
type FederationLookup interface {
	Federation(ctx context.Context, federationID string) (*federation.Config, error)
}

// EventPublisher accepts a finished {event_template, signature} artifact
// and returns a durable artifact identifier. This is the only place a
// finished signature leaves the core.
type EventPublisher interface {
	Publish(ctx context.Context, federationID string, eventTemplate, signature []byte) (string, error)
}

// MFAGate is the physical second-factor collaborator. Approved must
// return true before a gated session may be created; a negative or
// failed check is a hard precondition failure and is not retried.
type MFAGate interface {
	Approved(ctx context.Context, federationID string, eventTemplate []byte) (bool, error)
}

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	// Store is the durable session store (required)
	Store Store

	// Federations resolves federation configurations (required)
	Federations FederationLookup

	// Notifier fans out signing requests and completion notices; nil
	// disables notifications
	Notifier *notify.Notifier

	// Publisher receives verified artifacts; nil skips publication
	Publisher EventPublisher

	// Gate is the physical second-factor collaborator; nil disables gating
	Gate MFAGate

	// Logger defaults to a no-op logger
	Logger *logger.Logger

	// Audit records security-relevant events; nil disables auditing
	Audit *audit.Logger

	// SessionTTL defaults to DefaultSessionTTL
	SessionTTL time.Duration
}

// Manager orchestrates the signing session state machine. It is safe
// for concurrent use: all shared state lives in the Store and every
// mutation is conditioned on the session's updated_at token.
type Manager struct {
	store       Store
	federations FederationLookup
	notifier    *notify.Notifier
	publisher   EventPublisher
	gate        MFAGate
	log         *logger.Logger
	auditLog    *audit.Logger
	ttl         time.Duration
}

// NewManager creates a session manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil || cfg.Store == nil || cfg.Federations == nil {
		return nil, ErrInvalidManagerConfig
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	return &Manager{
		store:       cfg.Store,
		federations: cfg.Federations,
		notifier:    cfg.Notifier,
		publisher:   cfg.Publisher,
		gate:        cfg.Gate,
		log:         log,
		auditLog:    cfg.Audit,
		ttl:         ttl,
	}, nil
}

// CreateSession validates the request, persists a new session, moves it
// into nonce collection, and fans out signing requests. Returns the
// created session.
func (m *Manager) CreateSession(ctx context.Context, federationID string, eventTemplate []byte, threshold int) (*SigningSession, error) {
	if err := security.ValidateEventTemplate(eventTemplate); err != nil {
		return nil, err
	}

	cfg, err := m.federations.Federation(ctx, federationID)
	if err != nil {
		return nil, err
	}

	if err := security.ValidateThreshold(threshold, len(cfg.Participants)); err != nil {
		return nil, err
	}

	if m.gate != nil {
		approved, err := m.gate.Approved(ctx, federationID, eventTemplate)
		if err != nil || !approved {
			m.log.Warn().
				Str("federation_id", federationID).
				Err(err).
				Msg("second-factor gate did not approve session creation")
			return nil, ErrMFARequired
		}
	}

	hash := sha256.Sum256(eventTemplate)
	now := time.Now().UTC()

	s := &SigningSession{
		SessionID:     uuid.NewString(),
		FederationID:  federationID,
		EventTemplate: bytes.Clone(eventTemplate),
		EventHash:     hash[:],
		Threshold:     threshold,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(m.ttl),
	}

	if err := m.store.CreateSession(ctx, s); err != nil {
		return nil, err
	}

	expected := s.UpdatedAt
	s.Status = StatusNonceCollection
	s.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateSession(ctx, s, expected); err != nil {
		return nil, err
	}

	if m.auditLog != nil {
		m.auditLog.LogSessionCreated(federationID, s.SessionID, threshold)
	}

	m.log.WithSession(s.SessionID, federationID).Info().
		Int("threshold", threshold).
		Time("expires_at", s.ExpiresAt).
		Msg("signing session created")

	if m.notifier != nil {
		preview := s.EventTemplate
		if len(preview) > eventPreviewSize {
			preview = preview[:eventPreviewSize]
		}
		delivered, err := m.notifier.SendSigningRequest(ctx, cfg, &notify.SigningRequest{
			SessionID:    s.SessionID,
			FederationID: federationID,
			EventPreview: preview,
			Threshold:    threshold,
			ExpiresAt:    s.ExpiresAt,
		})
		if err != nil {
			return nil, err
		}
		m.log.WithSession(s.SessionID, federationID).Debug().
			Int("delivered", delivered).
			Msg("signing requests sent")
	}

	return s.Clone(), nil
}

// Session loads a session, lazily expiring it when its deadline has passed.
func (m *Manager) Session(ctx context.Context, sessionID string) (*SigningSession, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !s.Status.Terminal() && time.Now().After(s.ExpiresAt) {
		if err := m.expireSession(ctx, s.SessionID); err != nil {
			return nil, err
		}
		return m.store.GetSession(ctx, sessionID)
	}

	return s, nil
}

// SubmitNonceCommitment records a participant's round-one commitment.
// Submitting an identical commitment again is a no-op; a differing value
// fails with ErrCommitmentConflict. A concurrent write to the session
// surfaces as ErrRetryableConflict for the caller to retry.
func (m *Manager) SubmitNonceCommitment(ctx context.Context, sessionID, participantID string, commitment []byte) error {
	if len(commitment) != sha256.Size {
		return aggregate.ErrInvalidFormat
	}

	s, err := m.loadWritable(ctx, sessionID)
	if err != nil {
		return err
	}

	if s.Status != StatusPending && s.Status != StatusNonceCollection {
		m.rejectContribution(sessionID, participantID, "commitment after nonce collection closed")
		return ErrInvalidSessionState
	}

	cfg, err := m.federations.Federation(ctx, s.FederationID)
	if err != nil {
		return err
	}
	if _, ok := cfg.Participant(participantID); !ok {
		m.rejectContribution(sessionID, participantID, "participant not in federation")
		return federation.ErrUnknownParticipant
	}

	existing, err := m.store.GetCommitment(ctx, sessionID, participantID)
	if err == nil {
		if bytes.Equal(existing.Commitment, commitment) {
			return nil
		}
		m.rejectContribution(sessionID, participantID, "conflicting commitment value")
		return ErrCommitmentConflict
	}
	if err != ErrCommitmentNotFound {
		return err
	}

	now := time.Now().UTC()
	err = m.store.SaveCommitment(ctx, &NonceCommitment{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Commitment:    bytes.Clone(commitment),
		CreatedAt:     now,
	}, s.UpdatedAt, now)
	if err != nil {
		return err
	}

	m.log.WithSession(sessionID, s.FederationID).WithParticipant(participantID).
		Info().Msg("nonce commitment recorded")
	return nil
}

// SubmitPartialSignature records a participant's round-two contribution:
// the revealed nonce point and the partial scalar. The submission that
// first brings the tally to the threshold triggers aggregation; later
// submissions are recorded for audit only.
func (m *Manager) SubmitPartialSignature(ctx context.Context, sessionID, participantID string, noncePoint, scalar []byte) error {
	if len(noncePoint) == 0 || len(scalar) == 0 {
		return aggregate.ErrInvalidFormat
	}

	s, err := m.loadWritable(ctx, sessionID)
	if err != nil {
		return err
	}

	switch s.Status {
	case StatusNonceCollection:
		commits, err := m.store.ListCommitments(ctx, sessionID)
		if err != nil {
			return err
		}
		if len(commits) < s.Threshold {
			return ErrNonceCollectionOpen
		}
	case StatusSigning, StatusAggregating:
		// late arrivals are recorded for audit
	default:
		m.rejectContribution(sessionID, participantID, "partial signature before nonce collection")
		return ErrInvalidSessionState
	}

	cfg, err := m.federations.Federation(ctx, s.FederationID)
	if err != nil {
		return err
	}
	shareIndex, ok := cfg.ShareIndex(participantID)
	if !ok {
		m.rejectContribution(sessionID, participantID, "participant not in federation")
		return federation.ErrUnknownParticipant
	}

	commitment, err := m.store.GetCommitment(ctx, sessionID, participantID)
	if err != nil {
		if err == ErrCommitmentNotFound {
			m.rejectContribution(sessionID, participantID, "partial signature without commitment")
		}
		return err
	}

	agg, cv, _, err := m.aggregatorFor(cfg)
	if err != nil {
		return err
	}

	point, err := cv.Unmarshal(noncePoint)
	if err != nil {
		m.rejectContribution(sessionID, participantID, "malformed nonce point")
		return aggregate.ErrInvalidFormat
	}

	if !agg.VerifyNonceCommitment(commitment.Commitment, point, sessionID, s.EventHash) {
		m.rejectContribution(sessionID, participantID, "nonce reveal does not match commitment")
		return ErrCommitmentMismatch
	}

	sc := new(big.Int).SetBytes(scalar)
	if sc.Sign() == 0 || sc.Cmp(cv.Order()) >= 0 {
		m.rejectContribution(sessionID, participantID, "partial scalar out of range")
		return aggregate.ErrInvalidFormat
	}

	existing, err := m.store.GetPartialSignature(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	if existing != nil {
		if bytes.Equal(existing.NoncePoint, noncePoint) && bytes.Equal(existing.Scalar, scalar) {
			return nil
		}
		m.rejectContribution(sessionID, participantID, "conflicting partial signature")
		return ErrDuplicateSubmission
	}

	now := time.Now().UTC()
	err = m.store.SavePartialSignature(ctx, &PartialSignatureShare{
		SessionID:     sessionID,
		ParticipantID: participantID,
		ShareIndex:    shareIndex,
		NoncePoint:    bytes.Clone(noncePoint),
		Scalar:        bytes.Clone(scalar),
		SubmittedAt:   now,
	}, s.UpdatedAt, now)
	if err != nil {
		return err
	}

	slog := m.log.WithSession(sessionID, s.FederationID).WithParticipant(participantID)
	slog.Info().Msg("partial signature recorded")

	partials, err := m.store.ListPartialSignatures(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(partials) < s.Threshold {
		slog.Debug().
			Int("received", len(partials)).
			Int("threshold", s.Threshold).
			Msg("waiting for more partial signatures")
		return nil
	}

	claimed, err := m.claimSigning(ctx, sessionID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	return m.aggregateSession(ctx, sessionID, cfg)
}

// ExpireStaleSessions transitions every session past its deadline into
// the expired state and notifies participants. Idempotent; safe to run
// repeatedly and concurrently. Returns the number of sessions expired.
func (m *Manager) ExpireStaleSessions(ctx context.Context) (int, error) {
	stale, err := m.store.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, s := range stale {
		if err := m.expireSession(ctx, s.SessionID); err != nil {
			m.log.Error().
				Str("session_id", s.SessionID).
				Err(err).
				Msg("failed to expire session")
			continue
		}
		expired++
	}

	return expired, nil
}

// loadWritable loads a session and enforces writability: terminal
// sessions reject all contributions and a session past its deadline is
// expired on the spot.
func (m *Manager) loadWritable(ctx context.Context, sessionID string) (*SigningSession, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch {
	case s.Status == StatusExpired:
		return nil, ErrSessionExpired
	case s.Status.Terminal():
		return nil, ErrInvalidSessionState
	case time.Now().After(s.ExpiresAt):
		if err := m.expireSession(ctx, s.SessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	return s, nil
}

// claimSigning attempts the nonce_collection → signing transition.
// Exactly one concurrent caller wins; the winner sets signing_started_at
// if and only if it was never set before.
func (m *Manager) claimSigning(ctx context.Context, sessionID string) (bool, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		s, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		if s.Status != StatusNonceCollection {
			return false, nil
		}

		now := time.Now().UTC()
		expected := s.UpdatedAt
		s.Status = StatusSigning
		if s.SigningStartedAt == nil {
			s.SigningStartedAt = &now
		}
		s.UpdatedAt = now

		err = m.store.UpdateSession(ctx, s, expected)
		if err == ErrRetryableConflict {
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	return false, ErrRetryableConflict
}

// aggregateSession runs the aggregation step: it moves the session to
// aggregating, combines the first threshold partial signatures, verifies
// the result against the federation's stored group key, publishes the
// artifact, and completes the session. All cryptographic work happens
// between store operations, never inside one.
func (m *Manager) aggregateSession(ctx context.Context, sessionID string, cfg *federation.Config) error {
	claimed, err := m.transition(ctx, sessionID, StatusSigning, func(s *SigningSession) {
		s.Status = StatusAggregating
	})
	if err != nil {
		return err
	}
	if !claimed {
		// The session left signing behind our back (expired or failed
		// concurrently). Nothing may be aggregated or published for it.
		s, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.Status == StatusExpired {
			return ErrSessionExpired
		}
		return ErrInvalidSessionState
	}

	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	partials, err := m.store.ListPartialSignatures(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(partials) < s.Threshold {
		return m.failSession(ctx, s, cfg, ErrAggregationVerificationFailed)
	}

	agg, cv, groupKey, err := m.aggregatorFor(cfg)
	if err != nil {
		return err
	}

	quorum := partials[:s.Threshold]
	contributed := make(map[string]bool, len(quorum))
	parts := make([]*aggregate.PartialSignature, 0, len(quorum))
	for _, p := range quorum {
		point, err := cv.Unmarshal(p.NoncePoint)
		if err != nil {
			return m.failSession(ctx, s, cfg, aggregate.ErrInvalidFormat)
		}
		parts = append(parts, &aggregate.PartialSignature{
			ShareIndex: p.ShareIndex,
			NoncePoint: point,
			Scalar:     new(big.Int).SetBytes(p.Scalar),
		})
		contributed[p.ParticipantID] = true
	}

	sig, err := agg.Aggregate(parts, s.Threshold, s.EventHash)
	if err != nil {
		return m.failSession(ctx, s, cfg, err)
	}

	valid, err := agg.Verify(sig, s.EventHash, groupKey)
	if err != nil || !valid {
		m.log.WithSession(sessionID, s.FederationID).Error().
			Err(err).
			Msg("aggregated signature failed verification")
		return m.failSession(ctx, s, cfg, ErrAggregationVerificationFailed)
	}

	sigBytes := sig.Bytes(cv)

	artifactID := ""
	if m.publisher != nil {
		artifactID, err = m.publisher.Publish(ctx, s.FederationID, s.EventTemplate, sigBytes)
		if err != nil {
			return m.failSession(ctx, s, cfg, err)
		}
	}

	completed, err := m.transition(ctx, sessionID, StatusAggregating, func(s *SigningSession) {
		s.Status = StatusCompleted
		s.FinalSignature = sigBytes
		s.FinalArtifactID = artifactID
	})
	if err != nil {
		return err
	}
	if !completed {
		m.log.WithSession(sessionID, s.FederationID).Warn().
			Msg("session left aggregating before completion could be recorded")
		return ErrInvalidSessionState
	}

	if m.auditLog != nil {
		m.auditLog.LogSessionCompleted(s.FederationID, sessionID, artifactID)
	}

	m.log.WithSession(sessionID, s.FederationID).Info().
		Str("artifact_id", artifactID).
		Msg("session completed")

	if m.notifier != nil {
		_, err := m.notifier.SendCompletionNotice(ctx, cfg, &notify.CompletionNotice{
			SessionID:    sessionID,
			FederationID: s.FederationID,
			Outcome:      notify.OutcomeApproved,
			ArtifactID:   artifactID,
		}, contributed)
		if err != nil {
			m.log.Error().Str("session_id", sessionID).Err(err).
				Msg("completion notice fan-out failed")
		}
	}

	return nil
}

// failSession moves a session to failed with a recorded reason, audits
// the failure, and notifies every participant. Returns the reason so
// callers can surface it verbatim.
func (m *Manager) failSession(ctx context.Context, s *SigningSession, cfg *federation.Config, reason error) error {
	applied, err := m.transitionAny(ctx, s.SessionID, func(fresh *SigningSession) bool {
		if fresh.Status.Terminal() {
			return false
		}
		fresh.Status = StatusFailed
		fresh.FailureReason = reason.Error()
		return true
	})
	if err != nil {
		return err
	}
	if !applied {
		// Already terminal; whoever got there first owns the fan-out.
		return reason
	}

	if m.auditLog != nil {
		m.auditLog.LogSessionFailed(s.FederationID, s.SessionID, reason)
	}

	m.log.WithSession(s.SessionID, s.FederationID).Error().
		Err(reason).
		Msg("session failed")

	if m.notifier != nil {
		_, nerr := m.notifier.SendCompletionNotice(ctx, cfg, &notify.CompletionNotice{
			SessionID:    s.SessionID,
			FederationID: s.FederationID,
			Outcome:      notify.OutcomeFailed,
			Reason:       reason.Error(),
		}, nil)
		if nerr != nil {
			m.log.Error().Str("session_id", s.SessionID).Err(nerr).
				Msg("failure notice fan-out failed")
		}
	}

	return reason
}

// expireSession moves one session to expired and notifies participants.
// A session that reached a terminal state concurrently is left alone.
func (m *Manager) expireSession(ctx context.Context, sessionID string) error {
	var federationID string
	applied, err := m.transitionAny(ctx, sessionID, func(s *SigningSession) bool {
		if s.Status.Terminal() {
			return false
		}
		federationID = s.FederationID
		s.Status = StatusExpired
		s.FailureReason = ErrSessionExpired.Error()
		return true
	})
	if err != nil || !applied {
		return err
	}

	if m.auditLog != nil {
		m.auditLog.LogSessionFailed(federationID, sessionID, ErrSessionExpired)
	}

	m.log.WithSession(sessionID, federationID).Warn().Msg("session expired")

	if m.notifier != nil {
		cfg, err := m.federations.Federation(ctx, federationID)
		if err != nil {
			return nil
		}
		_, nerr := m.notifier.SendCompletionNotice(ctx, cfg, &notify.CompletionNotice{
			SessionID:    sessionID,
			FederationID: federationID,
			Outcome:      notify.OutcomeFailed,
			Reason:       ErrSessionExpired.Error(),
		}, nil)
		if nerr != nil {
			m.log.Error().Str("session_id", sessionID).Err(nerr).
				Msg("expiry notice fan-out failed")
		}
	}

	return nil
}

// transition applies a mutation to a session that must currently be in
// from, retrying on optimistic-lock conflicts. Reports whether the
// mutation was applied: false means another writer moved the session
// out of from first, and the caller must not act as if it won.
func (m *Manager) transition(ctx context.Context, sessionID string, from Status, mutate func(*SigningSession)) (bool, error) {
	return m.transitionAny(ctx, sessionID, func(s *SigningSession) bool {
		if s.Status != from {
			return false
		}
		mutate(s)
		return true
	})
}

// transitionAny applies a conditional mutation with internal CAS
// retries. mutate returns false to skip the write entirely; the skip is
// reported to the caller as applied == false.
func (m *Manager) transitionAny(ctx context.Context, sessionID string, mutate func(*SigningSession) bool) (bool, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		s, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			return false, err
		}

		if !mutate(s) {
			return false, nil
		}

		expected := s.UpdatedAt
		s.UpdatedAt = time.Now().UTC()

		err = m.store.UpdateSession(ctx, s, expected)
		if err == ErrRetryableConflict {
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	return false, ErrRetryableConflict
}

// aggregatorFor builds the federation's aggregator, curve, and decoded
// group key. The group key always comes from the stored configuration,
// never from caller input.
func (m *Manager) aggregatorFor(cfg *federation.Config) (*aggregate.Aggregator, curve.Curve, *curve.Point, error) {
	groupKey, cv, err := cfg.GroupKey()
	if err != nil {
		return nil, nil, nil, err
	}

	agg, err := aggregate.New(cv)
	if err != nil {
		return nil, nil, nil, err
	}

	return agg, cv, groupKey, nil
}

func (m *Manager) rejectContribution(sessionID, participantID, reason string) {
	if m.auditLog != nil {
		m.auditLog.LogContributionRejected(sessionID, participantID, reason)
	}
}
