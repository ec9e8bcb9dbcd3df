package session

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Caqil/fedsign/pkg/sharecrypt"
)

// MemStore is an in-memory Store for tests and embedded use. All
// conditional-write semantics match the durable implementation.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*SigningSession
	commits  map[string]map[string]*NonceCommitment
	partials map[string]map[string]*PartialSignatureShare
	shares   map[string]map[string]*sharecrypt.EncryptedShare
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]*SigningSession),
		commits:  make(map[string]map[string]*NonceCommitment),
		partials: make(map[string]map[string]*PartialSignatureShare),
		shares:   make(map[string]map[string]*sharecrypt.EncryptedShare),
	}
}

// CreateSession persists a new session.
func (m *MemStore) CreateSession(_ context.Context, s *SigningSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.SessionID]; exists {
		return ErrSessionExists
	}

	m.sessions[s.SessionID] = s.Clone()
	return nil
}

// GetSession loads a session.
func (m *MemStore) GetSession(_ context.Context, sessionID string) (*SigningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// UpdateSession writes the session conditioned on expectedUpdatedAt.
func (m *MemStore) UpdateSession(_ context.Context, s *SigningSession, expectedUpdatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[s.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return ErrRetryableConflict
	}

	m.sessions[s.SessionID] = s.Clone()
	return nil
}

// ListExpired returns non-terminal sessions past their deadline.
func (m *MemStore) ListExpired(_ context.Context, now time.Time) ([]*SigningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*SigningSession
	for _, s := range m.sessions {
		if !s.Status.Terminal() && s.ExpiresAt.Before(now) {
			out = append(out, s.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// SaveCommitment inserts a commitment and bumps the session token atomically.
func (m *MemStore) SaveCommitment(_ context.Context, c *NonceCommitment, expectedUpdatedAt, newUpdatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[c.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return ErrRetryableConflict
	}

	byParticipant := m.commits[c.SessionID]
	if byParticipant == nil {
		byParticipant = make(map[string]*NonceCommitment)
		m.commits[c.SessionID] = byParticipant
	}
	if _, exists := byParticipant[c.ParticipantID]; exists {
		return ErrRetryableConflict
	}

	byParticipant[c.ParticipantID] = c.Clone()
	stored.UpdatedAt = newUpdatedAt
	return nil
}

// GetCommitment loads one participant's commitment.
func (m *MemStore) GetCommitment(_ context.Context, sessionID, participantID string) (*NonceCommitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.commits[sessionID][participantID]
	if !ok {
		return nil, ErrCommitmentNotFound
	}
	return c.Clone(), nil
}

// ListCommitments returns all commitments for a session.
func (m *MemStore) ListCommitments(_ context.Context, sessionID string) ([]*NonceCommitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*NonceCommitment
	for _, c := range m.commits[sessionID] {
		out = append(out, c.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out, nil
}

// SavePartialSignature inserts a partial, marks the commitment used, and
// bumps the session token atomically.
func (m *MemStore) SavePartialSignature(_ context.Context, p *PartialSignatureShare, expectedUpdatedAt, newUpdatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[p.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return ErrRetryableConflict
	}

	commitment, ok := m.commits[p.SessionID][p.ParticipantID]
	if !ok {
		return ErrCommitmentNotFound
	}

	byParticipant := m.partials[p.SessionID]
	if byParticipant == nil {
		byParticipant = make(map[string]*PartialSignatureShare)
		m.partials[p.SessionID] = byParticipant
	}
	if _, exists := byParticipant[p.ParticipantID]; exists {
		return ErrRetryableConflict
	}

	byParticipant[p.ParticipantID] = p.Clone()
	commitment.Used = true
	stored.UpdatedAt = newUpdatedAt
	return nil
}

// GetPartialSignature loads one participant's partial signature.
func (m *MemStore) GetPartialSignature(_ context.Context, sessionID, participantID string) (*PartialSignatureShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.partials[sessionID][participantID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

// ListPartialSignatures returns a session's partials in submission order.
func (m *MemStore) ListPartialSignatures(_ context.Context, sessionID string) ([]*PartialSignatureShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*PartialSignatureShare
	for _, p := range m.partials[sessionID] {
		out = append(out, p.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out, nil
}

// PutEncryptedShare stores a participant's long-term encrypted share.
func (m *MemStore) PutEncryptedShare(_ context.Context, share *sharecrypt.EncryptedShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byParticipant := m.shares[share.FederationID]
	if byParticipant == nil {
		byParticipant = make(map[string]*sharecrypt.EncryptedShare)
		m.shares[share.FederationID] = byParticipant
	}
	if _, exists := byParticipant[share.ParticipantID]; exists {
		return ErrShareExists
	}

	byParticipant[share.ParticipantID] = cloneEncryptedShare(share)
	return nil
}

// GetEncryptedShare loads a participant's encrypted share.
func (m *MemStore) GetEncryptedShare(_ context.Context, federationID, participantID string) (*sharecrypt.EncryptedShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	share, ok := m.shares[federationID][participantID]
	if !ok {
		return nil, ErrShareNotFound
	}
	return cloneEncryptedShare(share), nil
}

func cloneEncryptedShare(share *sharecrypt.EncryptedShare) *sharecrypt.EncryptedShare {
	out := *share
	out.Ciphertext = bytes.Clone(share.Ciphertext)
	out.Nonce = bytes.Clone(share.Nonce)
	out.Salt = bytes.Clone(share.Salt)
	return &out
}
