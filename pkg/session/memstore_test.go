package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caqil/fedsign/pkg/sharecrypt"
)

func storedSession(t *testing.T, store *MemStore) *SigningSession {
	t.Helper()

	now := time.Now().UTC()
	s := &SigningSession{
		SessionID:    "session-1",
		FederationID: "fed-1",
		EventHash:    make([]byte, 32),
		Threshold:    3,
		Status:       StatusNonceCollection,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	}
	require.NoError(t, store.CreateSession(context.Background(), s))
	return s
}

func TestMemStoreSessionLifecycle(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	s := storedSession(t, store)

	assert.ErrorIs(t, store.CreateSession(ctx, s), ErrSessionExists)

	loaded, err := store.GetSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNonceCollection, loaded.Status)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemStoreConditionalUpdate(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	s := storedSession(t, store)

	expected := s.UpdatedAt
	s.Status = StatusSigning
	s.UpdatedAt = expected.Add(time.Millisecond)
	require.NoError(t, store.UpdateSession(ctx, s, expected))

	// A write conditioned on the old token must fail
	stale := s.Clone()
	stale.Status = StatusFailed
	stale.UpdatedAt = expected.Add(2 * time.Millisecond)
	assert.ErrorIs(t, store.UpdateSession(ctx, stale, expected), ErrRetryableConflict)

	loaded, err := store.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusSigning, loaded.Status)
}

func TestMemStoreSaveCommitmentBumpsToken(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	s := storedSession(t, store)

	now := s.UpdatedAt.Add(time.Millisecond)
	commitment := &NonceCommitment{
		SessionID:     s.SessionID,
		ParticipantID: "alice",
		Commitment:    make([]byte, 32),
		CreatedAt:     now,
	}
	require.NoError(t, store.SaveCommitment(ctx, commitment, s.UpdatedAt, now))

	// The same token cannot author a second write
	second := &NonceCommitment{
		SessionID:     s.SessionID,
		ParticipantID: "bob",
		Commitment:    make([]byte, 32),
		CreatedAt:     now,
	}
	assert.ErrorIs(t, store.SaveCommitment(ctx, second, s.UpdatedAt, now), ErrRetryableConflict)

	loaded, err := store.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.True(t, loaded.UpdatedAt.Equal(now))
}

func TestMemStoreSavePartialMarksCommitmentUsed(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	s := storedSession(t, store)

	t1 := s.UpdatedAt.Add(time.Millisecond)
	require.NoError(t, store.SaveCommitment(ctx, &NonceCommitment{
		SessionID:     s.SessionID,
		ParticipantID: "alice",
		Commitment:    make([]byte, 32),
		CreatedAt:     t1,
	}, s.UpdatedAt, t1))

	t2 := t1.Add(time.Millisecond)
	require.NoError(t, store.SavePartialSignature(ctx, &PartialSignatureShare{
		SessionID:     s.SessionID,
		ParticipantID: "alice",
		ShareIndex:    1,
		NoncePoint:    []byte{0x02},
		Scalar:        []byte{0x01},
		SubmittedAt:   t2,
	}, t1, t2))

	commitment, err := store.GetCommitment(ctx, s.SessionID, "alice")
	require.NoError(t, err)
	assert.True(t, commitment.Used)

	// A partial without a commitment is refused outright
	err = store.SavePartialSignature(ctx, &PartialSignatureShare{
		SessionID:     s.SessionID,
		ParticipantID: "bob",
		ShareIndex:    2,
		NoncePoint:    []byte{0x02},
		Scalar:        []byte{0x01},
		SubmittedAt:   t2.Add(time.Millisecond),
	}, t2, t2.Add(time.Millisecond))
	assert.ErrorIs(t, err, ErrCommitmentNotFound)
}

func TestMemStoreListExpired(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	now := time.Now().UTC()

	past := &SigningSession{
		SessionID: "past",
		Status:    StatusNonceCollection,
		UpdatedAt: now,
		ExpiresAt: now.Add(-time.Minute),
	}
	future := &SigningSession{
		SessionID: "future",
		Status:    StatusNonceCollection,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	doneButPast := &SigningSession{
		SessionID: "done",
		Status:    StatusCompleted,
		UpdatedAt: now,
		ExpiresAt: now.Add(-time.Minute),
	}
	for _, s := range []*SigningSession{past, future, doneButPast} {
		require.NoError(t, store.CreateSession(ctx, s))
	}

	expired, err := store.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "past", expired[0].SessionID)
}

func TestMemStoreEncryptedShares(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	share := &sharecrypt.EncryptedShare{
		FederationID:  "fed-1",
		ParticipantID: "alice",
		ShareIndex:    1,
		Ciphertext:    []byte{1, 2, 3},
		Nonce:         []byte{4, 5, 6},
		Salt:          []byte{7, 8, 9},
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.PutEncryptedShare(ctx, share))
	assert.ErrorIs(t, store.PutEncryptedShare(ctx, share), ErrShareExists)

	loaded, err := store.GetEncryptedShare(ctx, "fed-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, share.Ciphertext, loaded.Ciphertext)

	_, err = store.GetEncryptedShare(ctx, "fed-1", "bob")
	assert.ErrorIs(t, err, ErrShareNotFound)
}
