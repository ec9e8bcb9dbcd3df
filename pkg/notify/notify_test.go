package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caqil/fedsign/pkg/federation"
	"github.com/Caqil/fedsign/pkg/logger"
)

// recordingMessenger captures deliveries and can fail selected recipients.
type recordingMessenger struct {
	mu        sync.Mutex
	delivered map[string][]byte
	failFor   map[string]bool
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{
		delivered: make(map[string][]byte),
		failFor:   make(map[string]bool),
	}
}

func (m *recordingMessenger) Deliver(_ context.Context, participantID string, sealed []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFor[participantID] {
		return errors.New("recipient unreachable")
	}
	m.delivered[participantID] = append([]byte(nil), sealed...)
	return nil
}

func recipientSecret(id string) []byte {
	secret := make([]byte, 32)
	copy(secret, id)
	return secret
}

func testFederation(ids ...string) *federation.Config {
	participants := make([]federation.ParticipantRef, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, federation.ParticipantRef{
			ID:        id,
			ChannelKey: recipientSecret(id),
		})
	}
	return &federation.Config{
		FederationID: "fed-1",
		Participants: participants,
		Threshold:    2,
	}
}

func validRequest() *SigningRequest {
	return &SigningRequest{
		SessionID:    "session-1",
		FederationID: "fed-1",
		EventPreview: []byte(`{"type":"post"}`),
		Threshold:    2,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func TestEnvelopeValidation(t *testing.T) {
	valid := &Envelope{Type: TypeSigningRequest, SigningRequest: validRequest()}
	require.NoError(t, valid.Validate())

	missing := &Envelope{Type: TypeSigningRequest}
	assert.ErrorIs(t, missing.Validate(), ErrPayloadMismatch)

	both := &Envelope{
		Type:             TypeSigningRequest,
		SigningRequest:   validRequest(),
		CompletionNotice: &CompletionNotice{},
	}
	assert.ErrorIs(t, both.Validate(), ErrPayloadMismatch)

	unknown := &Envelope{Type: MessageType("gossip")}
	assert.ErrorIs(t, unknown.Validate(), ErrUnknownMessageType)

	empty := &Envelope{Type: TypeSigningRequest, SigningRequest: &SigningRequest{}}
	assert.ErrorIs(t, empty.Validate(), ErrMissingField)

	badOutcome := &Envelope{
		Type: TypeCompletionNotice,
		CompletionNotice: &CompletionNotice{
			SessionID:    "session-1",
			FederationID: "fed-1",
			Outcome:      Outcome("shrugged"),
		},
	}
	assert.ErrorIs(t, badOutcome.Validate(), ErrUnknownOutcome)
}

func TestEnvelopeRoundtrip(t *testing.T) {
	envelope := &Envelope{Type: TypeSigningRequest, SigningRequest: validRequest()}

	encoded, err := envelope.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(encoded)
	require.NoError(t, err)
	assert.Equal(t, TypeSigningRequest, decoded.Type)
	assert.Equal(t, "session-1", decoded.SigningRequest.SessionID)
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	_, err = DecodeEnvelope([]byte(`{"type":"signing_request"}`))
	assert.ErrorIs(t, err, ErrPayloadMismatch)
}

func TestChannelSealOpen(t *testing.T) {
	channel, err := NewChannel(recipientSecret("alice"), "alice")
	require.NoError(t, err)

	sealed, err := channel.Seal([]byte("payload"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "payload")

	opened, err := channel.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)
}

func TestChannelIsolatedPerParticipant(t *testing.T) {
	// Same shared secret, different participants: channels must not be
	// interchangeable
	alice, err := NewChannel(recipientSecret("same"), "alice")
	require.NoError(t, err)
	bob, err := NewChannel(recipientSecret("same"), "bob")
	require.NoError(t, err)

	sealed, err := alice.Seal([]byte("for alice only"))
	require.NoError(t, err)

	_, err = bob.Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestChannelRejectsWeakKey(t *testing.T) {
	_, err := NewChannel([]byte("short"), "alice")
	assert.ErrorIs(t, err, ErrWeakRecipientKey)
}

func TestChannelOpenRejectsTamperedPayload(t *testing.T) {
	channel, err := NewChannel(recipientSecret("alice"), "alice")
	require.NoError(t, err)

	sealed, err := channel.Seal([]byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = channel.Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, err = channel.Open([]byte{0x01})
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestSigningRequestFanOut(t *testing.T) {
	cfg := testFederation("alice", "bob", "carol")
	messenger := newRecordingMessenger()
	notifier := NewNotifier(messenger, logger.Nop(), nil)

	delivered, err := notifier.SendSigningRequest(context.Background(), cfg, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)

	// Each participant can open only their own copy
	for _, id := range []string{"alice", "bob", "carol"} {
		channel, err := NewChannel(recipientSecret(id), id)
		require.NoError(t, err)

		opened, err := channel.Open(messenger.delivered[id])
		require.NoError(t, err, "participant %s", id)

		envelope, err := DecodeEnvelope(opened)
		require.NoError(t, err)
		assert.Equal(t, "session-1", envelope.SigningRequest.SessionID)
	}
}

func TestFanOutSurvivesIndividualFailures(t *testing.T) {
	cfg := testFederation("alice", "bob", "carol")
	messenger := newRecordingMessenger()
	messenger.failFor["bob"] = true
	notifier := NewNotifier(messenger, logger.Nop(), nil)

	delivered, err := notifier.SendSigningRequest(context.Background(), cfg, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	assert.Contains(t, messenger.delivered, "alice")
	assert.Contains(t, messenger.delivered, "carol")
	assert.NotContains(t, messenger.delivered, "bob")
}

func TestCompletionNoticePerRecipientOutcome(t *testing.T) {
	cfg := testFederation("alice", "bob", "carol", "dave", "erin")
	messenger := newRecordingMessenger()
	notifier := NewNotifier(messenger, logger.Nop(), nil)

	contributed := map[string]bool{"alice": true, "carol": true, "erin": true}
	notice := &CompletionNotice{
		SessionID:    "session-1",
		FederationID: "fed-1",
		Outcome:      OutcomeApproved,
		ArtifactID:   "artifact-42",
	}

	delivered, err := notifier.SendCompletionNotice(context.Background(), cfg, notice, contributed)
	require.NoError(t, err)
	assert.Equal(t, 5, delivered)

	for _, id := range []string{"alice", "bob", "carol", "dave", "erin"} {
		channel, err := NewChannel(recipientSecret(id), id)
		require.NoError(t, err)

		opened, err := channel.Open(messenger.delivered[id])
		require.NoError(t, err)

		envelope, err := DecodeEnvelope(opened)
		require.NoError(t, err)

		want := OutcomeCompletedWithoutInput
		if contributed[id] {
			want = OutcomeApproved
		}
		assert.Equal(t, want, envelope.CompletionNotice.Outcome, "participant %s", id)
		assert.Equal(t, "artifact-42", envelope.CompletionNotice.ArtifactID)
	}
}

func TestFailureNoticeReachesEveryone(t *testing.T) {
	cfg := testFederation("alice", "bob")
	messenger := newRecordingMessenger()
	notifier := NewNotifier(messenger, logger.Nop(), nil)

	notice := &CompletionNotice{
		SessionID:    "session-1",
		FederationID: "fed-1",
		Outcome:      OutcomeFailed,
		Reason:       "session has expired",
	}

	delivered, err := notifier.SendCompletionNotice(context.Background(), cfg, notice, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	for _, id := range []string{"alice", "bob"} {
		channel, err := NewChannel(recipientSecret(id), id)
		require.NoError(t, err)

		opened, err := channel.Open(messenger.delivered[id])
		require.NoError(t, err)

		envelope, err := DecodeEnvelope(opened)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, envelope.CompletionNotice.Outcome)
		assert.Equal(t, "session has expired", envelope.CompletionNotice.Reason)
	}
}
