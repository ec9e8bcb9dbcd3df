package notify

import (
	"context"

	"github.com/Caqil/fedsign/pkg/audit"
	"github.com/Caqil/fedsign/pkg/federation"
	"github.com/Caqil/fedsign/pkg/logger"
)

// Messenger is the external delivery collaborator. Delivery is
// best-effort: an error means this recipient did not get this message,
// nothing more.
type Messenger interface {
	Deliver(ctx context.Context, participantID string, sealed []byte) error
}

// Notifier fans notifications out to every eligible participant. A
// failure to reach one participant never aborts delivery to the rest.
type Notifier struct {
	messenger Messenger
	log       *logger.Logger
	auditLog  *audit.Logger
}

// NewNotifier creates a notifier over the given messenger.
func NewNotifier(messenger Messenger, log *logger.Logger, auditLog *audit.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{
		messenger: messenger,
		log:       log,
		auditLog:  auditLog,
	}
}

// SendSigningRequest delivers an individually sealed signing request to
// every participant of the federation. Returns the number of successful
// deliveries; per-recipient failures are logged and audited only.
func (n *Notifier) SendSigningRequest(ctx context.Context, cfg *federation.Config, req *SigningRequest) (int, error) {
	envelope := &Envelope{
		Type:           TypeSigningRequest,
		SigningRequest: req,
	}

	plaintext, err := envelope.Encode()
	if err != nil {
		return 0, err
	}

	return n.fanOut(ctx, cfg, req.SessionID, plaintext, nil), nil
}

// SendCompletionNotice delivers a final status to every participant.
// contributed marks the participants whose partial signatures were part
// of the quorum; on success they receive OutcomeApproved and everyone
// else OutcomeCompletedWithoutInput. On failure every participant
// receives OutcomeFailed with the recorded reason.
func (n *Notifier) SendCompletionNotice(ctx context.Context, cfg *federation.Config, notice *CompletionNotice, contributed map[string]bool) (int, error) {
	perRecipient := func(participantID string) ([]byte, error) {
		own := *notice
		if own.Outcome != OutcomeFailed {
			if contributed[participantID] {
				own.Outcome = OutcomeApproved
			} else {
				own.Outcome = OutcomeCompletedWithoutInput
			}
		}

		envelope := &Envelope{
			Type:             TypeCompletionNotice,
			CompletionNotice: &own,
		}
		return envelope.Encode()
	}

	// Validate the base notice once before any delivery
	base := &Envelope{Type: TypeCompletionNotice, CompletionNotice: notice}
	if err := base.Validate(); err != nil {
		return 0, err
	}

	return n.fanOut(ctx, cfg, notice.SessionID, nil, perRecipient), nil
}

// fanOut seals and delivers to each participant. Exactly one of
// plaintext and perRecipient is set; perRecipient builds a
// participant-specific payload.
func (n *Notifier) fanOut(ctx context.Context, cfg *federation.Config, sessionID string, plaintext []byte, perRecipient func(string) ([]byte, error)) int {
	delivered := 0

	for _, participant := range cfg.Participants {
		payload := plaintext
		if perRecipient != nil {
			var err error
			payload, err = perRecipient(participant.ID)
			if err != nil {
				n.recordFailure(sessionID, participant.ID, err)
				continue
			}
		}

		channel, err := NewChannel(participant.ChannelKey, participant.ID)
		if err != nil {
			n.recordFailure(sessionID, participant.ID, err)
			continue
		}

		sealed, err := channel.Seal(payload)
		if err != nil {
			n.recordFailure(sessionID, participant.ID, err)
			continue
		}

		if err := n.messenger.Deliver(ctx, participant.ID, sealed); err != nil {
			n.recordFailure(sessionID, participant.ID, err)
			continue
		}

		delivered++
	}

	return delivered
}

func (n *Notifier) recordFailure(sessionID, participantID string, err error) {
	n.log.Warn().
		Str("session_id", sessionID).
		Str("participant_id", participantID).
		Err(err).
		Msg("notification delivery failed")

	if n.auditLog != nil {
		n.auditLog.LogDeliveryFailure(sessionID, participantID, err)
	}
}
