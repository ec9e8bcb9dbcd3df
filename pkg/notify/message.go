// Package notify delivers round-scoped approval requests and completion
// notices to federation participants over an external encrypted
// messenger. Every payload is a tagged variant validated at the
// boundary before it is acted on.
package notify

import (
	"encoding/json"
	"time"
)

// MessageType discriminates the notification variants.
type MessageType string

const (
	// TypeSigningRequest asks a participant to contribute to a session
	TypeSigningRequest MessageType = "signing_request"

	// TypeCompletionNotice reports a session's final outcome
	TypeCompletionNotice MessageType = "completion_notice"
)

// Outcome is a participant-specific view of a finished session.
type Outcome string

const (
	// OutcomeApproved: the recipient contributed to the signature
	OutcomeApproved Outcome = "approved"

	// OutcomeCompletedWithoutInput: the session completed with other
	// participants' contributions
	OutcomeCompletedWithoutInput Outcome = "completed_without_input"

	// OutcomeFailed: the session ended in failure or expiry
	OutcomeFailed Outcome = "failed"
)

// SigningRequest is the round-one fan-out payload.
type SigningRequest struct {
	SessionID    string    `json:"session_id"`
	FederationID string    `json:"federation_id"`
	EventPreview []byte    `json:"event_preview"`
	Threshold    int       `json:"threshold"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CompletionNotice is the final fan-out payload.
type CompletionNotice struct {
	SessionID    string  `json:"session_id"`
	FederationID string  `json:"federation_id"`
	Outcome      Outcome `json:"outcome"`
	ArtifactID   string  `json:"artifact_id,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// Envelope is the wire form of a notification. Exactly one payload
// field matching Type must be set.
type Envelope struct {
	Type             MessageType       `json:"type"`
	SigningRequest   *SigningRequest   `json:"signing_request,omitempty"`
	CompletionNotice *CompletionNotice `json:"completion_notice,omitempty"`
}

// Validate checks the tagged-variant invariants before the envelope is
// acted on or sent.
func (e *Envelope) Validate() error {
	switch e.Type {
	case TypeSigningRequest:
		if e.SigningRequest == nil || e.CompletionNotice != nil {
			return ErrPayloadMismatch
		}
		req := e.SigningRequest
		if req.SessionID == "" || req.FederationID == "" {
			return ErrMissingField
		}
		if req.Threshold < 1 {
			return ErrMissingField
		}
		if req.ExpiresAt.IsZero() {
			return ErrMissingField
		}

	case TypeCompletionNotice:
		if e.CompletionNotice == nil || e.SigningRequest != nil {
			return ErrPayloadMismatch
		}
		notice := e.CompletionNotice
		if notice.SessionID == "" || notice.FederationID == "" {
			return ErrMissingField
		}
		switch notice.Outcome {
		case OutcomeApproved, OutcomeCompletedWithoutInput, OutcomeFailed:
		default:
			return ErrUnknownOutcome
		}

	default:
		return ErrUnknownMessageType
	}

	return nil
}

// Encode serializes a validated envelope.
func (e *Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeEnvelope parses and validates an envelope received from the
// messenger. Invalid envelopes are rejected before any handling.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, ErrMalformedEnvelope
	}

	if err := envelope.Validate(); err != nil {
		return nil, err
	}

	return &envelope, nil
}
