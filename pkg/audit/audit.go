// Package audit provides append-only JSON-lines audit logging for
// security-relevant events: session outcomes, rejected contributions,
// and every emergency recovery invocation.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Logger writes audit entries to an append-only file.
type Logger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	enabled  bool
	filePath string
}

// Entry is a single audit record.
type Entry struct {
	Timestamp     time.Time      `json:"timestamp"`
	EventType     string         `json:"event_type"`
	FederationID  string         `json:"federation_id,omitempty"`
	SessionID     string         `json:"session_id,omitempty"`
	ParticipantID string         `json:"participant_id,omitempty"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewLogger opens an audit log at filePath. An empty path disables
// auditing (every Log* call becomes a no-op).
func NewLogger(filePath string) (*Logger, error) {
	if filePath == "" {
		return &Logger{enabled: false}, nil
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &Logger{
		file:     file,
		encoder:  json.NewEncoder(file),
		enabled:  true,
		filePath: filePath,
	}, nil
}

// LogSessionCreated records a new signing session.
func (l *Logger) LogSessionCreated(federationID, sessionID string, threshold int) {
	l.write(&Entry{
		Timestamp:    time.Now().UTC(),
		EventType:    "session_created",
		FederationID: federationID,
		SessionID:    sessionID,
		Success:      true,
		Details:      map[string]any{"threshold": threshold},
	})
}

// LogSessionCompleted records a successfully signed session.
func (l *Logger) LogSessionCompleted(federationID, sessionID, artifactID string) {
	l.write(&Entry{
		Timestamp:    time.Now().UTC(),
		EventType:    "session_completed",
		FederationID: federationID,
		SessionID:    sessionID,
		Success:      true,
		Details:      map[string]any{"artifact_id": artifactID},
	})
}

// LogSessionFailed records a terminal session failure and its reason.
func (l *Logger) LogSessionFailed(federationID, sessionID string, err error) {
	entry := &Entry{
		Timestamp:    time.Now().UTC(),
		EventType:    "session_failed",
		FederationID: federationID,
		SessionID:    sessionID,
		Success:      false,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// LogContributionRejected records a rejected commitment or partial signature.
func (l *Logger) LogContributionRejected(sessionID, participantID, reason string) {
	l.write(&Entry{
		Timestamp:     time.Now().UTC(),
		EventType:     "contribution_rejected",
		SessionID:     sessionID,
		ParticipantID: participantID,
		Success:       false,
		Error:         reason,
	})
}

// LogRecovery records an emergency share reconstruction. This entry is
// written before the recovered secret is handed to the caller.
func (l *Logger) LogRecovery(federationID, justification string, shareCount int, success bool, err error) {
	entry := &Entry{
		Timestamp:    time.Now().UTC(),
		EventType:    "emergency_recovery",
		FederationID: federationID,
		Success:      success,
		Details: map[string]any{
			"justification": justification,
			"share_count":   shareCount,
		},
	}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// LogDeliveryFailure records a notification that could not be delivered.
func (l *Logger) LogDeliveryFailure(sessionID, participantID string, err error) {
	entry := &Entry{
		Timestamp:     time.Now().UTC(),
		EventType:     "notification_delivery_failed",
		SessionID:     sessionID,
		ParticipantID: participantID,
		Success:       false,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

func (l *Logger) write(entry *Entry) {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	if err := l.encoder.Encode(entry); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write audit log: %v\n", err)
	}
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
