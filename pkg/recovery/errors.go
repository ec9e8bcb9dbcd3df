package recovery

import "errors"

var (
	// ErrRecoveryUnauthorized is returned when recovery is attempted
	// without a justification
	ErrRecoveryUnauthorized = errors.New("emergency recovery requires a justification")

	// ErrNilFederationLookup is returned when no federation lookup is wired
	ErrNilFederationLookup = errors.New("recovery requires a federation lookup")

	// ErrAuditRequired is returned when no audit logger is wired
	ErrAuditRequired = errors.New("recovery requires an audit logger")
)
