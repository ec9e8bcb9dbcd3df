// Package recovery implements audited emergency reconstruction of a
// federation's signing secret from participant-supplied shares. This
// path exists for account recovery only: it bypasses the signing
// session flow entirely and nothing in the session manager can reach
// it. Every invocation, successful or not, produces an audit record
// before the secret is returned.
package recovery

import (
	"context"
	"strings"

	"github.com/Caqil/fedsign/internal/math"
	"github.com/Caqil/fedsign/internal/security"
	"github.com/Caqil/fedsign/pkg/audit"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
	"github.com/Caqil/fedsign/pkg/federation"
	"github.com/Caqil/fedsign/pkg/logger"
)

// FederationLookup resolves a federation's immutable configuration.
// Declared here so the recovery path carries no dependency on the
// signing session packages.
type FederationLookup interface {
	Federation(ctx context.Context, federationID string) (*federation.Config, error)
}

// Coordinator performs emergency share reconstruction.
type Coordinator struct {
	federations FederationLookup
	log         *logger.Logger
	auditLog    *audit.Logger
}

// NewCoordinator creates a recovery coordinator. The audit logger is
// required: unaudited recovery is not a supported configuration.
func NewCoordinator(federations FederationLookup, log *logger.Logger, auditLog *audit.Logger) (*Coordinator, error) {
	if federations == nil {
		return nil, ErrNilFederationLookup
	}
	if auditLog == nil {
		return nil, ErrAuditRequired
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Coordinator{
		federations: federations,
		log:         log,
		auditLog:    auditLog,
	}, nil
}

// Recover reconstructs the federation's signing secret from the
// supplied shares. It requires the federation's full threshold and a
// non-empty justification; the audit record is written before the
// secret is handed back. The caller owns the returned scalar's bytes
// and must wipe them immediately after use.
func (c *Coordinator) Recover(ctx context.Context, federationID string, shares []*math.Share, justification string) ([]byte, error) {
	if strings.TrimSpace(justification) == "" {
		c.auditLog.LogRecovery(federationID, justification, len(shares), false, ErrRecoveryUnauthorized)
		return nil, ErrRecoveryUnauthorized
	}

	cfg, err := c.federations.Federation(ctx, federationID)
	if err != nil {
		c.auditLog.LogRecovery(federationID, justification, len(shares), false, err)
		return nil, err
	}

	cv, err := curve.New(cfg.CurveType)
	if err != nil {
		c.auditLog.LogRecovery(federationID, justification, len(shares), false, err)
		return nil, err
	}

	field, err := math.NewField(cv.Order())
	if err != nil {
		c.auditLog.LogRecovery(federationID, justification, len(shares), false, err)
		return nil, err
	}

	sharing, err := math.NewSharing(cfg.Threshold, len(cfg.Participants), field)
	if err != nil {
		c.auditLog.LogRecovery(federationID, justification, len(shares), false, err)
		return nil, err
	}

	secret, err := sharing.Reconstruct(shares)
	if err != nil {
		c.log.Warn().
			Str("federation_id", federationID).
			Int("share_count", len(shares)).
			Err(err).
			Msg("emergency recovery failed")
		c.auditLog.LogRecovery(federationID, justification, len(shares), false, err)
		return nil, err
	}

	// The audit record lands before the secret leaves this function
	c.auditLog.LogRecovery(federationID, justification, len(shares), true, nil)

	c.log.Warn().
		Str("federation_id", federationID).
		Int("share_count", len(shares)).
		Msg("emergency recovery performed")

	// Only the returned buffer survives; the interpolated scalar is wiped
	out := secret.Bytes()
	security.WipeBigInt(secret)

	return out, nil
}
