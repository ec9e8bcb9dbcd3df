// Package main walks a 3-of-5 family federation through its whole life:
// dealing keys, approving and signing an event, and an emergency
// recovery with the guardians' shares.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/Caqil/fedsign/internal/math"
	"github.com/Caqil/fedsign/pkg/aggregate"
	"github.com/Caqil/fedsign/pkg/audit"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
	"github.com/Caqil/fedsign/pkg/federation"
	"github.com/Caqil/fedsign/pkg/keygen"
	"github.com/Caqil/fedsign/pkg/logger"
	"github.com/Caqil/fedsign/pkg/notify"
	"github.com/Caqil/fedsign/pkg/recovery"
	"github.com/Caqil/fedsign/pkg/session"
	"github.com/Caqil/fedsign/pkg/sharecrypt"
)

// consoleMessenger delivers sealed notifications by opening them with
// the recipient's channel key and printing them, standing in for a real
// push transport.
type consoleMessenger struct {
	channelKeys map[string][]byte
}

func (m *consoleMessenger) Deliver(_ context.Context, participantID string, sealed []byte) error {
	channel, err := notify.NewChannel(m.channelKeys[participantID], participantID)
	if err != nil {
		return err
	}
	plaintext, err := channel.Open(sealed)
	if err != nil {
		return err
	}
	envelope, err := notify.DecodeEnvelope(plaintext)
	if err != nil {
		return err
	}

	switch envelope.Type {
	case notify.TypeSigningRequest:
		fmt.Printf("  [notify → %-7s] signing request for session %s\n",
			participantID, envelope.SigningRequest.SessionID[:8])
	case notify.TypeCompletionNotice:
		fmt.Printf("  [notify → %-7s] outcome: %s\n",
			participantID, envelope.CompletionNotice.Outcome)
	}
	return nil
}

// consolePublisher prints artifacts instead of relaying them anywhere.
type consolePublisher struct{ published int }

func (p *consolePublisher) Publish(_ context.Context, federationID string, _, signature []byte) (string, error) {
	p.published++
	fmt.Printf("  [publisher] federation %s produced signature %x...\n",
		federationID, signature[:16])
	return fmt.Sprintf("artifact-%d", p.published), nil
}

// consoleGate approves every request after announcing it, standing in
// for a hardware second factor.
type consoleGate struct{}

func (consoleGate) Approved(_ context.Context, federationID string, _ []byte) (bool, error) {
	fmt.Printf("  [gate] physical second factor confirmed for %s\n", federationID)
	return true, nil
}

// fedDirectory serves one fixed federation configuration.
type fedDirectory struct{ cfg *federation.Config }

func (d *fedDirectory) Federation(_ context.Context, federationID string) (*federation.Config, error) {
	if federationID != d.cfg.FederationID {
		return nil, errors.New("unknown federation")
	}
	return d.cfg, nil
}

func banner(title string) {
	fmt.Println("\n" + strings.Repeat("=", 52))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 52))
}

func main() {
	fmt.Println("=== Family Quorum Demo: 3-of-5 Threshold Signing ===")

	names := []string{"alice", "bob", "carol", "dave", "erin"}
	threshold := 3

	// ========================================
	// Part 1: Deal the federation
	// ========================================
	banner("PART 1: FEDERATION KEY GENERATION")

	codec, err := sharecrypt.NewCodec(nil)
	if err != nil {
		log.Fatal(err)
	}
	dealer, err := keygen.NewDealer(codec, logger.Nop())
	if err != nil {
		log.Fatal(err)
	}

	channelKeys := make(map[string][]byte, len(names))
	participants := make([]keygen.Participant, len(names))
	for i, name := range names {
		key := make([]byte, 32)
		copy(key, "channel-"+name)
		channelKeys[name] = key
		participants[i] = keygen.Participant{
			ID:         name,
			ChannelKey: key,
			Credential: []byte("passphrase-" + name),
		}
	}

	result, err := dealer.GenerateFederation("family-1", participants, threshold, curve.Secp256k1)
	if err != nil {
		log.Fatal(err)
	}
	if err := keygen.VerifyFederation(result.Config, result.Proof); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("✓ Federation %q dealt: %d guardians, threshold %d\n",
		result.Config.FederationID, len(names), threshold)
	fmt.Printf("✓ Group public key: %x...\n", result.Config.GroupPublicKey[:16])
	fmt.Println("✓ Dealer's proof of possession verified")

	// ========================================
	// Part 2: Guardians unlock their shares
	// ========================================
	banner("PART 2: GUARDIANS UNLOCK THEIR SHARES")

	shares := make(map[string]*math.Share, len(names))
	shareIndexes := make(map[string]int, len(names))
	for i, name := range names {
		raw, err := codec.Decrypt(result.EncryptedShares[i], participants[i].Credential)
		if err != nil {
			log.Fatal(err)
		}
		shareIndexes[name] = result.EncryptedShares[i].ShareIndex
		shares[name] = &math.Share{
			Index: big.NewInt(int64(result.EncryptedShares[i].ShareIndex)),
			Value: new(big.Int).SetBytes(raw),
		}
		fmt.Printf("✓ %s opened share #%d with their credential\n",
			name, shares[name].Index)
	}

	// ========================================
	// Part 3: A signing session
	// ========================================
	banner("PART 3: SIGNING SESSION (alice, bob, carol)")

	publisher := &consolePublisher{}
	manager, err := session.NewManager(&session.ManagerConfig{
		Store:       session.NewMemStore(),
		Federations: &fedDirectory{cfg: result.Config},
		Notifier:    notify.NewNotifier(&consoleMessenger{channelKeys: channelKeys}, logger.Nop(), nil),
		Publisher:   publisher,
		Gate:        consoleGate{},
		Logger:      logger.Nop(),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	event := []byte(`{"kind":1,"content":"family statement, signed by quorum"}`)

	fmt.Println("\nCreating session...")
	sess, err := manager.CreateSession(ctx, "family-1", event, threshold)
	if err != nil {
		log.Fatal(err)
	}

	cv, err := curve.New(curve.Secp256k1)
	if err != nil {
		log.Fatal(err)
	}
	agg, err := aggregate.New(cv)
	if err != nil {
		log.Fatal(err)
	}
	field, err := math.NewField(cv.Order())
	if err != nil {
		log.Fatal(err)
	}

	quorum := names[:threshold]
	nonces := make(map[string]*big.Int, threshold)
	noncePoints := make(map[int]*curve.Point, threshold)

	fmt.Println("\nRound 1: nonce commitments")
	for _, name := range quorum {
		nonce, err := field.RandomScalar()
		if err != nil {
			log.Fatal(err)
		}
		point, err := cv.ScalarBaseMult(nonce)
		if err != nil {
			log.Fatal(err)
		}
		nonces[name] = nonce
		noncePoints[shareIndexes[name]] = point

		commitment, err := agg.CommitNonce(point, sess.SessionID, sess.EventHash)
		if err != nil {
			log.Fatal(err)
		}
		if err := manager.SubmitNonceCommitment(ctx, sess.SessionID, name, commitment); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("✓ %s committed to their nonce\n", name)
	}

	fmt.Println("\nRound 2: partial signatures")
	R, err := agg.GroupNonce(noncePoints)
	if err != nil {
		log.Fatal(err)
	}
	for _, name := range quorum {
		partial, err := agg.PartialSign(shares[name].Value, nonces[name], R, sess.EventHash)
		if err != nil {
			log.Fatal(err)
		}
		err = manager.SubmitPartialSignature(ctx, sess.SessionID, name,
			cv.Marshal(noncePoints[shareIndexes[name]]), partial.Bytes())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("✓ %s submitted their partial signature\n", name)
	}

	final, err := manager.Session(ctx, sess.SessionID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\n✓ Session status: %s\n", final.Status)
	fmt.Printf("✓ Published as %s\n", final.FinalArtifactID)
	fmt.Printf("✓ Final signature: %x...\n", final.FinalSignature[:16])
	fmt.Println("  (dave and erin were told the event completed without their input)")

	// ========================================
	// Part 4: Emergency recovery
	// ========================================
	banner("PART 4: EMERGENCY RECOVERY")

	auditPath := filepath.Join(os.TempDir(), "family-quorum-audit.log")
	auditLog, err := audit.NewLogger(auditPath)
	if err != nil {
		log.Fatal(err)
	}
	defer auditLog.Close()

	coordinator, err := recovery.NewCoordinator(
		&fedDirectory{cfg: result.Config}, logger.Nop(), auditLog)
	if err != nil {
		log.Fatal(err)
	}

	recovered, err := coordinator.Recover(ctx, "family-1",
		[]*math.Share{shares["bob"], shares["dave"], shares["erin"]},
		"owner lost all devices, guardians verified identity in person")
	if err != nil {
		log.Fatal(err)
	}

	groupKey, err := cv.ScalarBaseMult(new(big.Int).SetBytes(recovered))
	if err != nil {
		log.Fatal(err)
	}
	if fmt.Sprintf("%x", cv.Marshal(groupKey)) != fmt.Sprintf("%x", result.Config.GroupPublicKey) {
		log.Fatal("recovered secret does not match the group key")
	}

	fmt.Println("✓ Three guardians reconstructed the group secret")
	fmt.Println("✓ Recovered secret matches the published group key")
	fmt.Printf("✓ Recovery audited to %s\n", auditPath)

	fmt.Println("\n=== Demo complete ===")
}
