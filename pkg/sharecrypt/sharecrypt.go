// Package sharecrypt encrypts and decrypts a single participant's
// long-term secret-sharing share at rest. Keys are derived from the
// participant's credential with Argon2id; the share itself is sealed
// with AES-256-GCM. Plaintext shares never leave the calling stack.
package sharecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/Caqil/fedsign/internal/security"
	"github.com/Caqil/fedsign/pkg/crypto/rand"
)

// KDFParams records the Argon2id parameters a share was sealed with, so
// decryption keeps working after defaults change.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
}

// EncryptedShare is the at-rest form of one participant's share.
// The GCM authentication tag is appended to Ciphertext.
type EncryptedShare struct {
	FederationID  string    `json:"federation_id"`
	ParticipantID string    `json:"participant_id"`
	ShareIndex    int       `json:"share_index"`
	Ciphertext    []byte    `json:"ciphertext"`
	Nonce         []byte    `json:"nonce"`
	Salt          []byte    `json:"salt"`
	KDF           KDFParams `json:"kdf"`
	CreatedAt     time.Time `json:"created_at"`
}

// Config holds the codec's KDF cost parameters.
type Config struct {
	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8
	Argon2KeyLen  uint32
}

// DefaultConfig returns production KDF costs: 3 iterations, 64 MB, 4 lanes.
func DefaultConfig() *Config {
	return &Config{
		Argon2Time:    3,
		Argon2Memory:  64 * 1024,
		Argon2Threads: 4,
		Argon2KeyLen:  32,
	}
}

// Validate checks the KDF parameters against safe minimums.
func (c *Config) Validate() error {
	if c.Argon2Time < 1 {
		return ErrWeakKDFParams
	}
	if c.Argon2Memory < 8*1024 {
		return ErrWeakKDFParams
	}
	if c.Argon2Threads < 1 {
		return ErrWeakKDFParams
	}
	if c.Argon2KeyLen != 32 {
		return ErrWeakKDFParams
	}
	return nil
}

// Codec seals and opens shares for one federation.
type Codec struct {
	cfg *Config
}

// NewCodec creates a share codec with the given KDF configuration.
func NewCodec(cfg *Config) (*Codec, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Codec{cfg: cfg}, nil
}

// Encrypt seals a raw share under a key derived from the participant's
// credential. The raw credential is never used as key material directly.
func (c *Codec) Encrypt(rawShare, credential []byte, federationID, participantID string, shareIndex int) (*EncryptedShare, error) {
	if len(rawShare) == 0 {
		return nil, ErrEmptyShare
	}
	if len(credential) == 0 {
		return nil, ErrEmptyCredential
	}
	if shareIndex <= 0 {
		return nil, ErrInvalidShareIndex
	}

	salt, err := rand.Bytes(32)
	if err != nil {
		return nil, err
	}

	key := c.deriveKey(credential, salt)
	defer security.Wipe(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce, err := rand.Bytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	// Bind the ciphertext to its owner so shares cannot be swapped
	// between participants or federations
	aad := additionalData(federationID, participantID, shareIndex)
	ciphertext := aead.Seal(nil, nonce, rawShare, aad)

	return &EncryptedShare{
		FederationID:  federationID,
		ParticipantID: participantID,
		ShareIndex:    shareIndex,
		Ciphertext:    ciphertext,
		Nonce:         nonce,
		Salt:          salt,
		KDF: KDFParams{
			Time:    c.cfg.Argon2Time,
			Memory:  c.cfg.Argon2Memory,
			Threads: c.cfg.Argon2Threads,
			KeyLen:  c.cfg.Argon2KeyLen,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Decrypt opens an encrypted share. A failed authentication returns
// ErrDecryptionFailed and nothing else; there is no best-effort output.
// The caller must wipe the returned bytes immediately after use.
func (c *Codec) Decrypt(share *EncryptedShare, credential []byte) ([]byte, error) {
	if share == nil || len(share.Ciphertext) == 0 {
		return nil, ErrEmptyShare
	}
	if len(credential) == 0 {
		return nil, ErrEmptyCredential
	}

	key := argon2.IDKey(credential, share.Salt,
		share.KDF.Time, share.KDF.Memory, share.KDF.Threads, share.KDF.KeyLen)
	defer security.Wipe(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(share.Nonce) != aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	aad := additionalData(share.FederationID, share.ParticipantID, share.ShareIndex)
	plaintext, err := aead.Open(nil, share.Nonce, share.Ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// deriveKey derives an AES-256 key from a credential using Argon2id.
func (c *Codec) deriveKey(credential, salt []byte) []byte {
	return argon2.IDKey(credential, salt,
		c.cfg.Argon2Time, c.cfg.Argon2Memory, c.cfg.Argon2Threads, c.cfg.Argon2KeyLen)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEncryptionFailed
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryptionFailed
	}

	return aead, nil
}

func additionalData(federationID, participantID string, shareIndex int) []byte {
	aad := make([]byte, 0, len(federationID)+len(participantID)+8)
	aad = append(aad, federationID...)
	aad = append(aad, 0)
	aad = append(aad, participantID...)
	aad = append(aad, 0, byte(shareIndex>>8), byte(shareIndex))
	return aad
}
