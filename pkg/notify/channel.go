package notify

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/Caqil/fedsign/pkg/crypto/rand"
)

// channelSalt and channelInfo bind derived keys to this protocol so a
// recipient key reused elsewhere never yields the same AEAD key.
var (
	channelSalt = []byte("fedsign-notify-v1")
	channelInfo = []byte("participant-channel")
)

// Channel seals notifications for a single recipient using a key
// derived from the shared recipient secret with HKDF-SHA256 and sealed
// with AES-256-GCM. Each participant gets their own channel, so no
// notification is readable by any other member of the federation.
type Channel struct {
	aead cipher.AEAD
}

// NewChannel derives a per-recipient channel from the shared secret
// established with that participant.
func NewChannel(recipientSecret []byte, participantID string) (*Channel, error) {
	if len(recipientSecret) < 32 {
		return nil, ErrWeakRecipientKey
	}

	info := append(append([]byte{}, channelInfo...), participantID...)
	kdf := hkdf.New(sha256.New, recipientSecret, channelSalt, info)

	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, ErrSealFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrSealFailed
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrSealFailed
	}

	return &Channel{aead: aead}, nil
}

// Seal encrypts an encoded envelope: nonce || ciphertext+tag.
func (c *Channel) Seal(plaintext []byte) ([]byte, error) {
	nonce, err := rand.Bytes(c.aead.NonceSize())
	if err != nil {
		return nil, ErrSealFailed
	}

	ciphertext := c.aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, len(nonce)+len(ciphertext))
	copy(out, nonce)
	copy(out[len(nonce):], ciphertext)
	return out, nil
}

// Open decrypts a sealed notification and verifies its tag.
func (c *Channel) Open(sealed []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize+c.aead.Overhead() {
		return nil, ErrOpenFailed
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, ErrOpenFailed
	}

	return plaintext, nil
}
