package sharecrypt

import "errors"

var (
	// ErrEmptyShare is returned when there is no share material to seal or open
	ErrEmptyShare = errors.New("share cannot be empty")

	// ErrEmptyCredential is returned when no participant credential is supplied
	ErrEmptyCredential = errors.New("credential cannot be empty")

	// ErrInvalidShareIndex is returned when the share index is not positive
	ErrInvalidShareIndex = errors.New("share index must be positive")

	// ErrWeakKDFParams is returned when KDF costs fall below safe minimums
	ErrWeakKDFParams = errors.New("key derivation parameters are too weak")

	// ErrEncryptionFailed is returned when the AEAD cannot be constructed
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed is returned on authentication failure; no partial
	// or default plaintext is ever returned alongside it
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)
