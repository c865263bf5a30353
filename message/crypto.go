package message

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrCiphertextTooShort is returned by DecryptPayload when a ciphertext is
// shorter than the AES-GCM nonce it's supposed to be prefixed with.
var ErrCiphertextTooShort = errors.New("message: ciphertext too short for nonce")

// EncryptPayload seals plaintext with AES-GCM under key (16/24/32 bytes for
// AES-128/192/256) and returns nonce||ciphertext. Adapted from the
// teacher's envelop.EncryptInner; unlike the message kinds in message.go
// this is not exercised by the core DHT path, but is kept as a building block for a
// payload-bearing message extension. AAD is nil, matching the teacher's
// first-cut choice.
func EncryptPayload(key, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("message: nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ciphertext...), nil
}

// DecryptPayload is the inverse of EncryptPayload.
func DecryptPayload(key, sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("message: open: %w", err)
	}
	return plain, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("message: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
