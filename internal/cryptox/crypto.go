// Package cryptox holds the client-side crypto primitives: master key
// derivation from the decryption passphrase, the key verifier, and AES-GCM
// sealing of file payloads.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrMalformedPayload is returned when an encrypted payload is shorter than
// the nonce it must start with.
var ErrMalformedPayload = errors.New("malformed encrypted payload")

// MakeVerifier returns the value the backend stores to check a master key
// without learning it.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey derives a 32-byte key from the passphrase using Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, common.MasterKeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptBlob seals plaintext with AES-GCM under key and returns
// nonce||ciphertext, the layout served by the encrypted download endpoint.
func EncryptBlob(key, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())

	out := make([]byte, 0, len(nonce)+len(plaintext)+aesgcm.Overhead())
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// DecryptBlob opens a nonce||ciphertext payload produced by EncryptBlob.
//
// The key must be the same AES key (16, 24 or 32 bytes) used for sealing.
// Authentication failures (wrong key, tampered bytes) are returned as errors.
func DecryptBlob(key, payload []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(payload) < ns {
		return nil, ErrMalformedPayload
	}

	return aesgcm.Open(nil, payload[:ns], payload[ns:], nil)
}
