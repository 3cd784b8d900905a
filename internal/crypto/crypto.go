// Package crypto seals history rows at rest with NaCl secretbox.
//
// Two 32-byte keys are derived from the user's passphrase with HKDF-SHA256:
// a secretbox key for row content and an HMAC key for the duplicate index,
// so identical content can be found without decrypting every row. Sealed
// rows carry a random 24-byte nonce prepended to the ciphertext:
//
//	[ 24-byte nonce ][ ciphertext ]
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32
	nonceSize = 24
)

var (
	sealInfo = []byte("bubbleclip-history-v1")
	macInfo  = []byte("bubbleclip-history-mac-v1")
)

// ErrDecrypt is returned by Open when the ciphertext does not authenticate.
var ErrDecrypt = errors.New("decryption failed (wrong passphrase?)")

// Keys holds the derived key pair. A nil Seal key means rows are stored in
// plaintext; the MAC key is always present.
type Keys struct {
	Seal *[KeySize]byte
	MAC  []byte
}

// DeriveKeys derives the key pair from passphrase. An empty passphrase
// yields a fixed MAC key and no sealing key.
func DeriveKeys(passphrase string) (Keys, error) {
	mac, err := derive(passphrase, macInfo)
	if err != nil {
		return Keys{}, err
	}
	k := Keys{MAC: mac[:]}
	if passphrase != "" {
		seal, err := derive(passphrase, sealInfo)
		if err != nil {
			return Keys{}, err
		}
		k.Seal = seal
	}
	return k, nil
}

func derive(secret string, info []byte) (*[KeySize]byte, error) {
	h := hkdf.New(sha256.New, []byte(secret), nil, info)
	var key [KeySize]byte
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return &key, nil
}

// MAC returns the hex HMAC-SHA256 of data under key.
func MAC(data, key []byte) string {
	m := hmac.New(sha256.New, key)
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}

// Seal encrypts plaintext with key, prepending a random nonce.
// Returns nonce+ciphertext.
func Seal(plaintext []byte, key *[KeySize]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts ciphertext (nonce+ciphertext) with key.
func Open(ciphertext []byte, key *[KeySize]byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	plain, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}
