// Package crypto implements spec.md §3/§4.9's optional session-key layer:
// ephemeral X25519 key agreement producing a symmetric key used for
// authenticated XChaCha20-Poly1305 encryption, plus the two-store
// (temp/main) SessionKeyManager that owns SessionKey lifecycles.
//
// Grounded on original_source/src/crypto/{zero_trust_session_key,session_key_manager}.rs,
// using golang.org/x/crypto/curve25519 for X25519 (the same primitive the
// teacher exposes via its `x25519` CLI command) and
// golang.org/x/crypto/chacha20poly1305's NewX for the 24-byte-nonce AEAD.
package crypto

import (
	"crypto/rand"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"github.com/free-web-movement/aex/internal/errs"
	"github.com/free-web-movement/aex/internal/xtime"
)

const nonceSize = 24 // chacha20poly1305.NonceSizeX

// SessionKey holds one peer's ephemeral key-agreement state and, once
// established, the derived symmetric key.
type SessionKey struct {
	mu sync.Mutex

	ephemeralSecret [32]byte // zeroed once consumed by establish
	haveSecret      bool
	ephemeralPublic [32]byte

	symmetricKey [32]byte
	established  bool

	createdAt int64
	updatedAt int64
}

// NewSessionKey generates a fresh one-shot X25519 keypair.
func NewSessionKey() (*SessionKey, error) {
	sk := &SessionKey{
		createdAt: xtime.NowMillis(),
	}
	sk.updatedAt = sk.createdAt
	if _, err := rand.Read(sk.ephemeralSecret[:]); err != nil {
		return nil, errs.New("generate ephemeral secret").Base(err).AtError()
	}
	pub, err := curve25519.X25519(sk.ephemeralSecret[:], curve25519.Basepoint)
	if err != nil {
		return nil, errs.New("derive ephemeral public key").Base(err).AtError()
	}
	copy(sk.ephemeralPublic[:], pub)
	sk.haveSecret = true
	return sk, nil
}

// EphemeralPublic returns the public key a peer needs to complete
// establish.
func (sk *SessionKey) EphemeralPublic() [32]byte {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return sk.ephemeralPublic
}

func (sk *SessionKey) touch() {
	sk.updatedAt = xtime.NowMillis()
}

// Touch refreshes updatedAt, used by the manager after any legitimate use.
func (sk *SessionKey) Touch() {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	sk.touch()
}

// UpdatedAt returns the last-touched timestamp in Unix milliseconds.
func (sk *SessionKey) UpdatedAt() int64 {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return sk.updatedAt
}

// Establish consumes the ephemeral secret and derives the 32-byte
// symmetric key via ECDH with peerPublic. Calling it twice fails with
// "session already established".
func (sk *SessionKey) Establish(peerPublic [32]byte) error {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if !sk.haveSecret {
		return errs.New("session already established").AtWarning()
	}
	shared, err := curve25519.X25519(sk.ephemeralSecret[:], peerPublic[:])
	if err != nil {
		return errs.New("ECDH failed").Base(err).AtError()
	}
	copy(sk.symmetricKey[:], shared)
	sk.haveSecret = false
	sk.ephemeralSecret = [32]byte{}
	sk.established = true
	sk.touch()
	return nil
}

// Encrypt authenticates and encrypts plaintext with a fresh random 24-byte
// nonce, returning nonce||ciphertext.
func (sk *SessionKey) Encrypt(plaintext []byte) ([]byte, error) {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if !sk.established {
		return nil, errs.New("session not established").AtWarning()
	}
	aead, err := chacha20poly1305.NewX(sk.symmetricKey[:])
	if err != nil {
		return nil, errs.New("init AEAD").Base(err).AtError()
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errs.New("generate nonce").Base(err).AtError()
	}
	ct := aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(ct))
	out = append(out, nonce...)
	out = append(out, ct...)
	sk.touch()
	return out, nil
}

// Decrypt verifies and decrypts data, which must be nonce||ciphertext.
func (sk *SessionKey) Decrypt(data []byte) ([]byte, error) {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if !sk.established {
		return nil, errs.New("session not established").AtWarning()
	}
	if len(data) < nonceSize {
		return nil, errs.New("ciphertext too short").AtWarning()
	}
	nonce, ct := data[:nonceSize], data[nonceSize:]
	aead, err := chacha20poly1305.NewX(sk.symmetricKey[:])
	if err != nil {
		return nil, errs.New("init AEAD").Base(err).AtError()
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, errs.New("AEAD tag invalid").AtWarning()
	}
	sk.touch()
	return pt, nil
}
