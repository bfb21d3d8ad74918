package crypto

import (
	"crypto/rand"
	"sync"

	"github.com/free-web-movement/aex/internal/errs"
	"github.com/free-web-movement/aex/internal/xtime"
)

// SessionKeyManager owns the two-store SessionKey lifecycle from
// spec.md §4.9: a temp store for keys awaiting confirmation and a main
// store for established sessions, keyed by an opaque session id.
//
// Grounded on original_source/src/crypto/session_key_manager.rs's
// PairedSessionKey (temp: Mutex<HashMap<..>>, main: RwLock<HashMap<..>>),
// with nonce anti-replay supplemented via nonceRing.
type SessionKeyManager struct {
	idLength int

	mainMu sync.RWMutex
	main   map[string]*SessionKey

	tempMu sync.Mutex
	temp   map[string]*SessionKey

	replay *nonceRing
}

// NewSessionKeyManager returns a manager that generates session ids of
// idLength bytes.
func NewSessionKeyManager(idLength int) *SessionKeyManager {
	if idLength <= 0 {
		idLength = 16
	}
	return &SessionKeyManager{
		idLength: idLength,
		main:     make(map[string]*SessionKey),
		temp:     make(map[string]*SessionKey),
		replay:   newNonceRing(),
	}
}

func (m *SessionKeyManager) newID() (string, error) {
	id := make([]byte, m.idLength)
	if _, err := rand.Read(id); err != nil {
		return "", errs.New("generate session id").Base(err).AtError()
	}
	return string(id), nil
}

// Create generates a new session id and a fresh SessionKey in the temp
// store, returning the id and its ephemeral public key.
func (m *SessionKeyManager) Create() (id string, ephemeralPublic [32]byte, err error) {
	id, err = m.newID()
	if err != nil {
		return "", ephemeralPublic, err
	}
	sk, err := NewSessionKey()
	if err != nil {
		return "", ephemeralPublic, err
	}
	m.tempMu.Lock()
	m.temp[id] = sk
	m.tempMu.Unlock()
	return id, sk.EphemeralPublic(), nil
}

// Save moves fromID's SessionKey out of temp and into main under toID,
// touching it. It errors if no such pending session exists. fromID and
// toID may differ, matching
// original_source/src/crypto/session_key_manager.rs's
// save(&self, from: Vec<u8>, to: Vec<u8>), which re-keys the entry rather
// than assuming the main-store id equals the temp-store id it was
// created under.
func (m *SessionKeyManager) Save(fromID, toID string) error {
	m.tempMu.Lock()
	sk, ok := m.temp[fromID]
	if ok {
		delete(m.temp, fromID)
	}
	m.tempMu.Unlock()
	if !ok {
		return errs.New("temp session not found").AtWarning()
	}
	sk.Touch()
	m.mainMu.Lock()
	m.main[toID] = sk
	m.mainMu.Unlock()
	return nil
}

func (m *SessionKeyManager) lookup(id string) (*SessionKey, error) {
	m.mainMu.RLock()
	sk, ok := m.main[id]
	m.mainMu.RUnlock()
	if !ok {
		return nil, errs.New("session not found for address").AtWarning()
	}
	return sk, nil
}

// SessionEstablish completes key agreement for an already-saved session.
func (m *SessionKeyManager) SessionEstablish(id string, peerPublic [32]byte) error {
	sk, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := sk.Establish(peerPublic); err != nil {
		return err
	}
	sk.Touch()
	return nil
}

// Encrypt looks up id's established session and encrypts plaintext.
func (m *SessionKeyManager) Encrypt(id string, plaintext []byte) ([]byte, error) {
	sk, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	out, err := sk.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	sk.Touch()
	return out, nil
}

// Decrypt looks up id's established session and decrypts data, rejecting
// a nonce that has already been observed for this session id.
func (m *SessionKeyManager) Decrypt(id string, data []byte) ([]byte, error) {
	sk, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if len(data) < nonceSize {
		return nil, errs.New("ciphertext too short").AtWarning()
	}
	replayKey := make([]byte, 0, len(id)+nonceSize)
	replayKey = append(replayKey, id...)
	replayKey = append(replayKey, data[:nonceSize]...)
	if m.replay.checkAndAdd(replayKey) {
		return nil, errs.New("nonce already used for this session").AtWarning()
	}
	pt, err := sk.Decrypt(data)
	if err != nil {
		return nil, err
	}
	sk.Touch()
	return pt, nil
}

// Cleanup drops every entry, in both stores, whose last touch is older
// than ttlMillis.
func (m *SessionKeyManager) Cleanup(ttlMillis int64) {
	m.tempMu.Lock()
	for id, sk := range m.temp {
		if xtime.IsExpired(sk.UpdatedAt(), ttlMillis) {
			delete(m.temp, id)
		}
	}
	m.tempMu.Unlock()

	m.mainMu.Lock()
	for id, sk := range m.main {
		if xtime.IsExpired(sk.UpdatedAt(), ttlMillis) {
			delete(m.main, id)
		}
	}
	m.mainMu.Unlock()
}

// Len reports the number of established sessions, mainly for tests and
// status reporting.
func (m *SessionKeyManager) Len() int {
	m.mainMu.RLock()
	defer m.mainMu.RUnlock()
	return len(m.main)
}
