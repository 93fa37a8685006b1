package auth

import (
	"errors"
	"sync"
)

// SigningKey pairs a key identifier with its HMAC secret.
type SigningKey struct {
	ID     string
	Secret []byte
}

// KeyProvider supplies the key used to sign new tokens plus the full set of
// keys still accepted for verification, allowing zero-downtime secret
// rotation: rotate in a new signing key while old tokens stay verifiable
// until they expire.
type KeyProvider interface {
	SigningKey() SigningKey
	VerificationKeys() map[string][]byte
}

// KeyRing is an in-process, hot-reloadable KeyProvider.
type KeyRing struct {
	mu      sync.RWMutex
	current SigningKey
	keys    map[string][]byte
}

// NewKeyRing builds a ring whose newest key signs and whose full set verifies.
// The first key is the signing key; extras are verification-only.
func NewKeyRing(keys ...SigningKey) (*KeyRing, error) {
	if len(keys) == 0 {
		return nil, errors.New("key ring requires at least one key")
	}
	ring := &KeyRing{keys: make(map[string][]byte, len(keys))}
	for _, key := range keys {
		if key.ID == "" || len(key.Secret) == 0 {
			return nil, errors.New("key ring entries require id and secret")
		}
		ring.keys[key.ID] = key.Secret
	}
	ring.current = keys[0]
	return ring, nil
}

// SigningKey returns the key new tokens are signed with.
func (r *KeyRing) SigningKey() SigningKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// VerificationKeys returns a snapshot of every accepted verification key.
func (r *KeyRing) VerificationKeys() map[string][]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string][]byte, len(r.keys))
	for kid, secret := range r.keys {
		snapshot[kid] = secret
	}
	return snapshot
}

// Rotate installs a new signing key. Previous keys remain verification-only
// until retired.
func (r *KeyRing) Rotate(key SigningKey) error {
	if key.ID == "" || len(key.Secret) == 0 {
		return errors.New("rotated key requires id and secret")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.ID] = key.Secret
	r.current = key
	return nil
}

// Retire removes a verification key. The active signing key cannot be retired.
func (r *KeyRing) Retire(kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kid == r.current.ID {
		return errors.New("cannot retire the active signing key")
	}
	delete(r.keys, kid)
	return nil
}
