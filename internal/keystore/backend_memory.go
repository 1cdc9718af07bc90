package keystore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync"

	"cardex/pkg/platform/sentinel"
)

// MemoryBackend is an in-process key backend used in tests, development and
// as the software fallback on platforms without a secure element. Faults can
// be injected to exercise every rung of the acquisition chain.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]*memoryItem

	// HardwareAvailable gates the hardware tier; when false, hardware
	// generation reports ErrUnavailable (simulator behaviour).
	HardwareAvailable bool

	// FailPersistent makes software-persistent generation fail with
	// ErrUnavailable (corrupted store behaviour).
	FailPersistent bool

	// FailSession makes session-tag generation fail too, forcing the
	// in-memory last resort.
	FailSession bool

	// ConflictOnGenerate reports ErrConflict on the first generate for a tag
	// even when no item exists, mimicking a duplicate-item race left behind
	// by a prior partial generation.
	ConflictOnGenerate bool

	// RequireAuth marks stored items as needing an interactive unlock.
	RequireAuth bool
}

type memoryItem struct {
	key         *ecdsa.PrivateKey
	tier        Tier
	requireAuth bool
}

// NewMemoryBackend constructs a backend with the hardware tier available.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]*memoryItem), HardwareAvailable: true}
}

func (b *MemoryBackend) Generate(_ context.Context, tag string, tier Tier) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch tier {
	case TierHardware:
		if !b.HardwareAvailable {
			return nil, fmt.Errorf("secure element: %w", sentinel.ErrUnavailable)
		}
	case TierSoftwarePersistent:
		if b.FailPersistent {
			return nil, fmt.Errorf("persistent store: %w", sentinel.ErrUnavailable)
		}
	case TierSoftwareSession:
		if b.FailSession {
			return nil, fmt.Errorf("session store: %w", sentinel.ErrUnavailable)
		}
	case TierInMemory:
		return nil, fmt.Errorf("in-memory keys are not backend items: %w", sentinel.ErrUnavailable)
	}

	if _, ok := b.items[tag]; ok {
		return nil, fmt.Errorf("item exists under tag %q: %w", tag, sentinel.ErrConflict)
	}
	if b.ConflictOnGenerate && tier == TierHardware {
		return nil, fmt.Errorf("duplicate item under tag %q: %w", tag, sentinel.ErrConflict)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	b.items[tag] = &memoryItem{key: key, tier: tier, requireAuth: b.RequireAuth}
	return &softwareHandle{key: key}, nil
}

func (b *MemoryBackend) Lookup(_ context.Context, tag string, auth *AuthContext) (Handle, Tier, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	item, ok := b.items[tag]
	if !ok {
		return nil, 0, fmt.Errorf("no item under tag %q: %w", tag, sentinel.ErrNotFound)
	}
	if item.requireAuth && auth == nil {
		return nil, 0, fmt.Errorf("item under tag %q: %w", tag, sentinel.ErrInteractionRequired)
	}
	return &softwareHandle{key: item.key}, item.tier, nil
}

func (b *MemoryBackend) Exists(_ context.Context, tag string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.items[tag]
	return ok, nil
}

func (b *MemoryBackend) Delete(_ context.Context, tag string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.items[tag]; !ok {
		return sentinel.ErrNotFound
	}
	delete(b.items, tag)
	return nil
}

// softwareHandle signs with an in-process ECDSA key. Signatures are
// DER-encoded, matching what platform signing primitives emit.
type softwareHandle struct {
	key *ecdsa.PrivateKey
}

func (h *softwareHandle) Sign(_ context.Context, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return ecdsa.SignASN1(rand.Reader, h.key, digest[:])
}

func (h *softwareHandle) Public() *ecdsa.PublicKey {
	return &h.key.PublicKey
}

// newInMemoryHandle generates a key that never touches any backend.
func newInMemoryHandle() (Handle, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &softwareHandle{key: key}, nil
}
