package credential

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cardex/pkg/platform/sentinel"
)

// InMemoryLibrary stores credentials in memory for tests/dev.
type InMemoryLibrary struct {
	mu          sync.RWMutex
	credentials map[string]StoredCredential
}

// NewInMemoryLibrary constructs an empty in-memory credential library.
func NewInMemoryLibrary() *InMemoryLibrary {
	return &InMemoryLibrary{credentials: make(map[string]StoredCredential)}
}

func (l *InMemoryLibrary) Add(_ context.Context, cred IssuedCredential, status Status) (StoredCredential, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := StoredCredential{IssuedCredential: cred, Status: status}
	l.credentials[cred.CredentialID] = stored
	return stored, nil
}

func (l *InMemoryLibrary) Update(_ context.Context, stored StoredCredential) (StoredCredential, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.credentials[stored.CredentialID]; !ok {
		return StoredCredential{}, fmt.Errorf("credential %q: %w", stored.CredentialID, sentinel.ErrNotFound)
	}
	l.credentials[stored.CredentialID] = stored
	return stored, nil
}

func (l *InMemoryLibrary) FindByID(_ context.Context, credentialID string) (StoredCredential, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if stored, ok := l.credentials[credentialID]; ok {
		return stored, nil
	}
	return StoredCredential{}, fmt.Errorf("credential %q: %w", credentialID, sentinel.ErrNotFound)
}

func (l *InMemoryLibrary) List(_ context.Context) ([]StoredCredential, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]StoredCredential, 0, len(l.credentials))
	for _, stored := range l.credentials {
		out = append(out, stored)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}
