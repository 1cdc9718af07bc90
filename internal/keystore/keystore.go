// Package keystore owns the process signing key. It hides hardware versus
// software key generation behind a uniform interface and guarantees the
// application is never left without a signing key: acquisition walks an
// ordered tier chain and pins the first tier that succeeds for the rest of
// the session.
package keystore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"cardex/internal/platform/metrics"
	dErrors "cardex/pkg/domain-errors"
	"cardex/pkg/platform/sentinel"
)

// legacyAliases are tags used by earlier releases; cleaned up best-effort on
// first acquisition.
var legacyAliases = []string{"contact-signing-key", "cardex-identity-v0"}

// Store owns the signing key and its acquisition/fallback state.
type Store struct {
	alias   string
	backend Backend
	log     *log.Logger
	metrics *metrics.Metrics

	sessionID string

	mu         sync.Mutex
	pinned     Handle
	pinnedTier Tier
	cleanedUp  bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger for fallback diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics records achieved-tier counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New constructs a Store over the given backend. The session id is unique per
// process launch so stale store entries from prior launches cannot collide
// with this session's key.
func New(alias string, backend Backend, opts ...Option) *Store {
	s := &Store{
		alias:     alias,
		backend:   backend,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// tag is the primary store tag for this session.
func (s *Store) tag() string {
	return s.alias + "." + s.sessionID
}

// sessionTag derives a fresh, session-scoped tag suffix from the
// process-lifetime-stable session id. Used by the session-scoped tier so a
// corrupted item under the primary tag cannot shadow the new key.
func (s *Store) sessionTag() string {
	r := hkdf.New(sha256.New, []byte(s.sessionID), []byte(s.alias), []byte("session-tag"))
	suffix := make([]byte, 8)
	if _, err := io.ReadFull(r, suffix); err != nil {
		// HKDF over in-memory inputs cannot fail; fall back to the raw id.
		return s.alias + ".session." + s.sessionID
	}
	return s.alias + ".session." + hex.EncodeToString(suffix)
}

// Tier reports the tier the pinned key was acquired on. Diagnostics only.
func (s *Store) Tier() Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinnedTier
}

// EnsureKey acquires the signing key if this session does not hold one yet.
// The acquisition order is: existing item under the session tag, hardware
// generation, software-persistent generation, session-scoped generation,
// in-memory last resort. Once a tier succeeds it is pinned; EnsureKey is
// idempotent and safe to retry.
func (s *Store) EnsureKey(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned != nil {
		return nil
	}
	return s.acquireLocked(ctx)
}

func (s *Store) acquireLocked(ctx context.Context) error {
	s.cleanupLegacyLocked(ctx)

	// Non-interactive existence probe: reuse an item generated earlier in
	// this session (e.g. by a concurrent caller that raced us to the store),
	// pinned at the tier it was generated at.
	if exists, err := s.backend.Exists(ctx, s.tag()); err == nil && exists {
		if h, tier, err := s.backend.Lookup(ctx, s.tag(), nil); err == nil {
			s.pin(h, tier)
			return nil
		}
	}

	hwHandle, hwErr := s.backend.Generate(ctx, s.tag(), TierHardware)
	if hwErr == nil {
		s.pin(hwHandle, TierHardware)
		return nil
	}
	s.logf("hardware key generation failed, falling back: %v", hwErr)

	// A duplicate-item conflict means a prior partial generation left material
	// behind; purge it before the software attempt so we never end up signing
	// with two different keys in one session.
	_ = s.backend.Delete(ctx, s.tag())

	swHandle, swErr := s.backend.Generate(ctx, s.tag(), TierSoftwarePersistent)
	if swErr == nil {
		s.pin(swHandle, TierSoftwarePersistent)
		return nil
	}
	s.logf("software-persistent key generation failed, falling back: %v", swErr)

	sessHandle, sessErr := s.backend.Generate(ctx, s.sessionTag(), TierSoftwareSession)
	if sessErr == nil {
		s.pin(sessHandle, TierSoftwareSession)
		return nil
	}
	s.logf("session-scoped key generation failed, falling back: %v", sessErr)

	memHandle, memErr := newInMemoryHandle()
	if memErr == nil {
		s.pin(memHandle, TierInMemory)
		return nil
	}

	return dErrors.Newf(dErrors.CodeKeyManagement,
		"all key tiers failed: hardware: %v; software: %v; session: %v; memory: %v",
		hwErr, swErr, sessErr, memErr)
}

func (s *Store) pin(h Handle, tier Tier) {
	s.pinned = h
	s.pinnedTier = tier
	if s.metrics != nil {
		s.metrics.ObserveKeyTier(tier.String())
	}
}

// SigningHandle returns the session's signing handle. Retrieval mirrors
// generation: the pinned handle is checked first, then the store without
// authentication, then with the supplied authentication context when the
// backend reports an interactive unlock is needed, then a single on-demand
// generate-and-retry when the item is missing entirely.
func (s *Store) SigningHandle(ctx context.Context, auth *AuthContext) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pinned != nil {
		return s.pinned, nil
	}

	h, tier, err := s.lookupLocked(ctx, auth)
	if err == nil {
		s.pin(h, tier)
		return h, nil
	}
	if !isNotFound(err) {
		return nil, dErrors.Wrap(err, dErrors.CodeKeyManagement, "retrieve signing key")
	}

	if err := s.acquireLocked(ctx); err != nil {
		return nil, err
	}
	return s.pinned, nil
}

func (s *Store) lookupLocked(ctx context.Context, auth *AuthContext) (Handle, Tier, error) {
	h, tier, err := s.backend.Lookup(ctx, s.tag(), nil)
	if err == nil {
		return h, tier, nil
	}
	if isInteractionRequired(err) && auth != nil {
		return s.backend.Lookup(ctx, s.tag(), auth)
	}
	return nil, 0, err
}

// PublicJWK returns the canonical JWK of the signing key's public half.
// Stable across calls until ResetKey.
func (s *Store) PublicJWK(ctx context.Context, auth *AuthContext) (PublicKeyJWK, error) {
	h, err := s.SigningHandle(ctx, auth)
	if err != nil {
		return PublicKeyJWK{}, err
	}
	return JWKFromPublicKey(h.Public()), nil
}

// DeleteKey removes the session's key material from the backend and clears
// the pinned handle. Missing items are not an error.
func (s *Store) DeleteKey(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.backend.Delete(ctx, s.tag())
	_ = s.backend.Delete(ctx, s.sessionTag())
	s.pinned = nil
	s.pinnedTier = 0
}

// ResetKey purges the current key material and acquires a fresh key.
func (s *Store) ResetKey(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.backend.Delete(ctx, s.tag())
	_ = s.backend.Delete(ctx, s.sessionTag())
	s.pinned = nil
	s.pinnedTier = 0
	return s.acquireLocked(ctx)
}

// cleanupLegacyLocked deletes key material tagged under legacy aliases.
// Best-effort: failures are logged and never surfaced.
func (s *Store) cleanupLegacyLocked(ctx context.Context) {
	if s.cleanedUp {
		return
	}
	s.cleanedUp = true
	for _, alias := range legacyAliases {
		if alias == s.alias {
			continue
		}
		if err := s.backend.Delete(ctx, alias); err != nil && !isNotFound(err) {
			s.logf("legacy alias %q cleanup failed: %v", alias, err)
		}
	}
}

func (s *Store) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf("keystore: "+format, args...)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

func isInteractionRequired(err error) bool {
	return errors.Is(err, sentinel.ErrInteractionRequired)
}
