package keystore

import (
	"context"
	"crypto/ecdsa"
)

// Tier identifies where key material lives. The achieved tier is exposed for
// diagnostics only; callers must never branch on it.
type Tier int

const (
	// TierHardware keys are generated inside the secure element and never
	// leave it.
	TierHardware Tier = iota
	// TierSoftwarePersistent keys are software generated but persisted in the
	// platform store under the session tag.
	TierSoftwarePersistent
	// TierSoftwareSession keys are persisted under a fresh session-scoped tag
	// so a stale or corrupted store entry cannot shadow them.
	TierSoftwareSession
	// TierInMemory keys live only in process memory and are never written to
	// the store.
	TierInMemory
)

func (t Tier) String() string {
	switch t {
	case TierHardware:
		return "hardware"
	case TierSoftwarePersistent:
		return "software_persistent"
	case TierSoftwareSession:
		return "software_session"
	case TierInMemory:
		return "in_memory"
	default:
		return "unknown"
	}
}

// AuthContext is an opaque capability token authorizing access to key items
// that require an interactive unlock. It is constructed at the composition
// root, never deep in leaf functions.
type AuthContext struct {
	reason string
}

// NewAuthContext builds an authentication context carrying the user-facing
// reason for the unlock prompt.
func NewAuthContext(reason string) *AuthContext {
	return &AuthContext{reason: reason}
}

// Reason returns the prompt reason.
func (a *AuthContext) Reason() string {
	if a == nil {
		return ""
	}
	return a.reason
}

// Handle is an opaque signing handle. The private half never leaves the
// backend that produced it.
type Handle interface {
	// Sign produces a DER-encoded ECDSA signature over SHA-256 of message.
	// Backends may block on an interactive unlock; treat this as a
	// long-latency operation.
	Sign(ctx context.Context, message []byte) ([]byte, error)
	// Public returns the public half of the key pair.
	Public() *ecdsa.PublicKey
}

// Backend abstracts the platform key store. Generate failures are reported
// with sentinel errors: ErrUnavailable when the requested tier cannot be
// served, ErrConflict when an item already exists under the tag.
type Backend interface {
	Generate(ctx context.Context, tag string, tier Tier) (Handle, error)
	// Lookup returns the handle and the tier the item was generated at, so
	// reuse reports the achieved tier honestly. ErrNotFound when no item
	// exists under the tag, ErrInteractionRequired when the item needs an
	// interactive unlock and auth is nil.
	Lookup(ctx context.Context, tag string, auth *AuthContext) (Handle, Tier, error)
	Exists(ctx context.Context, tag string) (bool, error)
	Delete(ctx context.Context, tag string) error
}
