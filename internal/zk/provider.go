// Package zk holds the zero-knowledge identity capability used for group
// membership. The proof system is opaque to the rest of the module; callers
// only ever see commitments and proof envelopes.
package zk

import (
	"context"
	"time"
)

// IdentityBundle is a ZK identity: secret key material plus the public
// commitment group rosters reference.
type IdentityBundle struct {
	Commitment string    `json:"commitment"`
	PrivateKey []byte    `json:"privateKey"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Proof is an opaque membership proof envelope.
type Proof struct {
	Commitment string `json:"commitment"`
	Signal     string `json:"signal"`
	Digest     string `json:"digest"`
}

// Provider is the ZK identity capability. Implementations own key material;
// callers never inspect proof internals.
type Provider interface {
	// LoadOrCreateIdentity returns the current identity, creating one
	// lazily on first use.
	LoadOrCreateIdentity(ctx context.Context) (IdentityBundle, error)
	// ImportIdentity replaces the current identity with one derived from
	// raw private key bytes (32 or 64 bytes).
	ImportIdentity(ctx context.Context, privateKey []byte) (IdentityBundle, error)
	// GenerateProof produces a membership proof binding the identity to a
	// signal.
	GenerateProof(ctx context.Context, signal string) (Proof, error)
	// VerifyProof checks a proof envelope. A false return is a normal
	// outcome, not an error.
	VerifyProof(ctx context.Context, proof Proof) (bool, error)
}
