package zk

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	dErrors "cardex/pkg/domain-errors"
)

// Valid raw private key sizes for import.
const (
	privateKeySizeShort = 32
	privateKeySizeLong  = 64
)

// LocalProvider is a deterministic, in-process stand-in for a real proof
// system: the commitment is the SHA-256 of the private key and proofs are
// hash bindings of commitment and signal. Adequate for membership math and
// tests; not zero-knowledge.
type LocalProvider struct {
	mu      sync.Mutex
	current *IdentityBundle
	clock   func() time.Time
}

// NewLocalProvider constructs an empty local provider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{clock: time.Now}
}

func (p *LocalProvider) LoadOrCreateIdentity(_ context.Context) (IdentityBundle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return *p.current, nil
	}

	key := make([]byte, privateKeySizeShort)
	if _, err := rand.Read(key); err != nil {
		return IdentityBundle{}, dErrors.Wrap(err, dErrors.CodeCryptographic, "generate zk private key")
	}
	bundle := newBundle(key, p.clock().UTC())
	p.current = &bundle
	return bundle, nil
}

func (p *LocalProvider) ImportIdentity(_ context.Context, privateKey []byte) (IdentityBundle, error) {
	if len(privateKey) != privateKeySizeShort && len(privateKey) != privateKeySizeLong {
		return IdentityBundle{}, dErrors.Newf(dErrors.CodeInvalidData,
			"zk private key must be %d or %d bytes, got %d",
			privateKeySizeShort, privateKeySizeLong, len(privateKey))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	key := make([]byte, len(privateKey))
	copy(key, privateKey)
	bundle := newBundle(key, p.clock().UTC())
	p.current = &bundle
	return bundle, nil
}

func (p *LocalProvider) GenerateProof(ctx context.Context, signal string) (Proof, error) {
	bundle, err := p.LoadOrCreateIdentity(ctx)
	if err != nil {
		return Proof{}, err
	}
	return Proof{
		Commitment: bundle.Commitment,
		Signal:     signal,
		Digest:     proofDigest(bundle.Commitment, signal),
	}, nil
}

func (p *LocalProvider) VerifyProof(_ context.Context, proof Proof) (bool, error) {
	if proof.Commitment == "" || proof.Digest == "" {
		return false, nil
	}
	expected := proofDigest(proof.Commitment, proof.Signal)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(proof.Digest)) == 1, nil
}

func newBundle(key []byte, createdAt time.Time) IdentityBundle {
	digest := sha256.Sum256(key)
	return IdentityBundle{
		Commitment: hex.EncodeToString(digest[:]),
		PrivateKey: key,
		CreatedAt:  createdAt,
	}
}

func proofDigest(commitment, signal string) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", commitment, signal)))
	return hex.EncodeToString(digest[:])
}
