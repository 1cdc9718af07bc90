// Package didresolver derives DID identifiers and documents from the key
// store's public key material. Derivation is deterministic: the same key
// always yields the same identifier for a given method, and switching method
// never regenerates the key.
package didresolver

import (
	"context"

	"cardex/internal/keystore"
	dErrors "cardex/pkg/domain-errors"
)

// Method selects the identifier scheme derived from the current key.
type Method string

const (
	MethodKey  Method = "key"
	MethodEthr Method = "ethr"
	MethodWeb  Method = "web"
)

// KeySource is the slice of the key store the resolver depends on.
type KeySource interface {
	PublicJWK(ctx context.Context, auth *keystore.AuthContext) (keystore.PublicKeyJWK, error)
}

// Resolver derives descriptors and documents from a key source.
type Resolver struct {
	keys KeySource
}

// New constructs a Resolver over the given key source.
func New(keys KeySource) *Resolver {
	return &Resolver{keys: keys}
}

// CurrentDescriptor derives the descriptor for the current signing key under
// the requested method.
func (r *Resolver) CurrentDescriptor(ctx context.Context, method Method, auth *keystore.AuthContext) (Descriptor, error) {
	jwk, err := r.keys.PublicJWK(ctx, auth)
	if err != nil {
		return Descriptor{}, err
	}

	var did string
	switch method {
	case MethodKey:
		did, err = DeriveKeyDID(jwk)
	case MethodEthr:
		did, err = DeriveEthrDID(jwk)
	case MethodWeb:
		return Descriptor{}, dErrors.New(dErrors.CodeConfiguration,
			"did:web descriptors require a domain; use DIDWebDocument")
	default:
		return Descriptor{}, dErrors.Newf(dErrors.CodeConfiguration, "unsupported did method %q", method)
	}
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		DID:                  did,
		VerificationMethodID: did + "#" + defaultKeyFragment,
		JWK:                  jwk,
	}, nil
}

// Document builds the DID document for a descriptor. Pure and stateless.
func (r *Resolver) Document(descriptor Descriptor, services []Service) Document {
	return buildDocument(descriptor, services)
}

// DIDWebDocument derives a did:web identifier from the sanitized domain and
// path segments and builds its document around the current key.
func (r *Resolver) DIDWebDocument(ctx context.Context, domain string, path []string, services []Service, auth *keystore.AuthContext) (Document, error) {
	jwk, err := r.keys.PublicJWK(ctx, auth)
	if err != nil {
		return Document{}, err
	}
	did, err := DeriveWebDID(domain, path)
	if err != nil {
		return Document{}, err
	}
	descriptor := Descriptor{
		DID:                  did,
		VerificationMethodID: did + "#" + defaultKeyFragment,
		JWK:                  jwk,
	}
	return buildDocument(descriptor, services), nil
}

func buildDocument(descriptor Descriptor, services []Service) Document {
	vmType := TypeJSONWebKey2020
	if methodOf(descriptor.DID) == MethodEthr {
		vmType = TypeSecp256k1Recovery
	}
	doc := Document{
		Context: []string{ContextDIDV1, ContextJWS},
		ID:      descriptor.DID,
		VerificationMethod: []VerificationMethod{{
			ID:           descriptor.VerificationMethodID,
			Type:         vmType,
			Controller:   descriptor.DID,
			PublicKeyJWK: descriptor.JWK,
		}},
		Authentication:  []string{descriptor.VerificationMethodID},
		AssertionMethod: []string{descriptor.VerificationMethodID},
	}
	if len(services) > 0 {
		doc.Service = services
	}
	return doc
}

func methodOf(did string) Method {
	const prefix = "did:"
	if len(did) <= len(prefix) {
		return ""
	}
	rest := did[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			return Method(rest[:i])
		}
	}
	return ""
}
