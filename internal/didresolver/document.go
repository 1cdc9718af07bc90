package didresolver

import "cardex/internal/keystore"

// Context entries used in generated DID documents.
const (
	ContextDIDV1 = "https://www.w3.org/ns/did/v1"
	ContextJWS   = "https://w3id.org/security/suites/jws-2020/v1"
)

// Verification method types per derivation method.
const (
	TypeJSONWebKey2020    = "JsonWebKey2020"
	TypeSecp256k1Recovery = "EcdsaSecp256k1RecoveryMethod2020"
	defaultKeyFragment    = "key-1"
)

// Descriptor binds a DID string to the verification method id and JWK it was
// derived from. One descriptor exists per (method, key) pair; switching
// method never rotates the key, only the identifier scheme.
type Descriptor struct {
	DID                  string       `json:"did"`
	VerificationMethodID string       `json:"verificationMethodId"`
	JWK                  PublicKeyJWK `json:"jwk"`
}

// PublicKeyJWK aliases the keystore JWK type so callers need not import both
// packages.
type PublicKeyJWK = keystore.PublicKeyJWK

// VerificationMethod is a single verification method entry in a DID document.
type VerificationMethod struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Controller   string       `json:"controller"`
	PublicKeyJWK PublicKeyJWK `json:"publicKeyJwk"`
}

// Service is a service endpoint advertised by a DID document.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Document is a W3C DID document. A pure projection of a Descriptor plus
// optional service endpoints; it carries no resolver state.
type Document struct {
	Context            []string             `json:"@context"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication"`
	AssertionMethod    []string             `json:"assertionMethod"`
	Service            []Service            `json:"service,omitempty"`
}
