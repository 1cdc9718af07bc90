package coordinator

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"cardex/internal/didresolver"
	dErrors "cardex/pkg/domain-errors"
)

// PayloadKind tags the resolved form of an import input.
type PayloadKind string

const (
	PayloadOIDCCallback        PayloadKind = "oidc_callback"
	PayloadPresentationRequest PayloadKind = "presentation_request"
	PayloadDIDDocument         PayloadKind = "did_document"
	PayloadJWK                 PayloadKind = "jwk"
	PayloadCredentialJWT       PayloadKind = "credential_jwt"
	PayloadZKPrivateKey        PayloadKind = "zk_private_key"
)

// Payload is the tagged result of classification. Exactly one of the value
// fields is set, selected by Kind.
type Payload struct {
	Kind       PayloadKind
	URI        string
	Document   *didresolver.Document
	JWK        *didresolver.PublicKeyJWK
	DIDHint    string
	Token      string
	PrivateKey []byte
}

// Classifier resolves raw import bytes into a typed payload. Resolution is a
// fixed priority cascade; branch order is the contract: an input matching an
// earlier branch never reaches a later one.
type Classifier struct {
	scheme string
}

// NewClassifier constructs a classifier for the given custom URI scheme.
func NewClassifier(scheme string) *Classifier {
	if scheme == "" {
		scheme = "cardex"
	}
	return &Classifier{scheme: scheme}
}

// Classify resolves input bytes to a payload. Input that is not valid UTF-8
// can only be a raw ZK private key.
func (c *Classifier) Classify(input []byte) (Payload, error) {
	if !utf8.Valid(input) {
		if n := len(input); n == 32 || n == 64 {
			key := make([]byte, n)
			copy(key, input)
			return Payload{Kind: PayloadZKPrivateKey, PrivateKey: key}, nil
		}
		return Payload{}, dErrors.New(dErrors.CodeInvalidData, "unsupported binary import payload")
	}
	return c.classifyString(strings.TrimSpace(string(input)), false)
}

// classifyString runs the cascade. retried guards the double-base64 branch:
// it may re-enter the cascade exactly once.
func (c *Classifier) classifyString(input string, retried bool) (Payload, error) {
	if input == "" {
		return Payload{}, dErrors.New(dErrors.CodeInvalidData, "empty import payload")
	}

	if strings.HasPrefix(input, c.scheme+"://") {
		if isCallbackURI(input) {
			return Payload{Kind: PayloadOIDCCallback, URI: input}, nil
		}
		return Payload{Kind: PayloadPresentationRequest, URI: input}, nil
	}

	if looksLikeJSON(input) {
		if doc, ok := parseDIDDocument(input); ok {
			return Payload{Kind: PayloadDIDDocument, Document: doc}, nil
		}
		if jwk, ok := parseJWK(input); ok {
			return Payload{Kind: PayloadJWK, JWK: jwk}, nil
		}
		if payload, ok, err := c.parseEnvelope(input); ok {
			return payload, err
		}
	}

	if isThreeSegmentToken(input) {
		return Payload{Kind: PayloadCredentialJWT, Token: input}, nil
	}

	if decoded, ok := decodeBase64(input); ok {
		if n := len(decoded); n == 32 || n == 64 {
			return Payload{Kind: PayloadZKPrivateKey, PrivateKey: decoded}, nil
		}
		if !retried && utf8.Valid(decoded) {
			if inner := strings.TrimSpace(string(decoded)); inner != "" && inner != input {
				return c.classifyString(inner, true)
			}
		}
	}

	return Payload{}, dErrors.New(dErrors.CodeInvalidData, "unsupported import payload format")
}

// parseEnvelope handles the JSON envelope shape carrying one of document,
// jwk, privateKey/semaphorePrivateKey or credential. Key order is the
// priority order.
func (c *Classifier) parseEnvelope(input string) (Payload, bool, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(input), &envelope); err != nil {
		return Payload{}, false, nil
	}

	didHint := ""
	if raw, ok := envelope["did"]; ok {
		_ = json.Unmarshal(raw, &didHint)
	}

	if raw, ok := envelope["document"]; ok {
		if doc, ok := parseDIDDocument(string(raw)); ok {
			return Payload{Kind: PayloadDIDDocument, Document: doc, DIDHint: didHint}, true, nil
		}
		return Payload{}, true, dErrors.New(dErrors.CodeInvalidData, "envelope document is not a did document")
	}

	if raw, ok := envelope["jwk"]; ok {
		// The jwk value may be an object or a JSON-encoded string.
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			raw = json.RawMessage(asString)
		}
		if jwk, ok := parseJWK(string(raw)); ok {
			return Payload{Kind: PayloadJWK, JWK: jwk, DIDHint: didHint}, true, nil
		}
		return Payload{}, true, dErrors.New(dErrors.CodeInvalidData, "envelope jwk is not a valid jwk")
	}

	for _, key := range []string{"privateKey", "semaphorePrivateKey"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return Payload{}, true, dErrors.Newf(dErrors.CodeInvalidData, "envelope %s must be a string", key)
		}
		decoded, ok := decodeBase64(encoded)
		if !ok {
			return Payload{}, true, dErrors.Newf(dErrors.CodeInvalidData, "envelope %s is not base64", key)
		}
		return Payload{Kind: PayloadZKPrivateKey, PrivateKey: decoded}, true, nil
	}

	if raw, ok := envelope["credential"]; ok {
		var token string
		if err := json.Unmarshal(raw, &token); err != nil || !isThreeSegmentToken(token) {
			return Payload{}, true, dErrors.New(dErrors.CodeInvalidData, "envelope credential is not a jwt")
		}
		return Payload{Kind: PayloadCredentialJWT, Token: token}, true, nil
	}

	return Payload{}, false, nil
}

func isCallbackURI(uriString string) bool {
	parsed, err := url.Parse(uriString)
	if err != nil {
		return false
	}
	query := parsed.Query()
	return query.Get("state") != "" && query.Get("vp_token") != ""
}

func looksLikeJSON(input string) bool {
	return strings.HasPrefix(input, "{")
}

// parseDIDDocument accepts JSON that structurally reads as a DID document:
// a did-prefixed id plus a context or verification method.
func parseDIDDocument(input string) (*didresolver.Document, bool) {
	var doc didresolver.Document
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		return nil, false
	}
	if !strings.HasPrefix(doc.ID, "did:") {
		return nil, false
	}
	if len(doc.Context) == 0 && len(doc.VerificationMethod) == 0 {
		return nil, false
	}
	return &doc, true
}

// parseJWK accepts JSON that structurally reads as an EC public JWK.
func parseJWK(input string) (*didresolver.PublicKeyJWK, bool) {
	var jwk didresolver.PublicKeyJWK
	if err := json.Unmarshal([]byte(input), &jwk); err != nil {
		return nil, false
	}
	if jwk.Kty == "" || jwk.X == "" || jwk.Y == "" {
		return nil, false
	}
	return &jwk, true
}

func isThreeSegmentToken(input string) bool {
	parts := strings.Split(input, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" || strings.ContainsAny(part, " \t\r\n") {
			return false
		}
	}
	return true
}

// decodeBase64 accepts standard and url-safe alphabets, padded or not.
func decodeBase64(input string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(input); err == nil {
			return decoded, true
		}
	}
	return nil, false
}
