// Package credential implements JWT-encoded verifiable credential issuance,
// verification and import for shareable contact cards. The compact signature
// protocol is implemented here directly; credentials embed the issuer's
// public JWK so verification needs no resolver round-trip.
package credential

import (
	"context"
	"encoding/base64"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cardex/internal/didresolver"
	"cardex/internal/keystore"
	"cardex/internal/platform/metrics"
	dErrors "cardex/pkg/domain-errors"
)

// Signer is the slice of the key store the engine needs: a handle that can
// produce raw signatures over the signing input.
type Signer interface {
	SigningHandle(ctx context.Context, auth *keystore.AuthContext) (keystore.Handle, error)
}

// Engine issues and verifies contact-card credentials using the key store
// and DID resolver, and persists outcomes through the library.
type Engine struct {
	keys     Signer
	resolver *didresolver.Resolver
	library  Library
	log      *log.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a logger for non-fatal diagnostics.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithMetrics records issuance/verification counters.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the time source for testability (no hidden time.Now calls).
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine constructs a credential engine.
func NewEngine(keys Signer, resolver *didresolver.Resolver, library Library, opts ...EngineOption) *Engine {
	e := &Engine{
		keys:     keys,
		resolver: resolver,
		library:  library,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Issue signs a credential over a normalized snapshot of the card. May block
// on an interactive key unlock; callers run it off their publishing context.
func (e *Engine) Issue(ctx context.Context, card Card, opts IssueOptions) (IssuedCredential, error) {
	start := e.clock()

	descriptor, err := e.resolver.CurrentDescriptor(ctx, didresolver.MethodKey, opts.Auth)
	if err != nil {
		return IssuedCredential{}, err
	}

	issuerDID := opts.IssuerDID
	if issuerDID == "" {
		issuerDID = descriptor.DID
	}
	holderDID := opts.HolderDID
	if holderDID == "" {
		holderDID = issuerDID
	}

	credentialID := uuid.NewString()
	issuedAt := e.clock().UTC().Truncate(time.Second)
	claims := buildClaims(card, descriptor.JWK, credentialID, issuerDID, holderDID, issuedAt, opts.Expiration)

	header := map[string]any{
		"alg": "ES256",
		"typ": "JWT",
		"kid": descriptor.VerificationMethodID,
	}

	headerSeg, err := encodeSegment(header)
	if err != nil {
		return IssuedCredential{}, err
	}
	payloadSeg, err := encodeSegment(claims)
	if err != nil {
		return IssuedCredential{}, err
	}
	signingInput := headerSeg + "." + payloadSeg

	handle, err := e.keys.SigningHandle(ctx, opts.Auth)
	if err != nil {
		return IssuedCredential{}, err
	}
	rawSig, err := handle.Sign(ctx, []byte(signingInput))
	if err != nil {
		return IssuedCredential{}, dErrors.Wrap(err, dErrors.CodeKeyManagement, "sign credential")
	}
	normalized, err := normalizeSignature(rawSig)
	if err != nil {
		return IssuedCredential{}, err
	}

	token := signingInput + "." + base64.RawURLEncoding.EncodeToString(normalized)

	if err := e.revalidate(token); err != nil {
		return IssuedCredential{}, err
	}

	if e.metrics != nil {
		e.metrics.CredentialsIssued.Inc()
		e.metrics.IssueDurationMs.Observe(float64(e.clock().Sub(start).Microseconds()) / 1000.0)
	}

	return IssuedCredential{
		CredentialID: credentialID,
		JWT:          token,
		Header:       header,
		Payload:      claims,
		Snapshot:     normalizeCard(card),
		IssuedAt:     issuedAt,
		ExpiresAt:    opts.Expiration,
		HolderDID:    holderDID,
		IssuerDID:    issuerDID,
	}, nil
}

// revalidate re-parses the produced JWT through golang-jwt as an early
// detector for malformed claim shapes. A claim-decoding-only failure is
// non-fatal; a structural failure aborts issuance.
func (e *Engine) revalidate(token string) error {
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, jwt.MapClaims{}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidData, "issued jwt failed revalidation")
	}
	if _, _, err := parser.ParseUnverified(token, &jwt.RegisteredClaims{}); err != nil {
		e.logf("issued jwt registered-claims decode failed (non-fatal): %v", err)
	}
	return nil
}

// Verify checks the stored credential's signature and validity window.
// A cryptographic failure is a normal outcome recorded as StatusFailed, not
// an error; every outcome is persisted with a fresh LastVerifiedAt. Only
// malformed structure or a library failure produce errors.
func (e *Engine) Verify(ctx context.Context, stored StoredCredential) (StoredCredential, error) {
	headerSeg, payloadSeg, sigSeg, err := splitCompact(stored.JWT)
	if err != nil {
		return StoredCredential{}, err
	}
	if _, err := decodeSegment(headerSeg); err != nil {
		return StoredCredential{}, err
	}
	payload, err := decodeSegment(payloadSeg)
	if err != nil {
		return StoredCredential{}, err
	}

	claims := unwrapEnvelope(payload)
	subject, ok := credentialSubject(claims)
	if !ok {
		return StoredCredential{}, dErrors.New(dErrors.CodeInvalidData, "missing credential subject")
	}
	jwk, err := subjectJWK(subject)
	if err != nil {
		return StoredCredential{}, err
	}
	pub, err := jwk.PublicKey()
	if err != nil {
		return StoredCredential{}, err
	}

	status := StatusVerified
	signingInput := headerSeg + "." + payloadSeg
	rawSig, decErr := base64.RawURLEncoding.DecodeString(sigSeg)
	if decErr != nil || !verifyRawSignature(pub, signingInput, rawSig) {
		status = StatusFailed
	} else {
		now := e.clock()
		if nbf, ok := numericClaim(claims, "nbf"); ok && now.Unix() < nbf {
			status = StatusFailed
		}
		if exp, ok := numericClaim(claims, "exp"); ok && now.Unix() >= exp {
			status = StatusFailed
		}
	}

	out := stored
	out.Status = status
	verifiedAt := e.clock().UTC()
	out.LastVerifiedAt = &verifiedAt

	updated, err := e.library.Update(ctx, out)
	if err != nil {
		return StoredCredential{}, dErrors.Wrap(err, dErrors.CodeStorage, "persist verification outcome")
	}

	if e.metrics != nil {
		e.metrics.ObserveVerification(string(status))
	}
	return updated, nil
}

// ImportPresented decodes a presented credential JWT, maps its subject back
// into the card shape and stores it unverified. Imported credentials are
// never auto-trusted; verification is a separate, caller-invoked step.
func (e *Engine) ImportPresented(ctx context.Context, token string) (StoredCredential, error) {
	headerSeg, payloadSeg, _, err := splitCompact(token)
	if err != nil {
		return StoredCredential{}, err
	}
	header, err := decodeSegment(headerSeg)
	if err != nil {
		return StoredCredential{}, err
	}
	payload, err := decodeSegment(payloadSeg)
	if err != nil {
		return StoredCredential{}, err
	}

	claims := unwrapEnvelope(payload)
	subject, ok := credentialSubject(claims)
	if !ok {
		return StoredCredential{}, dErrors.New(dErrors.CodeInvalidData, "missing credential subject")
	}
	card := subjectToCard(subject)

	credentialID, _ := claims["credentialId"].(string)
	if credentialID == "" {
		credentialID = uuid.NewString()
	}

	issued := IssuedCredential{
		CredentialID: credentialID,
		JWT:          token,
		Header:       header,
		Payload:      payload,
		Snapshot:     card,
		IssuedAt:     e.clock().UTC(),
		HolderDID:    stringField(claims, "sub"),
		IssuerDID:    stringField(claims, "iss"),
	}
	if iat, ok := numericClaim(claims, "iat"); ok {
		issued.IssuedAt = time.Unix(iat, 0).UTC()
	}
	if exp, ok := numericClaim(claims, "exp"); ok {
		t := time.Unix(exp, 0).UTC()
		issued.ExpiresAt = &t
	}

	stored, err := e.library.Add(ctx, issued, StatusUnverified)
	if err != nil {
		return StoredCredential{}, dErrors.Wrap(err, dErrors.CodeStorage, "store imported credential")
	}
	if e.metrics != nil {
		e.metrics.CredentialsImported.Inc()
	}
	return stored, nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.log != nil {
		e.log.Printf("credential: "+format, args...)
	}
}
