package credential

import (
	"encoding/json"
	"strings"
	"time"

	"cardex/internal/keystore"
	dErrors "cardex/pkg/domain-errors"
	strutil "cardex/pkg/platform/strings"
)

// SubjectType is the credential type attached to contact-card credentials
// and requested by presentation definitions.
const SubjectType = "ContactCardCredential"

// buildClaims assembles the JWT claim set: a normalized snapshot of the
// shareable card embedded as the credential subject, plus the registered
// claims and the issuer's public JWK so the credential is self-verifying.
func buildClaims(card Card, jwk keystore.PublicKeyJWK, credentialID, issuerDID, holderDID string, issuedAt time.Time, expiresAt *time.Time) map[string]any {
	jwkMap := jwkToMap(jwk)
	subject := cardToSubject(normalizeCard(card))
	subject["id"] = holderDID
	subject["publicKeyJwk"] = jwkMap

	// The JWK rides both at the top level and inside the subject; verifiers
	// read it from the subject, older consumers from the claim set.
	claims := map[string]any{
		"iss":          issuerDID,
		"sub":          holderDID,
		"iat":          issuedAt.Unix(),
		"nbf":          issuedAt.Unix(),
		"credentialId": credentialID,
		"publicKeyJwk": jwkMap,
		"vc": map[string]any{
			"@context":          []any{"https://www.w3.org/2018/credentials/v1"},
			"type":              []any{"VerifiableCredential", SubjectType},
			"credentialSubject": subject,
		},
	}
	if expiresAt != nil {
		claims["exp"] = expiresAt.Unix()
	}
	return claims
}

// normalizeCard trims whitespace and drops empty collection entries so the
// snapshot embedded in the credential is deterministic.
func normalizeCard(card Card) Card {
	out := card
	out.DisplayName = strings.TrimSpace(card.DisplayName)
	out.Title = strings.TrimSpace(card.Title)
	out.Organization = strings.TrimSpace(card.Organization)
	out.Emails = normalizeStrings(card.Emails)
	out.Phones = normalizeStrings(card.Phones)
	out.Skills = normalizeStrings(card.Skills)

	socials := make([]SocialAccount, 0, len(card.Socials))
	for _, s := range card.Socials {
		s.Platform = strings.TrimSpace(s.Platform)
		s.Handle = strings.TrimSpace(s.Handle)
		if s.Platform == "" && s.Handle == "" {
			continue
		}
		socials = append(socials, s)
	}
	if len(socials) > 0 {
		out.Socials = socials
	} else {
		out.Socials = nil
	}
	return out
}

func normalizeStrings(values []string) []string {
	out := strutil.DedupeAndTrim(values)
	if len(out) == 0 {
		return nil
	}
	return out
}

func cardToSubject(card Card) map[string]any {
	raw, _ := json.Marshal(card)
	subject := map[string]any{}
	_ = json.Unmarshal(raw, &subject)
	delete(subject, "id")
	return subject
}

func jwkToMap(jwk keystore.PublicKeyJWK) map[string]any {
	return map[string]any{
		"alg": jwk.Alg,
		"crv": jwk.Crv,
		"kty": jwk.Kty,
		"x":   jwk.X,
		"y":   jwk.Y,
	}
}

// unwrapEnvelope returns the claim set from a decoded payload. Older clients
// wrapped claims in a nested {"payload": {...}} object; both shapes must be
// accepted.
func unwrapEnvelope(payload map[string]any) map[string]any {
	if nested, ok := payload["payload"].(map[string]any); ok {
		return nested
	}
	return payload
}

// credentialSubject extracts the subject object from a claim set, accepting
// both the vc-wrapped and the flat layout.
func credentialSubject(claims map[string]any) (map[string]any, bool) {
	if vc, ok := claims["vc"].(map[string]any); ok {
		if subject, ok := vc["credentialSubject"].(map[string]any); ok {
			return subject, true
		}
	}
	if subject, ok := claims["credentialSubject"].(map[string]any); ok {
		return subject, true
	}
	return nil, false
}

// subjectJWK pulls the embedded public key out of a credential subject.
func subjectJWK(subject map[string]any) (keystore.PublicKeyJWK, error) {
	rawJWK, ok := subject["publicKeyJwk"]
	if !ok {
		return keystore.PublicKeyJWK{}, dErrors.New(dErrors.CodeInvalidData,
			"missing public key in credential subject")
	}
	raw, err := json.Marshal(rawJWK)
	if err != nil {
		return keystore.PublicKeyJWK{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "re-encode subject jwk")
	}
	var jwk keystore.PublicKeyJWK
	if err := json.Unmarshal(raw, &jwk); err != nil {
		return keystore.PublicKeyJWK{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "decode subject jwk")
	}
	return jwk, nil
}

// subjectToCard maps a credential subject back into the application's card
// shape. Tolerant of optional or missing sub-fields.
func subjectToCard(subject map[string]any) Card {
	card := Card{
		DisplayName:   stringField(subject, "displayName"),
		Title:         stringField(subject, "title"),
		Organization:  stringField(subject, "organization"),
		Emails:        stringSlice(subject, "emails"),
		Phones:        stringSlice(subject, "phones"),
		Skills:        stringSlice(subject, "skills"),
		AvatarDataURI: stringField(subject, "avatar"),
	}
	if id := stringField(subject, "id"); id != "" {
		card.ID = id
	}
	if rawSocials, ok := subject["socials"].([]any); ok {
		for _, entry := range rawSocials {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			account := SocialAccount{
				Platform: stringField(m, "platform"),
				Handle:   stringField(m, "handle"),
				URL:      stringField(m, "url"),
			}
			if account.Platform != "" || account.Handle != "" {
				card.Socials = append(card.Socials, account)
			}
		}
	}
	return card
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func stringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// numericClaim reads an integer-ish claim (JSON numbers decode as float64).
func numericClaim(claims map[string]any, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
