package credential

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"

	dErrors "cardex/pkg/domain-errors"
)

// Compact JWT wire format: base64url(header).base64url(payload).base64url(rawSignature),
// no padding, exactly 3 segments. The signature segment is the fixed-width
// raw (r,s) concatenation, 64 bytes for P-256.

const rawSignatureSize = 64

// encodeSegment base64url-encodes a JSON value with no padding.
func encodeSegment(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidData, "encode jwt segment")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// splitCompact splits a compact JWT into its three segments.
func splitCompact(token string) (header, payload, signature string, err error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return "", "", "", dErrors.Newf(dErrors.CodeInvalidData,
			"malformed jwt: expected 3 segments, got %d", len(parts))
	}
	return parts[0], parts[1], parts[2], nil
}

// decodeSegment base64url-decodes a segment into a JSON object.
func decodeSegment(segment string) (map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidData, "decode jwt segment")
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidData, "parse jwt segment json")
	}
	return out, nil
}

// normalizeSignature canonicalizes a signature to fixed-width raw (r,s).
// Platform signing primitives may emit ASN.1 DER; already-raw signatures
// pass through unchanged.
func normalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) == rawSignatureSize {
		return sig, nil
	}

	var parsed struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(sig, &parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptographic, "unsupported signature encoding")
	}
	raw := make([]byte, rawSignatureSize)
	parsed.R.FillBytes(raw[:rawSignatureSize/2])
	parsed.S.FillBytes(raw[rawSignatureSize/2:])
	return raw, nil
}

// verifyRawSignature checks a fixed-width raw (r,s) signature over the UTF-8
// bytes of the signing input. A false return is a normal verification
// outcome, not an error.
func verifyRawSignature(pub *ecdsa.PublicKey, signingInput string, raw []byte) bool {
	if len(raw) != rawSignatureSize {
		return false
	}
	r := new(big.Int).SetBytes(raw[:rawSignatureSize/2])
	s := new(big.Int).SetBytes(raw[rawSignatureSize/2:])
	digest := sha256.Sum256([]byte(signingInput))
	return ecdsa.Verify(pub, digest[:], r, s)
}
