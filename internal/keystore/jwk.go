package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"math/big"

	dErrors "cardex/pkg/domain-errors"
)

// PublicKeyJWK is the canonical JSON Web Key representation of the signing
// key's public half. Immutable once produced for a given key generation.
type PublicKeyJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	Alg string `json:"alg"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

const coordinateSize = 32 // P-256

// JWKFromPublicKey converts a P-256 public key into its JWK form with
// fixed-width, unpadded base64url coordinates.
func JWKFromPublicKey(pub *ecdsa.PublicKey) PublicKeyJWK {
	return PublicKeyJWK{
		Kty: "EC",
		Crv: "P-256",
		Alg: "ES256",
		X:   base64.RawURLEncoding.EncodeToString(padCoordinate(pub.X)),
		Y:   base64.RawURLEncoding.EncodeToString(padCoordinate(pub.Y)),
	}
}

// CanonicalJSON renders the JWK as deterministic JSON with sorted keys.
// DID derivation and signing both depend on this string being stable.
func (j PublicKeyJWK) CanonicalJSON() (string, error) {
	// encoding/json sorts map keys, which gives us the canonical ordering.
	raw, err := json.Marshal(map[string]string{
		"alg": j.Alg,
		"crv": j.Crv,
		"kty": j.Kty,
		"x":   j.X,
		"y":   j.Y,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCryptographic, "canonicalize jwk")
	}
	return string(raw), nil
}

// PublicKey reconstructs the uncompressed ECDSA public key point from the
// JWK coordinates.
func (j PublicKeyJWK) PublicKey() (*ecdsa.PublicKey, error) {
	if j.Kty != "EC" || (j.Crv != "" && j.Crv != "P-256") {
		return nil, dErrors.Newf(dErrors.CodeInvalidData, "unsupported jwk kty=%q crv=%q", j.Kty, j.Crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidData, "decode jwk x coordinate")
	}
	yb, err := base64.RawURLEncoding.DecodeString(j.Y)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidData, "decode jwk y coordinate")
	}
	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, dErrors.New(dErrors.CodeCryptographic, "jwk point is not on curve")
	}
	return pub, nil
}

func padCoordinate(v *big.Int) []byte {
	buf := make([]byte, coordinateSize)
	v.FillBytes(buf)
	return buf
}
