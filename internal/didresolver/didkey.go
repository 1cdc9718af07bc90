package didresolver

import (
	"encoding/binary"

	"github.com/mr-tron/base58"

	"cardex/internal/keystore"
)

// multicodec code for a P-256 public key (p256-pub).
const multicodecP256Pub = 0x1200

// DeriveKeyDID derives a did:key identifier from the canonical JWK string:
// varint multicodec prefix + canonical JWK bytes, multibase base58btc
// encoded with the "z" prefix.
func DeriveKeyDID(jwk keystore.PublicKeyJWK) (string, error) {
	canonical, err := jwk.CanonicalJSON()
	if err != nil {
		return "", err
	}

	prefix := binary.AppendUvarint(nil, multicodecP256Pub)
	payload := append(prefix, []byte(canonical)...)

	return "did:key:z" + base58.Encode(payload), nil
}
