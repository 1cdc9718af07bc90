package didresolver

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"cardex/internal/keystore"
)

// DeriveEthrDID derives a did:ethr identifier by hashing the canonical JWK
// string with Keccak-256 and hex-encoding the first 20 bytes.
//
// This is a deterministic, local-only representation: it is NOT resolvable
// on any chain and is not the standard did:ethr address derivation (which
// hashes the secp256k1 public key, not a P-256 JWK). It exists so the same
// key can present an Ethereum-shaped identity without network access.
func DeriveEthrDID(jwk keystore.PublicKeyJWK) (string, error) {
	canonical, err := jwk.CanonicalJSON()
	if err != nil {
		return "", err
	}

	digest := sha3.NewLegacyKeccak256()
	digest.Write([]byte(canonical))
	sum := digest.Sum(nil)

	return "did:ethr:0x" + hex.EncodeToString(sum[:20]), nil
}
