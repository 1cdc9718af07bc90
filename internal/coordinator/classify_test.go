package coordinator

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cardex/pkg/domain-errors"
)

const sampleJWK = `{"kty":"EC","crv":"P-256","alg":"ES256","x":"eA","y":"eQ"}`

func classify(t *testing.T, input string) Payload {
	t.Helper()
	payload, err := NewClassifier("cardex").Classify([]byte(input))
	require.NoError(t, err)
	return payload
}

func TestClassifyCallbackURI(t *testing.T) {
	payload := classify(t, "cardex://callback?state=abc&vp_token=h.p.s")
	assert.Equal(t, PayloadOIDCCallback, payload.Kind)
	assert.NotEmpty(t, payload.URI)
}

func TestClassifyRequestURI(t *testing.T) {
	payload := classify(t, "cardex://?request=eyJmb28iOiJiYXIifQ")
	assert.Equal(t, PayloadPresentationRequest, payload.Kind)
}

func TestClassifyForeignSchemeIsNotAURI(t *testing.T) {
	_, err := NewClassifier("cardex").Classify([]byte("https://example.com?state=a&vp_token=b"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func TestClassifyDIDDocument(t *testing.T) {
	payload := classify(t, `{"@context":["https://www.w3.org/ns/did/v1"],"id":"did:key:zAbc"}`)
	assert.Equal(t, PayloadDIDDocument, payload.Kind)
	require.NotNil(t, payload.Document)
	assert.Equal(t, "did:key:zAbc", payload.Document.ID)
}

func TestClassifyBareJWK(t *testing.T) {
	payload := classify(t, sampleJWK)
	assert.Equal(t, PayloadJWK, payload.Kind)
	require.NotNil(t, payload.JWK)
	assert.Equal(t, "EC", payload.JWK.Kty)
}

func TestClassifyDIDDocumentWinsOverJWTShape(t *testing.T) {
	// Contrived input that is simultaneously a valid DID document and a
	// 3-segment dot-delimited token; branch order resolves it as a document.
	input := `{"id":"did:ex:a.b.c","@context":["v1"]}`
	payload := classify(t, input)
	assert.Equal(t, PayloadDIDDocument, payload.Kind)
}

func TestClassifyEnvelopeDocument(t *testing.T) {
	payload := classify(t, `{"document":{"id":"did:web:example.com","@context":["https://www.w3.org/ns/did/v1"]}}`)
	assert.Equal(t, PayloadDIDDocument, payload.Kind)
	assert.Equal(t, "did:web:example.com", payload.Document.ID)
}

func TestClassifyEnvelopeJWKObject(t *testing.T) {
	payload := classify(t, `{"did":"did:key:zHint","jwk":`+sampleJWK+`}`)
	assert.Equal(t, PayloadJWK, payload.Kind)
	assert.Equal(t, "did:key:zHint", payload.DIDHint)
}

func TestClassifyEnvelopeJWKString(t *testing.T) {
	encoded := `{"jwk":"{\"kty\":\"EC\",\"crv\":\"P-256\",\"x\":\"eA\",\"y\":\"eQ\"}"}`
	payload := classify(t, encoded)
	assert.Equal(t, PayloadJWK, payload.Kind)
	assert.Equal(t, "P-256", payload.JWK.Crv)
}

func TestClassifyEnvelopePrivateKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, 32)
	encoded := base64.StdEncoding.EncodeToString(key)
	payload := classify(t, `{"privateKey":"`+encoded+`"}`)
	assert.Equal(t, PayloadZKPrivateKey, payload.Kind)
	assert.Equal(t, key, payload.PrivateKey)
}

func TestClassifyEnvelopeSemaphoreKey(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x08}, 64))
	payload := classify(t, `{"semaphorePrivateKey":"`+encoded+`"}`)
	assert.Equal(t, PayloadZKPrivateKey, payload.Kind)
	assert.Len(t, payload.PrivateKey, 64)
}

func TestClassifyEnvelopeCredential(t *testing.T) {
	payload := classify(t, `{"credential":"aGVhZGVy.cGF5bG9hZA.c2ln"}`)
	assert.Equal(t, PayloadCredentialJWT, payload.Kind)
	assert.Equal(t, "aGVhZGVy.cGF5bG9hZA.c2ln", payload.Token)
}

func TestClassifyEnvelopeBadCredentialIsError(t *testing.T) {
	_, err := NewClassifier("cardex").Classify([]byte(`{"credential":"not a jwt"}`))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func TestClassifyThreeSegmentToken(t *testing.T) {
	payload := classify(t, "aGVhZGVy.cGF5bG9hZA.c2lnbmF0dXJl")
	assert.Equal(t, PayloadCredentialJWT, payload.Kind)
}

func TestClassifyBase64ZKKey(t *testing.T) {
	for _, size := range []int{32, 64} {
		encoded := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x01}, size))
		payload := classify(t, encoded)
		assert.Equal(t, PayloadZKPrivateKey, payload.Kind)
		assert.Len(t, payload.PrivateKey, size)
	}
}

func TestClassifyDoubleEncodedRetriesOnce(t *testing.T) {
	once := base64.StdEncoding.EncodeToString([]byte(sampleJWK))
	payload := classify(t, once)
	assert.Equal(t, PayloadJWK, payload.Kind, "single base64 wrapping must be peeled")
}

func TestClassifyTripleEncodedIsRejected(t *testing.T) {
	once := base64.StdEncoding.EncodeToString([]byte(sampleJWK))
	twice := base64.StdEncoding.EncodeToString([]byte(once))
	_, err := NewClassifier("cardex").Classify([]byte(twice))
	require.Error(t, err, "the decode retry must not recurse past one level")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func TestClassifyRawBinaryKey(t *testing.T) {
	input := append([]byte{0xff, 0xfe}, bytes.Repeat([]byte{0x00}, 30)...)
	payload, err := NewClassifier("cardex").Classify(input)
	require.NoError(t, err)
	assert.Equal(t, PayloadZKPrivateKey, payload.Kind)
	assert.Len(t, payload.PrivateKey, 32)
}

func TestClassifyBinaryWrongLengthIsRejected(t *testing.T) {
	input := append([]byte{0xff, 0xfe}, bytes.Repeat([]byte{0x00}, 31)...)
	_, err := NewClassifier("cardex").Classify(input)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func TestClassifyGarbageIsInvalidData(t *testing.T) {
	for _, input := range []string{"", "hello", "{not json", "a.b", "a.b.c.d"} {
		_, err := NewClassifier("cardex").Classify([]byte(input))
		require.Error(t, err, "input %q", input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidData), "input %q", input)
	}
}
