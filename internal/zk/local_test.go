package zk

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cardex/pkg/domain-errors"
)

func TestLoadOrCreateIdentityIsStable(t *testing.T) {
	provider := NewLocalProvider()
	ctx := context.Background()

	first, err := provider.LoadOrCreateIdentity(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Commitment, 64)
	assert.Len(t, first.PrivateKey, 32)

	second, err := provider.LoadOrCreateIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Commitment, second.Commitment)
	assert.True(t, bytes.Equal(first.PrivateKey, second.PrivateKey))
}

func TestImportIdentityIsDeterministic(t *testing.T) {
	ctx := context.Background()
	key := bytes.Repeat([]byte{0x42}, 32)

	a, err := NewLocalProvider().ImportIdentity(ctx, key)
	require.NoError(t, err)
	b, err := NewLocalProvider().ImportIdentity(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, a.Commitment, b.Commitment, "same key must yield same commitment")
}

func TestImportIdentityReplacesCurrent(t *testing.T) {
	provider := NewLocalProvider()
	ctx := context.Background()

	created, err := provider.LoadOrCreateIdentity(ctx)
	require.NoError(t, err)

	imported, err := provider.ImportIdentity(ctx, bytes.Repeat([]byte{0x01}, 64))
	require.NoError(t, err)
	assert.NotEqual(t, created.Commitment, imported.Commitment)

	current, err := provider.LoadOrCreateIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, imported.Commitment, current.Commitment)
}

func TestImportIdentityRejectsBadLength(t *testing.T) {
	_, err := NewLocalProvider().ImportIdentity(context.Background(), []byte("short"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func TestProofRoundTrip(t *testing.T) {
	provider := NewLocalProvider()
	ctx := context.Background()

	proof, err := provider.GenerateProof(ctx, "group-42")
	require.NoError(t, err)

	ok, err := provider.VerifyProof(ctx, proof)
	require.NoError(t, err)
	assert.True(t, ok)

	proof.Signal = "group-43"
	ok, err = provider.VerifyProof(ctx, proof)
	require.NoError(t, err)
	assert.False(t, ok, "tampered signal must fail verification, not error")
}
