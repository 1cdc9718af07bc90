//go:build integration

package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cardex/pkg/platform/sentinel"
	"cardex/pkg/testutil/containers"
)

type RedisLibrarySuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	library *RedisLibrary
}

func (s *RedisLibrarySuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.library = NewRedisLibrary(s.redis.Client)
}

func (s *RedisLibrarySuite) SetupTest() {
	require.NoError(s.T(), s.redis.FlushAll(context.Background()))
}

func (s *RedisLibrarySuite) credential(id string) IssuedCredential {
	return IssuedCredential{
		CredentialID: id,
		JWT:          "a.b.c",
		IssuedAt:     time.Now().UTC().Truncate(time.Second),
		HolderDID:    "did:key:zHolder",
		IssuerDID:    "did:key:zIssuer",
		Snapshot:     Card{DisplayName: "Ada"},
	}
}

func (s *RedisLibrarySuite) TestAddFindRoundTrip() {
	ctx := context.Background()
	stored, err := s.library.Add(ctx, s.credential("cred-1"), StatusUnverified)
	require.NoError(s.T(), err)

	found, err := s.library.FindByID(ctx, "cred-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), stored.CredentialID, found.CredentialID)
	assert.Equal(s.T(), StatusUnverified, found.Status)
	assert.Equal(s.T(), "Ada", found.Snapshot.DisplayName)
}

func (s *RedisLibrarySuite) TestUpdatePersistsStatus() {
	ctx := context.Background()
	stored, err := s.library.Add(ctx, s.credential("cred-1"), StatusUnverified)
	require.NoError(s.T(), err)

	now := time.Now().UTC().Truncate(time.Second)
	stored.Status = StatusVerified
	stored.LastVerifiedAt = &now
	_, err = s.library.Update(ctx, stored)
	require.NoError(s.T(), err)

	found, err := s.library.FindByID(ctx, "cred-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusVerified, found.Status)
	require.NotNil(s.T(), found.LastVerifiedAt)
}

func (s *RedisLibrarySuite) TestUpdateMissingIsNotFound() {
	_, err := s.library.Update(context.Background(),
		StoredCredential{IssuedCredential: s.credential("absent")})
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *RedisLibrarySuite) TestListReturnsAll() {
	ctx := context.Background()
	_, err := s.library.Add(ctx, s.credential("cred-1"), StatusUnverified)
	require.NoError(s.T(), err)
	_, err = s.library.Add(ctx, s.credential("cred-2"), StatusVerified)
	require.NoError(s.T(), err)

	listed, err := s.library.List(ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), listed, 2)
}

func TestRedisLibrarySuite(t *testing.T) {
	suite.Run(t, new(RedisLibrarySuite))
}
