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

type PostgresLibrarySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	library  *PostgresLibrary
}

func (s *PostgresLibrarySuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.library = NewPostgresLibrary(s.postgres.DB)
	require.NoError(s.T(), s.library.Migrate(context.Background()))
}

func (s *PostgresLibrarySuite) SetupTest() {
	require.NoError(s.T(), s.postgres.Truncate(context.Background(), "stored_credentials"))
}

func (s *PostgresLibrarySuite) credential(id string, issuedAt time.Time) IssuedCredential {
	return IssuedCredential{
		CredentialID: id,
		JWT:          "a.b.c",
		IssuedAt:     issuedAt,
		HolderDID:    "did:key:zHolder",
		IssuerDID:    "did:key:zIssuer",
		Snapshot:     Card{DisplayName: "Ada"},
	}
}

func (s *PostgresLibrarySuite) TestAddFindRoundTrip() {
	ctx := context.Background()
	issuedAt := time.Now().UTC().Truncate(time.Second)
	stored, err := s.library.Add(ctx, s.credential("cred-1", issuedAt), StatusUnverified)
	require.NoError(s.T(), err)

	found, err := s.library.FindByID(ctx, "cred-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), stored.CredentialID, found.CredentialID)
	assert.Equal(s.T(), StatusUnverified, found.Status)
	assert.Equal(s.T(), "Ada", found.Snapshot.DisplayName)
}

func (s *PostgresLibrarySuite) TestAddIsIdempotentUpsert() {
	ctx := context.Background()
	issuedAt := time.Now().UTC().Truncate(time.Second)
	_, err := s.library.Add(ctx, s.credential("cred-1", issuedAt), StatusUnverified)
	require.NoError(s.T(), err)
	_, err = s.library.Add(ctx, s.credential("cred-1", issuedAt), StatusVerified)
	require.NoError(s.T(), err)

	found, err := s.library.FindByID(ctx, "cred-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusVerified, found.Status)
}

func (s *PostgresLibrarySuite) TestUpdatePersistsStatus() {
	ctx := context.Background()
	stored, err := s.library.Add(ctx, s.credential("cred-1", time.Now().UTC().Truncate(time.Second)), StatusUnverified)
	require.NoError(s.T(), err)

	now := time.Now().UTC().Truncate(time.Second)
	stored.Status = StatusFailed
	stored.LastVerifiedAt = &now
	_, err = s.library.Update(ctx, stored)
	require.NoError(s.T(), err)

	found, err := s.library.FindByID(ctx, "cred-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusFailed, found.Status)
	require.NotNil(s.T(), found.LastVerifiedAt)
}

func (s *PostgresLibrarySuite) TestUpdateMissingIsNotFound() {
	_, err := s.library.Update(context.Background(),
		StoredCredential{IssuedCredential: s.credential("absent", time.Now())})
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *PostgresLibrarySuite) TestListOrdersByIssuedAt() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	_, err := s.library.Add(ctx, s.credential("newer", base.Add(time.Hour)), StatusUnverified)
	require.NoError(s.T(), err)
	_, err = s.library.Add(ctx, s.credential("older", base), StatusUnverified)
	require.NoError(s.T(), err)

	listed, err := s.library.List(ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), listed, 2)
	assert.Equal(s.T(), "older", listed[0].CredentialID)
	assert.Equal(s.T(), "newer", listed[1].CredentialID)
}

func TestPostgresLibrarySuite(t *testing.T) {
	suite.Run(t, new(PostgresLibrarySuite))
}
