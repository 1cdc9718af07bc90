package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cardex/pkg/platform/sentinel"
)

type InMemoryLibrarySuite struct {
	suite.Suite
	library *InMemoryLibrary
}

func (s *InMemoryLibrarySuite) SetupTest() {
	s.library = NewInMemoryLibrary()
}

func (s *InMemoryLibrarySuite) credential(id string, issuedAt time.Time) IssuedCredential {
	return IssuedCredential{
		CredentialID: id,
		JWT:          "a.b.c",
		IssuedAt:     issuedAt,
		HolderDID:    "did:key:zHolder",
		IssuerDID:    "did:key:zIssuer",
	}
}

func (s *InMemoryLibrarySuite) TestAddAndFind() {
	ctx := context.Background()
	stored, err := s.library.Add(ctx, s.credential("cred-1", time.Now()), StatusUnverified)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusUnverified, stored.Status)

	found, err := s.library.FindByID(ctx, "cred-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), stored, found)
}

func (s *InMemoryLibrarySuite) TestFindMissingIsNotFound() {
	_, err := s.library.FindByID(context.Background(), "absent")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryLibrarySuite) TestUpdateReplacesRecord() {
	ctx := context.Background()
	stored, err := s.library.Add(ctx, s.credential("cred-1", time.Now()), StatusUnverified)
	require.NoError(s.T(), err)

	now := time.Now().UTC()
	stored.Status = StatusVerified
	stored.LastVerifiedAt = &now
	updated, err := s.library.Update(ctx, stored)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusVerified, updated.Status)

	found, err := s.library.FindByID(ctx, "cred-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusVerified, found.Status)
	require.NotNil(s.T(), found.LastVerifiedAt)
}

func (s *InMemoryLibrarySuite) TestUpdateMissingIsNotFound() {
	_, err := s.library.Update(context.Background(),
		StoredCredential{IssuedCredential: s.credential("absent", time.Now())})
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryLibrarySuite) TestListOrdersByIssuedAt() {
	ctx := context.Background()
	base := time.Now().UTC()
	_, err := s.library.Add(ctx, s.credential("newer", base.Add(time.Hour)), StatusUnverified)
	require.NoError(s.T(), err)
	_, err = s.library.Add(ctx, s.credential("older", base), StatusVerified)
	require.NoError(s.T(), err)

	listed, err := s.library.List(ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), listed, 2)
	assert.Equal(s.T(), "older", listed[0].CredentialID)
	assert.Equal(s.T(), "newer", listed[1].CredentialID)
}

func TestInMemoryLibrarySuite(t *testing.T) {
	suite.Run(t, new(InMemoryLibrarySuite))
}
