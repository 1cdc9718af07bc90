package presentation

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cardex/internal/credential"
	dErrors "cardex/pkg/domain-errors"
)

type fakeImporter struct {
	mu      sync.Mutex
	calls   int
	failing bool
}

func (f *fakeImporter) ImportPresented(_ context.Context, token string) (credential.StoredCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return credential.StoredCredential{}, dErrors.New(dErrors.CodeInvalidData, "bad token")
	}
	return credential.StoredCredential{
		IssuedCredential: credential.IssuedCredential{CredentialID: "imported-" + token},
		Status:           credential.StatusUnverified,
	}, nil
}

type ProtocolSuite struct {
	suite.Suite
	importer *fakeImporter
	protocol *Protocol
}

func (s *ProtocolSuite) SetupTest() {
	s.importer = &fakeImporter{}
	s.protocol = New("cardex", s.importer)
}

func (s *ProtocolSuite) TestCreateRequestRoundTrip() {
	created, err := s.protocol.CreateRequest(context.Background())
	require.NoError(s.T(), err)

	assert.True(s.T(), strings.HasPrefix(created.QRString, "cardex://?request="))
	assert.NotEmpty(s.T(), created.Request.State)
	assert.NotEmpty(s.T(), created.Request.Nonce)
	assert.NotEqual(s.T(), created.Request.State, created.Request.Nonce)

	parsed, err := s.protocol.ParseRequest(created.QRString)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.Request, parsed)

	types := parsed.PresentationDefinition.InputDescriptors[0].Types
	assert.Contains(s.T(), types, credential.SubjectType)
}

func (s *ProtocolSuite) TestCreateRequestStatesAreUnique() {
	first, err := s.protocol.CreateRequest(context.Background())
	require.NoError(s.T(), err)
	second, err := s.protocol.CreateRequest(context.Background())
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), first.Request.State, second.Request.State)
	assert.Equal(s.T(), 2, s.protocol.Registry().Len())
}

func (s *ProtocolSuite) TestParseRequestRejectsForeignScheme() {
	_, err := s.protocol.ParseRequest("https://example.com/?request=abc")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func (s *ProtocolSuite) TestParseRequestRejectsMissingParameter() {
	_, err := s.protocol.ParseRequest("cardex://?other=abc")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func (s *ProtocolSuite) TestBuildResponseURI() {
	created, err := s.protocol.CreateRequest(context.Background())
	require.NoError(s.T(), err)

	uri, err := s.protocol.BuildResponseURI(created.Request, "header.payload.sig")
	require.NoError(s.T(), err)
	assert.True(s.T(), strings.HasPrefix(uri, created.Request.RedirectURI+"?"))
	assert.Contains(s.T(), uri, "state="+created.Request.State)
	assert.Contains(s.T(), uri, "vp_token=")
}

func (s *ProtocolSuite) TestBuildResponseURIRejectsEmptyToken() {
	created, err := s.protocol.CreateRequest(context.Background())
	require.NoError(s.T(), err)
	_, err = s.protocol.BuildResponseURI(created.Request, "")
	require.Error(s.T(), err)
}

func (s *ProtocolSuite) TestHandleResponseConsumesState() {
	ctx := context.Background()
	created, err := s.protocol.CreateRequest(ctx)
	require.NoError(s.T(), err)
	uri, err := s.protocol.BuildResponseURI(created.Request, "tok")
	require.NoError(s.T(), err)

	stored, err := s.protocol.HandleResponse(ctx, uri)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "imported-tok", stored.CredentialID)
	assert.Equal(s.T(), 0, s.protocol.Registry().Len())

	// Re-delivery of the same callback must fail, never reuse cached data.
	_, err = s.protocol.HandleResponse(ctx, uri)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProtocolSuite) TestHandleResponseUnknownStateIsNotFound() {
	_, err := s.protocol.HandleResponse(context.Background(),
		"cardex://callback?state=never-registered&vp_token=tok")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProtocolSuite) TestHandleResponseMissingTokenIsInvalid() {
	created, err := s.protocol.CreateRequest(context.Background())
	require.NoError(s.T(), err)
	_, err = s.protocol.HandleResponse(context.Background(),
		"cardex://callback?state="+created.Request.State)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func (s *ProtocolSuite) TestHandleResponseImportFailureKeepsRequest() {
	ctx := context.Background()
	s.importer.failing = true
	created, err := s.protocol.CreateRequest(ctx)
	require.NoError(s.T(), err)
	uri, err := s.protocol.BuildResponseURI(created.Request, "tok")
	require.NoError(s.T(), err)

	_, err = s.protocol.HandleResponse(ctx, uri)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidData))

	// A failed import must not burn the state; a corrected retry can succeed.
	s.importer.failing = false
	_, err = s.protocol.HandleResponse(ctx, uri)
	require.NoError(s.T(), err)
}

func (s *ProtocolSuite) TestHandleResponseSingleWinnerUnderConcurrency() {
	ctx := context.Background()
	created, err := s.protocol.CreateRequest(ctx)
	require.NoError(s.T(), err)
	uri, err := s.protocol.BuildResponseURI(created.Request, "tok")
	require.NoError(s.T(), err)

	const workers = 16
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.protocol.HandleResponse(ctx, uri)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
		}
	}
	assert.Equal(s.T(), 1, succeeded, "exactly one concurrent response may win a state")
}

func (s *ProtocolSuite) TestURIClassification() {
	created, err := s.protocol.CreateRequest(context.Background())
	require.NoError(s.T(), err)
	callback, err := s.protocol.BuildResponseURI(created.Request, "tok")
	require.NoError(s.T(), err)

	assert.True(s.T(), s.protocol.IsRequestURI(created.QRString))
	assert.False(s.T(), s.protocol.IsCallbackURI(created.QRString))
	assert.True(s.T(), s.protocol.IsCallbackURI(callback))
	assert.False(s.T(), s.protocol.IsRequestURI(callback))
	assert.False(s.T(), s.protocol.IsRequestURI("https://example.com/?request=x"))
}

func TestProtocolSuite(t *testing.T) {
	suite.Run(t, new(ProtocolSuite))
}
