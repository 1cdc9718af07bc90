package presentation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardex/internal/credential"
	dErrors "cardex/pkg/domain-errors"
)

// DefaultScheme is the custom URI scheme used when none is configured.
const DefaultScheme = "cardex"

const requestParam = "request"

// Importer stores a presented credential JWT without trusting it.
type Importer interface {
	ImportPresented(ctx context.Context, token string) (credential.StoredCredential, error)
}

// Protocol builds and parses presentation requests and handles callback
// responses. Requests travel as base64url-encoded JSON inside a
// custom-scheme URI; responses come back as callback URIs carrying state
// and vp_token query parameters.
type Protocol struct {
	scheme   string
	registry *Registry
	importer Importer
	log      *log.Logger
	clock    func() time.Time
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithLogger attaches a logger for non-fatal diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(p *Protocol) { p.log = l }
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(p *Protocol) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// New constructs a presentation protocol using the given URI scheme.
func New(scheme string, importer Importer, opts ...Option) *Protocol {
	if scheme == "" {
		scheme = DefaultScheme
	}
	p := &Protocol{
		scheme:   scheme,
		registry: NewRegistry(),
		importer: importer,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Registry exposes the in-flight request registry for state-layer mirroring.
func (p *Protocol) Registry() *Registry {
	return p.registry
}

// CreateRequest builds a fresh presentation request asking for a contact-card
// credential, registers it by state and returns its QR-encodable URI.
func (p *Protocol) CreateRequest(_ context.Context) (CreatedRequest, error) {
	redirectURI := p.scheme + "://callback"
	req := PresentationRequest{
		ClientID:     redirectURI,
		RedirectURI:  redirectURI,
		ResponseType: "vp_token",
		ResponseMode: "direct_post",
		Scope:        "openid",
		State:        uuid.NewString(),
		Nonce:        uuid.NewString(),
		PresentationDefinition: PresentationDefinition{
			ID: uuid.NewString(),
			InputDescriptors: []InputDescriptor{{
				ID:      "contact-card",
				Name:    "Contact card",
				Purpose: "Share your contact card",
				Types:   []string{"VerifiableCredential", credential.SubjectType},
			}},
		},
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return CreatedRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "encode presentation request")
	}
	qr := p.scheme + "://?" + requestParam + "=" + base64.RawURLEncoding.EncodeToString(raw)

	p.registry.Register(req)
	p.logf("created presentation request state=%s", req.State)

	return CreatedRequest{Request: req, QRString: qr, CreatedAt: p.clock().UTC()}, nil
}

// ParseRequest decodes a presentation-request URI back into its request.
func (p *Protocol) ParseRequest(uriString string) (PresentationRequest, error) {
	if !strings.HasPrefix(uriString, p.scheme+"://") {
		return PresentationRequest{}, dErrors.Newf(dErrors.CodeInvalidData,
			"not a %s presentation request uri", p.scheme)
	}
	parsed, err := url.Parse(uriString)
	if err != nil {
		return PresentationRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "parse request uri")
	}
	encoded := parsed.Query().Get(requestParam)
	if encoded == "" {
		return PresentationRequest{}, dErrors.New(dErrors.CodeInvalidData, "request uri missing request parameter")
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return PresentationRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "decode request parameter")
	}
	var req PresentationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return PresentationRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "parse presentation request json")
	}
	if req.State == "" {
		return PresentationRequest{}, dErrors.New(dErrors.CodeInvalidData, "presentation request missing state")
	}
	return req, nil
}

// BuildResponseURI assembles the callback URI carrying the vp_token for a
// parsed request.
func (p *Protocol) BuildResponseURI(req PresentationRequest, vpToken string) (string, error) {
	if req.RedirectURI == "" {
		return "", dErrors.New(dErrors.CodeInvalidData, "presentation request missing redirect uri")
	}
	if vpToken == "" {
		return "", dErrors.New(dErrors.CodeInvalidData, "empty vp_token")
	}
	values := url.Values{}
	values.Set("state", req.State)
	values.Set("vp_token", vpToken)
	return req.RedirectURI + "?" + values.Encode(), nil
}

// HandleResponse consumes a callback URI: the state must match an in-flight
// request, the vp_token is imported unverified, and the request entry is
// removed so the same state can never be consumed twice.
func (p *Protocol) HandleResponse(ctx context.Context, uriString string) (credential.StoredCredential, error) {
	parsed, err := url.Parse(uriString)
	if err != nil {
		return credential.StoredCredential{}, dErrors.Wrap(err, dErrors.CodeInvalidData, "parse callback uri")
	}
	query := parsed.Query()
	state := query.Get("state")
	vpToken := query.Get("vp_token")
	if state == "" || vpToken == "" {
		return credential.StoredCredential{}, dErrors.New(dErrors.CodeInvalidData,
			"callback uri missing state or vp_token")
	}

	if _, ok := p.registry.Lookup(state); !ok {
		return credential.StoredCredential{}, dErrors.Newf(dErrors.CodeNotFound,
			"no active presentation request for state %q", state)
	}

	stored, err := p.importer.ImportPresented(ctx, vpToken)
	if err != nil {
		return credential.StoredCredential{}, err
	}

	// Consume only after a successful import; the atomic lookup-then-delete
	// guarantees at most one concurrent response wins the state.
	if _, ok := p.registry.Consume(state); !ok {
		return credential.StoredCredential{}, dErrors.Newf(dErrors.CodeNotFound,
			"presentation request for state %q already consumed", state)
	}

	p.logf("consumed presentation response state=%s credential=%s", state, stored.CredentialID)
	return stored, nil
}

// IsCallbackURI reports whether the input looks like an OIDC callback for
// this scheme (state + vp_token query parameters).
func (p *Protocol) IsCallbackURI(uriString string) bool {
	if !strings.HasPrefix(uriString, p.scheme+"://") {
		return false
	}
	parsed, err := url.Parse(uriString)
	if err != nil {
		return false
	}
	query := parsed.Query()
	return query.Get("state") != "" && query.Get("vp_token") != ""
}

// IsRequestURI reports whether the input looks like a presentation-request
// URI for this scheme.
func (p *Protocol) IsRequestURI(uriString string) bool {
	if !strings.HasPrefix(uriString, p.scheme+"://") {
		return false
	}
	parsed, err := url.Parse(uriString)
	if err != nil {
		return false
	}
	return parsed.Query().Get(requestParam) != ""
}

func (p *Protocol) logf(format string, args ...any) {
	if p.log != nil {
		p.log.Printf("presentation: "+format, args...)
	}
}
