// Package httptransport is the thin HTTP layer over the identity core: it
// serves the did:web document, exposes credential issuance/verification and
// the presentation exchange, and carries no business logic of its own.
package httptransport

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardex/internal/coordinator"
	"cardex/internal/credential"
	"cardex/internal/didresolver"
	"cardex/internal/presentation"
)

// Handler holds the collaborators the HTTP surface delegates to.
type Handler struct {
	log          *log.Logger
	resolver     *didresolver.Resolver
	engine       *credential.Engine
	library      credential.Library
	protocol     *presentation.Protocol
	coordinator  *coordinator.Coordinator
	didWebDomain string
}

// New constructs the HTTP handler set.
func New(logger *log.Logger, resolver *didresolver.Resolver, engine *credential.Engine,
	library credential.Library, protocol *presentation.Protocol,
	coord *coordinator.Coordinator, didWebDomain string) *Handler {
	return &Handler{
		log:          logger,
		resolver:     resolver,
		engine:       engine,
		library:      library,
		protocol:     protocol,
		coordinator:  coord,
		didWebDomain: didWebDomain,
	}
}

// Router wires all public endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/.well-known/did.json", h.handleDIDWebDocument)

	r.Get("/identity", h.handleIdentity)
	r.Post("/identity/refresh", h.handleRefresh)
	r.Post("/identity/import", h.handleImport)

	r.Get("/credentials", h.handleListCredentials)
	r.Post("/credentials", h.handleIssueCredential)
	r.Post("/credentials/{credentialID}/verify", h.handleVerifyCredential)

	r.Post("/presentations", h.handleCreatePresentation)
	r.Get("/callback", h.handleCallback)

	return r
}
