package httptransport

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cardex/internal/credential"
	dErrors "cardex/pkg/domain-errors"
)

// importBodyLimit caps identity-import payloads; QR-sized inputs are tiny.
const importBodyLimit = 1 << 20

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDIDWebDocument(w http.ResponseWriter, r *http.Request) {
	document, err := h.resolver.DIDWebDocument(r.Context(), h.didWebDomain, nil, nil, nil)
	if err != nil {
		h.logf("did web document: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, document)
}

func (h *Handler) handleIdentity(w http.ResponseWriter, _ *http.Request) {
	state := h.coordinator.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"isLoading":   state.IsLoading,
		"profile":     state.Profile,
		"didDocument": state.DIDDocument,
		"lastError":   state.LastError,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// Refresh runs in the background; poll /identity for the outcome.
	h.coordinator.RefreshIdentity(r.Context())
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	source, err := io.ReadAll(io.LimitReader(r.Body, importBodyLimit))
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInvalidData, "read import payload"))
		return
	}
	if len(source) == 0 {
		writeError(w, dErrors.New(dErrors.CodeInvalidData, "empty import payload"))
		return
	}
	h.coordinator.ImportIdentity(r.Context(), source, nil)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	listed, err := h.library.List(r.Context())
	if err != nil {
		h.logf("list credentials: %v", err)
		writeError(w, dErrors.Wrap(err, dErrors.CodeStorage, "list credentials"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": listed})
}

type issueRequest struct {
	Card       credential.Card `json:"card"`
	HolderDID  string          `json:"holderDid,omitempty"`
	Expiration *time.Time      `json:"expiration,omitempty"`
}

func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInvalidData, "parse issue request"))
		return
	}
	if req.Card.DisplayName == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidData, "card requires a display name"))
		return
	}

	issued, err := h.engine.Issue(r.Context(), req.Card, credential.IssueOptions{
		HolderDID:  req.HolderDID,
		Expiration: req.Expiration,
	})
	if err != nil {
		h.logf("issue credential: %v", err)
		writeError(w, err)
		return
	}
	stored, err := h.library.Add(r.Context(), issued, credential.StatusUnverified)
	if err != nil {
		h.logf("store issued credential: %v", err)
		writeError(w, dErrors.Wrap(err, dErrors.CodeStorage, "store issued credential"))
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	credentialID := chi.URLParam(r, "credentialID")
	stored, err := h.library.FindByID(r.Context(), credentialID)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "credential not found"))
		return
	}
	verified, err := h.engine.Verify(r.Context(), stored)
	if err != nil {
		h.logf("verify credential %s: %v", credentialID, err)
		writeError(w, err)
		return
	}
	h.coordinator.UpdateStatus(verified.CredentialID, verified.Status)
	writeJSON(w, http.StatusOK, verified)
}

func (h *Handler) handleCreatePresentation(w http.ResponseWriter, r *http.Request) {
	created, err := h.protocol.CreateRequest(r.Context())
	if err != nil {
		h.logf("create presentation request: %v", err)
		writeError(w, err)
		return
	}
	h.coordinator.RegisterRequest(created.Request)
	writeJSON(w, http.StatusCreated, map[string]any{
		"state":      created.Request.State,
		"requestUri": created.QRString,
		"createdAt":  created.CreatedAt,
	})
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	// Rebuild the custom-scheme callback from the HTTP query so the protocol
	// sees the same shape QR-delivered callbacks use.
	stored, err := h.protocol.HandleResponse(r.Context(), r.URL.String())
	if err != nil {
		h.logf("presentation callback: %v", err)
		writeError(w, err)
		return
	}
	h.coordinator.ResolveRequest(r.URL.Query().Get("state"))
	h.coordinator.UpdateStatus(stored.CredentialID, stored.Status)
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) logf(format string, args ...any) {
	if h.log != nil {
		h.log.Printf("http: "+format, args...)
	}
}
