// Package presentation implements an offline-capable OIDC4VP-style
// request/response exchange: requests are encoded as custom-scheme URIs
// suitable for QR display, and in-flight requests are tracked by their opaque
// state token until consumed.
package presentation

import "time"

// PresentationRequest is the wire shape embedded in a request URI. State is
// the unique tracking key; nonce binds a future response to this request.
type PresentationRequest struct {
	ClientID               string                 `json:"client_id"`
	RedirectURI            string                 `json:"redirect_uri"`
	ResponseType           string                 `json:"response_type"`
	ResponseMode           string                 `json:"response_mode"`
	Scope                  string                 `json:"scope"`
	State                  string                 `json:"state"`
	Nonce                  string                 `json:"nonce"`
	PresentationDefinition PresentationDefinition `json:"presentation_definition"`
}

// PresentationDefinition narrows which credentials satisfy the request.
type PresentationDefinition struct {
	ID               string            `json:"id"`
	InputDescriptors []InputDescriptor `json:"input_descriptors"`
}

// InputDescriptor names one acceptable credential shape.
type InputDescriptor struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Purpose string   `json:"purpose,omitempty"`
	Types   []string `json:"types"`
}

// CreatedRequest is the result of CreateRequest: the registered request plus
// its QR-encodable URI form.
type CreatedRequest struct {
	Request   PresentationRequest
	QRString  string
	CreatedAt time.Time
}
