package credential

import (
	"time"

	"cardex/internal/keystore"
)

// AuthContext aliases the keystore capability token.
type AuthContext = keystore.AuthContext

// Status is the verification state of a stored credential. Verification
// failure is a valid terminal status, not an error.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
	StatusFailed     Status = "failed"
)

// Card is the shareable contact profile a credential attests to.
type Card struct {
	ID            string          `json:"id,omitempty"`
	DisplayName   string          `json:"displayName"`
	Title         string          `json:"title,omitempty"`
	Organization  string          `json:"organization,omitempty"`
	Emails        []string        `json:"emails,omitempty"`
	Phones        []string        `json:"phones,omitempty"`
	Skills        []string        `json:"skills,omitempty"`
	Socials       []SocialAccount `json:"socials,omitempty"`
	AvatarDataURI string          `json:"avatar,omitempty"`
}

// SocialAccount is a single social profile reference on a card.
type SocialAccount struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	URL      string `json:"url,omitempty"`
}

// IssuedCredential is the signed artifact plus its decoded halves for
// inspection. Immutable after creation.
type IssuedCredential struct {
	CredentialID string         `json:"credentialId"`
	JWT          string         `json:"jwt"`
	Header       map[string]any `json:"header"`
	Payload      map[string]any `json:"payload"`
	Snapshot     Card           `json:"snapshot"`
	IssuedAt     time.Time      `json:"issuedAt"`
	ExpiresAt    *time.Time     `json:"expiresAt,omitempty"`
	HolderDID    string         `json:"holderDid"`
	IssuerDID    string         `json:"issuerDid"`
}

// StoredCredential is an issued credential plus its mutable verification
// state, owned by the credential library.
type StoredCredential struct {
	IssuedCredential
	Status         Status     `json:"status"`
	LastVerifiedAt *time.Time `json:"lastVerifiedAt,omitempty"`
}

// IssueOptions tune a single issuance.
type IssueOptions struct {
	// HolderDID defaults to the issuer's own DID (self-signed credential).
	HolderDID string
	// IssuerDID defaults to the current did:key descriptor.
	IssuerDID string
	// Expiration, when set, becomes the exp claim.
	Expiration *time.Time
	// Auth authorizes key access when the backend requires an unlock.
	Auth *AuthContext
}
