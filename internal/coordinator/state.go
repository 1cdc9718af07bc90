// Package coordinator owns the published identity state: the active DID,
// cached documents and keys, the verification cache and in-flight OIDC
// requests. Every mutation replaces the snapshot wholesale so readers are
// lock-free and never observe a partial update.
package coordinator

import (
	"time"

	"cardex/internal/credential"
	"cardex/internal/didresolver"
	"cardex/internal/presentation"
)

// MembershipStatus is the computed standing of the identity in a group.
type MembershipStatus string

const (
	MembershipActive MembershipStatus = "active"
	// MembershipOutdated is reserved for rosters that version commitments;
	// the current recompute never produces it.
	MembershipOutdated MembershipStatus = "outdated"
)

// Membership summarizes the identity's standing in one group.
type Membership struct {
	GroupID   string           `json:"groupId"`
	GroupName string           `json:"groupName"`
	Status    MembershipStatus `json:"status"`
}

// Profile is the identity summary inside the published state.
type Profile struct {
	ZKCommitment string       `json:"zkCommitment,omitempty"`
	ActiveDID    string       `json:"activeDid,omitempty"`
	Memberships  []Membership `json:"memberships,omitempty"`
}

// State is one immutable published snapshot. Maps inside a snapshot are
// never mutated after publication; mutators copy, change and replace.
type State struct {
	IsLoading bool
	Profile   Profile

	DIDDocument     *didresolver.Document
	CachedDocuments map[string]didresolver.Document
	CachedJWKs      map[string]didresolver.PublicKeyJWK

	VerificationCache      map[string]credential.Status
	LastVerificationUpdate *VerificationEvent

	LastImportEvent *ImportEvent
	LastError       string

	ActiveOIDCRequests map[string]presentation.PresentationRequest
	LastOIDCEvent      *OIDCEvent
}

func newState() *State {
	return &State{
		CachedDocuments:    make(map[string]didresolver.Document),
		CachedJWKs:         make(map[string]didresolver.PublicKeyJWK),
		VerificationCache:  make(map[string]credential.Status),
		ActiveOIDCRequests: make(map[string]presentation.PresentationRequest),
	}
}

// clone deep-copies the snapshot so a mutator can work on a private copy.
func (s *State) clone() *State {
	next := *s
	next.CachedDocuments = make(map[string]didresolver.Document, len(s.CachedDocuments))
	for k, v := range s.CachedDocuments {
		next.CachedDocuments[k] = v
	}
	next.CachedJWKs = make(map[string]didresolver.PublicKeyJWK, len(s.CachedJWKs))
	for k, v := range s.CachedJWKs {
		next.CachedJWKs[k] = v
	}
	next.VerificationCache = make(map[string]credential.Status, len(s.VerificationCache))
	for k, v := range s.VerificationCache {
		next.VerificationCache[k] = v
	}
	next.ActiveOIDCRequests = make(map[string]presentation.PresentationRequest, len(s.ActiveOIDCRequests))
	for k, v := range s.ActiveOIDCRequests {
		next.ActiveOIDCRequests[k] = v
	}
	if s.Profile.Memberships != nil {
		next.Profile.Memberships = make([]Membership, len(s.Profile.Memberships))
		copy(next.Profile.Memberships, s.Profile.Memberships)
	}
	return &next
}

// Event is a discrete notification published alongside state snapshots.
// Observers that need per-change history consume these instead of diffing
// snapshots.
type Event interface {
	When() time.Time
}

// ImportEvent records one resolved identity import.
type ImportEvent struct {
	Kind      PayloadKind `json:"kind"`
	Summary   string      `json:"summary"`
	Timestamp time.Time   `json:"timestamp"`
}

func (e ImportEvent) When() time.Time { return e.Timestamp }

// VerificationEvent records a single credential status update. Batch merges
// do not produce these.
type VerificationEvent struct {
	CredentialID string            `json:"credentialId"`
	Status       credential.Status `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
}

func (e VerificationEvent) When() time.Time { return e.Timestamp }

// OIDCEvent records presentation-request lifecycle changes.
type OIDCEvent struct {
	Kind      OIDCEventKind `json:"kind"`
	State     string        `json:"state"`
	Timestamp time.Time     `json:"timestamp"`
}

func (e OIDCEvent) When() time.Time { return e.Timestamp }

// OIDCEventKind distinguishes OIDC lifecycle events.
type OIDCEventKind string

const (
	OIDCRequestCreated  OIDCEventKind = "request_created"
	OIDCRequestResolved OIDCEventKind = "request_resolved"
)
