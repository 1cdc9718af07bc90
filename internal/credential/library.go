package credential

import "context"

// Library persists stored credentials. The engine depends only on this
// interface; memory, Redis and PostgreSQL implementations live alongside it.
//
// Error contract: FindByID returns sentinel.ErrNotFound (wrapped) when the
// credential does not exist; infrastructure failures are returned wrapped
// with context.
type Library interface {
	// Add records a newly issued or imported credential under the given
	// initial status.
	Add(ctx context.Context, cred IssuedCredential, status Status) (StoredCredential, error)
	// Update replaces the stored record for the credential's id.
	Update(ctx context.Context, stored StoredCredential) (StoredCredential, error)
	FindByID(ctx context.Context, credentialID string) (StoredCredential, error)
	List(ctx context.Context) ([]StoredCredential, error)
}
