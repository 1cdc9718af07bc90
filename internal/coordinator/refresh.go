package coordinator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RefreshIdentity reloads the identity off the caller's goroutine and
// returns immediately. Progress is observable through State and Events.
// The work detaches from the caller's context so a refresh dispatched from
// a request handler survives the request ending.
func (c *Coordinator) RefreshIdentity(ctx context.Context) {
	go c.refresh(context.WithoutCancel(ctx))
}

// refresh performs one refresh cycle. The DID reload and the ZK/membership
// recompute run concurrently; isLoading drops as soon as the DID step
// completes, so a membership recompute may still be in flight afterwards.
func (c *Coordinator) refresh(ctx context.Context) {
	c.publish(func(s *State) {
		s.IsLoading = true
		s.LastError = ""
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		descriptor, err := c.resolver.CurrentDescriptor(gctx, c.method, nil)
		if err != nil {
			return err
		}
		document := c.resolver.Document(descriptor, nil)
		c.publish(func(s *State) {
			s.Profile.ActiveDID = descriptor.DID
			s.DIDDocument = &document
			s.CachedDocuments[descriptor.DID] = document
			s.CachedJWKs[descriptor.DID] = descriptor.JWK
			s.IsLoading = false
		})
		return nil
	})

	g.Go(func() error {
		bundle, err := c.zk.LoadOrCreateIdentity(gctx)
		if err != nil {
			return err
		}
		memberships, err := c.membershipsFor(gctx, bundle.Commitment)
		if err != nil {
			return err
		}
		c.publish(func(s *State) {
			s.Profile.ZKCommitment = bundle.Commitment
			s.Profile.Memberships = memberships
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		c.recordError(err)
		return
	}
	c.logf("identity refresh complete")
}

// membershipsFor recomputes group memberships for a commitment. A roster
// entry containing the commitment counts as active; the roster carries no
// commitment versioning, so outdated is never produced here.
func (c *Coordinator) membershipsFor(ctx context.Context, commitment string) ([]Membership, error) {
	if commitment == "" {
		return nil, nil
	}
	all, err := c.roster.AllGroups(ctx)
	if err != nil {
		return nil, err
	}
	var memberships []Membership
	for _, group := range all {
		if !group.Contains(commitment) {
			continue
		}
		memberships = append(memberships, Membership{
			GroupID:   group.ID,
			GroupName: group.Name,
			Status:    MembershipActive,
		})
	}
	return memberships, nil
}
