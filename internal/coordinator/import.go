package coordinator

import (
	"context"
	"fmt"
	"net/url"

	"cardex/internal/credential"
	dErrors "cardex/pkg/domain-errors"
)

// ImportIdentity resolves raw import bytes off the caller's goroutine and
// returns immediately. The outcome lands in the snapshot as an ImportEvent
// or a recorded error. The work detaches from the caller's context: once
// dispatched, an import runs to completion even if the caller (typically a
// request handler that already answered 202) goes away.
func (c *Coordinator) ImportIdentity(ctx context.Context, source []byte, auth *credential.AuthContext) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		_ = c.importOnce(ctx, source, auth)
	}()
}

// importOnce classifies the input and applies the resolved payload. Failures
// set lastError without touching the cached maps.
func (c *Coordinator) importOnce(ctx context.Context, source []byte, _ *credential.AuthContext) error {
	payload, err := c.classifier.Classify(source)
	if err != nil {
		c.observeImport("rejected")
		c.recordError(err)
		return err
	}

	summary, err := c.apply(ctx, payload)
	if err != nil {
		c.observeImport("failed")
		c.recordError(err)
		return err
	}

	event := ImportEvent{Kind: payload.Kind, Summary: summary, Timestamp: c.clock().UTC()}
	c.publish(func(s *State) {
		s.LastImportEvent = &event
		s.LastError = ""
	})
	c.emit(event)
	c.observeImport(string(payload.Kind))
	c.logf("import resolved: %s", summary)
	return nil
}

// apply executes the side effects for one resolved payload and returns the
// human-readable summary recorded in the import event.
func (c *Coordinator) apply(ctx context.Context, payload Payload) (string, error) {
	switch payload.Kind {
	case PayloadOIDCCallback:
		stored, err := c.protocol.HandleResponse(ctx, payload.URI)
		if err != nil {
			return "", err
		}
		state := callbackState(payload.URI)
		c.publish(func(s *State) {
			s.VerificationCache[stored.CredentialID] = stored.Status
			if state != "" {
				delete(s.ActiveOIDCRequests, state)
			}
		})
		return fmt.Sprintf("Received credential %s via presentation response", stored.CredentialID), nil

	case PayloadPresentationRequest:
		req, err := c.protocol.ParseRequest(payload.URI)
		if err != nil {
			return "", err
		}
		c.RegisterRequest(req)
		return fmt.Sprintf("Tracking presentation request %s", req.State), nil

	case PayloadDIDDocument:
		document := *payload.Document
		c.publish(func(s *State) {
			s.CachedDocuments[document.ID] = document
		})
		return fmt.Sprintf("Cached DID document for %s", document.ID), nil

	case PayloadJWK:
		did := payload.DIDHint
		if did == "" {
			did = c.State().Profile.ActiveDID
		}
		if did == "" {
			return "", dErrors.New(dErrors.CodeInvalidData,
				"imported key has no DID to bind to; refresh identity first")
		}
		jwk := *payload.JWK
		c.publish(func(s *State) {
			s.CachedJWKs[did] = jwk
		})
		return fmt.Sprintf("Cached public key for %s", did), nil

	case PayloadCredentialJWT:
		stored, err := c.importer.ImportPresented(ctx, payload.Token)
		if err != nil {
			return "", err
		}
		c.publish(func(s *State) {
			s.VerificationCache[stored.CredentialID] = stored.Status
		})
		return fmt.Sprintf("Imported credential %s", stored.CredentialID), nil

	case PayloadZKPrivateKey:
		bundle, err := c.zk.ImportIdentity(ctx, payload.PrivateKey)
		if err != nil {
			return "", err
		}
		memberships, err := c.membershipsFor(ctx, bundle.Commitment)
		if err != nil {
			return "", err
		}
		c.publish(func(s *State) {
			s.Profile.ZKCommitment = bundle.Commitment
			s.Profile.Memberships = memberships
		})
		return "Imported identity key", nil

	default:
		return "", dErrors.Newf(dErrors.CodeInternal, "unhandled payload kind %q", payload.Kind)
	}
}

func (c *Coordinator) observeImport(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveImport(outcome)
	}
}

func callbackState(uriString string) string {
	parsed, err := url.Parse(uriString)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("state")
}
