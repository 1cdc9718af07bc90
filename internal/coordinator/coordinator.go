package coordinator

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"cardex/internal/credential"
	"cardex/internal/didresolver"
	"cardex/internal/groups"
	"cardex/internal/platform/metrics"
	"cardex/internal/presentation"
	"cardex/internal/zk"
)

const defaultEventBuffer = 32

// CredentialImporter stores presented credential JWTs without trusting them.
type CredentialImporter interface {
	ImportPresented(ctx context.Context, token string) (credential.StoredCredential, error)
}

// Coordinator is the single writer of the published identity state. Readers
// take lock-free snapshots; all mutation funnels through publish, which
// applies copy-modify-replace under one writer lock.
type Coordinator struct {
	resolver *didresolver.Resolver
	importer CredentialImporter
	protocol *presentation.Protocol
	zk       zk.Provider
	roster   groups.Roster

	classifier *Classifier
	method     didresolver.Method
	log        *log.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time

	mu     sync.Mutex
	state  atomic.Pointer[State]
	events chan Event
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger attaches a logger for non-fatal diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithMetrics records import outcome counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithScheme sets the custom URI scheme recognized during import
// classification.
func WithScheme(scheme string) Option {
	return func(c *Coordinator) { c.classifier = NewClassifier(scheme) }
}

// WithDIDMethod selects the derivation method used on refresh.
func WithDIDMethod(method didresolver.Method) Option {
	return func(c *Coordinator) { c.method = method }
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New constructs a coordinator around its collaborators.
func New(resolver *didresolver.Resolver, importer CredentialImporter, protocol *presentation.Protocol,
	zkProvider zk.Provider, roster groups.Roster, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver:   resolver,
		importer:   importer,
		protocol:   protocol,
		zk:         zkProvider,
		roster:     roster,
		classifier: NewClassifier(presentation.DefaultScheme),
		method:     didresolver.MethodKey,
		clock:      time.Now,
		events:     make(chan Event, defaultEventBuffer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.state.Store(newState())
	return c
}

// State returns the last published snapshot. The returned value shares its
// maps with the snapshot; callers must treat it as read-only.
func (c *Coordinator) State() State {
	return *c.state.Load()
}

// Events is the discrete notification stream. Events are dropped, never
// blocked on, when the consumer lags.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// publish applies a mutation to a private copy of the current snapshot and
// swaps it in. The writer lock serializes mutators; readers stay lock-free.
func (c *Coordinator) publish(mutate func(*State)) *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.state.Load().clone()
	mutate(next)
	c.state.Store(next)
	return next
}

func (c *Coordinator) emit(event Event) {
	select {
	case c.events <- event:
	default:
		c.logf("event dropped, consumer lagging")
	}
}

// UpdateStatus records one credential's verification status and emits a
// discrete VerificationEvent for it.
func (c *Coordinator) UpdateStatus(credentialID string, status credential.Status) {
	event := VerificationEvent{
		CredentialID: credentialID,
		Status:       status,
		Timestamp:    c.clock().UTC(),
	}
	c.publish(func(s *State) {
		s.VerificationCache[credentialID] = status
		s.LastVerificationUpdate = &event
	})
	c.emit(event)
}

// MergeStatuses folds a batch of statuses into the verification cache.
// Unlike UpdateStatus it emits no discrete events; observers that need
// per-credential history must receive single updates.
func (c *Coordinator) MergeStatuses(statuses map[string]credential.Status) {
	if len(statuses) == 0 {
		return
	}
	c.publish(func(s *State) {
		for id, status := range statuses {
			s.VerificationCache[id] = status
		}
	})
}

// RegisterRequest tracks an in-flight presentation request at the state
// layer and emits an OIDCEvent for the registration.
func (c *Coordinator) RegisterRequest(req presentation.PresentationRequest) {
	event := OIDCEvent{Kind: OIDCRequestCreated, State: req.State, Timestamp: c.clock().UTC()}
	c.publish(func(s *State) {
		s.ActiveOIDCRequests[req.State] = req
		s.LastOIDCEvent = &event
	})
	c.emit(event)
}

// ResolveRequest removes and returns the tracked request for a state token.
// Resolution is recorded in the snapshot but emits no discrete event.
func (c *Coordinator) ResolveRequest(state string) (presentation.PresentationRequest, bool) {
	var (
		req   presentation.PresentationRequest
		found bool
	)
	c.publish(func(s *State) {
		req, found = s.ActiveOIDCRequests[state]
		if !found {
			return
		}
		delete(s.ActiveOIDCRequests, state)
		event := OIDCEvent{Kind: OIDCRequestResolved, State: state, Timestamp: c.clock().UTC()}
		s.LastOIDCEvent = &event
	})
	return req, found
}

// recordError stores a failure in the snapshot. Errors never cross the
// publish boundary as panics or poisoned state.
func (c *Coordinator) recordError(err error) {
	c.publish(func(s *State) {
		s.LastError = err.Error()
		s.IsLoading = false
	})
	c.logf("recorded error: %v", err)
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf("coordinator: "+format, args...)
	}
}
