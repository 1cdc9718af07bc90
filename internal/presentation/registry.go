package presentation

import "sync"

// Registry tracks in-flight presentation requests by state. All access goes
// through one mutex so a register immediately followed by a lookup can never
// observe a half-inserted entry, and Consume's lookup-then-delete is atomic:
// no two concurrent responses can both succeed for the same state.
type Registry struct {
	mu       sync.Mutex
	requests map[string]PresentationRequest
}

// NewRegistry constructs an empty request registry.
func NewRegistry() *Registry {
	return &Registry{requests: make(map[string]PresentationRequest)}
}

// Register stores a request under its state token.
func (r *Registry) Register(req PresentationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.State] = req
}

// Lookup returns the request for a state without consuming it.
func (r *Registry) Lookup(state string) (PresentationRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[state]
	return req, ok
}

// Consume removes and returns the request for a state. The second return is
// false when the state is unknown or was already consumed.
func (r *Registry) Consume(state string) (PresentationRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[state]
	if ok {
		delete(r.requests, state)
	}
	return req, ok
}

// Len reports the number of in-flight requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
