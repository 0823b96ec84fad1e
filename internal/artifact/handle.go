package artifact

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is an externally-visible resource reference to an assembled
// artifact. Handles are revocable; a revoked handle keeps its URI but no
// longer resolves to data.
type Handle struct {
	ID  uuid.UUID
	URI string

	mu       sync.Mutex
	artifact *Artifact
	revoked  bool
}

// Artifact resolves the handle, or nil once revoked.
func (h *Handle) Artifact() *Artifact {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return nil
	}
	return h.artifact
}

func (h *Handle) Revoked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.revoked
}

func (h *Handle) revoke() {
	h.mu.Lock()
	h.revoked = true
	h.artifact = nil
	h.mu.Unlock()
}

// Registry enforces the single-outstanding-handle policy for one session
// instance: issuing a new handle revokes the previous one.
type Registry struct {
	mu      sync.Mutex
	current *Handle
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Issue revokes any outstanding handle and issues a fresh one for a.
func (r *Registry) Issue(a *Artifact) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.revoke()
	}
	id := uuid.New()
	r.current = &Handle{
		ID:       id,
		URI:      "mictape://artifact/" + id.String(),
		artifact: a,
	}
	return r.current
}

// RevokeAll revokes the outstanding handle, if any.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.revoke()
		r.current = nil
	}
}
