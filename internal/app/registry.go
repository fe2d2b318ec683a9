package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/core"
)

// Binding ties a live connection to the user and session it serves.
type Binding struct {
	UserID    uint
	SessionID string
}

// Registry is the ephemeral connection table: the single source of truth for
// which session a live connection is currently attached to. It holds no I/O
// and is rebuilt from nothing on restart.
type Registry struct {
	mu       sync.RWMutex
	bindings map[core.ConnectionID]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[core.ConnectionID]Binding)}
}

// Bind inserts or overwrites the binding for the connection.
func (r *Registry) Bind(id core.ConnectionID, userID uint, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = Binding{UserID: userID, SessionID: sessionID}
	log.Debug().Str("module", "app.registry").Str("connection_id", string(id)).
		Uint("user", userID).Str("session_id", sessionID).Msg("bound connection")
}

// Unbind removes the binding if present. Removing an absent binding is a
// no-op, never an error.
func (r *Registry) Unbind(id core.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, id)
}

// Take removes and returns the binding in one step. Disconnect cleanup uses
// it so that racing disconnect signals cannot both observe the binding.
func (r *Registry) Take(id core.ConnectionID) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[id]
	if ok {
		delete(r.bindings, id)
	}
	return b, ok
}

// Lookup returns the binding for the connection, if any.
func (r *Registry) Lookup(id core.ConnectionID) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	return b, ok
}

// ConnectionsInSession returns every connection currently bound to the session.
func (r *Registry) ConnectionsInSession(sessionID string) []core.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.ConnectionID
	for id, b := range r.bindings {
		if b.SessionID == sessionID {
			out = append(out, id)
		}
	}
	return out
}

// Count returns the number of live bindings.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
