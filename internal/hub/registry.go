// Package hub fans engine events out to connected network clients.
package hub

import "sync"

// Client is a connected peer that accepts serialized events.
// Send must not block on a slow peer.
type Client interface {
	Send(payload []byte) error
}

// Registry tracks connected clients by identity.
type Registry struct {
	mu      sync.RWMutex
	clients map[Client]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[Client]struct{})}
}

// Register adds c. Registering the same client twice keeps one entry.
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

// Unregister removes c. It is a no-op if c is not registered.
func (r *Registry) Unregister(c Client) {
	r.mu.Lock()
	delete(r.clients, c)
	r.mu.Unlock()
}

// ForEach calls fn for every client registered at the time of the call, in
// no particular order. fn runs without the registry lock held, so it may
// register or unregister clients.
func (r *Registry) ForEach(fn func(Client)) {
	r.mu.RLock()
	clients := make([]Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		fn(c)
	}
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
