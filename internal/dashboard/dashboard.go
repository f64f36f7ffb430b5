// Package dashboard serves a live view of verification runs: an in-memory
// run store, an SSE hub for push updates, and a small HTTP API with an
// inline single-page UI.
package dashboard

// Dashboard ties together all dashboard components.
type Dashboard struct {
	Server  *Server
	Store   *Store
	Hub     *Hub
	Emitter *Emitter
}

// New creates a fully wired dashboard.
func New(config *Config) *Dashboard {
	store := NewStore()
	hub := NewHub()
	emitter := NewEmitter(store, hub)
	server := NewServer(config, store, hub)

	return &Dashboard{
		Server:  server,
		Store:   store,
		Hub:     hub,
		Emitter: emitter,
	}
}
