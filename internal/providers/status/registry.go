package status

// Registry resolves a provider name to its status client. Several names may
// share one client (model aliases of the same provider family).
type Registry struct {
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register binds a client to one or more provider names.
func (r *Registry) Register(client Client, names ...string) {
	for _, name := range names {
		r.clients[name] = client
	}
}

// Lookup returns the client registered for a provider name, or nil.
func (r *Registry) Lookup(name string) Client {
	return r.clients[name]
}

// Names returns every registered provider name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}
