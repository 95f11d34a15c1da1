package role

// Store exposes the role catalog to handlers and the generator.
type Store interface {
	List() []Role
	Resolve(raw string) (Role, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Role
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied roles.
func NewMemoryStore(items []Role) *MemoryStore {
	return &MemoryStore{items: append([]Role(nil), items...)}
}

// List returns the catalog.
func (s *MemoryStore) List() []Role {
	return append([]Role(nil), s.items...)
}

// Resolve finds a role by id or title.
func (s *MemoryStore) Resolve(raw string) (Role, bool) {
	for _, item := range s.items {
		if item.Matches(raw) {
			return item, true
		}
	}
	return Role{}, false
}
