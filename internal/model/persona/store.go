package persona

// Store exposes persona retrieval for handlers and the turn orchestrator.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	Default() Persona
}

// MemoryStore implements Store with an in-memory slice. The first item whose ID
// equals DefaultID is the default; otherwise the first item is.
type MemoryStore struct {
	items    []Persona
	fallback Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
// Later duplicates of an ID are ignored.
func NewMemoryStore(items []Persona) *MemoryStore {
	seen := make(map[string]struct{}, len(items))
	store := &MemoryStore{items: make([]Persona, 0, len(items))}
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		store.items = append(store.items, item)
	}

	if p, ok := store.FindByID(DefaultID); ok {
		store.fallback = p
	} else if len(store.items) > 0 {
		store.fallback = store.items[0]
	}
	return store
}

// List returns the predefined persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Default returns the persona used when nothing else applies.
func (s *MemoryStore) Default() Persona {
	return s.fallback
}
