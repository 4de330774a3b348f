package itemlist

import (
	"sync"

	"github.com/google/uuid"
)

// Membership is a side index recording which lists currently reference each
// item id. It replaces back-pointers from items to their owning collections:
// items stay plain data owned by their list, and collaborators that receive
// out-of-band refresh events use the index to route them to the right lists.
//
// A Membership may be shared by several lists and is safe for concurrent use.
type Membership struct {
	mu     sync.RWMutex
	byItem map[uuid.UUID]map[*List]struct{}
}

// NewMembership returns an empty membership index.
func NewMembership() *Membership {
	return &Membership{byItem: make(map[uuid.UUID]map[*List]struct{})}
}

func (m *Membership) attach(id uuid.UUID, l *List) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lists, ok := m.byItem[id]
	if !ok {
		lists = make(map[*List]struct{})
		m.byItem[id] = lists
	}
	lists[l] = struct{}{}
}

func (m *Membership) detach(id uuid.UUID, l *List) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lists, ok := m.byItem[id]
	if !ok {
		return
	}
	delete(lists, l)
	if len(lists) == 0 {
		delete(m.byItem, id)
	}
}

// ListsFor returns the lists currently referencing id.
func (m *Membership) ListsFor(id uuid.UUID) []*List {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lists := make([]*List, 0, len(m.byItem[id]))
	for l := range m.byItem[id] {
		lists = append(lists, l)
	}
	return lists
}
