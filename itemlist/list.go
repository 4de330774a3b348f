package itemlist

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/lookout/logging"
)

// List is a live sorted collection of items. It owns the item store and the
// sorted index over it, reconciles both against single add/remove/refresh
// signals or a full rescan, and broadcasts one ChangeBatch per mutation to
// its subscribers.
//
// A single lock guards the store and the index together, so readers observe
// either the pre- or post-mutation state and never a torn one. Mutation
// calls themselves must be serialized by the caller: the permutation
// invariant between store and index only holds between calls, not during.
type List struct {
	mu         sync.RWMutex
	items      map[uuid.UUID]*Item
	order      *orderIndex
	spec       SortSpec
	cmp        *comparator
	factory    Factory
	registry   registry
	membership *Membership
	post       func(func())
	logger     *logrus.Entry
}

// Option configures a List at construction time.
type Option func(*List)

// WithMembership shares a back-reference index across lists so collaborators
// can route per-item refresh events to every list referencing the item.
func WithMembership(m *Membership) Option {
	return func(l *List) { l.membership = m }
}

// WithPoster defers Resync batch dispatch to the supplied execution context,
// e.g. a UI-affine queue. All other batches stay synchronous.
func WithPoster(post func(func())) Option {
	return func(l *List) { l.post = post }
}

// WithLogger overrides the component logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(l *List) { l.logger = logger }
}

// New creates an empty list ordered by spec. The factory resolves locators
// passed to Add and Resync into items.
func New(factory Factory, spec SortSpec, opts ...Option) *List {
	cmp := newComparator(spec)
	l := &List{
		items:   make(map[uuid.UUID]*Item),
		spec:    spec,
		cmp:     cmp,
		factory: factory,
	}
	l.order = &orderIndex{
		cmp:    cmp,
		lookup: func(id uuid.UUID) *Item { return mustLookup(l.items, id) },
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.NewLogger("itemlist")
	}
	return l
}

// Add resolves locator through the factory and inserts the resulting item at
// its sorted position. Adding an id the list already tracks is a no-op and
// dispatches nothing.
func (l *List) Add(locator string) error {
	it, err := l.factory.ItemFor(locator)
	if err != nil {
		return err
	}
	l.mu.Lock()
	batch := l.insertLocked(it)
	l.mu.Unlock()
	l.dispatch(batch)
	return nil
}

// insertLocked adds it to the store and index, returning a batch with the
// insertion index, or an empty batch when the id is already tracked.
func (l *List) insertLocked(it *Item) *ChangeBatch {
	batch := &ChangeBatch{}
	if _, ok := l.items[it.ID]; ok {
		return batch
	}
	l.items[it.ID] = it
	idx := l.order.positionFor(it)
	l.order.insertAt(idx, it.ID)
	if l.membership != nil {
		l.membership.attach(it.ID, l)
	}
	batch.addInsertion(idx)
	return batch
}

// Remove drops the item with id from the list. Unknown ids are a no-op; the
// external event source may race with a prior removal.
func (l *List) Remove(id uuid.UUID) {
	l.mu.Lock()
	batch := &ChangeBatch{}
	if _, ok := l.items[id]; ok {
		idx := l.mustIndexOfLocked(id)
		l.order.removeAt(idx)
		l.deleteLocked(id)
		batch.addDeletion(idx)
	}
	l.mu.Unlock()
	l.dispatch(batch)
}

// Refresh restores the sorted position of an item whose comparison-relevant
// fields were mutated in place by the owning collaborator. The batch carries
// the item's (new) index as a modification, plus a movement when the index
// changed. Unknown ids are a no-op.
func (l *List) Refresh(id uuid.UUID) {
	l.mu.Lock()
	batch := &ChangeBatch{}
	if it, ok := l.items[id]; ok {
		oldIdx := l.mustIndexOfLocked(id)
		l.order.removeAt(oldIdx)
		newIdx := l.order.positionFor(it)
		l.order.insertAt(newIdx, id)
		batch.addModification(newIdx)
		if oldIdx != newIdx {
			batch.addMovement(oldIdx, newIdx)
		}
	}
	l.mu.Unlock()
	l.dispatch(batch)
}

// Resync reconciles the list against an authoritative enumeration of
// locators, typically produced by a full rescan. Unseen locators are added,
// tracked items absent from the enumeration are marked deleted and removed,
// and everything lands in one combined batch. Locators the factory cannot
// resolve are skipped; their backing resource is treated as gone.
//
// When a poster was configured the batch is handed to it instead of being
// dispatched synchronously.
func (l *List) Resync(locators []string) {
	incoming := make([]*Item, 0, len(locators))
	for _, loc := range locators {
		it, err := l.factory.ItemFor(loc)
		if err != nil {
			l.logger.WithError(err).WithField("locator", loc).
				Warn("Skipping unresolvable locator during resync")
			continue
		}
		incoming = append(incoming, it)
	}

	l.mu.Lock()
	batch := &ChangeBatch{}
	seen := make(map[uuid.UUID]struct{}, len(incoming))
	for _, it := range incoming {
		seen[it.ID] = struct{}{}
		if inserted := l.insertLocked(it); len(inserted.Insertions) == 1 {
			batch.addInsertion(inserted.Insertions[0])
		}
	}

	// Mark vanished entries and collect their indices largest-first, so the
	// removal pass never shifts an index recorded earlier in the batch.
	var dead []int
	for id, it := range l.items {
		if _, ok := seen[id]; ok {
			continue
		}
		it.Deleted = true
		dead = append(dead, l.mustIndexOfLocked(id))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(dead)))
	for _, idx := range dead {
		id := l.order.ids[idx]
		batch.addDeletion(idx)
		l.order.removeAt(idx)
		l.deleteLocked(id)
	}
	l.mu.Unlock()

	if batch.IsEmpty() {
		return
	}
	if l.post != nil {
		l.post(func() { l.deliver(batch) })
		return
	}
	l.deliver(batch)
}

// SetSortOrder switches the active sort spec and re-sorts the whole list,
// emitting one movement per item whose position changed. Membership is
// unaffected, so the batch never carries insertions or deletions. Setting
// the current spec again is a no-op.
func (l *List) SetSortOrder(spec SortSpec) {
	l.mu.Lock()
	if spec == l.spec {
		l.mu.Unlock()
		return
	}
	l.spec = spec
	l.cmp.spec = spec

	prev := append([]uuid.UUID(nil), l.order.ids...)
	l.order.rebuild()
	newPos := make(map[uuid.UUID]int, len(l.order.ids))
	for i, id := range l.order.ids {
		newPos[id] = i
	}
	batch := &ChangeBatch{}
	for oldIdx, id := range prev {
		if ni := newPos[id]; ni != oldIdx {
			batch.addMovement(oldIdx, ni)
		}
	}
	l.mu.Unlock()
	l.dispatch(batch)
}

// SortOrder returns the active sort spec.
func (l *List) SortOrder() SortSpec {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.spec
}

// Count returns the number of tracked items.
func (l *List) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order.ids)
}

// ItemAt returns the item at index i in the current ordering.
func (l *List) ItemAt(i int) *Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return mustLookup(l.items, l.order.ids[i])
}

// Items returns a snapshot of all items in the current ordering.
func (l *List) Items() []*Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Item, len(l.order.ids))
	for i, id := range l.order.ids {
		out[i] = mustLookup(l.items, id)
	}
	return out
}

// ItemByID returns the tracked item with id, if any.
func (l *List) ItemByID(id uuid.UUID) (*Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.items[id]
	return it, ok
}

// IndexOf returns the current index of id and whether it is tracked.
func (l *List) IndexOf(id uuid.UUID) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.order.indexOf(id)
	return idx, idx >= 0
}

// Subscribe registers fn to receive every subsequent change batch. The
// returned token is held weakly: dropping it ends the subscription, and
// Unsubscribe ends it explicitly.
func (l *List) Subscribe(fn ChangeFunc) *Token {
	return l.registry.subscribe(fn)
}

// Unsubscribe removes a subscription. Unknown or already removed tokens are
// a no-op.
func (l *List) Unsubscribe(tok *Token) {
	l.registry.unsubscribe(tok)
}

// mustIndexOfLocked returns the index of an id the store tracks. The id
// missing from the index means the two structures have diverged, which is a
// bookkeeping fault this package can only make worse by guessing, so it is
// fatal.
func (l *List) mustIndexOfLocked(id uuid.UUID) int {
	idx := l.order.indexOf(id)
	if idx < 0 {
		panic(fmt.Sprintf("itemlist: id %s present in store but missing from order index", id))
	}
	return idx
}

// deleteLocked removes id from the store and releases its back-references.
// The caller has already removed it from the order index.
func (l *List) deleteLocked(id uuid.UUID) {
	delete(l.items, id)
	if l.membership != nil {
		l.membership.detach(id, l)
	}
}

// dispatch delivers a synchronous batch, skipping empty ones.
func (l *List) dispatch(batch *ChangeBatch) {
	if batch.IsEmpty() {
		return
	}
	l.deliver(batch)
}

func (l *List) deliver(batch *ChangeBatch) {
	l.logger.WithFields(logrus.Fields{
		"insertions":    len(batch.Insertions),
		"deletions":     len(batch.Deletions),
		"modifications": len(batch.Modifications),
		"movements":     len(batch.Movements),
	}).Debug("Dispatching change batch")
	l.registry.dispatch(l, batch)
}
