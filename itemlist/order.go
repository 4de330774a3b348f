package itemlist

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// orderIndex is the sorted sequence of item ids backing a List. Outside of a
// single mutation it is always a permutation of the item store's key set.
type orderIndex struct {
	ids    []uuid.UUID
	lookup func(uuid.UUID) *Item
	cmp    *comparator
}

// positionFor returns the index at which the item sorts under the current
// comparator: the first position whose resident item does not sort strictly
// before it. For an id already in the sequence this is its current index.
func (o *orderIndex) positionFor(it *Item) int {
	return sort.Search(len(o.ids), func(i int) bool {
		return o.cmp.compare(o.lookup(o.ids[i]), it) >= 0
	})
}

// indexOf returns the current index of id, or -1 when absent.
func (o *orderIndex) indexOf(id uuid.UUID) int {
	for i, other := range o.ids {
		if other == id {
			return i
		}
	}
	return -1
}

func (o *orderIndex) insertAt(i int, id uuid.UUID) {
	o.ids = append(o.ids, uuid.UUID{})
	copy(o.ids[i+1:], o.ids[i:])
	o.ids[i] = id
}

func (o *orderIndex) removeAt(i int) {
	o.ids = append(o.ids[:i], o.ids[i+1:]...)
}

// rebuild re-sorts the whole sequence from scratch under the current
// comparator.
func (o *orderIndex) rebuild() {
	sort.Slice(o.ids, func(i, j int) bool {
		return o.cmp.compare(o.lookup(o.ids[i]), o.lookup(o.ids[j])) < 0
	})
}

// mustLookup resolves an id that the index believes it holds. A miss means
// the store and the index have diverged, which would hand observers indices
// into a sequence that no longer exists, so it is treated as unreachable.
func mustLookup(items map[uuid.UUID]*Item, id uuid.UUID) *Item {
	it, ok := items[id]
	if !ok {
		panic(fmt.Sprintf("itemlist: id %s present in order index but missing from store", id))
	}
	return it
}
