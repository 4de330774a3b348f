// Package itemlist maintains live sorted collections of filesystem items.
//
// A List is an ordered projection over a set of items keyed by stable ids.
// Mutations (Add, Remove, Refresh, Resync, SetSortOrder) keep the ordering
// consistent with the active sort spec and notify subscribers with a minimal
// set of index-level changes instead of forcing a full reload.
package itemlist

import (
	"time"

	"github.com/google/uuid"
)

// Item is a single tracked entry. The id is assigned once by the factory
// that created the item and never changes for the item's lifetime.
//
// Name, Size, ModTime and IsDir are the comparison-relevant fields. The
// collaborator that owns the backing resource mutates them in place and then
// calls List.Refresh to restore ordering.
type Item struct {
	// ID uniquely identifies the item across renames and moves.
	ID uuid.UUID

	// Path is the locator the item was last resolved from.
	Path string

	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool

	// Deleted is set by the owning collaborator once the backing resource
	// is confirmed gone. Resync reads it to decide deletions.
	Deleted bool
}

// sortSize returns the value the size key compares on. Directories have no
// intrinsic size and all compare at zero.
func (it *Item) sortSize() int64 {
	if it.IsDir {
		return 0
	}
	return it.Size
}

// Factory resolves a locator into its Item, assigning or reusing the item's
// stable id. Implementations must be deterministic per id: the same locator
// resolves to the same id across calls.
type Factory interface {
	ItemFor(locator string) (*Item, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(locator string) (*Item, error)

// ItemFor calls f(locator).
func (f FactoryFunc) ItemFor(locator string) (*Item, error) {
	return f(locator)
}
