// Package catindex owns the per-category point index of one clustering run:
// c slots, each a lazily allocated array of point IDs. A nil slot means the
// category never received a member; releasing it is a no-op. Slots are
// mutually independent, so release order between them does not matter.
package catindex

import (
	"fmt"

	"github.com/ManaLama/anticlust/pkg/core/types"
)

// Index maps each category in [0, c) to its member point IDs.
type Index struct {
	slots    [][]int
	released bool
}

// New creates an index with c empty categories.
func New(c int) (*Index, error) {
	if c < 0 {
		return nil, fmt.Errorf("negative category count %d", c)
	}
	return &Index{slots: make([][]int, c)}, nil
}

// Categories returns the number of category slots.
func (x *Index) Categories() int { return len(x.slots) }

// Add records pointID as a member of category, allocating the slot on first
// use.
func (x *Index) Add(category, pointID int) error {
	if x.released {
		return fmt.Errorf("category index: %w", types.ErrInvalidState)
	}
	if category < 0 || category >= len(x.slots) {
		return fmt.Errorf("category %d out of range [0, %d)", category, len(x.slots))
	}
	x.slots[category] = append(x.slots[category], pointID)
	return nil
}

// Members returns the point IDs of category, or nil if the slot was never
// populated or is out of range. The returned slice is the backing array and
// must be treated as immutable.
func (x *Index) Members(category int) []int {
	if x.released || category < 0 || category >= len(x.slots) {
		return nil
	}
	return x.slots[category]
}

// Release frees every populated slot exactly once; nil slots are a no-op.
// It returns the number of slots freed. A second Release is a contract
// violation.
func (x *Index) Release() (int, error) {
	if x.released {
		return 0, fmt.Errorf("category index already released: %w", types.ErrInvalidState)
	}
	freed := 0
	for i, slot := range x.slots {
		if slot == nil {
			continue
		}
		x.slots[i] = nil
		freed++
	}
	x.released = true
	return freed, nil
}
