// Package types holds the small shared contracts used across the core
// data structures: the sentinel error for lifecycle contract violations and
// the release accounting struct reported by the workspace orchestrator.
package types

import "errors"

// ErrInvalidState signals that a release operation was invoked on a structure
// that violates its precondition: a cluster chain with no head, or a structure
// that has already been released. It marks a bug in the construction or
// teardown sequence, not a recoverable runtime condition; callers should not
// retry. Check with errors.Is.
var ErrInvalidState = errors.New("anticlust: invalid structure state")

// ReleaseStats accounts for the owned allocations recycled during the
// teardown of one workspace.
type ReleaseStats struct {
	// Nodes is the number of cluster chain nodes recycled.
	Nodes int
	// Slots is the number of category index arrays freed.
	Slots int
	// Rows is the number of distance matrix rows recycled.
	Rows int
	// Vectors is the number of point feature vectors recycled.
	Vectors int
}

// Total returns the overall number of recycled allocations.
func (s ReleaseStats) Total() int {
	return s.Nodes + s.Slots + s.Rows + s.Vectors
}
