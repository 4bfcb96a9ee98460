// Package clusterlist owns the assignment result of one clustering run:
// k singly-linked chains of nodes, one chain per cluster, each node holding
// the ID of an assigned point. Every node is exclusively owned by exactly one
// chain; chains are acyclic and never share nodes.
//
// Nodes come from a package-level pool and go back to it on release, which
// walks each chain strictly forward, always advancing past a node before
// recycling it. Release requires every cluster to hold at least one node;
// an empty chain at release time marks a bug in the assignment step and
// fails fast with ErrInvalidState.
package clusterlist

import (
	"fmt"
	"sync"

	"github.com/ManaLama/anticlust/pkg/core/types"
)

// node is one link of a cluster chain. Exactly one node (or one list head)
// owns the node referenced by next.
type node struct {
	pointID int
	next    *node
}

var nodePool = sync.Pool{
	New: func() any { return new(node) },
}

// List holds k cluster chains.
type List struct {
	heads    []*node
	lens     []int
	released bool
}

// New creates a list of k empty chains, k >= 1.
func New(k int) (*List, error) {
	if k < 1 {
		return nil, fmt.Errorf("cluster count %d, want >= 1", k)
	}
	return &List{heads: make([]*node, k), lens: make([]int, k)}, nil
}

// Clusters returns the number of chains.
func (l *List) Clusters() int { return len(l.heads) }

// Len returns the number of points assigned to cluster, or 0 if cluster is
// out of range.
func (l *List) Len(cluster int) int {
	if cluster < 0 || cluster >= len(l.lens) {
		return 0
	}
	return l.lens[cluster]
}

// Empty reports whether no chain has received any node yet. A list that is
// entirely empty holds nothing to release; a list where only some chains are
// empty violates the release precondition.
func (l *List) Empty() bool {
	for _, h := range l.heads {
		if h != nil {
			return false
		}
	}
	return true
}

// Assign pushes pointID onto the front of the chain for cluster.
func (l *List) Assign(cluster, pointID int) error {
	if l.released {
		return fmt.Errorf("cluster list: %w", types.ErrInvalidState)
	}
	if cluster < 0 || cluster >= len(l.heads) {
		return fmt.Errorf("cluster %d out of range [0, %d)", cluster, len(l.heads))
	}
	n := nodePool.Get().(*node)
	n.pointID = pointID
	n.next = l.heads[cluster]
	l.heads[cluster] = n
	l.lens[cluster]++
	return nil
}

// Walk visits the point IDs of cluster in chain order (most recently
// assigned first) until fn returns false or the chain ends.
func (l *List) Walk(cluster int, fn func(pointID int) bool) error {
	if l.released {
		return fmt.Errorf("cluster list: %w", types.ErrInvalidState)
	}
	if cluster < 0 || cluster >= len(l.heads) {
		return fmt.Errorf("cluster %d out of range [0, %d)", cluster, len(l.heads))
	}
	for ptr := l.heads[cluster]; ptr != nil; ptr = ptr.next {
		if !fn(ptr.pointID) {
			return nil
		}
	}
	return nil
}

// Release tears down all k chains and returns the total number of nodes
// recycled. Each chain is walked strictly forward; the cursor saves its
// position, advances to the successor, and only then recycles the node it
// left behind, so a node is never touched after it has been recycled. The
// terminal node of each chain is recycled after its walk ends.
//
// Preconditions: the list has not been released before, and every chain has
// at least one node. On violation nothing is recycled and ErrInvalidState is
// returned. A second Release is always a contract violation; the first call
// already made every node unreachable.
func (l *List) Release() (int, error) {
	if l.released {
		return 0, fmt.Errorf("cluster list already released: %w", types.ErrInvalidState)
	}
	for i, h := range l.heads {
		if h == nil {
			return 0, fmt.Errorf("cluster %d has no assigned points: %w", i, types.ErrInvalidState)
		}
	}
	freed := 0
	for i := range l.heads {
		ptr := l.heads[i]
		for ptr.next != nil {
			prev := ptr
			ptr = ptr.next
			recycle(prev)
			freed++
		}
		recycle(ptr)
		freed++
		l.heads[i] = nil
		l.lens[i] = 0
	}
	l.released = true
	return freed, nil
}

func recycle(n *node) {
	n.pointID = 0
	n.next = nil
	nodePool.Put(n)
}
