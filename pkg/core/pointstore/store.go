// Package pointstore owns the data points of one clustering run: an array of
// feature vectors populated by a loader through a Builder that tracks how
// many points were actually constructed.
//
// Vector buffers are drawn from package-level pools and recycled on release,
// so the store's lifecycle mirrors the loader's: Append acquires one buffer
// per point, Release (or the builder's Discard on a failed load) returns
// exactly the buffers that were acquired and nothing else.
package pointstore

import (
	"fmt"
	"sync"

	"github.com/ManaLama/anticlust/pkg/core/distance"
	"github.com/ManaLama/anticlust/pkg/core/types"
	"github.com/x448/float16"
)

// vecPool recycles float64 feature vector buffers across runs, reducing
// pressure on the garbage collector when many workspaces are opened and torn
// down in sequence.
var vecPool = sync.Pool{
	New: func() any {
		s := make([]float64, 0, 64)
		return &s
	},
}

// compactPool recycles the uint16 buffers backing half-precision storage.
var compactPool = sync.Pool{
	New: func() any {
		s := make([]uint16, 0, 64)
		return &s
	},
}

// Store owns up to Cap() points, each holding one owned feature vector of
// uniform length Dim(). Only the prefix [0, Len()) holds live vectors; the
// remainder was never constructed. The Store is sealed: points are added
// through a Builder, never directly.
type Store struct {
	dim       int
	precision distance.Precision

	// valid prefix is [0, count); one of the two backing arrays is in use
	// depending on precision, the other stays nil.
	vecF64 [][]float64
	vecF16 [][]uint16
	count  int

	released bool
}

// Len returns the number of points actually constructed.
func (s *Store) Len() int { return s.count }

// Cap returns the capacity the store was created with.
func (s *Store) Cap() int {
	if s.vecF16 != nil {
		return len(s.vecF16)
	}
	return len(s.vecF64)
}

// Dim returns the feature vector length shared by all points.
func (s *Store) Dim() int { return s.dim }

// Precision returns the storage format of the feature vectors.
func (s *Store) Precision() distance.Precision { return s.precision }

// Values returns the feature vector of point i decoded to float64.
// For full-precision stores the returned slice is the backing buffer and
// must be treated as immutable; for half-precision stores it is a fresh
// decode. Accessing a released store or an index outside [0, Len()) returns
// an error.
func (s *Store) Values(i int) ([]float64, error) {
	if s.released {
		return nil, fmt.Errorf("point store: %w", types.ErrInvalidState)
	}
	if i < 0 || i >= s.count {
		return nil, fmt.Errorf("point %d out of range [0, %d)", i, s.count)
	}
	if s.precision == distance.Float16 {
		out := make([]float64, s.dim)
		for j, bits := range s.vecF16[i] {
			out[j] = float64(float16.Frombits(bits).Float32())
		}
		return out, nil
	}
	return s.vecF64[i], nil
}

// Release recycles the feature vector buffers of the constructed prefix
// [0, Len()) and touches the unconstructed remainder not at all. It returns
// the number of vectors recycled. Calling Release twice is a contract
// violation and fails with ErrInvalidState; the first call already made
// every vector unreachable.
func (s *Store) Release() (int, error) {
	if s.released {
		return 0, fmt.Errorf("point store already released: %w", types.ErrInvalidState)
	}
	freed := 0
	for i := 0; i < s.count; i++ {
		if s.precision == distance.Float16 {
			buf := s.vecF16[i][:0]
			compactPool.Put(&buf)
			s.vecF16[i] = nil
		} else {
			buf := s.vecF64[i][:0]
			vecPool.Put(&buf)
			s.vecF64[i] = nil
		}
		freed++
	}
	s.count = 0
	s.released = true
	return freed, nil
}

func getF64(n int) []float64 {
	s := *(vecPool.Get().(*[]float64))
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

func getF16(n int) []uint16 {
	s := *(compactPool.Get().(*[]uint16))
	if cap(s) < n {
		return make([]uint16, n)
	}
	return s[:n]
}
