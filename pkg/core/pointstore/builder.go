// This file defines the Builder, the loader-facing construction path of the
// Store. The builder tracks the count of points constructed so far, so that
// a loader failing partway through can unwind exactly the prefix it built.
package pointstore

import (
	"fmt"

	"github.com/ManaLama/anticlust/pkg/core/distance"
	"github.com/ManaLama/anticlust/pkg/core/types"
	"github.com/x448/float16"
)

// Builder constructs a Store one point at a time. On a failed load call
// Discard to recycle the appended prefix; on success call Finish to seal
// the store. A builder must not be used after either call.
type Builder struct {
	store *Store
	done  bool
}

// NewBuilder prepares storage for up to n points of dimension dim.
func NewBuilder(n, dim int, precision distance.Precision) (*Builder, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative capacity %d", n)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if !precision.Valid() {
		return nil, fmt.Errorf("unsupported precision %q", precision)
	}
	s := &Store{dim: dim, precision: precision}
	if precision == distance.Float16 {
		s.vecF16 = make([][]uint16, n)
	} else {
		s.vecF64 = make([][]float64, n)
	}
	return &Builder{store: s}, nil
}

// Append copies values into an owned buffer and bumps the constructed count.
func (b *Builder) Append(values []float64) error {
	if b.done {
		return fmt.Errorf("builder already finished or discarded: %w", types.ErrInvalidState)
	}
	s := b.store
	if s.count >= s.Cap() {
		return fmt.Errorf("store full: capacity %d", s.Cap())
	}
	if len(values) != s.dim {
		return fmt.Errorf("vector length %d, want %d", len(values), s.dim)
	}
	if s.precision == distance.Float16 {
		buf := getF16(s.dim)
		for i, v := range values {
			buf[i] = float16.Fromfloat32(float32(v)).Bits()
		}
		s.vecF16[s.count] = buf
	} else {
		buf := getF64(s.dim)
		copy(buf, values)
		s.vecF64[s.count] = buf
	}
	s.count++
	return nil
}

// Len returns the number of points appended so far.
func (b *Builder) Len() int { return b.store.count }

// Finish seals and returns the store. The store may hold fewer points than
// its capacity; the unconstructed remainder holds no allocations.
func (b *Builder) Finish() (*Store, error) {
	if b.done {
		return nil, fmt.Errorf("builder already finished or discarded: %w", types.ErrInvalidState)
	}
	b.done = true
	return b.store, nil
}

// Discard is the failure path of a loader: it recycles exactly the vectors
// appended so far and reports how many were recycled. The unconstructed
// remainder is not touched.
func (b *Builder) Discard() (int, error) {
	if b.done {
		return 0, fmt.Errorf("builder already finished or discarded: %w", types.ErrInvalidState)
	}
	b.done = true
	return b.store.Release()
}
