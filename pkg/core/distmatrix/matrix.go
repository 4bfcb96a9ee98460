// Package distmatrix owns the pairwise distance table of one clustering run:
// n independently allocated rows of float64 with uniform length. Rows start
// out absent and are allocated on demand, so a matrix abandoned partway
// through population releases exactly the rows that exist.
package distmatrix

import (
	"fmt"
	"sync"

	"github.com/ManaLama/anticlust/pkg/core/distance"
	"github.com/ManaLama/anticlust/pkg/core/pointstore"
	"github.com/ManaLama/anticlust/pkg/core/types"
)

// rowPool recycles row buffers across matrices.
var rowPool = sync.Pool{
	New: func() any {
		s := make([]float64, 0, 256)
		return &s
	},
}

// Matrix holds n rows of pairwise distances. Each row is independently
// owned; a nil row means "never computed" and is a legal state at any time,
// including release.
type Matrix struct {
	rows     [][]float64
	rowLen   int
	released bool
}

// New creates a matrix of n absent rows of length rowLen each.
func New(n, rowLen int) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative row count %d", n)
	}
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid row length %d", rowLen)
	}
	return &Matrix{rows: make([][]float64, n), rowLen: rowLen}, nil
}

// Rows returns the number of row slots.
func (m *Matrix) Rows() int { return len(m.rows) }

// RowLen returns the uniform row length.
func (m *Matrix) RowLen() int { return m.rowLen }

// AllocRow materializes row i as a zeroed buffer. Allocating a row that
// already exists is an error; the existing values would be silently lost.
func (m *Matrix) AllocRow(i int) error {
	if m.released {
		return fmt.Errorf("distance matrix: %w", types.ErrInvalidState)
	}
	if i < 0 || i >= len(m.rows) {
		return fmt.Errorf("row %d out of range [0, %d)", i, len(m.rows))
	}
	if m.rows[i] != nil {
		return fmt.Errorf("row %d already allocated", i)
	}
	m.rows[i] = getRow(m.rowLen)
	return nil
}

// SetRow copies vals into row i, allocating it if absent.
func (m *Matrix) SetRow(i int, vals []float64) error {
	if m.released {
		return fmt.Errorf("distance matrix: %w", types.ErrInvalidState)
	}
	if i < 0 || i >= len(m.rows) {
		return fmt.Errorf("row %d out of range [0, %d)", i, len(m.rows))
	}
	if len(vals) != m.rowLen {
		return fmt.Errorf("row length %d, want %d", len(vals), m.rowLen)
	}
	if m.rows[i] == nil {
		m.rows[i] = getRow(m.rowLen)
	}
	copy(m.rows[i], vals)
	return nil
}

// Row returns row i, or nil if the row is absent or out of range.
func (m *Matrix) Row(i int) []float64 {
	if m.released || i < 0 || i >= len(m.rows) {
		return nil
	}
	return m.rows[i]
}

// At returns the distance at (i, j) and reports whether the row exists.
func (m *Matrix) At(i, j int) (float64, bool) {
	row := m.Row(i)
	if row == nil || j < 0 || j >= len(row) {
		return 0, false
	}
	return row[j], true
}

// Fill computes every row from the points in ps using fn. The matrix must
// have exactly ps.Len() rows of length ps.Len() (a full pairwise table) and
// no row may have been allocated yet; Fill expects a fresh matrix.
func (m *Matrix) Fill(ps *pointstore.Store, fn distance.Func) error {
	if m.released {
		return fmt.Errorf("distance matrix: %w", types.ErrInvalidState)
	}
	n := ps.Len()
	if len(m.rows) != n || m.rowLen != n {
		return fmt.Errorf("matrix shape %dx%d, want %dx%d", len(m.rows), m.rowLen, n, n)
	}
	for i := 0; i < n; i++ {
		if err := m.AllocRow(i); err != nil {
			return err
		}
		a, err := ps.Values(i)
		if err != nil {
			return err
		}
		for j := 0; j < n; j++ {
			b, err := ps.Values(j)
			if err != nil {
				return err
			}
			m.rows[i][j] = fn(a, b)
		}
	}
	return nil
}

// Release recycles every materialized row; absent rows are a no-op. It
// returns the number of rows recycled. Rows are independent, so no ordering
// applies. A second Release is a contract violation.
func (m *Matrix) Release() (int, error) {
	if m.released {
		return 0, fmt.Errorf("distance matrix already released: %w", types.ErrInvalidState)
	}
	freed := 0
	for i, row := range m.rows {
		if row == nil {
			continue
		}
		buf := row[:0]
		rowPool.Put(&buf)
		m.rows[i] = nil
		freed++
	}
	m.released = true
	return freed, nil
}

func getRow(n int) []float64 {
	s := *(rowPool.Get().(*[]float64))
	if cap(s) < n {
		return make([]float64, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}
