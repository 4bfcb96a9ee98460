package pointstore

import (
	"errors"
	"math"
	"testing"

	"github.com/ManaLama/anticlust/pkg/core/distance"
	"github.com/ManaLama/anticlust/pkg/core/types"
)

func buildStore(t *testing.T, vectors [][]float64, cap int, p distance.Precision) *Store {
	t.Helper()
	dim := 1
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	b, err := NewBuilder(cap, dim, p)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for i, v := range vectors {
		if err := b.Append(v); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	s, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return s
}

func TestBuilderAppendAndValues(t *testing.T) {
	vecs := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	s := buildStore(t, vecs, 3, distance.Float64)

	if s.Len() != 3 || s.Cap() != 3 || s.Dim() != 2 {
		t.Fatalf("shape: len=%d cap=%d dim=%d", s.Len(), s.Cap(), s.Dim())
	}
	for i, want := range vecs {
		got, err := s.Values(i)
		if err != nil {
			t.Fatalf("Values(%d): %v", i, err)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("point %d[%d]: got %f, want %f", i, j, got[j], want[j])
			}
		}
	}
}

func TestPartialLoadReleasesOnlyBuiltPrefix(t *testing.T) {
	// Loader allocates 5 slots but fails after constructing 3 points.
	b, err := NewBuilder(5, 2, distance.Float64)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := b.Append([]float64{float64(i), float64(i)}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	freed, err := b.Discard()
	if err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if freed != 3 {
		t.Errorf("Discard freed %d vectors, want 3", freed)
	}

	// The builder is dead after Discard.
	if err := b.Append([]float64{9, 9}); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("Append after Discard: got %v, want ErrInvalidState", err)
	}
	if _, err := b.Finish(); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("Finish after Discard: got %v, want ErrInvalidState", err)
	}
}

func TestReleaseCountsOnlyConstructedPoints(t *testing.T) {
	// Capacity 5, only 2 constructed before sealing.
	s := buildStore(t, [][]float64{{1, 1}, {2, 2}}, 5, distance.Float64)

	freed, err := s.Release()
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if freed != 2 {
		t.Errorf("Release freed %d vectors, want 2", freed)
	}
}

func TestDoubleReleaseFailsFast(t *testing.T) {
	s := buildStore(t, [][]float64{{1}}, 1, distance.Float64)
	if _, err := s.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if _, err := s.Release(); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("second Release: got %v, want ErrInvalidState", err)
	}
	if _, err := s.Values(0); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("Values after Release: got %v, want ErrInvalidState", err)
	}
}

func TestEmptyStoreRelease(t *testing.T) {
	s := buildStore(t, nil, 0, distance.Float64)
	freed, err := s.Release()
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if freed != 0 {
		t.Errorf("Release freed %d vectors, want 0", freed)
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	vecs := [][]float64{{1.5, -0.25}, {100, 0}}
	s := buildStore(t, vecs, 2, distance.Float16)

	for i, want := range vecs {
		got, err := s.Values(i)
		if err != nil {
			t.Fatalf("Values(%d): %v", i, err)
		}
		for j := range want {
			// Half precision is lossy but exact for these small values.
			if math.Abs(got[j]-want[j]) > 1e-3 {
				t.Errorf("point %d[%d]: got %f, want %f", i, j, got[j], want[j])
			}
		}
	}

	freed, err := s.Release()
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if freed != 2 {
		t.Errorf("Release freed %d vectors, want 2", freed)
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := NewBuilder(-1, 2, distance.Float64); err == nil {
		t.Error("negative capacity: expected error")
	}
	if _, err := NewBuilder(1, 0, distance.Float64); err == nil {
		t.Error("zero dimension: expected error")
	}
	if _, err := NewBuilder(1, 2, "int8"); err == nil {
		t.Error("unsupported precision: expected error")
	}

	b, err := NewBuilder(1, 2, distance.Float64)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.Append([]float64{1}); err == nil {
		t.Error("wrong vector length: expected error")
	}
	if err := b.Append([]float64{1, 2}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := b.Append([]float64{3, 4}); err == nil {
		t.Error("append past capacity: expected error")
	}
}
