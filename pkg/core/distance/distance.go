// Package distance provides the distance kernels used to populate the
// pairwise distance matrix from point feature vectors.
//
// The package dispatches to the best implementation available at startup:
// pure Go loops by default, with Gonum-backed routines (which handle SIMD
// dispatch internally) substituted on CPUs where they win.
package distance

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/floats"
)

// Metric identifies a distance calculation between two feature vectors.
type Metric string

// Precision identifies the storage format of point feature vectors.
type Precision string

const (
	// Euclidean is the squared Euclidean distance.
	Euclidean Metric = "euclidean"
	// Manhattan is the L1 (taxicab) distance.
	Manhattan Metric = "manhattan"

	// Float64 stores feature vectors at full double precision.
	Float64 Precision = "float64"
	// Float16 stores feature vectors compactly at half precision.
	Float16 Precision = "float16"
)

// Func computes the distance between two equal-length feature vectors.
type Func func(a, b []float64) float64

var kernels = map[Metric]Func{
	Euclidean: squaredEuclidean,
	Manhattan: manhattan,
}

func init() {
	impl := "pure Go"
	if cpuid.CPU.Has(cpuid.AVX2) {
		kernels[Euclidean] = squaredEuclideanGonum
		kernels[Manhattan] = manhattanGonum
		impl = "Gonum (SIMD)"
	}

	log.Printf("anticlust compute kernels: Euclidean=%s Manhattan=%s", impl, impl)
}

// ForMetric returns the kernel registered for the given metric.
func ForMetric(m Metric) (Func, error) {
	fn, ok := kernels[m]
	if !ok {
		return nil, fmt.Errorf("unknown distance metric %q", m)
	}
	return fn, nil
}

// Valid reports whether p names a supported storage precision.
func (p Precision) Valid() bool {
	return p == Float64 || p == Float16
}

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// diffPool holds scratch buffers for the Gonum squared Euclidean kernel, so
// the difference vector costs no allocation on the hot path.
var diffPool = sync.Pool{
	New: func() any {
		s := make([]float64, 0, 256)
		return &s
	},
}

func squaredEuclideanGonum(a, b []float64) float64 {
	// The squared distance is formed as dot(a-b, a-b) directly; going
	// through the L2 norm would round-trip a square root and diverge from
	// the pure Go kernel in the last bits.
	p := diffPool.Get().(*[]float64)
	d := *p
	if cap(d) < len(a) {
		d = make([]float64, len(a))
	}
	d = d[:len(a)]
	floats.SubTo(d, a, b)
	sum := floats.Dot(d, d)
	*p = d
	diffPool.Put(p)
	return sum
}

func manhattan(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

func manhattanGonum(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}
