// Package core orchestrates the in-memory structures of one clustering run:
// the point store (base data), the pairwise distance matrix derived from it,
// and the two assignment structures the clustering algorithm populates: the
// per-cluster chains and the per-category index.
//
// A Workspace scopes all four to a single run and owns their lifecycle. It
// is built in phases: points are loaded through the store builder, Seal
// freezes the base data and sizes the distance matrix, the (external)
// algorithm then populates the assignment structures. Close tears everything
// down deterministically (derived structures before base data) and
// accounts for every recycled allocation. A workspace that fails during
// loading closes cleanly too: the builder unwinds exactly the prefix of
// points it constructed.
package core

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ManaLama/anticlust/pkg/core/catindex"
	"github.com/ManaLama/anticlust/pkg/core/clusterlist"
	"github.com/ManaLama/anticlust/pkg/core/distance"
	"github.com/ManaLama/anticlust/pkg/core/distmatrix"
	"github.com/ManaLama/anticlust/pkg/core/pointstore"
	"github.com/ManaLama/anticlust/pkg/core/types"
	"github.com/ManaLama/anticlust/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Workspace bundles the four structures of one clustering run.
type Workspace struct {
	id  string
	cfg Config

	mu       sync.Mutex
	builder  *pointstore.Builder
	points   *pointstore.Store // set by Seal
	matrix   *distmatrix.Matrix
	cats     *catindex.Index
	clusters *clusterlist.List
	closed   bool

	stats types.ReleaseStats // filled by Close
}

// NewWorkspace validates cfg and prepares an empty workspace.
func NewWorkspace(cfg Config) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("workspace config: %w", err)
	}
	builder, err := pointstore.NewBuilder(cfg.Capacity, cfg.Dim, cfg.Precision)
	if err != nil {
		return nil, err
	}
	cats, err := catindex.New(cfg.Categories)
	if err != nil {
		return nil, err
	}
	clusters, err := clusterlist.New(cfg.Clusters)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		id:       uuid.NewString(),
		cfg:      cfg,
		builder:  builder,
		cats:     cats,
		clusters: clusters,
	}
	metrics.ActiveWorkspaces.Inc()
	return w, nil
}

// ID returns the unique identifier of this run.
func (w *Workspace) ID() string { return w.id }

// AddPoint loads one feature vector into the workspace. Only valid before
// Seal.
func (w *Workspace) AddPoint(values []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("workspace %s is closed: %w", w.id, types.ErrInvalidState)
	}
	if w.builder == nil {
		return fmt.Errorf("workspace %s is sealed: %w", w.id, types.ErrInvalidState)
	}
	return w.builder.Append(values)
}

// Seal freezes the base data: the point store is finalized and the distance
// matrix is sized to the number of points actually loaded.
func (w *Workspace) Seal() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("workspace %s is closed: %w", w.id, types.ErrInvalidState)
	}
	if w.builder == nil {
		return fmt.Errorf("workspace %s is already sealed: %w", w.id, types.ErrInvalidState)
	}
	points, err := w.builder.Finish()
	if err != nil {
		return err
	}
	n := points.Len()
	rowLen := n
	if rowLen == 0 {
		rowLen = 1 // a 0xN matrix still needs a legal row length
	}
	matrix, err := distmatrix.New(n, rowLen)
	if err != nil {
		return err
	}
	w.points = points
	w.matrix = matrix
	w.builder = nil
	return nil
}

// ComputeDistances fills the pairwise matrix with the configured metric.
func (w *Workspace) ComputeDistances() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireSealed(); err != nil {
		return err
	}
	fn, err := distance.ForMetric(w.cfg.Metric)
	if err != nil {
		return err
	}
	return w.matrix.Fill(w.points, fn)
}

// Assign records the cluster assignment of one point.
func (w *Workspace) Assign(cluster, pointID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireSealed(); err != nil {
		return err
	}
	if err := w.requirePoint(pointID); err != nil {
		return err
	}
	return w.clusters.Assign(cluster, pointID)
}

// Categorize records the category membership of one point.
func (w *Workspace) Categorize(category, pointID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireSealed(); err != nil {
		return err
	}
	if err := w.requirePoint(pointID); err != nil {
		return err
	}
	return w.cats.Add(category, pointID)
}

// Points returns the sealed point store, or nil before Seal.
func (w *Workspace) Points() *pointstore.Store {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.points
}

// Distances returns the distance matrix, or nil before Seal.
func (w *Workspace) Distances() *distmatrix.Matrix {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.matrix
}

// Categories returns the categorical index.
func (w *Workspace) Categories() *catindex.Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cats
}

// Clusters returns the cluster assignment chains.
func (w *Workspace) Clusters() *clusterlist.List {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clusters
}

// ReleaseStats reports what the teardown recycled. Only meaningful after
// Close.
func (w *Workspace) ReleaseStats() types.ReleaseStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Close tears the workspace down: the derived assignment structures first,
// then the distance matrix, then the base point data. An unsealed workspace
// unwinds its builder instead, recycling exactly the points loaded so far.
// A cluster list that was never touched is skipped (nothing to release); a
// partially populated one fails the teardown with ErrInvalidState, as does
// a second Close. After Close returns, with or without an error, the
// workspace is closed and its structures must not be used.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		metrics.ContractViolations.WithLabelValues("workspace").Inc()
		return fmt.Errorf("workspace %s already closed: %w", w.id, types.ErrInvalidState)
	}
	w.closed = true
	metrics.ActiveWorkspaces.Dec()

	start := time.Now()
	err := w.release()
	metrics.ReleaseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	metrics.ReleasedTotal.WithLabelValues("cluster_nodes").Add(float64(w.stats.Nodes))
	metrics.ReleasedTotal.WithLabelValues("category_slots").Add(float64(w.stats.Slots))
	metrics.ReleasedTotal.WithLabelValues("matrix_rows").Add(float64(w.stats.Rows))
	metrics.ReleasedTotal.WithLabelValues("point_vectors").Add(float64(w.stats.Vectors))
	log.Printf("workspace %s closed: recycled %d allocations (%d nodes, %d slots, %d rows, %d vectors)",
		w.id, w.stats.Total(), w.stats.Nodes, w.stats.Slots, w.stats.Rows, w.stats.Vectors)
	return nil
}

func (w *Workspace) release() error {
	if w.cfg.ParallelRelease {
		return w.releaseParallel()
	}

	// Derived structures go first, base data last.
	if !w.clusters.Empty() {
		n, err := w.clusters.Release()
		if err != nil {
			metrics.ContractViolations.WithLabelValues("cluster_nodes").Inc()
			return err
		}
		w.stats.Nodes = n
	}
	n, err := w.cats.Release()
	if err != nil {
		metrics.ContractViolations.WithLabelValues("category_slots").Inc()
		return err
	}
	w.stats.Slots = n
	if w.matrix != nil {
		n, err := w.matrix.Release()
		if err != nil {
			metrics.ContractViolations.WithLabelValues("matrix_rows").Inc()
			return err
		}
		w.stats.Rows = n
	}
	switch {
	case w.points != nil:
		n, err := w.points.Release()
		if err != nil {
			metrics.ContractViolations.WithLabelValues("point_vectors").Inc()
			return err
		}
		w.stats.Vectors = n
	case w.builder != nil:
		n, err := w.builder.Discard()
		if err != nil {
			metrics.ContractViolations.WithLabelValues("point_vectors").Inc()
			return err
		}
		w.stats.Vectors = n
	}
	return nil
}

// releaseParallel runs the four component teardowns concurrently. The
// structures are disjoint, so the only coordination needed is waiting for
// all of them.
func (w *Workspace) releaseParallel() error {
	var g errgroup.Group
	g.Go(func() error {
		if w.clusters.Empty() {
			return nil
		}
		n, err := w.clusters.Release()
		if err != nil {
			metrics.ContractViolations.WithLabelValues("cluster_nodes").Inc()
			return err
		}
		w.stats.Nodes = n
		return nil
	})
	g.Go(func() error {
		n, err := w.cats.Release()
		if err != nil {
			metrics.ContractViolations.WithLabelValues("category_slots").Inc()
			return err
		}
		w.stats.Slots = n
		return nil
	})
	g.Go(func() error {
		if w.matrix == nil {
			return nil
		}
		n, err := w.matrix.Release()
		if err != nil {
			metrics.ContractViolations.WithLabelValues("matrix_rows").Inc()
			return err
		}
		w.stats.Rows = n
		return nil
	})
	g.Go(func() error {
		var n int
		var err error
		switch {
		case w.points != nil:
			n, err = w.points.Release()
		case w.builder != nil:
			n, err = w.builder.Discard()
		default:
			return nil
		}
		if err != nil {
			metrics.ContractViolations.WithLabelValues("point_vectors").Inc()
			return err
		}
		w.stats.Vectors = n
		return nil
	})
	return g.Wait()
}

func (w *Workspace) requireSealed() error {
	if w.closed {
		return fmt.Errorf("workspace %s is closed: %w", w.id, types.ErrInvalidState)
	}
	if w.points == nil {
		return fmt.Errorf("workspace %s is not sealed: %w", w.id, types.ErrInvalidState)
	}
	return nil
}

func (w *Workspace) requirePoint(pointID int) error {
	if pointID < 0 || pointID >= w.points.Len() {
		return fmt.Errorf("point %d out of range [0, %d)", pointID, w.points.Len())
	}
	return nil
}
