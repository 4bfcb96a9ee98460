package core

import (
	"errors"
	"testing"

	"github.com/ManaLama/anticlust/pkg/core/types"
	"github.com/ManaLama/anticlust/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Clusters = 3
	cfg.Categories = 4
	cfg.Capacity = 8
	cfg.Dim = 2
	return cfg
}

func loadedWorkspace(t *testing.T, cfg Config, points [][]float64) *Workspace {
	t.Helper()
	w, err := NewWorkspace(cfg)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	for i, p := range points {
		if err := w.AddPoint(p); err != nil {
			t.Fatalf("AddPoint %d: %v", i, err)
		}
	}
	if err := w.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return w
}

func TestFullLifecycle(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 0}, {0, 1}, {5, 5}}
	w := loadedWorkspace(t, testConfig(), points)

	if err := w.ComputeDistances(); err != nil {
		t.Fatalf("ComputeDistances: %v", err)
	}
	if got, ok := w.Distances().At(0, 3); !ok || got != 50 {
		t.Errorf("At(0,3) = %f, %v; want 50", got, ok)
	}

	// Chains [1, 2, 1], categories [nil, yes, nil, yes].
	for _, a := range []struct{ cluster, point int }{{0, 0}, {1, 1}, {1, 2}, {2, 3}} {
		if err := w.Assign(a.cluster, a.point); err != nil {
			t.Fatalf("Assign: %v", err)
		}
	}
	for _, c := range []struct{ cat, point int }{{1, 0}, {3, 2}} {
		if err := w.Categorize(c.cat, c.point); err != nil {
			t.Fatalf("Categorize: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	stats := w.ReleaseStats()
	if stats.Nodes != 4 {
		t.Errorf("released %d nodes, want 4", stats.Nodes)
	}
	if stats.Slots != 2 {
		t.Errorf("released %d slots, want 2", stats.Slots)
	}
	if stats.Rows != 4 {
		t.Errorf("released %d rows, want 4", stats.Rows)
	}
	if stats.Vectors != 4 {
		t.Errorf("released %d vectors, want 4", stats.Vectors)
	}
}

func TestParallelClose(t *testing.T) {
	cfg := testConfig()
	cfg.ParallelRelease = true
	points := [][]float64{{0, 0}, {1, 1}, {2, 2}}
	w := loadedWorkspace(t, cfg, points)

	if err := w.ComputeDistances(); err != nil {
		t.Fatalf("ComputeDistances: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Assign(i, i); err != nil {
			t.Fatalf("Assign: %v", err)
		}
		if err := w.Categorize(i%2, i); err != nil {
			t.Fatalf("Categorize: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	stats := w.ReleaseStats()
	if stats.Nodes != 3 || stats.Slots != 2 || stats.Rows != 3 || stats.Vectors != 3 {
		t.Errorf("stats = %+v, want 3 nodes, 2 slots, 3 rows, 3 vectors", stats)
	}
}

func TestCloseUnsealedUnwindsBuilder(t *testing.T) {
	// Loader failure path: 3 of 8 points loaded, never sealed.
	w, err := NewWorkspace(testConfig())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.AddPoint([]float64{float64(i), 0}); err != nil {
			t.Fatalf("AddPoint: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := w.ReleaseStats().Vectors; got != 3 {
		t.Errorf("released %d vectors, want 3", got)
	}
}

func TestDoubleCloseFailsFast(t *testing.T) {
	w := loadedWorkspace(t, testConfig(), [][]float64{{1, 2}})
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("second Close: got %v, want ErrInvalidState", err)
	}
}

func TestClosePartiallyAssignedClustersFails(t *testing.T) {
	w := loadedWorkspace(t, testConfig(), [][]float64{{0, 0}, {1, 1}})
	// Only cluster 0 of 3 receives a point: a half-populated assignment.
	if err := w.Assign(0, 0); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := w.Close(); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("Close with half-populated clusters: got %v, want ErrInvalidState", err)
	}
}

func TestUseAfterClose(t *testing.T) {
	w := loadedWorkspace(t, testConfig(), [][]float64{{0, 0}})
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.AddPoint([]float64{1, 1}); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("AddPoint after Close: got %v, want ErrInvalidState", err)
	}
	if err := w.Assign(0, 0); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("Assign after Close: got %v, want ErrInvalidState", err)
	}
	if err := w.ComputeDistances(); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("ComputeDistances after Close: got %v, want ErrInvalidState", err)
	}
}

func TestAssignRequiresSeal(t *testing.T) {
	w, err := NewWorkspace(testConfig())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	if err := w.Assign(0, 0); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("Assign before Seal: got %v, want ErrInvalidState", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestAssignValidatesPointID(t *testing.T) {
	w := loadedWorkspace(t, testConfig(), [][]float64{{0, 0}})
	defer w.Close()
	if err := w.Assign(0, 5); err == nil {
		t.Error("Assign with unknown point: expected error")
	}
	if err := w.Categorize(0, -1); err == nil {
		t.Error("Categorize with negative point: expected error")
	}
}

func TestAccessorsDuringSeal(t *testing.T) {
	// Accessors must synchronize with Seal, which swaps the store and
	// matrix fields in. Exercised concurrently so the race detector can
	// see any unlocked read.
	w, err := NewWorkspace(testConfig())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if w.Points() != nil && w.Distances() == nil {
				t.Error("matrix missing after store appeared")
				return
			}
			w.Categories()
			w.Clusters()
		}
	}()

	if err := w.AddPoint([]float64{1, 1}); err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	if err := w.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	<-done

	if w.Points() == nil || w.Distances() == nil {
		t.Error("accessors must observe the sealed structures")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestActiveWorkspacesGauge(t *testing.T) {
	before := testutil.ToFloat64(metrics.ActiveWorkspaces)

	w := loadedWorkspace(t, testConfig(), [][]float64{{0, 0}})
	if got := testutil.ToFloat64(metrics.ActiveWorkspaces); got != before+1 {
		t.Errorf("gauge after open = %f, want %f", got, before+1)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := testutil.ToFloat64(metrics.ActiveWorkspaces); got != before {
		t.Errorf("gauge after close = %f, want %f", got, before)
	}
}
