package core

import (
	"fmt"

	"github.com/ManaLama/anticlust/pkg/core/distance"
)

// Config describes the shape of one clustering workspace.
type Config struct {
	// Clusters is the number of cluster chains (k), at least 1.
	Clusters int `yaml:"clusters"`
	// Categories is the number of categorical balancing buckets (c); 0
	// disables categorical indexing.
	Categories int `yaml:"categories"`
	// Capacity is the maximum number of data points the workspace holds (n).
	Capacity int `yaml:"capacity"`
	// Dim is the feature vector length shared by all points.
	Dim int `yaml:"dim"`
	// Precision selects the vector storage format ("float64" or "float16").
	Precision distance.Precision `yaml:"precision"`
	// Metric selects the distance kernel used to fill the pairwise matrix.
	Metric distance.Metric `yaml:"metric"`
	// ParallelRelease tears the four component structures down concurrently.
	// They share no state, so this is always safe.
	ParallelRelease bool `yaml:"parallel_release"`
}

// DefaultConfig returns a small, full-precision, sequential-teardown setup.
func DefaultConfig() Config {
	return Config{
		Clusters:        2,
		Categories:      0,
		Capacity:        1024,
		Dim:             2,
		Precision:       distance.Float64,
		Metric:          distance.Euclidean,
		ParallelRelease: false,
	}
}

// Validate checks the config for internally consistent values.
func (c Config) Validate() error {
	if c.Clusters < 1 {
		return fmt.Errorf("clusters = %d, want >= 1", c.Clusters)
	}
	if c.Categories < 0 {
		return fmt.Errorf("categories = %d, want >= 0", c.Categories)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity = %d, want >= 0", c.Capacity)
	}
	if c.Dim < 1 {
		return fmt.Errorf("dim = %d, want >= 1", c.Dim)
	}
	if !c.Precision.Valid() {
		return fmt.Errorf("unsupported precision %q", c.Precision)
	}
	if _, err := distance.ForMetric(c.Metric); err != nil {
		return err
	}
	return nil
}
