// Package config holds the tunable parameters of the analysis engine.
//
// A Config is built once at run start from defaults, an optional YAML file,
// and SIFT_* environment variables (in that precedence order), validated
// once, and then passed by reference into each component's constructor. It
// is never mutated during a run; invalid values fail the run before any
// clustering work begins, since bad thresholds would silently produce
// meaningless clusters.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/siftlabs/sift/internal/types"
)

// Config is the immutable engine configuration.
type Config struct {
	// MinClusterSize is the minimum connected-component size that becomes
	// a cluster at each stage. Components below this pool into the next
	// stage. Default: 2, must be >= 1.
	MinClusterSize int `yaml:"min_cluster_size"`

	// Per-stage similarity thresholds, each in [0,1]. An edge connects
	// two records when their stage similarity is >= the threshold
	// (inclusive boundary).
	InputThreshold  float64 `yaml:"input_threshold"`
	OutputThreshold float64 `yaml:"output_threshold"`
	DeltaThreshold  float64 `yaml:"delta_threshold"`

	// MergeThreshold is the relaxed input-similarity threshold used by
	// the centroid merge pass over sub-threshold clusters.
	MergeThreshold float64 `yaml:"merge_threshold"`

	// ConsolidationThreshold is the title/description similarity above
	// which (inclusive) two recommendation drafts merge.
	ConsolidationThreshold float64 `yaml:"consolidation_threshold"`

	// Similarity weights, summing to 1. The default favors the delta
	// signature: two failures with one root cause often have dissimilar
	// inputs but identical delta shapes.
	InputWeight  float64 `yaml:"input_weight"`
	OutputWeight float64 `yaml:"output_weight"`
	DeltaWeight  float64 `yaml:"delta_weight"`

	// WeightImpactByFailures switches the impact score of a consolidated
	// recommendation from "distinct patterns addressed" to the sum of
	// those patterns' failure counts.
	WeightImpactByFailures bool `yaml:"weight_impact_by_failures"`

	// Quick-win classification: effort at or below QuickWinMaxEffort and
	// impact at or above QuickWinMinImpact.
	QuickWinMaxEffort types.EffortLevel `yaml:"quick_win_max_effort"`
	QuickWinMinImpact int               `yaml:"quick_win_min_impact"`

	// MaxWorkers bounds the feature-extraction worker pool. 0 means
	// GOMAXPROCS.
	MaxWorkers int `yaml:"max_workers"`

	// DatabasePath is where analysis runs are persisted. Empty means the
	// CLI default (~/.sift/sift.db).
	DatabasePath string `yaml:"database_path"`
}

// Default returns the starting-point configuration. These defaults trade a
// little precision for stable, explainable clusters on suites in the
// hundreds of failures.
func Default() Config {
	return Config{
		MinClusterSize:         2,
		InputThreshold:         0.30,
		OutputThreshold:        0.40,
		DeltaThreshold:         0.50,
		MergeThreshold:         0.20,
		ConsolidationThreshold: 0.55,
		InputWeight:            0.25,
		OutputWeight:           0.30,
		DeltaWeight:            0.45,
		WeightImpactByFailures: false,
		QuickWinMaxEffort:      types.EffortMedium,
		QuickWinMinImpact:      2,
		MaxWorkers:             0,
		DatabasePath:           "",
	}
}

// LoadFile overlays values from a YAML file onto the receiver. A missing
// file is not an error; a malformed one is.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays SIFT_* environment variables onto the receiver.
// Malformed values are errors: a typo'd threshold should stop the run, not
// silently fall back to a default.
func (c *Config) FromEnv() error {
	if err := envInt("SIFT_MIN_CLUSTER_SIZE", &c.MinClusterSize); err != nil {
		return err
	}
	if err := envFloat("SIFT_INPUT_THRESHOLD", &c.InputThreshold); err != nil {
		return err
	}
	if err := envFloat("SIFT_OUTPUT_THRESHOLD", &c.OutputThreshold); err != nil {
		return err
	}
	if err := envFloat("SIFT_DELTA_THRESHOLD", &c.DeltaThreshold); err != nil {
		return err
	}
	if err := envFloat("SIFT_MERGE_THRESHOLD", &c.MergeThreshold); err != nil {
		return err
	}
	if err := envFloat("SIFT_CONSOLIDATION_THRESHOLD", &c.ConsolidationThreshold); err != nil {
		return err
	}
	if err := envFloat("SIFT_INPUT_WEIGHT", &c.InputWeight); err != nil {
		return err
	}
	if err := envFloat("SIFT_OUTPUT_WEIGHT", &c.OutputWeight); err != nil {
		return err
	}
	if err := envFloat("SIFT_DELTA_WEIGHT", &c.DeltaWeight); err != nil {
		return err
	}
	if err := envBool("SIFT_WEIGHT_IMPACT_BY_FAILURES", &c.WeightImpactByFailures); err != nil {
		return err
	}
	if err := envInt("SIFT_QUICK_WIN_MIN_IMPACT", &c.QuickWinMinImpact); err != nil {
		return err
	}
	if err := envInt("SIFT_MAX_WORKERS", &c.MaxWorkers); err != nil {
		return err
	}
	if v := os.Getenv("SIFT_QUICK_WIN_MAX_EFFORT"); v != "" {
		c.QuickWinMaxEffort = types.EffortLevel(v)
	}
	if v := os.Getenv("SIFT_DB_PATH"); v != "" {
		c.DatabasePath = v
	}
	return nil
}

// Validate checks the configuration once at run start. Any failure here is
// fatal for the whole run.
func (c *Config) Validate() error {
	if c.MinClusterSize < 1 {
		return fmt.Errorf("min_cluster_size must be at least 1 (got %d)", c.MinClusterSize)
	}
	for _, t := range []struct {
		name string
		val  float64
	}{
		{"input_threshold", c.InputThreshold},
		{"output_threshold", c.OutputThreshold},
		{"delta_threshold", c.DeltaThreshold},
		{"merge_threshold", c.MergeThreshold},
		{"consolidation_threshold", c.ConsolidationThreshold},
	} {
		if t.val < 0 || t.val > 1 {
			return fmt.Errorf("%s must be between 0 and 1 (got %.3f)", t.name, t.val)
		}
	}
	for _, w := range []struct {
		name string
		val  float64
	}{
		{"input_weight", c.InputWeight},
		{"output_weight", c.OutputWeight},
		{"delta_weight", c.DeltaWeight},
	} {
		if w.val < 0 || w.val > 1 {
			return fmt.Errorf("%s must be between 0 and 1 (got %.3f)", w.name, w.val)
		}
	}
	sum := c.InputWeight + c.OutputWeight + c.DeltaWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("similarity weights must sum to 1 (got %.6f)", sum)
	}
	if c.QuickWinMaxEffort != types.EffortLow &&
		c.QuickWinMaxEffort != types.EffortMedium &&
		c.QuickWinMaxEffort != types.EffortHigh {
		return fmt.Errorf("quick_win_max_effort must be low, medium, or high (got %q)", c.QuickWinMaxEffort)
	}
	if c.QuickWinMinImpact < 1 {
		return fmt.Errorf("quick_win_min_impact must be at least 1 (got %d)", c.QuickWinMinImpact)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max_workers cannot be negative (got %d)", c.MaxWorkers)
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = b
	return nil
}
