package analysis

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls which of the optional metrics are computed.
type Config struct {
	ComputePageRank    bool
	PageRankTimeout    time.Duration
	PageRankSkipReason string

	ComputeHITS    bool
	HITSTimeout    time.Duration
	HITSSkipReason string

	// Cycle detection only reports strongly connected components, so it is
	// cheap and always bounded.
	ComputeCycles bool
}

// DefaultConfig enables every metric with standard timeouts.
func DefaultConfig() Config {
	cfg := Config{
		ComputePageRank: true,
		PageRankTimeout: 500 * time.Millisecond,
		ComputeHITS:     true,
		HITSTimeout:     500 * time.Millisecond,
		ComputeCycles:   true,
	}
	return ApplyEnvOverrides(cfg)
}

// ConfigForSize picks timeouts by graph size. Money-flow graphs are small,
// but a generated fixture can have thousands of nodes.
//
// Size tiers:
//   - Small (<500 nodes): everything, generous timeouts
//   - Large (<5000 nodes): everything, standard timeouts
//   - XL: PageRank only
func ConfigForSize(nodeCount, edgeCount int) Config {
	var cfg Config
	switch {
	case nodeCount < 500:
		cfg = Config{
			ComputePageRank: true,
			PageRankTimeout: 2 * time.Second,
			ComputeHITS:     true,
			HITSTimeout:     2 * time.Second,
			ComputeCycles:   true,
		}
	case nodeCount < 5000:
		cfg = DefaultConfig()
	default:
		cfg = Config{
			ComputePageRank: true,
			PageRankTimeout: 500 * time.Millisecond,
			HITSSkipReason:  "graph too large (>5000 nodes)",
			ComputeCycles:   edgeCount < 50000,
		}
	}
	return ApplyEnvOverrides(cfg)
}

const (
	EnvSkipAnalysis   = "G3D_SKIP_ANALYSIS"
	EnvTimeoutSeconds = "G3D_ANALYSIS_TIMEOUT_S"
)

// ApplyEnvOverrides applies environment tunables:
//   - G3D_SKIP_ANALYSIS=1 skips PageRank and HITS (degrees and components remain)
//   - G3D_ANALYSIS_TIMEOUT_S=N overrides per-metric timeouts (N > 0)
func ApplyEnvOverrides(cfg Config) Config {
	if envBool(EnvSkipAnalysis) {
		cfg.ComputePageRank = false
		cfg.PageRankSkipReason = EnvSkipAnalysis + " set"
		cfg.ComputeHITS = false
		cfg.HITSSkipReason = EnvSkipAnalysis + " set"
	}
	if seconds, ok := envPositiveInt(EnvTimeoutSeconds); ok {
		timeout := time.Duration(seconds) * time.Second
		if cfg.ComputePageRank {
			cfg.PageRankTimeout = timeout
		}
		if cfg.ComputeHITS {
			cfg.HITSTimeout = timeout
		}
	}
	return cfg
}

func envPositiveInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
