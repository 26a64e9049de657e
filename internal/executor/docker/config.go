package docker

import (
	"time"
)

// Config holds the settings of the containerized script runner.
type Config struct {
	// Image must provide a `node` binary on PATH.
	Image string `yaml:"image"`
	// MemoryLimit is the per-container memory cap in bytes.
	MemoryLimit int64 `yaml:"memory_limit"`
	// CPULimit is the number of CPUs a container may use.
	CPULimit float64 `yaml:"cpu_limit"`
	// Timeout bounds a single script run inside the container.
	Timeout time.Duration `yaml:"timeout"`
	// PoolSize is the number of pre-warmed containers kept ready.
	PoolSize int `yaml:"pool_size"`
}

// DefaultConfig returns the settings for a small Node.js sandbox.
func DefaultConfig() Config {
	return Config{
		Image:       "node:22-alpine",
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    2,
	}
}
