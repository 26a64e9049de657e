package console

import "time"

// Config tunes a Manager.
type Config struct {
	// SimulateLatency turns on the artificial pause before each run.
	SimulateLatency bool `yaml:"simulate_latency"`
	// PatternLatency is the pause for pattern-compiled languages (C).
	PatternLatency time.Duration `yaml:"pattern_latency"`
	// DynamicLatency is the pause for every other language.
	DynamicLatency time.Duration `yaml:"dynamic_latency"`
	// SessionTTL is how long an idle session survives.
	SessionTTL time.Duration `yaml:"session_ttl"`
	// MaxSessions caps the number of live sessions. Zero means no cap.
	MaxSessions int `yaml:"max_sessions"`
	// JanitorInterval is how often idle sessions are swept.
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// DefaultConfig mirrors the pacing of the browser console: 1.5s for a C
// "compile", 0.8s for anything else.
func DefaultConfig() Config {
	return Config{
		SimulateLatency: true,
		PatternLatency:  1500 * time.Millisecond,
		DynamicLatency:  800 * time.Millisecond,
		SessionTTL:      30 * time.Minute,
		MaxSessions:     1000,
		JanitorInterval: time.Minute,
	}
}
