package config

import "time"

// RetentionConfig controls the background retention loop: how often it runs
// and how long decision-log records are kept. Expired cache entries are
// removed on every pass regardless of age.
type RetentionConfig struct {
	CleanupInterval   time.Duration `yaml:"-"`
	DecisionRetention time.Duration `yaml:"-"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		CleanupInterval:   time.Hour,
		DecisionRetention: 30 * 24 * time.Hour,
	}
}
