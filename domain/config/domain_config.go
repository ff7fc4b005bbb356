package config

import "time"

// DomainConfig holds all configurable business rules and constraints for
// grouping runs. It is immutable after construction; each run reads from it
// and never writes back.
type DomainConfig struct {
	// Grouping constraints
	MaxGroupSize       int
	StrictConnectivity bool

	// Horizon defaults
	DefaultHorizonDays int
	MaxHorizonDays     int

	// Performance limits
	MaxFactsPerRun       int
	MaxTerritoriesPerRun int

	// Scheduling job defaults
	DefaultJobName  string
	DefaultPolicyID string

	// Time constraints
	RunTimeout      time.Duration
	ApplyLockExpiry time.Duration

	// Feature flags
	EnablePreviewCache   bool
	EnableRunEvents      bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxGroupSize:       100,
		StrictConnectivity: false,

		DefaultHorizonDays: 14,
		MaxHorizonDays:     90,

		MaxFactsPerRun:       250000,
		MaxTerritoriesPerRun: 10000,

		DefaultJobName:  "territory-optimization",
		DefaultPolicyID: "",

		RunTimeout:      2 * time.Minute,
		ApplyLockExpiry: 5 * time.Minute,

		EnablePreviewCache: true,
		EnableRunEvents:    true,
	}
}
