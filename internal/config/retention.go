package config

import (
	"fmt"
	"time"
)

// RetentionConfig controls pruning of the local decision log
type RetentionConfig struct {
	// RetentionDays is how long decision records are kept
	// Default: 90, Range: 1-3650
	RetentionDays int

	// MaxRecords caps the number of records kept, oldest are removed first
	// Set to 0 for unlimited
	// Default: 10000, Range: 0 or 100-1000000
	MaxRecords int

	// CleanupEnabled prunes the log when the server starts
	// Default: true
	CleanupEnabled bool
}

// DefaultRetentionConfig returns the default decision log retention
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:  90,
		MaxRecords:     10000,
		CleanupEnabled: true,
	}
}

// Validate checks if the configuration has valid values
func (c RetentionConfig) Validate() error {
	if c.RetentionDays < 1 || c.RetentionDays > 3650 {
		return fmt.Errorf("retention_days must be between 1 and 3650 (got %d)", c.RetentionDays)
	}

	if c.MaxRecords < 0 {
		return fmt.Errorf("max_records cannot be negative (got %d)", c.MaxRecords)
	}
	if c.MaxRecords > 0 && c.MaxRecords < 100 {
		return fmt.Errorf("max_records must be 0 (unlimited) or >= 100 (got %d)", c.MaxRecords)
	}
	if c.MaxRecords > 1000000 {
		return fmt.Errorf("max_records too large (got %d, max 1000000)", c.MaxRecords)
	}

	return nil
}

// MaxAge is RetentionDays as a duration
func (c RetentionConfig) MaxAge() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// String returns a human-readable representation of the config
func (c RetentionConfig) String() string {
	return fmt.Sprintf("RetentionConfig{RetentionDays: %d, MaxRecords: %d, Enabled: %t}",
		c.RetentionDays, c.MaxRecords, c.CleanupEnabled)
}

// RetentionFileConfig is the retention section of the config file
type RetentionFileConfig struct {
	Days    *int  `yaml:"days"`
	Max     *int  `yaml:"max_records"`
	Enabled *bool `yaml:"cleanup"`
}

func (c *RetentionConfig) applyFile(f RetentionFileConfig) {
	if f.Days != nil {
		c.RetentionDays = *f.Days
	}
	if f.Max != nil {
		c.MaxRecords = *f.Max
	}
	if f.Enabled != nil {
		c.CleanupEnabled = *f.Enabled
	}
}

// applyEnv overlays environment variables:
//   - SPACEBRIDGE_DECISION_RETENTION_DAYS: Days to keep decision records (default: 90)
//   - SPACEBRIDGE_DECISION_MAX_RECORDS: Maximum records, 0 for unlimited (default: 10000)
//   - SPACEBRIDGE_DECISION_CLEANUP: Prune on startup (default: true)
func (c *RetentionConfig) applyEnv() error {
	if err := parseEnvInt("SPACEBRIDGE_DECISION_RETENTION_DAYS", &c.RetentionDays); err != nil {
		return err
	}
	if err := parseEnvInt("SPACEBRIDGE_DECISION_MAX_RECORDS", &c.MaxRecords); err != nil {
		return err
	}
	return parseEnvBool("SPACEBRIDGE_DECISION_CLEANUP", &c.CleanupEnabled)
}
