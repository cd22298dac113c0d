package deduplication

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the duplicate detector. A Detector copies its
// Config at construction; later changes to the caller's value have no effect.
type Config struct {
	// SimilarityThreshold is the minimum search score (0.0-1.0) at which the top
	// candidate counts as a duplicate when no model is consulted
	// Default: 0.75
	SimilarityThreshold float64

	// MaxCandidatesToJudge caps how many of the highest-scoring candidates are
	// considered. Each one may cost a model call when semantic judging is on.
	// Default: 3
	MaxCandidatesToJudge int

	// SemanticJudgeEnabled asks a language model for a per-candidate verdict
	// instead of relying on the raw score. Forced off when no provider key is
	// configured.
	// Default: true
	SemanticJudgeEnabled bool

	// RequestTimeout bounds each individual model call
	// Default: 30 seconds
	RequestTimeout time.Duration

	// MaxRetries is forwarded to the AI supervisor. Zero means a failed call
	// falls back to the threshold verdict immediately.
	// Default: 0
	MaxRetries int

	// FailOpen determines behavior when detection fails
	// If true: create the issue anyway (prefer a duplicate over lost work)
	// If false: return the error and block creation
	// Default: true
	FailOpen bool

	// RequireThresholdAgreement makes a semantic match also require the
	// candidate's score to reach SimilarityThreshold. Candidates below it are
	// never sent to the model.
	// Default: false
	RequireThresholdAgreement bool

	// MinTitleLength skips detection for very short titles
	// Default: 0 (always detect)
	MinTitleLength int
}

// DefaultConfig returns the default detector configuration
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:       0.75,
		MaxCandidatesToJudge:      3,
		SemanticJudgeEnabled:      true,
		RequestTimeout:            30 * time.Second,
		MaxRetries:                0,
		FailOpen:                  true,
		RequireThresholdAgreement: false,
		MinTitleLength:            0,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if math.IsNaN(c.SimilarityThreshold) || c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.SimilarityThreshold)
	}
	if c.MaxCandidatesToJudge <= 0 {
		return fmt.Errorf("max_candidates must be positive (got %d)", c.MaxCandidatesToJudge)
	}
	if c.MaxCandidatesToJudge > 50 {
		return fmt.Errorf("max_candidates too large (got %d, max 50)", c.MaxCandidatesToJudge)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive (got %v)", c.RequestTimeout)
	}
	if c.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request_timeout too large (got %v, max 5 minutes)", c.RequestTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative (got %d)", c.MaxRetries)
	}
	if c.MaxRetries > 3 {
		return fmt.Errorf("max_retries too large (got %d, max 3)", c.MaxRetries)
	}
	if c.MinTitleLength < 0 {
		return fmt.Errorf("min_title_length cannot be negative (got %d)", c.MinTitleLength)
	}
	if c.MinTitleLength > 500 {
		return fmt.Errorf("min_title_length too large (got %d, max 500)", c.MinTitleLength)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Threshold: %.2f, MaxCandidates: %d, Semantic: %t, Timeout: %v, "+
			"MaxRetries: %d, FailOpen: %t, RequireAgreement: %t, MinTitleLen: %d}",
		c.SimilarityThreshold, c.MaxCandidatesToJudge, c.SemanticJudgeEnabled, c.RequestTimeout,
		c.MaxRetries, c.FailOpen, c.RequireThresholdAgreement, c.MinTitleLength,
	)
}

// FileConfig is the dedup section of .spacebridge/config.yaml. Nil fields
// leave the current value untouched.
type FileConfig struct {
	Threshold        *float64 `yaml:"threshold"`
	MaxCandidates    *int     `yaml:"max_candidates"`
	Semantic         *bool    `yaml:"semantic"`
	TimeoutSecs      *int     `yaml:"timeout_secs"`
	MaxRetries       *int     `yaml:"max_retries"`
	FailOpen         *bool    `yaml:"fail_open"`
	RequireAgreement *bool    `yaml:"require_agreement"`
	MinTitleLength   *int     `yaml:"min_title_length"`
}

// ApplyFile overlays the values set in a config file section
func (c *Config) ApplyFile(f FileConfig) {
	if f.Threshold != nil {
		c.SimilarityThreshold = *f.Threshold
	}
	if f.MaxCandidates != nil {
		c.MaxCandidatesToJudge = *f.MaxCandidates
	}
	if f.Semantic != nil {
		c.SemanticJudgeEnabled = *f.Semantic
	}
	if f.TimeoutSecs != nil {
		c.RequestTimeout = time.Duration(*f.TimeoutSecs) * time.Second
	}
	if f.MaxRetries != nil {
		c.MaxRetries = *f.MaxRetries
	}
	if f.FailOpen != nil {
		c.FailOpen = *f.FailOpen
	}
	if f.RequireAgreement != nil {
		c.RequireThresholdAgreement = *f.RequireAgreement
	}
	if f.MinTitleLength != nil {
		c.MinTitleLength = *f.MinTitleLength
	}
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - SPACEBRIDGE_DEDUP_THRESHOLD: Minimum score (0.0-1.0) for a threshold match (default: 0.75)
//   - SPACEBRIDGE_DEDUP_MAX_CANDIDATES: Candidates considered per draft (default: 3)
//   - SPACEBRIDGE_DEDUP_SEMANTIC: Ask a language model for verdicts (default: true)
//   - SPACEBRIDGE_DEDUP_TIMEOUT_SECS: Per-call timeout in seconds (default: 30)
//   - SPACEBRIDGE_DEDUP_MAX_RETRIES: Retries per model call (default: 0)
//   - SPACEBRIDGE_DEDUP_FAIL_OPEN: Create the issue when detection fails (default: true)
//   - SPACEBRIDGE_DEDUP_REQUIRE_AGREEMENT: Semantic matches must also pass the threshold (default: false)
//   - SPACEBRIDGE_DEDUP_MIN_TITLE_LENGTH: Minimum title length for detection (default: 0)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays SPACEBRIDGE_DEDUP_* variables onto c without validating
func (c *Config) ApplyEnv() error {
	if err := parseEnvFloat("SPACEBRIDGE_DEDUP_THRESHOLD", &c.SimilarityThreshold); err != nil {
		return err
	}
	if err := parseEnvInt("SPACEBRIDGE_DEDUP_MAX_CANDIDATES", &c.MaxCandidatesToJudge); err != nil {
		return err
	}
	if err := parseEnvBool("SPACEBRIDGE_DEDUP_SEMANTIC", &c.SemanticJudgeEnabled); err != nil {
		return err
	}
	if err := parseEnvDuration("SPACEBRIDGE_DEDUP_TIMEOUT_SECS", &c.RequestTimeout, time.Second); err != nil {
		return err
	}
	if err := parseEnvInt("SPACEBRIDGE_DEDUP_MAX_RETRIES", &c.MaxRetries); err != nil {
		return err
	}
	if err := parseEnvBool("SPACEBRIDGE_DEDUP_FAIL_OPEN", &c.FailOpen); err != nil {
		return err
	}
	if err := parseEnvBool("SPACEBRIDGE_DEDUP_REQUIRE_AGREEMENT", &c.RequireThresholdAgreement); err != nil {
		return err
	}
	return parseEnvInt("SPACEBRIDGE_DEDUP_MIN_TITLE_LENGTH", &c.MinTitleLength)
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a whole number of units from an environment variable
func parseEnvDuration(key string, dest *time.Duration, unit time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * unit
	return nil
}
