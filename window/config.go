package window

import (
	"fmt"
)

// OverBudgetPolicy decides what Trim does when the mandatory-retain set
// alone meets or exceeds the token budget.
type OverBudgetPolicy string

const (
	// OverBudgetKeep returns the mandatory set unchanged. The result may
	// exceed the budget; enforcement is the caller's responsibility.
	OverBudgetKeep OverBudgetPolicy = "keep"

	// OverBudgetError returns ErrBudgetUnsatisfiable instead of an
	// over-budget result.
	OverBudgetError OverBudgetPolicy = "error"
)

// Default configuration values.
const (
	// DefaultTokenBudget caps estimated context at 80K tokens.
	DefaultTokenBudget = 80000

	// DefaultPreserveLastN always keeps the last 10 non-system turns.
	DefaultPreserveLastN = 10

	// DefaultOverBudget favors availability over strict enforcement.
	DefaultOverBudget = OverBudgetKeep
)

// Config holds window trimming configuration.
type Config struct {
	// TokenBudget is the hard cap on estimated tokens kept in context.
	// Must be positive.
	// Default: 80000
	TokenBudget int

	// PreserveLastN is the number of most recent non-system turns that are
	// immune to eviction. Must be non-negative.
	// Default: 10
	PreserveLastN int

	// OverBudget selects the degenerate-case policy applied when the
	// mandatory set alone meets or exceeds TokenBudget.
	// Default: OverBudgetKeep
	OverBudget OverBudgetPolicy

	// Estimator approximates token cost for budget checks.
	// Default: CharEstimator (~4 characters per token)
	Estimator Estimator
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TokenBudget:   DefaultTokenBudget,
		PreserveLastN: DefaultPreserveLastN,
		OverBudget:    DefaultOverBudget,
		Estimator:     CharEstimator{},
	}
}

// Validate validates the configuration and returns an error if invalid.
// Callers are expected to validate at construction time so that Trim
// never fails for configuration reasons mid-conversation.
func (c *Config) Validate() error {
	if c.TokenBudget <= 0 {
		return fmt.Errorf("%w: token_budget must be positive, got %d", ErrInvalidConfig, c.TokenBudget)
	}

	if c.PreserveLastN < 0 {
		return fmt.Errorf("%w: preserve_last_n must be non-negative, got %d", ErrInvalidConfig, c.PreserveLastN)
	}

	if c.OverBudget != OverBudgetKeep && c.OverBudget != OverBudgetError {
		return fmt.Errorf("%w: unknown over-budget policy %q, must be %q or %q",
			ErrInvalidConfig, c.OverBudget, OverBudgetKeep, OverBudgetError)
	}

	return nil
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.TokenBudget == 0 {
		c.TokenBudget = DefaultTokenBudget
	}
	if c.OverBudget == "" {
		c.OverBudget = DefaultOverBudget
	}
	if c.Estimator == nil {
		c.Estimator = CharEstimator{}
	}
	// PreserveLastN == 0 is a valid explicit choice, so it is left alone.
}

// estimator returns the configured estimator or the default.
func (c *Config) estimator() Estimator {
	if c.Estimator != nil {
		return c.Estimator
	}
	return CharEstimator{}
}
