package windowpg

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/windowpg/hooks"
	"github.com/youssefsiam38/windowpg/window"
)

// Option is a functional option for configuring a Sessions manager or Buffer
type Option func(*internalConfig) error

// internalConfig holds computed configuration from options
type internalConfig struct {
	estimator     window.Estimator
	overBudget    window.OverBudgetPolicy
	overBudgetSet bool
	summarize     bool
	hooks         *hooks.Registry
	counterClient *anthropic.Client
	counterModel  string
}

func defaultInternalConfig() *internalConfig {
	return &internalConfig{
		overBudget: window.DefaultOverBudget,
		hooks:      hooks.NewRegistry(),
	}
}

func (c *internalConfig) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// WithEstimator sets a custom token estimator
func WithEstimator(est window.Estimator) Option {
	return func(c *internalConfig) error {
		if est == nil {
			return window.NewWindowError("WithEstimator", window.ErrInvalidConfig).
				WithContext("reason", "estimator must not be nil")
		}
		c.estimator = est
		return nil
	}
}

// WithTiktokenEncoding uses a tiktoken encoding for token estimation
// instead of the default character heuristic
func WithTiktokenEncoding(encoding string) Option {
	return func(c *internalConfig) error {
		est, err := window.NewTiktokenEstimator(encoding)
		if err != nil {
			return err
		}
		c.estimator = est
		return nil
	}
}

// WithStrictBudget makes trimming fail with ErrBudgetUnsatisfiable when the
// mandatory-retain set alone meets or exceeds the budget, instead of
// returning an over-budget window
func WithStrictBudget(enabled bool) Option {
	return func(c *internalConfig) error {
		if enabled {
			c.overBudget = window.OverBudgetError
		} else {
			c.overBudget = window.OverBudgetKeep
		}
		c.overBudgetSet = true
		return nil
	}
}

// WithEvictionSummary enables inserting a synthetic assistant turn that
// notes how many turns were evicted by a trim
func WithEvictionSummary(enabled bool) Option {
	return func(c *internalConfig) error {
		c.summarize = enabled
		return nil
	}
}

// WithHooks sets the hook registry used for observability.
// Hooks apply to Sessions managers only.
func WithHooks(registry *hooks.Registry) Option {
	return func(c *internalConfig) error {
		if registry == nil {
			return window.NewWindowError("WithHooks", window.ErrInvalidConfig).
				WithContext("reason", "registry must not be nil")
		}
		c.hooks = registry
		return nil
	}
}

// WithAnthropicCounting uses the Anthropic count-tokens API for session
// statistics, falling back to estimation when the API is unavailable.
// Applies to Sessions managers only; trimming always uses the estimator.
func WithAnthropicCounting(client *anthropic.Client, model string) Option {
	return func(c *internalConfig) error {
		if client == nil {
			return window.NewWindowError("WithAnthropicCounting", window.ErrInvalidConfig).
				WithContext("reason", "client must not be nil")
		}
		c.counterClient = client
		c.counterModel = model
		return nil
	}
}
