package windowpg

import (
	"github.com/youssefsiam38/windowpg/storage"
	"github.com/youssefsiam38/windowpg/window"
)

// Config holds the required configuration for a Sessions manager
type Config struct {
	// Store persists sessions, turns, and trim bookkeeping (required)
	Store storage.Store

	// SystemPrompt, when set, is appended as a pinned system turn to every
	// new session (optional)
	SystemPrompt string

	// TokenBudget is the hard cap on estimated context tokens
	// Default: 80000
	TokenBudget int

	// PreserveLastN is how many recent non-system turns are immune to
	// eviction. Zero is a valid explicit choice and disables the recency
	// guarantee.
	PreserveLastN int
}

// Validate validates the configuration and returns an error if invalid.
// Budget problems surface here, at construction time, never mid-conversation.
func (c *Config) Validate() error {
	if c.Store == nil {
		return window.NewWindowError("Config.Validate", window.ErrInvalidConfig).
			WithContext("reason", "store is required")
	}

	wcfg := window.Config{
		TokenBudget:   c.TokenBudget,
		PreserveLastN: c.PreserveLastN,
		OverBudget:    window.DefaultOverBudget,
	}
	return wcfg.Validate()
}

// ApplyDefaults fills in default values for optional fields
func (c *Config) ApplyDefaults() {
	if c.TokenBudget == 0 {
		c.TokenBudget = window.DefaultTokenBudget
	}
	// PreserveLastN == 0 is a valid explicit choice, so it is left alone.
}
