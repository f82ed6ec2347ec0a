// Package window provides token-budget management for LLM conversation
// context windows.
//
// A conversation accumulates turns until it no longer fits the downstream
// model's context limit. This package keeps a turn sequence under a
// configured token budget by evicting the oldest removable turns while
// preserving the turns a coherent conversation cannot lose.
//
// # Trimming
//
// Trim is a pure function over an ordered turn sequence. It never reorders
// surviving turns and evicts strictly oldest-first among removable turns.
// Three classes of turns are mandatory and never evicted:
//
//   - The system turn, when the first turn carries the system role.
//   - The last PreserveLastN non-system turns (recent context).
//   - Turns explicitly pinned with IsPinned.
//
// When the mandatory set alone meets or exceeds the budget, no further
// reduction is possible without violating a preservation guarantee. The
// OverBudget policy decides the outcome: OverBudgetKeep (the default)
// returns the mandatory set unchanged and leaves enforcement to the caller;
// OverBudgetError returns ErrBudgetUnsatisfiable instead.
//
// # Token Estimation
//
// Budget checks use an Estimator. The default CharEstimator approximates
// ~4 characters per token, which is cheap and triggers well below hard
// limits. TiktokenEstimator provides exact BPE counts, and TokenCounter
// uses the Anthropic token counting API with an approximation fallback.
// The trimming algorithm is independent of the estimator choice.
//
// # Usage
//
//	cfg := window.DefaultConfig()
//	cfg.TokenBudget = 50000
//	cfg.PreserveLastN = 8
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
//	kept, err := window.Trim(turns, cfg)
//
// Trim has no side effects on its input; persisting the trimmed result as
// the new authoritative history is the caller's decision.
package window
