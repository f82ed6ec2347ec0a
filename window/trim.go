package window

import (
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/windowpg/types"
)

// TrimResult contains the outcome of a trim operation.
type TrimResult struct {
	// EventID is the ID of the persisted trim event, when the trim was
	// applied to a stored session.
	EventID uuid.UUID

	// SessionID is the session that was trimmed, when applicable.
	SessionID uuid.UUID

	// OriginalTokens is the estimated token count before trimming.
	OriginalTokens int

	// TrimmedTokens is the estimated token count after trimming.
	TrimmedTokens int

	// TurnsEvicted is the number of turns removed.
	TurnsEvicted int

	// Evicted holds the removed turns, oldest first.
	Evicted []types.Turn

	// SummaryCreated indicates whether an eviction-summary turn was added.
	SummaryCreated bool

	// Duration is how long the trim took, including persistence when the
	// trim was applied to a stored session.
	Duration time.Duration
}

// Reduction returns the token reduction as a percentage of the original.
func (r *TrimResult) Reduction() float64 {
	if r.OriginalTokens == 0 {
		return 0
	}
	return float64(r.OriginalTokens-r.TrimmedTokens) / float64(r.OriginalTokens) * 100
}

// Trim returns the subsequence of turns that fits cfg.TokenBudget,
// evicting the oldest non-mandatory turns first.
//
// Trim is pure: the input slice is never modified and the result is a new
// slice. Surviving turns keep their original relative order. The mandatory
// set (index-0 system turn, last PreserveLastN non-system turns, pinned
// turns) is never evicted; when it alone meets or exceeds the budget the
// configured OverBudget policy applies.
//
// The only possible errors are an invalid configuration and, under
// OverBudgetError, ErrBudgetUnsatisfiable.
func Trim(turns []types.Turn, cfg *Config) ([]types.Turn, error) {
	kept, _, err := TrimWithResult(turns, cfg)
	return kept, err
}

// TrimWithResult is Trim plus bookkeeping about what was removed.
func TrimWithResult(turns []types.Turn, cfg *Config) ([]types.Turn, *TrimResult, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	est := cfg.estimator()

	result := &TrimResult{OriginalTokens: EstimateTokens(est, turns)}

	if len(turns) == 0 {
		return []types.Turn{}, result, nil
	}

	mandatory := mandatoryMask(turns, cfg.PreserveLastN)

	mandatoryTokens := 0
	for i, t := range turns {
		if mandatory[i] {
			mandatoryTokens += est.Estimate(t.Content)
		}
	}

	// Degenerate case: the mandatory set alone meets or exceeds the budget.
	// Nothing can shrink further without violating a preservation guarantee.
	if mandatoryTokens >= cfg.TokenBudget {
		if cfg.OverBudget == OverBudgetError {
			return nil, nil, NewWindowError("Trim", ErrBudgetUnsatisfiable).
				WithContext("mandatory_tokens", mandatoryTokens).
				WithContext("token_budget", cfg.TokenBudget)
		}
		kept := make([]types.Turn, 0, len(turns))
		for i, t := range turns {
			if mandatory[i] {
				kept = append(kept, t)
			} else {
				result.Evicted = append(result.Evicted, t)
			}
		}
		result.TrimmedTokens = mandatoryTokens
		result.TurnsEvicted = len(result.Evicted)
		return kept, result, nil
	}

	total := result.OriginalTokens
	if total <= cfg.TokenBudget {
		kept := make([]types.Turn, len(turns))
		copy(kept, turns)
		result.TrimmedTokens = total
		return kept, result, nil
	}

	// Evict the oldest non-mandatory turns one at a time until the
	// remaining set fits. Per-turn estimates are additive, so the running
	// total stays consistent with re-estimating the survivors.
	evicted := make([]bool, len(turns))
	for i := 0; i < len(turns) && total > cfg.TokenBudget; i++ {
		if mandatory[i] {
			continue
		}
		evicted[i] = true
		total -= est.Estimate(turns[i].Content)
	}

	kept := make([]types.Turn, 0, len(turns))
	for i, t := range turns {
		if evicted[i] {
			result.Evicted = append(result.Evicted, t)
		} else {
			kept = append(kept, t)
		}
	}

	result.TrimmedTokens = total
	result.TurnsEvicted = len(result.Evicted)
	return kept, result, nil
}
