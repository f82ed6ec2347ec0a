package window

import (
	"github.com/youssefsiam38/windowpg/types"
)

// Estimator approximates the number of tokens a piece of text would occupy
// when submitted to a language model.
//
// Estimators must be pure: no side effects, no failures, non-negative
// results, 0 for empty input.
type Estimator interface {
	Estimate(text string) int
}

// EstimatorFunc adapts an ordinary function to the Estimator interface.
type EstimatorFunc func(text string) int

// Estimate calls f(text).
func (f EstimatorFunc) Estimate(text string) int {
	return f(text)
}

// CharEstimator estimates tokens from character count using the
// approximation of ~4 characters per token for English text.
type CharEstimator struct{}

// Estimate returns the approximate token count for text.
func (CharEstimator) Estimate(text string) int {
	return approximateTokens(text)
}

// approximateTokens estimates token count from character count with a
// minimum of 1 token for non-empty text.
func approximateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := (len(text) + 3) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// EstimateTokens returns the estimated token cost of the given turns using
// est. A nil estimator falls back to CharEstimator. Empty input costs 0.
func EstimateTokens(est Estimator, turns []types.Turn) int {
	if est == nil {
		est = CharEstimator{}
	}
	total := 0
	for _, t := range turns {
		total += est.Estimate(t.Content)
	}
	return total
}
