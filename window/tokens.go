package window

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/windowpg/types"
)

// DefaultCountingModel is the model used for token counting API calls when
// none is configured. A fast, cheap model is sufficient: counting does not
// generate text.
const DefaultCountingModel = "claude-3-5-haiku-20241022"

// CountResult contains the result of a token count operation.
type CountResult struct {
	// TotalTokens is the total token count for all turns.
	TotalTokens int

	// UsedAPI indicates whether the Anthropic API was used (true) or the
	// character-based approximation fallback (false).
	UsedAPI bool

	// PerTurn contains the estimated token count per turn.
	// Only populated when using the approximation fallback.
	PerTurn []int
}

// TokenCounter counts tokens using the Anthropic token counting API with a
// character-based approximation fallback. Results are cached by content
// hash so repeated counts of an unchanged window are free.
//
// TokenCounter is safe for concurrent use. Once an API call fails it stays
// on the approximation fallback for the rest of its lifetime.
type TokenCounter struct {
	client *anthropic.Client
	model  string
	useAPI bool

	mu       sync.Mutex
	fallback bool
	cache    map[string]int
}

// NewTokenCounter creates a TokenCounter with the given Anthropic client.
// If useAPI is false, or client is nil, only the approximation is used.
func NewTokenCounter(client *anthropic.Client, model string, useAPI bool) *TokenCounter {
	if model == "" {
		model = DefaultCountingModel
	}
	return &TokenCounter{
		client: client,
		model:  model,
		useAPI: useAPI,
		cache:  make(map[string]int),
	}
}

// Count counts the tokens in the given turns. It attempts the Anthropic
// API for accurate counts and falls back to character-based approximation
// if the API is unavailable. Count never fails; a failed API call degrades
// to the approximation.
func (tc *TokenCounter) Count(ctx context.Context, turns []types.Turn) *CountResult {
	if len(turns) == 0 {
		return &CountResult{}
	}

	if tc.apiAvailable() {
		key := tc.cacheKey(turns)

		tc.mu.Lock()
		cached, ok := tc.cache[key]
		tc.mu.Unlock()
		if ok {
			return &CountResult{TotalTokens: cached, UsedAPI: true}
		}

		total, err := tc.countWithAPI(ctx, turns)
		if err == nil {
			tc.mu.Lock()
			tc.cache[key] = total
			tc.mu.Unlock()
			return &CountResult{TotalTokens: total, UsedAPI: true}
		}

		tc.mu.Lock()
		tc.fallback = true
		tc.mu.Unlock()
	}

	return tc.countWithApproximation(turns)
}

// CountText counts tokens for a single piece of text.
func (tc *TokenCounter) CountText(ctx context.Context, text string) int {
	turn := types.Turn{Role: types.RoleUser, Content: text}
	return tc.Count(ctx, []types.Turn{turn}).TotalTokens
}

func (tc *TokenCounter) apiAvailable() bool {
	if !tc.useAPI || tc.client == nil {
		return false
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return !tc.fallback
}

// countWithAPI uses the Anthropic token counting API. System turns are not
// representable as conversation messages, so their content is counted with
// the approximation and added to the API total.
func (tc *TokenCounter) countWithAPI(ctx context.Context, turns []types.Turn) (int, error) {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	systemTokens := 0

	for _, t := range turns {
		if t.Role == types.RoleSystem {
			systemTokens += approximateTokens(t.Content)
			continue
		}

		role := anthropic.MessageParamRoleUser
		if t.Role == types.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}

		if t.Content == "" {
			continue
		}

		messages = append(messages, anthropic.MessageParam{
			Role: role,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(t.Content),
			},
		})
	}

	if len(messages) == 0 {
		return systemTokens, nil
	}

	result, err := tc.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(tc.model),
		Messages: messages,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTokenCountingFailed, err)
	}

	return int(result.InputTokens) + systemTokens, nil
}

// countWithApproximation sums per-turn character-based estimates.
func (tc *TokenCounter) countWithApproximation(turns []types.Turn) *CountResult {
	perTurn := make([]int, len(turns))
	total := 0

	for i, t := range turns {
		tokens := approximateTokens(t.Content)
		perTurn[i] = tokens
		total += tokens
	}

	return &CountResult{
		TotalTokens: total,
		UsedAPI:     false,
		PerTurn:     perTurn,
	}
}

// cacheKey hashes the model and turn contents.
func (tc *TokenCounter) cacheKey(turns []types.Turn) string {
	h := sha256.New()
	h.Write([]byte(tc.model))
	for _, t := range turns {
		h.Write([]byte{0})
		h.Write([]byte(t.Role))
		h.Write([]byte{0})
		h.Write([]byte(t.Content))
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}
