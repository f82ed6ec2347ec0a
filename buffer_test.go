package windowpg

import (
	"errors"
	"strings"
	"testing"

	"github.com/youssefsiam38/windowpg/types"
	"github.com/youssefsiam38/windowpg/window"
)

// chunk returns content estimating to exactly n tokens (4 chars per token).
func chunk(n int) string {
	return strings.Repeat("x", n*4)
}

func TestBufferAppendWithinBudget(t *testing.T) {
	buf, err := NewBuffer(&window.Config{TokenBudget: 100, PreserveLastN: 2})
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if err := buf.Append(types.RoleSystem, chunk(10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := buf.Append(types.RoleUser, chunk(10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if buf.Len() != 2 {
		t.Errorf("Expected 2 turns, got %d", buf.Len())
	}
	if got := buf.EstimatedTokens(); got != 20 {
		t.Errorf("Expected 20 tokens, got %d", got)
	}
	if buf.LastTrim().TurnsEvicted != 0 {
		t.Errorf("Expected no evictions, got %d", buf.LastTrim().TurnsEvicted)
	}
}

func TestBufferTrimsOnAppend(t *testing.T) {
	// Budget 50, 10 tokens per turn: the buffer holds 5 turns, evicting the
	// oldest non-mandatory turn on each further append.
	buf, err := NewBuffer(&window.Config{TokenBudget: 50, PreserveLastN: 2})
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if err := buf.Append(types.RoleSystem, chunk(10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		if err := buf.Append(role, chunk(10)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	turns := buf.Turns()
	if len(turns) != 5 {
		t.Fatalf("Expected 5 turns after trimming, got %d", len(turns))
	}

	if !turns[0].IsSystem() {
		t.Error("System turn should survive every trim")
	}

	wantSeqs := []int{0, 5, 6, 7, 8}
	for i, want := range wantSeqs {
		if turns[i].SequenceIndex != want {
			t.Errorf("Turn %d: expected sequence %d, got %d", i, want, turns[i].SequenceIndex)
		}
	}

	if got := buf.EstimatedTokens(); got > 50 {
		t.Errorf("Buffer over budget after trim: %d tokens", got)
	}
}

func TestBufferPinnedSurvives(t *testing.T) {
	buf, err := NewBuffer(&window.Config{TokenBudget: 50, PreserveLastN: 2})
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if err := buf.Append(types.RoleSystem, chunk(10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := buf.AppendPinned(types.RoleUser, chunk(10)); err != nil {
		t.Fatalf("AppendPinned failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		if err := buf.Append(types.RoleAssistant, chunk(10)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	found := false
	for _, turn := range buf.Turns() {
		if turn.IsPinned {
			found = true
		}
	}
	if !found {
		t.Error("Pinned turn should never be evicted")
	}
}

func TestBufferEvictionSummary(t *testing.T) {
	buf, err := NewBuffer(
		&window.Config{TokenBudget: 50, PreserveLastN: 2},
		WithEvictionSummary(true),
	)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if err := buf.Append(types.RoleSystem, chunk(10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	for i := 0; i < 6; i++ {
		if err := buf.Append(types.RoleUser, chunk(10)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	turns := buf.Turns()
	if len(turns) < 2 {
		t.Fatalf("Expected at least 2 turns, got %d", len(turns))
	}
	if !turns[0].IsSystem() {
		t.Error("System turn should stay first")
	}
	if !turns[1].IsSummary {
		t.Errorf("Expected summary turn after system, got %+v", turns[1])
	}
	if !strings.Contains(turns[1].Content, "Context summary") {
		t.Errorf("Unexpected summary content: %q", turns[1].Content)
	}
}

func TestBufferStrictBudget(t *testing.T) {
	buf, err := NewBuffer(
		&window.Config{TokenBudget: 5, PreserveLastN: 2},
		WithStrictBudget(true),
	)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	// The system turn alone exceeds the budget, so strict mode must fail.
	err = buf.Append(types.RoleSystem, chunk(10))
	if !errors.Is(err, window.ErrBudgetUnsatisfiable) {
		t.Errorf("Expected ErrBudgetUnsatisfiable, got %v", err)
	}
}

func TestBufferConfigOverBudgetPolicy(t *testing.T) {
	t.Run("config policy is honored without options", func(t *testing.T) {
		buf, err := NewBuffer(&window.Config{
			TokenBudget:   10,
			PreserveLastN: 1,
			OverBudget:    window.OverBudgetError,
		})
		if err != nil {
			t.Fatalf("NewBuffer failed: %v", err)
		}

		err = buf.Append(types.RoleUser, strings.Repeat("a", 10000))
		if !errors.Is(err, window.ErrBudgetUnsatisfiable) {
			t.Errorf("Expected ErrBudgetUnsatisfiable from config policy, got %v", err)
		}
	})

	t.Run("explicit option overrides config policy", func(t *testing.T) {
		buf, err := NewBuffer(
			&window.Config{
				TokenBudget:   10,
				PreserveLastN: 1,
				OverBudget:    window.OverBudgetError,
			},
			WithStrictBudget(false),
		)
		if err != nil {
			t.Fatalf("NewBuffer failed: %v", err)
		}

		if err := buf.Append(types.RoleUser, strings.Repeat("a", 10000)); err != nil {
			t.Errorf("Expected oversized turn kept under explicit keep policy, got %v", err)
		}
		if buf.Len() != 1 {
			t.Errorf("Expected the oversized turn retained, got %d turns", buf.Len())
		}
	})
}

func TestBufferInvalidRole(t *testing.T) {
	buf, err := NewBuffer(nil)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	err = buf.Append(types.Role("moderator"), "hello")
	if !errors.Is(err, window.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for unknown role, got %v", err)
	}
}

func TestBufferClear(t *testing.T) {
	buf, err := NewBuffer(nil)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if err := buf.Append(types.RoleUser, "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	buf.Clear()

	if buf.Len() != 0 {
		t.Errorf("Expected empty buffer after Clear, got %d turns", buf.Len())
	}

	if err := buf.Append(types.RoleUser, "again"); err != nil {
		t.Fatalf("Append after Clear failed: %v", err)
	}
	if got := buf.Turns()[0].SequenceIndex; got != 0 {
		t.Errorf("Expected sequence numbering reset, got %d", got)
	}
}

func TestNewBufferInvalidConfig(t *testing.T) {
	_, err := NewBuffer(&window.Config{TokenBudget: 10, PreserveLastN: -1})
	if !errors.Is(err, window.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
