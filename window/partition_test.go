package window

import (
	"strings"
	"testing"

	"github.com/youssefsiam38/windowpg/types"
)

func TestPartitionTurns(t *testing.T) {
	turns := conversation(40, 40, 10)
	turns[2].IsPinned = true

	p := PartitionTurns(turns, 3, CharEstimator{})

	if p.System == nil || !p.System.IsSystem() {
		t.Fatal("system turn not identified")
	}
	if len(p.Recent) != 3 {
		t.Fatalf("Recent = %d turns, want 3", len(p.Recent))
	}
	if p.Recent[0].SequenceIndex != 8 {
		t.Errorf("recent zone starts at %d, want 8", p.Recent[0].SequenceIndex)
	}
	if len(p.Pinned) != 1 || p.Pinned[0].SequenceIndex != 2 {
		t.Fatalf("Pinned = %+v, want the turn at sequence 2", p.Pinned)
	}
	if len(p.Evictable) != 6 {
		t.Errorf("Evictable = %d turns, want 6", len(p.Evictable))
	}

	if p.Stats.SystemTokens != 10 {
		t.Errorf("SystemTokens = %d, want 10", p.Stats.SystemTokens)
	}
	if p.Stats.TotalTokens != 110 {
		t.Errorf("TotalTokens = %d, want 110", p.Stats.TotalTokens)
	}
	if got := p.Stats.MandatoryTokens(); got != 50 {
		t.Errorf("MandatoryTokens() = %d, want 50", got)
	}
	if !p.CanEvict() {
		t.Error("CanEvict() = false, want true")
	}
}

func TestPartitionTurnsNoSystem(t *testing.T) {
	turns := []types.Turn{
		newTurn(types.RoleUser, "one", 0),
		newTurn(types.RoleAssistant, "two", 1),
		newTurn(types.RoleUser, "three", 2),
	}

	p := PartitionTurns(turns, 2, nil)

	if p.System != nil {
		t.Error("unexpected system turn")
	}
	if len(p.Recent) != 2 || len(p.Evictable) != 1 {
		t.Errorf("Recent/Evictable = %d/%d, want 2/1", len(p.Recent), len(p.Evictable))
	}
}

func TestPartitionTurnsEmpty(t *testing.T) {
	p := PartitionTurns(nil, 5, nil)
	if p.CanEvict() {
		t.Error("empty partition should have nothing to evict")
	}
	if p.Stats.TotalTokens != 0 {
		t.Errorf("TotalTokens = %d, want 0", p.Stats.TotalTokens)
	}
}

func TestPartitionPreserveCountLargerThanTurns(t *testing.T) {
	turns := conversation(40, 40, 3)
	p := PartitionTurns(turns, 100, CharEstimator{})

	if len(p.Recent) != 3 {
		t.Errorf("Recent = %d turns, want all 3 content turns", len(p.Recent))
	}
	if p.CanEvict() {
		t.Error("nothing should be evictable when preserve count covers everything")
	}
}

func TestSummarizeEvicted(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, ok := SummarizeEvicted(nil)
		if ok {
			t.Error("expected no summary for empty input")
		}
	})

	t.Run("counts roles", func(t *testing.T) {
		evicted := []types.Turn{
			newTurn(types.RoleUser, "a", 1),
			newTurn(types.RoleAssistant, "b", 2),
			newTurn(types.RoleUser, "c", 3),
		}

		summary, ok := SummarizeEvicted(evicted)
		if !ok {
			t.Fatal("expected a summary")
		}
		if !summary.IsSummary {
			t.Error("summary turn not marked IsSummary")
		}
		if summary.Role != types.RoleAssistant {
			t.Errorf("summary role = %q, want assistant", summary.Role)
		}
		want := "[Context summary: removed 3 turns from history including 2 user turns and 1 assistant turns]"
		if summary.Content != want {
			t.Errorf("summary content = %q, want %q", summary.Content, want)
		}
	})
}

func TestSummarizeEvictedLong(t *testing.T) {
	// The summary must stay small regardless of how much was evicted.
	evicted := make([]types.Turn, 100)
	for i := range evicted {
		evicted[i] = newTurn(types.RoleUser, strings.Repeat("x", 4000), i)
	}

	summary, ok := SummarizeEvicted(evicted)
	if !ok {
		t.Fatal("expected a summary")
	}
	if got := (CharEstimator{}).Estimate(summary.Content); got > 100 {
		t.Errorf("summary costs %d tokens, expected a small constant", got)
	}
}
