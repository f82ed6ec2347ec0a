package window

import (
	"fmt"

	"github.com/youssefsiam38/windowpg/types"
)

// SummarizeEvicted synthesizes an assistant turn describing the evicted
// turns, so the model stays aware that older history was removed. The
// returned turn is marked IsSummary and carries no sequence index; the
// caller decides where to place it (conventionally right after the system
// turn).
//
// It returns false when there is nothing to summarize.
func SummarizeEvicted(evicted []types.Turn) (types.Turn, bool) {
	if len(evicted) == 0 {
		return types.Turn{}, false
	}

	userTurns := 0
	assistantTurns := 0
	for _, t := range evicted {
		switch t.Role {
		case types.RoleUser:
			userTurns++
		case types.RoleAssistant:
			assistantTurns++
		}
	}

	content := fmt.Sprintf(
		"[Context summary: removed %d turns from history including %d user turns and %d assistant turns]",
		len(evicted), userTurns, assistantTurns,
	)

	turn := types.NewTurn(types.RoleAssistant, content)
	turn.IsSummary = true
	return turn, true
}
