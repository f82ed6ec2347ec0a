package window

import (
	"github.com/youssefsiam38/windowpg/types"
)

// Partition categorizes a turn sequence for trimming. Categories are
// mutually exclusive; a turn that is both recent and pinned counts as
// recent.
type Partition struct {
	// System is the system turn at index 0, if the first turn carries the
	// system role. Never evicted.
	System *types.Turn

	// Recent holds the last PreserveLastN non-system turns. Never evicted.
	Recent []types.Turn

	// Pinned holds older turns marked IsPinned. Never evicted.
	Pinned []types.Turn

	// Evictable holds everything else, oldest first. These are the only
	// turns trimming may remove.
	Evictable []types.Turn

	// Stats contains token counts for each category.
	Stats PartitionStats
}

// PartitionStats contains estimated token counts per category.
type PartitionStats struct {
	SystemTokens    int
	RecentTokens    int
	PinnedTokens    int
	EvictableTokens int
	TotalTokens     int
}

// MandatoryTokens returns the estimated cost of the turns eviction must keep.
func (s PartitionStats) MandatoryTokens() int {
	return s.SystemTokens + s.RecentTokens + s.PinnedTokens
}

// CanEvict reports whether any turn is eligible for eviction.
func (p *Partition) CanEvict() bool {
	return len(p.Evictable) > 0
}

// PartitionTurns categorizes turns for trimming with the given preservation
// count. A nil estimator falls back to CharEstimator.
func PartitionTurns(turns []types.Turn, preserveLastN int, est Estimator) *Partition {
	if est == nil {
		est = CharEstimator{}
	}

	p := &Partition{}
	if len(turns) == 0 {
		return p
	}

	mandatory := mandatoryMask(turns, preserveLastN)

	contentStart := 0
	if turns[0].IsSystem() {
		p.System = &turns[0]
		p.Stats.SystemTokens = est.Estimate(turns[0].Content)
		contentStart = 1
	}

	recentStart := recentBoundary(turns, preserveLastN, contentStart)

	for i := contentStart; i < len(turns); i++ {
		tokens := est.Estimate(turns[i].Content)
		switch {
		case i >= recentStart:
			p.Recent = append(p.Recent, turns[i])
			p.Stats.RecentTokens += tokens
		case mandatory[i]:
			p.Pinned = append(p.Pinned, turns[i])
			p.Stats.PinnedTokens += tokens
		default:
			p.Evictable = append(p.Evictable, turns[i])
			p.Stats.EvictableTokens += tokens
		}
	}

	p.Stats.TotalTokens = p.Stats.SystemTokens + p.Stats.RecentTokens +
		p.Stats.PinnedTokens + p.Stats.EvictableTokens

	return p
}

// recentBoundary returns the index where the preserved recent zone begins.
// The zone covers the last preserveLastN turns after the system turn.
func recentBoundary(turns []types.Turn, preserveLastN, contentStart int) int {
	start := len(turns) - preserveLastN
	if start < contentStart {
		start = contentStart
	}
	return start
}

// mandatoryMask marks the turns eviction must never remove: the index-0
// system turn, the last preserveLastN non-system turns, and pinned turns.
func mandatoryMask(turns []types.Turn, preserveLastN int) []bool {
	mask := make([]bool, len(turns))
	if len(turns) == 0 {
		return mask
	}

	contentStart := 0
	if turns[0].IsSystem() {
		mask[0] = true
		contentStart = 1
	}

	for i := recentBoundary(turns, preserveLastN, contentStart); i < len(turns); i++ {
		mask[i] = true
	}

	for i, t := range turns {
		if t.IsPinned {
			mask[i] = true
		}
	}

	return mask
}
