package windowpg

import (
	"sync"

	"github.com/youssefsiam38/windowpg/types"
	"github.com/youssefsiam38/windowpg/window"
)

// Buffer is an in-memory conversation window that trims itself to the token
// budget on every append. It is the storage-free counterpart of Sessions,
// for callers that keep conversation state in process.
//
// Buffer is safe for concurrent use.
type Buffer struct {
	mu        sync.Mutex
	cfg       *window.Config
	summarize bool
	turns     []types.Turn
	nextSeq   int
	lastTrim  *window.TrimResult
}

// NewBuffer creates a buffer with the given window configuration.
// A nil config uses defaults. Storage-related options (hooks, API counting)
// do not apply to buffers and are ignored.
func NewBuffer(cfg *window.Config, opts ...Option) (*Buffer, error) {
	if cfg == nil {
		cfg = window.DefaultConfig()
	} else {
		c := *cfg
		cfg = &c
	}
	cfg.ApplyDefaults()

	ic := defaultInternalConfig()
	if err := ic.apply(opts); err != nil {
		return nil, err
	}
	if ic.estimator != nil {
		cfg.Estimator = ic.estimator
	}
	// The config's own policy stands unless a WithStrictBudget option was
	// actually supplied.
	if ic.overBudgetSet {
		cfg.OverBudget = ic.overBudget
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Buffer{
		cfg:       cfg,
		summarize: ic.summarize,
	}, nil
}

// Append adds a turn with the given role and content, then trims the buffer
// if it exceeds the token budget
func (b *Buffer) Append(role types.Role, content string) error {
	return b.AppendTurn(types.NewTurn(role, content))
}

// AppendPinned adds a turn that is exempt from eviction
func (b *Buffer) AppendPinned(role types.Role, content string) error {
	turn := types.NewTurn(role, content)
	turn.IsPinned = true
	return b.AppendTurn(turn)
}

// AppendTurn adds a fully specified turn, then trims if over budget
func (b *Buffer) AppendTurn(turn types.Turn) error {
	if !turn.Role.Valid() {
		return window.NewWindowError("Buffer.AppendTurn", window.ErrInvalidConfig).
			WithContext("role", string(turn.Role))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	turn.SequenceIndex = b.nextSeq
	b.nextSeq++
	b.turns = append(b.turns, turn)

	return b.trimLocked()
}

// AppendTurns adds several turns at once, trimming once at the end
func (b *Buffer) AppendTurns(turns ...types.Turn) error {
	for _, turn := range turns {
		if !turn.Role.Valid() {
			return window.NewWindowError("Buffer.AppendTurns", window.ErrInvalidConfig).
				WithContext("role", string(turn.Role))
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, turn := range turns {
		turn.SequenceIndex = b.nextSeq
		b.nextSeq++
		b.turns = append(b.turns, turn)
	}

	return b.trimLocked()
}

// trimLocked trims the buffer in place. Callers must hold b.mu.
func (b *Buffer) trimLocked() error {
	kept, res, err := window.TrimWithResult(b.turns, b.cfg)
	if err != nil {
		return err
	}

	if res.TurnsEvicted > 0 && b.summarize {
		if summary, ok := window.SummarizeEvicted(res.Evicted); ok {
			summary.SequenceIndex = b.nextSeq
			b.nextSeq++
			kept = insertAfterSystem(kept, summary)
			res.SummaryCreated = true
		}
	}

	b.turns = kept
	b.lastTrim = res
	return nil
}

// insertAfterSystem places the summary right after a leading system turn,
// so it reads as preamble rather than as the latest exchange.
func insertAfterSystem(turns []types.Turn, summary types.Turn) []types.Turn {
	pos := 0
	if len(turns) > 0 && turns[0].IsSystem() {
		pos = 1
	}
	out := make([]types.Turn, 0, len(turns)+1)
	out = append(out, turns[:pos]...)
	out = append(out, summary)
	out = append(out, turns[pos:]...)
	return out
}

// Turns returns a copy of the buffer's current turns in order
func (b *Buffer) Turns() []types.Turn {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Len returns the number of turns currently in the buffer
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.turns)
}

// EstimatedTokens returns the estimated token count of the current turns
func (b *Buffer) EstimatedTokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return window.EstimateTokens(b.cfg.Estimator, b.turns)
}

// LastTrim returns the result of the most recent trim, or nil if the buffer
// has never been appended to
func (b *Buffer) LastTrim() *window.TrimResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTrim
}

// Clear removes all turns and resets sequence numbering
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = nil
	b.nextSeq = 0
	b.lastTrim = nil
}
