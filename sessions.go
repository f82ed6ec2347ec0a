package windowpg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/windowpg/hooks"
	"github.com/youssefsiam38/windowpg/storage"
	"github.com/youssefsiam38/windowpg/types"
	"github.com/youssefsiam38/windowpg/window"
)

// Sessions manages persisted conversation windows. Each session is a stored
// conversation whose turns can be appended, read back as a budget-fitting
// window, and trimmed in place.
//
// Sessions is safe for concurrent use; all state lives in the store.
type Sessions struct {
	store     storage.Store
	windowCfg *window.Config
	system    string
	summarize bool
	hooks     *hooks.Registry
	counter   *window.TokenCounter
}

// New creates a Sessions manager with the given configuration and options.
// Configuration problems are reported here, never during later operations.
func New(config Config, opts ...Option) (*Sessions, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ic := defaultInternalConfig()
	if err := ic.apply(opts); err != nil {
		return nil, err
	}

	wcfg := &window.Config{
		TokenBudget:   config.TokenBudget,
		PreserveLastN: config.PreserveLastN,
		OverBudget:    ic.overBudget,
		Estimator:     ic.estimator,
	}
	wcfg.ApplyDefaults()
	if err := wcfg.Validate(); err != nil {
		return nil, err
	}

	var counter *window.TokenCounter
	if ic.counterClient != nil {
		counter = window.NewTokenCounter(ic.counterClient, ic.counterModel, true)
	}

	return &Sessions{
		store:     config.Store,
		windowCfg: wcfg,
		system:    config.SystemPrompt,
		summarize: ic.summarize,
		hooks:     ic.hooks,
		counter:   counter,
	}, nil
}

// NewSession creates a new conversation session.
// tenantID is used for multi-tenant isolation (use "1" for single-tenant apps);
// identifier is a custom identifier (e.g., user ID, conversation ID).
// When the manager has a system prompt, it is appended as a pinned system turn.
func (s *Sessions) NewSession(ctx context.Context, tenantID, identifier string, metadata map[string]any) (uuid.UUID, error) {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	sessionID, err := s.store.CreateSession(ctx, tenantID, identifier, metadata)
	if err != nil {
		return uuid.Nil, window.NewWindowError("NewSession", err)
	}

	if s.system != "" {
		turn := types.NewTurn(types.RoleSystem, s.system)
		turn.IsPinned = true
		if err := s.store.AppendTurn(ctx, sessionID, &turn); err != nil {
			return uuid.Nil, window.NewWindowError("NewSession", err).WithSession(sessionID)
		}
	}

	return sessionID, nil
}

// Session retrieves stored session information
func (s *Sessions) Session(ctx context.Context, sessionID uuid.UUID) (*storage.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, window.NewWindowError("Session", err).WithSession(sessionID)
	}
	return session, nil
}

// SessionByIdentifier retrieves a session by its tenant and identifier
func (s *Sessions) SessionByIdentifier(ctx context.Context, tenantID, identifier string) (*storage.Session, error) {
	session, err := s.store.GetSessionByTenantAndIdentifier(ctx, tenantID, identifier)
	if err != nil {
		return nil, window.NewWindowError("SessionByIdentifier", err)
	}
	return session, nil
}

// SessionsByTenant retrieves all of a tenant's sessions, most recently
// updated first
func (s *Sessions) SessionsByTenant(ctx context.Context, tenantID string) ([]*storage.Session, error) {
	sessions, err := s.store.GetSessionsByTenant(ctx, tenantID)
	if err != nil {
		return nil, window.NewWindowError("SessionsByTenant", err)
	}
	return sessions, nil
}

// Append adds a turn with the given role and content to the session.
// The store assigns the sequence index.
func (s *Sessions) Append(ctx context.Context, sessionID uuid.UUID, role types.Role, content string) (*types.Turn, error) {
	turn := types.NewTurn(role, content)
	return s.AppendTurn(ctx, sessionID, turn)
}

// AppendPinned adds a turn that is exempt from eviction
func (s *Sessions) AppendPinned(ctx context.Context, sessionID uuid.UUID, role types.Role, content string) (*types.Turn, error) {
	turn := types.NewTurn(role, content)
	turn.IsPinned = true
	return s.AppendTurn(ctx, sessionID, turn)
}

// AppendTurn adds a fully specified turn to the session
func (s *Sessions) AppendTurn(ctx context.Context, sessionID uuid.UUID, turn types.Turn) (*types.Turn, error) {
	if !turn.Role.Valid() {
		return nil, window.NewWindowError("AppendTurn", window.ErrInvalidConfig).
			WithSession(sessionID).
			WithContext("role", string(turn.Role))
	}

	if err := s.store.AppendTurn(ctx, sessionID, &turn); err != nil {
		return nil, window.NewWindowError("AppendTurn", err).WithSession(sessionID)
	}

	if err := s.hooks.TriggerAppend(ctx, sessionID.String(), &turn); err != nil {
		return nil, window.NewWindowError("AppendTurn", err).WithSession(sessionID)
	}

	return &turn, nil
}

// Window returns the session's turns trimmed to the token budget.
// This is a read-only view: nothing is evicted from storage. Use TrimSession
// to apply the eviction.
func (s *Sessions) Window(ctx context.Context, sessionID uuid.UUID) ([]types.Turn, error) {
	turns, err := s.store.GetTurns(ctx, sessionID)
	if err != nil {
		return nil, window.NewWindowError("Window", err).WithSession(sessionID)
	}

	kept, err := window.Trim(turns, s.windowCfg)
	if err != nil {
		return nil, window.NewWindowError("Window", err).WithSession(sessionID)
	}
	return kept, nil
}

// Turns returns all stored turns for the session, untrimmed, in sequence order
func (s *Sessions) Turns(ctx context.Context, sessionID uuid.UUID) ([]types.Turn, error) {
	turns, err := s.store.GetTurns(ctx, sessionID)
	if err != nil {
		return nil, window.NewWindowError("Turns", err).WithSession(sessionID)
	}
	return turns, nil
}

// TrimSession trims the stored session to the token budget and persists the
// eviction: evicted turns are archived then deleted, an optional summary
// turn is appended, and a trim event is recorded. The whole operation runs
// in a single transaction when the store supports it.
//
// Trimming a session that already fits is a no-op with TurnsEvicted == 0.
func (s *Sessions) TrimSession(ctx context.Context, sessionID uuid.UUID) (*window.TrimResult, error) {
	start := time.Now()

	if err := s.hooks.TriggerBeforeTrim(ctx, sessionID.String()); err != nil {
		return nil, window.NewWindowError("TrimSession", err).WithSession(sessionID)
	}

	var result *window.TrimResult
	apply := func(ctx context.Context) error {
		turns, err := s.store.GetTurns(ctx, sessionID)
		if err != nil {
			return err
		}

		kept, res, err := window.TrimWithResult(turns, s.windowCfg)
		if err != nil {
			return err
		}
		res.SessionID = sessionID
		result = res

		if res.TurnsEvicted == 0 {
			return nil
		}

		event := &storage.TrimEvent{
			ID:             uuid.New(),
			SessionID:      sessionID,
			OriginalTokens: res.OriginalTokens,
			TrimmedTokens:  res.TrimmedTokens,
			TurnsEvicted:   res.TurnsEvicted,
			KeptTurnIDs:    turnIDs(kept),
		}

		if s.summarize {
			if summary, ok := window.SummarizeEvicted(res.Evicted); ok {
				if err := s.store.AppendTurn(ctx, sessionID, &summary); err != nil {
					return err
				}
				res.SummaryCreated = true
				event.SummaryCreated = true
				event.KeptTurnIDs = append(event.KeptTurnIDs, summary.ID)
			}
		}

		event.DurationMs = time.Since(start).Milliseconds()
		if err := s.store.SaveTrimEvent(ctx, event); err != nil {
			return err
		}
		if err := s.store.ArchiveTurns(ctx, event.ID, res.Evicted); err != nil {
			return err
		}
		if err := s.store.DeleteTurns(ctx, turnIDs(res.Evicted)); err != nil {
			return err
		}
		if err := s.store.UpdateSessionTrimCount(ctx, sessionID); err != nil {
			return err
		}

		res.EventID = event.ID
		return nil
	}

	var err error
	if tx, ok := s.store.(storage.TxStore); ok {
		err = tx.WithinTx(ctx, apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		return nil, window.NewWindowError("TrimSession", err).WithSession(sessionID)
	}

	result.Duration = time.Since(start)

	if err := s.hooks.TriggerAfterTrim(ctx, result); err != nil {
		return nil, window.NewWindowError("TrimSession", err).WithSession(sessionID)
	}

	return result, nil
}

// TrimHistory returns the session's trim events, oldest first
func (s *Sessions) TrimHistory(ctx context.Context, sessionID uuid.UUID) ([]*storage.TrimEvent, error) {
	events, err := s.store.GetTrimHistory(ctx, sessionID)
	if err != nil {
		return nil, window.NewWindowError("TrimHistory", err).WithSession(sessionID)
	}
	return events, nil
}

// ContextStats contains information about a session's context usage
type ContextStats struct {
	SessionID          uuid.UUID
	TurnCount          int
	TotalTokens        int
	TokenBudget        int
	UtilizationPercent float64
	TrimCount          int
	NeedsTrim          bool

	// UsedAPI indicates whether TotalTokens came from the Anthropic
	// count-tokens API rather than estimation
	UsedAPI bool
}

// Stats returns context usage statistics for the session
func (s *Sessions) Stats(ctx context.Context, sessionID uuid.UUID) (*ContextStats, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, window.NewWindowError("Stats", err).WithSession(sessionID)
	}

	turns, err := s.store.GetTurns(ctx, sessionID)
	if err != nil {
		return nil, window.NewWindowError("Stats", err).WithSession(sessionID)
	}

	stats := &ContextStats{
		SessionID:   sessionID,
		TurnCount:   len(turns),
		TokenBudget: s.windowCfg.TokenBudget,
		TrimCount:   session.TrimCount,
	}

	if s.counter != nil {
		count := s.counter.Count(ctx, turns)
		stats.TotalTokens = count.TotalTokens
		stats.UsedAPI = count.UsedAPI
	} else {
		stats.TotalTokens = window.EstimateTokens(s.windowCfg.Estimator, turns)
	}

	stats.UtilizationPercent = float64(stats.TotalTokens) / float64(stats.TokenBudget) * 100
	stats.NeedsTrim = stats.TotalTokens > stats.TokenBudget

	return stats, nil
}

func turnIDs(turns []types.Turn) []uuid.UUID {
	ids := make([]uuid.UUID, len(turns))
	for i, t := range turns {
		ids[i] = t.ID
	}
	return ids
}
