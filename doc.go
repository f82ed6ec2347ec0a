// Package windowpg manages conversation context windows for Go applications
// that talk to LLMs, with PostgreSQL persistence.
//
// WindowPG keeps a conversation under a token budget by evicting the oldest
// turns first while always preserving the system prompt, the most recent
// exchanges, and any pinned turns. Token cost is estimated cheaply
// (~4 characters per token) so trimming never requires an API call.
//
// # Key Features
//
//   - Pure, deterministic trimming (window.Trim) usable without any storage
//   - In-memory Buffer that trims itself on every append
//   - PostgreSQL-backed Sessions with atomic trims, eviction archives, and
//     trim history
//   - Pluggable token estimation: character heuristic, tiktoken encodings,
//     or the Anthropic count-tokens API for statistics
//   - Hooks for observability
//
// # Quick Start
//
// In-memory usage:
//
//	cfg := &window.Config{TokenBudget: 80000, PreserveLastN: 10}
//	buf, err := windowpg.NewBuffer(cfg)
//	buf.Append(types.RoleSystem, "You are a helpful assistant")
//	buf.Append(types.RoleUser, "Hello!")
//	turns := buf.Turns() // always within budget
//
// Persisted sessions:
//
//	pool, _ := pgxpool.New(ctx, connString)
//	sessions, err := windowpg.New(windowpg.Config{
//	    Store:        storage.NewPostgresStore(pool),
//	    SystemPrompt: "You are a helpful assistant",
//	    TokenBudget:  80000,
//	}, windowpg.WithEvictionSummary(true))
//
//	sessionID, _ := sessions.NewSession(ctx, "1", "user-123", nil)
//	sessions.Append(ctx, sessionID, types.RoleUser, "Hello!")
//	turns, _ := sessions.Window(ctx, sessionID)
//
// # Trimming Semantics
//
// A trim never evicts the index-0 system turn, the last PreserveLastN
// non-system turns, or pinned turns. Eviction is oldest first and order is
// preserved. When the mandatory set alone meets or exceeds the budget the
// trim returns it as-is by default; WithStrictBudget makes that case an
// error instead.
//
// Trimming is idempotent: trimming an already-fitting window returns it
// unchanged.
//
// # Persistence
//
// Sessions.TrimSession applies a trim atomically: evicted turns are copied
// to an archive table, deleted from the live window, and a trim event is
// recorded, all in one transaction. Nothing in the library reads the
// archive back; it exists for operators.
package windowpg
