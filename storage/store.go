// Package storage persists conversation sessions, turns, and trim events
// in PostgreSQL. PostgresStore uses pgx directly; SQLStore works with any
// database/sql Postgres driver.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/windowpg/types"
)

// Common storage errors.
var (
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSession is returned for malformed session parameters.
	ErrInvalidSession = errors.New("invalid session parameters")
)

// Store defines the storage interface for conversation windows.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, tenantID, identifier string, metadata map[string]any) (uuid.UUID, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	GetSessionByTenantAndIdentifier(ctx context.Context, tenantID, identifier string) (*Session, error)
	GetSessionsByTenant(ctx context.Context, tenantID string) ([]*Session, error)
	UpdateSessionTrimCount(ctx context.Context, sessionID uuid.UUID) error

	// Turn operations. AppendTurn assigns the next sequence index for the
	// session and fills it in on the passed turn.
	AppendTurn(ctx context.Context, sessionID uuid.UUID, turn *types.Turn) error
	GetTurns(ctx context.Context, sessionID uuid.UUID) ([]types.Turn, error)
	DeleteTurns(ctx context.Context, turnIDs []uuid.UUID) error

	// Trim bookkeeping
	SaveTrimEvent(ctx context.Context, event *TrimEvent) error
	GetTrimHistory(ctx context.Context, sessionID uuid.UUID) ([]*TrimEvent, error)
	ArchiveTurns(ctx context.Context, trimEventID uuid.UUID, turns []types.Turn) error
}

// TxStore is implemented by stores that can run a function atomically.
// The context passed to fn carries the transaction; Store methods called
// with it participate in the transaction.
type TxStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Session represents a stored conversation session.
type Session struct {
	ID         uuid.UUID      `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Identifier string         `json:"identifier"`
	Metadata   map[string]any `json:"metadata"`
	TrimCount  int            `json:"trim_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Interface conformance checks.
var (
	_ Store   = (*PostgresStore)(nil)
	_ TxStore = (*PostgresStore)(nil)
	_ Store   = (*SQLStore)(nil)
	_ TxStore = (*SQLStore)(nil)
)

// TrimEvent records one applied trim operation.
type TrimEvent struct {
	ID             uuid.UUID   `json:"id"`
	SessionID      uuid.UUID   `json:"session_id"`
	OriginalTokens int         `json:"original_tokens"`
	TrimmedTokens  int         `json:"trimmed_tokens"`
	TurnsEvicted   int         `json:"turns_evicted"`
	KeptTurnIDs    []uuid.UUID `json:"kept_turn_ids"`
	SummaryCreated bool        `json:"summary_created"`
	DurationMs     int64       `json:"duration_ms"`
	CreatedAt      time.Time   `json:"created_at"`
}
