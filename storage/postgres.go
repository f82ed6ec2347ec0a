package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youssefsiam38/windowpg/types"
)

// txContextKey is the context key for storing pgx.Tx
type txContextKey struct{}

// WithTx returns a new context with the given transaction
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext retrieves the transaction from context, or nil if not present
func TxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// querier is a common interface for pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// getQuerier returns the transaction from context if present, otherwise the pool
func (s *PostgresStore) getQuerier(ctx context.Context) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

// WithinTx runs fn inside a transaction. Store methods called with the
// context passed to fn participate in the transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateSession creates a new conversation session.
func (s *PostgresStore) CreateSession(ctx context.Context, tenantID, identifier string, metadata map[string]any) (uuid.UUID, error) {
	if tenantID == "" {
		return uuid.Nil, fmt.Errorf("%w: tenant_id is required", ErrInvalidSession)
	}
	if identifier == "" {
		return uuid.Nil, fmt.Errorf("%w: identifier is required", ErrInvalidSession)
	}

	sessionID := uuid.New()

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO windowpg_sessions (id, tenant_id, identifier, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`

	if _, err := s.getQuerier(ctx).Exec(ctx, query, sessionID.String(), tenantID, identifier, metadataJSON); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionID, nil
}

// GetSession retrieves a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	query := `
		SELECT id, tenant_id, identifier, metadata, trim_count, created_at, updated_at
		FROM windowpg_sessions
		WHERE id = $1
	`
	return s.scanSession(s.getQuerier(ctx).QueryRow(ctx, query, sessionID.String()))
}

// GetSessionByTenantAndIdentifier retrieves a session by its tenant and identifier.
func (s *PostgresStore) GetSessionByTenantAndIdentifier(ctx context.Context, tenantID, identifier string) (*Session, error) {
	query := `
		SELECT id, tenant_id, identifier, metadata, trim_count, created_at, updated_at
		FROM windowpg_sessions
		WHERE tenant_id = $1 AND identifier = $2
	`
	return s.scanSession(s.getQuerier(ctx).QueryRow(ctx, query, tenantID, identifier))
}

func (s *PostgresStore) scanSession(row pgx.Row) (*Session, error) {
	var session Session
	var id string
	var metadataJSON []byte

	err := row.Scan(
		&id,
		&session.TenantID,
		&session.Identifier,
		&metadataJSON,
		&session.TrimCount,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session id: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &session, nil
}

// GetSessionsByTenant retrieves all sessions for a tenant, most recently
// updated first.
func (s *PostgresStore) GetSessionsByTenant(ctx context.Context, tenantID string) ([]*Session, error) {
	query := `
		SELECT id, tenant_id, identifier, metadata, trim_count, created_at, updated_at
		FROM windowpg_sessions
		WHERE tenant_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.getQuerier(ctx).Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var session Session
		var id string
		var metadataJSON []byte

		if err := rows.Scan(
			&id,
			&session.TenantID,
			&session.Identifier,
			&metadataJSON,
			&session.TrimCount,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		session.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session id: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}

// UpdateSessionTrimCount increments the session's trim counter.
func (s *PostgresStore) UpdateSessionTrimCount(ctx context.Context, sessionID uuid.UUID) error {
	query := `
		UPDATE windowpg_sessions
		SET trim_count = trim_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := s.getQuerier(ctx).Exec(ctx, query, sessionID.String())
	if err != nil {
		return fmt.Errorf("failed to update trim count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendTurn persists a turn, assigning the session's next sequence index.
// The assigned index and session ID are written back to the passed turn.
func (s *PostgresStore) AppendTurn(ctx context.Context, sessionID uuid.UUID, turn *types.Turn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	turn.SessionID = sessionID

	query := `
		INSERT INTO windowpg_turns (id, session_id, role, content, sequence_index, is_pinned, is_summary, created_at)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(sequence_index) + 1, 0) FROM windowpg_turns WHERE session_id = $2),
			$5, $6, NOW())
		RETURNING sequence_index, created_at
	`

	err := s.getQuerier(ctx).QueryRow(ctx, query,
		turn.ID.String(),
		sessionID.String(),
		string(turn.Role),
		turn.Content,
		turn.IsPinned,
		turn.IsSummary,
	).Scan(&turn.SequenceIndex, &turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	touch := `UPDATE windowpg_sessions SET updated_at = NOW() WHERE id = $1`
	if _, err := s.getQuerier(ctx).Exec(ctx, touch, sessionID.String()); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

// GetTurns retrieves all turns for a session in sequence order.
func (s *PostgresStore) GetTurns(ctx context.Context, sessionID uuid.UUID) ([]types.Turn, error) {
	query := `
		SELECT id, session_id, role, content, sequence_index, is_pinned, is_summary, created_at
		FROM windowpg_turns
		WHERE session_id = $1
		ORDER BY sequence_index ASC
	`

	rows, err := s.getQuerier(ctx).Query(ctx, query, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		var turn types.Turn
		var id, sid, role string

		if err := rows.Scan(
			&id,
			&sid,
			&role,
			&turn.Content,
			&turn.SequenceIndex,
			&turn.IsPinned,
			&turn.IsSummary,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		if turn.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse turn id: %w", err)
		}
		if turn.SessionID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("failed to parse turn session id: %w", err)
		}
		turn.Role = types.Role(role)

		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

// DeleteTurns removes the given turns.
func (s *PostgresStore) DeleteTurns(ctx context.Context, turnIDs []uuid.UUID) error {
	if len(turnIDs) == 0 {
		return nil
	}

	query := `DELETE FROM windowpg_turns WHERE id = ANY($1::uuid[])`
	if _, err := s.getQuerier(ctx).Exec(ctx, query, uuidStrings(turnIDs)); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	return nil
}

// SaveTrimEvent records a trim operation.
func (s *PostgresStore) SaveTrimEvent(ctx context.Context, event *TrimEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	query := `
		INSERT INTO windowpg_trim_events
			(id, session_id, original_tokens, trimmed_tokens, turns_evicted, kept_turn_ids, summary_created, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	err := s.getQuerier(ctx).QueryRow(ctx, query,
		event.ID.String(),
		event.SessionID.String(),
		event.OriginalTokens,
		event.TrimmedTokens,
		event.TurnsEvicted,
		uuidStrings(event.KeptTurnIDs),
		event.SummaryCreated,
		event.DurationMs,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trim event: %w", err)
	}
	return nil
}

// GetTrimHistory retrieves all trim events for a session, oldest first.
func (s *PostgresStore) GetTrimHistory(ctx context.Context, sessionID uuid.UUID) ([]*TrimEvent, error) {
	query := `
		SELECT id, session_id, original_tokens, trimmed_tokens, turns_evicted, kept_turn_ids, summary_created, duration_ms, created_at
		FROM windowpg_trim_events
		WHERE session_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.getQuerier(ctx).Query(ctx, query, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get trim history: %w", err)
	}
	defer rows.Close()

	var events []*TrimEvent
	for rows.Next() {
		var event TrimEvent
		var id, sid string
		var keptIDs []string

		if err := rows.Scan(
			&id,
			&sid,
			&event.OriginalTokens,
			&event.TrimmedTokens,
			&event.TurnsEvicted,
			&keptIDs,
			&event.SummaryCreated,
			&event.DurationMs,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trim event: %w", err)
		}

		if event.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse trim event id: %w", err)
		}
		if event.SessionID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("failed to parse trim event session id: %w", err)
		}
		if event.KeptTurnIDs, err = parseUUIDs(keptIDs); err != nil {
			return nil, fmt.Errorf("failed to parse kept turn ids: %w", err)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}

// ArchiveTurns stores evicted turns for reversibility before deletion.
func (s *PostgresStore) ArchiveTurns(ctx context.Context, trimEventID uuid.UUID, turns []types.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	query := `
		INSERT INTO windowpg_turn_archive
			(id, trim_event_id, session_id, role, content, sequence_index, is_pinned, is_summary, created_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`

	q := s.getQuerier(ctx)
	for _, turn := range turns {
		if _, err := q.Exec(ctx, query,
			turn.ID.String(),
			trimEventID.String(),
			turn.SessionID.String(),
			string(turn.Role),
			turn.Content,
			turn.SequenceIndex,
			turn.IsPinned,
			turn.IsSummary,
			turn.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to archive turn %s: %w", turn.ID, err)
		}
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
