package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/windowpg/internal/testutil"
	"github.com/youssefsiam38/windowpg/types"
)

// newTestSQLDB opens a database/sql connection from DATABASE_URL and truncates
// all tables. The lib/pq driver is registered by this package's imports.
func newTestSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
		return nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	tables := []string{
		"windowpg_turn_archive",
		"windowpg_trim_events",
		"windowpg_turns",
		"windowpg_sessions",
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			db.Close()
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}

	return db
}

func TestIntegration_SQLStore_SessionLifecycle(t *testing.T) {
	testutil.RequireIntegration(t)

	db := newTestSQLDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	store := NewSQLStore(db)

	// Create session
	metadata := map[string]any{"key": "value"}
	sessionID, err := store.CreateSession(ctx, "tenant1", "user1", metadata)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sessionID == uuid.Nil {
		t.Fatal("Expected non-nil session ID")
	}

	// Get session
	session, err := store.GetSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.TenantID != "tenant1" {
		t.Errorf("Expected tenant_id 'tenant1', got '%s'", session.TenantID)
	}
	if session.Identifier != "user1" {
		t.Errorf("Expected identifier 'user1', got '%s'", session.Identifier)
	}
	if session.Metadata["key"] != "value" {
		t.Errorf("Expected metadata key 'value', got '%v'", session.Metadata["key"])
	}
	if session.TrimCount != 0 {
		t.Errorf("Expected trim count 0, got %d", session.TrimCount)
	}

	// Get session by tenant and identifier
	session2, err := store.GetSessionByTenantAndIdentifier(ctx, "tenant1", "user1")
	if err != nil {
		t.Fatalf("GetSessionByTenantAndIdentifier failed: %v", err)
	}
	if session2.ID != sessionID {
		t.Errorf("Expected session ID '%s', got '%s'", sessionID, session2.ID)
	}

	// Get sessions by tenant
	sessions, err := store.GetSessionsByTenant(ctx, "tenant1")
	if err != nil {
		t.Fatalf("GetSessionsByTenant failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("Expected 1 session, got %d", len(sessions))
	}

	// Unknown session
	_, err = store.GetSession(ctx, uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	// Trim count increments
	if err := store.UpdateSessionTrimCount(ctx, sessionID); err != nil {
		t.Fatalf("UpdateSessionTrimCount failed: %v", err)
	}
	session, err = store.GetSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.TrimCount != 1 {
		t.Errorf("Expected trim count 1, got %d", session.TrimCount)
	}
}

func TestIntegration_SQLStore_TurnOperations(t *testing.T) {
	testutil.RequireIntegration(t)

	db := newTestSQLDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	store := NewSQLStore(db)

	sessionID, err := store.CreateSession(ctx, "tenant1", "user1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Append assigns sequence indexes in order
	system := types.NewTurn(types.RoleSystem, "Be helpful")
	system.IsPinned = true
	if err := store.AppendTurn(ctx, sessionID, &system); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if system.SequenceIndex != 0 {
		t.Errorf("Expected sequence 0, got %d", system.SequenceIndex)
	}

	for i := 0; i < 3; i++ {
		turn := types.NewTurn(types.RoleUser, "hello")
		if err := store.AppendTurn(ctx, sessionID, &turn); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
		if turn.SequenceIndex != i+1 {
			t.Errorf("Expected sequence %d, got %d", i+1, turn.SequenceIndex)
		}
	}

	turns, err := store.GetTurns(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetTurns failed: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("Expected 4 turns, got %d", len(turns))
	}
	if !turns[0].IsSystem() || !turns[0].IsPinned {
		t.Errorf("Expected pinned system turn first, got %+v", turns[0])
	}

	// Delete two turns
	if err := store.DeleteTurns(ctx, []uuid.UUID{turns[1].ID, turns[2].ID}); err != nil {
		t.Fatalf("DeleteTurns failed: %v", err)
	}

	turns, err = store.GetTurns(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetTurns failed: %v", err)
	}
	if len(turns) != 2 {
		t.Errorf("Expected 2 turns after delete, got %d", len(turns))
	}
	if turns[1].SequenceIndex != 3 {
		t.Errorf("Surviving turn should keep its sequence, got %d", turns[1].SequenceIndex)
	}
}

func TestIntegration_SQLStore_TrimEvents(t *testing.T) {
	testutil.RequireIntegration(t)

	db := newTestSQLDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	store := NewSQLStore(db)

	sessionID, err := store.CreateSession(ctx, "tenant1", "user1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var evicted []types.Turn
	var keptID uuid.UUID
	for i := 0; i < 3; i++ {
		turn := types.NewTurn(types.RoleUser, "hello")
		if i == 0 {
			turn.Role = types.RoleAssistant
			turn.IsSummary = true
		}
		if err := store.AppendTurn(ctx, sessionID, &turn); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
		if i < 2 {
			evicted = append(evicted, turn)
		} else {
			keptID = turn.ID
		}
	}

	event := &TrimEvent{
		ID:             uuid.New(),
		SessionID:      sessionID,
		OriginalTokens: 30,
		TrimmedTokens:  10,
		TurnsEvicted:   2,
		KeptTurnIDs:    []uuid.UUID{keptID},
		SummaryCreated: false,
		DurationMs:     5,
	}
	if err := store.SaveTrimEvent(ctx, event); err != nil {
		t.Fatalf("SaveTrimEvent failed: %v", err)
	}

	if err := store.ArchiveTurns(ctx, event.ID, evicted); err != nil {
		t.Fatalf("ArchiveTurns failed: %v", err)
	}

	history, err := store.GetTrimHistory(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetTrimHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 trim event, got %d", len(history))
	}
	got := history[0]
	if got.OriginalTokens != 30 || got.TrimmedTokens != 10 || got.TurnsEvicted != 2 {
		t.Errorf("Unexpected trim event: %+v", got)
	}
	if len(got.KeptTurnIDs) != 1 || got.KeptTurnIDs[0] != keptID {
		t.Errorf("Expected kept turn ID %s, got %v", keptID, got.KeptTurnIDs)
	}

	// The archive keeps the full turn, flags included
	var isPinned, isSummary bool
	err = db.QueryRowContext(ctx,
		"SELECT is_pinned, is_summary FROM windowpg_turn_archive WHERE id = $1",
		evicted[0].ID.String(),
	).Scan(&isPinned, &isSummary)
	if err != nil {
		t.Fatalf("Failed to read archived turn: %v", err)
	}
	if isPinned || !isSummary {
		t.Errorf("Expected archived flags (pinned=false, summary=true), got (%v, %v)", isPinned, isSummary)
	}
}

func TestIntegration_SQLStore_WithinTx(t *testing.T) {
	testutil.RequireIntegration(t)

	db := newTestSQLDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	store := NewSQLStore(db)

	sessionID, err := store.CreateSession(ctx, "tenant1", "user1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// A failing transaction rolls everything back
	txErr := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context) error {
		turn := types.NewTurn(types.RoleUser, "should not persist")
		if err := store.AppendTurn(ctx, sessionID, &turn); err != nil {
			return err
		}
		return txErr
	})
	if !errors.Is(err, txErr) {
		t.Fatalf("Expected tx error, got %v", err)
	}

	turns, err := store.GetTurns(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetTurns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("Expected rollback to discard turns, got %d", len(turns))
	}

	// A successful transaction commits
	err = store.WithinTx(ctx, func(ctx context.Context) error {
		turn := types.NewTurn(types.RoleUser, "persists")
		return store.AppendTurn(ctx, sessionID, &turn)
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}

	turns, err = store.GetTurns(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetTurns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("Expected 1 committed turn, got %d", len(turns))
	}
}
