package types

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the turn role
type Role string

const (
	// RoleUser represents a user turn
	RoleUser Role = "user"

	// RoleAssistant represents an assistant turn
	RoleAssistant Role = "assistant"

	// RoleSystem represents a system turn
	RoleSystem Role = "system"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Turn represents one message in a conversation.
//
// Turns are immutable once created: a new turn is always appended, never
// mutated in place. A turn leaves a window only through eviction.
type Turn struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`

	// SequenceIndex is the turn's position in the conversation,
	// monotonically increasing and assigned at append time.
	SequenceIndex int `json:"sequence_index"`

	CreatedAt time.Time `json:"created_at"`

	// IsPinned marks a turn as exempt from eviction regardless of age.
	IsPinned bool `json:"is_pinned"`

	// IsSummary marks a turn synthesized to summarize evicted history.
	IsSummary bool `json:"is_summary"`
}

// NewTurn creates a turn with a fresh ID and the given attributes.
// The sequence index is assigned by the owning window or store.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// IsSystem reports whether the turn carries the system role.
func (t Turn) IsSystem() bool {
	return t.Role == RoleSystem
}
