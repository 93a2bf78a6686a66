package domain

import "time"

// Sender identifies who produced a turn.
type Sender string

const (
	// SenderUser marks a learner message.
	SenderUser Sender = "user"
	// SenderPersona marks an AI persona reply.
	SenderPersona Sender = "persona"
	// SenderSystem marks orchestrator output such as scene briefings.
	SenderSystem Sender = "system"
)

// IsValid reports whether the sender is a supported value.
func (s Sender) IsValid() bool {
	switch s {
	case SenderUser, SenderPersona, SenderSystem:
		return true
	default:
		return false
	}
}

// Turn is one appended entry in a session's conversation log. Turns are never
// mutated after write; TurnIndex is a per-session monotonic sequence assigned
// by the store.
type Turn struct {
	SessionID string
	SceneID   string
	TurnIndex int
	Sender    Sender
	// PersonaID is set on persona turns only.
	PersonaID string
	Content   string
	Timestamp time.Time
}
