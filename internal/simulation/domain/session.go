package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stagecraft-sim/stagecraft/internal/platform/id"
)

// SessionStatus describes the lifecycle state of a session.
type SessionStatus string

const (
	// StatusNotStarted indicates the record exists but play has not begun.
	StatusNotStarted SessionStatus = "NOT_STARTED"
	// StatusInProgress indicates the learner is conversing inside a scene.
	StatusInProgress SessionStatus = "IN_PROGRESS"
	// StatusAwaitingGrading indicates all scenes are complete and the report is being built.
	StatusAwaitingGrading SessionStatus = "AWAITING_GRADING"
	// StatusCompleted indicates the grading report is persisted. Terminal.
	StatusCompleted SessionStatus = "COMPLETED"
	// StatusAbandoned indicates the session was closed without grading. Terminal.
	StatusAbandoned SessionStatus = "ABANDONED"
)

var (
	// ErrEmptyUserID indicates a missing user ID.
	ErrEmptyUserID = errors.New("user id is required")
	// ErrEmptyScenarioID indicates a missing scenario ID.
	ErrEmptyScenarioID = errors.New("scenario id is required")
	// ErrInvalidStatusTransition indicates a backwards or terminal status move.
	ErrInvalidStatusTransition = errors.New("invalid session status transition")
	// ErrSceneAlreadyCompleted indicates a scene appears twice in the completed list.
	ErrSceneAlreadyCompleted = errors.New("scene already completed")
)

// IsValid reports whether the session status is a supported value.
func (s SessionStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusAwaitingGrading, StatusCompleted, StatusAbandoned:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// rank orders the forward-only status progression. Abandoned sits outside the
// progression and is handled separately.
func (s SessionStatus) rank() int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusInProgress:
		return 1
	case StatusAwaitingGrading:
		return 2
	case StatusCompleted:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo reports whether a status move is legal: strictly forward
// along the progression, or to Abandoned from any non-terminal status.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusAbandoned {
		return true
	}
	from, to := s.rank(), next.rank()
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

// SessionProgress is the durable record of one learner's attempt at one
// scenario. It is owned exclusively by the session orchestrator.
type SessionProgress struct {
	ID             string
	UserID         string
	ScenarioID     string
	CurrentSceneID string
	// TurnCount counts conversational turns in the current scene. It resets
	// to zero exactly at scene entry.
	TurnCount int
	// CompletedSceneIDs is duplicate-free and prefix-consistent with the
	// scenario's scene order.
	CompletedSceneIDs []string
	// CompletionReasons records, per completed scene, whether the learner
	// finished the goal or ran out of turns. Parallel to CompletedSceneIDs.
	CompletionReasons []CompletionReason
	Status            SessionStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CompletionReason distinguishes how a scene was closed.
type CompletionReason string

const (
	// ReasonGoalMet records an explicit, accepted learner submission.
	ReasonGoalMet CompletionReason = "GOAL_MET"
	// ReasonTimeout records scene closure by exhausting the turn budget.
	ReasonTimeout CompletionReason = "TIMEOUT"
)

// StartSessionInput describes the metadata needed to start a session.
type StartSessionInput struct {
	UserID     string
	ScenarioID string
}

// NormalizeStartSessionInput trims and validates session start metadata.
func NormalizeStartSessionInput(input StartSessionInput) (StartSessionInput, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return StartSessionInput{}, ErrEmptyUserID
	}
	input.ScenarioID = strings.TrimSpace(input.ScenarioID)
	if input.ScenarioID == "" {
		return StartSessionInput{}, ErrEmptyScenarioID
	}
	return input, nil
}

// StartSession creates a session at the scenario's first scene with a
// generated ID. The session begins IN_PROGRESS with a zero turn count.
func StartSession(input StartSessionInput, scenario Scenario, now func() time.Time, idGenerator func() (string, error)) (SessionProgress, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeStartSessionInput(input)
	if err != nil {
		return SessionProgress{}, err
	}
	if err := scenario.Validate(); err != nil {
		return SessionProgress{}, err
	}

	sessionID, err := idGenerator()
	if err != nil {
		return SessionProgress{}, fmt.Errorf("generate session id: %w", err)
	}

	createdAt := now().UTC()
	return SessionProgress{
		ID:             sessionID,
		UserID:         normalized.UserID,
		ScenarioID:     scenario.ID,
		CurrentSceneID: scenario.Scenes[0].ID,
		TurnCount:      0,
		Status:         StatusInProgress,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}, nil
}

// HasCompleted reports whether a scene is already in the completed list.
func (p SessionProgress) HasCompleted(sceneID string) bool {
	for _, completed := range p.CompletedSceneIDs {
		if completed == sceneID {
			return true
		}
	}
	return false
}

// CompleteScene appends the current scene to the completed list and moves the
// scene pointer. nextSceneID is empty when the completed scene was the last
// one. The turn count resets to zero.
func (p *SessionProgress) CompleteScene(sceneID string, reason CompletionReason, nextSceneID string, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	if p.Status != StatusInProgress {
		return ErrInvalidStatusTransition
	}
	if sceneID != p.CurrentSceneID {
		return ErrSceneNotFound
	}
	if p.HasCompleted(sceneID) {
		return ErrSceneAlreadyCompleted
	}

	p.CompletedSceneIDs = append(p.CompletedSceneIDs, sceneID)
	p.CompletionReasons = append(p.CompletionReasons, reason)
	p.CurrentSceneID = nextSceneID
	p.TurnCount = 0
	p.UpdatedAt = now().UTC()
	return nil
}

// Transition moves the session status forward, enforcing the forward-only
// progression.
func (p *SessionProgress) Transition(next SessionStatus, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, p.Status, next)
	}
	p.Status = next
	p.UpdatedAt = now().UTC()
	return nil
}
