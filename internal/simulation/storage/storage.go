package storage

import (
	"context"
	"errors"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a write collides with existing state, such as a
// duplicate turn index or a second grading report for one session.
var ErrConflict = errors.New("record conflict")

// ScenarioStore persists scenario definitions for the read-only catalog.
type ScenarioStore interface {
	// PutScenario writes a scenario with its scenes and persona cast.
	// Used by seeding and authoring pipelines only; the orchestrator never
	// writes scenarios.
	PutScenario(ctx context.Context, scenario domain.Scenario) error
	// GetScenario loads a scenario with scenes ordered by play order.
	GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error)
	// ListScenarios returns all scenarios ordered by title, without scenes.
	ListScenarios(ctx context.Context) ([]domain.Scenario, error)
}

// SessionStore persists session progress records.
type SessionStore interface {
	// PutSession upserts a session progress record.
	PutSession(ctx context.Context, progress domain.SessionProgress) error
	// GetSession loads a session progress record by ID.
	GetSession(ctx context.Context, sessionID string) (domain.SessionProgress, error)
}

// TurnStore appends to and reads the per-session conversation log.
type TurnStore interface {
	// AppendTurn writes a turn with the next free index for its session and
	// returns the assigned index. Turns are immutable once written.
	AppendTurn(ctx context.Context, turn domain.Turn) (int, error)
	// ListTurns returns all turns for a session ordered by turn index.
	ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	// ListSceneTurns returns a session's turns for one scene ordered by index.
	ListSceneTurns(ctx context.Context, sessionID, sceneID string) ([]domain.Turn, error)
}

// ReportStore persists grading reports, one per session.
type ReportStore interface {
	// PutReport writes a report. Rejects a second report for the same
	// session with ErrConflict.
	PutReport(ctx context.Context, report domain.GradingReport) error
	// GetReport loads the report for a session.
	GetReport(ctx context.Context, sessionID string) (domain.GradingReport, error)
}
