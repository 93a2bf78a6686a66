// Package ai defines the external AI collaborator interfaces the orchestrator
// consumes: persona replies, per-scene grading, and overall-feedback
// summarization. Prompts and models are opaque to the orchestrator.
package ai

import (
	"context"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

// SceneContext carries the immutable scene framing passed to collaborators.
type SceneContext struct {
	ScenarioTitle    string
	StudentRole      string
	SceneTitle       string
	SceneDescription string
	UserGoal         string
}

// PersonaGateway produces an in-character reply for a persona.
type PersonaGateway interface {
	// Reply returns the persona's reply to the learner's message given the
	// scene framing and the prior transcript of the current scene.
	Reply(ctx context.Context, persona domain.Persona, scene SceneContext, history []domain.Turn, message string) (string, error)
}

// GradeResult is a grading collaborator's assessment of one scene.
type GradeResult struct {
	// Score is on a 0-100 scale.
	Score         float64
	Feedback      string
	TeachingNotes string
}

// Grader assesses a completed scene from its user transcript and goal.
type Grader interface {
	GradeScene(ctx context.Context, transcript []string, goal string) (GradeResult, error)
}

// Summarizer condenses per-scene feedback into overall session feedback.
type Summarizer interface {
	Summarize(ctx context.Context, perSceneFeedback []string) (string, error)
}

// GoalJudge optionally signals that a scene's goal has been met without an
// explicit learner submission. Implementations may always return false.
type GoalJudge interface {
	GoalMet(ctx context.Context, scene SceneContext, history []domain.Turn) (bool, error)
}
