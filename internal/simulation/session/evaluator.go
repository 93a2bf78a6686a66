package session

import (
	"context"
	"fmt"
	"log"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

// outcome is the completion decision for the current scene.
type outcome int

const (
	outcomeNotComplete outcome = iota
	outcomeGoalMet
	outcomeTimeout
)

func (o outcome) reason() domain.CompletionReason {
	if o == outcomeTimeout {
		return domain.ReasonTimeout
	}
	return domain.ReasonGoalMet
}

// evaluate decides whether the current scene is finished after a
// conversational turn. Timeout overrides goal state. An already-completed
// scene evaluates to not-complete so repeated evaluation is a no-op.
func (s *Service) evaluate(ctx context.Context, progress domain.SessionProgress, scenario domain.Scenario, scene domain.Scene) (outcome, error) {
	if progress.HasCompleted(scene.ID) {
		return outcomeNotComplete, nil
	}
	if progress.TurnCount >= scene.TimeoutTurns {
		return outcomeTimeout, nil
	}

	if s.judge != nil {
		history, err := s.turns.ListSceneTurns(ctx, progress.ID, scene.ID)
		if err != nil {
			return outcomeNotComplete, fmt.Errorf("load scene transcript: %w", err)
		}
		met, err := s.judge.GoalMet(ctx, s.sceneContext(scenario, scene), history)
		if err != nil {
			// The judge is advisory; a failure never blocks the turn.
			log.Printf("goal judge unavailable session_id=%s scene_id=%s error=%v", progress.ID, scene.ID, err)
			return outcomeNotComplete, nil
		}
		if met {
			return outcomeGoalMet, nil
		}
	}
	return outcomeNotComplete, nil
}

// handleSubmit processes the explicit submission sentinel. A scene may only
// be submitted after at least one persona reply has been recorded in it.
func (s *Service) handleSubmit(ctx context.Context, progress domain.SessionProgress, scenario domain.Scenario, scene domain.Scene) (MessageResult, error) {
	history, err := s.turns.ListSceneTurns(ctx, progress.ID, scene.ID)
	if err != nil {
		return MessageResult{}, fmt.Errorf("load scene transcript: %w", err)
	}
	hasReply := false
	for _, turn := range history {
		if turn.Sender == domain.SenderPersona {
			hasReply = true
			break
		}
	}
	if !hasReply {
		return MessageResult{}, apperrors.New(apperrors.CodeEmptySceneSubmit, "the scene has no persona replies yet; converse before submitting")
	}

	result := MessageResult{TurnCount: progress.TurnCount}
	return s.advance(ctx, progress, scenario, scene, domain.ReasonGoalMet, result)
}
