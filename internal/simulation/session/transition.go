package session

import (
	"context"
	"fmt"
	"log"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

// advance closes the current scene exactly once and moves the session
// forward. A client disconnect must not leave the transition half applied,
// so persistence and grading run on a context detached from cancellation.
func (s *Service) advance(ctx context.Context, progress domain.SessionProgress, scenario domain.Scenario, scene domain.Scene, reason domain.CompletionReason, result MessageResult) (MessageResult, error) {
	ctx = context.WithoutCancel(ctx)

	next, hasNext, err := scenario.SceneAfter(scene.ID)
	if err != nil {
		return MessageResult{}, apperrors.Wrap(apperrors.CodeStateInvariant, "current scene is not part of the scenario", err)
	}
	nextSceneID := ""
	if hasNext {
		nextSceneID = next.ID
	}

	if err := progress.CompleteScene(scene.ID, reason, nextSceneID, s.now); err != nil {
		return MessageResult{}, apperrors.Wrap(apperrors.CodeStateInvariant, "complete scene", err)
	}

	result.SceneCompleted = true
	result.CompletionReason = reason
	result.TurnCount = progress.TurnCount

	if hasNext {
		if err := s.sessions.PutSession(ctx, progress); err != nil {
			return MessageResult{}, fmt.Errorf("persist scene transition: %w", err)
		}
		s.appendSceneEntryTurn(ctx, progress.ID, next)
		log.Printf("scene completed session_id=%s scene_id=%s reason=%s next_scene_id=%s", progress.ID, scene.ID, reason, next.ID)
		intro := next.Intro()
		result.NextSceneIntro = &intro
		return result, nil
	}

	// Last scene: grade and close out in one pass.
	if err := progress.Transition(domain.StatusAwaitingGrading, s.now); err != nil {
		return MessageResult{}, apperrors.Wrap(apperrors.CodeStateInvariant, "enter grading", err)
	}
	if err := s.sessions.PutSession(ctx, progress); err != nil {
		return MessageResult{}, fmt.Errorf("persist scene transition: %w", err)
	}
	log.Printf("scene completed session_id=%s scene_id=%s reason=%s next_scene_id=none", progress.ID, scene.ID, reason)

	if _, err := s.buildAndStoreReport(ctx, progress, scenario); err != nil {
		return MessageResult{}, err
	}

	if err := progress.Transition(domain.StatusCompleted, s.now); err != nil {
		return MessageResult{}, apperrors.Wrap(apperrors.CodeStateInvariant, "complete session", err)
	}
	if err := s.sessions.PutSession(ctx, progress); err != nil {
		return MessageResult{}, fmt.Errorf("persist session completion: %w", err)
	}
	log.Printf("session completed session_id=%s scenes=%d", progress.ID, len(progress.CompletedSceneIDs))

	result.SimulationComplete = true
	return result, nil
}
