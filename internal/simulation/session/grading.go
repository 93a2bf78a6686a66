package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
	"github.com/stagecraft-sim/stagecraft/internal/errors/i18n"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/ai"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

// Grading returns the session's grading report. After first computation the
// persisted report is returned as-is; it is never recomputed.
func (s *Service) Grading(ctx context.Context, sessionID string) (domain.GradingReport, error) {
	report, err := s.reports.GetReport(ctx, sessionID)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.GradingReport{}, fmt.Errorf("load report: %w", err)
	}

	progress, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return domain.GradingReport{}, err
	}
	switch progress.Status {
	case domain.StatusCompleted, domain.StatusAwaitingGrading:
	default:
		return domain.GradingReport{}, apperrors.Newf(apperrors.CodeStateInvariant, "session is %s; grading is only available after all scenes complete", progress.Status)
	}

	// A missing report on a completed session means the process died between
	// grading and persisting. Rebuild under the session lock.
	release, ok := s.locks.acquire(sessionID)
	if !ok {
		return domain.GradingReport{}, apperrors.New(apperrors.CodeSessionBusy, "grading for this session is in flight")
	}
	defer release()

	report, err = s.reports.GetReport(ctx, sessionID)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.GradingReport{}, fmt.Errorf("load report: %w", err)
	}

	scenario, err := s.catalog.GetScenario(ctx, progress.ScenarioID)
	if err != nil {
		return domain.GradingReport{}, fmt.Errorf("load scenario: %w", err)
	}
	report, err = s.buildAndStoreReport(context.WithoutCancel(ctx), progress, scenario)
	if err != nil {
		return domain.GradingReport{}, err
	}
	if progress.Status == domain.StatusAwaitingGrading {
		if err := progress.Transition(domain.StatusCompleted, s.now); err == nil {
			if err := s.sessions.PutSession(context.WithoutCancel(ctx), progress); err != nil {
				log.Printf("persist session completion failed session_id=%s error=%v", progress.ID, err)
			}
		}
	}
	return report, nil
}

// buildAndStoreReport grades every completed scene and persists the report.
// The report store is write-once; a concurrent writer's report wins and is
// returned instead.
func (s *Service) buildAndStoreReport(ctx context.Context, progress domain.SessionProgress, scenario domain.Scenario) (domain.GradingReport, error) {
	grades := make([]domain.SceneGrade, 0, len(progress.CompletedSceneIDs))
	for _, sceneID := range progress.CompletedSceneIDs {
		scene, err := scenario.SceneByID(sceneID)
		if err != nil {
			return domain.GradingReport{}, apperrors.Wrap(apperrors.CodeStateInvariant, "completed scene is not part of the scenario", err)
		}
		grades = append(grades, s.gradeScene(ctx, progress.ID, scene))
	}

	report := domain.GradingReport{
		SessionID:       progress.ID,
		OverallScore:    domain.OverallScore(grades),
		OverallFeedback: s.overallFeedback(ctx, grades),
		Scenes:          grades,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.reports.PutReport(ctx, report); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return s.reports.GetReport(ctx, progress.ID)
		}
		return domain.GradingReport{}, fmt.Errorf("persist report: %w", err)
	}
	return report, nil
}

// gradeScene grades one completed scene from its user transcript. The
// grading call is retried once; on repeated failure the scene is marked
// ungraded with a neutral placeholder score and the report still proceeds.
func (s *Service) gradeScene(ctx context.Context, sessionID string, scene domain.Scene) domain.SceneGrade {
	turns, err := s.turns.ListSceneTurns(ctx, sessionID, scene.ID)
	if err != nil {
		log.Printf("load scene transcript failed session_id=%s scene_id=%s error=%v", sessionID, scene.ID, err)
		return ungradedScene(scene.ID)
	}
	transcript := make([]string, 0, len(turns))
	for _, turn := range turns {
		if turn.Sender == domain.SenderUser {
			transcript = append(transcript, turn.Content)
		}
	}

	gradeRetry := s.retry
	gradeRetry.MaxAttempts = 2

	var result ai.GradeResult
	err = ai.Retry(ctx, gradeRetry, func(attemptCtx context.Context) error {
		var gradeErr error
		result, gradeErr = s.grader.GradeScene(attemptCtx, transcript, scene.UserGoal)
		return gradeErr
	})
	if err != nil {
		log.Printf("scene grading degraded session_id=%s scene_id=%s error=%v", sessionID, scene.ID,
			apperrors.Wrap(apperrors.CodeGradingUnavailable, "grade scene", err))
		return ungradedScene(scene.ID)
	}
	return domain.SceneGrade{
		SceneID:       scene.ID,
		Score:         result.Score,
		Feedback:      result.Feedback,
		TeachingNotes: result.TeachingNotes,
		Graded:        true,
	}
}

func ungradedScene(sceneID string) domain.SceneGrade {
	return domain.SceneGrade{
		SceneID:  sceneID,
		Score:    0,
		Feedback: i18n.Message("", string(apperrors.CodeGradingUnavailable)),
		Graded:   false,
	}
}

// overallFeedback summarizes per-scene feedback through the summarizer, or
// falls back to the deterministic concatenation. Never empty.
func (s *Service) overallFeedback(ctx context.Context, grades []domain.SceneGrade) string {
	if s.summarizer == nil {
		return domain.FallbackOverallFeedback(grades)
	}
	perScene := make([]string, 0, len(grades))
	for _, grade := range grades {
		if grade.Graded {
			perScene = append(perScene, grade.Feedback)
		}
	}
	if len(perScene) == 0 {
		return domain.FallbackOverallFeedback(grades)
	}

	var summary string
	err := ai.Retry(ctx, s.retry, func(attemptCtx context.Context) error {
		var sumErr error
		summary, sumErr = s.summarizer.Summarize(attemptCtx, perScene)
		return sumErr
	})
	if err != nil {
		log.Printf("overall feedback degraded error=%v",
			apperrors.Wrap(apperrors.CodeFeedbackUnavailable, "summarize feedback", err))
		return domain.FallbackOverallFeedback(grades)
	}
	return summary
}
