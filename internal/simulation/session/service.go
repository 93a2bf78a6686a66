package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
	"github.com/stagecraft-sim/stagecraft/internal/platform/id"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/ai"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/catalog"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

// Stores bundles the persistence surfaces the orchestrator writes to.
type Stores struct {
	Sessions storage.SessionStore
	Turns    storage.TurnStore
	Reports  storage.ReportStore
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Catalog catalog.Catalog
	Stores  Stores
	// Gateway produces persona replies. Required.
	Gateway ai.PersonaGateway
	// Grader assesses completed scenes. Required.
	Grader ai.Grader
	// Summarizer produces overall feedback. Optional; the deterministic
	// concatenation fallback is used when absent or failing.
	Summarizer ai.Summarizer
	// Judge optionally signals goal completion without an explicit learner
	// submission. Optional.
	Judge ai.GoalJudge
	// Retry bounds collaborator calls. Zero value means defaults.
	Retry ai.RetryConfig
	// Now and IDGenerator are injectable for tests.
	Now         func() time.Time
	IDGenerator func() (string, error)
}

// Service is the session orchestrator façade. All mutating operations for a
// given session ID are serialized through a per-session lock.
type Service struct {
	catalog    catalog.Catalog
	sessions   storage.SessionStore
	turns      storage.TurnStore
	reports    storage.ReportStore
	gateway    ai.PersonaGateway
	grader     ai.Grader
	summarizer ai.Summarizer
	judge      ai.GoalJudge
	retry      ai.RetryConfig
	now        func() time.Time
	newID      func() (string, error)
	locks      *sessionLocks
}

// New builds a session orchestrator.
func New(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Stores.Sessions == nil || cfg.Stores.Turns == nil || cfg.Stores.Reports == nil {
		return nil, fmt.Errorf("session, turn, and report stores are required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("persona gateway is required")
	}
	if cfg.Grader == nil {
		return nil, fmt.Errorf("grader is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	if cfg.Retry == (ai.RetryConfig{}) {
		cfg.Retry = ai.DefaultRetryConfig()
	}
	return &Service{
		catalog:    cfg.Catalog,
		sessions:   cfg.Stores.Sessions,
		turns:      cfg.Stores.Turns,
		reports:    cfg.Stores.Reports,
		gateway:    cfg.Gateway,
		grader:     cfg.Grader,
		summarizer: cfg.Summarizer,
		judge:      cfg.Judge,
		retry:      cfg.Retry,
		now:        cfg.Now,
		newID:      cfg.IDGenerator,
		locks:      newSessionLocks(),
	}, nil
}

// StartResult is returned when a session is created.
type StartResult struct {
	SessionID       string
	FirstSceneIntro domain.SceneIntro
}

// StatusResult is the read-only projection of a session's progress.
type StatusResult struct {
	SessionID      string
	CurrentSceneID string
	TurnCount      int
	Status         domain.SessionStatus
}

// MessageResult is returned by conversational and submission calls.
type MessageResult struct {
	ReplyText   string
	PersonaName string
	TurnCount   int
	// SceneCompleted is true when this call closed the current scene.
	SceneCompleted   bool
	CompletionReason domain.CompletionReason
	// NextSceneIntro is set when a completed scene has a successor.
	NextSceneIntro *domain.SceneIntro
	// SimulationComplete is true when the last scene closed and the grading
	// report is available.
	SimulationComplete bool
}

// Start creates a session for a scenario at its first scene.
func (s *Service) Start(ctx context.Context, userID, scenarioID string) (StartResult, error) {
	input, err := domain.NormalizeStartSessionInput(domain.StartSessionInput{
		UserID:     userID,
		ScenarioID: scenarioID,
	})
	if err != nil {
		return StartResult{}, apperrors.Wrap(apperrors.CodeScenarioInvalid, "invalid start input", err)
	}

	scenario, err := s.catalog.GetScenario(ctx, input.ScenarioID)
	if errors.Is(err, catalog.ErrScenarioNotFound) {
		return StartResult{}, apperrors.Newf(apperrors.CodeScenarioNotFound, "scenario %s not found", input.ScenarioID)
	}
	if err != nil {
		return StartResult{}, fmt.Errorf("load scenario: %w", err)
	}

	progress, err := domain.StartSession(input, scenario, s.now, s.newID)
	if err != nil {
		return StartResult{}, apperrors.Wrap(apperrors.CodeScenarioInvalid, "scenario is not playable", err)
	}
	if err := s.sessions.PutSession(ctx, progress); err != nil {
		return StartResult{}, fmt.Errorf("persist session: %w", err)
	}

	firstScene := scenario.Scenes[0]
	s.appendSceneEntryTurn(ctx, progress.ID, firstScene)

	log.Printf("session started session_id=%s scenario_id=%s user_id=%s", progress.ID, scenario.ID, input.UserID)
	return StartResult{
		SessionID:       progress.ID,
		FirstSceneIntro: firstScene.Intro(),
	}, nil
}

// Status reads a session's progress. No side effects.
func (s *Service) Status(ctx context.Context, sessionID string) (StatusResult, error) {
	progress, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		SessionID:      progress.ID,
		CurrentSceneID: progress.CurrentSceneID,
		TurnCount:      progress.TurnCount,
		Status:         progress.Status,
	}, nil
}

// Abandon closes a session without grading. Terminal sessions are rejected,
// and a session whose report is already persisted finishes its completion
// instead of abandoning.
func (s *Service) Abandon(ctx context.Context, sessionID string) (StatusResult, error) {
	release, ok := s.locks.acquire(sessionID)
	if !ok {
		return StatusResult{}, apperrors.New(apperrors.CodeSessionBusy, "another request for this session is in flight")
	}
	defer release()

	progress, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return StatusResult{}, err
	}
	if progress.Status.Terminal() {
		return StatusResult{}, apperrors.Newf(apperrors.CodeSessionTerminal, "session is already %s", progress.Status)
	}
	if progress.Status == domain.StatusAwaitingGrading {
		// A persisted report means the simulation finished and only the final
		// status flip was lost. Finish it rather than strand a report on an
		// abandoned session.
		_, reportErr := s.reports.GetReport(ctx, sessionID)
		if reportErr == nil {
			if err := progress.Transition(domain.StatusCompleted, s.now); err != nil {
				return StatusResult{}, apperrors.Wrap(apperrors.CodeStateInvariant, "finish graded session", err)
			}
			if err := s.sessions.PutSession(context.WithoutCancel(ctx), progress); err != nil {
				return StatusResult{}, fmt.Errorf("persist session: %w", err)
			}
			return StatusResult{}, apperrors.New(apperrors.CodeSessionClosed, "session already has a grading report")
		}
		if !errors.Is(reportErr, storage.ErrNotFound) {
			return StatusResult{}, fmt.Errorf("load report: %w", reportErr)
		}
	}
	if err := progress.Transition(domain.StatusAbandoned, s.now); err != nil {
		return StatusResult{}, apperrors.Wrap(apperrors.CodeStateInvariant, "abandon session", err)
	}
	// Persist regardless of client disconnects.
	if err := s.sessions.PutSession(context.WithoutCancel(ctx), progress); err != nil {
		return StatusResult{}, fmt.Errorf("persist session: %w", err)
	}
	log.Printf("session abandoned session_id=%s", progress.ID)
	return StatusResult{
		SessionID:      progress.ID,
		CurrentSceneID: progress.CurrentSceneID,
		TurnCount:      progress.TurnCount,
		Status:         progress.Status,
	}, nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (domain.SessionProgress, error) {
	progress, err := s.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.SessionProgress{}, apperrors.Newf(apperrors.CodeSessionNotFound, "session %s not found", sessionID)
	}
	if err != nil {
		return domain.SessionProgress{}, fmt.Errorf("load session: %w", err)
	}
	return progress, nil
}

// loadScene resolves the session's scenario and current scene.
func (s *Service) loadScene(ctx context.Context, progress domain.SessionProgress) (domain.Scenario, domain.Scene, error) {
	scenario, err := s.catalog.GetScenario(ctx, progress.ScenarioID)
	if err != nil {
		return domain.Scenario{}, domain.Scene{}, fmt.Errorf("load scenario: %w", err)
	}
	scene, err := scenario.SceneByID(progress.CurrentSceneID)
	if err != nil {
		return domain.Scenario{}, domain.Scene{}, apperrors.Wrap(apperrors.CodeStateInvariant, "current scene is not part of the scenario", err)
	}
	return scenario, scene, nil
}

func (s *Service) sceneContext(scenario domain.Scenario, scene domain.Scene) ai.SceneContext {
	return ai.SceneContext{
		ScenarioTitle:    scenario.Title,
		StudentRole:      scenario.StudentRole,
		SceneTitle:       scene.Title,
		SceneDescription: scene.Description,
		UserGoal:         scene.UserGoal,
	}
}

// appendSceneEntryTurn records the scene briefing as a system turn so the
// replayable log marks every scene boundary. Failures are logged, not fatal.
func (s *Service) appendSceneEntryTurn(ctx context.Context, sessionID string, scene domain.Scene) {
	_, err := s.turns.AppendTurn(context.WithoutCancel(ctx), domain.Turn{
		SessionID: sessionID,
		SceneID:   scene.ID,
		Sender:    domain.SenderSystem,
		Content:   fmt.Sprintf("Scene: %s. %s Goal: %s", scene.Title, scene.Description, scene.UserGoal),
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		log.Printf("append scene entry turn failed session_id=%s scene_id=%s error=%v", sessionID, scene.ID, err)
	}
}
