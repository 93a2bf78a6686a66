package session

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
	"github.com/stagecraft-sim/stagecraft/internal/errors/i18n"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

func TestTimeoutForcesSceneCompletion(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(2, 5))
	started := env.start(t)

	for i := 1; i <= 4; i++ {
		result := env.send(t, started.SessionID, fmt.Sprintf("message %d", i))
		if result.SceneCompleted {
			t.Fatalf("scene completed on turn %d, before the budget", i)
		}
		if result.TurnCount != i {
			t.Fatalf("TurnCount = %d on turn %d", result.TurnCount, i)
		}
	}

	fifth := env.send(t, started.SessionID, "message 5")
	if !fifth.SceneCompleted {
		t.Fatal("5th turn did not complete the scene")
	}
	if fifth.CompletionReason != domain.ReasonTimeout {
		t.Fatalf("CompletionReason = %s, want TIMEOUT", fifth.CompletionReason)
	}
	if fifth.NextSceneIntro == nil || fifth.NextSceneIntro.SceneID != "scene-2" {
		t.Fatalf("NextSceneIntro = %+v", fifth.NextSceneIntro)
	}
	if fifth.TurnCount != 0 {
		t.Fatalf("TurnCount after transition = %d, want 0", fifth.TurnCount)
	}

	status, _ := env.service.Status(context.Background(), started.SessionID)
	if status.CurrentSceneID != "scene-2" || status.TurnCount != 0 {
		t.Fatalf("status after transition = %+v", status)
	}
}

func TestTwoSceneWalkthrough(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(2, 3))
	started := env.start(t)

	// Scene 1: three valid messages, no invalid mentions.
	var result MessageResult
	for i := 1; i <= 3; i++ {
		result = env.send(t, started.SessionID, fmt.Sprintf("scene one message %d", i))
	}
	if !result.SceneCompleted || result.NextSceneIntro == nil || result.NextSceneIntro.SceneID != "scene-2" {
		t.Fatalf("3rd scene-1 response = %+v", result)
	}
	if result.SimulationComplete {
		t.Fatal("simulation complete after scene 1")
	}

	// Scene 2: three more messages close the session.
	for i := 1; i <= 3; i++ {
		result = env.send(t, started.SessionID, fmt.Sprintf("scene two message %d", i))
	}
	if !result.SceneCompleted || !result.SimulationComplete {
		t.Fatalf("final response = %+v", result)
	}
	if result.NextSceneIntro != nil {
		t.Fatalf("NextSceneIntro on final scene = %+v", result.NextSceneIntro)
	}

	status, _ := env.service.Status(context.Background(), started.SessionID)
	if status.Status != domain.StatusCompleted {
		t.Fatalf("Status = %s, want COMPLETED", status.Status)
	}

	report, err := env.service.Grading(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("Grading() error = %v", err)
	}
	if len(report.Scenes) != 2 {
		t.Fatalf("report scenes = %d, want 2", len(report.Scenes))
	}
	if report.Scenes[0].SceneID != "scene-1" || report.Scenes[1].SceneID != "scene-2" {
		t.Fatalf("report scene order = %+v", report.Scenes)
	}

	// Conversation is closed after completion.
	if _, err := env.service.SendMessage(context.Background(), started.SessionID, "", "anyone?"); !apperrors.HasCode(err, apperrors.CodeSessionClosed) {
		t.Fatalf("SendMessage() after completion error = %v, want SESSION_CLOSED", err)
	}
}

func TestCompletedSceneIDsPrefixOfSceneOrder(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(3, 2))
	started := env.start(t)

	for i := 0; i < 4; i++ {
		env.send(t, started.SessionID, "message")
	}

	progress, err := env.stores.GetSession(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	want := []string{"scene-1", "scene-2"}
	if !reflect.DeepEqual(progress.CompletedSceneIDs, want) {
		t.Fatalf("CompletedSceneIDs = %v, want %v", progress.CompletedSceneIDs, want)
	}
	if progress.CurrentSceneID != "scene-3" {
		t.Fatalf("CurrentSceneID = %s, want scene-3", progress.CurrentSceneID)
	}
}

func TestSubmitRequiresPersonaReply(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(2, 5))
	started := env.start(t)

	_, err := env.service.SubmitForGrading(context.Background(), started.SessionID)
	if !apperrors.HasCode(err, apperrors.CodeEmptySceneSubmit) {
		t.Fatalf("SubmitForGrading() on empty scene error = %v, want EMPTY_SCENE_SUBMIT", err)
	}

	env.send(t, started.SessionID, "Opening line.")

	result, err := env.service.SubmitForGrading(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("SubmitForGrading() error = %v", err)
	}
	if !result.SceneCompleted || result.CompletionReason != domain.ReasonGoalMet {
		t.Fatalf("submit result = %+v", result)
	}
	if result.NextSceneIntro == nil || result.NextSceneIntro.SceneID != "scene-2" {
		t.Fatalf("NextSceneIntro = %+v", result.NextSceneIntro)
	}
}

func TestSubmitSentinelThroughSendMessage(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(1, 5))
	started := env.start(t)
	env.send(t, started.SessionID, "Opening line.")

	result, err := env.service.SendMessage(context.Background(), started.SessionID, "", SubmitSentinel)
	if err != nil {
		t.Fatalf("SendMessage(sentinel) error = %v", err)
	}
	if !result.SceneCompleted || !result.SimulationComplete {
		t.Fatalf("sentinel result = %+v", result)
	}
}

func TestGoalJudgeCompletesScene(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(2, 10), func(cfg *Config) {
		cfg.Judge = &fakeJudge{met: true}
	})
	started := env.start(t)

	result := env.send(t, started.SessionID, "I accept your terms.")
	if !result.SceneCompleted || result.CompletionReason != domain.ReasonGoalMet {
		t.Fatalf("result = %+v", result)
	}
}

func TestGoalJudgeFailureDoesNotBlockTurn(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(1, 10), func(cfg *Config) {
		cfg.Judge = &fakeJudge{err: fmt.Errorf("judge down")}
	})
	started := env.start(t)

	result := env.send(t, started.SessionID, "Still talking.")
	if result.SceneCompleted {
		t.Fatalf("scene completed on judge failure: %+v", result)
	}
}

func TestGradingIdempotent(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(2, 2))
	started := env.start(t)
	for i := 0; i < 4; i++ {
		env.send(t, started.SessionID, "message")
	}

	first, err := env.service.Grading(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("Grading() error = %v", err)
	}
	graderCalls := env.grader.calls

	second, err := env.service.Grading(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("second Grading() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reports differ:\nfirst  = %+v\nsecond = %+v", first, second)
	}
	if env.grader.calls != graderCalls {
		t.Fatalf("grader calls grew from %d to %d on cached read", graderCalls, env.grader.calls)
	}
	if env.stores.reportPuts != 1 {
		t.Fatalf("report puts = %d, want 1", env.stores.reportPuts)
	}
}

func TestGradingBeforeCompletionRejected(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(2, 5))
	started := env.start(t)

	_, err := env.service.Grading(context.Background(), started.SessionID)
	if !apperrors.HasCode(err, apperrors.CodeStateInvariant) {
		t.Fatalf("Grading() mid-session error = %v, want STATE_INVARIANT_VIOLATION", err)
	}
}

func TestGradingPartialFailure(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(3, 2))
	env.grader.scores["goal-scene-1"] = 80
	env.grader.scores["goal-scene-3"] = 60
	env.grader.failGoals["goal-scene-2"] = true
	started := env.start(t)

	for i := 0; i < 6; i++ {
		env.send(t, started.SessionID, "message")
	}

	report, err := env.service.Grading(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("Grading() error = %v", err)
	}
	if len(report.Scenes) != 3 {
		t.Fatalf("report scenes = %d, want 3", len(report.Scenes))
	}
	if report.Scenes[1].Graded {
		t.Fatal("scene-2 marked graded despite failures")
	}
	if want := i18n.Message("", string(apperrors.CodeGradingUnavailable)); report.Scenes[1].Feedback != want {
		t.Fatalf("ungraded feedback = %q, want catalog notice %q", report.Scenes[1].Feedback, want)
	}
	if !report.Scenes[0].Graded || !report.Scenes[2].Graded {
		t.Fatalf("graded flags = %+v", report.Scenes)
	}
	if report.OverallScore != 70 {
		t.Fatalf("OverallScore = %v, want 70 (mean of 80 and 60)", report.OverallScore)
	}
	if report.OverallFeedback == "" {
		t.Fatal("OverallFeedback is empty")
	}
}

func TestGradingSummarizerFallback(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(1, 1), func(cfg *Config) {
		cfg.Summarizer = &fakeSummarizer{err: fmt.Errorf("summarizer down")}
	})
	started := env.start(t)
	env.send(t, started.SessionID, "only message")

	report, err := env.service.Grading(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("Grading() error = %v", err)
	}
	if report.OverallFeedback == "" {
		t.Fatal("OverallFeedback is empty despite fallback")
	}
}

func TestTurnLogMarksSceneBoundaries(t *testing.T) {
	env := newTestEnv(t, scenarioFixture(2, 1))
	started := env.start(t)
	env.send(t, started.SessionID, "scene one")
	env.send(t, started.SessionID, "scene two")

	turns, _ := env.stores.ListTurns(context.Background(), started.SessionID)
	var systemTurns []domain.Turn
	for _, turn := range turns {
		if turn.Sender == domain.SenderSystem {
			systemTurns = append(systemTurns, turn)
		}
	}
	if len(systemTurns) != 2 {
		t.Fatalf("system turns = %d, want 2 (one per scene entry)", len(systemTurns))
	}
	if systemTurns[0].SceneID != "scene-1" || systemTurns[1].SceneID != "scene-2" {
		t.Fatalf("system turn scenes = %+v", systemTurns)
	}
}
