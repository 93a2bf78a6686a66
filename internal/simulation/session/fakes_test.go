package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/ai"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/catalog"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

// memStores is an in-memory implementation of the orchestrator's stores.
type memStores struct {
	mu       sync.Mutex
	sessions map[string]domain.SessionProgress
	turns    map[string][]domain.Turn
	reports  map[string]domain.GradingReport
	// reportPuts counts PutReport calls to assert grading runs once.
	reportPuts int
}

func newMemStores() *memStores {
	return &memStores{
		sessions: make(map[string]domain.SessionProgress),
		turns:    make(map[string][]domain.Turn),
		reports:  make(map[string]domain.GradingReport),
	}
}

func (m *memStores) PutSession(_ context.Context, progress domain.SessionProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[progress.ID] = progress
	return nil
}

func (m *memStores) GetSession(_ context.Context, sessionID string) (domain.SessionProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	progress, ok := m.sessions[sessionID]
	if !ok {
		return domain.SessionProgress{}, storage.ErrNotFound
	}
	return progress, nil
}

func (m *memStores) AppendTurn(_ context.Context, turn domain.Turn) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turn.TurnIndex = len(m.turns[turn.SessionID])
	m.turns[turn.SessionID] = append(m.turns[turn.SessionID], turn)
	return turn.TurnIndex, nil
}

func (m *memStores) ListTurns(_ context.Context, sessionID string) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Turn(nil), m.turns[sessionID]...), nil
}

func (m *memStores) ListSceneTurns(_ context.Context, sessionID, sceneID string) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var scoped []domain.Turn
	for _, turn := range m.turns[sessionID] {
		if turn.SceneID == sceneID {
			scoped = append(scoped, turn)
		}
	}
	return scoped, nil
}

func (m *memStores) PutReport(_ context.Context, report domain.GradingReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reportPuts++
	if _, ok := m.reports[report.SessionID]; ok {
		return storage.ErrConflict
	}
	m.reports[report.SessionID] = report
	return nil
}

func (m *memStores) GetReport(_ context.Context, sessionID string) (domain.GradingReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[sessionID]
	if !ok {
		return domain.GradingReport{}, storage.ErrNotFound
	}
	return report, nil
}

// fakeGateway replies in a fixed voice and can fail its first N calls.
type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	failNext int
	replies  []replyRecord
}

type replyRecord struct {
	personaID string
	message   string
	history   int
}

func (g *fakeGateway) Reply(_ context.Context, persona domain.Persona, _ ai.SceneContext, history []domain.Turn, message string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failNext > 0 {
		g.failNext--
		return "", errors.New("gateway down")
	}
	g.replies = append(g.replies, replyRecord{personaID: persona.ID, message: message, history: len(history)})
	return fmt.Sprintf("%s says: noted, %q", persona.Name, message), nil
}

// fakeGrader keys results off the scene goal and can fail specific goals.
type fakeGrader struct {
	mu        sync.Mutex
	scores    map[string]float64
	failGoals map[string]bool
	calls     int
}

func (g *fakeGrader) GradeScene(_ context.Context, _ []string, goal string) (ai.GradeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failGoals[goal] {
		return ai.GradeResult{}, errors.New("grader down")
	}
	score, ok := g.scores[goal]
	if !ok {
		score = 75
	}
	return ai.GradeResult{
		Score:         score,
		Feedback:      "feedback for " + goal,
		TeachingNotes: "notes for " + goal,
	}, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (s *fakeSummarizer) Summarize(context.Context, []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

type fakeJudge struct {
	met bool
	err error
}

func (j *fakeJudge) GoalMet(context.Context, ai.SceneContext, []domain.Turn) (bool, error) {
	return j.met, j.err
}

// scenarioFixture builds a scenario with sceneCount scenes, each with the
// given turn budget. Scene 1 has a two-persona cast; later scenes have one.
func scenarioFixture(sceneCount, timeoutTurns int) domain.Scenario {
	dana := domain.Persona{ID: "persona-dana", Name: "Dana", Role: "procurement lead"}
	marcus := domain.Persona{ID: "persona-marcus", Name: "Marcus", Role: "finance director"}

	scenes := make([]domain.Scene, 0, sceneCount)
	for i := 1; i <= sceneCount; i++ {
		cast := []domain.Persona{dana}
		if i == 1 {
			cast = []domain.Persona{dana, marcus}
		}
		scenes = append(scenes, domain.Scene{
			ID:           fmt.Sprintf("scene-%d", i),
			Order:        i,
			Title:        fmt.Sprintf("Scene %d", i),
			Description:  fmt.Sprintf("Description of scene %d.", i),
			UserGoal:     fmt.Sprintf("goal-scene-%d", i),
			TimeoutTurns: timeoutTurns,
			Personas:     cast,
		})
	}
	return domain.Scenario{
		ID:          "scenario-negotiation",
		Title:       "Supplier Negotiation",
		Description: "A multi-scene supplier negotiation.",
		StudentRole: "account manager",
		Scenes:      scenes,
	}
}

func fastTestRetry() ai.RetryConfig {
	return ai.RetryConfig{
		MaxAttempts:       2,
		AttemptTimeout:    time.Second,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1,
		MaxBackoff:        time.Millisecond,
	}
}

type testEnv struct {
	service *Service
	stores  *memStores
	gateway *fakeGateway
	grader  *fakeGrader
}

func newTestEnv(t *testing.T, scenario domain.Scenario, opts ...func(*Config)) *testEnv {
	t.Helper()
	stores := newMemStores()
	gateway := &fakeGateway{}
	grader := &fakeGrader{scores: map[string]float64{}, failGoals: map[string]bool{}}

	cfg := Config{
		Catalog: catalog.NewMemory(scenario),
		Stores: Stores{
			Sessions: stores,
			Turns:    stores,
			Reports:  stores,
		},
		Gateway:    gateway,
		Grader:     grader,
		Summarizer: &fakeSummarizer{summary: "overall summary"},
		Retry:      fastTestRetry(),
		Now:        func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	service, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{service: service, stores: stores, gateway: gateway, grader: grader}
}

func (e *testEnv) start(t *testing.T) StartResult {
	t.Helper()
	started, err := e.service.Start(context.Background(), "user-1", "scenario-negotiation")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return started
}

func (e *testEnv) send(t *testing.T, sessionID, text string) MessageResult {
	t.Helper()
	result, err := e.service.SendMessage(context.Background(), sessionID, "", text)
	if err != nil {
		t.Fatalf("SendMessage(%q) error = %v", text, err)
	}
	return result
}
