package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "simulation.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func putTestSession(t *testing.T, store *Store, sessionID string) {
	t.Helper()
	now := time.Now().UTC()
	if err := store.PutSession(context.Background(), domain.SessionProgress{
		ID:         sessionID,
		UserID:     "user-1",
		ScenarioID: "scn-1",
		Status:     domain.StatusInProgress,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("put session %s: %v", sessionID, err)
	}
}

func testStoreScenario() domain.Scenario {
	return domain.Scenario{
		ID:          "scn-1",
		Title:       "Vendor escalation",
		Description: "Handle an unhappy strategic vendor",
		StudentRole: "Supply chain manager",
		Scenes: []domain.Scene{
			{
				ID:           "scene-1",
				Order:        1,
				Title:        "Cooling down",
				UserGoal:     "De-escalate the call",
				TimeoutTurns: 5,
				Personas: []domain.Persona{
					{ID: "p-1", Name: "Olu", Role: "Vendor CEO", Traits: map[string]int{"patience": 2}},
					{ID: "p-2", Name: "Renata", Role: "Account rep"},
				},
			},
			{
				ID:           "scene-2",
				Order:        2,
				Title:        "Rebuilding",
				UserGoal:     "Agree next steps",
				TimeoutTurns: 3,
				Personas: []domain.Persona{
					{ID: "p-1", Name: "Olu", Role: "Vendor CEO", Traits: map[string]int{"patience": 2}},
				},
			},
		},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPutGetScenarioRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	want := testStoreScenario()

	if err := store.PutScenario(ctx, want); err != nil {
		t.Fatalf("put scenario: %v", err)
	}

	got, err := store.GetScenario(ctx, want.ID)
	if err != nil {
		t.Fatalf("get scenario: %v", err)
	}
	if got.Title != want.Title || got.StudentRole != want.StudentRole {
		t.Fatalf("scenario metadata mismatch: %+v", got)
	}
	if len(got.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(got.Scenes))
	}
	if got.Scenes[0].ID != "scene-1" || got.Scenes[1].ID != "scene-2" {
		t.Fatalf("scenes out of order: %s, %s", got.Scenes[0].ID, got.Scenes[1].ID)
	}
	if len(got.Scenes[0].Personas) != 2 {
		t.Fatalf("expected 2 personas in scene 1, got %d", len(got.Scenes[0].Personas))
	}
	if got.Scenes[0].Personas[0].Name != "Olu" {
		t.Fatalf("cast order lost, first persona %s", got.Scenes[0].Personas[0].Name)
	}
	if got.Scenes[0].Personas[0].Traits["patience"] != 2 {
		t.Fatalf("traits lost: %+v", got.Scenes[0].Personas[0].Traits)
	}
}

func TestGetScenarioNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetScenario(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	progress := domain.SessionProgress{
		ID:                "sess-1",
		UserID:            "user-1",
		ScenarioID:        "scn-1",
		CurrentSceneID:    "scene-2",
		TurnCount:         2,
		CompletedSceneIDs: []string{"scene-1"},
		CompletionReasons: []domain.CompletionReason{domain.ReasonTimeout},
		Status:            domain.StatusInProgress,
		CreatedAt:         now,
		UpdatedAt:         now.Add(time.Minute),
	}

	if err := store.PutSession(ctx, progress); err != nil {
		t.Fatalf("put session: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.CurrentSceneID != "scene-2" || got.TurnCount != 2 {
		t.Fatalf("session state mismatch: %+v", got)
	}
	if len(got.CompletedSceneIDs) != 1 || got.CompletedSceneIDs[0] != "scene-1" {
		t.Fatalf("completed scenes mismatch: %v", got.CompletedSceneIDs)
	}
	if len(got.CompletionReasons) != 1 || got.CompletionReasons[0] != domain.ReasonTimeout {
		t.Fatalf("completion reasons mismatch: %v", got.CompletionReasons)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created at mismatch: %v", got.CreatedAt)
	}
}

func TestPutSessionUpdatesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	progress := domain.SessionProgress{
		ID:             "sess-1",
		UserID:         "user-1",
		ScenarioID:     "scn-1",
		CurrentSceneID: "scene-1",
		Status:         domain.StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.PutSession(ctx, progress); err != nil {
		t.Fatalf("put session: %v", err)
	}

	progress.TurnCount = 4
	progress.Status = domain.StatusAwaitingGrading
	if err := store.PutSession(ctx, progress); err != nil {
		t.Fatalf("update session: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.TurnCount != 4 || got.Status != domain.StatusAwaitingGrading {
		t.Fatalf("update lost: %+v", got)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetSession(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendTurnAssignsMonotonicIndexes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	putTestSession(t, store, "sess-1")
	putTestSession(t, store, "sess-2")

	for i := 0; i < 3; i++ {
		index, err := store.AppendTurn(ctx, domain.Turn{
			SessionID: "sess-1",
			SceneID:   "scene-1",
			Sender:    domain.SenderUser,
			Content:   "hello",
			Timestamp: now,
		})
		if err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
		if index != i {
			t.Fatalf("expected index %d, got %d", i, index)
		}
	}

	// Indexes are per session, not global.
	index, err := store.AppendTurn(ctx, domain.Turn{
		SessionID: "sess-2",
		SceneID:   "scene-1",
		Sender:    domain.SenderSystem,
		Content:   "briefing",
		Timestamp: now,
	})
	if err != nil {
		t.Fatalf("append turn other session: %v", err)
	}
	if index != 0 {
		t.Fatalf("expected index 0 for new session, got %d", index)
	}
}

func TestAppendTurnRequiresPersonaID(t *testing.T) {
	store := openTestStore(t)
	_, err := store.AppendTurn(context.Background(), domain.Turn{
		SessionID: "sess-1",
		SceneID:   "scene-1",
		Sender:    domain.SenderPersona,
		Content:   "hi",
		Timestamp: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error for persona turn without persona id")
	}
}

func TestListSceneTurnsFiltersByScene(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	putTestSession(t, store, "sess-1")

	turns := []domain.Turn{
		{SessionID: "sess-1", SceneID: "scene-1", Sender: domain.SenderUser, Content: "a", Timestamp: now},
		{SessionID: "sess-1", SceneID: "scene-1", Sender: domain.SenderPersona, PersonaID: "p-1", Content: "b", Timestamp: now},
		{SessionID: "sess-1", SceneID: "scene-2", Sender: domain.SenderUser, Content: "c", Timestamp: now},
	}
	for _, turn := range turns {
		if _, err := store.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	sceneTurns, err := store.ListSceneTurns(ctx, "sess-1", "scene-1")
	if err != nil {
		t.Fatalf("list scene turns: %v", err)
	}
	if len(sceneTurns) != 2 {
		t.Fatalf("expected 2 turns for scene-1, got %d", len(sceneTurns))
	}
	if sceneTurns[0].Content != "a" || sceneTurns[1].Content != "b" {
		t.Fatalf("turns out of order: %+v", sceneTurns)
	}

	all, err := store.ListTurns(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 turns total, got %d", len(all))
	}
}

func TestPutReportIsWriteOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	putTestSession(t, store, "sess-1")

	report := domain.GradingReport{
		SessionID:       "sess-1",
		OverallScore:    72.5,
		OverallFeedback: "Solid negotiation overall.",
		Scenes: []domain.SceneGrade{
			{SceneID: "scene-1", Score: 80, Feedback: "Good opening", TeachingNotes: "Mirror more", Graded: true},
			{SceneID: "scene-2", Score: 0, Graded: false},
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := store.PutReport(ctx, report); err != nil {
		t.Fatalf("put report: %v", err)
	}

	report.OverallScore = 10
	if err := store.PutReport(ctx, report); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict on rewrite, got %v", err)
	}

	got, err := store.GetReport(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if got.OverallScore != 72.5 {
		t.Fatalf("report mutated: %v", got.OverallScore)
	}
	if len(got.Scenes) != 2 {
		t.Fatalf("expected 2 scene grades, got %d", len(got.Scenes))
	}
	if got.Scenes[1].Graded {
		t.Fatal("expected second scene to remain ungraded")
	}
}

func TestGetReportNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetReport(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
