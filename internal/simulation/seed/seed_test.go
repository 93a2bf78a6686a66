package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage/sqlite"
)

func TestScenariosAreValid(t *testing.T) {
	for _, scenario := range Scenarios() {
		if err := scenario.Validate(); err != nil {
			t.Errorf("scenario %s: %v", scenario.ID, err)
		}
	}
}

func TestApplyWritesAllScenarios(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	if err := Apply(context.Background(), store); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	listed, err := store.ListScenarios(context.Background())
	if err != nil {
		t.Fatalf("ListScenarios() error = %v", err)
	}
	if len(listed) != len(Scenarios()) {
		t.Fatalf("scenarios stored = %d, want %d", len(listed), len(Scenarios()))
	}

	// Apply is idempotent.
	if err := Apply(context.Background(), store); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	scenario, err := store.GetScenario(context.Background(), "scenario-supplier-negotiation")
	if err != nil {
		t.Fatalf("GetScenario() error = %v", err)
	}
	if len(scenario.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(scenario.Scenes))
	}
	if len(scenario.Scenes[1].Personas) != 2 {
		t.Fatalf("scene 2 cast = %d, want 2", len(scenario.Scenes[1].Personas))
	}
}
