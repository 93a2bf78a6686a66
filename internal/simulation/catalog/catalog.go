// Package catalog exposes scenario definitions to the orchestrator as a
// read-only surface.
//
// Authoring, document ingestion, and persona editing happen upstream and only
// ever reach the orchestrator through this interface; nothing here can write.
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

// ErrScenarioNotFound indicates the requested scenario does not exist.
var ErrScenarioNotFound = errors.New("scenario not found")

// Catalog is the read-only scenario lookup used by the orchestrator.
type Catalog interface {
	// GetScenario loads a full scenario with ordered scenes and casts.
	GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error)
	// ListScenarios returns scenario metadata without scenes.
	ListScenarios(ctx context.Context) ([]domain.Scenario, error)
}

// storeCatalog adapts a ScenarioStore into the read-only Catalog surface.
type storeCatalog struct {
	store storage.ScenarioStore
}

// NewStoreCatalog wraps a scenario store as a read-only catalog.
func NewStoreCatalog(store storage.ScenarioStore) Catalog {
	return &storeCatalog{store: store}
}

func (c *storeCatalog) GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	scenario, err := c.store.GetScenario(ctx, scenarioID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Scenario{}, ErrScenarioNotFound
	}
	return scenario, err
}

func (c *storeCatalog) ListScenarios(ctx context.Context) ([]domain.Scenario, error) {
	return c.store.ListScenarios(ctx)
}

// Memory is an in-memory catalog for tests and seeding previews.
type Memory struct {
	mu        sync.RWMutex
	scenarios map[string]domain.Scenario
}

// NewMemory creates an in-memory catalog from the given scenarios.
func NewMemory(scenarios ...domain.Scenario) *Memory {
	m := &Memory{scenarios: make(map[string]domain.Scenario, len(scenarios))}
	for _, scenario := range scenarios {
		m.scenarios[scenario.ID] = scenario
	}
	return m
}

// GetScenario implements Catalog.
func (m *Memory) GetScenario(_ context.Context, scenarioID string) (domain.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scenario, ok := m.scenarios[scenarioID]
	if !ok {
		return domain.Scenario{}, ErrScenarioNotFound
	}
	return scenario, nil
}

// ListScenarios implements Catalog.
func (m *Memory) ListScenarios(_ context.Context) ([]domain.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scenarios := make([]domain.Scenario, 0, len(m.scenarios))
	for _, scenario := range m.scenarios {
		scenarios = append(scenarios, scenario)
	}
	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].Title < scenarios[j].Title
	})
	return scenarios, nil
}
