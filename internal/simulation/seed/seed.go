// Package seed loads demo scenarios into a scenario store for local
// development.
package seed

import (
	"context"
	"fmt"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

// Scenarios returns the built-in demo scenarios.
func Scenarios() []domain.Scenario {
	return []domain.Scenario{supplierNegotiation(), difficultHire()}
}

// Apply validates and writes every demo scenario to the store. Existing
// scenarios with the same IDs are overwritten.
func Apply(ctx context.Context, store storage.ScenarioStore) error {
	for _, scenario := range Scenarios() {
		if err := scenario.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", scenario.ID, err)
		}
		if err := store.PutScenario(ctx, scenario); err != nil {
			return fmt.Errorf("seed scenario %s: %w", scenario.ID, err)
		}
	}
	return nil
}

func supplierNegotiation() domain.Scenario {
	dana := domain.Persona{
		ID:           "persona-dana-okafor",
		Name:         "Dana",
		Role:         "Procurement Lead at Brightline Retail",
		Background:   "Fifteen years negotiating supplier contracts. Values reliability over the lowest price, but is under pressure to cut costs this quarter.",
		PrimaryGoals: "Extract a price concession; keep the supplier relationship workable",
		Traits:       map[string]int{"patience": 6, "assertiveness": 8, "openness": 4},
	}
	marcus := domain.Persona{
		ID:           "persona-marcus-webb",
		Name:         "Marcus",
		Role:         "Finance Director at Brightline Retail",
		Background:   "Joined from an investment bank two years ago. Sees every contract as a spreadsheet and is skeptical of relationship arguments.",
		PrimaryGoals: "Hold the budget line; avoid multi-year commitments",
		Traits:       map[string]int{"patience": 3, "assertiveness": 9, "openness": 3},
	}

	return domain.Scenario{
		ID:          "scenario-supplier-negotiation",
		Title:       "Supplier Price Negotiation",
		Description: "Your company has announced an 8% price increase. Brightline Retail, your largest account, wants to talk.",
		StudentRole: "Senior Account Manager",
		Scenes: []domain.Scene{
			{
				ID:           "scene-opening-call",
				Order:        1,
				Title:        "The Opening Call",
				Description:  "Dana has requested a call about the price increase notice. She sounds unhappy.",
				UserGoal:     "Keep the conversation constructive and secure an in-person meeting that includes the finance team.",
				TimeoutTurns: 8,
				Personas:     []domain.Persona{dana},
			},
			{
				ID:           "scene-joint-meeting",
				Order:        2,
				Title:        "The Joint Meeting",
				Description:  "Dana brought Marcus. He opens by saying the increase is unacceptable and that competitors are circling.",
				UserGoal:     "Defend the value of the partnership and land an agreement in principle that preserves most of the increase.",
				TimeoutTurns: 10,
				Personas:     []domain.Persona{dana, marcus},
			},
		},
	}
}

func difficultHire() domain.Scenario {
	priya := domain.Persona{
		ID:           "persona-priya-shah",
		Name:         "Priya",
		Role:         "Staff Engineer and reluctant candidate",
		Background:   "A strong internal candidate for the team lead role who has twice said she does not want to manage people.",
		PrimaryGoals: "Understand what the role really involves; protect time for technical work",
		Traits:       map[string]int{"patience": 7, "assertiveness": 5, "openness": 6},
	}

	return domain.Scenario{
		ID:          "scenario-difficult-hire",
		Title:       "The Reluctant Team Lead",
		Description: "Your best engineer is the obvious choice to lead the new platform team, but she has turned the role down before.",
		StudentRole: "Engineering Manager",
		Scenes: []domain.Scene{
			{
				ID:           "scene-coffee-chat",
				Order:        1,
				Title:        "The Coffee Chat",
				Description:  "An informal conversation you set up to understand Priya's reservations before making any offer.",
				UserGoal:     "Get Priya to name her real concerns about the role without pitching it yet.",
				TimeoutTurns: 6,
				Personas:     []domain.Persona{priya},
			},
		},
	}
}
