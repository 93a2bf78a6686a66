package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

func encodeTraits(traits map[string]int) (string, error) {
	if len(traits) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(traits)
	if err != nil {
		return "", fmt.Errorf("marshal traits: %w", err)
	}
	return string(encoded), nil
}

func decodeTraits(value string) (map[string]int, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "{}" {
		return nil, nil
	}
	var traits map[string]int
	if err := json.Unmarshal([]byte(value), &traits); err != nil {
		return nil, fmt.Errorf("unmarshal traits: %w", err)
	}
	return traits, nil
}

// PutScenario writes a scenario with its scenes and persona cast. Existing
// rows for the scenario are replaced wholesale; the catalog is authoring
// output, not orchestrator state.
func (s *Store) PutScenario(ctx context.Context, scenario domain.Scenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(scenario.ID) == "" {
		return fmt.Errorf("scenario id is required")
	}
	if err := scenario.Validate(); err != nil {
		return fmt.Errorf("validate scenario: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put scenario: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO scenarios (id, title, description, student_role)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	student_role = excluded.student_role
`,
		scenario.ID,
		scenario.Title,
		scenario.Description,
		scenario.StudentRole,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("put scenario: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM scenes WHERE scenario_id = ?", scenario.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear scenes: %w", err)
	}

	for _, scene := range scenario.Scenes {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO scenes (id, scenario_id, scene_order, title, description, user_goal, timeout_turns)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
			scene.ID,
			scenario.ID,
			scene.Order,
			scene.Title,
			scene.Description,
			scene.UserGoal,
			scene.TimeoutTurns,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("put scene %s: %w", scene.ID, err)
		}

		for castOrder, persona := range scene.Personas {
			traits, err := encodeTraits(persona.Traits)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO personas (id, name, role, background, primary_goals, traits)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	role = excluded.role,
	background = excluded.background,
	primary_goals = excluded.primary_goals,
	traits = excluded.traits
`,
				persona.ID,
				persona.Name,
				persona.Role,
				persona.Background,
				persona.PrimaryGoals,
				traits,
			); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("put persona %s: %w", persona.ID, err)
			}

			if _, err := tx.ExecContext(ctx, `
INSERT INTO scene_personas (scene_id, persona_id, cast_order)
VALUES (?, ?, ?)
`,
				scene.ID,
				persona.ID,
				castOrder,
			); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("put scene cast %s: %w", scene.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put scenario: %w", err)
	}
	return nil
}

// GetScenario loads a scenario with scenes ordered by play order and persona
// casts in authoring order.
func (s *Store) GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return domain.Scenario{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Scenario{}, fmt.Errorf("storage is not configured")
	}
	scenarioID = strings.TrimSpace(scenarioID)
	if scenarioID == "" {
		return domain.Scenario{}, fmt.Errorf("scenario id is required")
	}

	var scenario domain.Scenario
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, title, description, student_role
FROM scenarios
WHERE id = ?
`, scenarioID)
	err := row.Scan(&scenario.ID, &scenario.Title, &scenario.Description, &scenario.StudentRole)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Scenario{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("get scenario: %w", err)
	}

	scenes, err := s.listScenes(ctx, scenarioID)
	if err != nil {
		return domain.Scenario{}, err
	}
	scenario.Scenes = scenes

	return scenario, nil
}

// ListScenarios returns all scenarios ordered by title, without scenes.
func (s *Store) ListScenarios(ctx context.Context) ([]domain.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, title, description, student_role
FROM scenarios
ORDER BY title ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var scenarios []domain.Scenario
	for rows.Next() {
		var scenario domain.Scenario
		if err := rows.Scan(&scenario.ID, &scenario.Title, &scenario.Description, &scenario.StudentRole); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		scenarios = append(scenarios, scenario)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}
	return scenarios, nil
}

func (s *Store) listScenes(ctx context.Context, scenarioID string) ([]domain.Scene, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, scene_order, title, description, user_goal, timeout_turns
FROM scenes
WHERE scenario_id = ?
ORDER BY scene_order ASC
`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var scenes []domain.Scene
	for rows.Next() {
		var scene domain.Scene
		if err := rows.Scan(
			&scene.ID,
			&scene.Order,
			&scene.Title,
			&scene.Description,
			&scene.UserGoal,
			&scene.TimeoutTurns,
		); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scenes = append(scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}

	for i := range scenes {
		personas, err := s.listSceneCast(ctx, scenes[i].ID)
		if err != nil {
			return nil, err
		}
		scenes[i].Personas = personas
	}
	return scenes, nil
}

func (s *Store) listSceneCast(ctx context.Context, sceneID string) ([]domain.Persona, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT p.id, p.name, p.role, p.background, p.primary_goals, p.traits
FROM scene_personas sp
JOIN personas p ON p.id = sp.persona_id
WHERE sp.scene_id = ?
ORDER BY sp.cast_order ASC
`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list scene cast: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var personas []domain.Persona
	for rows.Next() {
		var (
			persona   domain.Persona
			traitsRaw string
		)
		if err := rows.Scan(
			&persona.ID,
			&persona.Name,
			&persona.Role,
			&persona.Background,
			&persona.PrimaryGoals,
			&traitsRaw,
		); err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		persona.Traits, err = decodeTraits(traitsRaw)
		if err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personas: %w", err)
	}
	return personas, nil
}
