package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrScenarioNoScenes indicates a scenario without scenes cannot be played.
	ErrScenarioNoScenes = errors.New("scenario has no scenes")
	// ErrSceneOrderNotIncreasing indicates scene order values are not strictly increasing.
	ErrSceneOrderNotIncreasing = errors.New("scene order must be strictly increasing")
	// ErrSceneInvalidTimeout indicates a scene turn budget must be positive.
	ErrSceneInvalidTimeout = errors.New("scene timeout turns must be positive")
	// ErrSceneNoPersonas indicates a scene without a persona cast.
	ErrSceneNoPersonas = errors.New("scene requires at least one persona")
	// ErrSceneNotFound indicates a scene id is not part of the scenario.
	ErrSceneNotFound = errors.New("scene not found in scenario")
	// ErrPersonaNotInScene indicates a mentioned persona is not in the scene cast.
	ErrPersonaNotInScene = errors.New("persona is not part of this scene")
)

// Persona is an AI-driven character profile. Read-only during a session.
type Persona struct {
	ID           string
	Name         string
	Role         string
	Background   string
	PrimaryGoals string
	// Traits holds named personality dials, e.g. "patience": 7.
	Traits map[string]int
}

// Scene is one bounded segment of a scenario with its own goal and cast.
type Scene struct {
	ID          string
	Order       int
	Title       string
	Description string
	UserGoal    string
	// TimeoutTurns caps conversational turns before the scene force-completes.
	TimeoutTurns int
	// Personas is the cast, in authoring order. Never empty.
	Personas []Persona
}

// Scenario is an immutable, ordered simulation definition.
type Scenario struct {
	ID          string
	Title       string
	Description string
	StudentRole string
	// Scenes are sorted by strictly increasing Order.
	Scenes []Scene
}

// Validate checks the structural invariants of a playable scenario.
func (s Scenario) Validate() error {
	if len(s.Scenes) == 0 {
		return ErrScenarioNoScenes
	}
	prevOrder := 0
	for i, scene := range s.Scenes {
		if i > 0 && scene.Order <= prevOrder {
			return fmt.Errorf("scene %s: %w", scene.ID, ErrSceneOrderNotIncreasing)
		}
		prevOrder = scene.Order
		if scene.TimeoutTurns <= 0 {
			return fmt.Errorf("scene %s: %w", scene.ID, ErrSceneInvalidTimeout)
		}
		if len(scene.Personas) == 0 {
			return fmt.Errorf("scene %s: %w", scene.ID, ErrSceneNoPersonas)
		}
	}
	return nil
}

// SceneByID returns the scene with the given id.
func (s Scenario) SceneByID(sceneID string) (Scene, error) {
	for _, scene := range s.Scenes {
		if scene.ID == sceneID {
			return scene, nil
		}
	}
	return Scene{}, ErrSceneNotFound
}

// SceneAfter returns the scene following sceneID in play order, or false when
// sceneID is the last scene.
func (s Scenario) SceneAfter(sceneID string) (Scene, bool, error) {
	for i, scene := range s.Scenes {
		if scene.ID != sceneID {
			continue
		}
		if i+1 < len(s.Scenes) {
			return s.Scenes[i+1], true, nil
		}
		return Scene{}, false, nil
	}
	return Scene{}, false, ErrSceneNotFound
}

// SceneIDs returns scene ids in play order.
func (s Scenario) SceneIDs() []string {
	ids := make([]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		ids = append(ids, scene.ID)
	}
	return ids
}

// PersonaByName resolves a persona in the scene cast by case-insensitive name.
// Mention matching ignores surrounding whitespace.
func (sc Scene) PersonaByName(name string) (Persona, error) {
	name = strings.TrimSpace(name)
	for _, persona := range sc.Personas {
		if strings.EqualFold(persona.Name, name) {
			return persona, nil
		}
	}
	return Persona{}, ErrPersonaNotInScene
}

// DefaultPersona returns the persona addressed when a message carries no
// mention: the first cast member in authoring order. The cast is never empty
// for a validated scenario.
func (sc Scene) DefaultPersona() Persona {
	if len(sc.Personas) == 0 {
		return Persona{}
	}
	return sc.Personas[0]
}

// SceneIntro is the learner-facing briefing returned on scene entry.
type SceneIntro struct {
	SceneID      string
	Title        string
	Description  string
	UserGoal     string
	PersonaNames []string
	TimeoutTurns int
}

// Intro builds the scene briefing handed to the learner at scene entry.
func (sc Scene) Intro() SceneIntro {
	names := make([]string, 0, len(sc.Personas))
	for _, persona := range sc.Personas {
		names = append(names, persona.Name)
	}
	return SceneIntro{
		SceneID:      sc.ID,
		Title:        sc.Title,
		Description:  sc.Description,
		UserGoal:     sc.UserGoal,
		PersonaNames: names,
		TimeoutTurns: sc.TimeoutTurns,
	}
}
