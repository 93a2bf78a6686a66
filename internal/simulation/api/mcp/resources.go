package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/catalog"
)

// ScenarioListEntry is one scenario in the readable catalog listing.
type ScenarioListEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StudentRole string `json:"student_role"`
}

// ScenarioListPayload is the MCP resource payload for the catalog listing.
type ScenarioListPayload struct {
	Scenarios []ScenarioListEntry `json:"scenarios"`
}

// ScenarioScenePayload is one scene in a readable scenario.
type ScenarioScenePayload struct {
	ID           string   `json:"id"`
	Order        int      `json:"order"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	UserGoal     string   `json:"user_goal"`
	TimeoutTurns int      `json:"timeout_turns"`
	PersonaNames []string `json:"persona_names"`
}

// ScenarioPayload is the MCP resource payload for a single scenario.
type ScenarioPayload struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	StudentRole string                 `json:"student_role"`
	Scenes      []ScenarioScenePayload `json:"scenes"`
}

// ScenarioListResource defines the readable scenario catalog listing.
func ScenarioListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "scenario_list",
		Title:       "Scenarios",
		Description: "Readable listing of available simulation scenarios",
		MIMEType:    "application/json",
		URI:         "scenarios://list",
	}
}

// ScenarioListResourceHandler returns the readable scenario listing.
func ScenarioListResourceHandler(scenarios catalog.Catalog) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if scenarios == nil {
			return nil, fmt.Errorf("scenario catalog is not configured")
		}

		uri := ScenarioListResource().URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}

		listed, err := scenarios.ListScenarios(ctx)
		if err != nil {
			return nil, fmt.Errorf("scenario list failed: %w", err)
		}

		payload := ScenarioListPayload{}
		for _, scenario := range listed {
			payload.Scenarios = append(payload.Scenarios, ScenarioListEntry{
				ID:          scenario.ID,
				Title:       scenario.Title,
				Description: scenario.Description,
				StudentRole: scenario.StudentRole,
			})
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal scenario list: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// ScenarioResourceTemplate defines the readable single-scenario resource.
func ScenarioResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "scenario",
		Title:       "Scenario",
		Description: "Readable scenario with ordered scenes and persona casts. URI format: scenario://{scenario_id}",
		MIMEType:    "application/json",
		URITemplate: "scenario://{scenario_id}",
	}
}

// ScenarioResourceHandler returns a readable single scenario.
func ScenarioResourceHandler(scenarios catalog.Catalog) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if scenarios == nil {
			return nil, fmt.Errorf("scenario catalog is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("scenario ID is required; use URI format scenario://{scenario_id}")
		}
		uri := req.Params.URI

		scenarioID, err := parseScenarioIDFromURI(uri)
		if err != nil {
			return nil, fmt.Errorf("parse scenario ID from URI: %w", err)
		}

		scenario, err := scenarios.GetScenario(ctx, scenarioID)
		if err != nil {
			return nil, fmt.Errorf("scenario read failed: %w", err)
		}

		payload := ScenarioPayload{
			ID:          scenario.ID,
			Title:       scenario.Title,
			Description: scenario.Description,
			StudentRole: scenario.StudentRole,
		}
		for _, scene := range scenario.Scenes {
			names := make([]string, 0, len(scene.Personas))
			for _, persona := range scene.Personas {
				names = append(names, persona.Name)
			}
			payload.Scenes = append(payload.Scenes, ScenarioScenePayload{
				ID:           scene.ID,
				Order:        scene.Order,
				Title:        scene.Title,
				Description:  scene.Description,
				UserGoal:     scene.UserGoal,
				TimeoutTurns: scene.TimeoutTurns,
				PersonaNames: names,
			})
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal scenario: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// parseScenarioIDFromURI extracts the scenario ID from a URI of the form
// scenario://{scenario_id}.
func parseScenarioIDFromURI(uri string) (string, error) {
	const prefix = "scenario://"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("URI %q does not match scenario://{scenario_id}", uri)
	}
	scenarioID := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), "/")
	if scenarioID == "" || strings.Contains(scenarioID, "/") {
		return "", fmt.Errorf("URI %q does not match scenario://{scenario_id}", uri)
	}
	return scenarioID, nil
}
