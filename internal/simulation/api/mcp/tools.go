package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"

	"github.com/stagecraft-sim/stagecraft/internal/platform/timeouts"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/session"
)

// toolCallTimeout bounds a single tool invocation, including collaborator
// retries inside the orchestrator.
const toolCallTimeout = timeouts.MCPTool

var tracer = otel.Tracer("stagecraft/simulation/api/mcp")

// SceneIntroPayload is the learner-facing scene briefing in tool results.
type SceneIntroPayload struct {
	SceneID      string   `json:"scene_id" jsonschema:"scene identifier"`
	Title        string   `json:"title" jsonschema:"scene title"`
	Description  string   `json:"description" jsonschema:"scene description"`
	UserGoal     string   `json:"user_goal" jsonschema:"what the learner must accomplish in this scene"`
	PersonaNames []string `json:"persona_names" jsonschema:"cast of the scene, addressable with @Name"`
	TimeoutTurns int      `json:"timeout_turns" jsonschema:"conversational turn budget before the scene force-completes"`
}

func sceneIntroPayload(intro domain.SceneIntro) *SceneIntroPayload {
	return &SceneIntroPayload{
		SceneID:      intro.SceneID,
		Title:        intro.Title,
		Description:  intro.Description,
		UserGoal:     intro.UserGoal,
		PersonaNames: intro.PersonaNames,
		TimeoutTurns: intro.TimeoutTurns,
	}
}

// SimulationStartInput represents the MCP tool input for starting a session.
type SimulationStartInput struct {
	UserID     string `json:"user_id" jsonschema:"learner identifier"`
	ScenarioID string `json:"scenario_id" jsonschema:"scenario identifier"`
}

// SimulationStartResult represents the MCP tool output for starting a session.
type SimulationStartResult struct {
	SessionID       string             `json:"session_id" jsonschema:"session identifier"`
	FirstSceneIntro *SceneIntroPayload `json:"first_scene_intro" jsonschema:"briefing for the scenario's first scene"`
}

// SimulationStartTool defines the MCP tool schema for starting a session.
func SimulationStartTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulation_start",
		Description: "Starts a simulation session for a learner and scenario, returning the first scene briefing.",
	}
}

// SimulationStartHandler executes a session start request.
func SimulationStartHandler(api SessionAPI) mcp.ToolHandlerFor[SimulationStartInput, SimulationStartResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulationStartInput) (*mcp.CallToolResult, SimulationStartResult, error) {
		ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "simulation_start")
		defer span.End()

		started, err := api.Start(ctx, input.UserID, input.ScenarioID)
		if err != nil {
			return nil, SimulationStartResult{}, toolError(err)
		}
		return nil, SimulationStartResult{
			SessionID:       started.SessionID,
			FirstSceneIntro: sceneIntroPayload(started.FirstSceneIntro),
		}, nil
	}
}

// SimulationMessageInput represents the MCP tool input for a learner message.
type SimulationMessageInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	SceneID   string `json:"scene_id,omitempty" jsonschema:"optional scene identifier; rejected if it does not match the session's current scene"`
	Text      string `json:"text" jsonschema:"learner message; prefix with @Name to address a specific persona"`
}

// SimulationMessageResult represents the MCP tool output for conversational
// and submission calls.
type SimulationMessageResult struct {
	ReplyText          string             `json:"reply_text" jsonschema:"persona or system reply"`
	PersonaName        string             `json:"persona_name,omitempty" jsonschema:"name of the replying persona; empty for system replies"`
	TurnCount          int                `json:"turn_count" jsonschema:"turn count in the current scene after this call"`
	SceneCompleted     bool               `json:"scene_completed" jsonschema:"true when this call closed the current scene"`
	CompletionReason   string             `json:"completion_reason,omitempty" jsonschema:"GOAL_MET or TIMEOUT when the scene completed"`
	NextSceneIntro     *SceneIntroPayload `json:"next_scene_intro,omitempty" jsonschema:"briefing for the next scene when one exists"`
	SimulationComplete bool               `json:"simulation_complete" jsonschema:"true when the last scene closed and grading is available"`
}

func messageResult(result session.MessageResult) SimulationMessageResult {
	payload := SimulationMessageResult{
		ReplyText:          result.ReplyText,
		PersonaName:        result.PersonaName,
		TurnCount:          result.TurnCount,
		SceneCompleted:     result.SceneCompleted,
		SimulationComplete: result.SimulationComplete,
	}
	if result.SceneCompleted {
		payload.CompletionReason = string(result.CompletionReason)
	}
	if result.NextSceneIntro != nil {
		payload.NextSceneIntro = sceneIntroPayload(*result.NextSceneIntro)
	}
	return payload
}

// SimulationSendMessageTool defines the MCP tool schema for learner messages.
func SimulationSendMessageTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulation_send_message",
		Description: "Sends a learner message into the current scene and returns the persona reply. Reserved messages: \"begin\", \"help\", and \"SUBMIT_FOR_GRADING\".",
	}
}

// SimulationSendMessageHandler executes a learner message.
func SimulationSendMessageHandler(api SessionAPI) mcp.ToolHandlerFor[SimulationMessageInput, SimulationMessageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulationMessageInput) (*mcp.CallToolResult, SimulationMessageResult, error) {
		ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "simulation_send_message")
		defer span.End()

		result, err := api.SendMessage(ctx, input.SessionID, input.SceneID, input.Text)
		if err != nil {
			return nil, SimulationMessageResult{}, toolError(err)
		}
		return nil, messageResult(result), nil
	}
}

// SimulationSubmitInput represents the MCP tool input for scene submission.
type SimulationSubmitInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SimulationSubmitTool defines the MCP tool schema for scene submission.
func SimulationSubmitTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulation_submit",
		Description: "Submits the current scene for grading. Requires at least one persona reply in the scene.",
	}
}

// SimulationSubmitHandler executes a scene submission.
func SimulationSubmitHandler(api SessionAPI) mcp.ToolHandlerFor[SimulationSubmitInput, SimulationMessageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulationSubmitInput) (*mcp.CallToolResult, SimulationMessageResult, error) {
		ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "simulation_submit")
		defer span.End()

		result, err := api.SubmitForGrading(ctx, input.SessionID)
		if err != nil {
			return nil, SimulationMessageResult{}, toolError(err)
		}
		return nil, messageResult(result), nil
	}
}

// SimulationStatusInput represents the MCP tool input for a status read.
type SimulationStatusInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SimulationStatusResult represents the MCP tool output for a status read.
type SimulationStatusResult struct {
	SessionID      string `json:"session_id" jsonschema:"session identifier"`
	CurrentSceneID string `json:"current_scene_id,omitempty" jsonschema:"scene the session is currently in; empty after the last scene"`
	TurnCount      int    `json:"turn_count" jsonschema:"turn count in the current scene"`
	Status         string `json:"status" jsonschema:"session status (NOT_STARTED, IN_PROGRESS, AWAITING_GRADING, COMPLETED, ABANDONED)"`
}

func statusResult(status session.StatusResult) SimulationStatusResult {
	return SimulationStatusResult{
		SessionID:      status.SessionID,
		CurrentSceneID: status.CurrentSceneID,
		TurnCount:      status.TurnCount,
		Status:         string(status.Status),
	}
}

// SimulationStatusTool defines the MCP tool schema for a status read.
func SimulationStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulation_status",
		Description: "Reads a session's current scene, turn count, and status. No side effects.",
	}
}

// SimulationStatusHandler executes a status read.
func SimulationStatusHandler(api SessionAPI) mcp.ToolHandlerFor[SimulationStatusInput, SimulationStatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulationStatusInput) (*mcp.CallToolResult, SimulationStatusResult, error) {
		ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "simulation_status")
		defer span.End()

		status, err := api.Status(ctx, input.SessionID)
		if err != nil {
			return nil, SimulationStatusResult{}, toolError(err)
		}
		return nil, statusResult(status), nil
	}
}

// SimulationGradingInput represents the MCP tool input for reading a report.
type SimulationGradingInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SceneGradePayload is one scene's assessment in the grading report.
type SceneGradePayload struct {
	SceneID       string  `json:"scene_id" jsonschema:"scene identifier"`
	Score         float64 `json:"score" jsonschema:"scene score on a 0-100 scale; 0 when ungraded"`
	Feedback      string  `json:"feedback" jsonschema:"assessment for the learner"`
	TeachingNotes string  `json:"teaching_notes,omitempty" jsonschema:"notes for the instructor"`
	Graded        bool    `json:"graded" jsonschema:"false when grading was unavailable for this scene"`
}

// SimulationGradingResult represents the MCP tool output for a report read.
type SimulationGradingResult struct {
	SessionID       string              `json:"session_id" jsonschema:"session identifier"`
	OverallScore    float64             `json:"overall_score" jsonschema:"mean of graded scene scores"`
	OverallFeedback string              `json:"overall_feedback" jsonschema:"overall session feedback"`
	Scenes          []SceneGradePayload `json:"scenes" jsonschema:"per-scene assessments in play order"`
	CreatedAt       string              `json:"created_at" jsonschema:"RFC3339 timestamp when the report was created"`
}

// SimulationGradingTool defines the MCP tool schema for reading a report.
func SimulationGradingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulation_grading",
		Description: "Returns the grading report for a completed session. Idempotent; the report is cached after first computation.",
	}
}

// SimulationGradingHandler executes a grading report read.
func SimulationGradingHandler(api SessionAPI) mcp.ToolHandlerFor[SimulationGradingInput, SimulationGradingResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulationGradingInput) (*mcp.CallToolResult, SimulationGradingResult, error) {
		ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "simulation_grading")
		defer span.End()

		report, err := api.Grading(ctx, input.SessionID)
		if err != nil {
			return nil, SimulationGradingResult{}, toolError(err)
		}

		scenes := make([]SceneGradePayload, 0, len(report.Scenes))
		for _, scene := range report.Scenes {
			scenes = append(scenes, SceneGradePayload{
				SceneID:       scene.SceneID,
				Score:         scene.Score,
				Feedback:      scene.Feedback,
				TeachingNotes: scene.TeachingNotes,
				Graded:        scene.Graded,
			})
		}
		return nil, SimulationGradingResult{
			SessionID:       report.SessionID,
			OverallScore:    report.OverallScore,
			OverallFeedback: report.OverallFeedback,
			Scenes:          scenes,
			CreatedAt:       report.CreatedAt.UTC().Format(time.RFC3339),
		}, nil
	}
}

// SimulationAbandonInput represents the MCP tool input for abandoning a session.
type SimulationAbandonInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SimulationAbandonTool defines the MCP tool schema for abandoning a session.
func SimulationAbandonTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulation_abandon",
		Description: "Closes a session without grading. Terminal; the session accepts no further messages.",
	}
}

// SimulationAbandonHandler executes a session abandon request.
func SimulationAbandonHandler(api SessionAPI) mcp.ToolHandlerFor[SimulationAbandonInput, SimulationStatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulationAbandonInput) (*mcp.CallToolResult, SimulationStatusResult, error) {
		ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "simulation_abandon")
		defer span.End()

		status, err := api.Abandon(ctx, input.SessionID)
		if err != nil {
			return nil, SimulationStatusResult{}, toolError(err)
		}
		return nil, statusResult(status), nil
	}
}
