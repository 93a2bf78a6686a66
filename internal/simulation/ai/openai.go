package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

// OpenAIConfig configures the OpenAI responses endpoint and HTTP behavior.
type OpenAIConfig struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

// OpenAIClient calls the OpenAI responses API. It implements PersonaGateway,
// Grader, Summarizer, and GoalJudge over a single invoke path.
type OpenAIClient struct {
	cfg OpenAIConfig
}

// NewOpenAIClient builds an OpenAI collaborator client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	return &OpenAIClient{cfg: cfg}
}

func (c *OpenAIClient) invoke(ctx context.Context, prompt string) (string, error) {
	responsesURL := strings.TrimSpace(c.cfg.ResponsesURL)
	apiKey := strings.TrimSpace(c.cfg.APIKey)
	model := strings.TrimSpace(c.cfg.Model)
	prompt = strings.TrimSpace(prompt)
	if responsesURL == "" {
		return "", fmt.Errorf("responses url is required")
	}
	if apiKey == "" {
		return "", fmt.Errorf("api key is required")
	}
	if model == "" {
		return "", fmt.Errorf("model is required")
	}
	if prompt == "" {
		return "", fmt.Errorf("input is required")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal invoke request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is never
	// echoed in errors or response payloads.
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read invoke error body: %w", err)
		}
		return "", fmt.Errorf("invoke request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode invoke response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", fmt.Errorf("invoke response missing output text")
	}
	return outputText, nil
}

// Reply produces an in-character persona reply.
func (c *OpenAIClient) Reply(ctx context.Context, persona domain.Persona, scene SceneContext, history []domain.Turn, message string) (string, error) {
	return c.invoke(ctx, buildReplyPrompt(persona, scene, history, message))
}

// GradeScene assesses one scene's user transcript against its goal. The model
// is asked for a strict JSON object so the result can be parsed reliably.
func (c *OpenAIClient) GradeScene(ctx context.Context, transcript []string, goal string) (GradeResult, error) {
	output, err := c.invoke(ctx, buildGradePrompt(transcript, goal))
	if err != nil {
		return GradeResult{}, err
	}
	return parseGradeOutput(output)
}

// Summarize condenses per-scene feedback into overall session feedback.
func (c *OpenAIClient) Summarize(ctx context.Context, perSceneFeedback []string) (string, error) {
	return c.invoke(ctx, buildSummaryPrompt(perSceneFeedback))
}

// GoalMet asks the model whether the scene goal has already been achieved in
// the conversation so far. The model answers YES or NO; anything else is
// treated as NO.
func (c *OpenAIClient) GoalMet(ctx context.Context, scene SceneContext, history []domain.Turn) (bool, error) {
	output, err := c.invoke(ctx, buildGoalPrompt(scene, history))
	if err != nil {
		return false, err
	}
	answer := strings.ToUpper(strings.TrimSpace(output))
	return strings.HasPrefix(answer, "YES"), nil
}

func buildReplyPrompt(persona domain.Persona, scene SceneContext, history []domain.Turn, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s, in the business simulation %q.\n", persona.Name, persona.Role, scene.ScenarioTitle)
	if strings.TrimSpace(persona.Background) != "" {
		fmt.Fprintf(&b, "Background: %s\n", persona.Background)
	}
	if strings.TrimSpace(persona.PrimaryGoals) != "" {
		fmt.Fprintf(&b, "Your goals: %s\n", persona.PrimaryGoals)
	}
	fmt.Fprintf(&b, "Scene: %s. %s\n", scene.SceneTitle, scene.SceneDescription)
	fmt.Fprintf(&b, "The learner is playing the role of %s.\n", scene.StudentRole)
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		appendTranscript(&b, history)
	}
	fmt.Fprintf(&b, "The learner says to you: %s\n", message)
	b.WriteString("Reply in character, in plain prose, without narration or markup.")
	return b.String()
}

func buildGradePrompt(transcript []string, goal string) string {
	var b strings.Builder
	b.WriteString("You are grading a learner's performance in one scene of a business simulation.\n")
	fmt.Fprintf(&b, "Scene goal: %s\n", goal)
	b.WriteString("Learner messages in order:\n")
	for i, line := range transcript {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	b.WriteString("Respond with a single JSON object and nothing else, shaped as ")
	b.WriteString(`{"score": <number 0-100>, "feedback": "<assessment for the learner>", "teaching_notes": "<notes for the instructor>"}.`)
	return b.String()
}

func buildSummaryPrompt(perSceneFeedback []string) string {
	var b strings.Builder
	b.WriteString("Condense the following per-scene feedback into a short overall assessment of the learner's session. Reply in plain prose.\n")
	for i, feedback := range perSceneFeedback {
		fmt.Fprintf(&b, "Scene %d: %s\n", i+1, feedback)
	}
	return b.String()
}

func buildGoalPrompt(scene SceneContext, history []domain.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene goal: %s\n", scene.UserGoal)
	b.WriteString("Conversation so far:\n")
	appendTranscript(&b, history)
	b.WriteString("Has the learner already achieved the scene goal in this conversation? Answer only YES or NO.")
	return b.String()
}

func appendTranscript(b *strings.Builder, history []domain.Turn) {
	for _, turn := range history {
		switch turn.Sender {
		case domain.SenderUser:
			fmt.Fprintf(b, "Learner: %s\n", turn.Content)
		case domain.SenderPersona:
			fmt.Fprintf(b, "%s: %s\n", turn.PersonaID, turn.Content)
		}
	}
}

func parseGradeOutput(output string) (GradeResult, error) {
	raw := strings.TrimSpace(output)
	// Some models wrap JSON in a fenced code block despite instructions.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start > 0 {
		raw = raw[start:]
	}
	if end := strings.LastIndex(raw, "}"); end >= 0 && end < len(raw)-1 {
		raw = raw[:end+1]
	}

	var payload struct {
		Score         json.Number `json:"score"`
		Feedback      string      `json:"feedback"`
		TeachingNotes string      `json:"teaching_notes"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return GradeResult{}, fmt.Errorf("decode grade output: %w", err)
	}
	score, err := strconv.ParseFloat(payload.Score.String(), 64)
	if err != nil {
		return GradeResult{}, fmt.Errorf("decode grade score: %w", err)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	feedback := strings.TrimSpace(payload.Feedback)
	if feedback == "" {
		return GradeResult{}, fmt.Errorf("grade output missing feedback")
	}
	return GradeResult{
		Score:         score,
		Feedback:      feedback,
		TeachingNotes: strings.TrimSpace(payload.TeachingNotes),
	}, nil
}
