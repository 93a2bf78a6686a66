// Package app wires the simulation service process: storage, catalog, AI
// collaborators, the session orchestrator, and the MCP surface.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/stagecraft-sim/stagecraft/internal/platform/config"
	"github.com/stagecraft-sim/stagecraft/internal/platform/otel"
	"github.com/stagecraft-sim/stagecraft/internal/platform/timeouts"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/ai"
	simmcp "github.com/stagecraft-sim/stagecraft/internal/simulation/api/mcp"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/catalog"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/session"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage/sqlite"
)

// serverEnv holds env-parsed configuration for the simulation server.
type serverEnv struct {
	DBPath string `env:"STAGECRAFT_SIMULATION_DB_PATH"`

	// MCPTransport selects how the MCP server is exposed: "stdio" or "http".
	MCPTransport string `env:"STAGECRAFT_MCP_TRANSPORT" envDefault:"stdio"`
	// MCPHTTPAddr binds the streamable HTTP transport. Localhost-only by
	// default.
	MCPHTTPAddr string `env:"STAGECRAFT_MCP_HTTP_ADDR" envDefault:"localhost:8081"`

	OpenAIAPIKey       string `env:"STAGECRAFT_OPENAI_API_KEY"`
	OpenAIModel        string `env:"STAGECRAFT_OPENAI_MODEL" envDefault:"gpt-4.1-mini"`
	OpenAIResponsesURL string `env:"STAGECRAFT_OPENAI_RESPONSES_URL"`

	// GoalJudgeEnabled turns on AI goal judgment for scene completion in
	// addition to explicit submission.
	GoalJudgeEnabled bool `env:"STAGECRAFT_GOAL_JUDGE_ENABLED" envDefault:"false"`
}

// shutdownWithTimeout flushes a telemetry shutdown function under the
// graceful-shutdown deadline. Failures are logged so they never mask the
// serve result.
func shutdownWithTimeout(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Printf("telemetry shutdown failed error=%v", err)
	}
}

func loadServerEnv() (serverEnv, error) {
	var env serverEnv
	if err := config.ParseEnv(&env); err != nil {
		return serverEnv{}, err
	}
	if env.DBPath == "" {
		env.DBPath = filepath.Join("data", "simulation.db")
	}
	return env, nil
}

// Run starts the simulation MCP server on the configured transport and
// blocks until the context is canceled.
func Run(ctx context.Context) error {
	env, err := loadServerEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(env.OpenAIAPIKey) == "" {
		return fmt.Errorf("STAGECRAFT_OPENAI_API_KEY is required")
	}

	shutdownTelemetry, err := otel.Setup(ctx, "stagecraft-simulation")
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer shutdownWithTimeout(shutdownTelemetry)

	store, err := sqlite.Open(env.DBPath)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", env.DBPath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store failed error=%v", err)
		}
	}()

	openAI := ai.NewOpenAIClient(ai.OpenAIConfig{
		ResponsesURL: env.OpenAIResponsesURL,
		APIKey:       env.OpenAIAPIKey,
		Model:        env.OpenAIModel,
		HTTPClient:   &http.Client{Timeout: timeouts.AIRequest},
	})

	cfg := session.Config{
		Catalog: catalog.NewStoreCatalog(store),
		Stores: session.Stores{
			Sessions: store,
			Turns:    store,
			Reports:  store,
		},
		Gateway:    openAI,
		Grader:     openAI,
		Summarizer: openAI,
	}
	if env.GoalJudgeEnabled {
		cfg.Judge = openAI
	}
	orchestrator, err := session.New(cfg)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	server := simmcp.New(orchestrator, catalog.NewStoreCatalog(store))
	log.Printf("simulation server starting db_path=%s model=%s goal_judge=%t transport=%s", env.DBPath, env.OpenAIModel, env.GoalJudgeEnabled, env.MCPTransport)

	switch env.MCPTransport {
	case "stdio":
		return server.ServeStdio(ctx)
	case "http":
		return server.ServeHTTP(ctx, env.MCPHTTPAddr)
	default:
		return fmt.Errorf("transport %q is not supported", env.MCPTransport)
	}
}
