// Package mcp exposes the simulation orchestrator as an MCP server: session
// tools for starting, conversing, submitting, and grading, plus readable
// scenario resources.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stagecraft-sim/stagecraft/internal/platform/timeouts"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/catalog"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/session"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "Stagecraft Simulation MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// SessionAPI is the orchestrator surface the MCP tools call.
type SessionAPI interface {
	Start(ctx context.Context, userID, scenarioID string) (session.StartResult, error)
	Status(ctx context.Context, sessionID string) (session.StatusResult, error)
	SendMessage(ctx context.Context, sessionID, sceneID, text string) (session.MessageResult, error)
	SubmitForGrading(ctx context.Context, sessionID string) (session.MessageResult, error)
	Grading(ctx context.Context, sessionID string) (domain.GradingReport, error)
	Abandon(ctx context.Context, sessionID string) (session.StatusResult, error)
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
}

// New creates a configured MCP server over the session orchestrator and
// scenario catalog.
func New(api SessionAPI, scenarios catalog.Catalog) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	registerSessionTools(mcpServer, api)
	registerScenarioResources(mcpServer, scenarios)

	return &Server{mcpServer: mcpServer}
}

// ServeStdio runs the MCP server over standard input/output until the
// context is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// ServeHTTP runs the MCP server over the streamable HTTP transport on addr
// and blocks until the context is canceled or the listener fails.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	log.Printf("mcp http transport listening on %s", addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func registerSessionTools(mcpServer *mcp.Server, api SessionAPI) {
	mcp.AddTool(mcpServer, SimulationStartTool(), SimulationStartHandler(api))
	mcp.AddTool(mcpServer, SimulationSendMessageTool(), SimulationSendMessageHandler(api))
	mcp.AddTool(mcpServer, SimulationSubmitTool(), SimulationSubmitHandler(api))
	mcp.AddTool(mcpServer, SimulationStatusTool(), SimulationStatusHandler(api))
	mcp.AddTool(mcpServer, SimulationGradingTool(), SimulationGradingHandler(api))
	mcp.AddTool(mcpServer, SimulationAbandonTool(), SimulationAbandonHandler(api))
}

func registerScenarioResources(mcpServer *mcp.Server, scenarios catalog.Catalog) {
	mcpServer.AddResource(ScenarioListResource(), ScenarioListResourceHandler(scenarios))
	mcpServer.AddResourceTemplate(ScenarioResourceTemplate(), ScenarioResourceHandler(scenarios))
}
