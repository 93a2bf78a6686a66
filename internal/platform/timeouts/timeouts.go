// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between collaborator boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// AIRequest caps a single attempt against an AI collaborator (persona reply,
// scene grading, or overall-feedback summarization).
const AIRequest = 30 * time.Second

// MCPTool caps the total time an MCP tool invocation may spend, including
// retries against AI collaborators.
const MCPTool = 2 * time.Minute

// ReadHeader limits how long the HTTP transport waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the service waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
