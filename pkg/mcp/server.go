// Package mcp exposes the propagation engine over the Model Context
// Protocol: tools to run scenarios, sweep sensitivities, and rank
// systemic risks, plus a resource listing persisted runs.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/econlab/ripple/pkg/scenario"
	"github.com/econlab/ripple/pkg/store"
)

// Server adapts the ripple engine to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	runs      *store.Store
}

// NewServer creates a new MCP server instance. The run store is
// optional; without it the runs resource reports an empty list and
// completed runs are not persisted.
func NewServer(runs *store.Store) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"ripple",
			"1.0.0",
		),
		runs: runs,
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// ripple://runs
	s.mcpServer.AddResource(mcp.NewResource(
		"ripple://runs",
		"Propagation Run History",
		mcp.WithResourceDescription("Recent shock propagation runs with their outcomes"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadRuns)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"propagate_shock",
		mcp.WithDescription("Propagate a shock through the causal graph a scenario describes. Returns trajectories and invariant results."),
		mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario document in YAML: variables, relationships, shock, run parameters, invariants")),
	), s.handlePropagateShock)

	s.mcpServer.AddTool(mcp.NewTool(
		"analyze_sensitivity",
		mcp.WithDescription("Re-run a scenario's shock across magnitude and dampening sweeps. Returns one summary per swept parameter value."),
		mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario document in YAML")),
		mcp.WithNumber("periods", mcp.Description("Periods per sweep run (default 12)")),
	), s.handleAnalyzeSensitivity)

	s.mcpServer.AddTool(mcp.NewTool(
		"identify_systemic_risks",
		mcp.WithDescription("Shock every variable in turn and rank them by total downstream impact."),
		mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario document in YAML; its shock is ignored")),
		mcp.WithNumber("magnitude", mcp.Description("Probe shock magnitude (default 1.0)")),
		mcp.WithNumber("periods", mcp.Description("Periods per probe run (default 12)")),
	), s.handleIdentifySystemicRisks)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"ripple-aware",
		mcp.WithPromptDescription("Provides context about ripple concepts (Variables, Relationships, Shocks, Mechanisms)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadRuns(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var runs []store.Run
	if s.runs != nil {
		var err error
		runs, err = s.runs.ListRuns(ctx, store.RunFilter{Limit: 50})
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
	}
	if runs == nil {
		runs = []store.Run{}
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal runs: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePropagateShock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := mcp.ParseString(request, "scenario", "")

	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid scenario: %v", err)), nil
	}

	res, err := sc.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Propagation failed: %v", err)), nil
	}

	if s.runs != nil {
		digest, err := sc.Digest()
		if err == nil {
			if _, err := s.runs.SaveRun(ctx, "", sc.Name, digest, res.Results); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to persist run: %v", err)), nil
			}
		}
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleAnalyzeSensitivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := mcp.ParseString(request, "scenario", "")
	periods := int(mcp.ParseFloat64(request, "periods", 12))

	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid scenario: %v", err)), nil
	}
	eng, err := sc.Build()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid scenario: %v", err)), nil
	}

	summaries, err := eng.AnalyzeSensitivity(ctx, sc.ShockEvent(), nil, nil, periods)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Sensitivity analysis failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal summaries: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleIdentifySystemicRisks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := mcp.ParseString(request, "scenario", "")
	magnitude := mcp.ParseFloat64(request, "magnitude", 1.0)
	periods := int(mcp.ParseFloat64(request, "periods", 12))

	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid scenario: %v", err)), nil
	}
	eng, err := sc.Build()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid scenario: %v", err)), nil
	}

	scores, err := eng.IdentifySystemicRisks(ctx, magnitude, periods)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Risk scan failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal scores: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "ripple-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with ripple, an economic shock propagation engine.

Concepts:
- Variable: An economic quantity (e.g., 'fed_funds_rate', 'gdp_growth') with a value, uncertainty, and optional bounds.
- Relationship: A directed causal edge between variables with a strength in [-1, 1], a confidence, and a lag in periods.
- Mechanism: A non-linear transfer shaping an edge: linear, exponential, threshold, or saturation.
- Shock: An exogenous disturbance injected into one variable, optionally persisting with decay.
- Scenario: A YAML document declaring the graph, the shock, run parameters, and invariants to check.

Use 'propagate_shock' to run a scenario, 'analyze_sensitivity' to sweep magnitudes and dampenings, and 'identify_systemic_risks' to find the variables whose disturbance spreads furthest.
When an invariant fails, report which metric diverged and by how much.
`

	return mcp.NewGetPromptResult(
		"ripple-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
