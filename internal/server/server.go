// Package server wires the orchestrator's collaborators and exposes the
// tool catalog over an MCP stdio transport.
//
// This is the composition root: concrete clients are constructed here
// and injected into everything that depends on interfaces. No business
// logic lives in this package.
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/ragscout/ragscout/internal/backend"
	"github.com/ragscout/ragscout/internal/backendcfg"
	"github.com/ragscout/ragscout/internal/config"
	"github.com/ragscout/ragscout/internal/memory"
	"github.com/ragscout/ragscout/internal/orchestrator"
	"github.com/ragscout/ragscout/internal/persona"
	"github.com/ragscout/ragscout/internal/tools"
	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server owns the wired components behind the MCP surface.
type Server struct {
	backend    contracts.Backend
	dispatcher *tools.Dispatcher
	agent      *orchestrator.Agent
}

// New builds the MCP server with every catalog tool registered, plus the
// orchestrator and health tools. A missing backend URL is a fatal init
// error.
func New(cfg *config.Config) (*server.MCPServer, func(), error) {
	be, err := backend.NewClient(cfg.Backend)
	if err != nil {
		return nil, noop, fmt.Errorf("creating backend client: %w", err)
	}

	mem := memory.NewStore(be)
	dispatcher := tools.NewDispatcher(be, mem)

	history := persona.LoadHistory(cfg.HistoryPath())
	var classifier contracts.Classifier
	if c := persona.NewOpenAIClassifier(cfg.Classifier); c != nil {
		classifier = c
	}
	selector := persona.NewSelector(classifier, history)

	agent, err := orchestrator.New(
		models.DefaultAgentConfig(models.PersonaDeveloper),
		dispatcher,
		orchestrator.Options{Selector: selector, Memory: mem},
	)
	if err != nil {
		return nil, noop, fmt.Errorf("creating agent: %w", err)
	}

	srv := &Server{backend: be, dispatcher: dispatcher, agent: agent}

	s := server.NewMCPServer(
		"ragscout",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions()),
	)

	for _, op := range tools.List() {
		s.AddTool(definition(op), srv.dispatchHandler(op.Name))
	}
	s.AddTool(processDefinition(), srv.handleProcess)
	s.AddTool(agentDefinition(), srv.handleAgent)
	s.AddTool(healthDefinition(), srv.handleHealth)

	log.Info().Int("tools", len(tools.List())+3).Msg("mcp server wired")
	return s, noop, nil
}

func noop() {}

// definition translates a catalog operation into an MCP tool schema.
func definition(op tools.Operation) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(op.Description)}
	for _, a := range op.Args {
		var propOpts []mcp.PropertyOption
		if a.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		propOpts = append(propOpts, mcp.Description(a.Description))

		switch a.Type {
		case tools.ArgNumber:
			opts = append(opts, mcp.WithNumber(a.Name, propOpts...))
		case tools.ArgBoolean:
			opts = append(opts, mcp.WithBoolean(a.Name, propOpts...))
		case tools.ArgArray:
			propOpts = append(propOpts, mcp.Items(map[string]any{"type": "string"}))
			opts = append(opts, mcp.WithArray(a.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(a.Name, propOpts...))
		}
	}
	return mcp.NewTool(op.Name, opts...)
}

// dispatchHandler routes one catalog tool through the dispatcher. The
// result text is the serialized ToolResult; failed calls flag isError.
func (srv *Server) dispatchHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := srv.dispatcher.Dispatch(ctx, name, req.GetArguments())
		data, err := json.Marshal(res)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		out := mcp.NewToolResultText(string(data))
		out.IsError = !res.Success
		return out, nil
	}
}

// ── Orchestrator tool ────────────────────────────────────────

func processDefinition() mcp.Tool {
	return mcp.NewTool("process_request",
		mcp.WithDescription(
			"Run a request through the full agent lifecycle: persona selection, "+
				"tool planning, execution against the RAG backend, and answer synthesis.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The user's request in natural language"),
		),
		mcp.WithString("persona",
			mcp.Description("Force a persona: developer, architect, debugger, learner, tester"),
		),
	)
}

func (srv *Server) handleProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	request := req.GetString("request", "")
	if request == "" {
		return mcp.NewToolResultError("'request' is required"), nil
	}

	if forced := req.GetString("persona", ""); forced != "" {
		if err := srv.agent.SwitchPersona(models.PersonaID(forced)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	resp := srv.agent.Process(ctx, request)
	data, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ── Backend agent tool ───────────────────────────────────────

func agentDefinition() mcp.Tool {
	return mcp.NewTool("backend_agent",
		mcp.WithDescription(
			"Send one message to the backend's streaming agent and return the "+
				"collected answer with citations. Pass conversation_id to continue "+
				"an earlier conversation.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The message to send to the agent"),
		),
		mcp.WithBoolean("deep",
			mcp.Description("Use the deep research preset instead of the fast RAG preset"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation to continue"),
		),
	)
}

func (srv *Server) handleAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("'message' is required"), nil
	}

	preset := backendcfg.FastQuery()
	if req.GetBool("deep", false) {
		preset = backendcfg.DeepResearch()
	}

	agentReq := models.AgentRequest{
		Message:          models.AgentMessage{Role: "user", Content: message},
		Mode:             preset.Mode,
		GenerationConfig: preset.GenerationConfig,
		SearchSettings:   preset.SearchSettings,
		ConversationID:   req.GetString("conversation_id", ""),
	}
	if preset.Mode == models.BackendModeResearch {
		agentReq.ResearchTools = preset.Tools
	} else {
		agentReq.RAGTools = preset.Tools
	}

	stream, err := srv.backend.Agent(ctx, agentReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening agent stream: %v", err)), nil
	}
	outcome, err := backend.Collect(stream)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading agent stream: %v", err)), nil
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding outcome: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ── Health tool ──────────────────────────────────────────────

func healthDefinition() mcp.Tool {
	return mcp.NewTool("backend_health",
		mcp.WithDescription("Check reachability of the RAG backend."),
	)
}

func (srv *Server) handleHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := srv.backend.Health(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("backend unreachable: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("backend status: %s", status)), nil
}

func instructions() string {
	return "RagScout orchestrates retrieval tools over a RAG backend. " +
		"Use process_request for end-to-end answers with automatic persona " +
		"selection, or call individual tools directly for targeted lookups. " +
		"Experiences from past interactions are stored and retrievable via " +
		"the memory tools."
}
