// Package orchestrator runs the full request lifecycle: persona
// selection, decision making, planning, tool execution, answer
// synthesis, and the experience memory loop.
//
// One Agent serves one session. Callers must serialize requests to the
// same Agent; independent Agents share no mutable state.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ragscout/ragscout/internal/backendcfg"
	"github.com/ragscout/ragscout/internal/contextlog"
	"github.com/ragscout/ragscout/internal/decision"
	"github.com/ragscout/ragscout/internal/persona"
	"github.com/ragscout/ragscout/internal/state"
	"github.com/ragscout/ragscout/internal/telemetry"
	"github.com/ragscout/ragscout/internal/tools"
	"github.com/ragscout/ragscout/pkg/models"
)

// ragClass tools produce a data.answer worth promoting to the response.
var ragClass = map[string]bool{
	tools.AskDocumentation:      true,
	tools.GetImplementationHelp: true,
	tools.DebugWithRAG:          true,
	tools.ExplainArchitecture:   true,
}

// Options carries the Agent's optional collaborators.
type Options struct {
	// Selector enables automatic persona selection per request.
	Selector *persona.Selector
	// Memory enables the experience storage and reflection loop.
	Memory tools.ExperienceService
}

// Agent is the orchestration kernel for one session.
type Agent struct {
	cfg        models.AgentConfig
	persona    models.Persona
	engine     *decision.Engine
	dispatcher *tools.Dispatcher
	contexts   *contextlog.Store
	tracker    *state.Tracker
	selector   *persona.Selector
	memory     tools.ExperienceService
}

// New builds an Agent for the given config. The config is validated;
// an unknown persona or out-of-range knob is a construction error.
func New(cfg models.AgentConfig, dispatcher *tools.Dispatcher, opts Options) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := persona.Get(cfg.PersonaID)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		cfg:        cfg,
		persona:    p,
		dispatcher: dispatcher,
		contexts:   contextlog.New(cfg.MaxContextMemory),
		tracker:    state.New(),
		selector:   opts.Selector,
		memory:     opts.Memory,
	}
	a.engine = decision.NewEngine(&a.persona)
	return a, nil
}

// Persona returns the currently active persona.
func (a *Agent) Persona() models.Persona { return a.persona }

// Contexts exposes the session's context store.
func (a *Agent) Contexts() *contextlog.Store { return a.contexts }

// State exposes the session's state tracker.
func (a *Agent) State() *state.Tracker { return a.tracker }

// Config returns the active agent configuration.
func (a *Agent) Config() models.AgentConfig { return a.cfg }

// SwitchPersona changes the active persona for subsequent requests.
func (a *Agent) SwitchPersona(id models.PersonaID) error {
	p, err := persona.Get(id)
	if err != nil {
		return err
	}
	a.persona = p
	a.cfg.PersonaID = id
	a.engine.SetPersona(&a.persona)
	log.Info().Str("persona", string(id)).Msg("persona switched")
	return nil
}

// Process runs one request through the full lifecycle. It never returns
// an error: any failure becomes a diagnostic AgentResponse with zero
// confidence.
func (a *Agent) Process(ctx context.Context, request string) (resp models.AgentResponse) {
	start := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "agent.process")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("request processing panicked")
			resp = a.errorResponse(fmt.Sprintf("%v", r))
		}
		resp.Metadata = map[string]interface{}{
			"execution_time_ms": time.Since(start).Milliseconds(),
			"persona_id":        string(a.persona.ID),
			"mode":              string(a.cfg.Mode),
		}
	}()

	a.maybeSelectPersona(ctx, request)
	span.SetAttributes(attribute.String("persona", string(a.persona.ID)))

	a.tracker.SetTask(request)
	a.contexts.Add(models.ContextEntry{
		Type:    models.EntryUserMessage,
		Content: map[string]interface{}{"message": request},
	})

	decisions := a.engine.Analyze(request)
	backendConfig := a.mapBackendConfig(request)

	if len(decisions) == 0 {
		resp = a.fallbackResponse()
		resp.BackendConfig = backendConfig
		return resp
	}

	for _, d := range decisions {
		a.contexts.Add(models.ContextEntry{
			Type: models.EntryDecision,
			Content: map[string]interface{}{
				"tool":       d.ToolName,
				"reasoning":  d.Reasoning,
				"confidence": d.Confidence,
			},
		})
	}

	plan := a.engine.Plan(decisions)
	results := a.executePlan(ctx, plan)

	resp = a.synthesize(decisions, results)
	resp.BackendConfig = backendConfig

	a.experienceLoop(ctx, request, resp)
	a.tracker.CompleteTask()
	return resp
}

// maybeSelectPersona runs auto-selection and swaps the active persona
// when the selector disagrees with the current one.
func (a *Agent) maybeSelectPersona(ctx context.Context, request string) {
	if a.selector == nil {
		return
	}
	sel := a.selector.Select(ctx, request)
	if sel.Persona == a.persona.ID {
		return
	}
	if err := a.SwitchPersona(sel.Persona); err != nil {
		log.Warn().Err(err).Str("persona", string(sel.Persona)).Msg("persona switch rejected")
		return
	}
	a.contexts.Add(models.ContextEntry{
		Type: models.EntryDecision,
		Content: map[string]interface{}{
			"persona_switch": string(sel.Persona),
			"reasoning":      sel.Reasoning,
			"confidence":     sel.Confidence,
			"method":         string(sel.Method),
		},
	})
}

func (a *Agent) mapBackendConfig(request string) *models.BackendConfig {
	historyLen := 0
	if a.selector != nil {
		historyLen = a.selector.History().Len()
	}
	cfg := backendcfg.Map(a.persona.ID, request, historyLen)
	return &cfg
}

// ── Plan execution ───────────────────────────────────────────

// executePlan runs the plan's groups in order. Results are indexed by
// step position regardless of completion order. Once the context is
// canceled the remaining steps are recorded as canceled without being
// dispatched.
func (a *Agent) executePlan(ctx context.Context, plan models.WorkflowPlan) []models.ToolResult {
	// Soft ceiling derived from the plan's own estimate.
	if plan.EstimatedDurationMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Duration(plan.EstimatedDurationMs)*time.Millisecond)
		defer cancel()
	}

	results := make([]models.ToolResult, len(plan.Steps))
	canceled := false

	for _, group := range plan.ParallelGroups {
		if canceled || ctx.Err() != nil {
			canceled = true
			// Skipped steps still get a logged call/result pair so the
			// context log accounts for every planned dispatch.
			for _, idx := range group {
				step := plan.Steps[idx]
				a.contexts.Add(models.ContextEntry{
					Type: models.EntryToolCall,
					Content: map[string]interface{}{
						"tool":      step.ToolName,
						"arguments": step.Arguments,
					},
				})
				results[idx] = canceledResult(step.ToolName)
				a.contexts.Add(models.ContextEntry{
					Type: models.EntryToolResult,
					Content: map[string]interface{}{
						"tool":              step.ToolName,
						"success":           false,
						"execution_time_ms": int64(0),
					},
				})
			}
			continue
		}

		if a.cfg.ParallelToolExecution && len(group) > 1 {
			var g errgroup.Group
			for _, idx := range group {
				step := plan.Steps[idx]
				slot := &results[idx]
				g.Go(func() error {
					*slot = a.dispatchLogged(ctx, step)
					return nil
				})
			}
			g.Wait()
		} else {
			for _, idx := range group {
				results[idx] = a.dispatchLogged(ctx, plan.Steps[idx])
			}
		}
	}
	return results
}

// dispatchLogged brackets one dispatch with tool_call and tool_result
// context entries.
func (a *Agent) dispatchLogged(ctx context.Context, step models.ToolDecision) models.ToolResult {
	a.contexts.Add(models.ContextEntry{
		Type: models.EntryToolCall,
		Content: map[string]interface{}{
			"tool":      step.ToolName,
			"arguments": step.Arguments,
		},
	})

	res := a.dispatcher.Dispatch(ctx, step.ToolName, step.Arguments)

	a.contexts.Add(models.ContextEntry{
		Type: models.EntryToolResult,
		Content: map[string]interface{}{
			"tool":              res.ToolName,
			"success":           res.Success,
			"execution_time_ms": res.DurationMs,
		},
	})
	return res
}

func canceledResult(toolName string) models.ToolResult {
	return models.ToolResult{
		ToolName: toolName,
		Success:  false,
		Result: map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"kind": tools.ErrCanceled, "message": "canceled"},
		},
	}
}

// ── Synthesis ────────────────────────────────────────────────

func (a *Agent) synthesize(decisions []models.ToolDecision, results []models.ToolResult) models.AgentResponse {
	resp := models.AgentResponse{
		ToolCalls: make([]models.ToolCallSummary, 0, len(results)),
	}

	succeeded := 0
	for _, res := range results {
		resp.ToolCalls = append(resp.ToolCalls, models.ToolCallSummary{
			Tool:       res.ToolName,
			Success:    res.Success,
			DurationMs: res.DurationMs,
		})
		if res.Success {
			succeeded++
		}
	}
	for _, d := range decisions {
		resp.Reasoning = append(resp.Reasoning, d.Reasoning)
	}

	resp.Answer, resp.Sources = composeAnswer(results)

	successRate := 0.0
	if len(results) > 0 {
		successRate = float64(succeeded) / float64(len(results))
	}
	meanConfidence := 0.0
	for _, d := range decisions {
		meanConfidence += d.Confidence
	}
	if len(decisions) > 0 {
		meanConfidence /= float64(len(decisions))
	}
	resp.Confidence = (successRate + meanConfidence) / 2
	return resp
}

// composeAnswer prefers the first successful RAG-class answer, then a
// generic summary of whatever succeeded.
func composeAnswer(results []models.ToolResult) (string, []models.Source) {
	for _, res := range results {
		if !res.Success || !ragClass[res.ToolName] {
			continue
		}
		data, ok := res.Result["data"].(map[string]interface{})
		if !ok {
			continue
		}
		answer, ok := data["answer"].(string)
		if !ok || answer == "" {
			continue
		}
		return answer, extractSources(data["sources"])
	}

	var lines []string
	for _, res := range results {
		if !res.Success {
			continue
		}
		lines = append(lines, "- **"+res.ToolName+"** "+describeResult(res))
	}
	if len(lines) == 0 {
		return "I was unable to find relevant information to answer your question.", nil
	}
	return "Based on the available information:\n" + strings.Join(lines, "\n"), nil
}

func describeResult(res models.ToolResult) string {
	data, ok := res.Result["data"]
	if !ok {
		return "completed"
	}
	switch v := data.(type) {
	case []interface{}:
		return fmt.Sprintf("returned %d results", len(v))
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "returned keys: " + strings.Join(keys, ", ")
	default:
		return "completed"
	}
}

func extractSources(raw interface{}) []models.Source {
	if typed, ok := raw.([]models.Source); ok {
		return typed
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var sources []models.Source
	for _, item := range items {
		switch v := item.(type) {
		case map[string]interface{}:
			src := models.Source{}
			if text, ok := v["text"].(string); ok {
				src.Text = text
			}
			if meta, ok := v["metadata"].(map[string]interface{}); ok {
				src.Metadata = meta
			}
			sources = append(sources, src)
		case string:
			sources = append(sources, models.Source{Text: v})
		}
	}
	return sources
}

// fallbackResponse is returned when no decision pattern matched.
func (a *Agent) fallbackResponse() models.AgentResponse {
	var names []string
	for _, p := range persona.All() {
		names = append(names, string(p.ID)+" ("+p.Name+")")
	}
	return models.AgentResponse{
		Answer: "I could not map this request onto any of my tools. " +
			"Available personas: " + strings.Join(names, ", ") + ". " +
			"Try rephrasing with a concrete goal, file, or error message.",
		Reasoning:  []string{"No decision pattern matched the request"},
		Confidence: 0.3,
	}
}

func (a *Agent) errorResponse(message string) models.AgentResponse {
	return models.AgentResponse{
		Answer:     "I encountered an error: " + message,
		ToolCalls:  []models.ToolCallSummary{},
		Reasoning:  []string{"Error during processing"},
		Confidence: 0,
	}
}

// ── Experience loop ──────────────────────────────────────────

// experienceLoop persists the interaction per the persona's learning
// rate and triggers reflection at the configured cadence. Failures here
// are logged, never surfaced.
func (a *Agent) experienceLoop(ctx context.Context, request string, resp models.AgentResponse) {
	if a.memory == nil || !a.cfg.ExperienceStorage || !a.persona.AutoStore {
		return
	}

	outcome := models.OutcomeFromConfidence(resp.Confidence)
	if !decision.ShouldStoreExperience(outcome, resp.Confidence, a.persona.LearningRate) {
		return
	}

	toolNames := make([]string, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		toolNames = append(toolNames, tc.Tool)
	}

	exp := models.Experience{
		Context:     models.ExperienceContext{Task: request},
		ActionTaken: "Executed tools: " + strings.Join(toolNames, ", "),
		Outcome:     outcome,
		Tags:        append(toolNames, string(a.persona.ID)),
		Confidence:  resp.Confidence,
	}
	if _, err := a.memory.Store(ctx, exp); err != nil {
		log.Warn().Err(err).Msg("experience store failed")
		return
	}

	n := a.tracker.RecordExperience()
	if !decision.ShouldTriggerReflection(n, a.cfg.AutoReflectFrequency) {
		return
	}
	if _, _, err := a.memory.Reflect(ctx, ""); err != nil {
		log.Warn().Err(err).Msg("reflection failed")
		return
	}
	a.tracker.RecordReflection()
}
