package tools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ragscout/ragscout/internal/backend"
	"github.com/ragscout/ragscout/internal/telemetry"
	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Error kinds reported in structured tool failures.
const (
	ErrBadInput           = "bad_input"
	ErrBackendUnavailable = "backend_unavailable"
	ErrUnauthorized       = "unauthorized"
	ErrCanceled           = "canceled"
	ErrUnknownTool        = "unknown_tool"
)

// ExperienceService is the slice of the experience memory the dispatcher
// needs. Implemented by internal/memory.Store.
type ExperienceService interface {
	Store(ctx context.Context, exp models.Experience) (string, error)
	RetrieveSimilar(ctx context.Context, query string, tags []string, minConfidence float64, limit int) ([]models.Experience, error)
	Reflect(ctx context.Context, focus string) (patterns []string, insights string, err error)
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// Dispatcher validates tool arguments and routes each call to the backend
// or the experience memory. It never returns a Go error for a failed call;
// failures come back as ToolResult{Success:false}.
type Dispatcher struct {
	backend contracts.Backend
	memory  ExperienceService
}

// NewDispatcher creates a dispatcher over the given collaborators.
func NewDispatcher(be contracts.Backend, mem ExperienceService) *Dispatcher {
	return &Dispatcher{backend: be, memory: mem}
}

// Dispatch runs one tool call and returns a structured result.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, args map[string]interface{}) models.ToolResult {
	start := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "tool.dispatch")
	span.SetAttributes(attribute.String("tool", toolName))
	defer span.End()

	op, ok := Lookup(toolName)
	if !ok {
		return failure(toolName, ErrUnknownTool, "Unknown tool: "+toolName, start)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	if err := validateArgs(op, args); err != nil {
		return failure(toolName, ErrBadInput, err.Error(), start)
	}

	data, err := d.invoke(ctx, toolName, args)
	if err != nil {
		kind := classify(err)
		log.Warn().
			Str("tool", toolName).
			Str("kind", kind).
			Err(err).
			Msg("Tool dispatch failed")
		return failure(toolName, kind, err.Error(), start)
	}

	return models.ToolResult{
		ToolName: toolName,
		Success:  true,
		Result: map[string]interface{}{
			"success": true,
			"data":    data,
			"metadata": map[string]interface{}{
				"execution_time_ms": time.Since(start).Milliseconds(),
				"source":            "rag_backend",
			},
		},
		DurationMs: time.Since(start).Milliseconds(),
	}
}

func (d *Dispatcher) invoke(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	switch toolName {
	case SearchDocumentation:
		return d.search(ctx, strArg(args, "query"), args, nil)
	case SearchCodeExamples:
		return d.search(ctx, strArg(args, "description"), args, map[string]interface{}{"chunk_type": "code"})
	case FindTestExamples:
		return d.search(ctx, strArg(args, "query"), args, map[string]interface{}{"chunk_type": "test"})

	case AskDocumentation:
		return d.rag(ctx, strArg(args, "question"), intArg(args, "top_k", 5))
	case GetImplementationHelp:
		return d.rag(ctx, strArg(args, "feature_description"), 7)
	case DebugWithRAG:
		return d.rag(ctx, strArg(args, "error_message"), 7)
	case ExplainArchitecture:
		return d.rag(ctx, strArg(args, "aspect"), 7)

	case StoreExperience:
		return d.storeExperience(ctx, args)
	case RetrieveSimilarExperiences:
		exps, err := d.memory.RetrieveSimilar(ctx,
			strArg(args, "query"),
			strSliceArg(args, "tags"),
			floatArg(args, "min_confidence", 0),
			intArg(args, "limit", 5),
		)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"experiences": exps, "count": len(exps)}, nil
	case ReflectOnPatterns:
		patterns, insights, err := d.memory.Reflect(ctx, strArg(args, "focus"))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"patterns": patterns, "insights": insights}, nil
	case GetMemoryStats:
		return d.memory.Stats(ctx)

	case QueryCodeRelationships:
		return d.graph(ctx, strArg(args, "entity"), strSliceArg(args, "relationship_types"), intArg(args, "max_depth", 1))
	case FindDependencies:
		types := []string{"imports", "depends_on"}
		depth := 1
		if boolArg(args, "include_transitive", false) {
			depth = 3
		}
		return d.graph(ctx, strArg(args, "module_path"), types, depth)
	case FindUsages:
		return d.graph(ctx, strArg(args, "module_path"), []string{"calls", "uses"}, 1)
	case FindTestCoverage:
		return d.graph(ctx, strArg(args, "module_path"), []string{"tests"}, 1)
	case ExploreArchitectureGraph:
		root := strArg(args, "root_module")
		if root == "" {
			root = "src/"
		}
		return d.graph(ctx, root, nil, intArg(args, "max_depth", 2))

	default:
		// Unreachable: Lookup guards the catalog.
		return nil, errors.New("unhandled tool: " + toolName)
	}
}

// ── Backend invocations ──────────────────────────────────────

func (d *Dispatcher) search(ctx context.Context, query string, args map[string]interface{}, filters map[string]interface{}) (interface{}, error) {
	mode := models.SearchMode(strArg(args, "search_mode"))
	if mode == "" {
		mode = models.SearchModeHybrid
	}
	results, err := d.backend.Search(ctx, models.SearchRequest{
		Query:      query,
		SearchMode: mode,
		Limit:      intArg(args, "top_k", 5),
		Filters:    filters,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"results": results, "count": len(results)}, nil
}

func (d *Dispatcher) rag(ctx context.Context, query string, limit int) (interface{}, error) {
	result, err := d.backend.RAG(ctx, models.RAGRequest{
		Query: query,
		GenerationConfig: models.GenerationConfig{
			Model:             "default",
			Temperature:       0.3,
			MaxTokensToSample: 2048,
		},
		SearchSettings: models.SearchSettings{
			UseHybridSearch: true,
			Limit:           limit,
		},
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"answer": result.Answer, "sources": result.Sources}, nil
}

func (d *Dispatcher) graph(ctx context.Context, entity string, relTypes []string, depth int) (interface{}, error) {
	result, err := d.backend.Graph(ctx, models.GraphRequest{
		EntityID:          entity,
		RelationshipTypes: relTypes,
		MaxDepth:          depth,
		Limit:             50,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"entities":      result.Entities,
		"relationships": result.Relationships,
	}, nil
}

func (d *Dispatcher) storeExperience(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	outcome := models.Outcome(strArg(args, "outcome"))
	if outcome == "" {
		outcome = models.OutcomeFromConfidence(floatArg(args, "confidence", 0.5))
	}
	exp := models.Experience{
		Timestamp:      time.Now().UTC(),
		Context:        models.ExperienceContext{Task: strArg(args, "task")},
		ActionTaken:    strArg(args, "action_taken"),
		Outcome:        outcome,
		LearnedPattern: strArg(args, "learned_pattern"),
		CodeSnippet:    strArg(args, "code_snippet"),
		Tags:           strSliceArg(args, "tags"),
		Confidence:     floatArg(args, "confidence", 0),
	}
	id, err := d.memory.Store(ctx, exp)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"experience_id": id, "outcome": outcome}, nil
}

// ── Error classification ─────────────────────────────────────

func classify(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCanceled
	}
	var status *backend.StatusError
	if errors.As(err, &status) {
		switch {
		case status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden:
			return ErrUnauthorized
		case status.Code == http.StatusBadRequest || status.Code == http.StatusUnprocessableEntity:
			return ErrBadInput
		default:
			return ErrBackendUnavailable
		}
	}
	return ErrBackendUnavailable
}

func failure(toolName, kind, message string, start time.Time) models.ToolResult {
	return models.ToolResult{
		ToolName: toolName,
		Success:  false,
		Result: map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"kind": kind, "message": message},
			"metadata": map[string]interface{}{
				"execution_time_ms": time.Since(start).Milliseconds(),
			},
		},
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// ── Argument helpers ─────────────────────────────────────────
//
// JSON numbers arrive as float64; these helpers coerce loosely typed
// argument maps into what the handlers need.

func strArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]interface{}, key string, defaultVal int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return defaultVal
}

func floatArg(args map[string]interface{}, key string, defaultVal float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultVal
}

func boolArg(args map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return defaultVal
}

func strSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
