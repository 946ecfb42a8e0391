package orchestrator_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ragscout/ragscout/internal/orchestrator"
	"github.com/ragscout/ragscout/internal/persona"
	"github.com/ragscout/ragscout/internal/tools"
	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
)

// mockBackend serves canned results and counts calls. Search may run from
// parallel groups, so the counters are mutex-guarded.
type mockBackend struct {
	mu          sync.Mutex
	searchCalls int
	ragCalls    int
	ragAnswer   string
	ragSources  []models.Source
}

func (m *mockBackend) Health(ctx context.Context) (string, error) { return "ok", nil }

func (m *mockBackend) Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.SearchResult{{DocumentID: "doc-1", Content: "hit", Score: 0.9}}, nil
}

func (m *mockBackend) RAG(ctx context.Context, req models.RAGRequest) (*models.RAGResult, error) {
	m.mu.Lock()
	m.ragCalls++
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.RAGResult{Answer: m.ragAnswer, Sources: m.ragSources}, nil
}

func (m *mockBackend) Ingest(ctx context.Context, req models.IngestRequest) ([]string, error) {
	return []string{"doc-1"}, nil
}

func (m *mockBackend) Graph(ctx context.Context, req models.GraphRequest) (*models.GraphResult, error) {
	return &models.GraphResult{}, nil
}

func (m *mockBackend) Agent(ctx context.Context, req models.AgentRequest) (contracts.AgentStream, error) {
	return nil, errors.New("not implemented")
}

type mockMemory struct {
	stored   []models.Experience
	reflects int
}

func (m *mockMemory) Store(ctx context.Context, exp models.Experience) (string, error) {
	m.stored = append(m.stored, exp)
	return "exp-1", nil
}

func (m *mockMemory) RetrieveSimilar(ctx context.Context, query string, tags []string, minConfidence float64, limit int) ([]models.Experience, error) {
	return nil, nil
}

func (m *mockMemory) Reflect(ctx context.Context, focus string) ([]string, string, error) {
	m.reflects++
	return []string{"pattern"}, "insights", nil
}

func (m *mockMemory) Stats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"total_experiences": len(m.stored)}, nil
}

func newAgent(t *testing.T, cfg models.AgentConfig, be contracts.Backend, mem *mockMemory, opts orchestrator.Options) *orchestrator.Agent {
	t.Helper()
	a, err := orchestrator.New(cfg, tools.NewDispatcher(be, mem), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestProcessNeverReturnsPanic(t *testing.T) {
	// A nil backend makes every dispatch panic; Process must absorb it.
	a := newAgent(t, models.DefaultAgentConfig(models.PersonaDeveloper), nil, nil, orchestrator.Options{})

	resp := a.Process(context.Background(), "Find the config file")
	if !strings.HasPrefix(resp.Answer, "I encountered an error:") {
		t.Errorf("Answer = %q, want error diagnostic", resp.Answer)
	}
	if resp.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", resp.Confidence)
	}
	if len(resp.Reasoning) != 1 || resp.Reasoning[0] != "Error during processing" {
		t.Errorf("Reasoning = %v", resp.Reasoning)
	}
	if resp.Metadata == nil || resp.Metadata["persona_id"] != "developer" {
		t.Errorf("Metadata = %v, want persona_id developer", resp.Metadata)
	}
}

func TestProcessFallbackWhenNothingMatches(t *testing.T) {
	a := newAgent(t, models.DefaultAgentConfig(models.PersonaDeveloper), &mockBackend{}, nil, orchestrator.Options{})

	resp := a.Process(context.Background(), "Good morning")
	if resp.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", resp.Confidence)
	}
	if !strings.Contains(resp.Answer, "Available personas") {
		t.Errorf("Answer = %q, want persona guidance", resp.Answer)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %v, want none", resp.ToolCalls)
	}
	if resp.BackendConfig == nil {
		t.Error("Expected a BackendConfig even on the fallback path")
	}
}

func TestProcessPromotesRAGAnswer(t *testing.T) {
	be := &mockBackend{
		ragAnswer:  "The token expired; refresh it before retrying.",
		ragSources: []models.Source{{Text: "auth.md"}},
	}
	a := newAgent(t, models.DefaultAgentConfig(models.PersonaDeveloper), be, nil, orchestrator.Options{})

	resp := a.Process(context.Background(), "Why does the login fail with a 401 error")
	if resp.Answer != be.ragAnswer {
		t.Errorf("Answer = %q, want the RAG answer", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Text != "auth.md" {
		t.Errorf("Sources = %v", resp.Sources)
	}

	// debug_with_rag (0.85) and ask_documentation (0.70) both succeed:
	// (1.0 + 0.775) / 2.
	if math.Abs(resp.Confidence-0.8875) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.8875", resp.Confidence)
	}
	if len(resp.ToolCalls) != 2 || resp.ToolCalls[0].Tool != tools.DebugWithRAG {
		t.Errorf("ToolCalls = %v", resp.ToolCalls)
	}
}

func TestProcessLogsEveryToolCall(t *testing.T) {
	be := &mockBackend{ragAnswer: "answer"}
	a := newAgent(t, models.DefaultAgentConfig(models.PersonaDeveloper), be, nil, orchestrator.Options{})

	resp := a.Process(context.Background(), "Why does the login fail with a 401 error")

	calls := a.Contexts().GetByType(models.EntryToolCall)
	results := a.Contexts().GetByType(models.EntryToolResult)
	if len(calls) != len(resp.ToolCalls) {
		t.Errorf("tool_call entries = %d, want %d", len(calls), len(resp.ToolCalls))
	}
	if len(results) != len(resp.ToolCalls) {
		t.Errorf("tool_result entries = %d, want %d", len(results), len(resp.ToolCalls))
	}
}

func TestProcessParallelAndSerialAgree(t *testing.T) {
	// Two adjacent search-class decisions form one parallel group.
	request := "Find an example of the search function"

	run := func(parallel bool) models.AgentResponse {
		be := &mockBackend{}
		cfg := models.DefaultAgentConfig(models.PersonaDeveloper)
		cfg.ParallelToolExecution = parallel
		a := newAgent(t, cfg, be, nil, orchestrator.Options{})
		resp := a.Process(context.Background(), request)
		if be.searchCalls != 2 {
			t.Fatalf("searchCalls = %d, want 2", be.searchCalls)
		}
		return resp
	}

	par := run(true)
	ser := run(false)

	if par.Answer != ser.Answer {
		t.Errorf("parallel answer %q != serial answer %q", par.Answer, ser.Answer)
	}
	if len(par.ToolCalls) != len(ser.ToolCalls) {
		t.Fatalf("tool call counts differ: %d vs %d", len(par.ToolCalls), len(ser.ToolCalls))
	}
	for i := range par.ToolCalls {
		if par.ToolCalls[i].Tool != ser.ToolCalls[i].Tool {
			t.Errorf("step %d: %q vs %q", i, par.ToolCalls[i].Tool, ser.ToolCalls[i].Tool)
		}
	}
}

func TestProcessCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newAgent(t, models.DefaultAgentConfig(models.PersonaDeveloper), &mockBackend{}, nil, orchestrator.Options{})
	resp := a.Process(ctx, "Why does the login fail with a 401 error")

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("ToolCalls = %v, want 2 canceled entries", resp.ToolCalls)
	}
	for _, tc := range resp.ToolCalls {
		if tc.Success {
			t.Errorf("%s succeeded under a canceled context", tc.Tool)
		}
	}
	if !strings.Contains(resp.Answer, "unable to find") {
		t.Errorf("Answer = %q", resp.Answer)
	}

	// Canceled steps are still accounted for in the context log.
	calls := a.Contexts().GetByType(models.EntryToolCall)
	results := a.Contexts().GetByType(models.EntryToolResult)
	if len(calls) != len(resp.ToolCalls) {
		t.Errorf("tool_call entries = %d, want %d", len(calls), len(resp.ToolCalls))
	}
	if len(results) != len(resp.ToolCalls) {
		t.Errorf("tool_result entries = %d, want %d", len(results), len(resp.ToolCalls))
	}
}

func TestExperienceLoopStoresAndReflects(t *testing.T) {
	be := &mockBackend{ragAnswer: "diagnosis"}
	mem := &mockMemory{}
	cfg := models.DefaultAgentConfig(models.PersonaDebugger)
	cfg.AutoReflectFrequency = 1
	a := newAgent(t, cfg, be, mem, orchestrator.Options{Memory: mem})

	resp := a.Process(context.Background(), "Why does the login fail with a 401 error")
	if resp.Confidence == 0 {
		t.Fatalf("unexpected failure response: %q", resp.Answer)
	}
	if len(mem.stored) != 1 {
		t.Fatalf("stored = %d experiences, want 1", len(mem.stored))
	}
	if mem.reflects != 1 {
		t.Errorf("reflects = %d, want 1", mem.reflects)
	}

	exp := mem.stored[0]
	if exp.Context.Task == "" || len(exp.Tags) == 0 {
		t.Errorf("experience missing task or tags: %+v", exp)
	}
	if exp.Tags[len(exp.Tags)-1] != "debugger" {
		t.Errorf("Tags = %v, want persona ID last", exp.Tags)
	}
}

func TestExperienceLoopRespectsPersonaAutoStore(t *testing.T) {
	be := &mockBackend{ragAnswer: "a goroutine is a lightweight thread"}
	mem := &mockMemory{}
	a := newAgent(t, models.DefaultAgentConfig(models.PersonaLearner), be, mem, orchestrator.Options{Memory: mem})

	a.Process(context.Background(), "What is a goroutine")
	if len(mem.stored) != 0 {
		t.Errorf("stored = %d experiences, want none for this persona", len(mem.stored))
	}
}

func TestProcessAutoSwitchesPersona(t *testing.T) {
	history := persona.LoadHistory(filepath.Join(t.TempDir(), "history.json"))
	selector := persona.NewSelector(nil, history)

	be := &mockBackend{ragAnswer: "diagnosis"}
	a := newAgent(t, models.DefaultAgentConfig(models.PersonaDeveloper), be, nil,
		orchestrator.Options{Selector: selector})

	a.Process(context.Background(), "Fix this error: request fails with 401 unauthorized")
	if a.Persona().ID != models.PersonaDebugger {
		t.Errorf("persona = %s, want debugger", a.Persona().ID)
	}

	switched := false
	for _, e := range a.Contexts().GetByType(models.EntryDecision) {
		if _, ok := e.Content["persona_switch"]; ok {
			switched = true
		}
	}
	if !switched {
		t.Error("Expected a persona_switch decision entry")
	}
}

func TestSwitchPersonaRejectsUnknownID(t *testing.T) {
	a := newAgent(t, models.DefaultAgentConfig(models.PersonaDeveloper), &mockBackend{}, nil, orchestrator.Options{})
	if err := a.SwitchPersona("wizard"); err == nil {
		t.Error("Expected an error for an unknown persona")
	}
	if a.Persona().ID != models.PersonaDeveloper {
		t.Errorf("persona = %s, want developer unchanged", a.Persona().ID)
	}
}
