package tools_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ragscout/ragscout/internal/backend"
	"github.com/ragscout/ragscout/internal/tools"
	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
)

// mockBackend is a canned contracts.Backend.
type mockBackend struct {
	searchResults []models.SearchResult
	searchErr     error
	ragResult     *models.RAGResult
	ragErr        error
	graphResult   *models.GraphResult

	lastSearch models.SearchRequest
}

func (m *mockBackend) Health(ctx context.Context) (string, error) { return "ok", nil }

func (m *mockBackend) Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.lastSearch = req
	return m.searchResults, m.searchErr
}

func (m *mockBackend) RAG(ctx context.Context, req models.RAGRequest) (*models.RAGResult, error) {
	if m.ragErr != nil {
		return nil, m.ragErr
	}
	if m.ragResult != nil {
		return m.ragResult, nil
	}
	return &models.RAGResult{Answer: "mock answer"}, nil
}

func (m *mockBackend) Ingest(ctx context.Context, req models.IngestRequest) ([]string, error) {
	return []string{"doc-1"}, nil
}

func (m *mockBackend) Graph(ctx context.Context, req models.GraphRequest) (*models.GraphResult, error) {
	if m.graphResult != nil {
		return m.graphResult, nil
	}
	return &models.GraphResult{}, nil
}

func (m *mockBackend) Agent(ctx context.Context, req models.AgentRequest) (contracts.AgentStream, error) {
	return nil, errors.New("not implemented")
}

// mockMemory is a canned tools.ExperienceService.
type mockMemory struct {
	stored []models.Experience
}

func (m *mockMemory) Store(ctx context.Context, exp models.Experience) (string, error) {
	m.stored = append(m.stored, exp)
	return "exp-1", nil
}

func (m *mockMemory) RetrieveSimilar(ctx context.Context, query string, tags []string, minConfidence float64, limit int) ([]models.Experience, error) {
	return nil, nil
}

func (m *mockMemory) Reflect(ctx context.Context, focus string) ([]string, string, error) {
	return []string{"pattern"}, "insights", nil
}

func (m *mockMemory) Stats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"total_experiences": 0}, nil
}

func newDispatcher(t *testing.T) (*tools.Dispatcher, *mockBackend, *mockMemory) {
	t.Helper()
	be := &mockBackend{}
	mem := &mockMemory{}
	return tools.NewDispatcher(be, mem), be, mem
}

func errorKind(t *testing.T, res models.ToolResult) string {
	t.Helper()
	errObj, ok := res.Result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("result carries no error object: %v", res.Result)
	}
	kind, _ := errObj["kind"].(string)
	return kind
}

func TestDispatchUnknownTool(t *testing.T) {
	d, _, _ := newDispatcher(t)
	res := d.Dispatch(context.Background(), "summon_dragon", nil)

	if res.Success {
		t.Fatal("Expected failure for unknown tool")
	}
	if got := errorKind(t, res); got != tools.ErrUnknownTool {
		t.Errorf("error kind = %s, want unknown_tool", got)
	}
}

func TestDispatchRejectsMissingRequiredArg(t *testing.T) {
	d, be, _ := newDispatcher(t)
	res := d.Dispatch(context.Background(), tools.SearchDocumentation, map[string]interface{}{})

	if res.Success {
		t.Fatal("Expected failure for missing required argument")
	}
	if got := errorKind(t, res); got != tools.ErrBadInput {
		t.Errorf("error kind = %s, want bad_input", got)
	}
	if be.lastSearch.Query != "" {
		t.Error("Backend must not be invoked when validation fails")
	}
}

func TestDispatchRejectsUnknownArgKey(t *testing.T) {
	d, _, _ := newDispatcher(t)
	res := d.Dispatch(context.Background(), tools.SearchDocumentation, map[string]interface{}{
		"query":   "auth",
		"mystery": 42,
	})
	if res.Success {
		t.Fatal("Expected failure for unknown argument key")
	}
	if got := errorKind(t, res); got != tools.ErrBadInput {
		t.Errorf("error kind = %s, want bad_input", got)
	}
}

func TestDispatchSearchSuccess(t *testing.T) {
	d, be, _ := newDispatcher(t)
	be.searchResults = []models.SearchResult{{DocumentID: "d1", Content: "hit", Score: 0.9}}

	res := d.Dispatch(context.Background(), tools.SearchDocumentation, map[string]interface{}{
		"query": "session config",
		"top_k": float64(3),
	})
	if !res.Success {
		t.Fatalf("Dispatch failed: %v", res.Result)
	}
	if be.lastSearch.Limit != 3 {
		t.Errorf("Limit = %d, want 3", be.lastSearch.Limit)
	}

	data, ok := res.Result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing data payload: %v", res.Result)
	}
	if data["count"] != 1 {
		t.Errorf("count = %v, want 1", data["count"])
	}
	meta, ok := res.Result["metadata"].(map[string]interface{})
	if !ok || meta["source"] != "rag_backend" {
		t.Errorf("metadata = %v, want source rag_backend", res.Result["metadata"])
	}
}

func TestDispatchRAGToolReturnsAnswer(t *testing.T) {
	d, be, _ := newDispatcher(t)
	be.ragResult = &models.RAGResult{
		Answer:  "use the middleware",
		Sources: []models.Source{{Text: "docs"}},
	}

	res := d.Dispatch(context.Background(), tools.AskDocumentation, map[string]interface{}{
		"question": "How does auth work?",
	})
	if !res.Success {
		t.Fatalf("Dispatch failed: %v", res.Result)
	}
	data := res.Result["data"].(map[string]interface{})
	if data["answer"] != "use the middleware" {
		t.Errorf("answer = %v, want the RAG answer", data["answer"])
	}
}

func TestDispatchClassifiesBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", &backend.StatusError{Code: http.StatusUnauthorized}, tools.ErrUnauthorized},
		{"bad request", &backend.StatusError{Code: http.StatusUnprocessableEntity}, tools.ErrBadInput},
		{"server error", &backend.StatusError{Code: http.StatusBadGateway}, tools.ErrBackendUnavailable},
		{"transport error", errors.New("connection refused"), tools.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, be, _ := newDispatcher(t)
			be.searchErr = tt.err

			res := d.Dispatch(context.Background(), tools.SearchDocumentation, map[string]interface{}{
				"query": "anything",
			})
			if res.Success {
				t.Fatal("Expected failure")
			}
			if got := errorKind(t, res); got != tt.want {
				t.Errorf("error kind = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDispatchCanceledContext(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := d.Dispatch(ctx, tools.SearchDocumentation, map[string]interface{}{"query": "anything"})
	if res.Success {
		t.Fatal("Expected failure for canceled context")
	}
	if got := errorKind(t, res); got != tools.ErrCanceled {
		t.Errorf("error kind = %s, want canceled", got)
	}
}

func TestDispatchStoreExperience(t *testing.T) {
	d, _, mem := newDispatcher(t)

	res := d.Dispatch(context.Background(), tools.StoreExperience, map[string]interface{}{
		"task":         "implement auth",
		"action_taken": "added middleware",
		"confidence":   0.9,
	})
	if !res.Success {
		t.Fatalf("Dispatch failed: %v", res.Result)
	}
	if len(mem.stored) != 1 {
		t.Fatalf("stored %d experiences, want 1", len(mem.stored))
	}
	if mem.stored[0].Outcome != models.OutcomeSuccess {
		t.Errorf("outcome = %s, want success derived from confidence 0.9", mem.stored[0].Outcome)
	}
}

func TestCatalogListIsStable(t *testing.T) {
	first := tools.Names()
	second := tools.Names()
	if len(first) != 16 {
		t.Fatalf("catalog has %d tools, want 16", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Names() order unstable at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestInputSchemaMarksRequired(t *testing.T) {
	op, ok := tools.Lookup(tools.SearchDocumentation)
	if !ok {
		t.Fatal("search_documentation missing from catalog")
	}
	schema := op.InputSchema()
	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "query" {
		t.Errorf("required = %v, want [query]", required)
	}
}
