package memory_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ragscout/ragscout/internal/memory"
	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
)

// fakeBackend records ingests and serves canned search and RAG results.
type fakeBackend struct {
	ingested   []models.IngestRequest
	searchHits []models.SearchResult
	ragAnswer  string
}

func (f *fakeBackend) Health(ctx context.Context) (string, error) { return "ok", nil }

func (f *fakeBackend) Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	return f.searchHits, nil
}

func (f *fakeBackend) RAG(ctx context.Context, req models.RAGRequest) (*models.RAGResult, error) {
	return &models.RAGResult{Answer: f.ragAnswer}, nil
}

func (f *fakeBackend) Ingest(ctx context.Context, req models.IngestRequest) ([]string, error) {
	f.ingested = append(f.ingested, req)
	return []string{"doc-1"}, nil
}

func (f *fakeBackend) Graph(ctx context.Context, req models.GraphRequest) (*models.GraphResult, error) {
	return &models.GraphResult{}, nil
}

func (f *fakeBackend) Agent(ctx context.Context, req models.AgentRequest) (contracts.AgentStream, error) {
	return nil, errors.New("not implemented")
}

// hit wraps an experience the way the store persists it.
func hit(t *testing.T, exp models.Experience) models.SearchResult {
	t.Helper()
	raw, err := json.Marshal(exp)
	if err != nil {
		t.Fatal(err)
	}
	return models.SearchResult{
		DocumentID: exp.ID,
		Content:    "body",
		Metadata: map[string]interface{}{
			"file_path":  "experiences/" + exp.ID + ".md",
			"experience": string(raw),
			"outcome":    string(exp.Outcome),
		},
		Score: 0.9,
	}
}

func experience(id string, outcome models.Outcome, confidence float64, tags ...string) models.Experience {
	return models.Experience{
		ID:          id,
		Timestamp:   time.Now().UTC(),
		Context:     models.ExperienceContext{Task: "task for " + id},
		ActionTaken: "did a thing",
		Outcome:     outcome,
		Tags:        tags,
		Confidence:  confidence,
	}
}

func TestStoreAssignsIDAndWritesMarkdown(t *testing.T) {
	be := &fakeBackend{}
	s := memory.NewStore(be)

	id, err := s.Store(context.Background(), models.Experience{
		Context:        models.ExperienceContext{Task: "implement auth", Technologies: []string{"go"}},
		ActionTaken:    "added middleware",
		Outcome:        models.OutcomeSuccess,
		LearnedPattern: "wrap handlers once",
		Tags:           []string{"auth"},
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a generated experience ID")
	}
	if len(be.ingested) != 1 || len(be.ingested[0].Chunks) != 1 {
		t.Fatalf("ingested = %+v, want one chunk", be.ingested)
	}

	chunk := be.ingested[0].Chunks[0]
	path, _ := chunk.Metadata["file_path"].(string)
	if !strings.HasPrefix(path, "experiences/") {
		t.Errorf("file_path = %q, want experiences/ prefix", path)
	}
	for _, fragment := range []string{"implement auth", "added middleware", "success", "wrap handlers once", "auth"} {
		if !strings.Contains(chunk.Text, fragment) {
			t.Errorf("markdown body missing %q:\n%s", fragment, chunk.Text)
		}
	}
}

func TestStoreMetadataRoundTrips(t *testing.T) {
	be := &fakeBackend{}
	s := memory.NewStore(be)

	original := experience("exp-1", models.OutcomePartial, 0.6, "cache", "perf")
	if _, err := s.Store(context.Background(), original); err != nil {
		t.Fatalf("Store: %v", err)
	}

	raw, _ := be.ingested[0].Chunks[0].Metadata["experience"].(string)
	var decoded models.Experience
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("metadata does not round-trip: %v", err)
	}
	if decoded.ID != original.ID || decoded.Outcome != original.Outcome || len(decoded.Tags) != 2 {
		t.Errorf("decoded = %+v, want the original record", decoded)
	}
}

func TestRetrieveSimilarFiltersTagsAndConfidence(t *testing.T) {
	be := &fakeBackend{searchHits: []models.SearchResult{
		hit(t, experience("exp-1", models.OutcomeSuccess, 0.9, "auth", "jwt")),
		hit(t, experience("exp-2", models.OutcomeSuccess, 0.5, "auth")),
		hit(t, experience("exp-3", models.OutcomeFailure, 0.95, "cache")),
	}}
	s := memory.NewStore(be)

	got, err := s.RetrieveSimilar(context.Background(), "auth problems", []string{"auth"}, 0.8, 5)
	if err != nil {
		t.Fatalf("RetrieveSimilar: %v", err)
	}
	if len(got) != 1 || got[0].ID != "exp-1" {
		t.Errorf("got = %+v, want only exp-1", got)
	}
}

func TestRetrieveSimilarHonorsLimit(t *testing.T) {
	be := &fakeBackend{searchHits: []models.SearchResult{
		hit(t, experience("exp-1", models.OutcomeSuccess, 0.9)),
		hit(t, experience("exp-2", models.OutcomeSuccess, 0.9)),
		hit(t, experience("exp-3", models.OutcomeSuccess, 0.9)),
	}}
	s := memory.NewStore(be)

	got, err := s.RetrieveSimilar(context.Background(), "anything", nil, 0, 2)
	if err != nil {
		t.Fatalf("RetrieveSimilar: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d experiences, want 2", len(got))
	}
}

func TestReflectExtractsPatterns(t *testing.T) {
	be := &fakeBackend{ragAnswer: "Observations:\n- retries mask config errors\n- cache keys drift\nOverall the sessions went well."}
	s := memory.NewStore(be)

	patterns, insights, err := s.Reflect(context.Background(), "reliability")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("patterns = %v, want 2 bullet lines", patterns)
	}
	if patterns[0] != "retries mask config errors" {
		t.Errorf("patterns[0] = %q", patterns[0])
	}
	if insights == "" {
		t.Error("Expected free-form insights text")
	}
}

func TestStatsAggregatesOutcomesAndTags(t *testing.T) {
	be := &fakeBackend{searchHits: []models.SearchResult{
		hit(t, experience("exp-1", models.OutcomeSuccess, 0.9, "auth")),
		hit(t, experience("exp-2", models.OutcomeSuccess, 0.8, "auth", "jwt")),
		hit(t, experience("exp-3", models.OutcomeFailure, 0.2, "cache")),
	}}
	s := memory.NewStore(be)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total_experiences"] != 3 {
		t.Errorf("total_experiences = %v, want 3", stats["total_experiences"])
	}
	byOutcome, _ := stats["by_outcome"].(map[string]int)
	if byOutcome["success"] != 2 || byOutcome["failure"] != 1 {
		t.Errorf("by_outcome = %v", byOutcome)
	}
}
