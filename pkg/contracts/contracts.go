// Package contracts defines the service interfaces of the RagScout
// orchestrator.
//
// The orchestration kernel, the tool dispatcher, and the experience memory
// all depend on these interfaces rather than on concrete clients, so tests
// can substitute in-memory fakes and embedding applications can supply their
// own backend transport.
package contracts

import (
	"context"

	"github.com/ragscout/ragscout/pkg/models"
)

// ── RAG Backend ──────────────────────────────────────────────

// Backend is the south-bound interface to the remote RAG service.
// Production implementation: internal/backend.Client.
type Backend interface {
	// Health checks backend reachability and returns its status string.
	Health(ctx context.Context) (string, error)

	// Search runs a chunk search and returns normalized scored results.
	Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error)

	// RAG runs a retrieval-augmented generation query.
	RAG(ctx context.Context, req models.RAGRequest) (*models.RAGResult, error)

	// Ingest indexes chunks and returns the assigned document IDs.
	Ingest(ctx context.Context, req models.IngestRequest) ([]string, error)

	// Graph queries the code relationship graph.
	Graph(ctx context.Context, req models.GraphRequest) (*models.GraphResult, error)

	// Agent opens a streaming agent conversation. The caller must drain
	// or close the returned stream.
	Agent(ctx context.Context, req models.AgentRequest) (AgentStream, error)
}

// AgentStream is a pull-based iterator over streaming agent events.
// Next returns io.EOF when the stream ends.
type AgentStream interface {
	Next() (*models.AgentEvent, error)
	Close() error
}

// ── Persona Classifier ───────────────────────────────────────

// Classification is the structured output of the persona classifier.
type Classification struct {
	Persona    models.PersonaID `json:"persona"`
	Reasoning  string           `json:"reasoning"`
	Confidence float64          `json:"confidence"`
}

// Classifier is the LLM used for persona selection. Implementations must
// enforce the structured-output contract: persona is one of the five
// enumerated IDs and confidence lies in [0,1].
type Classifier interface {
	Classify(ctx context.Context, systemPrompt, userPrompt string) (*Classification, error)
}
