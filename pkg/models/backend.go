package models

import "encoding/json"

// ── Backend Wire Types ───────────────────────────────────────
//
// Request and response shapes for the remote RAG backend. The orchestrator
// adapts between the backend's v2 ({success,data,error}) and v3 ({results})
// envelope styles; the types here are the normalized forms the rest of the
// code sees.

// SearchMode selects the backend's retrieval mechanism.
type SearchMode string

const (
	SearchModeKeyword  SearchMode = "keyword"
	SearchModeSemantic SearchMode = "semantic"
	SearchModeHybrid   SearchMode = "hybrid"
)

// SearchRequest is a chunk search against the backend index.
type SearchRequest struct {
	Query          string                 `json:"query"`
	SearchMode     SearchMode             `json:"search_mode,omitempty"`
	Limit          int                    `json:"limit,omitempty"`
	Filters        map[string]interface{} `json:"filters,omitempty"`
	HybridSettings *HybridSettings        `json:"hybrid_settings,omitempty"`
}

// SearchResult is one scored chunk.
type SearchResult struct {
	DocumentID string                 `json:"document_id"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Score      float64                `json:"score"`
}

// RAGRequest is a retrieval-augmented generation query.
type RAGRequest struct {
	Query            string           `json:"query"`
	GenerationConfig GenerationConfig `json:"rag_generation_config"`
	SearchSettings   SearchSettings   `json:"search_settings"`
}

// RAGResult is the generated answer plus its citations.
type RAGResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources,omitempty"`
}

// IngestChunk is one unit of text to index.
type IngestChunk struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IngestRequest pushes chunks into the backend store.
type IngestRequest struct {
	Chunks        []IngestChunk `json:"chunks"`
	CollectionIDs []string      `json:"collection_ids,omitempty"`
}

// GraphRequest queries the code relationship graph.
type GraphRequest struct {
	EntityID          string   `json:"entity_id"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	MaxDepth          int      `json:"max_depth,omitempty"`
	Limit             int      `json:"limit,omitempty"`
}

// GraphEntity is one node in a graph query result.
type GraphEntity struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Category string                 `json:"category,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// GraphRelationship is one edge, expressed as indices into the entity
// slice. The graph is a directed multigraph; indices keep it flat instead
// of forcing an owning tree onto cyclic data.
type GraphRelationship struct {
	SourceIndex int    `json:"source_index"`
	TargetIndex int    `json:"target_index"`
	Type        string `json:"type"`
}

// GraphResult holds entities in a flat arena plus index-based edges.
type GraphResult struct {
	Entities      []GraphEntity       `json:"entities"`
	Relationships []GraphRelationship `json:"relationships"`
}

// ── Streaming Agent ──────────────────────────────────────────

// AgentMessage is the user turn sent to the backend agent.
type AgentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentRequest drives the backend's streaming agent endpoint.
type AgentRequest struct {
	Message          AgentMessage     `json:"message"`
	Mode             BackendMode      `json:"mode"`
	RAGTools         []string         `json:"rag_tools,omitempty"`
	ResearchTools    []string         `json:"research_tools,omitempty"`
	GenerationConfig GenerationConfig `json:"generation_config"`
	SearchSettings   SearchSettings   `json:"search_settings"`
	ConversationID   string           `json:"conversation_id,omitempty"`
}

// Known streaming event types. Consumers must tolerate unknown types.
const (
	AgentEventThinking    = "thinking"
	AgentEventToolCall    = "tool_call"
	AgentEventToolResult  = "tool_result"
	AgentEventCitation    = "citation"
	AgentEventMessage     = "message"
	AgentEventFinalAnswer = "final_answer"
)

// AgentEvent is one typed event from the streaming agent endpoint.
type AgentEvent struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"data"`
}

// AgentOutcome is the accumulated result of consuming an agent stream.
type AgentOutcome struct {
	Answer         string   `json:"answer"`
	Citations      []Source `json:"citations,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Thinking       []string `json:"thinking,omitempty"`
}
