// Package models defines the shared data model for the RagScout orchestrator.
//
// Everything the components exchange lives here: persona profiles, agent
// configuration, context entries, tool decisions and plans, responses,
// experiences, and the backend configuration payload. Keeping the model in
// pkg/ lets embedding applications construct requests and inspect responses
// without importing internal packages.
package models

import (
	"fmt"
	"time"
)

// ── Personas ─────────────────────────────────────────────────

// PersonaID identifies one of the five built-in assistance personas.
type PersonaID string

const (
	PersonaDeveloper PersonaID = "developer"
	PersonaArchitect PersonaID = "architect"
	PersonaDebugger  PersonaID = "debugger"
	PersonaLearner   PersonaID = "learner"
	PersonaTester    PersonaID = "tester"
)

// AllPersonaIDs lists every valid persona, in catalog order.
var AllPersonaIDs = []PersonaID{
	PersonaDeveloper,
	PersonaArchitect,
	PersonaDebugger,
	PersonaLearner,
	PersonaTester,
}

// Valid reports whether the ID names a known persona.
func (p PersonaID) Valid() bool {
	for _, id := range AllPersonaIDs {
		if p == id {
			return true
		}
	}
	return false
}

// SearchStrategy controls how a persona's retrieval queries are shaped.
type SearchStrategy string

const (
	SearchPrecise       SearchStrategy = "precise"
	SearchExploratory   SearchStrategy = "exploratory"
	SearchComprehensive SearchStrategy = "comprehensive"
)

// LearningRate controls how eagerly a persona persists experiences.
type LearningRate string

const (
	LearningConservative LearningRate = "conservative"
	LearningModerate     LearningRate = "moderate"
	LearningAggressive   LearningRate = "aggressive"
)

// Persona is an immutable catalog entry describing one kind of assistance.
type Persona struct {
	ID             PersonaID      `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	PreferredTools []string       `json:"preferred_tools"`
	SearchStrategy SearchStrategy `json:"search_strategy"`
	DefaultTopK    int            `json:"default_top_k"` // 1..20
	UseRAGDefault  bool           `json:"use_rag_by_default"`
	RAGContextSize int            `json:"rag_context_size"` // 3..10
	AutoStore      bool           `json:"store_experiences_automatically"`
	LearningRate   LearningRate   `json:"learning_rate"`
	UseGraph       bool           `json:"use_graph_analysis"`
	GraphDepth     int            `json:"graph_depth"` // 1..3
}

// AgentMode selects the orchestration policy.
type AgentMode string

const (
	ModeInteractive AgentMode = "interactive"
	ModeAutonomous  AgentMode = "autonomous"
	ModeAdvisory    AgentMode = "advisory"
)

// ── Agent Configuration ──────────────────────────────────────

// AgentConfig holds per-session orchestrator settings.
type AgentConfig struct {
	PersonaID              PersonaID `json:"persona_id"`
	Mode                   AgentMode `json:"mode"`
	MaxContextMemory       int       `json:"max_context_memory"`   // 5..50
	ContextWindowSize      int       `json:"context_window_size"`  // 1..10
	MaxToolChainDepth      int       `json:"max_tool_chain_depth"` // 1..10
	ParallelToolExecution  bool      `json:"parallel_tool_execution"`
	ExperienceStorage      bool      `json:"experience_storage_enabled"`
	AutoReflectFrequency   int       `json:"auto_reflect_frequency"` // 0 disables
	MinConfidenceThreshold float64   `json:"min_confidence_threshold"`
	MaxRetries             int       `json:"max_retries"` // reserved for plan-level retries
}

// DefaultAgentConfig returns the baseline configuration for a persona.
func DefaultAgentConfig(persona PersonaID) AgentConfig {
	return AgentConfig{
		PersonaID:              persona,
		Mode:                   ModeInteractive,
		MaxContextMemory:       20,
		ContextWindowSize:      5,
		MaxToolChainDepth:      5,
		ParallelToolExecution:  true,
		ExperienceStorage:      true,
		AutoReflectFrequency:   10,
		MinConfidenceThreshold: 0.6,
		MaxRetries:             2,
	}
}

// ConfigError reports an invalid AgentConfig field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid agent config: %s %s", e.Field, e.Reason)
}

// Validate checks every knob against its documented range.
func (c AgentConfig) Validate() error {
	if !c.PersonaID.Valid() {
		return &ConfigError{Field: "persona_id", Reason: fmt.Sprintf("unknown persona %q", c.PersonaID)}
	}
	switch c.Mode {
	case ModeInteractive, ModeAutonomous, ModeAdvisory:
	default:
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", c.Mode)}
	}
	if c.MaxContextMemory < 5 || c.MaxContextMemory > 50 {
		return &ConfigError{Field: "max_context_memory", Reason: "must be in [5,50]"}
	}
	if c.ContextWindowSize < 1 || c.ContextWindowSize > 10 {
		return &ConfigError{Field: "context_window_size", Reason: "must be in [1,10]"}
	}
	if c.MaxToolChainDepth < 1 || c.MaxToolChainDepth > 10 {
		return &ConfigError{Field: "max_tool_chain_depth", Reason: "must be in [1,10]"}
	}
	if c.AutoReflectFrequency < 0 {
		return &ConfigError{Field: "auto_reflect_frequency", Reason: "must be >= 0"}
	}
	if c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1 {
		return &ConfigError{Field: "min_confidence_threshold", Reason: "must be in [0,1]"}
	}
	if c.MaxRetries < 0 || c.MaxRetries > 5 {
		return &ConfigError{Field: "max_retries", Reason: "must be in [0,5]"}
	}
	return nil
}

// ── Context Entries ──────────────────────────────────────────

// ContextEntryType classifies an entry in the session context log.
type ContextEntryType string

const (
	EntryUserMessage  ContextEntryType = "user_message"
	EntryAgentThought ContextEntryType = "agent_thought"
	EntryToolCall     ContextEntryType = "tool_call"
	EntryToolResult   ContextEntryType = "tool_result"
	EntryDecision     ContextEntryType = "decision"
)

// ContextEntry is one event in the append-only session log.
type ContextEntry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      ContextEntryType       `json:"type"`
	Content   map[string]interface{} `json:"content"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// ── Decisions and Plans ──────────────────────────────────────

// ToolDecision is one candidate tool invocation proposed by the decision maker.
type ToolDecision struct {
	ToolName   string                 `json:"tool_name"`
	Arguments  map[string]interface{} `json:"arguments"`
	Reasoning  string                 `json:"reasoning"`
	Confidence float64                `json:"confidence"`
}

// WorkflowPlan orders tool decisions into sequentially executed groups.
// Steps inside one group may run concurrently.
type WorkflowPlan struct {
	Steps               []ToolDecision `json:"steps"`
	ParallelGroups      [][]int        `json:"parallel_groups"`
	EstimatedDurationMs int64          `json:"estimated_duration_ms"`
}

// Validate checks that the groups partition the step indices exactly.
func (p WorkflowPlan) Validate() error {
	seen := make(map[int]bool, len(p.Steps))
	for _, group := range p.ParallelGroups {
		for _, idx := range group {
			if idx < 0 || idx >= len(p.Steps) {
				return fmt.Errorf("plan group index %d out of range [0,%d)", idx, len(p.Steps))
			}
			if seen[idx] {
				return fmt.Errorf("plan group index %d appears twice", idx)
			}
			seen[idx] = true
		}
	}
	if len(seen) != len(p.Steps) {
		return fmt.Errorf("plan groups cover %d of %d steps", len(seen), len(p.Steps))
	}
	return nil
}

// ── Tool Results and Responses ───────────────────────────────

// ToolResult captures one dispatch outcome.
type ToolResult struct {
	ToolName   string                 `json:"tool_name"`
	Success    bool                   `json:"success"`
	Result     map[string]interface{} `json:"result,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
}

// Source is one citation attached to an answer.
type Source struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCallSummary is the per-dispatch record included in a response.
type ToolCallSummary struct {
	Tool       string `json:"tool"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
}

// AgentResponse is the orchestrator's answer to one request.
type AgentResponse struct {
	Answer     string                 `json:"answer"`
	Sources    []Source               `json:"sources,omitempty"`
	ToolCalls  []ToolCallSummary      `json:"tool_calls"`
	Reasoning  []string               `json:"reasoning"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata"`

	// BackendConfig is the retrieval/reasoning configuration derived for
	// this request, attached for callers that speak to the RAG backend
	// directly.
	BackendConfig *BackendConfig `json:"backend_config,omitempty"`
}

// ── Experiences ──────────────────────────────────────────────

// Outcome grades one interaction.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// OutcomeFromConfidence maps a response confidence to an outcome using
// fixed bands: >=0.7 success, >=0.4 partial, else failure.
func OutcomeFromConfidence(confidence float64) Outcome {
	switch {
	case confidence >= 0.7:
		return OutcomeSuccess
	case confidence >= 0.4:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

// ExperienceContext describes the situation an experience was recorded in.
type ExperienceContext struct {
	Task         string   `json:"task"`
	FilePaths    []string `json:"file_paths,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	ErrorType    string   `json:"error_type,omitempty"`
}

// Experience is one persisted interaction record.
type Experience struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	Context        ExperienceContext `json:"context"`
	ActionTaken    string            `json:"action_taken"`
	Outcome        Outcome           `json:"outcome"`
	LearnedPattern string            `json:"learned_pattern,omitempty"`
	CodeSnippet    string            `json:"code_snippet,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
}

// ── Persona Selection ────────────────────────────────────────

// PersonaSelectionRecord is one entry in the persisted selection history.
type PersonaSelectionRecord struct {
	Request         string    `json:"request"`
	SelectedPersona PersonaID `json:"selected_persona"`
	Reasoning       string    `json:"reasoning"`
	Confidence      float64   `json:"confidence"`
	Timestamp       time.Time `json:"timestamp"`
}

// ── Request Analysis ─────────────────────────────────────────

// Complexity grades a request for backend configuration purposes.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// RequestAnalysis is the keyword-derived profile of a request.
type RequestAnalysis struct {
	Complexity        Complexity `json:"complexity"`
	RequiresCodeExec  bool       `json:"requires_code_execution"`
	RequiresWebSearch bool       `json:"requires_web_search"`
	RequiresMultiStep bool       `json:"requires_multi_step_reasoning"`
	ThinkingBudget    int        `json:"estimated_thinking_budget"`
}

// ── Backend Configuration ────────────────────────────────────

// BackendMode selects the backend agent's reasoning mode.
type BackendMode string

const (
	BackendModeRAG      BackendMode = "rag"
	BackendModeResearch BackendMode = "research"
)

// Backend tool names understood by the remote RAG agent service.
const (
	BackendToolFileKnowledge  = "search_file_knowledge"
	BackendToolFileContent    = "get_file_content"
	BackendToolWebSearch      = "web_search"
	BackendToolWebScrape      = "web_scrape"
	BackendToolPythonExecutor = "python_executor"
	BackendToolReasoning      = "reasoning"
	BackendToolCritique       = "critique"
	BackendToolRAG            = "rag"
)

// GenerationConfig carries decoding parameters for the backend model.
type GenerationConfig struct {
	Model             string  `json:"model"`
	ExtendedThinking  bool    `json:"extended_thinking,omitempty"`
	ThinkingBudget    int     `json:"thinking_budget,omitempty"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p,omitempty"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Stream            bool    `json:"stream"`
}

// HybridSettings tunes combined full-text + semantic retrieval.
type HybridSettings struct {
	FullTextWeight float64 `json:"full_text_weight"`
	SemanticWeight float64 `json:"semantic_weight"`
	FullTextLimit  int     `json:"full_text_limit,omitempty"`
	RRFK           int     `json:"rrf_k,omitempty"`
}

// GraphSettings toggles relationship-aware retrieval.
type GraphSettings struct {
	Enabled bool `json:"enabled"`
}

// SearchSettings configures backend retrieval for one request.
type SearchSettings struct {
	UseSemanticSearch bool                   `json:"use_semantic_search,omitempty"`
	UseFulltextSearch bool                   `json:"use_fulltext_search,omitempty"`
	UseHybridSearch   bool                   `json:"use_hybrid_search,omitempty"`
	HybridSettings    *HybridSettings        `json:"hybrid_settings,omitempty"`
	Filters           map[string]interface{} `json:"filters,omitempty"`
	Limit             int                    `json:"limit,omitempty"`
	UseWebSearch      bool                   `json:"use_web_search,omitempty"`
	GraphSettings     *GraphSettings         `json:"graph_settings,omitempty"`
}

// BackendConfig is the full configuration payload for the backend agent.
type BackendConfig struct {
	Mode             BackendMode      `json:"mode"`
	Tools            []string         `json:"tools"`
	GenerationConfig GenerationConfig `json:"generation_config"`
	SearchSettings   SearchSettings   `json:"search_settings"`
}
