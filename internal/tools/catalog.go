// Package tools implements the fixed tool catalog and its dispatcher.
//
// Every operation the orchestrator may invoke is registered here with a
// typed input schema. The dispatcher validates arguments before touching
// the backend and translates backend failures into structured error
// payloads instead of Go errors, so a failed tool never aborts a plan.
package tools

import "fmt"

// Catalog tool names. The set is fixed at process start.
const (
	SearchDocumentation        = "search_documentation"
	SearchCodeExamples         = "search_code_examples"
	FindTestExamples           = "find_test_examples"
	AskDocumentation           = "ask_documentation"
	GetImplementationHelp      = "get_implementation_help"
	DebugWithRAG               = "debug_with_rag"
	ExplainArchitecture        = "explain_architecture"
	StoreExperience            = "store_experience"
	RetrieveSimilarExperiences = "retrieve_similar_experiences"
	ReflectOnPatterns          = "reflect_on_patterns"
	GetMemoryStats             = "get_memory_stats"
	QueryCodeRelationships     = "query_code_relationships"
	FindDependencies           = "find_dependencies"
	FindUsages                 = "find_usages"
	FindTestCoverage           = "find_test_coverage"
	ExploreArchitectureGraph   = "explore_architecture_graph"
)

// ArgType enumerates the JSON types an argument schema accepts.
type ArgType string

const (
	ArgString  ArgType = "string"
	ArgNumber  ArgType = "number"
	ArgBoolean ArgType = "boolean"
	ArgArray   ArgType = "array"
)

// ArgSpec describes one argument of a tool operation.
type ArgSpec struct {
	Name        string
	Type        ArgType
	Required    bool
	Description string
}

// Operation is one entry in the tool catalog.
type Operation struct {
	Name        string
	Description string
	Args        []ArgSpec
}

// InputSchema renders the operation's arguments as a JSON schema object,
// the shape the MCP list_tools response expects.
func (op Operation) InputSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(op.Args))
	var required []string
	for _, a := range op.Args {
		prop := map[string]interface{}{
			"type":        string(a.Type),
			"description": a.Description,
		}
		if a.Type == ArgArray {
			prop["items"] = map[string]interface{}{"type": "string"}
		}
		props[a.Name] = prop
		if a.Required {
			required = append(required, a.Name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// catalog is the fixed operation inventory, keyed by tool name.
var catalog = map[string]Operation{
	SearchDocumentation: {
		Name:        SearchDocumentation,
		Description: "Search project documentation and indexed source for relevant chunks.",
		Args: []ArgSpec{
			{Name: "query", Type: ArgString, Required: true, Description: "Search query"},
			{Name: "top_k", Type: ArgNumber, Description: "Maximum results to return"},
			{Name: "search_mode", Type: ArgString, Description: "keyword, semantic, or hybrid"},
		},
	},
	SearchCodeExamples: {
		Name:        SearchCodeExamples,
		Description: "Find code examples matching a described capability.",
		Args: []ArgSpec{
			{Name: "description", Type: ArgString, Required: true, Description: "What the example should demonstrate"},
			{Name: "top_k", Type: ArgNumber, Description: "Maximum results to return"},
		},
	},
	FindTestExamples: {
		Name:        FindTestExamples,
		Description: "Find existing tests related to a query.",
		Args: []ArgSpec{
			{Name: "query", Type: ArgString, Required: true, Description: "What the tests should cover"},
			{Name: "top_k", Type: ArgNumber, Description: "Maximum results to return"},
		},
	},
	AskDocumentation: {
		Name:        AskDocumentation,
		Description: "Ask a free-form question answered from project documentation.",
		Args: []ArgSpec{
			{Name: "question", Type: ArgString, Required: true, Description: "The question to answer"},
			{Name: "top_k", Type: ArgNumber, Description: "Retrieval context size"},
			{Name: "include_sources", Type: ArgBoolean, Description: "Attach source citations"},
		},
	},
	GetImplementationHelp: {
		Name:        GetImplementationHelp,
		Description: "Get guided implementation help for a feature.",
		Args: []ArgSpec{
			{Name: "feature_description", Type: ArgString, Required: true, Description: "The feature to implement"},
		},
	},
	DebugWithRAG: {
		Name:        DebugWithRAG,
		Description: "Diagnose an error using retrieval over the project and past fixes.",
		Args: []ArgSpec{
			{Name: "error_message", Type: ArgString, Required: true, Description: "The error text or failure description"},
		},
	},
	ExplainArchitecture: {
		Name:        ExplainArchitecture,
		Description: "Explain an aspect of the system architecture.",
		Args: []ArgSpec{
			{Name: "aspect", Type: ArgString, Required: true, Description: "The architectural aspect to explain"},
		},
	},
	StoreExperience: {
		Name:        StoreExperience,
		Description: "Persist an interaction as a retrievable experience.",
		Args: []ArgSpec{
			{Name: "task", Type: ArgString, Required: true, Description: "The task the experience describes"},
			{Name: "action_taken", Type: ArgString, Required: true, Description: "What was done"},
			{Name: "outcome", Type: ArgString, Description: "success, failure, or partial"},
			{Name: "learned_pattern", Type: ArgString, Description: "Reusable pattern extracted"},
			{Name: "code_snippet", Type: ArgString, Description: "Relevant code"},
			{Name: "tags", Type: ArgArray, Description: "Classification tags"},
			{Name: "confidence", Type: ArgNumber, Description: "Confidence in [0,1]"},
		},
	},
	RetrieveSimilarExperiences: {
		Name:        RetrieveSimilarExperiences,
		Description: "Find past experiences similar to a task description.",
		Args: []ArgSpec{
			{Name: "query", Type: ArgString, Required: true, Description: "Task description to match"},
			{Name: "tags", Type: ArgArray, Description: "Required tag intersection"},
			{Name: "min_confidence", Type: ArgNumber, Description: "Minimum experience confidence"},
			{Name: "limit", Type: ArgNumber, Description: "Maximum experiences to return"},
		},
	},
	ReflectOnPatterns: {
		Name:        ReflectOnPatterns,
		Description: "Reflect over accumulated experiences to extract patterns and insights.",
		Args: []ArgSpec{
			{Name: "focus", Type: ArgString, Description: "Optional focus area for the reflection"},
		},
	},
	GetMemoryStats: {
		Name:        GetMemoryStats,
		Description: "Aggregate stored experiences by outcome and top tags.",
		Args:        nil,
	},
	QueryCodeRelationships: {
		Name:        QueryCodeRelationships,
		Description: "Query relationships of a code entity in the knowledge graph.",
		Args: []ArgSpec{
			{Name: "entity", Type: ArgString, Required: true, Description: "Entity to query"},
			{Name: "relationship_types", Type: ArgArray, Description: "Edge types to follow"},
			{Name: "max_depth", Type: ArgNumber, Description: "Traversal depth"},
		},
	},
	FindDependencies: {
		Name:        FindDependencies,
		Description: "List what a module imports or depends on.",
		Args: []ArgSpec{
			{Name: "module_path", Type: ArgString, Required: true, Description: "Module to inspect"},
			{Name: "include_transitive", Type: ArgBoolean, Description: "Follow indirect dependencies"},
		},
	},
	FindUsages: {
		Name:        FindUsages,
		Description: "Find call sites and usages of a module or symbol.",
		Args: []ArgSpec{
			{Name: "module_path", Type: ArgString, Required: true, Description: "Module or symbol to inspect"},
		},
	},
	FindTestCoverage: {
		Name:        FindTestCoverage,
		Description: "Find tests covering a module.",
		Args: []ArgSpec{
			{Name: "module_path", Type: ArgString, Required: true, Description: "Module to inspect"},
		},
	},
	ExploreArchitectureGraph: {
		Name:        ExploreArchitectureGraph,
		Description: "Walk the architecture graph outward from a root module.",
		Args: []ArgSpec{
			{Name: "root_module", Type: ArgString, Description: "Starting module (defaults to src/)"},
			{Name: "max_depth", Type: ArgNumber, Description: "Traversal depth"},
		},
	},
}

// Lookup returns the catalog operation for a tool name.
func Lookup(name string) (Operation, bool) {
	op, ok := catalog[name]
	return op, ok
}

// List returns every catalog operation in a stable order.
func List() []Operation {
	out := make([]Operation, 0, len(catalog))
	for _, name := range Names() {
		out = append(out, catalog[name])
	}
	return out
}

// Names returns all tool names in catalog declaration order.
func Names() []string {
	return []string{
		SearchDocumentation,
		SearchCodeExamples,
		FindTestExamples,
		AskDocumentation,
		GetImplementationHelp,
		DebugWithRAG,
		ExplainArchitecture,
		StoreExperience,
		RetrieveSimilarExperiences,
		ReflectOnPatterns,
		GetMemoryStats,
		QueryCodeRelationships,
		FindDependencies,
		FindUsages,
		FindTestCoverage,
		ExploreArchitectureGraph,
	}
}

// validateArgs checks arguments against the operation schema. Unknown keys
// are rejected so typos surface as BadInput instead of silent defaults.
func validateArgs(op Operation, args map[string]interface{}) error {
	specs := make(map[string]ArgSpec, len(op.Args))
	for _, a := range op.Args {
		specs[a.Name] = a
	}
	for key, val := range args {
		spec, ok := specs[key]
		if !ok {
			return fmt.Errorf("unknown argument %q", key)
		}
		if val == nil {
			continue
		}
		switch spec.Type {
		case ArgString:
			if _, ok := val.(string); !ok {
				return fmt.Errorf("argument %q must be a string", key)
			}
		case ArgNumber:
			switch val.(type) {
			case float64, int, int64:
			default:
				return fmt.Errorf("argument %q must be a number", key)
			}
		case ArgBoolean:
			if _, ok := val.(bool); !ok {
				return fmt.Errorf("argument %q must be a boolean", key)
			}
		case ArgArray:
			switch val.(type) {
			case []interface{}, []string:
			default:
				return fmt.Errorf("argument %q must be an array", key)
			}
		}
	}
	for _, a := range op.Args {
		if !a.Required {
			continue
		}
		val, ok := args[a.Name]
		if !ok || val == nil {
			return fmt.Errorf("missing required argument %q", a.Name)
		}
		if s, isStr := val.(string); isStr && s == "" {
			return fmt.Errorf("required argument %q is empty", a.Name)
		}
	}
	return nil
}
