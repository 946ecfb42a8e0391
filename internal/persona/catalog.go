// Package persona holds the persona catalog and the persona selector.
//
// Five personas exist, fixed at compile time. Selection runs an LLM
// classifier with a structured-output contract when a credential is
// configured, and falls back to deterministic keyword scoring otherwise.
// Selection history persists across processes in a bounded JSON file.
package persona

import (
	"fmt"

	"github.com/ragscout/ragscout/internal/tools"
	"github.com/ragscout/ragscout/pkg/models"
)

// catalog is the immutable persona inventory.
var catalog = map[models.PersonaID]models.Persona{
	models.PersonaDeveloper: {
		ID:          models.PersonaDeveloper,
		Name:        "Developer",
		Description: "Implements features and writes code with concrete examples",
		PreferredTools: []string{
			tools.SearchCodeExamples,
			tools.GetImplementationHelp,
			tools.SearchDocumentation,
		},
		SearchStrategy: models.SearchPrecise,
		DefaultTopK:    5,
		UseRAGDefault:  true,
		RAGContextSize: 5,
		AutoStore:      true,
		LearningRate:   models.LearningModerate,
		UseGraph:       false,
		GraphDepth:     1,
	},
	models.PersonaArchitect: {
		ID:          models.PersonaArchitect,
		Name:        "Architect",
		Description: "Analyzes system structure, dependencies, and design patterns",
		PreferredTools: []string{
			tools.ExplainArchitecture,
			tools.ExploreArchitectureGraph,
			tools.QueryCodeRelationships,
			tools.FindDependencies,
		},
		SearchStrategy: models.SearchComprehensive,
		DefaultTopK:    10,
		UseRAGDefault:  true,
		RAGContextSize: 8,
		AutoStore:      true,
		LearningRate:   models.LearningConservative,
		UseGraph:       true,
		GraphDepth:     3,
	},
	models.PersonaDebugger: {
		ID:          models.PersonaDebugger,
		Name:        "Debugger",
		Description: "Diagnoses errors and failures using past fixes and project context",
		PreferredTools: []string{
			tools.DebugWithRAG,
			tools.RetrieveSimilarExperiences,
			tools.SearchDocumentation,
		},
		SearchStrategy: models.SearchPrecise,
		DefaultTopK:    7,
		UseRAGDefault:  true,
		RAGContextSize: 7,
		AutoStore:      true,
		LearningRate:   models.LearningAggressive,
		UseGraph:       true,
		GraphDepth:     2,
	},
	models.PersonaLearner: {
		ID:          models.PersonaLearner,
		Name:        "Learner",
		Description: "Explains concepts and answers questions from documentation",
		PreferredTools: []string{
			tools.AskDocumentation,
			tools.SearchDocumentation,
			tools.ExplainArchitecture,
		},
		SearchStrategy: models.SearchExploratory,
		DefaultTopK:    8,
		UseRAGDefault:  true,
		RAGContextSize: 10,
		AutoStore:      false,
		LearningRate:   models.LearningConservative,
		UseGraph:       false,
		GraphDepth:     1,
	},
	models.PersonaTester: {
		ID:          models.PersonaTester,
		Name:        "Tester",
		Description: "Finds tests, measures coverage, and validates behavior",
		PreferredTools: []string{
			tools.FindTestExamples,
			tools.FindTestCoverage,
			tools.SearchCodeExamples,
		},
		SearchStrategy: models.SearchPrecise,
		DefaultTopK:    5,
		UseRAGDefault:  true,
		RAGContextSize: 5,
		AutoStore:      true,
		LearningRate:   models.LearningModerate,
		UseGraph:       true,
		GraphDepth:     1,
	},
}

// Get returns the persona for an ID.
func Get(id models.PersonaID) (models.Persona, error) {
	p, ok := catalog[id]
	if !ok {
		return models.Persona{}, &models.ConfigError{
			Field:  "persona_id",
			Reason: fmt.Sprintf("unknown persona %q", id),
		}
	}
	return p, nil
}

// All returns every persona in catalog order.
func All() []models.Persona {
	out := make([]models.Persona, 0, len(catalog))
	for _, id := range models.AllPersonaIDs {
		out = append(out, catalog[id])
	}
	return out
}
