// Package backendcfg maps (persona, request, history) to the configuration
// payload sent to the remote RAG agent service.
//
// The mapper is pure: no I/O, no clock, no randomness. Analysis is keyword
// driven; the persona supplies the starting profile and the analysis
// upgrades mode, tool set, and decoding parameters from there.
package backendcfg

import (
	"strings"

	"github.com/ragscout/ragscout/pkg/models"
)

// Thinking budgets per complexity band.
const (
	budgetComplex  = 8192
	budgetModerate = 4096
	budgetSimple   = 0
)

// searchLimitCap bounds the retrieval limit after the history bonus.
const searchLimitCap = 15

var codeExecTokens = []string{
	"calculate", "compute", "run", "execute", "factorial", "algorithm complexity",
}

var webSearchTokens = []string{
	"latest", "current", "recent", "compare with", "industry", "best practices", "trends",
}

// multiStepPairs are ordered keyword pairs whose co-occurrence (first
// before second) signals multi-step reasoning.
var multiStepPairs = [][2]string{
	{"analyze", "implications"},
	{"compare", "evaluate"},
	{"design", "implement"},
	{"review", "suggest"},
	{"why", "how"},
	{"what", "why"},
	{"explain", "analyze"},
}

// Analyze profiles a request by keyword classes.
func Analyze(request string) models.RequestAnalysis {
	lowered := strings.ToLower(request)

	analysis := models.RequestAnalysis{}
	for _, tok := range codeExecTokens {
		if strings.Contains(lowered, tok) {
			analysis.RequiresCodeExec = true
			break
		}
	}
	for _, tok := range webSearchTokens {
		if strings.Contains(lowered, tok) {
			analysis.RequiresWebSearch = true
			break
		}
	}
	for _, pair := range multiStepPairs {
		first := strings.Index(lowered, pair[0])
		if first < 0 {
			continue
		}
		if second := strings.Index(lowered[first+len(pair[0]):], pair[1]); second >= 0 {
			analysis.RequiresMultiStep = true
			break
		}
	}

	switch {
	case analysis.RequiresCodeExec || analysis.RequiresMultiStep:
		analysis.Complexity = models.ComplexityComplex
		analysis.ThinkingBudget = budgetComplex
	case analysis.RequiresWebSearch || len(strings.Fields(request)) > 15:
		analysis.Complexity = models.ComplexityModerate
		analysis.ThinkingBudget = budgetModerate
	default:
		analysis.Complexity = models.ComplexitySimple
		analysis.ThinkingBudget = budgetSimple
	}
	return analysis
}

// profile is a persona's baseline backend configuration.
type profile struct {
	mode           models.BackendMode
	tools          []string
	model          string
	temperature    float64
	thinkingBudget int
	limit          int
	graphEnabled   bool
}

var personaProfiles = map[models.PersonaID]profile{
	models.PersonaDeveloper: {
		mode:         models.BackendModeRAG,
		tools:        []string{models.BackendToolFileKnowledge, models.BackendToolFileContent},
		model:        "claude-sonnet-4-20250514",
		temperature:  0.3,
		limit:        7,
		graphEnabled: true,
	},
	models.PersonaArchitect: {
		mode:           models.BackendModeResearch,
		tools:          []string{models.BackendToolFileKnowledge, models.BackendToolFileContent, models.BackendToolReasoning},
		model:          "claude-sonnet-4-20250514",
		temperature:    0.5,
		thinkingBudget: budgetModerate,
		limit:          10,
		graphEnabled:   true,
	},
	models.PersonaDebugger: {
		mode:         models.BackendModeRAG,
		tools:        []string{models.BackendToolFileKnowledge, models.BackendToolFileContent},
		model:        "claude-sonnet-4-20250514",
		temperature:  0.2,
		limit:        7,
		graphEnabled: true,
	},
	models.PersonaLearner: {
		mode:         models.BackendModeRAG,
		tools:        []string{models.BackendToolFileKnowledge},
		model:        "claude-sonnet-4-20250514",
		temperature:  0.7,
		limit:        5,
		graphEnabled: false,
	},
	models.PersonaTester: {
		mode:         models.BackendModeRAG,
		tools:        []string{models.BackendToolFileKnowledge, models.BackendToolFileContent},
		model:        "claude-sonnet-4-20250514",
		temperature:  0.3,
		limit:        5,
		graphEnabled: true,
	},
}

// Map produces the backend configuration for one request. historyLen is
// the number of persona selection records available for continuity.
func Map(personaID models.PersonaID, request string, historyLen int) models.BackendConfig {
	analysis := Analyze(request)
	return MapWithAnalysis(personaID, analysis, historyLen)
}

// MapWithAnalysis applies the ruleset to a precomputed analysis.
func MapWithAnalysis(personaID models.PersonaID, analysis models.RequestAnalysis, historyLen int) models.BackendConfig {
	prof, ok := personaProfiles[personaID]
	if !ok {
		prof = personaProfiles[models.PersonaDeveloper]
	}

	cfg := models.BackendConfig{
		Mode:  prof.mode,
		Tools: append([]string(nil), prof.tools...),
		GenerationConfig: models.GenerationConfig{
			Model:             prof.model,
			Temperature:       prof.temperature,
			ThinkingBudget:    prof.thinkingBudget,
			ExtendedThinking:  prof.thinkingBudget > 0,
			MaxTokensToSample: 4096,
			Stream:            true,
		},
		SearchSettings: models.SearchSettings{
			UseHybridSearch: true,
			HybridSettings: &models.HybridSettings{
				FullTextWeight: 1.0,
				SemanticWeight: 5.0,
				FullTextLimit:  200,
				RRFK:           50,
			},
			Limit:         prof.limit,
			GraphSettings: &models.GraphSettings{Enabled: prof.graphEnabled},
		},
	}

	if analysis.RequiresMultiStep {
		cfg.Mode = models.BackendModeResearch
	}
	if analysis.RequiresCodeExec {
		cfg.Mode = models.BackendModeResearch
		cfg.Tools = appendMissing(cfg.Tools, models.BackendToolPythonExecutor)
	}
	if analysis.RequiresWebSearch {
		cfg.Tools = appendMissing(cfg.Tools, models.BackendToolWebSearch)
		cfg.SearchSettings.UseWebSearch = true
	}

	if analysis.ThinkingBudget > cfg.GenerationConfig.ThinkingBudget {
		cfg.GenerationConfig.ThinkingBudget = analysis.ThinkingBudget
	}
	if analysis.ThinkingBudget > 0 {
		cfg.GenerationConfig.ExtendedThinking = true
	}

	if historyLen > 5 {
		cfg.SearchSettings.Limit += 3
		if cfg.SearchSettings.Limit > searchLimitCap {
			cfg.SearchSettings.Limit = searchLimitCap
		}
	}

	return cfg
}

// FastQuery is the low-latency preset: small model, plain RAG, tight limit.
func FastQuery() models.BackendConfig {
	return models.BackendConfig{
		Mode:  models.BackendModeRAG,
		Tools: []string{models.BackendToolFileKnowledge},
		GenerationConfig: models.GenerationConfig{
			Model:             "claude-3-5-haiku-20241022",
			Temperature:       0.3,
			MaxTokensToSample: 1024,
			Stream:            true,
		},
		SearchSettings: models.SearchSettings{
			UseSemanticSearch: true,
			Limit:             3,
		},
	}
}

// DeepResearch is the maximal preset: large model, research mode, every
// tool, web plus hybrid search, full thinking budget.
func DeepResearch() models.BackendConfig {
	return models.BackendConfig{
		Mode: models.BackendModeResearch,
		Tools: []string{
			models.BackendToolFileKnowledge,
			models.BackendToolFileContent,
			models.BackendToolWebSearch,
			models.BackendToolWebScrape,
			models.BackendToolPythonExecutor,
			models.BackendToolReasoning,
			models.BackendToolCritique,
			models.BackendToolRAG,
		},
		GenerationConfig: models.GenerationConfig{
			Model:             "claude-opus-4-20250514",
			ExtendedThinking:  true,
			ThinkingBudget:    budgetComplex,
			Temperature:       0.7,
			MaxTokensToSample: 8192,
			Stream:            true,
		},
		SearchSettings: models.SearchSettings{
			UseHybridSearch: true,
			HybridSettings: &models.HybridSettings{
				FullTextWeight: 1.0,
				SemanticWeight: 5.0,
				FullTextLimit:  200,
				RRFK:           50,
			},
			Limit:         searchLimitCap,
			UseWebSearch:  true,
			GraphSettings: &models.GraphSettings{Enabled: true},
		},
	}
}

func appendMissing(tools []string, tool string) []string {
	for _, t := range tools {
		if t == tool {
			return tools
		}
	}
	return append(tools, tool)
}
