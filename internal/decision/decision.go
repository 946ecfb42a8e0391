// Package decision turns a natural-language request into a ranked list of
// tool decisions and a workflow plan with parallel groups.
package decision

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ragscout/ragscout/internal/tools"
	"github.com/ragscout/ragscout/pkg/models"
)

// minDecisionConfidence filters out weak pattern matches.
const minDecisionConfidence = 0.6

// Engine evaluates request patterns against the active persona's
// retrieval preferences. The persona reference is swapped by the
// orchestrator when a different persona takes over the session.
type Engine struct {
	persona *models.Persona
}

func NewEngine(persona *models.Persona) *Engine {
	return &Engine{persona: persona}
}

// SetPersona replaces the persona whose defaults shape new decisions.
func (e *Engine) SetPersona(persona *models.Persona) {
	e.persona = persona
}

// pattern pairs a keyword predicate with a decision factory.
type pattern struct {
	match func(lowered string) bool
	build func(e *Engine, request string) models.ToolDecision
}

func anyOf(tokens ...string) func(string) bool {
	return func(lowered string) bool {
		for _, tok := range tokens {
			if strings.Contains(lowered, tok) {
				return true
			}
		}
		return false
	}
}

func allOf(preds ...func(string) bool) func(string) bool {
	return func(lowered string) bool {
		for _, p := range preds {
			if !p(lowered) {
				return false
			}
		}
		return true
	}
}

var patterns = []pattern{
	{
		match: anyOf("find", "search", "look for", "where is"),
		build: func(e *Engine, request string) models.ToolDecision {
			mode := "hybrid"
			if e.persona.SearchStrategy == models.SearchPrecise {
				mode = "keyword"
			}
			return models.ToolDecision{
				ToolName: tools.SearchDocumentation,
				Arguments: map[string]interface{}{
					"query":       request,
					"top_k":       e.persona.DefaultTopK,
					"search_mode": mode,
				},
				Reasoning:  "Request asks to locate something in the documentation",
				Confidence: 0.85,
			}
		},
	},
	{
		match: allOf(
			anyOf("example", "how to", "implement", "code for"),
			anyOf("function", "class", "component", "api"),
		),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.SearchCodeExamples,
				Arguments: map[string]interface{}{
					"description": request,
					"top_k":       e.persona.DefaultTopK,
				},
				Reasoning:  "Request asks for code-level examples",
				Confidence: 0.80,
			}
		},
	},
	{
		match: anyOf("implement", "build", "create", "add", "feature"),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.GetImplementationHelp,
				Arguments: map[string]interface{}{
					"feature_description": request,
				},
				Reasoning:  "Request describes a feature to implement",
				Confidence: 0.75,
			}
		},
	},
	{
		match: anyOf("error", "bug", "fail", "broken", "issue", "problem", "debug", "why"),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.DebugWithRAG,
				Arguments: map[string]interface{}{
					"error_message": request,
				},
				Reasoning:  "Request describes a failure to diagnose",
				Confidence: 0.85,
			}
		},
	},
	{
		match: anyOf("architecture", "structure", "design", "how does", "explain", "understand"),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.ExplainArchitecture,
				Arguments: map[string]interface{}{
					"aspect": request,
				},
				Reasoning:  "Request asks about system structure",
				Confidence: 0.75,
			}
		},
	},
	{
		match: anyOf("depend", "import", "use", "require"),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.FindDependencies,
				Arguments: map[string]interface{}{
					"module_path":        extractModulePath(request),
					"include_transitive": transitiveRe.MatchString(strings.ToLower(request)),
				},
				Reasoning:  "Request asks about module dependencies",
				Confidence: 0.70,
			}
		},
	},
	{
		match: anyOf("test", "coverage", "tested", "testing"),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.FindTestCoverage,
				Arguments: map[string]interface{}{
					"module_path": extractModulePath(request),
				},
				Reasoning:  "Request asks about test coverage",
				Confidence: 0.75,
			}
		},
	},
	{
		match: anyOf("what", "how", "why", "when", "who", "where", "explain", "tell me", "describe"),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.AskDocumentation,
				Arguments: map[string]interface{}{
					"question":        request,
					"top_k":           e.persona.RAGContextSize,
					"include_sources": true,
				},
				Reasoning:  "Open question answerable from documentation",
				Confidence: 0.70,
			}
		},
	},
	{
		match: anyOf("explore", "overview", "map", "connected", "relationship"),
		build: func(e *Engine, request string) models.ToolDecision {
			return models.ToolDecision{
				ToolName: tools.ExploreArchitectureGraph,
				Arguments: map[string]interface{}{
					"root_module": extractModulePath(request),
					"max_depth":   e.persona.GraphDepth,
				},
				Reasoning:  "Request asks to explore the code graph",
				Confidence: 0.70,
			}
		},
	},
}

var (
	fileRe       = regexp.MustCompile(`[\w./-]+\.(?:tsx|jsx|ts|js|py)\b`)
	srcRe        = regexp.MustCompile(`src/[\w./-]*`)
	transitiveRe = regexp.MustCompile(`all|transitive|indirect`)
)

// extractModulePath pulls a file path out of the request text. A named
// source file wins, then an explicit src/ prefix, then the tree root.
func extractModulePath(request string) string {
	if m := fileRe.FindString(request); m != "" {
		return m
	}
	if m := srcRe.FindString(request); m != "" {
		return m
	}
	return "src/"
}

// Analyze evaluates every pattern against the request. Matching patterns
// each contribute one decision; decisions below the confidence floor are
// dropped and the survivors come back sorted by confidence descending.
func (e *Engine) Analyze(request string) []models.ToolDecision {
	lowered := strings.ToLower(request)

	var decisions []models.ToolDecision
	for _, p := range patterns {
		if !p.match(lowered) {
			continue
		}
		d := p.build(e, request)
		if d.Confidence < minDecisionConfidence {
			continue
		}
		decisions = append(decisions, d)
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Confidence > decisions[j].Confidence
	})
	return decisions
}

// parallelizable tools may share an execution group when adjacent.
var parallelizable = map[string]bool{
	tools.SearchDocumentation: true,
	tools.SearchCodeExamples:  true,
	tools.FindTestExamples:    true,
}

// durationEstimates are advisory per-tool dispatch estimates in ms.
var durationEstimates = map[string]int64{
	tools.SearchDocumentation:        500,
	tools.SearchCodeExamples:         500,
	tools.FindTestExamples:           500,
	tools.AskDocumentation:           2000,
	tools.GetImplementationHelp:      2500,
	tools.DebugWithRAG:               2500,
	tools.ExplainArchitecture:        2000,
	tools.StoreExperience:            500,
	tools.RetrieveSimilarExperiences: 300,
	tools.ReflectOnPatterns:          1000,
	tools.GetMemoryStats:             300,
	tools.QueryCodeRelationships:     1200,
	tools.FindDependencies:           1500,
	tools.FindUsages:                 1500,
	tools.FindTestCoverage:           1500,
	tools.ExploreArchitectureGraph:   2000,
}

const defaultDurationEstimate = 1000

// Plan walks decisions in order, grouping adjacent parallelizable tools
// into one group and everything else into singleton groups. The group
// lists together form a permutation of the step indices.
func (e *Engine) Plan(decisions []models.ToolDecision) models.WorkflowPlan {
	plan := models.WorkflowPlan{Steps: decisions}

	var current []int
	flush := func() {
		if len(current) > 0 {
			plan.ParallelGroups = append(plan.ParallelGroups, current)
			current = nil
		}
	}

	for i, d := range decisions {
		if parallelizable[d.ToolName] {
			current = append(current, i)
			continue
		}
		flush()
		plan.ParallelGroups = append(plan.ParallelGroups, []int{i})
	}
	flush()

	for _, d := range decisions {
		est, ok := durationEstimates[d.ToolName]
		if !ok {
			est = defaultDurationEstimate
		}
		plan.EstimatedDurationMs += est
	}
	return plan
}

// ShouldStoreExperience applies the persona's learning rate. Failures
// are always stored so the memory loop can learn from them.
func ShouldStoreExperience(outcome models.Outcome, confidence float64, rate models.LearningRate) bool {
	if outcome == models.OutcomeFailure {
		return true
	}
	switch rate {
	case models.LearningAggressive:
		return true
	case models.LearningModerate:
		return confidence >= 0.7
	case models.LearningConservative:
		return confidence >= 0.85
	default:
		return false
	}
}

// ShouldTriggerReflection fires every freq stored experiences. A zero
// frequency disables reflection entirely.
func ShouldTriggerReflection(n, freq int) bool {
	return freq > 0 && n%freq == 0
}
