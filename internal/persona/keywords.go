package persona

import (
	"strings"

	"github.com/ragscout/ragscout/pkg/models"
)

// weightedPatterns maps substring patterns to a score weight.
type weightedPatterns struct {
	patterns []string
	weight   int
}

// keywordTable scores a lowercased request per persona.
var keywordTable = map[models.PersonaID][]weightedPatterns{
	models.PersonaDeveloper: {
		{patterns: []string{"implement", "build", "create", "add", "code", "function", "api", "endpoint"}, weight: 3},
		{patterns: []string{"example", "how to", "snippet", "sample"}, weight: 2},
	},
	models.PersonaArchitect: {
		{patterns: []string{"architecture", "structure", "design", "pattern", "overview", "system"}, weight: 3},
		{patterns: []string{"depend", "relationship", "connect", "module", "component"}, weight: 2},
		{patterns: []string{"graph", "hierarchy", "organization"}, weight: 2},
	},
	models.PersonaDebugger: {
		{patterns: []string{"error", "bug", "fail", "broken", "issue", "problem", "wrong", "crash"}, weight: 3},
		{patterns: []string{"debug", "fix", "troubleshoot", "diagnose", "why"}, weight: 2},
		{patterns: []string{"timeout", "exception", "trace", "stack"}, weight: 2},
	},
	models.PersonaLearner: {
		{patterns: []string{"what", "how", "why", "explain", "understand", "learn", "teach", "tell me"}, weight: 2},
		{patterns: []string{"concept", "theory", "principle", "idea", "documentation"}, weight: 2},
		{patterns: []string{"mean", "definition", "describe"}, weight: 1},
	},
	models.PersonaTester: {
		{patterns: []string{"test", "testing", "coverage", "unit test", "integration"}, weight: 4},
		{patterns: []string{"quality", "qa", "verify", "validate"}, weight: 2},
	},
}

// tiePriority resolves equal scores; earlier wins.
var tiePriority = []models.PersonaID{
	models.PersonaArchitect,
	models.PersonaDebugger,
	models.PersonaTester,
	models.PersonaLearner,
	models.PersonaDeveloper,
}

// scoreKeywords computes the per-persona keyword score for a request.
func scoreKeywords(request string) map[models.PersonaID]int {
	lowered := strings.ToLower(request)
	scores := make(map[models.PersonaID]int, len(keywordTable))
	for id, groups := range keywordTable {
		total := 0
		for _, g := range groups {
			for _, p := range g.patterns {
				if strings.Contains(lowered, p) {
					total += g.weight
				}
			}
		}
		scores[id] = total
	}
	return scores
}

// classifyByKeywords picks the highest-scoring persona. Ties resolve in
// the fixed priority order; an all-zero score defaults to developer.
func classifyByKeywords(request string) (models.PersonaID, int) {
	scores := scoreKeywords(request)

	max := 0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return models.PersonaDeveloper, 0
	}
	for _, id := range tiePriority {
		if scores[id] == max {
			return id, max
		}
	}
	return models.PersonaDeveloper, max
}
