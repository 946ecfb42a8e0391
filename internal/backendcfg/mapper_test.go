package backendcfg_test

import (
	"testing"

	"github.com/ragscout/ragscout/internal/backendcfg"
	"github.com/ragscout/ragscout/pkg/models"
)

func hasTool(cfg models.BackendConfig, tool string) bool {
	for _, t := range cfg.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

func TestAnalyzeComplexityBands(t *testing.T) {
	tests := []struct {
		name       string
		request    string
		complexity models.Complexity
		budget     int
	}{
		{"code execution", "Calculate the factorial of 20", models.ComplexityComplex, 8192},
		{"multi step", "Analyze the security implications of this change", models.ComplexityComplex, 8192},
		{"web search", "What are the latest best practices for Go modules", models.ComplexityModerate, 4096},
		{"long request", "Please take a careful look at the way the configuration file is parsed and report anything that seems unusual about it", models.ComplexityModerate, 4096},
		{"simple", "Rename the helper", models.ComplexitySimple, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backendcfg.Analyze(tt.request)
			if got.Complexity != tt.complexity {
				t.Errorf("Complexity = %s, want %s", got.Complexity, tt.complexity)
			}
			if got.ThinkingBudget != tt.budget {
				t.Errorf("ThinkingBudget = %d, want %d", got.ThinkingBudget, tt.budget)
			}
		})
	}
}

func TestAnalyzeMultiStepRequiresOrderedPair(t *testing.T) {
	got := backendcfg.Analyze("Design the schema first, then implement the storage layer")
	if !got.RequiresMultiStep {
		t.Error("Expected design...implement to flag multi-step reasoning")
	}
	if backendcfg.Analyze("implement a clean design").RequiresMultiStep {
		t.Error("Reversed pair must not flag multi-step reasoning")
	}
}

func TestMapDeveloperBaseline(t *testing.T) {
	cfg := backendcfg.Map(models.PersonaDeveloper, "Rename the helper", 0)

	if cfg.Mode != models.BackendModeRAG {
		t.Errorf("Mode = %s, want rag", cfg.Mode)
	}
	if !hasTool(cfg, models.BackendToolFileKnowledge) || !hasTool(cfg, models.BackendToolFileContent) {
		t.Errorf("Tools = %v, want file knowledge and content", cfg.Tools)
	}
	if cfg.GenerationConfig.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", cfg.GenerationConfig.Temperature)
	}
	if cfg.SearchSettings.Limit != 7 {
		t.Errorf("Limit = %d, want 7", cfg.SearchSettings.Limit)
	}
	if cfg.GenerationConfig.ExtendedThinking {
		t.Error("Simple developer request must not enable extended thinking")
	}
}

func TestMapArchitectExploration(t *testing.T) {
	cfg := backendcfg.Map(models.PersonaArchitect, "Show me the component hierarchy and module dependencies", 0)

	if cfg.Mode != models.BackendModeResearch {
		t.Errorf("Mode = %s, want research", cfg.Mode)
	}
	if !cfg.GenerationConfig.ExtendedThinking {
		t.Error("Architect profile must enable extended thinking")
	}
	if cfg.SearchSettings.Limit != 10 {
		t.Errorf("Limit = %d, want 10", cfg.SearchSettings.Limit)
	}
	if cfg.SearchSettings.GraphSettings == nil || !cfg.SearchSettings.GraphSettings.Enabled {
		t.Error("Architect profile must enable graph settings")
	}
}

func TestMapUpgradesModeOnMultiStep(t *testing.T) {
	cfg := backendcfg.Map(models.PersonaDeveloper, "Analyze the caching layer and its implications", 0)
	if cfg.Mode != models.BackendModeResearch {
		t.Errorf("Mode = %s, want research after multi-step upgrade", cfg.Mode)
	}
	if !cfg.GenerationConfig.ExtendedThinking || cfg.GenerationConfig.ThinkingBudget != 8192 {
		t.Errorf("ThinkingBudget = %d extended=%v, want 8192 extended",
			cfg.GenerationConfig.ThinkingBudget, cfg.GenerationConfig.ExtendedThinking)
	}
}

func TestMapAttachesPythonExecutor(t *testing.T) {
	cfg := backendcfg.Map(models.PersonaDeveloper, "Compute the checksum for each chunk", 0)
	if cfg.Mode != models.BackendModeResearch {
		t.Errorf("Mode = %s, want research after code-execution upgrade", cfg.Mode)
	}
	if !hasTool(cfg, models.BackendToolPythonExecutor) {
		t.Errorf("Tools = %v, want python executor attached", cfg.Tools)
	}
}

func TestMapAttachesWebSearch(t *testing.T) {
	cfg := backendcfg.Map(models.PersonaDeveloper, "Compare with industry trends", 0)
	if !hasTool(cfg, models.BackendToolWebSearch) {
		t.Errorf("Tools = %v, want web search attached", cfg.Tools)
	}
	if !cfg.SearchSettings.UseWebSearch {
		t.Error("Expected use_web_search enabled")
	}
}

func TestMapLongHistoryBonus(t *testing.T) {
	base := backendcfg.Map(models.PersonaDeveloper, "Rename the helper", 0)
	boosted := backendcfg.Map(models.PersonaDeveloper, "Rename the helper", 6)
	if boosted.SearchSettings.Limit != base.SearchSettings.Limit+3 {
		t.Errorf("boosted limit = %d, want %d", boosted.SearchSettings.Limit, base.SearchSettings.Limit+3)
	}

	// Bonus never pushes the limit past the cap.
	capped := backendcfg.Map(models.PersonaArchitect, "Show me the module overview", 6)
	if capped.SearchSettings.Limit > 15 {
		t.Errorf("capped limit = %d, want <= 15", capped.SearchSettings.Limit)
	}
}

func TestPresets(t *testing.T) {
	fast := backendcfg.FastQuery()
	if fast.Mode != models.BackendModeRAG || fast.SearchSettings.Limit != 3 {
		t.Errorf("FastQuery = mode %s limit %d, want rag/3", fast.Mode, fast.SearchSettings.Limit)
	}

	deep := backendcfg.DeepResearch()
	if deep.Mode != models.BackendModeResearch || deep.SearchSettings.Limit != 15 {
		t.Errorf("DeepResearch = mode %s limit %d, want research/15", deep.Mode, deep.SearchSettings.Limit)
	}
	if deep.GenerationConfig.ThinkingBudget != 8192 || !deep.GenerationConfig.ExtendedThinking {
		t.Errorf("DeepResearch thinking budget = %d, want 8192 with extended thinking", deep.GenerationConfig.ThinkingBudget)
	}
	if !hasTool(deep, models.BackendToolPythonExecutor) || !hasTool(deep, models.BackendToolWebSearch) {
		t.Errorf("DeepResearch tools = %v, want the full tool set", deep.Tools)
	}
}
