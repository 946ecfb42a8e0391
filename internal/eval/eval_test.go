package eval_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ragscout/ragscout/internal/eval"
	"github.com/ragscout/ragscout/internal/persona"
	"github.com/ragscout/ragscout/pkg/models"
)

// newKeywordSelector builds a selector with no classifier so every case
// goes through the deterministic keyword fallback.
func newKeywordSelector(t *testing.T) *persona.Selector {
	t.Helper()
	history := persona.LoadHistory(filepath.Join(t.TempDir(), "history.json"))
	return persona.NewSelector(nil, history)
}

func TestRunGradesBuiltInCorpus(t *testing.T) {
	runner := eval.NewRunner(newKeywordSelector(t), "")
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	m := report.Metrics
	if m.TotalCases != len(eval.Corpus) {
		t.Errorf("TotalCases = %d, want %d", m.TotalCases, len(eval.Corpus))
	}
	if len(report.Results) != m.TotalCases {
		t.Errorf("Results = %d entries, want %d", len(report.Results), m.TotalCases)
	}
	if m.Accuracy < 0.95 {
		var wrong []string
		for _, res := range report.Results {
			if !res.Correct {
				wrong = append(wrong, res.Case.ID)
			}
		}
		t.Errorf("Accuracy = %.2f, failing cases: %v", m.Accuracy, wrong)
	}
	if m.MethodCounts["keywords"] != m.TotalCases {
		t.Errorf("MethodCounts = %v, want all keyword selections", m.MethodCounts)
	}
}

func TestRunNormalizesPerCategoryAccuracy(t *testing.T) {
	cases := []eval.Case{
		{ID: "a-1", Category: eval.CategoryDebugging, Difficulty: eval.DifficultyEasy,
			Request: "Fix this error: request fails with 401 unauthorized", ExpectedPersona: models.PersonaDebugger},
		{ID: "a-2", Category: eval.CategoryDebugging, Difficulty: eval.DifficultyEasy,
			Request: "Debug the crash in the import step", ExpectedPersona: models.PersonaDebugger},
		{ID: "b-1", Category: eval.CategoryLearning, Difficulty: eval.DifficultyEasy,
			Request: "Fix this error: request fails with 401 unauthorized", ExpectedPersona: models.PersonaLearner},
	}

	report, err := eval.NewRunner(newKeywordSelector(t), "").WithCases(cases).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	m := report.Metrics
	if m.ByCategory[eval.CategoryDebugging] != 1.0 {
		t.Errorf("debugging accuracy = %v, want 1.0", m.ByCategory[eval.CategoryDebugging])
	}
	// b-1 is deliberately mislabeled, so learning accuracy is zero.
	if m.ByCategory[eval.CategoryLearning] != 0.0 {
		t.Errorf("learning accuracy = %v, want 0.0", m.ByCategory[eval.CategoryLearning])
	}
	if m.Correct != 2 {
		t.Errorf("Correct = %d, want 2", m.Correct)
	}
}

func TestRunWritesReportFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := eval.NewRunner(newKeywordSelector(t), dir).
		WithCases(eval.Corpus[:3]).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	results, _ := filepath.Glob(filepath.Join(dir, "eval-results-*.json"))
	metrics, _ := filepath.Glob(filepath.Join(dir, "eval-metrics-*.json"))
	if len(results) != 1 || len(metrics) != 1 {
		t.Errorf("report files = %v + %v, want one of each", results, metrics)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eval.NewRunner(newKeywordSelector(t), "").Run(ctx); err == nil {
		t.Error("Expected a context error")
	}
}

func TestRenderListsIncorrectCases(t *testing.T) {
	cases := []eval.Case{
		{ID: "wrong-1", Category: eval.CategoryLearning, Difficulty: eval.DifficultyEasy,
			Request: "Fix this error: request fails with 401 unauthorized", ExpectedPersona: models.PersonaLearner},
	}
	report, err := eval.NewRunner(newKeywordSelector(t), "").WithCases(cases).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := report.Render()
	if !strings.Contains(out, "Incorrect cases:") || !strings.Contains(out, "wrong-1") {
		t.Errorf("Render output missing failure listing:\n%s", out)
	}
}

func TestRenderAllCorrect(t *testing.T) {
	cases := []eval.Case{
		{ID: "ok-1", Category: eval.CategoryDebugging, Difficulty: eval.DifficultyEasy,
			Request: "Fix this error: request fails with 401 unauthorized", ExpectedPersona: models.PersonaDebugger},
	}
	report, err := eval.NewRunner(newKeywordSelector(t), "").WithCases(cases).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out := report.Render(); !strings.Contains(out, "All cases correct.") {
		t.Errorf("Render output = %s", out)
	}
}
